package entity

import (
	"time"

	"github.com/LouYuanbo1/socialagent/internal/domain/model"
)

// RawProfileData 从档案页提取的原始数据,分类完成后转为文档入库
type RawProfileData struct {
	ProfileID string
	Name      string
	Headline  string
	Company   string
}

func (rp *RawProfileData) ToDocument(status string, score float64, screenshotURLs []string) *model.ContactDoc {
	return &model.ContactDoc{
		ProfileID:      rp.ProfileID,
		Name:           rp.Name,
		Headline:       rp.Headline,
		Company:        rp.Company,
		Status:         status,
		Evaluated:      true,
		Score:          score,
		ScreenshotURLs: screenshotURLs,
		UpdatedAt:      time.Now(),
	}
}
