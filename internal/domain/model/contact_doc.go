package model

import (
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v9/typedapi/types"
)

// 联系人分类结果
const (
	StatusPossible  = "possible"  // 活跃度达标,值得跟进
	StatusProcessed = "processed" // 已处理,判定为不活跃
)

// ContactDoc 联系人档案文档,以profileId为文档ID
// Evaluated+UpdatedAt共同构成陈旧判定(见ContactStore.GetStaleness)
type ContactDoc struct {
	ProfileID      string    `json:"profile_id"`
	Name           string    `json:"name,omitempty"`
	Headline       string    `json:"headline,omitempty"`
	Company        string    `json:"company,omitempty"`
	Status         string    `json:"status"`
	Evaluated      bool      `json:"evaluated"`
	Score          float64   `json:"score"`
	ScreenshotURLs []string  `json:"screenshot_urls,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
	Embedding      []float32 `json:"embedding,omitempty"`
}

func (d *ContactDoc) GetID() string {
	return d.ProfileID
}

func (d *ContactDoc) GetIndex() string {
	return "contacts"
}

func (d *ContactDoc) GetTypeMapping() *types.TypeMapping {
	dims := 768
	return &types.TypeMapping{
		Properties: map[string]types.Property{
			"profile_id": types.NewKeywordProperty(),
			"name":       types.NewTextProperty(),
			"headline":   types.NewTextProperty(),
			"company":    types.NewKeywordProperty(),
			"status":     types.NewKeywordProperty(),
			"evaluated":  types.NewBooleanProperty(),
			"score":      types.NewFloatNumberProperty(),
			"updated_at": types.NewDateProperty(),
			"embedding":  &types.DenseVectorProperty{Dims: &dims},
		},
	}
}

// GetEmbeddingString 用于向量化的文本表示
func (d *ContactDoc) GetEmbeddingString() string {
	return fmt.Sprintf("%s %s %s", d.Name, d.Headline, d.Company)
}

func (d *ContactDoc) SetEmbedding(embedding []float32) {
	d.Embedding = embedding
}

func (d *ContactDoc) GetEmbedding() []float32 {
	return d.Embedding
}
