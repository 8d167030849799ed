package model

import (
	"time"

	"github.com/elastic/go-elasticsearch/v9/typedapi/types"
)

// LinkSetDoc 一次任务收集到的去重档案链接集,文档ID即JobState.LinkCacheRef
// 每轮完整翻页后落盘,治愈重启时直接加载而不重新收集
type LinkSetDoc struct {
	CacheRef  string    `json:"cache_ref"`
	Links     []string  `json:"links"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (d *LinkSetDoc) GetID() string {
	return d.CacheRef
}

func (d *LinkSetDoc) GetIndex() string {
	return "link_sets"
}

func (d *LinkSetDoc) GetTypeMapping() *types.TypeMapping {
	return &types.TypeMapping{
		Properties: map[string]types.Property{
			"cache_ref":  types.NewKeywordProperty(),
			"links":      types.NewKeywordProperty(),
			"updated_at": types.NewDateProperty(),
		},
	}
}

func (d *LinkSetDoc) GetEmbeddingString() string { return "" }

func (d *LinkSetDoc) SetEmbedding(embedding []float32) {}

func (d *LinkSetDoc) GetEmbedding() []float32 { return nil }
