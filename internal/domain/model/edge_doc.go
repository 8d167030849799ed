package model

import (
	"time"

	"github.com/elastic/go-elasticsearch/v9/typedapi/types"
)

// EdgeDoc 账号与联系人之间的关系边(已发送请求/已建立连接),以profileId为文档ID
type EdgeDoc struct {
	ProfileID string    `json:"profile_id"`
	OwnerID   string    `json:"owner_id"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

func (d *EdgeDoc) GetID() string {
	return d.ProfileID
}

func (d *EdgeDoc) GetIndex() string {
	return "edges"
}

func (d *EdgeDoc) GetTypeMapping() *types.TypeMapping {
	return &types.TypeMapping{
		Properties: map[string]types.Property{
			"profile_id": types.NewKeywordProperty(),
			"owner_id":   types.NewKeywordProperty(),
			"kind":       types.NewKeywordProperty(),
			"created_at": types.NewDateProperty(),
		},
	}
}

func (d *EdgeDoc) GetEmbeddingString() string { return "" }

func (d *EdgeDoc) SetEmbedding(embedding []float32) {}

func (d *EdgeDoc) GetEmbedding() []float32 { return nil }
