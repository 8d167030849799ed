package model

import (
	"github.com/elastic/go-elasticsearch/v9/typedapi/types"
)

// Document 所有可入索引的文档类型,泛型客户端据此获取ID/索引名/映射
type Document interface {
	*ContactDoc | *EdgeDoc | *LinkSetDoc
	GetID() string
	GetIndex() string
	GetTypeMapping() *types.TypeMapping
	GetEmbeddingString() string
	SetEmbedding(embedding []float32)
	GetEmbedding() []float32
}
