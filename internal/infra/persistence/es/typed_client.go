package es

import (
	"context"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/typedapi/types"

	"github.com/LouYuanbo1/socialagent/internal/domain/model"
)

type TypedEsClient[D model.Document] interface {
	GetClient() *elasticsearch.TypedClient
	CreateIndexWithMapping(ctx context.Context) error
	IndexDocWithID(ctx context.Context, doc D) error
	// GetDoc 第二个返回值表示文档是否存在
	GetDoc(ctx context.Context, id string) (D, bool, error)
	SearchDoc(ctx context.Context, query *types.Query, from, size int) ([]D, int64, error)
	UpdateDoc(ctx context.Context, doc D) error
	DeleteDoc(ctx context.Context, id string) error
	CountDocs(ctx context.Context) (int64, error)
}
