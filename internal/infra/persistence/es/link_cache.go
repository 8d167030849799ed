package es

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/LouYuanbo1/socialagent/internal/config"
	"github.com/LouYuanbo1/socialagent/internal/domain/model"
	"github.com/LouYuanbo1/socialagent/internal/faults"
)

// LinkCache 链接集缓存,治愈重启跨进程恢复的唯一落盘点
type LinkCache interface {
	Save(ctx context.Context, ref string, links []string) error
	Load(ctx context.Context, ref string) ([]string, error)
	Delete(ctx context.Context, ref string) error
}

type linkCache struct {
	client TypedEsClient[*model.LinkSetDoc]
	log    *zap.Logger
}

func InitLinkCache(cfg *config.Config, log *zap.Logger) (LinkCache, error) {
	client, err := InitTypedEsClient[*model.LinkSetDoc](cfg, log)
	if err != nil {
		return nil, err
	}
	if err := client.CreateIndexWithMapping(context.Background()); err != nil {
		return nil, err
	}
	return &linkCache{client: client, log: log.Named("linkcache")}, nil
}

func (lc *linkCache) Save(ctx context.Context, ref string, links []string) error {
	lc.log.Info("落盘链接集", zap.String("ref", ref), zap.Int("count", len(links)))
	return lc.client.IndexDocWithID(ctx, &model.LinkSetDoc{
		CacheRef:  ref,
		Links:     links,
		UpdatedAt: time.Now(),
	})
}

func (lc *linkCache) Load(ctx context.Context, ref string) ([]string, error) {
	doc, found, err := lc.client.GetDoc(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, faults.Newf(faults.Store, "链接集缓存不存在: %s", ref)
	}
	return doc.Links, nil
}

func (lc *linkCache) Delete(ctx context.Context, ref string) error {
	return lc.client.DeleteDoc(ctx, ref)
}
