package es

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/LouYuanbo1/socialagent/internal/config"
	"github.com/LouYuanbo1/socialagent/internal/domain/model"
)

// ContactStore 联系人/关系边存取,核心只消费这四个操作
type ContactStore interface {
	// GetStaleness 返回true表示该档案需要(重新)处理:
	// 记录不存在,或未评估,或UpdatedAt早于陈旧窗口
	GetStaleness(ctx context.Context, profileID string) (bool, error)
	UpsertStatus(ctx context.Context, doc *model.ContactDoc) error
	MarkBad(ctx context.Context, profileID string) error
	CheckEdgeExists(ctx context.Context, profileID string) (bool, error)
	RecordEdge(ctx context.Context, doc *model.EdgeDoc) error
	EnsureIndices(ctx context.Context) error
}

type contactStore struct {
	contacts TypedEsClient[*model.ContactDoc]
	edges    TypedEsClient[*model.EdgeDoc]
	window   time.Duration
	log      *zap.Logger
}

func InitContactStore(cfg *config.Config, log *zap.Logger) (ContactStore, error) {
	contacts, err := InitTypedEsClient[*model.ContactDoc](cfg, log)
	if err != nil {
		return nil, err
	}
	edges, err := InitTypedEsClient[*model.EdgeDoc](cfg, log)
	if err != nil {
		return nil, err
	}
	return &contactStore{
		contacts: contacts,
		edges:    edges,
		window:   time.Duration(cfg.Classify.StalenessDays) * 24 * time.Hour,
		log:      log.Named("contacts"),
	}, nil
}

// EnsureIndices 创建联系人/关系边索引(已存在则跳过)
func (cs *contactStore) EnsureIndices(ctx context.Context) error {
	if err := cs.contacts.CreateIndexWithMapping(ctx); err != nil {
		return err
	}
	return cs.edges.CreateIndexWithMapping(ctx)
}

func (cs *contactStore) GetStaleness(ctx context.Context, profileID string) (bool, error) {
	doc, found, err := cs.contacts.GetDoc(ctx, profileID)
	if err != nil {
		return false, err
	}
	return Stale(doc, found, cs.window), nil
}

// Stale 陈旧判定: 记录不存在,或未评估,或UpdatedAt早于陈旧窗口
func Stale(doc *model.ContactDoc, found bool, window time.Duration) bool {
	if !found || !doc.Evaluated {
		return true
	}
	return time.Since(doc.UpdatedAt) > window
}

func (cs *contactStore) UpsertStatus(ctx context.Context, doc *model.ContactDoc) error {
	doc.Evaluated = true
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = time.Now()
	}
	return cs.contacts.IndexDocWithID(ctx, doc)
}

func (cs *contactStore) MarkBad(ctx context.Context, profileID string) error {
	return cs.contacts.IndexDocWithID(ctx, &model.ContactDoc{
		ProfileID: profileID,
		Status:    model.StatusProcessed,
		Evaluated: true,
		UpdatedAt: time.Now(),
	})
}

func (cs *contactStore) CheckEdgeExists(ctx context.Context, profileID string) (bool, error) {
	_, found, err := cs.edges.GetDoc(ctx, profileID)
	if err != nil {
		return false, err
	}
	return found, nil
}

// RecordEdge 交互动作成功后落一条关系边
func (cs *contactStore) RecordEdge(ctx context.Context, doc *model.EdgeDoc) error {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	return cs.edges.IndexDocWithID(ctx, doc)
}
