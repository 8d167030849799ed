package es

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/typedapi/types"
	"go.uber.org/zap"

	"github.com/LouYuanbo1/socialagent/internal/config"
	"github.com/LouYuanbo1/socialagent/internal/domain/model"
	"github.com/LouYuanbo1/socialagent/internal/faults"
)

type typedEsClient[D model.Document] struct {
	client *elasticsearch.TypedClient
	// 特别说明：这个实例仅用于获取索引名/映射等配置信息，不用于存储数据
	// Instance used for getting schema/configuration, not for data storage
	schemaDoc D
	log       *zap.Logger
}

func InitTypedEsClient[D model.Document](cfg *config.Config, log *zap.Logger) (TypedEsClient[D], error) {
	typedClient, err := elasticsearch.NewTypedClient(elasticsearch.Config{
		Username: cfg.Elasticsearch.Username,
		Password: cfg.Elasticsearch.Password,
		Addresses: []string{
			cfg.Elasticsearch.Address,
		},
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   10,
			ResponseHeaderTimeout: 30 * time.Second,
			IdleConnTimeout:       90 * time.Second,
			// 跳过TLS验证（仅在开发环境中使用）
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	})
	if err != nil {
		return nil, faults.Mark(faults.Store, err, "初始化Elasticsearch客户端失败")
	}
	return &typedEsClient[D]{client: typedClient, log: log.Named("es")}, nil
}

func (tec *typedEsClient[D]) GetClient() *elasticsearch.TypedClient {
	return tec.client
}

func (tec *typedEsClient[D]) CreateIndexWithMapping(ctx context.Context) error {
	index := tec.schemaDoc.GetIndex()
	mapping := tec.schemaDoc.GetTypeMapping()
	exists, err := tec.client.Indices.Exists(index).Do(ctx)
	if err != nil {
		return faults.Markf(faults.Store, err, "检查索引是否存在失败: %s", index)
	}
	if exists {
		tec.log.Info("索引已存在,跳过创建", zap.String("index", index))
		return nil
	}

	if mapping == nil {
		_, err = tec.client.Indices.Create(index).Do(ctx)
	} else {
		_, err = tec.client.Indices.Create(index).Mappings(mapping).Do(ctx)
	}
	if err != nil {
		return faults.Markf(faults.Store, err, "创建索引失败: %s", index)
	}
	return nil
}

func (tec *typedEsClient[D]) IndexDocWithID(ctx context.Context, doc D) error {
	_, err := tec.client.Index(tec.schemaDoc.GetIndex()).
		Id(doc.GetID()).
		Document(doc).
		Do(ctx)
	if err != nil {
		return faults.Markf(faults.Store, err, "写入文档失败: %s", doc.GetID())
	}
	return nil
}

func (tec *typedEsClient[D]) GetDoc(ctx context.Context, id string) (D, bool, error) {
	var zero D
	index := tec.schemaDoc.GetIndex()
	resp, err := tec.client.Get(index, id).Do(ctx)
	if err != nil {
		return zero, false, faults.Markf(faults.Store, err, "读取文档失败: %s", id)
	}
	if !resp.Found {
		return zero, false, nil
	}
	var doc D
	if err := json.Unmarshal(resp.Source_, &doc); err != nil {
		return zero, false, faults.Markf(faults.Store, err, "解析文档失败: %s", id)
	}
	return doc, true, nil
}

// 使用 []D 作为返回类型
func (tec *typedEsClient[D]) SearchDoc(ctx context.Context, query *types.Query, from, size int) ([]D, int64, error) {
	resp, err := tec.client.Search().
		Index(tec.schemaDoc.GetIndex()).
		Query(query).
		From(from).
		Size(size).
		Do(ctx)
	if err != nil {
		return nil, 0, faults.Mark(faults.Store, err, "搜索失败")
	}

	// 预分配切片容量，避免多次扩容
	results := make([]D, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		// 为每个文档分配新的 D 实例,使用泛型确定绑定结构体
		var doc D
		if err := json.Unmarshal(hit.Source_, &doc); err != nil {
			continue
		}
		results = append(results, doc)
	}

	return results, resp.Hits.Total.Value, nil
}

// 支持部分更新
func (tec *typedEsClient[D]) UpdateDoc(ctx context.Context, doc D) error {
	_, err := tec.client.Update(tec.schemaDoc.GetIndex(), doc.GetID()).
		Doc(doc).
		Do(ctx)
	if err != nil {
		return faults.Markf(faults.Store, err, "更新文档失败: %s", doc.GetID())
	}
	return nil
}

func (tec *typedEsClient[D]) DeleteDoc(ctx context.Context, id string) error {
	_, err := tec.client.Delete(tec.schemaDoc.GetIndex(), id).Do(ctx)
	if err != nil {
		return faults.Markf(faults.Store, err, "删除文档失败: %s", id)
	}
	return nil
}

func (tec *typedEsClient[D]) CountDocs(ctx context.Context) (int64, error) {
	resp, err := tec.client.Count().Index(tec.schemaDoc.GetIndex()).Do(ctx)
	if err != nil {
		return 0, faults.Mark(faults.Store, err, "统计文档数量失败")
	}
	return resp.Count, nil
}
