package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/elastic/go-elasticsearch/v9/typedapi/core/search"
	"github.com/elastic/go-elasticsearch/v9/typedapi/types"
)

// IntentDetection 意图检测节点:用户输入以查询模式/搜索模式开头时走检索增强,
// 否则走普通聊天
func IntentDetection() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, state map[string]any) (map[string]any, error) {
		query, ok := state["query"].(string)
		if !ok {
			return nil, errors.New("query not found in state")
		}
		state["isSearchMode"] = strings.HasPrefix(query, "查询模式") || strings.HasPrefix(query, "搜索模式")
		return state, nil
	})
}

// BranchCondition 根据意图选择下一个节点
func BranchCondition(ctx context.Context, state map[string]any) (string, error) {
	isSearchMode, ok := state["isSearchMode"].(bool)
	if !ok {
		return "", errors.New("isSearchMode not found in state")
	}
	if isSearchMode {
		return "retriever", nil
	}
	return "chatModePrompt", nil
}

// Retriever 对联系人索引做knn向量检索,把命中的档案文档拼进提示词上下文
func Retriever() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, state map[string]any) (map[string]any, error) {
		query, ok := state["query"].(string)
		if !ok {
			return nil, errors.New("query not found in state")
		}
		err := compose.ProcessState(ctx, func(ctx context.Context, s *State) error {
			embeddings, err := s.Embedder.Embed(ctx, []string{query})
			if err != nil {
				return err
			}
			embedding := embeddings[0]
			k := 5
			numCandidates := 100
			searchResp, err := s.TypedEsClient.Search().Index(s.IndexName).
				Request(&search.Request{
					Knn: []types.KnnSearch{
						{
							Field:         "embedding",
							QueryVector:   embedding,
							K:             &k,
							NumCandidates: &numCandidates,
						},
					},
				}).Do(ctx)
			if err != nil {
				return err
			}
			var builder strings.Builder
			builder.WriteString("参考联系人档案(JSON格式):\n\n")
			for i, hit := range searchResp.Hits.Hits {
				builder.WriteString(fmt.Sprintf("档案%d:\n", i+1))
				builder.WriteString(string(hit.Source_))
				builder.WriteString("\n\n")
			}
			state["referenceDocs"] = builder.String()
			return nil
		})
		if err != nil {
			return nil, err
		}
		return state, nil
	})
}
