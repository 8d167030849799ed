package agent

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/elastic/go-elasticsearch/v9"
	"go.uber.org/zap"

	"github.com/LouYuanbo1/socialagent/internal/domain/model"
	"github.com/LouYuanbo1/socialagent/internal/infra/embedding"
	"github.com/LouYuanbo1/socialagent/internal/infra/llm"
	"github.com/LouYuanbo1/socialagent/internal/infra/persistence/es"
	"github.com/LouYuanbo1/socialagent/param"
)

// State 流程图的全局状态,检索节点从这里拿索引名/客户端/嵌入器
type State struct {
	IndexName     string
	TypedEsClient *elasticsearch.TypedClient
	Embedder      embedding.Embedder
}

// Service 联系人问答代理:对采集入库的联系人档案做RAG问答
type Service interface {
	Stream(ctx context.Context, query string) error
	Invoke(ctx context.Context, query string) error
}

type service struct {
	graph compose.Runnable[map[string]any, map[string]any]
	log   *zap.Logger
}

func InitService(
	ctx context.Context,
	chatModel llm.LLM,
	contacts es.TypedEsClient[*model.ContactDoc],
	embedder embedding.Embedder,
	agentParam *param.Agent,
	log *zap.Logger,
) (Service, error) {
	graph, err := initGraph(ctx, chatModel, contacts, embedder, agentParam)
	if err != nil {
		return nil, fmt.Errorf("创建流程图失败: %w", err)
	}
	return &service{graph: graph, log: log.Named("agent")}, nil
}

// initGraph 组装流程图: intentDetection → (retriever → searchModePrompt | chatModePrompt) → llm
func initGraph(
	ctx context.Context,
	chatModel llm.LLM,
	contacts es.TypedEsClient[*model.ContactDoc],
	embedder embedding.Embedder,
	agentParam *param.Agent,
) (compose.Runnable[map[string]any, map[string]any], error) {
	genState := func(ctx context.Context) *State {
		return &State{
			IndexName:     agentParam.IndexName,
			TypedEsClient: contacts.GetClient(),
			Embedder:      embedder,
		}
	}

	graph := compose.NewGraph[map[string]any, map[string]any](compose.WithGenLocalState(genState))
	if err := graph.AddLambdaNode("intentDetection", IntentDetection()); err != nil {
		return nil, err
	}
	if err := graph.AddLambdaNode("retriever", Retriever()); err != nil {
		return nil, err
	}
	if err := graph.AddChatTemplateNode("searchModePrompt", agentParam.Prompt[param.PromptSearchMode]); err != nil {
		return nil, err
	}
	if err := graph.AddChatTemplateNode("chatModePrompt", agentParam.Prompt[param.PromptChatMode]); err != nil {
		return nil, err
	}
	if err := graph.AddChatModelNode("llm", chatModel.Model(), compose.WithOutputKey("finalResponse")); err != nil {
		return nil, err
	}

	if err := graph.AddEdge(compose.START, "intentDetection"); err != nil {
		return nil, err
	}
	if err := graph.AddBranch("intentDetection", compose.NewGraphBranch(BranchCondition, map[string]bool{
		"retriever":      true,
		"chatModePrompt": true,
	})); err != nil {
		return nil, err
	}
	if err := graph.AddEdge("retriever", "searchModePrompt"); err != nil {
		return nil, err
	}
	if err := graph.AddEdge("searchModePrompt", "llm"); err != nil {
		return nil, err
	}
	if err := graph.AddEdge("chatModePrompt", "llm"); err != nil {
		return nil, err
	}
	if err := graph.AddEdge("llm", compose.END); err != nil {
		return nil, err
	}

	return graph.Compile(ctx)
}

func (s *service) Invoke(ctx context.Context, query string) error {
	result, err := s.graph.Invoke(ctx, map[string]any{"query": query})
	if err != nil {
		s.log.Error("执行流程图失败", zap.Error(err))
		return err
	}
	if finalResponse, ok := result["finalResponse"].(*schema.Message); ok {
		fmt.Println(finalResponse.Content)
		return nil
	}
	fmt.Println("抱歉，我无法理解您的请求。")
	return nil
}

func (s *service) Stream(ctx context.Context, query string) error {
	result, err := s.graph.Stream(ctx, map[string]any{"query": query})
	if err != nil {
		s.log.Error("执行流程图失败", zap.Error(err))
		return err
	}
	for {
		chunk, err := result.Recv()
		if errors.Is(err, io.EOF) {
			fmt.Printf("\n\n")
			return nil
		}
		if err != nil {
			s.log.Error("接收流式结果失败", zap.Error(err))
			return err
		}
		if msg, ok := chunk["finalResponse"].(*schema.Message); ok {
			fmt.Print(msg.Content)
		}
	}
}
