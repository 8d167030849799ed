package llm

import (
	"context"
	"strconv"

	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino/components/model"

	"github.com/LouYuanbo1/socialagent/internal/config"
)

type LLM interface {
	Model() model.BaseChatModel
}

type ollamaLLM struct {
	chatModel *ollama.ChatModel
}

// InitLLM 初始化本地ollama聊天模型
func InitLLM(ctx context.Context, cfg *config.Config) (LLM, error) {
	chatModel, err := ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
		Model:   cfg.LLM.Model,
		BaseURL: cfg.LLM.Host + ":" + strconv.Itoa(cfg.LLM.Port),
	})
	if err != nil {
		return nil, err
	}
	return &ollamaLLM{chatModel: chatModel}, nil
}

func (ol *ollamaLLM) Model() model.BaseChatModel {
	return ol.chatModel
}
