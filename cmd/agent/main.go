package main

import (
	"bufio"
	"context"
	_ "embed"
	"fmt"
	"log"
	"os"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/LouYuanbo1/socialagent/internal/config"
	"github.com/LouYuanbo1/socialagent/internal/domain/model"
	"github.com/LouYuanbo1/socialagent/internal/infra/embedding"
	"github.com/LouYuanbo1/socialagent/internal/infra/llm"
	"github.com/LouYuanbo1/socialagent/internal/infra/persistence/es"
	"github.com/LouYuanbo1/socialagent/internal/service/agent"
	"github.com/LouYuanbo1/socialagent/param"
)

//使用go:embed嵌入appconfig.json文件
//下方注释重要,不能删除
//实际使用时注意与文件名对应,仓库里保存的是样例配置,以实际为准

//go:embed appconfig/appconfig.json
var appConfig []byte

func main() {
	appcfg, err := config.ParseConfig(appConfig)
	if err != nil {
		log.Fatalf("解析配置失败: %v", err)
	}
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	//运行前确保es和ollama服务启动完成
	contacts, err := es.InitTypedEsClient[*model.ContactDoc](appcfg, logger)
	if err != nil {
		logger.Fatal("初始化Elasticsearch客户端失败", zap.Error(err))
	}
	embedder, err := embedding.InitEmbedder(ctx, appcfg)
	if err != nil {
		logger.Fatal("初始化Embedder失败", zap.Error(err))
	}
	chatModel, err := llm.InitLLM(ctx, appcfg)
	if err != nil {
		logger.Fatal("初始化LLM失败", zap.Error(err))
	}

	agentParam := &param.Agent{
		IndexName: "contacts",
		Prompt: map[param.PromptType]*prompt.DefaultChatTemplate{
			param.PromptSearchMode: prompt.FromMessages(schema.FString,
				schema.SystemMessage("你是联系人关系助理。根据下面检索到的联系人档案回答用户问题,档案里没有的信息不要编造。\n\n{referenceDocs}"),
				schema.UserMessage("{query}"),
			),
			param.PromptChatMode: prompt.FromMessages(schema.FString,
				schema.SystemMessage("你是联系人关系助理,简洁准确地回答用户问题。"),
				schema.UserMessage("{query}"),
			),
		},
	}

	svc, err := agent.InitService(ctx, chatModel, contacts, embedder, agentParam, logger)
	if err != nil {
		logger.Fatal("初始化问答代理失败", zap.Error(err))
	}

	//REPL: 以"查询模式"/"搜索模式"开头的输入走联系人检索增强,其余直接对话,输入exit退出
	fmt.Println("联系人问答代理已就绪,输入exit退出")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		query := scanner.Text()
		if query == "" {
			continue
		}
		if query == "exit" {
			break
		}
		if err := svc.Stream(ctx, query); err != nil {
			fmt.Printf("回答失败: %v\n", err)
		}
	}
}
