package main

import (
	"context"
	_ "embed"
	"flag"
	"log"

	"go.uber.org/zap"

	"github.com/LouYuanbo1/socialagent/internal/config"
	"github.com/LouYuanbo1/socialagent/internal/infra/blob"
	"github.com/LouYuanbo1/socialagent/internal/infra/browser"
	"github.com/LouYuanbo1/socialagent/internal/infra/collector"
	"github.com/LouYuanbo1/socialagent/internal/infra/embedding"
	"github.com/LouYuanbo1/socialagent/internal/infra/persistence/es"
	"github.com/LouYuanbo1/socialagent/internal/infra/secret"
	"github.com/LouYuanbo1/socialagent/internal/service/contact"
	"github.com/LouYuanbo1/socialagent/internal/service/crawl"
	"github.com/LouYuanbo1/socialagent/param"
)

//使用go:embed嵌入appconfig.json文件
//下方注释重要,不能删除
//实际使用时注意与文件名对应,仓库里保存的是样例配置,以实际为准

//go:embed appconfig/appconfig.json
var appConfig []byte

func main() {
	var (
		company     = flag.String("company", "", "目标公司名")
		role        = flag.String("role", "", "目标岗位关键词")
		location    = flag.String("location", "", "目标地点(可选)")
		credentials = flag.String("credentials", "", "登录凭据密文(base64)")
	)
	flag.Parse()

	appcfg, err := config.ParseConfig(appConfig)
	if err != nil {
		log.Fatalf("解析配置失败: %v", err)
	}
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer logger.Sync()

	req := &param.JobRequest{
		TargetCompany:         *company,
		TargetRole:            *role,
		TargetLocation:        *location,
		CredentialsCiphertext: *credentials,
	}
	if !req.IsValid() {
		log.Fatal("缺少必填参数: -company / -credentials")
	}

	ctx := context.Background()

	//运行前确保es服务启动完成
	store, err := es.InitContactStore(appcfg, logger)
	if err != nil {
		logger.Fatal("初始化联系人存储失败", zap.Error(err))
	}
	if err := store.EnsureIndices(ctx); err != nil {
		logger.Fatal("创建索引失败", zap.Error(err))
	}
	linkCache, err := es.InitLinkCache(appcfg, logger)
	if err != nil {
		logger.Fatal("初始化链接集缓存失败", zap.Error(err))
	}

	unsealer, err := secret.InitUnsealer(appcfg)
	if err != nil {
		logger.Fatal("初始化凭据解密失败", zap.Error(err))
	}
	resolver := collector.InitCollyResolver(appcfg, logger)
	blobStore := blob.InitHTTPStore(appcfg, logger)
	//运行前确保ollama服务启动完成,向量随档案一起入库供问答代理检索
	embedder, err := embedding.InitEmbedder(ctx, appcfg)
	if err != nil {
		logger.Fatal("初始化Embedder失败", zap.Error(err))
	}
	processor := contact.InitProcessor(appcfg, store, blobStore, embedder, logger)

	// 每次任务执行创建独立的rod实例,登录态通过user_data_dir跨实例持久化
	factory := func(ctx context.Context) (browser.Driver, error) {
		return browser.InitRodDriver(appcfg)
	}
	machine := crawl.InitMachine(appcfg, factory, unsealer, resolver, linkCache, processor, logger)

	outcome, err := machine.RunWithHealing(ctx, req)
	if err != nil {
		logger.Fatal("任务失败", zap.Error(err))
	}
	logger.Info("任务完成",
		zap.Int("classified_profiles", outcome.ClassifiedProfiles),
		zap.Int("link_count", outcome.LinkCount),
		zap.Float64("success_rate", outcome.SuccessRate))
}
