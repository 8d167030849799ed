package main

import (
	"bufio"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/LouYuanbo1/socialagent/internal/config"
	"github.com/LouYuanbo1/socialagent/internal/domain/model"
	"github.com/LouYuanbo1/socialagent/internal/faults"
	"github.com/LouYuanbo1/socialagent/internal/infra/browser"
	"github.com/LouYuanbo1/socialagent/internal/infra/persistence/es"
	"github.com/LouYuanbo1/socialagent/internal/service/queue"
	"github.com/LouYuanbo1/socialagent/internal/service/session"
	"github.com/LouYuanbo1/socialagent/param"
)

//使用go:embed嵌入appconfig.json文件
//下方注释重要,不能删除
//实际使用时注意与文件名对应,仓库里保存的是样例配置,以实际为准

//go:embed appconfig/appconfig.json
var appConfig []byte

// 交互动作用到的页面选择器
const (
	selProfileMain = `main`

	selMessageButton = `button.message-anywhere-button`
	selMessageInput  = `div.msg-form-contenteditable`
	selMessageSend   = `button.msg-form-send-button`

	selConnectButton = `button.connect-button`
	selConnectSend   = `button.send-invite-button`

	selPostBox    = `button.share-box-trigger`
	selPostEditor = `div.share-box-editor`
	selPostSubmit = `button.share-post-button`
)

// interactor 把交互请求翻译成页面动作,全部动作经由队列串行执行
type interactor struct {
	cfg     *config.Config
	store   es.ContactStore
	timeout time.Duration
}

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
	store, err := es.InitContactStore(appcfg, logger)
	if err != nil {
		logger.Fatal("初始化联系人存储失败", zap.Error(err))
	}
	if err := store.EnsureIndices(ctx); err != nil {
		logger.Fatal("创建索引失败", zap.Error(err))
	}

	// 交互动作共用一个长会话,用chromedp驱动,生命周期由LifeTime约束
	// 实例挂了或到期由Manager按需重建;会话归Manager所有,不挂在调用方ctx上
	factory := func(_ context.Context) (browser.Driver, error) {
		return browser.InitChromedpDriver(context.Background(), appcfg), nil
	}
	manager := session.InitManager(factory,
		time.Duration(appcfg.Session.TimeoutSeconds)*time.Second,
		appcfg.Session.MaxErrors,
		logger)
	defer manager.Cleanup()

	q := queue.InitQueue(appcfg.Queue.Buffer, logger)
	defer q.Close()

	it := &interactor{
		cfg:     appcfg,
		store:   store,
		timeout: time.Duration(appcfg.Crawl.NavTimeoutSeconds) * time.Second,
	}

	//从标准输入逐行读取交互请求(JSON),入队串行执行,输入exit退出
	fmt.Println(`每行一个请求,例如 {"kind":"send-message","target_profile_id":"jane-doe","payload":"你好"}`)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if line == "exit" {
			break
		}
		var req param.InteractionRequest
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			fmt.Printf("请求解析失败: %v\n", err)
			continue
		}
		if !req.IsValid() {
			fmt.Println("请求缺少必填字段")
			continue
		}

		result, err := q.Enqueue(ctx,
			queue.Metadata{UserID: req.UserID, Kind: req.Kind},
			func(opCtx context.Context) (queue.Result, error) {
				drv, err := manager.GetInstance(opCtx)
				if err != nil {
					return queue.Result{}, err
				}
				if err := it.perform(opCtx, drv, &req); err != nil {
					if rerr := manager.RecordError(opCtx, err); rerr != nil {
						return queue.Result{}, rerr
					}
					return queue.Result{}, err
				}
				return queue.Result{Status: "done", ID: req.TargetProfileID}, nil
			})
		if err != nil {
			fmt.Printf("执行失败: %v\n", err)
			continue
		}
		fmt.Printf("执行完成: %s %s\n", result.Status, result.ID)
	}
}

func (it *interactor) perform(ctx context.Context, drv browser.Driver, req *param.InteractionRequest) error {
	switch req.Kind {
	case param.InteractionSendMessage:
		return it.sendMessage(ctx, drv, req)
	case param.InteractionAddConnection:
		return it.addConnection(ctx, drv, req)
	case param.InteractionCreatePost:
		return it.createPost(ctx, drv, req)
	default:
		return faults.Newf(faults.Terminal, "未知交互类型: %s", req.Kind)
	}
}

func (it *interactor) sendMessage(ctx context.Context, drv browser.Driver, req *param.InteractionRequest) error {
	if err := it.openProfile(ctx, drv, req.TargetProfileID); err != nil {
		return err
	}
	if err := drv.Click(ctx, selMessageButton); err != nil {
		return faults.Mark(faults.Browser, err, "打开私信窗口失败")
	}
	if _, err := drv.WaitForSelector(ctx, []string{selMessageInput}, it.timeout); err != nil {
		return faults.Mark(faults.Browser, err, "私信输入框未出现")
	}
	if err := drv.Type(ctx, selMessageInput, req.Payload); err != nil {
		return faults.Mark(faults.Browser, err, "填写私信失败")
	}
	if err := drv.Click(ctx, selMessageSend); err != nil {
		return faults.Mark(faults.Browser, err, "发送私信失败")
	}
	return nil
}

func (it *interactor) addConnection(ctx context.Context, drv browser.Driver, req *param.InteractionRequest) error {
	// 已有关系边就不再重复发起
	exists, err := it.store.CheckEdgeExists(ctx, req.TargetProfileID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := it.openProfile(ctx, drv, req.TargetProfileID); err != nil {
		return err
	}
	if err := drv.Click(ctx, selConnectButton); err != nil {
		return faults.Mark(faults.Browser, err, "发起建联失败")
	}
	if _, err := drv.WaitForSelector(ctx, []string{selConnectSend}, it.timeout); err != nil {
		return faults.Mark(faults.Browser, err, "建联确认框未出现")
	}
	if err := drv.Click(ctx, selConnectSend); err != nil {
		return faults.Mark(faults.Browser, err, "确认建联失败")
	}
	return it.store.RecordEdge(ctx, &model.EdgeDoc{
		ProfileID: req.TargetProfileID,
		OwnerID:   req.UserID,
		Kind:      string(req.Kind),
	})
}

func (it *interactor) createPost(ctx context.Context, drv browser.Driver, req *param.InteractionRequest) error {
	if err := drv.Navigate(ctx, it.cfg.Network.BaseURL); err != nil {
		return faults.Mark(faults.Browser, err, "打开首页失败")
	}
	if err := drv.Click(ctx, selPostBox); err != nil {
		return faults.Mark(faults.Browser, err, "打开发帖框失败")
	}
	if _, err := drv.WaitForSelector(ctx, []string{selPostEditor}, it.timeout); err != nil {
		return faults.Mark(faults.Browser, err, "发帖编辑器未出现")
	}
	if err := drv.Type(ctx, selPostEditor, req.Payload); err != nil {
		return faults.Mark(faults.Browser, err, "填写帖子失败")
	}
	if err := drv.Click(ctx, selPostSubmit); err != nil {
		return faults.Mark(faults.Browser, err, "发布帖子失败")
	}
	return nil
}

func (it *interactor) openProfile(ctx context.Context, drv browser.Driver, profileID string) error {
	url := fmt.Sprintf(it.cfg.Network.ProfileURL, profileID)
	if err := drv.Navigate(ctx, url); err != nil {
		return faults.Markf(faults.Browser, err, "打开档案页失败: %s", profileID)
	}
	if _, err := drv.WaitForSelector(ctx, []string{selProfileMain}, it.timeout); err != nil {
		return faults.Markf(faults.Profile, err, "档案页无法加载: %s", profileID)
	}
	return nil
}
