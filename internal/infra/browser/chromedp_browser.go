package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/LouYuanbo1/socialagent/internal/config"
	"github.com/LouYuanbo1/socialagent/internal/faults"
)

// chromedpDriver 备选驱动实现,context链的管理方式与rod实现不同:
// 生命周期由LifeTime超时context统一约束,Close时逐层cancel
type chromedpDriver struct {
	allocCtx      context.Context
	allocCtxFuc   context.CancelFunc
	pageCtx       context.Context
	pageCtxFuc    context.CancelFunc
	timeoutCtxFuc context.CancelFunc
}

func InitChromedpDriver(ctx context.Context, cfg *config.Config) Driver {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Chromedp.Headless),
		chromedp.Flag("disable-blink-features", cfg.Chromedp.DisableBlinkFeatures),
		chromedp.Flag("incognito", cfg.Chromedp.Incognito),
		chromedp.Flag("disable-dev-shm-usage", cfg.Chromedp.DisableDevShmUsage),
		chromedp.Flag("no-sandbox", cfg.Chromedp.NoSandbox),
		chromedp.UserDataDir(cfg.Chromedp.UserDataDir),
		chromedp.UserAgent(cfg.Chromedp.UserAgent),
	)
	timeoutCtx, cancelTimeout := context.WithTimeout(ctx, time.Duration(cfg.Chromedp.LifeTime)*time.Second)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(timeoutCtx, opts...)
	pageCtx, cancelPage := chromedp.NewContext(allocCtx)

	return &chromedpDriver{
		allocCtx:      allocCtx,
		allocCtxFuc:   cancelAlloc,
		pageCtx:       pageCtx,
		pageCtxFuc:    cancelPage,
		timeoutCtxFuc: cancelTimeout,
	}
}

func (cc *chromedpDriver) Navigate(ctx context.Context, url string) error {
	err := chromedp.Run(cc.pageCtx,
		network.Enable(),
		chromedp.Navigate(url),
	)
	if err != nil {
		return faults.Markf(faults.Browser, err, "导航失败: %s", url)
	}
	return nil
}

func (cc *chromedpDriver) WaitForSelector(ctx context.Context, selectors []string, timeout time.Duration) (string, error) {
	// 多个选择器合并成一条CSS查询,任一可见即返回
	joined := strings.Join(selectors, ", ")
	tctx, cancel := context.WithTimeout(cc.pageCtx, timeout)
	defer cancel()
	if err := chromedp.Run(tctx, chromedp.WaitVisible(joined, chromedp.ByQuery)); err != nil {
		return "", faults.Markf(faults.Browser, err, "等待选择器超时: %v", selectors)
	}
	for _, sel := range selectors {
		var found bool
		if err := chromedp.Run(cc.pageCtx,
			chromedp.Evaluate(fmt.Sprintf(`document.querySelector(%q) !== null`, sel), &found),
		); err == nil && found {
			return sel, nil
		}
	}
	return selectors[0], nil
}

func (cc *chromedpDriver) Click(ctx context.Context, selector string) error {
	if err := chromedp.Run(cc.pageCtx, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return faults.Markf(faults.Browser, err, "点击失败: %s", selector)
	}
	return nil
}

func (cc *chromedpDriver) Type(ctx context.Context, selector, text string) error {
	if err := chromedp.Run(cc.pageCtx, chromedp.SendKeys(selector, text, chromedp.ByQuery)); err != nil {
		return faults.Markf(faults.Browser, err, "输入失败: %s", selector)
	}
	return nil
}

func (cc *chromedpDriver) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	var buf []byte
	var action chromedp.Action
	if fullPage {
		action = chromedp.FullScreenshot(&buf, 90)
	} else {
		action = chromedp.CaptureScreenshot(&buf)
	}
	if err := chromedp.Run(cc.pageCtx, action); err != nil {
		return nil, faults.Mark(faults.Browser, err, "截图失败")
	}
	return buf, nil
}

func (cc *chromedpDriver) Evaluate(ctx context.Context, js string) (string, error) {
	var out string
	if err := chromedp.Run(cc.pageCtx, chromedp.Evaluate(js, &out)); err != nil {
		return "", faults.Mark(faults.Browser, err, "执行JS失败")
	}
	return out, nil
}

func (cc *chromedpDriver) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := chromedp.Run(cc.pageCtx, chromedp.Location(&url)); err != nil {
		return "", faults.Mark(faults.Browser, err, "获取页面URL失败")
	}
	return url, nil
}

func (cc *chromedpDriver) IsConnected() bool {
	return cc.pageCtx.Err() == nil
}

func (cc *chromedpDriver) IsPageClosed() bool {
	return cc.pageCtx.Err() != nil
}

func (cc *chromedpDriver) Close() {
	cc.pageCtxFuc()
	cc.allocCtxFuc()
	cc.timeoutCtxFuc()
}
