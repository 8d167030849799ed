package browser

import (
	"context"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/LouYuanbo1/socialagent/internal/config"
	"github.com/LouYuanbo1/socialagent/internal/faults"
)

type rodDriver struct {
	browser *rod.Browser
	page    *rod.Page
}

// InitRodDriver 启动浏览器并打开一个stealth页面
// user_data_dir持久化登录态,治愈重启后免于重复登录
func InitRodDriver(cfg *config.Config) (Driver, error) {
	l := launcher.New().
		Headless(cfg.Rod.Headless).
		Leakless(cfg.Rod.Leakless)
	if cfg.Rod.Bin != "" {
		l = l.Bin(cfg.Rod.Bin)
	}
	if cfg.Rod.UserDataDir != "" {
		l = l.UserDataDir(cfg.Rod.UserDataDir)
	}
	if cfg.Rod.DisableBlinkFeatures != "" {
		l = l.Set("disable-blink-features", cfg.Rod.DisableBlinkFeatures)
	}
	if cfg.Rod.Incognito {
		l = l.Set("incognito")
	}
	if cfg.Rod.DisableDevShmUsage {
		l = l.Set("disable-dev-shm-usage")
	}
	if cfg.Rod.NoSandbox {
		l = l.Set("no-sandbox")
	}
	if cfg.Rod.UserAgent != "" {
		l = l.Set("user-agent", cfg.Rod.UserAgent)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, faults.Mark(faults.Browser, err, "启动浏览器失败")
	}
	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, faults.Mark(faults.Browser, err, "连接浏览器失败")
	}
	page, err := stealth.Page(b)
	if err != nil {
		_ = b.Close()
		return nil, faults.Mark(faults.Browser, err, "创建stealth页面失败")
	}
	return &rodDriver{browser: b, page: page}, nil
}

func (rd *rodDriver) Navigate(ctx context.Context, url string) error {
	page := rd.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return faults.Markf(faults.Browser, err, "导航失败: %s", url)
	}
	if err := page.WaitLoad(); err != nil {
		return faults.Markf(faults.Browser, err, "等待页面加载失败: %s", url)
	}
	return nil
}

func (rd *rodDriver) WaitForSelector(ctx context.Context, selectors []string, timeout time.Duration) (string, error) {
	page := rd.page.Context(ctx).Timeout(timeout)
	race := page.Race()
	var matched string
	for _, sel := range selectors {
		s := sel
		race = race.Element(s).Handle(func(e *rod.Element) error {
			matched = s
			return nil
		})
	}
	if _, err := race.Do(); err != nil {
		return "", faults.Markf(faults.Browser, err, "等待选择器超时: %v", selectors)
	}
	return matched, nil
}

func (rd *rodDriver) Click(ctx context.Context, selector string) error {
	el, err := rd.page.Context(ctx).Element(selector)
	if err != nil {
		return faults.Markf(faults.Browser, err, "查找元素失败: %s", selector)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return faults.Markf(faults.Browser, err, "点击失败: %s", selector)
	}
	return nil
}

func (rd *rodDriver) Type(ctx context.Context, selector, text string) error {
	el, err := rd.page.Context(ctx).Element(selector)
	if err != nil {
		return faults.Markf(faults.Browser, err, "查找元素失败: %s", selector)
	}
	if err := el.Input(text); err != nil {
		return faults.Markf(faults.Browser, err, "输入失败: %s", selector)
	}
	return nil
}

func (rd *rodDriver) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	data, err := rd.page.Context(ctx).Screenshot(fullPage, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, faults.Mark(faults.Browser, err, "截图失败")
	}
	return data, nil
}

func (rd *rodDriver) Evaluate(ctx context.Context, js string) (string, error) {
	res, err := rd.page.Context(ctx).Eval(js)
	if err != nil {
		return "", faults.Mark(faults.Browser, err, "执行JS失败")
	}
	return res.Value.Str(), nil
}

func (rd *rodDriver) CurrentURL(ctx context.Context) (string, error) {
	info, err := rd.page.Context(ctx).Info()
	if err != nil {
		return "", faults.Mark(faults.Browser, err, "获取页面信息失败")
	}
	return info.URL, nil
}

func (rd *rodDriver) IsConnected() bool {
	_, err := proto.BrowserGetVersion{}.Call(rd.browser)
	return err == nil
}

func (rd *rodDriver) IsPageClosed() bool {
	_, err := rd.page.Info()
	return err != nil
}

func (rd *rodDriver) Close() {
	_ = rd.browser.Close()
}
