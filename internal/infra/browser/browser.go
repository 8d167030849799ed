package browser

import (
	"context"
	"time"
)

// Driver 浏览器驱动能力面,核心编排层只依赖这一层接口
// Evaluate约定: js必须是表达式(复杂逻辑用IIFE),返回值必须是字符串,
// 结构化数据统一JSON.stringify后由调用方解析
type Driver interface {
	Navigate(ctx context.Context, url string) error
	WaitForSelector(ctx context.Context, selectors []string, timeout time.Duration) (string, error)
	Click(ctx context.Context, selector string) error
	Type(ctx context.Context, selector, text string) error
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)
	Evaluate(ctx context.Context, js string) (string, error)
	CurrentURL(ctx context.Context) (string, error)
	IsConnected() bool
	IsPageClosed() bool
	Close()
}
