package contact

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/LouYuanbo1/socialagent/internal/domain/model"
	"github.com/LouYuanbo1/socialagent/internal/faults"
	"github.com/LouYuanbo1/socialagent/internal/infra/browser"
)

const selPageMain = `main`

// captureAndUpload 采集固定截图集并上传,返回对象URL
// 截图共用同一个页面必须串行;上传是纯IO,放到errgroup里并发
func (p *processor) captureAndUpload(ctx context.Context, drv browser.Driver, profileID, status string) ([]string, error) {
	pages := []struct {
		name     string
		url      string
		fullPage bool
	}{
		{"reactions", fmt.Sprintf(p.cfg.Network.ReactionsURL, profileID), false},
		{"profile", fmt.Sprintf(p.cfg.Network.ProfileURL, profileID), true},
		{"activity", fmt.Sprintf(p.cfg.Network.ActivityURL, profileID), false},
	}
	if status != model.StatusPossible {
		pages = append(pages, struct {
			name     string
			url      string
			fullPage bool
		}{"about", fmt.Sprintf(p.cfg.Network.AboutURL, profileID), true})
	}

	type shot struct {
		key  string
		data []byte
	}
	timeout := time.Duration(p.cfg.Crawl.NavTimeoutSeconds) * time.Second
	shots := make([]shot, 0, len(pages))
	for _, pg := range pages {
		if err := drv.Navigate(ctx, pg.url); err != nil {
			return nil, faults.Markf(faults.Browser, err, "打开截图页失败: %s/%s", profileID, pg.name)
		}
		// 尽力等待主内容,等不到也照截
		_, _ = drv.WaitForSelector(ctx, []string{selPageMain}, timeout)
		data, err := drv.Screenshot(ctx, pg.fullPage)
		if err != nil {
			return nil, faults.Markf(faults.Profile, err, "截图失败: %s/%s", profileID, pg.name)
		}
		shots = append(shots, shot{
			key:  fmt.Sprintf("screenshots/%s/%s.png", profileID, pg.name),
			data: data,
		})
	}

	urls := make([]string, len(shots))
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range shots {
		g.Go(func() error {
			// 上传抖动按策略退避重试
			return faults.Retry(gctx, faults.TransientPolicy, func(ctx context.Context) error {
				url, err := p.blob.Upload(ctx, s.data, s.key)
				if err != nil {
					return err
				}
				urls[i] = url
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}
