package contact

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/LouYuanbo1/socialagent/internal/config"
	"github.com/LouYuanbo1/socialagent/internal/faults"
	"github.com/LouYuanbo1/socialagent/internal/infra/browser"
)

const (
	selActivityFeed       = `div.activity-feed`
	selProfileUnavailable = `div.profile-unavailable, section.not-found`

	// 动态页上可见的时间标记,形如 "3d" / "2 weeks" / "1mo"
	jsVisibleTimeMarkers = `JSON.stringify(Array.from(document.querySelectorAll('span.activity-time, time')).map(e => e.textContent.trim()))`
	jsScrollDown         = `(() => { window.scrollBy(0, window.innerHeight * 2); return 'ok'; })()`
)

var recencyRe = regexp.MustCompile(`(?i)\b(\d+)\s*(h|hour|hours|d|day|days|w|week|weeks|mo|month|months)\b`)

// classifier 按最近活跃度给档案打分:时间标记越新权重越高
type classifier struct {
	cfg *config.Config
	log *zap.Logger
}

// Score 打开档案的动态页,逐屏采样可见时间标记并累计权重,
// 得分达到阈值立即提前返回,最多滚动history_depth屏
func (c *classifier) Score(ctx context.Context, drv browser.Driver, profileID string) (float64, error) {
	url := fmt.Sprintf(c.cfg.Network.ActivityURL, profileID)
	if err := drv.Navigate(ctx, url); err != nil {
		return 0, faults.Markf(faults.Browser, err, "打开动态页失败: %s", profileID)
	}

	// 删号/私密/不存在都是单档案问题,不能拖垮整个批次
	timeout := time.Duration(c.cfg.Crawl.NavTimeoutSeconds) * time.Second
	sel, err := drv.WaitForSelector(ctx, []string{selActivityFeed, selProfileUnavailable}, timeout)
	if err != nil {
		return 0, faults.Markf(faults.Profile, err, "动态页无法加载: %s", profileID)
	}
	if sel == selProfileUnavailable {
		return 0, faults.Newf(faults.Profile, "档案不可用: %s", profileID)
	}

	seen := make(map[string]struct{})
	var score float64
	for i := 0; i < c.cfg.Classify.HistoryDepth; i++ {
		raw, err := drv.Evaluate(ctx, jsVisibleTimeMarkers)
		if err != nil {
			return 0, faults.Markf(faults.Browser, err, "采样时间标记失败: %s", profileID)
		}
		var markers []string
		if err := json.Unmarshal([]byte(raw), &markers); err != nil {
			return 0, faults.Markf(faults.Browser, err, "时间标记解析失败: %s", profileID)
		}
		for _, marker := range markers {
			if _, ok := seen[marker]; ok {
				continue
			}
			seen[marker] = struct{}{}
			score += c.weightOf(marker)
		}
		if score >= c.cfg.Classify.Threshold {
			c.log.Debug("得分达到阈值,提前结束采样",
				zap.String("profile_id", profileID),
				zap.Float64("score", score),
				zap.Int("iteration", i+1))
			break
		}
		if i < c.cfg.Classify.HistoryDepth-1 {
			if _, err := drv.Evaluate(ctx, jsScrollDown); err != nil {
				return 0, faults.Markf(faults.Browser, err, "滚动动态页失败: %s", profileID)
			}
			select {
			case <-time.After(time.Duration(c.cfg.Crawl.StandardSleepSeconds) * time.Second):
			case <-ctx.Done():
				return 0, faults.Mark(faults.Browser, ctx.Err(), "采样被取消")
			}
		}
	}
	return score, nil
}

func (c *classifier) weightOf(marker string) float64 {
	m := recencyRe.FindStringSubmatch(marker)
	if m == nil {
		return 0
	}
	unit := strings.ToLower(m[2])
	// mo必须先于h/d/w判断,避免month被m前缀误判
	switch {
	case strings.HasPrefix(unit, "mo"):
		return c.cfg.Classify.Weights.Month
	case strings.HasPrefix(unit, "h"):
		return c.cfg.Classify.Weights.Hour
	case strings.HasPrefix(unit, "d"):
		return c.cfg.Classify.Weights.Day
	case strings.HasPrefix(unit, "w"):
		return c.cfg.Classify.Weights.Week
	default:
		return 0
	}
}
