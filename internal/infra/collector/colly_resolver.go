package collector

import (
	"context"
	"fmt"
	"net/http/cookiejar"
	neturl "net/url"
	"regexp"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/LouYuanbo1/socialagent/internal/config"
	"github.com/LouYuanbo1/socialagent/internal/faults"
)

// CompanyResolver 公司名到公司ID的解析
type CompanyResolver interface {
	ResolveCompany(ctx context.Context, name string) (string, error)
}

var companyIDRe = regexp.MustCompile(`/company/(\d+)`)

// collyResolver 走公开公司目录页的快速通道,不依赖登录态
// 解析失败不致命,状态机会退回浏览器驱动的搜索流程
type collyResolver struct {
	colly        *colly.Collector
	directoryURL string
	log          *zap.Logger
}

func InitCollyResolver(cfg *config.Config, log *zap.Logger) CompanyResolver {
	var opts []colly.CollectorOption
	opts = append(opts,
		colly.MaxDepth(cfg.Colly.MaxDepth),
		colly.Async(cfg.Colly.Async),
		colly.UserAgent(cfg.Colly.UserAgent),
		colly.AllowedDomains(cfg.Colly.AllowedDomains...),
	)
	if cfg.Colly.IgnoreRobotsTxt {
		opts = append(opts, colly.IgnoreRobotsTxt())
	}
	c := colly.NewCollector(opts...)
	c.Limit(&colly.LimitRule{
		Delay:       time.Duration(cfg.Colly.Delay) * time.Second,
		RandomDelay: time.Duration(cfg.Colly.RandomDelay) * time.Second,
	})
	if cfg.Colly.EnableCookieJar {
		jar, err := cookiejar.New(cfg.Colly.CookieJarOptions)
		if err != nil {
			panic(err)
		}
		c.SetCookieJar(jar)
	}
	return &collyResolver{
		colly:        c,
		directoryURL: cfg.Network.PublicDirectoryURL,
		log:          log.Named("collector"),
	}
}

func (cr *collyResolver) ResolveCompany(ctx context.Context, name string) (string, error) {
	if cr.directoryURL == "" {
		return "", faults.New(faults.Transient, "未配置公开目录地址")
	}
	clone := cr.colly.Clone()

	var companyID string
	clone.OnHTML(`a[href*="/company/"]`, func(e *colly.HTMLElement) {
		if companyID != "" {
			return
		}
		if m := companyIDRe.FindStringSubmatch(e.Attr("href")); m != nil {
			companyID = m[1]
		}
	})

	url := fmt.Sprintf(cr.directoryURL, neturl.QueryEscape(name))
	cr.log.Info("公开目录解析公司", zap.String("company", name), zap.String("url", url))
	if err := clone.Visit(url); err != nil {
		return "", faults.Markf(faults.Transient, err, "访问公开目录失败: %s", url)
	}
	clone.Wait()

	if companyID == "" {
		return "", faults.Newf(faults.Transient, "公开目录未命中公司: %s", name)
	}
	return companyID, nil
}
