package crawl

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/LouYuanbo1/socialagent/internal/config"
	"github.com/LouYuanbo1/socialagent/internal/faults"
	"github.com/LouYuanbo1/socialagent/internal/infra/browser"
	"github.com/LouYuanbo1/socialagent/internal/infra/collector"
	"github.com/LouYuanbo1/socialagent/internal/infra/persistence/es"
	"github.com/LouYuanbo1/socialagent/internal/infra/secret"
	"github.com/LouYuanbo1/socialagent/internal/service/contact"
	"github.com/LouYuanbo1/socialagent/param"
)

// 连续空白页达到该值判定为风控拦截,触发治愈重启
const blankPageLimit = 3

// DriverFactory 每次任务执行创建独立的浏览器实例,和交互队列共享的会话无关
type DriverFactory func(ctx context.Context) (browser.Driver, error)

type Outcome struct {
	ClassifiedProfiles int     `json:"classified_profiles"`
	LinkCount          int     `json:"link_count"`
	SuccessRate        float64 `json:"success_rate"`
}

// Machine 搜索任务状态机: login → resolve-targets → link-collection → profile-parsing → done
// 可恢复的中途失败不在原地重试,而是返回治愈状态由上层重启
type Machine struct {
	cfg       *config.Config
	factory   DriverFactory
	unsealer  secret.Unsealer
	resolver  collector.CompanyResolver
	links     es.LinkCache
	processor contact.Processor
	log       *zap.Logger
}

func InitMachine(
	cfg *config.Config,
	factory DriverFactory,
	unsealer secret.Unsealer,
	resolver collector.CompanyResolver,
	links es.LinkCache,
	processor contact.Processor,
	log *zap.Logger,
) *Machine {
	return &Machine{
		cfg:       cfg,
		factory:   factory,
		unsealer:  unsealer,
		resolver:  resolver,
		links:     links,
		processor: processor,
		log:       log.Named("crawl"),
	}
}

// Run 执行一次任务。三种互斥的返回:
// 结果非nil表示完成;治愈状态非nil表示需要重启续跑;否则err为终态失败
func (m *Machine) Run(ctx context.Context, state *param.JobState) (*Outcome, *param.JobState, error) {
	if !state.IsValid() {
		return nil, nil, faults.New(faults.Terminal, "任务状态非法")
	}
	drv, err := m.factory(ctx)
	if err != nil {
		return nil, nil, faults.Mark(faults.Browser, err, "创建任务浏览器失败")
	}
	defer drv.Close()

	if state.HealPhase == param.HealNone {
		// 全新任务清掉同ref下的历史链接集;治愈重启则必须保留
		if err := m.links.Delete(ctx, state.LinkCacheRef); err != nil {
			m.log.Debug("清理历史链接集失败", zap.Error(err))
		}
		if err := m.login(ctx, drv, state); err != nil {
			return nil, nil, err
		}
	} else {
		// 治愈重启跳过登录,认证态依赖user_data_dir持久化
		m.log.Info("治愈重启",
			zap.String("phase", string(state.HealPhase)),
			zap.String("reason", state.HealReason),
			zap.Int("resume_index", state.ResumeIndex),
			zap.Int("recursion", state.RecursionCount))
	}

	if err := m.resolveTargets(ctx, drv, state); err != nil {
		return nil, nil, err
	}

	var links []string
	if state.HealPhase == param.HealProfileParsing {
		links, err = m.links.Load(ctx, state.LinkCacheRef)
		if err != nil {
			return nil, nil, err
		}
	} else {
		var healState *param.JobState
		links, healState, err = m.collectLinks(ctx, drv, state)
		if err != nil {
			return nil, nil, err
		}
		if healState != nil {
			return nil, healState, nil
		}
	}

	start := 0
	if state.HealPhase == param.HealProfileParsing {
		start = state.ResumeIndex
	}
	stats, err := m.processor.ProcessAll(ctx, drv, links, start)
	if err != nil {
		if faults.Is(err, contact.ErrAllLinksFailed) {
			// 链接集已落盘,重启后直接进入解析阶段
			return nil, state.Heal(param.HealProfileParsing, "Links failed", start), nil
		}
		return nil, nil, err
	}

	attempted := stats.Processed + stats.Errors
	rate := 1.0
	if attempted > 0 {
		rate = float64(stats.Processed) / float64(attempted)
	}
	return &Outcome{
		ClassifiedProfiles: stats.Processed,
		LinkCount:          len(links),
		SuccessRate:        rate,
	}, nil, nil
}

// login 即时解密凭据走登录表单;明文只存在于本函数栈上
// 登录失败不治愈,直接终态上报
func (m *Machine) login(ctx context.Context, drv browser.Driver, state *param.JobState) error {
	creds, err := m.unsealer.Unseal(state.CredentialsRef)
	if err != nil {
		return err
	}
	if err := drv.Navigate(ctx, m.cfg.Network.LoginURL); err != nil {
		return faults.Mark(faults.Browser, err, "打开登录页失败")
	}

	timeout := time.Duration(m.cfg.Crawl.NavTimeoutSeconds) * time.Second
	sel, err := drv.WaitForSelector(ctx, []string{selLoggedIn, selLoginForm}, timeout)
	if err != nil {
		return faults.Mark(faults.Auth, err, "登录页无法识别")
	}
	if sel == selLoggedIn {
		m.log.Info("检测到持久化登录态,跳过登录表单")
		return nil
	}

	if err := drv.Type(ctx, selLoginUser, creds.Username); err != nil {
		return faults.Mark(faults.Auth, err, "填写账号失败")
	}
	if err := drv.Type(ctx, selLoginPass, creds.Password); err != nil {
		return faults.Mark(faults.Auth, err, "填写密码失败")
	}
	if err := drv.Click(ctx, selLoginSubmit); err != nil {
		return faults.Mark(faults.Auth, err, "提交登录失败")
	}

	sel, err = drv.WaitForSelector(ctx, []string{selLoggedIn, selChallenge}, timeout)
	if err != nil {
		return faults.Mark(faults.Auth, err, "登录后页面无法识别")
	}
	if sel == selChallenge {
		// 安全质询只能等人工在浏览器里完成,等待窗口刻意放得很长
		wait := time.Duration(m.cfg.Crawl.ChallengeWaitSeconds) * time.Second
		m.log.Warn("遇到安全质询,等待人工处理", zap.Duration("wait", wait))
		if _, err := drv.WaitForSelector(ctx, []string{selLoggedIn}, wait); err != nil {
			return faults.New(faults.Auth, "安全质询未在时限内通过")
		}
	}
	m.log.Info("登录完成")
	return nil
}

// resolveTargets 公司名/地点解析为站点内部ID;治愈状态里已有的ID直接复用
func (m *Machine) resolveTargets(ctx context.Context, drv browser.Driver, state *param.JobState) error {
	if state.ResolvedCompanyID == "" {
		id, err := m.resolver.ResolveCompany(ctx, state.TargetCompany)
		if err != nil {
			m.log.Warn("公开目录解析失败,回退到站内搜索", zap.Error(err))
			id, err = m.resolveCompanyViaSearch(ctx, drv, state.TargetCompany)
			if err != nil {
				return err
			}
		}
		state.ResolvedCompanyID = id
		m.log.Info("公司解析完成",
			zap.String("company", state.TargetCompany),
			zap.String("company_id", id))
	}
	if state.ResolvedGeoID == "" && state.TargetLocation != "" {
		m.resolveGeo(ctx, drv, state)
	}
	return nil
}

func (m *Machine) resolveCompanyViaSearch(ctx context.Context, drv browser.Driver, company string) (string, error) {
	if err := drv.Navigate(ctx, companySearchURL(m.cfg, company)); err != nil {
		return "", faults.Mark(faults.Browser, err, "打开公司搜索页失败")
	}
	timeout := time.Duration(m.cfg.Crawl.NavTimeoutSeconds) * time.Second
	if _, err := drv.WaitForSelector(ctx, []string{selResultList, selNoResults}, timeout); err != nil {
		return "", faults.Markf(faults.Terminal, err, "公司搜索页无法加载: %s", company)
	}
	href, err := drv.Evaluate(ctx, jsFirstCompanyHref)
	if err != nil {
		return "", faults.Mark(faults.Browser, err, "提取公司链接失败")
	}
	if mt := companyIDRe.FindStringSubmatch(href); mt != nil {
		return mt[1], nil
	}
	// 两条解析通道都没命中,这个公司名无法继续
	return "", faults.Newf(faults.Terminal, "无法解析公司: %s", company)
}

// resolveGeo 通过搜索页的地点筛选联想框解析geoId,失败不致命,任务退化为不带地点过滤
func (m *Machine) resolveGeo(ctx context.Context, drv browser.Driver, state *param.JobState) {
	fail := func(step string, err error) {
		m.log.Warn("地点解析失败,不带地点继续",
			zap.String("location", state.TargetLocation),
			zap.String("step", step),
			zap.Error(err))
	}
	if err := drv.Navigate(ctx, peopleSearchURL(m.cfg, state, 1)); err != nil {
		fail("navigate", err)
		return
	}
	timeout := time.Duration(m.cfg.Crawl.NavTimeoutSeconds) * time.Second
	if _, err := drv.WaitForSelector(ctx, []string{selGeoFilter}, timeout); err != nil {
		fail("wait-filter", err)
		return
	}
	if err := drv.Click(ctx, selGeoFilter); err != nil {
		fail("open-filter", err)
		return
	}
	if err := drv.Type(ctx, selGeoInput, state.TargetLocation); err != nil {
		fail("type", err)
		return
	}
	if _, err := drv.WaitForSelector(ctx, []string{selGeoSuggestion}, timeout); err != nil {
		fail("wait-suggestion", err)
		return
	}
	if err := drv.Click(ctx, selGeoSuggestion); err != nil {
		fail("pick-suggestion", err)
		return
	}
	m.sleepBetween(ctx)
	cur, err := drv.CurrentURL(ctx)
	if err != nil {
		fail("current-url", err)
		return
	}
	mt := geoIDRe.FindStringSubmatch(cur)
	if mt == nil {
		fail("parse-url", faults.Newf(faults.Transient, "URL中没有geoId: %s", cur))
		return
	}
	state.ResolvedGeoID = mt[1]
	m.log.Info("地点解析完成",
		zap.String("location", state.TargetLocation),
		zap.String("geo_id", mt[1]))
}

// collectLinks 从ResumeIndex页开始顺序翻页采集档案链接
// 连续blankPageLimit个空白页视为风控,落盘部分结果并返回治愈状态
func (m *Machine) collectLinks(ctx context.Context, drv browser.Driver, state *param.JobState) ([]string, *param.JobState, error) {
	startPage := 1
	seen := make(map[string]struct{})
	var links []string
	if state.HealPhase == param.HealLinkCollection {
		if state.ResumeIndex > 1 {
			startPage = state.ResumeIndex
		}
		// 续采时合并上一轮落盘的部分结果
		if cached, err := m.links.Load(ctx, state.LinkCacheRef); err == nil {
			for _, link := range cached {
				if _, ok := seen[link]; ok {
					continue
				}
				seen[link] = struct{}{}
				links = append(links, link)
			}
		}
	}

	blanks := 0
	for page := startPage; page <= m.cfg.Crawl.MaxPages; page++ {
		pageLinks, endOfResults, err := m.collectPage(ctx, drv, state, page)
		if err != nil {
			return nil, nil, err
		}
		if endOfResults {
			m.log.Info("到达结果末尾", zap.Int("page", page))
			break
		}
		if len(pageLinks) == 0 {
			blanks++
			m.log.Warn("空白结果页", zap.Int("page", page), zap.Int("blanks", blanks))
			if blanks >= blankPageLimit {
				if err := m.links.Save(ctx, state.LinkCacheRef, links); err != nil {
					return nil, nil, err
				}
				// 回退到最后一个有结果的页继续
				return nil, state.Heal(param.HealLinkCollection, "3 blank pages in a row", page-blankPageLimit), nil
			}
		} else {
			blanks = 0
			for _, link := range pageLinks {
				if _, ok := seen[link]; ok {
					continue
				}
				seen[link] = struct{}{}
				links = append(links, link)
			}
		}
		m.sleepBetween(ctx)
	}

	if err := m.links.Save(ctx, state.LinkCacheRef, links); err != nil {
		return nil, nil, err
	}
	m.log.Info("链接采集完成", zap.Int("count", len(links)))
	return links, nil, nil
}

// collectPage 返回该页的规范化档案链接;渲染不出结果列表按空白页计,不算错误
func (m *Machine) collectPage(ctx context.Context, drv browser.Driver, state *param.JobState, page int) ([]string, bool, error) {
	if err := drv.Navigate(ctx, peopleSearchURL(m.cfg, state, page)); err != nil {
		return nil, false, faults.Markf(faults.Browser, err, "打开结果页失败: %d", page)
	}
	timeout := time.Duration(m.cfg.Crawl.NavTimeoutSeconds) * time.Second
	sel, err := drv.WaitForSelector(ctx, []string{selResultList, selNoResults}, timeout)
	if err != nil {
		return nil, false, nil
	}
	if sel == selNoResults {
		return nil, true, nil
	}

	raw, err := drv.Evaluate(ctx, jsCollectProfileLinks)
	if err != nil {
		return nil, false, faults.Markf(faults.Browser, err, "提取档案链接失败: %d", page)
	}
	var hrefs []string
	if err := json.Unmarshal([]byte(raw), &hrefs); err != nil {
		return nil, false, faults.Markf(faults.Browser, err, "档案链接解析失败: %d", page)
	}
	var links []string
	for _, href := range hrefs {
		if _, ok := contact.ProfileIDFromLink(href); ok {
			links = append(links, href)
		}
	}
	return links, false, nil
}

func (m *Machine) sleepBetween(ctx context.Context) {
	d := time.Duration(m.cfg.Crawl.StandardSleepSeconds) * time.Second
	if j := m.cfg.Crawl.RandomDelaySeconds; j > 0 {
		d += rand.N(time.Duration(j) * time.Second)
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
