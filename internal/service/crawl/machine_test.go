package crawl

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/LouYuanbo1/socialagent/internal/config"
	"github.com/LouYuanbo1/socialagent/internal/faults"
	"github.com/LouYuanbo1/socialagent/internal/infra/browser"
	"github.com/LouYuanbo1/socialagent/internal/infra/secret"
	"github.com/LouYuanbo1/socialagent/internal/service/contact"
	"github.com/LouYuanbo1/socialagent/param"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Crawl.MaxPages = 20
	cfg.Crawl.MaxRecursion = 5
	cfg.Crawl.NavTimeoutSeconds = 1
	cfg.Crawl.ChallengeWaitSeconds = 1
	cfg.Network.BaseURL = "https://s.test"
	cfg.Network.LoginURL = "https://s.test/login"
	cfg.Network.CompanySearchURL = "https://s.test/search/companies?keywords=%s"
	cfg.Network.PeopleSearchURL = "https://s.test/search/people?companyId=%s&geoId=%s&title=%s&page=%d"
	cfg.Network.ProfileURL = "https://s.test/in/%s"
	cfg.Network.ActivityURL = "https://s.test/in/%s/recent-activity"
	cfg.Network.ReactionsURL = "https://s.test/in/%s/recent-activity/reactions"
	cfg.Network.AboutURL = "https://s.test/in/%s/about"
	return cfg
}

var pageParamRe = regexp.MustCompile(`page=(\d+)`)

// fakeDriver 回放搜索结果页:pages给出每页的档案链接,缺页返回空白,
// noResultsAt及之后的页返回无结果标记
type fakeDriver struct {
	mu          sync.Mutex
	navigations []string
	currentPage int
	pages       map[int][]string
	noResultsAt int
}

func (fd *fakeDriver) Navigate(ctx context.Context, url string) error {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	fd.navigations = append(fd.navigations, url)
	if m := pageParamRe.FindStringSubmatch(url); m != nil {
		fd.currentPage, _ = strconv.Atoi(m[1])
	}
	return nil
}

func (fd *fakeDriver) WaitForSelector(ctx context.Context, selectors []string, timeout time.Duration) (string, error) {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	if selectors[0] == selResultList {
		if fd.noResultsAt > 0 && fd.currentPage >= fd.noResultsAt {
			return selNoResults, nil
		}
		return selResultList, nil
	}
	// 登录等其他等待一律按第一个选择器命中(已持久化登录态)
	return selectors[0], nil
}

func (fd *fakeDriver) Click(ctx context.Context, selector string) error      { return nil }
func (fd *fakeDriver) Type(ctx context.Context, selector, text string) error { return nil }
func (fd *fakeDriver) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	return []byte("png"), nil
}

func (fd *fakeDriver) Evaluate(ctx context.Context, js string) (string, error) {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	if js == jsCollectProfileLinks {
		raw, _ := json.Marshal(fd.pages[fd.currentPage])
		return string(raw), nil
	}
	return "''", nil
}

func (fd *fakeDriver) CurrentURL(ctx context.Context) (string, error) { return "", nil }
func (fd *fakeDriver) IsConnected() bool                              { return true }
func (fd *fakeDriver) IsPageClosed() bool                             { return false }
func (fd *fakeDriver) Close()                                         {}

func (fd *fakeDriver) visitedLogin() bool {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	for _, url := range fd.navigations {
		if strings.Contains(url, "/login") {
			return true
		}
	}
	return false
}

type fakeCache struct {
	mu      sync.Mutex
	sets    map[string][]string
	deleted []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{sets: map[string][]string{}}
}

func (fc *fakeCache) Save(ctx context.Context, ref string, links []string) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.sets[ref] = append([]string(nil), links...)
	return nil
}

func (fc *fakeCache) Load(ctx context.Context, ref string) ([]string, error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	links, ok := fc.sets[ref]
	if !ok {
		return nil, faults.Newf(faults.Store, "链接集缓存不存在: %s", ref)
	}
	return links, nil
}

func (fc *fakeCache) Delete(ctx context.Context, ref string) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.deleted = append(fc.deleted, ref)
	delete(fc.sets, ref)
	return nil
}

type fakeUnsealer struct{}

func (fu *fakeUnsealer) Unseal(ciphertext string) (*secret.Credentials, error) {
	return &secret.Credentials{Username: "user", Password: "pass"}, nil
}

type fakeResolver struct {
	id  string
	err error
}

func (fr *fakeResolver) ResolveCompany(ctx context.Context, name string) (string, error) {
	return fr.id, fr.err
}

type fakeProcessor struct {
	mu     sync.Mutex
	links  []string
	resume int
	calls  int
	stats  *contact.BatchStats
	err    error
}

func (fp *fakeProcessor) ProcessAll(ctx context.Context, drv browser.Driver, links []string, resumeIndex int) (*contact.BatchStats, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	fp.calls++
	fp.links = append([]string(nil), links...)
	fp.resume = resumeIndex
	if fp.err != nil {
		return fp.stats, fp.err
	}
	if fp.stats == nil {
		return &contact.BatchStats{}, nil
	}
	return fp.stats, nil
}

func newMachine(cfg *config.Config, drv *fakeDriver, cache *fakeCache, proc *fakeProcessor) *Machine {
	factory := func(ctx context.Context) (browser.Driver, error) { return drv, nil }
	return InitMachine(cfg, factory, &fakeUnsealer{}, &fakeResolver{id: "12345"}, cache, proc, zap.NewNop())
}

func freshState() *param.JobState {
	state := param.NewJobState(&param.JobRequest{
		TargetCompany:         "Acme",
		TargetRole:            "engineer",
		CredentialsCiphertext: "sealed",
	})
	state.LinkCacheRef = "ref"
	return state
}

func profileLinks(prefix string, n int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, "https://s.test/in/"+prefix+strconv.Itoa(i))
	}
	return out
}

// 1-5页有结果,6-8页连续空白:落盘部分结果并回退到第5页治愈
func TestThreeBlankPagesTriggerHealing(t *testing.T) {
	drv := &fakeDriver{pages: map[int][]string{
		1: profileLinks("a", 2),
		2: profileLinks("b", 2),
		3: profileLinks("c", 2),
		4: profileLinks("d", 2),
		5: profileLinks("e", 2),
	}}
	cache := newFakeCache()
	proc := &fakeProcessor{}
	m := newMachine(testConfig(), drv, cache, proc)

	outcome, healState, err := m.Run(context.Background(), freshState())
	require.NoError(t, err)
	assert.Nil(t, outcome)
	require.NotNil(t, healState)

	assert.Equal(t, param.HealLinkCollection, healState.HealPhase)
	assert.Equal(t, "3 blank pages in a row", healState.HealReason)
	assert.Equal(t, 5, healState.ResumeIndex)
	assert.Equal(t, 1, healState.RecursionCount)
	assert.Equal(t, "12345", healState.ResolvedCompanyID)
	assert.True(t, healState.IsValid())

	assert.Len(t, cache.sets["ref"], 10)
	assert.Equal(t, 0, proc.calls)
}

// 无结果标记是正常结束,采到的链接交给批处理器
func TestEndOfResultsCompletesSweep(t *testing.T) {
	drv := &fakeDriver{
		pages: map[int][]string{
			1: profileLinks("a", 3),
			2: profileLinks("b", 3),
			3: profileLinks("c", 3),
		},
		noResultsAt: 4,
	}
	cache := newFakeCache()
	proc := &fakeProcessor{stats: &contact.BatchStats{Processed: 8, Errors: 1, Good: 2}}
	m := newMachine(testConfig(), drv, cache, proc)

	outcome, healState, err := m.Run(context.Background(), freshState())
	require.NoError(t, err)
	assert.Nil(t, healState)
	require.NotNil(t, outcome)

	assert.Equal(t, 9, outcome.LinkCount)
	assert.Equal(t, 8, outcome.ClassifiedProfiles)
	assert.InDelta(t, 8.0/9.0, outcome.SuccessRate, 0.001)

	assert.Len(t, proc.links, 9)
	assert.Equal(t, 0, proc.resume)
	assert.Len(t, cache.sets["ref"], 9)
}

// 全新任务先清掉同ref下的历史链接集
func TestFreshStartClearsCachedLinkSet(t *testing.T) {
	drv := &fakeDriver{noResultsAt: 1}
	cache := newFakeCache()
	cache.sets["ref"] = profileLinks("old", 4)
	proc := &fakeProcessor{}
	m := newMachine(testConfig(), drv, cache, proc)

	outcome, healState, err := m.Run(context.Background(), freshState())
	require.NoError(t, err)
	assert.Nil(t, healState)
	require.NotNil(t, outcome)
	assert.Equal(t, 0, outcome.LinkCount)
	assert.Equal(t, []string{"ref"}, cache.deleted)
}

// 采集阶段治愈:跳过登录,合并已落盘的部分结果,从回退页续采
func TestHealingResumesLinkCollection(t *testing.T) {
	drv := &fakeDriver{
		pages: map[int][]string{
			5: profileLinks("e", 2),
			6: profileLinks("f", 2),
		},
		noResultsAt: 7,
	}
	cache := newFakeCache()
	cache.sets["ref"] = profileLinks("a", 10)
	proc := &fakeProcessor{}

	state := freshState()
	state.ResolvedCompanyID = "12345"
	healState := state.Heal(param.HealLinkCollection, "3 blank pages in a row", 5)
	require.True(t, healState.IsValid())

	m := newMachine(testConfig(), drv, cache, proc)
	outcome, next, err := m.Run(context.Background(), healState)
	require.NoError(t, err)
	assert.Nil(t, next)
	require.NotNil(t, outcome)

	assert.False(t, drv.visitedLogin())
	assert.Equal(t, 14, outcome.LinkCount)
	assert.Equal(t, 0, proc.resume)
	// 从第5页开始翻,没有回到第1页
	for _, url := range drv.navigations {
		if m := pageParamRe.FindStringSubmatch(url); m != nil {
			page, _ := strconv.Atoi(m[1])
			assert.GreaterOrEqual(t, page, 5)
		}
	}
}

// 解析阶段治愈:链接集从缓存加载,批处理器从恢复位点开始
func TestHealingResumesProfileParsing(t *testing.T) {
	drv := &fakeDriver{}
	cache := newFakeCache()
	cache.sets["ref"] = profileLinks("a", 12)
	proc := &fakeProcessor{stats: &contact.BatchStats{Processed: 5}}

	state := freshState()
	state.ResolvedCompanyID = "12345"
	healState := state.Heal(param.HealProfileParsing, "Links failed", 7)

	m := newMachine(testConfig(), drv, cache, proc)
	outcome, next, err := m.Run(context.Background(), healState)
	require.NoError(t, err)
	assert.Nil(t, next)
	require.NotNil(t, outcome)

	assert.False(t, drv.visitedLogin())
	assert.Equal(t, 7, proc.resume)
	assert.Len(t, proc.links, 12)
	assert.Empty(t, cache.deleted)
}

// 批次全军覆没转为解析阶段治愈,链接集保留
func TestAllLinksFailedHealsIntoProfileParsing(t *testing.T) {
	drv := &fakeDriver{
		pages:       map[int][]string{1: profileLinks("a", 4)},
		noResultsAt: 2,
	}
	cache := newFakeCache()
	proc := &fakeProcessor{
		stats: &contact.BatchStats{Errors: 4},
		err:   contact.ErrAllLinksFailed,
	}
	m := newMachine(testConfig(), drv, cache, proc)

	outcome, healState, err := m.Run(context.Background(), freshState())
	require.NoError(t, err)
	assert.Nil(t, outcome)
	require.NotNil(t, healState)

	assert.Equal(t, param.HealProfileParsing, healState.HealPhase)
	assert.Equal(t, "Links failed", healState.HealReason)
	assert.Equal(t, 0, healState.ResumeIndex)
	assert.Equal(t, 1, healState.RecursionCount)
	assert.Len(t, cache.sets["ref"], 4)
}

func TestRunRejectsInvalidState(t *testing.T) {
	m := newMachine(testConfig(), &fakeDriver{}, newFakeCache(), &fakeProcessor{})
	state := freshState()
	state.ResumeIndex = 3 // HealNone下必须为0

	_, _, err := m.Run(context.Background(), state)
	require.Error(t, err)
	assert.True(t, faults.Is(err, faults.Terminal))
}

func TestRunWithHealingSucceeds(t *testing.T) {
	drv := &fakeDriver{
		pages:       map[int][]string{1: profileLinks("a", 3)},
		noResultsAt: 2,
	}
	proc := &fakeProcessor{stats: &contact.BatchStats{Processed: 3, Good: 1}}
	m := newMachine(testConfig(), drv, newFakeCache(), proc)

	outcome, err := m.RunWithHealing(context.Background(), &param.JobRequest{
		TargetCompany:         "Acme",
		CredentialsCiphertext: "sealed",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, outcome.ClassifiedProfiles)
}

// 治愈重启超过上限转为终态失败
func TestRunWithHealingStopsAtRecursionCap(t *testing.T) {
	cfg := testConfig()
	cfg.Crawl.MaxRecursion = 1
	// 所有页面都是空白,每一轮都只会治愈
	drv := &fakeDriver{pages: map[int][]string{}}
	m := newMachine(cfg, drv, newFakeCache(), &fakeProcessor{})

	_, err := m.RunWithHealing(context.Background(), &param.JobRequest{
		TargetCompany:         "Acme",
		CredentialsCiphertext: "sealed",
	})
	require.Error(t, err)
	assert.True(t, faults.Is(err, faults.Terminal))
}

func TestRunWithHealingRejectsInvalidRequest(t *testing.T) {
	m := newMachine(testConfig(), &fakeDriver{}, newFakeCache(), &fakeProcessor{})
	_, err := m.RunWithHealing(context.Background(), &param.JobRequest{TargetCompany: "Acme"})
	require.Error(t, err)
	assert.True(t, faults.Is(err, faults.Terminal))
}
