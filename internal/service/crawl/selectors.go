package crawl

import (
	"fmt"
	neturl "net/url"
	"regexp"

	"github.com/LouYuanbo1/socialagent/internal/config"
	"github.com/LouYuanbo1/socialagent/param"
)

// 目标站点的页面选择器,站点改版时只需要动这一处
const (
	selLoginForm   = `form.login-form`
	selLoginUser   = `input[name="session_key"]`
	selLoginPass   = `input[name="session_password"]`
	selLoginSubmit = `button[type="submit"]`
	selLoggedIn    = `nav.global-nav`
	selChallenge   = `div.challenge-dialog`

	selResultList = `ul.search-results-list`
	selNoResults  = `div.search-no-results`

	selGeoFilter     = `button.filter-geo`
	selGeoInput      = `input.filter-geo-input`
	selGeoSuggestion = `li.filter-geo-suggestion`
)

const (
	// 结果页上的档案链接
	jsCollectProfileLinks = `JSON.stringify(Array.from(document.querySelectorAll('a[href*="/in/"]')).map(a => a.getAttribute('href')))`
	// 公司搜索页的第一个公司链接
	jsFirstCompanyHref = `(() => { const a = document.querySelector('a[href*="/company/"]'); return a ? a.getAttribute('href') : ''; })()`
)

var (
	companyIDRe = regexp.MustCompile(`/company/(\d+)`)
	geoIDRe     = regexp.MustCompile(`geoId=(\d+)`)
)

func companySearchURL(cfg *config.Config, company string) string {
	return fmt.Sprintf(cfg.Network.CompanySearchURL, neturl.QueryEscape(company))
}

func peopleSearchURL(cfg *config.Config, state *param.JobState, page int) string {
	return fmt.Sprintf(cfg.Network.PeopleSearchURL,
		state.ResolvedCompanyID,
		state.ResolvedGeoID,
		neturl.QueryEscape(state.TargetRole),
		page)
}
