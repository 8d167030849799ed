package config

import "net/http/cookiejar"

type Config struct {
	Elasticsearch struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Address  string `json:"address"`
	} `json:"elasticsearch"`

	Rod struct {
		UserDataDir          string `json:"user_data_dir"`
		Headless             bool   `json:"headless"`
		DisableBlinkFeatures string `json:"disable_blink_features"`
		Incognito            bool   `json:"incognito"`
		DisableDevShmUsage   bool   `json:"disable_dev_shm_usage"`
		NoSandbox            bool   `json:"no_sandbox"`
		UserAgent            string `json:"user_agent"`
		Leakless             bool   `json:"leakless"`
		Bin                  string `json:"bin"`
	} `json:"rod"`

	Chromedp struct {
		LifeTime             int    `json:"life_time"`
		UserDataDir          string `json:"user_data_dir"`
		Headless             bool   `json:"headless"`
		DisableBlinkFeatures string `json:"disable_blink_features"`
		Incognito            bool   `json:"incognito"`
		DisableDevShmUsage   bool   `json:"disable_dev_shm_usage"`
		NoSandbox            bool   `json:"no_sandbox"`
		UserAgent            string `json:"user_agent"`
	} `json:"chromedp"`

	Colly struct {
		AllowedDomains   []string           `json:"allowed_domains"`
		MaxDepth         int                `json:"max_depth"`
		UserAgent        string             `json:"user_agent"`
		IgnoreRobotsTxt  bool               `json:"ignore_robots_txt"`
		Async            bool               `json:"async"`
		Delay            int                `json:"delay"`
		RandomDelay      int                `json:"random_delay"`
		EnableCookieJar  bool               `json:"enable_cookie_jar"`
		CookieJarOptions *cookiejar.Options `json:"cookie_jar_options"`
	} `json:"colly"`

	// Network 目标站点的入口地址,URL模板中的占位符由状态机填充
	Network struct {
		BaseURL            string `json:"base_url"`
		LoginURL           string `json:"login_url"`
		CompanySearchURL   string `json:"company_search_url"` // %s=公司名
		PeopleSearchURL    string `json:"people_search_url"`  // %s=companyId %s=geoId %s=岗位 %d=页码
		ProfileURL         string `json:"profile_url"`        // %s=profileId
		ActivityURL        string `json:"activity_url"`       // %s=profileId
		ReactionsURL       string `json:"reactions_url"`      // %s=profileId
		AboutURL           string `json:"about_url"`          // %s=profileId
		PublicDirectoryURL string `json:"public_directory_url"` // %s=公司名,colly快速通道用
	} `json:"network"`

	Session struct {
		TimeoutSeconds int `json:"timeout_seconds"`
		MaxErrors      int `json:"max_errors"`
	} `json:"session"`

	Queue struct {
		Buffer int `json:"buffer"`
	} `json:"queue"`

	Crawl struct {
		MaxPages             int `json:"max_pages"`
		MaxRecursion         int `json:"max_recursion"`
		NavTimeoutSeconds    int `json:"nav_timeout_seconds"`
		ChallengeWaitSeconds int `json:"challenge_wait_seconds"`
		StandardSleepSeconds int `json:"standard_sleep_seconds"`
		RandomDelaySeconds   int `json:"random_delay_seconds"`
	} `json:"crawl"`

	Classify struct {
		StalenessDays int     `json:"staleness_days"`
		HistoryDepth  int     `json:"history_depth"`
		Threshold     float64 `json:"threshold"`
		Weights       struct {
			Hour  float64 `json:"hour"`
			Day   float64 `json:"day"`
			Week  float64 `json:"week"`
			Month float64 `json:"month"`
		} `json:"weights"`
	} `json:"classify"`

	Blob struct {
		Endpoint  string `json:"endpoint"`
		AuthToken string `json:"auth_token"`
	} `json:"blob"`

	Secret struct {
		KeyHex string `json:"key_hex"`
	} `json:"secret"`

	Embedder struct {
		Host      string `json:"host"`
		Port      int    `json:"port"`
		Model     string `json:"model"`
		BatchSize int    `json:"batch_size"`
	} `json:"embedder"`
	LLM struct {
		Host  string `json:"host"`
		Port  int    `json:"port"`
		Model string `json:"model"`
	} `json:"llm"`
}
