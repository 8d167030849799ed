package config

import (
	"encoding/json"
	"path/filepath"
)

func ParseConfig(byteConfig []byte) (*Config, error) {
	var cfg Config
	err := json.Unmarshal(byteConfig, &cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Chromedp.UserDataDir != "" {
		absPath, err := filepath.Abs(cfg.Chromedp.UserDataDir)
		if err != nil {
			return nil, err
		}
		cfg.Chromedp.UserDataDir = absPath
	}
	if cfg.Rod.UserDataDir != "" {
		absPath, err := filepath.Abs(cfg.Rod.UserDataDir)
		if err != nil {
			return nil, err
		}
		cfg.Rod.UserDataDir = absPath
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// applyDefaults 对未配置的关键参数填入默认值,保证零配置也能跑通核心流程
func applyDefaults(cfg *Config) {
	if cfg.Session.TimeoutSeconds <= 0 {
		cfg.Session.TimeoutSeconds = 1800
	}
	if cfg.Session.MaxErrors <= 0 {
		cfg.Session.MaxErrors = 5
	}
	if cfg.Queue.Buffer <= 0 {
		cfg.Queue.Buffer = 64
	}
	if cfg.Crawl.MaxPages <= 0 {
		cfg.Crawl.MaxPages = 100
	}
	if cfg.Crawl.MaxRecursion <= 0 {
		cfg.Crawl.MaxRecursion = 5
	}
	if cfg.Crawl.NavTimeoutSeconds <= 0 {
		cfg.Crawl.NavTimeoutSeconds = 30
	}
	if cfg.Crawl.ChallengeWaitSeconds <= 0 {
		// 安全验证(2FA/验证码)可能需要人工介入,刻意放宽等待时间
		cfg.Crawl.ChallengeWaitSeconds = 900
	}
	if cfg.Crawl.StandardSleepSeconds <= 0 {
		cfg.Crawl.StandardSleepSeconds = 2
	}
	if cfg.Crawl.RandomDelaySeconds <= 0 {
		cfg.Crawl.RandomDelaySeconds = 3
	}
	if cfg.Classify.StalenessDays <= 0 {
		cfg.Classify.StalenessDays = 30
	}
	if cfg.Classify.HistoryDepth <= 0 {
		cfg.Classify.HistoryDepth = 5
	}
	if cfg.Classify.Threshold <= 0 {
		cfg.Classify.Threshold = 10
	}
	if cfg.Classify.Weights.Hour <= 0 {
		cfg.Classify.Weights.Hour = 5
	}
	if cfg.Classify.Weights.Day <= 0 {
		cfg.Classify.Weights.Day = 3
	}
	if cfg.Classify.Weights.Week <= 0 {
		cfg.Classify.Weights.Week = 1
	}
	if cfg.Classify.Weights.Month <= 0 {
		cfg.Classify.Weights.Month = 0.25
	}
}
