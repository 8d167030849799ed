package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigAppliesDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(`{}`))
	require.NoError(t, err)

	assert.Equal(t, 1800, cfg.Session.TimeoutSeconds)
	assert.Equal(t, 5, cfg.Session.MaxErrors)
	assert.Equal(t, 64, cfg.Queue.Buffer)
	assert.Equal(t, 100, cfg.Crawl.MaxPages)
	assert.Equal(t, 5, cfg.Crawl.MaxRecursion)
	assert.Equal(t, 900, cfg.Crawl.ChallengeWaitSeconds)
	assert.Equal(t, 30, cfg.Classify.StalenessDays)
	assert.Equal(t, 5, cfg.Classify.HistoryDepth)
	assert.Equal(t, 10.0, cfg.Classify.Threshold)
	assert.Equal(t, 5.0, cfg.Classify.Weights.Hour)
	assert.Equal(t, 3.0, cfg.Classify.Weights.Day)
	assert.Equal(t, 1.0, cfg.Classify.Weights.Week)
	assert.Equal(t, 0.25, cfg.Classify.Weights.Month)
}

func TestParseConfigKeepsExplicitValues(t *testing.T) {
	raw := `{
		"session": {"timeout_seconds": 600, "max_errors": 2},
		"crawl": {"max_recursion": 3},
		"classify": {"threshold": 7.5}
	}`
	cfg, err := ParseConfig([]byte(raw))
	require.NoError(t, err)

	assert.Equal(t, 600, cfg.Session.TimeoutSeconds)
	assert.Equal(t, 2, cfg.Session.MaxErrors)
	assert.Equal(t, 3, cfg.Crawl.MaxRecursion)
	assert.Equal(t, 7.5, cfg.Classify.Threshold)
}

func TestParseConfigNormalizesUserDataDirs(t *testing.T) {
	raw := `{
		"rod": {"user_data_dir": "./userdata/rod"},
		"chromedp": {"user_data_dir": "./userdata/chromedp"}
	}`
	cfg, err := ParseConfig([]byte(raw))
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(cfg.Rod.UserDataDir))
	assert.True(t, filepath.IsAbs(cfg.Chromedp.UserDataDir))
}

func TestParseConfigRejectsBadJSON(t *testing.T) {
	_, err := ParseConfig([]byte(`{`))
	require.Error(t, err)
}
