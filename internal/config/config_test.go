package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FFEMONITOR_BASE_URL", "https://example.org")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://example.org", cfg.BaseURL)
	assert.Equal(t, DefaultEventURLTemplate, cfg.EventURLTemplate)
	assert.Equal(t, 5*time.Second, cfg.CheckInterval)
	assert.Equal(t, 600*time.Second, cfg.DelayFree)
	assert.Equal(t, 60*time.Second, cfg.DelayPremium)
	assert.Equal(t, 10*time.Second, cfg.DelayPro)
	assert.Equal(t, 20, cfg.RateLimitRPM)
}

func TestLoadBareEnvNames(t *testing.T) {
	t.Setenv("BASE_URL", "https://ffe.example")
	t.Setenv("CHECK_INTERVAL", "7")
	t.Setenv("DELAY_PRO", "15")
	t.Setenv("APP_ID", "push-app")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://ffe.example", cfg.BaseURL)
	assert.Equal(t, 7*time.Second, cfg.CheckInterval)
	assert.Equal(t, 15*time.Second, cfg.DelayPro)
	assert.Equal(t, "push-app", cfg.PushAppID)
}

func TestLoadMissingBaseURLFails(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
}

func TestPlanDelayFallsBackToFree(t *testing.T) {
	cfg := Config{DelayFree: 600 * time.Second, DelayPremium: 60 * time.Second, DelayPro: 10 * time.Second}

	assert.Equal(t, 10*time.Second, cfg.PlanDelay("pro"))
	assert.Equal(t, 60*time.Second, cfg.PlanDelay("premium"))
	assert.Equal(t, 600*time.Second, cfg.PlanDelay("free"))
	assert.Equal(t, 600*time.Second, cfg.PlanDelay("unknown"))
}

func TestEventURL(t *testing.T) {
	cfg := Config{BaseURL: "https://ffe.example", EventURLTemplate: DefaultEventURLTemplate}
	assert.Equal(t, "https://ffe.example/concours/123456", cfg.EventURL(123456))
}
