package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("CMS_API_BASE_URL", "https://cms.example.com/api/v1/")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092,")
	t.Setenv("CONSENT_CONTINUE_AFTER", "not-a-duration")

	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "https://cms.example.com/api/v1", cfg.Backend.BaseURL)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 365, cfg.Consent.DurationDays)
	assert.Equal(t, "en", cfg.Consent.Language)
	assert.Equal(t, 5*time.Second, cfg.Consent.ContinueAfter)
	assert.Equal(t, 100000, cfg.Consent.ListLimit)
	assert.Empty(t, cfg.Redis.URL)
	assert.Equal(t, "cms-portal", cfg.Admin.Audience)
	assert.Equal(t, 24*time.Hour, cfg.Translate.CacheTTL)
	assert.False(t, cfg.RateLimit.Disabled)
	assert.Equal(t, 5*time.Minute, cfg.RateLimit.SweepInterval)
}

func TestFromEnvRejectsNonPositiveSweepInterval(t *testing.T) {
	for _, v := range []string{"0s", "-1m"} {
		t.Setenv("RATE_LIMIT_SWEEP_INTERVAL", v)
		assert.Equal(t, 5*time.Minute, FromEnv().RateLimit.SweepInterval, v)
	}

	t.Setenv("RATE_LIMIT_SWEEP_INTERVAL", "30s")
	assert.Equal(t, 30*time.Second, FromEnv().RateLimit.SweepInterval)
}
