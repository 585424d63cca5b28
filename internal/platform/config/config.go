package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	Admin         AdminConfig
	Backend       BackendConfig
	Redis         RedisConfig
	Database      DatabaseConfig
	Kafka         KafkaConfig
	Consent       ConsentConfig
	Translate     TranslateConfig
	Cookie        CookieConfig
	RateLimit     RateLimitConfig
}

// AdminConfig describes the identity provider tokens the back office accepts.
type AdminConfig struct {
	Issuer   string
	Audience string
}

// BackendConfig points at the consent-management REST API (system of record).
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

// RedisConfig configures durable client storage. An empty URL selects the
// in-memory store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig configures the Postgres audit store. Empty DSN disables it.
type DatabaseConfig struct {
	DSN string
}

// KafkaConfig configures the audit event stream. No brokers disables it.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// ConsentConfig holds the values the citizen flow sends on initiation.
type ConsentConfig struct {
	DataFiduciaryID string
	DurationDays    int
	Language        string
	ContactEmail    string
	ContactPhone    string
	RedirectURL     string
	ContinueAfter   time.Duration
	ListLimit       int
}

// TranslateConfig configures the best-effort notice translation endpoint.
type TranslateConfig struct {
	URL       string
	Timeout   time.Duration
	CacheSize int
	CacheTTL  time.Duration
}

// CookieConfig controls the device cookie that scopes client storage.
type CookieConfig struct {
	Secure bool
	MaxAge time.Duration
}

// RateLimitConfig throttles the write routes. SweepInterval only applies to
// the in-memory store.
type RateLimitConfig struct {
	Disabled      bool
	SweepInterval time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:          envString("CMS_PORTAL_ADDR", ":8080"),
		JWTSigningKey: jwtSigningKey,
		Admin: AdminConfig{
			Issuer:   envString("ADMIN_TOKEN_ISSUER", "cms-identity"),
			Audience: envString("ADMIN_TOKEN_AUDIENCE", "cms-portal"),
		},
		Backend: BackendConfig{
			BaseURL: strings.TrimRight(envString("CMS_API_BASE_URL", "http://localhost:3001/api/v1"), "/"),
			Timeout: envDuration("CMS_API_TIMEOUT", 15*time.Second),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Database: DatabaseConfig{
			DSN: os.Getenv("DATABASE_URL"),
		},
		Kafka: KafkaConfig{
			Brokers: envList("KAFKA_BROKERS"),
			Topic:   envString("KAFKA_AUDIT_TOPIC", "cms.consent.audit"),
		},
		Consent: ConsentConfig{
			DataFiduciaryID: envString("CONSENT_DATA_FIDUCIARY_ID", "99d8e106-9ed6-4698-8db0-71c0aa91ab24"),
			DurationDays:    envInt("CONSENT_DURATION_DAYS", 365),
			Language:        envString("CONSENT_LANGUAGE", "en"),
			ContactEmail:    os.Getenv("CONSENT_CONTACT_EMAIL"),
			ContactPhone:    os.Getenv("CONSENT_CONTACT_PHONE"),
			RedirectURL:     envString("CONSENT_REDIRECT_URL", "http://localhost:8080/consent/start"),
			ContinueAfter:   envDuration("CONSENT_CONTINUE_AFTER", 5*time.Second),
			ListLimit:       envInt("CONSENT_LIST_LIMIT", 100000),
		},
		Translate: TranslateConfig{
			URL:       os.Getenv("TRANSLATE_URL"),
			Timeout:   envDuration("TRANSLATE_TIMEOUT", 4*time.Second),
			CacheSize: envInt("TRANSLATE_CACHE_SIZE", 4096),
			CacheTTL:  envDuration("TRANSLATE_CACHE_TTL", 24*time.Hour),
		},
		Cookie: CookieConfig{
			Secure: os.Getenv("COOKIE_SECURE") == "true",
			MaxAge: envDuration("DEVICE_COOKIE_MAX_AGE", 5*365*24*time.Hour),
		},
		RateLimit: RateLimitConfig{
			Disabled:      os.Getenv("RATE_LIMIT_DISABLED") == "true",
			SweepInterval: envPositiveDuration("RATE_LIMIT_SWEEP_INTERVAL", 5*time.Minute),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envPositiveDuration is envDuration for values that must be above zero, such
// as ticker periods.
func envPositiveDuration(key string, fallback time.Duration) time.Duration {
	if d := envDuration(key, fallback); d > 0 {
		return d
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
