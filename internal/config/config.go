package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration derived from environment variables.
type Config struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	RedisAddr    string
	PostgresDSN  string
	ServiceName  string
	// ClickHouse stores synced ad insights. Empty disables insights storage.
	ClickHouseDSN string
	// Advertising platform API
	PlatformBaseURL     string
	PlatformAPIVersion  string
	PlatformAccessToken string
	PlatformCallTimeout time.Duration
	// PlatformPageOwner is whose pages are listed when no page is configured.
	PlatformPageOwner string
	// Per ad account throttling of platform calls
	PlatformRateLimitEnabled    bool
	PlatformRateLimitCapacity   int
	PlatformRateLimitRefillRate int
	// Deployment behaviour
	DeployConcurrency         int
	DefaultPublisherPlatforms []string
	DefaultAdStatus           string
	LockTTL                   time.Duration
	// Insights polling
	InsightsSyncInterval time.Duration
	InsightsLookbackDays int
	// Database connection pooling configuration
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration
	// Tracing configuration
	TracingEnabled    bool
	TempoEndpoint     string
	TracingSampleRate float64
}

// Load parses environment variables and returns a Config populated with
// defaults when variables are absent.
func Load() Config {
	cfg := Config{}

	cfg.Port = getenv("PORT", "8787")
	cfg.ReadTimeout = envDuration("READ_TIMEOUT", 5*time.Second)
	// deploy requests fan out to the platform, so writes get a generous budget
	cfg.WriteTimeout = envDuration("WRITE_TIMEOUT", 5*time.Minute)
	cfg.RedisAddr = getenv("REDIS_ADDR", "")
	cfg.PostgresDSN = getenv("POSTGRES_DSN", "postgres://postgres@127.0.0.1:5432/postgres?sslmode=disable")
	cfg.ServiceName = getenv("SERVICE_NAME", "metaforge")
	cfg.ClickHouseDSN = getenv("CLICKHOUSE_DSN", "")

	cfg.PlatformBaseURL = getenv("PLATFORM_BASE_URL", "https://graph.facebook.com")
	cfg.PlatformAPIVersion = getenv("PLATFORM_API_VERSION", "v19.0")
	cfg.PlatformAccessToken = getenv("PLATFORM_ACCESS_TOKEN", "")
	cfg.PlatformCallTimeout = envDuration("PLATFORM_CALL_TIMEOUT", 30*time.Second)
	cfg.PlatformPageOwner = getenv("PLATFORM_PAGE_OWNER", "me")
	cfg.PlatformRateLimitEnabled = envBool("PLATFORM_RATE_LIMIT_ENABLED", true)
	cfg.PlatformRateLimitCapacity = envInt("PLATFORM_RATE_LIMIT_CAPACITY", 20)
	cfg.PlatformRateLimitRefillRate = envInt("PLATFORM_RATE_LIMIT_REFILL_RATE", 5)

	cfg.DeployConcurrency = envInt("DEPLOY_CONCURRENCY", 1)
	cfg.DefaultPublisherPlatforms = envList("DEFAULT_PUBLISHER_PLATFORMS", []string{"facebook", "instagram"})
	cfg.DefaultAdStatus = getenv("DEFAULT_AD_STATUS", "PAUSED")
	cfg.LockTTL = envDuration("LOCK_TTL", 2*time.Minute)

	// 0 disables the background insights sync
	cfg.InsightsSyncInterval = envDuration("INSIGHTS_SYNC_INTERVAL", 0)
	cfg.InsightsLookbackDays = envInt("INSIGHTS_LOOKBACK_DAYS", 7)

	// Database connection pooling configuration
	cfg.DBMaxOpenConns = envInt("DB_MAX_OPEN_CONNS", 25)
	cfg.DBMaxIdleConns = envInt("DB_MAX_IDLE_CONNS", 5)
	cfg.DBConnMaxLifetime = envDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	cfg.DBConnMaxIdleTime = envDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute)

	// Tracing configuration
	cfg.TracingEnabled = envBool("TRACING_ENABLED", false)
	cfg.TempoEndpoint = getenv("TEMPO_ENDPOINT", "tempo:4317")
	cfg.TracingSampleRate = envFloat("TRACING_SAMPLE_RATE", 1.0)

	return cfg
}

// getenv returns the value of the environment variable if set, otherwise def.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envDuration parses an environment variable into a time.Duration.
// The value can be a duration string (e.g. "5s") or a number of seconds.
// If the variable is unset or invalid, def is returned.
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}

// envBool parses a boolean environment variable. Accepted values are those
// supported by strconv.ParseBool. When unset or invalid, def is returned.
func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return def
}

// envInt parses an integer environment variable. When unset or invalid, def is returned.
func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil {
		return i
	}
	return def
}

// envFloat parses a float64 environment variable. When unset or invalid, def is returned.
func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return def
}

// envList parses a comma separated environment variable, dropping blank entries.
func envList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
