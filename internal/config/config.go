package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"

	StatsNone     = "none"
	StatsHTTP     = "http"
	StatsPostgres = "postgres"

	ViewsLocal = "local"
	ViewsStats = "stats"
)

type Config struct {
	AppEnv      string
	ServiceName string

	HTTPAddr     string
	StoreBackend string
	DatabaseURL  string

	JWTSecret string
	JWTIssuer string

	// RabbitMQ / outbox relay
	RabbitURL      string
	RabbitExchange string
	OutboxEnabled  bool

	// Redis & Caching
	RedisURL        string
	CacheTTLDetails time.Duration

	// Rate Limiting
	RLEnabled bool
	RLLimit   int
	RLWindow  time.Duration

	// Lifecycle & admission rules
	OwnerLeadTime        time.Duration
	AdminLeadTime        time.Duration
	AllowCancelConfirmed bool
	AdmissionMaxRetries  int

	// Stats collector
	StatsBackend     string
	StatsURL         string
	StatsDatabaseURL string
	StatsApp         string
	StatsQueueSize   int
	StatsTimeout     time.Duration
	StatsUnique      bool
	ViewsSource      string

	LogLevel  string
	LogFormat string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.AppEnv = getEnv("APP_ENV", "dev")
	cfg.ServiceName = getEnv("SERVICE_NAME", "ewm-service")
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")
	cfg.StoreBackend = getEnv("STORE_BACKEND", BackendPostgres)
	cfg.DatabaseURL = getEnv("DATABASE_URL", "")

	cfg.JWTSecret = getEnv("JWT_SECRET", "")
	cfg.JWTIssuer = getEnv("JWT_ISSUER", "")

	cfg.RabbitURL = getEnv("RABBIT_URL", "")
	cfg.RabbitExchange = getEnv("RABBIT_EXCHANGE", "ewm.events")
	cfg.OutboxEnabled = getBool("OUTBOX_ENABLED", true)

	cfg.RedisURL = getEnv("REDIS_URL", "")
	cfg.CacheTTLDetails = getDuration("CACHE_TTL_DETAILS", 5*time.Minute)

	// 100 reqs / 1 min
	cfg.RLEnabled = getBool("RL_ENABLED", true)
	cfg.RLLimit = getInt("RL_IP_LIMIT", 100)
	cfg.RLWindow = getDuration("RL_IP_WINDOW", time.Minute)

	cfg.OwnerLeadTime = getDuration("OWNER_LEAD_TIME", 2*time.Hour)
	cfg.AdminLeadTime = getDuration("ADMIN_LEAD_TIME", time.Hour)
	cfg.AllowCancelConfirmed = getBool("ALLOW_CANCEL_CONFIRMED", false)
	cfg.AdmissionMaxRetries = getInt("ADMISSION_MAX_RETRIES", 3)

	cfg.StatsBackend = getEnv("STATS_BACKEND", StatsNone)
	cfg.StatsURL = getEnv("STATS_URL", "http://localhost:9090")
	cfg.StatsDatabaseURL = getEnv("STATS_DATABASE_URL", "")
	cfg.StatsApp = getEnv("STATS_APP", "ewm-main-service")
	cfg.StatsQueueSize = getInt("STATS_QUEUE_SIZE", 256)
	cfg.StatsTimeout = getDuration("STATS_TIMEOUT", 2*time.Second)
	cfg.StatsUnique = getBool("STATS_UNIQUE_VIEWS", true)
	cfg.ViewsSource = getEnv("VIEWS_SOURCE", ViewsLocal)

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFormat = getEnv("LOG_FORMAT", "console")

	cfg.HTTPReadTimeout = getDuration("HTTP_READ_TIMEOUT", 10*time.Second)
	cfg.HTTPWriteTimeout = getDuration("HTTP_WRITE_TIMEOUT", 20*time.Second)
	cfg.HTTPIdleTimeout = getDuration("HTTP_IDLE_TIMEOUT", 60*time.Second)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("missing DATABASE_URL")
		}
	case BackendMemory:
		if c.AppEnv != "dev" {
			return fmt.Errorf("STORE_BACKEND=memory is only allowed when APP_ENV=dev")
		}
	default:
		return fmt.Errorf("invalid STORE_BACKEND %q", c.StoreBackend)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("missing JWT_SECRET")
	}

	// Rabbit: optional in dev, required elsewhere when the outbox relay runs
	if c.AppEnv != "dev" && c.OutboxEnabled && c.RabbitURL == "" {
		return fmt.Errorf("missing RABBIT_URL (required when APP_ENV != dev)")
	}

	switch c.StatsBackend {
	case StatsNone, StatsHTTP:
	case StatsPostgres:
		if c.StatsDatabaseURL == "" {
			return fmt.Errorf("missing STATS_DATABASE_URL (required when STATS_BACKEND=postgres)")
		}
	default:
		return fmt.Errorf("invalid STATS_BACKEND %q", c.StatsBackend)
	}
	if c.ViewsSource != ViewsLocal && c.ViewsSource != ViewsStats {
		return fmt.Errorf("invalid VIEWS_SOURCE %q", c.ViewsSource)
	}
	if c.ViewsSource == ViewsStats && c.StatsBackend == StatsNone {
		return fmt.Errorf("VIEWS_SOURCE=stats requires a STATS_BACKEND")
	}
	if c.AdmissionMaxRetries < 0 {
		return fmt.Errorf("ADMISSION_MAX_RETRIES must be >= 0")
	}
	return nil
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func getInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}
