// Package config loads process configuration from the environment (the
// ambient-stack equivalent of the teacher's config/confiig.go), trading the
// teacher's Postgres/OAuth/Stripe surface for the engine's own tunables:
// store backend selection, SMTP/DNS timeouts, tiered-engine thresholds,
// shared-key auth, rate limiting, and enrichment credentials.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var (
	AppConfig Config
	envLoaded bool
)

// StoreBackend selects which internal/store implementation is constructed.
type StoreBackend string

const (
	StoreEmbedded StoreBackend = "embedded"
	StoreRemote   StoreBackend = "remote_rest"
	StoreSQL      StoreBackend = "remote_sql"
)

// RateLimitBackend selects the fiber.Storage behind the sliding-window
// limiter.
type RateLimitBackend string

const (
	RateLimitMemory   RateLimitBackend = "memory"
	RateLimitSharedKV RateLimitBackend = "shared_kv"
)

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// EnrichmentConfig carries per-adapter API credentials for internal/enrichment
// and internal/finder's paid waterfall stages.
type EnrichmentConfig struct {
	Enabled    bool   `json:"enabled"`
	ExaKey     string `json:"-"`
	ProspeoKey string `json:"-"`
	ApolloKey  string `json:"-"`
}

type Config struct {
	Environment string `json:"environment"`
	ServerPort  string `json:"server_port"`

	// Store
	StoreBackend   StoreBackend `json:"store_backend"`
	StorePath      string       `json:"store_path"`       // embedded: sqlite file path
	StoreDSN       string       `json:"-"`                 // remote_sql: postgres DSN
	StoreBaseURL   string       `json:"store_base_url"`   // remote_rest: PostgREST-style base URL
	StoreAPIKey    string       `json:"-"`
	CursorSignKey  string       `json:"-"`

	// SMTP
	HeloDomain  string `json:"helo_domain"`
	FromAddress string `json:"from_address"`

	// Tiered engine
	FastTierConfidence      float64       `json:"fast_tier_confidence"`
	CacheTTL                time.Duration `json:"cache_ttl"`
	RoleAccountFilter       bool          `json:"role_account_filter"`
	BackfillQueueCapacity   int           `json:"backfill_queue_capacity"`
	BackfillWorkers         int           `json:"backfill_workers"`

	// Concurrency
	VerifyBatchConcurrency int `json:"verify_batch_concurrency"`
	FinderConcurrency      int `json:"finder_concurrency"`

	// HTTP API
	AuthKey         string        `json:"-"`
	RateLimitBackend RateLimitBackend `json:"rate_limit_backend"`
	RateLimitWindow  time.Duration `json:"rate_limit_window"`
	RateLimitMax     int           `json:"rate_limit_max"`
	Redis            RedisConfig   `json:"redis"`

	// Readiness checks
	ReadinessDNSTarget  string        `json:"readiness_dns_target"`
	ReadinessSMTPTarget string        `json:"readiness_smtp_target"`
	ReadinessTimeout    time.Duration `json:"readiness_timeout"`

	Enrichment EnrichmentConfig `json:"enrichment"`

	// Observability
	SentryDSN string `json:"-"` // empty disables Sentry entirely
}

func init() {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()
	envLoaded = true
}

func LoadConfig() error {
	AppConfig = Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		ServerPort:  getEnv("SERVER_PORT", "5000"),

		StoreBackend:  StoreBackend(getEnv("STORE_BACKEND", string(StoreEmbedded))),
		StorePath:     getEnv("STORE_PATH", "kadenverify.db"),
		StoreDSN:      getEnv("STORE_DSN", ""),
		StoreBaseURL:  getEnv("STORE_BASE_URL", ""),
		StoreAPIKey:   getEnv("STORE_API_KEY", ""),
		CursorSignKey: getEnv("CURSOR_SIGN_KEY", ""),

		HeloDomain:  getEnv("SMTP_HELO_DOMAIN", ""),
		FromAddress: getEnv("SMTP_FROM_ADDRESS", ""),

		FastTierConfidence:    getEnvAsFloat("FAST_TIER_CONFIDENCE", 0.85),
		CacheTTL:              getEnvAsDuration("CACHE_TTL", 30*24*time.Hour),
		RoleAccountFilter:     getEnvAsBool("ROLE_ACCOUNT_FILTER", true),
		BackfillQueueCapacity: getEnvAsInt("BACKFILL_QUEUE_CAPACITY", 500),
		BackfillWorkers:       getEnvAsInt("BACKFILL_WORKERS", 8),

		VerifyBatchConcurrency: getEnvAsInt("VERIFY_BATCH_CONCURRENCY", 5),
		FinderConcurrency:      getEnvAsInt("FINDER_CONCURRENCY", 10),

		AuthKey:          getEnv("API_AUTH_KEY", ""),
		RateLimitBackend: RateLimitBackend(getEnv("RATE_LIMIT_BACKEND", string(RateLimitMemory))),
		RateLimitWindow:  getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
		RateLimitMax:     getEnvAsInt("RATE_LIMIT_MAX", 120),
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},

		ReadinessDNSTarget:  getEnv("READINESS_DNS_TARGET", "gmail-smtp-in.l.google.com"),
		ReadinessSMTPTarget: getEnv("READINESS_SMTP_TARGET", "gmail-smtp-in.l.google.com:25"),
		ReadinessTimeout:    getEnvAsDuration("READINESS_TIMEOUT", 5*time.Second),

		Enrichment: EnrichmentConfig{
			Enabled:    getEnvAsBool("ENRICHMENT_ENABLED", false),
			ExaKey:     getEnv("EXA_API_KEY", ""),
			ProspeoKey: getEnv("PROSPEO_API_KEY", ""),
			ApolloKey:  getEnv("APOLLO_API_KEY", ""),
		},

		SentryDSN: getEnv("SENTRY_DSN", ""),
	}

	if AppConfig.StoreBackend == StoreRemote && AppConfig.StoreBaseURL == "" {
		return fmt.Errorf("STORE_BASE_URL is required when STORE_BACKEND=remote_rest")
	}
	if AppConfig.StoreBackend == StoreSQL && AppConfig.StoreDSN == "" {
		return fmt.Errorf("STORE_DSN is required when STORE_BACKEND=remote_sql")
	}
	if AppConfig.Enrichment.Enabled && AppConfig.Enrichment.ExaKey == "" && AppConfig.Enrichment.ProspeoKey == "" && AppConfig.Enrichment.ApolloKey == "" {
		return fmt.Errorf("ENRICHMENT_ENABLED is set but no adapter API key is configured")
	}

	logConfig()
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	if !envLoaded && fallback == "" {
		log.Printf("⚠️ Environment variable %s not found and no fallback provided", key)
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return fallback
	}
	return value
}

func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return key[:2] + strings.Repeat("*", len(key)-4) + key[len(key)-2:]
}

func logConfig() {
	log.Println("🔧 Loaded configuration:")
	log.Printf("Environment: %s", AppConfig.Environment)
	log.Printf("Server Port: %s", AppConfig.ServerPort)
	log.Printf("Store backend: %s", AppConfig.StoreBackend)
	log.Printf("Auth key set: %t (%s)", AppConfig.AuthKey != "", maskKey(AppConfig.AuthKey))
	log.Printf("Rate limit: backend=%s window=%s max=%d", AppConfig.RateLimitBackend, AppConfig.RateLimitWindow, AppConfig.RateLimitMax)
	log.Printf("Enrichment enabled: %t", AppConfig.Enrichment.Enabled)
	log.Printf("Role account filter: %t", AppConfig.RoleAccountFilter)
	log.Printf("Sentry configured: %t", AppConfig.SentryDSN != "")
}
