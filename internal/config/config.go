package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the engine.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Worker       WorkerConfig
	AI           AIConfig
	Pool         PoolConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds control-plane DB connection values. Tenant
// databases are reached via DSNs stored in the tenant registry.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines API authentication parameters.
type AuthConfig struct {
	JWTSecret string
	// AdminTokenHash is a bcrypt hash of the token accepted on the
	// operational trigger endpoints.
	AdminTokenHash string
}

// WorkerConfig drives the breach notifier process.
type WorkerConfig struct {
	// TickSeconds is the daemon sweep cadence; per-tenant check
	// intervals gate actual work inside a tick.
	TickSeconds                 int
	TenantTimeoutSeconds        int
	DefaultCheckIntervalSeconds int
	CheckIntervalFloorSeconds   int
	LeaseTTLSeconds             int
	LeaseKey                    string
}

// AIConfig points at the classification backend.
type AIConfig struct {
	Endpoint        string
	APIKey          string
	TimeoutSeconds  int
	CacheTTLSeconds int
}

// PoolConfig tunes pool score computation.
type PoolConfig struct {
	BatchSize          int
	StalenessSeconds   int
	InterItemDelayMS   int
	EntrySettleDelayMS int
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "sla-engine"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:      getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AdminTokenHash: os.Getenv("AUTH_ADMIN_TOKEN_HASH"),
		},
		Worker: WorkerConfig{
			TickSeconds:                 getEnvAsInt("WORKER_TICK_SECONDS", 60),
			TenantTimeoutSeconds:        getEnvAsInt("WORKER_TENANT_TIMEOUT_SECONDS", 60),
			DefaultCheckIntervalSeconds: getEnvAsInt("WORKER_DEFAULT_CHECK_INTERVAL_SECONDS", 300),
			CheckIntervalFloorSeconds:   getEnvAsInt("WORKER_CHECK_INTERVAL_FLOOR_SECONDS", 60),
			LeaseTTLSeconds:             getEnvAsInt("WORKER_LEASE_TTL_SECONDS", 90),
			LeaseKey:                    getEnv("WORKER_LEASE_KEY", "sla-engine:breach-notifier:leader"),
		},
		AI: AIConfig{
			Endpoint:        os.Getenv("AI_ENDPOINT"),
			APIKey:          os.Getenv("AI_API_KEY"),
			TimeoutSeconds:  getEnvAsInt("AI_TIMEOUT_SECONDS", 20),
			CacheTTLSeconds: getEnvAsInt("AI_CACHE_TTL_SECONDS", 300),
		},
		Pool: PoolConfig{
			BatchSize:          getEnvAsInt("POOL_BATCH_SIZE", 20),
			StalenessSeconds:   getEnvAsInt("POOL_STALENESS_SECONDS", 300),
			InterItemDelayMS:   getEnvAsInt("POOL_INTER_ITEM_DELAY_MS", 200),
			EntrySettleDelayMS: getEnvAsInt("POOL_ENTRY_SETTLE_DELAY_MS", 1000),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// TenantTimeout returns the per-tenant processing ceiling.
func (w WorkerConfig) TenantTimeout() time.Duration {
	if w.TenantTimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(w.TenantTimeoutSeconds) * time.Second
}

// Tick returns the daemon sweep cadence.
func (w WorkerConfig) Tick() time.Duration {
	if w.TickSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(w.TickSeconds) * time.Second
}

// LeaseTTL returns the leader lease lifetime.
func (w WorkerConfig) LeaseTTL() time.Duration {
	if w.LeaseTTLSeconds <= 0 {
		return 90 * time.Second
	}
	return time.Duration(w.LeaseTTLSeconds) * time.Second
}

// Timeout returns the AI request ceiling.
func (a AIConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 20 * time.Second
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// CacheTTL returns how long classification results stay cached.
func (a AIConfig) CacheTTL() time.Duration {
	if a.CacheTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(a.CacheTTLSeconds) * time.Second
}

// Staleness returns the pool score freshness window.
func (p PoolConfig) Staleness() time.Duration {
	if p.StalenessSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(p.StalenessSeconds) * time.Second
}

// InterItemDelay returns the pause between batch items.
func (p PoolConfig) InterItemDelay() time.Duration {
	if p.InterItemDelayMS < 0 {
		return 0
	}
	return time.Duration(p.InterItemDelayMS) * time.Millisecond
}

// EntrySettleDelay returns the pause before scoring a pool entrant.
func (p PoolConfig) EntrySettleDelay() time.Duration {
	if p.EntrySettleDelayMS < 0 {
		return 0
	}
	return time.Duration(p.EntrySettleDelayMS) * time.Millisecond
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
