package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Mongo        MongoConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Chat         ChatConfig
	Registry     RegistryConfig
	Relay        RelayConfig
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

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	RunMigrations   bool
	ConnMaxIdleSec  int32
	ConnMaxLifeSec  int32
	// ConnectAttempts bounds startup retries while the database comes up.
	ConnectAttempts int
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// MongoConfig holds the document store connection values.
type MongoConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret               string
	AccessTokenTTLMinutes   int
	PasswordResetTTLMinutes int
	BcryptCost              int
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// ChatConfig tunes the live chat queue.
type ChatConfig struct {
	QueueKey        string
	MessagePageSize int
}

// RegistryConfig points the API at the company-registry relay.
type RegistryConfig struct {
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// RelayConfig configures the standalone registry relay binary.
type RelayConfig struct {
	Host            string
	Port            string
	UpstreamURL     string
	UpstreamToken   string
	RequestsPerIP   int
	UpstreamRate    float64
	UpstreamBurst   int
	UpstreamTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	upstreamRate, err := strconv.ParseFloat(getEnv("RELAY_UPSTREAM_RATE", "3"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RELAY_UPSTREAM_RATE: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "helpdesk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:             os.Getenv("POSTGRES_DSN"),
			MaxConns:        int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:        int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:   getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec:  int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec:  int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
			ConnectAttempts: getEnvAsInt("POSTGRES_CONNECT_ATTEMPTS", 5),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
			PoolSize: getEnvAsInt("REDIS_POOL_SIZE", 0),
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", "mongodb://127.0.0.1:27017"),
			Database: getEnv("MONGO_DATABASE", "helpdesk"),
			Timeout:  getEnvAsDuration("MONGO_TIMEOUT", 10*time.Second),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:               getEnv("AUTH_JWT_SECRET", devJWTSecret),
			AccessTokenTTLMinutes:   getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			PasswordResetTTLMinutes: getEnvAsInt("AUTH_PASSWORD_RESET_TTL_MINUTES", 30),
			BcryptCost:              getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
		Chat: ChatConfig{
			QueueKey:        getEnv("CHAT_QUEUE_KEY", "helpdesk:chat:waiting"),
			MessagePageSize: getEnvAsInt("CHAT_MESSAGE_PAGE_SIZE", 100),
		},
		Registry: RegistryConfig{
			BaseURL:  getEnv("REGISTRY_BASE_URL", "http://127.0.0.1:8090"),
			Timeout:  getEnvAsDuration("REGISTRY_TIMEOUT", 5*time.Second),
			CacheTTL: getEnvAsDuration("REGISTRY_CACHE_TTL", 24*time.Hour),
		},
		Relay: RelayConfig{
			Host:            getEnv("RELAY_HOST", "0.0.0.0"),
			Port:            getEnv("RELAY_PORT", "8090"),
			UpstreamURL:     getEnv("RELAY_UPSTREAM_URL", "https://receitaws.com.br/v1/cnpj"),
			UpstreamToken:   os.Getenv("RELAY_UPSTREAM_TOKEN"),
			RequestsPerIP:   getEnvAsInt("RELAY_REQUESTS_PER_MINUTE", 30),
			UpstreamRate:    upstreamRate,
			UpstreamBurst:   getEnvAsInt("RELAY_UPSTREAM_BURST", 3),
			UpstreamTimeout: getEnvAsDuration("RELAY_UPSTREAM_TIMEOUT", 10*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

const devJWTSecret = "dev-secret"

// Validate rejects settings that are unsafe outside development.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("AUTH_BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if c.Auth.AccessTokenTTLMinutes <= 0 {
		errs = append(errs, errors.New("AUTH_ACCESS_TOKEN_TTL_MINUTES must be positive"))
	}
	if c.App.Env != "development" && c.App.Env != "test" {
		if c.Auth.JWTSecret == devJWTSecret || len(c.Auth.JWTSecret) < 32 {
			errs = append(errs, errors.New("AUTH_JWT_SECRET must be set to at least 32 bytes"))
		}
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("POSTGRES_DSN is required"))
		}
	}
	return errors.Join(errs...)
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

// Addr returns the relay bind address.
func (r RelayConfig) Addr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
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

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}
