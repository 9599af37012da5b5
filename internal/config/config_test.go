package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_PORT", "")
	t.Setenv("REDIS_DB", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.Equal(t, 0, cfg.Redis.DB)
	assert.Equal(t, "helpdesk", cfg.Mongo.Database)
	assert.Equal(t, 24*time.Hour, cfg.Registry.CacheTTL)
	assert.Equal(t, "0.0.0.0:8090", cfg.Relay.Addr())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_PORT", "9000")
	t.Setenv("REGISTRY_CACHE_TTL", "90m")
	t.Setenv("CHAT_MESSAGE_PAGE_SIZE", "not-a-number")
	t.Setenv("POSTGRES_RUN_MIGRATIONS", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.App.Port)
	assert.Equal(t, 90*time.Minute, cfg.Registry.CacheTTL)
	assert.Equal(t, 100, cfg.Chat.MessagePageSize)
	assert.False(t, cfg.Postgres.RunMigrations)
}

func TestLoad_InvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "one")
	_, err := Load()
	assert.Error(t, err)
}

func TestRequestTimeout_Disabled(t *testing.T) {
	assert.Equal(t, time.Duration(0), AppConfig{RequestTimeoutSeconds: 0}.RequestTimeout())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			App:      AppConfig{Env: "production"},
			Postgres: PostgresConfig{DSN: "postgres://helpdesk@db/helpdesk"},
			Auth:     AuthConfig{JWTSecret: "0123456789abcdef0123456789abcdef", AccessTokenTTLMinutes: 60, BcryptCost: 12},
		}
	}
	require.NoError(t, valid().Validate())

	cfg := valid()
	cfg.Auth.JWTSecret = devJWTSecret
	assert.ErrorContains(t, cfg.Validate(), "AUTH_JWT_SECRET")

	cfg = valid()
	cfg.Postgres.DSN = ""
	cfg.Auth.BcryptCost = 99
	err := cfg.Validate()
	assert.ErrorContains(t, err, "POSTGRES_DSN")
	assert.ErrorContains(t, err, "AUTH_BCRYPT_COST")

	cfg = valid()
	cfg.App.Env = "development"
	cfg.Auth.JWTSecret = devJWTSecret
	cfg.Postgres.DSN = ""
	assert.NoError(t, cfg.Validate())
}

func TestLoad_RejectsUnsafeProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_JWT_SECRET", "")
	_, err := Load()
	assert.ErrorContains(t, err, "AUTH_JWT_SECRET")
}
