package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/helpdeskhq/helpdesk/internal/config"
)

const applicationName = "helpdesk-api"

// Postgres wraps the pgx pool backing users, companies and calls.
type Postgres struct {
	Pool *pgxpool.Pool
}

// NewPostgres opens the pool and waits for the database to answer, retrying
// with a doubling backoff up to cfg.ConnectAttempts times.
func NewPostgres(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (*Postgres, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres: POSTGRES_DSN is required")
	}
	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}

	if err := pingWithRetry(ctx, pool.Ping, cfg.ConnectAttempts, time.Second, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	logger.Info("connected to postgres",
		zap.String("database", poolCfg.ConnConfig.Database),
		zap.Int32("max_conns", poolCfg.MaxConns),
		zap.Int32("min_conns", poolCfg.MinConns))
	return &Postgres{Pool: pool}, nil
}

func poolConfig(cfg config.PostgresConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.ConnMaxIdleSec > 0 {
		poolCfg.MaxConnIdleTime = time.Duration(cfg.ConnMaxIdleSec) * time.Second
	}
	if cfg.ConnMaxLifeSec > 0 {
		poolCfg.MaxConnLifetime = time.Duration(cfg.ConnMaxLifeSec) * time.Second
	}
	if _, ok := poolCfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		poolCfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	}
	return poolCfg, nil
}

// pingWithRetry calls ping until it succeeds, attempts run out or ctx ends.
func pingWithRetry(ctx context.Context, ping func(context.Context) error, attempts int, backoff time.Duration, logger *zap.Logger) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = ping(ctx); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		logger.Warn("database not ready, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return fmt.Errorf("ping failed after %d attempts: %w", attempts, err)
}

// Ping verifies database connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	if p == nil || p.Pool == nil {
		return errors.New("postgres pool not configured")
	}
	return p.Pool.Ping(ctx)
}

// Close releases pool resources.
func (p *Postgres) Close() {
	if p != nil && p.Pool != nil {
		p.Pool.Close()
	}
}

// PoolHandle returns the underlying pgx pool.
func (p *Postgres) PoolHandle() *pgxpool.Pool {
	if p == nil {
		return nil
	}
	return p.Pool
}
