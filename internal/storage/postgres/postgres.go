// Package postgres opens the PostgreSQL pool and applies schema migrations.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/newthinker/risklab/internal/config"
	"github.com/newthinker/risklab/internal/logger"
	"go.uber.org/zap"
)

const maxRetryInterval = 5 * time.Second

// Connect opens a pool and waits until the database answers a ping,
// retrying with exponential backoff for up to cfg.ConnectTimeout.
func Connect(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*pgxpool.Pool, error) {
	log = logger.OrNop(log)

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.MaxInterval = maxRetryInterval

	opts := []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn("database not ready, retrying",
				zap.Error(err), zap.Duration("next", next))
		}),
	}
	if cfg.ConnectTimeout > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(cfg.ConnectTimeout))
	}

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, pool.Ping(ctx)
	}, opts...)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info("database connected", zap.Int32("max_conns", poolCfg.MaxConns))
	return pool, nil
}
