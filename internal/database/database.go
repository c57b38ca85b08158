package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docquery/docquery/internal/config"
)

const connectAttempts = 5

// NewPool builds a pgx connection pool and verifies connectivity with a
// bounded retry. The sleep function is injected so retry behavior is
// testable without real timers; pass nil for the default.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, sleep func(time.Duration)) (*pgxpool.Pool, error) {
	if sleep == nil {
		sleep = time.Sleep
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		if lastErr = pool.Ping(ctx); lastErr == nil {
			return pool, nil
		}
		if attempt < connectAttempts {
			slog.Warn("database not reachable, retrying",
				"attempt", attempt,
				"error", lastErr,
			)
			sleep(time.Duration(attempt) * time.Second)
		}
	}

	pool.Close()
	return nil, fmt.Errorf("ping database after %d attempts: %w", connectAttempts, lastErr)
}
