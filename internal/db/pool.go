// Package db owns the Postgres connection pool, schema migrations and the
// COPY source used to bulk-load price rows.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolOptions tune a pool for its workload.
type PoolOptions struct {
	// Bulk disables the statement timeout for long COPY/ANALYZE sessions.
	Bulk bool
	// MaxConns caps the pool size when positive.
	MaxConns int32
}

// NewPool creates a pgxpool and verifies the connection with a ping. The
// caller owns the pool and must Close it at shutdown.
func NewPool(ctx context.Context, dsn string, opts PoolOptions) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	if opts.Bulk {
		cfg.ConnConfig.RuntimeParams["statement_timeout"] = "0"
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	cfg.ConnConfig.RuntimeParams["application_name"] = "billcheck"

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}
