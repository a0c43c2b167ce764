package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gyeh/billcheck/internal/cache"
	embedsql "github.com/gyeh/billcheck/internal/sql"
)

// DescriptionCache persists generated code descriptions in
// billing.code_descriptions. It is the L2 behind the in-process cache.
type DescriptionCache struct {
	pool *pgxpool.Pool
}

// NewDescriptionCache returns a cache.Cache over billing.code_descriptions.
func NewDescriptionCache(pool *pgxpool.Pool) *DescriptionCache {
	return &DescriptionCache{pool: pool}
}

// Get returns the unexpired description stored under key.
func (c *DescriptionCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var desc string
	err := c.pool.QueryRow(ctx, embedsql.GetDescription, key).Scan(&desc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get description %s: %w", key, err)
	}
	return []byte(desc), true, nil
}

// Set upserts the description under key. A zero ttl never expires.
func (c *DescriptionCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expires *time.Time
	if ttl > 0 {
		t := time.Now().Add(ttl)
		expires = &t
	}
	if _, err := c.pool.Exec(ctx, embedsql.UpsertDescription, key, string(value), expires); err != nil {
		return fmt.Errorf("set description %s: %w", key, err)
	}
	return nil
}

// Delete removes the description stored under key.
func (c *DescriptionCache) Delete(ctx context.Context, key string) error {
	if _, err := c.pool.Exec(ctx, embedsql.DeleteDescription, key); err != nil {
		return fmt.Errorf("delete description %s: %w", key, err)
	}
	return nil
}

var _ cache.Cache = (*DescriptionCache)(nil)
