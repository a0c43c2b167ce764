package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/billcheck/internal/cache/ristretto"
	"github.com/gyeh/billcheck/internal/cache/tiered"
	"github.com/gyeh/billcheck/internal/completion"
	"github.com/gyeh/billcheck/internal/db"
	"github.com/gyeh/billcheck/internal/describe"
	"github.com/gyeh/billcheck/internal/exitcode"
	"github.com/gyeh/billcheck/internal/logging"
	"github.com/gyeh/billcheck/internal/reconcile"
	"github.com/gyeh/billcheck/internal/resilience"
	"github.com/gyeh/billcheck/internal/store"
)

// l1Expire bounds how long a description backfilled from Postgres stays in
// the in-process cache.
const l1Expire = time.Hour

// services are the long-lived resources shared by serve and the one-shot
// commands. They are built once at startup and closed at shutdown.
type services struct {
	pool       *pgxpool.Pool
	store      *store.PriceStore
	l1         *ristretto.Cache
	completer  *completion.Client
	describer  *describe.Service
	reconciler *reconcile.Reconciler
}

func openServices(ctx context.Context, log zerolog.Logger) (*services, error) {
	pool, err := db.NewPool(ctx, cfg.DSN, db.PoolOptions{})
	if err != nil {
		return nil, err
	}

	l1, err := ristretto.New(cfg.CacheMaxBytes)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("create description cache: %w", err)
	}

	ps := store.New(pool, logging.Component(log, "store"))

	client := completion.NewClient(completion.Options{
		BaseURL: cfg.Completion.BaseURL,
		APIKey:  cfg.Completion.APIKey,
		Model:   cfg.Completion.Model,
		Timeout: cfg.Completion.Timeout,
	}, logging.Component(log, "completion"))
	client.SetBreaker(resilience.NewBreaker(5, 30*time.Second))
	if !client.Configured() {
		log.Warn().Msg("OPENAI_API_KEY not set; descriptions, letters and summaries are disabled")
	}

	svc := &services{
		pool:      pool,
		store:     ps,
		l1:        l1,
		completer: client,
		describer: describe.New(describe.Options{
			Cache:        tiered.New(l1, store.NewDescriptionCache(pool), l1Expire),
			Completer:    client,
			Preventative: ps,
			TTL:          cfg.DescriptionTTL,
		}, logging.Component(log, "describe")),
		reconciler: reconcile.New(ps, reconcile.Options{
			Hospital:            cfg.Hospital(""),
			Thresholds:          &cfg.Thresholds,
			ExcludePublicPayers: cfg.ExcludePublicPayers,
		}, logging.Component(log, "reconcile")),
	}
	return svc, nil
}

func (s *services) Close() {
	s.l1.Close()
	s.pool.Close()
}

// mustOpenServices validates the DSN and opens the services, exiting with
// the matching code on failure.
func mustOpenServices(ctx context.Context, log zerolog.Logger) *services {
	if err := cfg.RequireDSN(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}
	svc, err := openServices(ctx, log)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		os.Exit(exitcode.DBConnError)
	}
	return svc
}
