// Package store reads hospital price lists and the code lookup tables out of
// Postgres.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/billcheck/internal/model"
	embedsql "github.com/gyeh/billcheck/internal/sql"
)

// DefaultSearchLimit caps Search when the caller passes no limit.
const DefaultSearchLimit = 5000

// PriceStore queries the active price files of each hospital. It owns no
// connections; the pool is opened and closed by the caller.
type PriceStore struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// New returns a PriceStore over pool.
func New(pool *pgxpool.Pool, log zerolog.Logger) *PriceStore {
	return &PriceStore{pool: pool, log: log}
}

// Hospital is one loaded price list.
type Hospital struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	Files int64  `json:"files"`
}

// QueryPrices returns every active price record of hospital whose code is in
// codes. Order is unspecified.
func (s *PriceStore) QueryPrices(ctx context.Context, hospital string, codes []string) ([]model.PriceRecord, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	start := time.Now()
	rows, err := s.pool.Query(ctx, embedsql.QueryPrices, hospital, codes)
	if err != nil {
		return nil, fmt.Errorf("query prices: %w", err)
	}
	records, err := collectRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("query prices: %w", err)
	}
	s.log.Debug().
		Str("hospital", hospital).
		Int("codes", len(codes)).
		Int("records", len(records)).
		Dur("duration", time.Since(start)).
		Msg("prices queried")
	return records, nil
}

// Search returns active price records of hospital ordered by code, then
// negotiated charge. An empty codes list matches every code up to limit rows.
func (s *PriceStore) Search(ctx context.Context, hospital string, codes []string, limit int) ([]model.PriceRecord, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if codes == nil {
		codes = []string{}
	}
	rows, err := s.pool.Query(ctx, embedsql.SearchPrices, hospital, codes, limit)
	if err != nil {
		return nil, fmt.Errorf("search prices: %w", err)
	}
	records, err := collectRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("search prices: %w", err)
	}
	return records, nil
}

// Hospitals lists the hospitals with an active price file.
func (s *PriceStore) Hospitals(ctx context.Context) ([]Hospital, error) {
	rows, err := s.pool.Query(ctx, embedsql.ListHospitals)
	if err != nil {
		return nil, fmt.Errorf("list hospitals: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Hospital, error) {
		var h Hospital
		err := row.Scan(&h.Key, &h.Name, &h.Files)
		return h, err
	})
	if err != nil {
		return nil, fmt.Errorf("list hospitals: %w", err)
	}
	return out, nil
}

// IsPreventative reports whether code is on the preventative-care list.
func (s *PriceStore) IsPreventative(ctx context.Context, code string) (bool, error) {
	var ok bool
	if err := s.pool.QueryRow(ctx, embedsql.IsPreventative, code).Scan(&ok); err != nil {
		return false, fmt.Errorf("lookup preventative %s: %w", code, err)
	}
	return ok, nil
}

// AddPreventative puts code on the preventative-care list.
func (s *PriceStore) AddPreventative(ctx context.Context, code, note string) error {
	_, err := s.pool.Exec(ctx, embedsql.AddPreventative, code, nilIfEmpty(note))
	if err != nil {
		return fmt.Errorf("add preventative %s: %w", code, err)
	}
	return nil
}

func collectRecords(rows pgx.Rows) ([]model.PriceRecord, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.PriceRecord, error) {
		var (
			rec                 model.PriceRecord
			standard, neg, cash *int64
		)
		err := row.Scan(&rec.Code, &rec.Setting, &standard, &neg, &cash,
			&rec.Description, &rec.PayerName, &rec.PlanName)
		if err != nil {
			return rec, err
		}
		rec.StandardCharge = model.CentsToNullDecimal(standard)
		rec.NegotiatedCharge = model.CentsToNullDecimal(neg)
		rec.CashCharge = model.CentsToNullDecimal(cash)
		return rec, nil
	})
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
