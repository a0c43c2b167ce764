package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	embedsql "github.com/gyeh/billcheck/internal/sql"
)

// FinalizeResult reports what Finalize changed.
type FinalizeResult struct {
	FilesSuperseded int64
	Duration        time.Duration
}

// Finalize activates the price file, removes older files of the same
// hospital along with their rows, and runs ANALYZE. Without activate the file
// is only marked loaded and stays invisible to price queries.
func Finalize(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, hospitalKey string, priceFileID int64, activate bool) (*FinalizeResult, error) {
	start := time.Now()
	res := &FinalizeResult{}

	if activate {
		tx, err := pool.Begin(ctx)
		if err != nil {
			return nil, fmt.Errorf("begin finalize: %w", err)
		}
		defer tx.Rollback(ctx) //nolint:errcheck

		tag, err := tx.Exec(ctx, embedsql.SupersedePriceFiles, hospitalKey, priceFileID)
		if err != nil {
			return nil, fmt.Errorf("supersede older files: %w", err)
		}
		res.FilesSuperseded = tag.RowsAffected()

		if _, err := tx.Exec(ctx,
			"UPDATE billing.price_files SET status = $2 WHERE price_file_id = $1",
			priceFileID, StatusActive); err != nil {
			return nil, fmt.Errorf("activate file: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit finalize: %w", err)
		}
		log.Info().
			Int64("superseded", res.FilesSuperseded).
			Msg("price file activated")
	} else {
		if err := UpdateStatus(ctx, pool, priceFileID, StatusLoaded); err != nil {
			return nil, fmt.Errorf("update status to loaded: %w", err)
		}
	}

	if _, err := pool.Exec(ctx, "ANALYZE billing.price_records"); err != nil {
		return nil, fmt.Errorf("analyze prices: %w", err)
	}
	log.Info().Msg("ANALYZE complete")

	res.Duration = time.Since(start)
	return res, nil
}
