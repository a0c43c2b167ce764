package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	embedsql "github.com/gyeh/billcheck/internal/sql"
)

// Cleanup deletes the price rows a failed batch managed to load. The price
// file row stays, marked failed, so a rerun can pick it up.
func Cleanup(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, batchID uuid.UUID) error {
	tag, err := pool.Exec(ctx, embedsql.DeleteBatch, batchID)
	if err != nil {
		return fmt.Errorf("delete batch %s: %w", batchID, err)
	}
	log.Info().
		Str("batch_id", batchID.String()).
		Int64("rows_deleted", tag.RowsAffected()).
		Msg("batch rows removed")
	return nil
}
