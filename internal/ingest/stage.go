package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/billcheck/internal/db"
	"github.com/gyeh/billcheck/internal/model"
	"github.com/gyeh/billcheck/internal/normalize"
	"github.com/gyeh/billcheck/internal/parquetread"
)

const readBatchSize = 1024

// StageResult holds metrics from the load phase.
type StageResult struct {
	RowsRead int64
	// RowsLoaded counts price rows written, one per code per source row.
	RowsLoaded int64
	// RowsSkipped counts source rows carrying none of the loaded code types.
	RowsSkipped  int64
	RowsRejected int64
	ByCodeType   map[string]int64
	Duration     time.Duration
}

// Stage streams rows from the Parquet file, explodes them into one PriceRow
// per code and COPY-loads them into billing.price_records via a
// channel-backed CopyFromSource.
func Stage(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, pf *PreflightResult, codeTypes []string) (*StageResult, error) {
	start := time.Now()

	if len(codeTypes) == 0 {
		codeTypes = model.DefaultCodeTypes
	}

	reader, err := parquetread.Open(pf.FilePath)
	if err != nil {
		return nil, fmt.Errorf("stage open: %w", err)
	}
	defer reader.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := make(chan *model.PriceRow, readBatchSize)
	errCh := make(chan error, 1)

	rc := normalize.RowContext{
		PriceFileID:   pf.PriceFileID,
		IngestBatchID: pf.IngestBatchID,
		HospitalKey:   pf.HospitalKey,
		CodeTypes:     codeTypes,
	}

	// Counters are written by the producer only and read after errCh.
	var rowsRead, rowsSkipped, rejected int64
	byCode := make(map[string]int64)

	// Producer goroutine: read Parquet → normalize → push to channel
	go func() {
		defer close(ch)
		errCh <- reader.Each(readBatchSize, func(rowNum int64, row *model.HospitalChargeRow) error {
			rowsRead++

			if row.Description == "" && row.Setting == "" {
				rejected++
				log.Warn().Int64("row", rowNum).Msg("row rejected: no description or setting")
				return nil
			}

			priceRows := normalize.ToPriceRows(row, rc, rowNum)
			if len(priceRows) == 0 {
				rowsSkipped++
				return nil
			}

			for _, pr := range priceRows {
				select {
				case ch <- pr:
				case <-ctx.Done():
					return ctx.Err()
				}
				byCode[pr.CodeType]++
			}
			return nil
		})
	}()

	// Consumer: COPY from channel into the price table
	source := db.NewChannelSource(ch)
	rowsLoaded, err := pool.CopyFrom(ctx,
		pgx.Identifier{"billing", "price_records"},
		model.PriceColumns(),
		source,
	)
	if err != nil {
		// Unblock the producer before waiting on it.
		cancel()
		for range ch {
		}
	}

	prodErr := <-errCh
	if err != nil {
		return nil, fmt.Errorf("stage copy: %w", err)
	}
	if prodErr != nil {
		return nil, fmt.Errorf("stage producer: %w", prodErr)
	}

	dur := time.Since(start)
	log.Info().
		Int64("rows_read", rowsRead).
		Int64("rows_loaded", rowsLoaded).
		Int64("rows_skipped", rowsSkipped).
		Int64("rows_rejected", rejected).
		Str("duration", dur.String()).
		Float64("rows_per_sec", float64(rowsLoaded)/dur.Seconds()).
		Msg("load complete")

	return &StageResult{
		RowsRead:     rowsRead,
		RowsLoaded:   rowsLoaded,
		RowsSkipped:  rowsSkipped,
		RowsRejected: rejected,
		ByCodeType:   byCode,
		Duration:     dur,
	}, nil
}
