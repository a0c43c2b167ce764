// Package ingest loads hospital price transparency Parquet files into the
// price store: preflight → stage (COPY) → finalize, with cleanup of the
// batch on failure.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/billcheck/internal/config"
	"github.com/gyeh/billcheck/internal/model"
)

// Pipeline phases, reported on PipelineError.
const (
	PhasePreflight = "preflight"
	PhaseStage     = "stage"
	PhaseFinalize  = "finalize"
)

// PipelineError wraps an error with the phase where it occurred.
type PipelineError struct {
	Phase string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Phase, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Run executes the full ingest pipeline: preflight → stage → finalize.
// A failed stage or finalize removes the rows of the batch.
func Run(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, cfg *config.Config) (*model.IngestSummary, error) {
	totalStart := time.Now()

	// Phase 1: Preflight
	log.Info().Str("file", cfg.FilePath).Msg("starting preflight")
	pf, err := Preflight(ctx, pool, log, PreflightOptions{
		FilePath:    cfg.FilePath,
		HospitalKey: cfg.HospitalKey,
		CodeTypes:   cfg.CodeTypes,
		Force:       cfg.Force,
	})
	if err != nil {
		return nil, &PipelineError{Phase: PhasePreflight, Err: err}
	}
	log = log.With().Str("hospital", pf.HospitalKey).Int64("price_file_id", pf.PriceFileID).Logger()

	if pf.AlreadyLoaded {
		log.Info().
			Str("sha256", pf.FileSHA256).
			Msg("file already imported, skipping (use --force to re-import)")
		return &model.IngestSummary{
			FilePath:      pf.FilePath,
			FileSHA256:    pf.FileSHA256,
			PriceFileID:   pf.PriceFileID,
			IngestBatchID: pf.IngestBatchID.String(),
			HospitalKey:   pf.HospitalKey,
			AlreadyLoaded: true,
			DurationTotal: time.Since(totalStart),
		}, nil
	}

	// Phase 2: Stage
	log.Info().Msg("starting load")
	if err := UpdateStatus(ctx, pool, pf.PriceFileID, StatusLoading); err != nil {
		return nil, &PipelineError{Phase: PhaseStage, Err: err}
	}

	stageResult, err := Stage(ctx, pool, log, pf, cfg.CodeTypes)
	if err != nil {
		fail(ctx, pool, log, pf)
		return nil, &PipelineError{Phase: PhaseStage, Err: err}
	}

	// Phase 3: Finalize
	log.Info().Msg("finalizing")
	fin, err := Finalize(ctx, pool, log, pf.HospitalKey, pf.PriceFileID, cfg.ActivateVersion)
	if err != nil {
		fail(ctx, pool, log, pf)
		return nil, &PipelineError{Phase: PhaseFinalize, Err: err}
	}

	summary := &model.IngestSummary{
		FilePath:           pf.FilePath,
		FileSHA256:         pf.FileSHA256,
		PriceFileID:        pf.PriceFileID,
		IngestBatchID:      pf.IngestBatchID.String(),
		HospitalKey:        pf.HospitalKey,
		RowsRead:           stageResult.RowsRead,
		RowsRejected:       stageResult.RowsRejected,
		RowsSkipped:        stageResult.RowsSkipped,
		RowsLoaded:         stageResult.RowsLoaded,
		FilesSuperseded:    fin.FilesSuperseded,
		RowsExplodedByCode: stageResult.ByCodeType,
		DurationCopy:       stageResult.Duration,
		DurationFinalize:   fin.Duration,
		DurationTotal:      time.Since(totalStart),
	}

	log.Info().
		Int64("rows_read", summary.RowsRead).
		Int64("rows_loaded", summary.RowsLoaded).
		Int64("rows_skipped", summary.RowsSkipped).
		Int64("rows_rejected", summary.RowsRejected).
		Int64("files_superseded", summary.FilesSuperseded).
		Str("total_duration", summary.DurationTotal.String()).
		Msg("ingest pipeline complete")

	return summary, nil
}

// fail marks the file failed and removes whatever the batch loaded. It uses
// a fresh context so cleanup still runs after cancellation.
func fail(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, pf *PreflightResult) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if err := UpdateStatus(cctx, pool, pf.PriceFileID, StatusFailed); err != nil {
		log.Warn().Err(err).Msg("mark file failed")
	}
	if err := Cleanup(cctx, pool, log, pf.IngestBatchID); err != nil {
		log.Warn().Err(err).Msg("batch cleanup failed (non-fatal)")
	}
}
