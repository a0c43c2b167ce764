package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/billcheck/internal/model"
	"github.com/gyeh/billcheck/internal/normalize"
	"github.com/gyeh/billcheck/internal/parquetread"
	embedsql "github.com/gyeh/billcheck/internal/sql"
)

// Price file statuses.
const (
	StatusPending = "pending"
	StatusLoading = "loading"
	StatusLoaded  = "loaded"
	StatusActive  = "active"
	StatusFailed  = "failed"
)

// PreflightOptions select the file and how it is registered.
type PreflightOptions struct {
	FilePath string
	// HospitalKey overrides the key derived from the file's hospital_name.
	HospitalKey string
	CodeTypes   []string
	Force       bool
}

// PreflightResult holds all context resolved during the preflight phase.
type PreflightResult struct {
	// FilePath is the original path passed to Preflight, stored as-is.
	FilePath string
	// FileSHA256 is the hex-encoded SHA-256 digest of the file.
	FileSHA256 string
	FileSize   int64
	// HospitalKey names the price list the rows are loaded into.
	HospitalKey string
	// PriceFileID is the billing.price_files primary key for this file.
	PriceFileID int64
	// IngestBatchID tags every row this run loads.
	IngestBatchID uuid.UUID
	NumRows       int64
	// AlreadyLoaded is true when the file's sha256 is already loaded or
	// active for the hospital and force mode is off.
	AlreadyLoaded bool
	// FirstRow carries the file-level metadata (hospital name, version).
	FirstRow *model.HospitalChargeRow
}

// Preflight hashes the file, validates its schema, resolves the hospital key
// and registers the price file.
func Preflight(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, opts PreflightOptions) (*PreflightResult, error) {
	start := time.Now()

	sha, err := normalize.FileHash(opts.FilePath)
	if err != nil {
		return nil, fmt.Errorf("preflight hash: %w", err)
	}

	stat, err := os.Stat(opts.FilePath)
	if err != nil {
		return nil, fmt.Errorf("preflight stat: %w", err)
	}

	reader, err := parquetread.Open(opts.FilePath)
	if err != nil {
		return nil, fmt.Errorf("preflight open: %w", err)
	}
	defer reader.Close()

	codeTypes := opts.CodeTypes
	if len(codeTypes) == 0 {
		codeTypes = model.DefaultCodeTypes
	}
	if err := parquetread.ValidateSchema(reader.Schema(), codeTypes); err != nil {
		return nil, fmt.Errorf("preflight validate: %w", err)
	}

	numRows := reader.NumRows()

	firstRow, err := reader.First()
	if err != nil {
		return nil, fmt.Errorf("preflight read first row: %w", err)
	}

	hospitalKey := opts.HospitalKey
	if hospitalKey == "" {
		hospitalKey = normalize.HospitalKey(firstRow.HospitalName)
	}
	if hospitalKey == "" {
		return nil, errors.New("preflight: hospital_name is empty; pass --hospital")
	}

	log.Info().
		Str("file", filepath.Base(opts.FilePath)).
		Str("sha256", sha).
		Int64("rows", numRows).
		Str("hospital", hospitalKey).
		Dur("duration", time.Since(start)).
		Msg("preflight complete")

	batchID := uuid.New()
	priceFileID, alreadyLoaded, err := registerPriceFile(ctx, pool, registerParams{
		hospitalKey: hospitalKey,
		filePath:    opts.FilePath,
		sha:         sha,
		fileSize:    stat.Size(),
		row:         firstRow,
		batchID:     batchID,
		force:       opts.Force,
	})
	if err != nil {
		return nil, fmt.Errorf("preflight register file: %w", err)
	}

	return &PreflightResult{
		FilePath:      opts.FilePath,
		FileSHA256:    sha,
		FileSize:      stat.Size(),
		HospitalKey:   hospitalKey,
		PriceFileID:   priceFileID,
		IngestBatchID: batchID,
		NumRows:       numRows,
		AlreadyLoaded: alreadyLoaded,
		FirstRow:      firstRow,
	}, nil
}

type registerParams struct {
	hospitalKey string
	filePath    string
	sha         string
	fileSize    int64
	row         *model.HospitalChargeRow
	batchID     uuid.UUID
	force       bool
}

func registerPriceFile(ctx context.Context, pool *pgxpool.Pool, p registerParams) (int64, bool, error) {
	var priceFileID int64
	err := pool.QueryRow(ctx, embedsql.RegisterPriceFile,
		p.hospitalKey,
		nilIfEmpty(p.row.HospitalName),
		filepath.Base(p.filePath),
		p.sha,
		nilIfEmpty(p.row.Version),
		normalize.ParseDate(p.row.LastUpdatedOn),
		p.fileSize,
		p.batchID,
	).Scan(&priceFileID)

	if errors.Is(err, pgx.ErrNoRows) {
		// Already exists (ON CONFLICT DO NOTHING returned no rows)
		var status string
		if err := pool.QueryRow(ctx, embedsql.LookupPriceFile, p.hospitalKey, p.sha).Scan(&priceFileID, &status); err != nil {
			return 0, false, fmt.Errorf("lookup existing price_file: %w", err)
		}

		if !p.force && (status == StatusActive || status == StatusLoaded) {
			return priceFileID, true, nil
		}

		// Re-import: drop whatever an earlier run loaded for this file.
		if _, err := pool.Exec(ctx,
			"DELETE FROM billing.price_records WHERE price_file_id = $1", priceFileID); err != nil {
			return 0, false, fmt.Errorf("clear earlier load: %w", err)
		}
		if err := UpdateStatus(ctx, pool, priceFileID, StatusPending); err != nil {
			return 0, false, fmt.Errorf("reset price_file status: %w", err)
		}
		return priceFileID, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("register price file: %w", err)
	}

	return priceFileID, false, nil
}

// UpdateStatus updates the price_files status.
func UpdateStatus(ctx context.Context, pool *pgxpool.Pool, priceFileID int64, status string) error {
	_, err := pool.Exec(ctx,
		"UPDATE billing.price_files SET status = $2 WHERE price_file_id = $1",
		priceFileID, status,
	)
	return err
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
