package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gyeh/billcheck/internal/db"
	"github.com/gyeh/billcheck/internal/exitcode"
	"github.com/gyeh/billcheck/internal/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load a hospital price Parquet file into the price store",
	RunE:  runIngest,
}

func init() {
	f := ingestCmd.Flags()
	f.StringVar(&cfg.FilePath, "file", "", "Path to Parquet file (required)")
	f.StringVar(&cfg.HospitalKey, "hospital", "", "Price list key (defaults to the file's hospital name)")
	f.BoolVar(&cfg.ActivateVersion, "activate-version", true, "Make this file the hospital's active price list")
	f.BoolVar(&cfg.Force, "force", false, "Re-import even if file SHA already exists")
	f.StringSliceVar(&cfg.CodeTypes, "code-types", nil, "Code types to load (default CPT,HCPCS)")
	_ = ingestCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	log := newLogger()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cfg.ValidateWithDSN(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	pool, err := db.NewPool(ctx, cfg.DSN, db.PoolOptions{Bulk: true})
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		os.Exit(exitcode.DBConnError)
	}
	defer pool.Close()

	summary, err := ingest.Run(ctx, pool, log, &cfg)
	if err != nil {
		var pe *ingest.PipelineError
		if errors.As(err, &pe) {
			log.Error().Err(pe.Err).Str("phase", pe.Phase).Msg("ingest failed")
			pool.Close()
			switch pe.Phase {
			case ingest.PhasePreflight:
				os.Exit(exitcode.ValidationError)
			case ingest.PhaseStage:
				os.Exit(exitcode.CopyError)
			default:
				os.Exit(exitcode.FinalizeError)
			}
		}
		log.Error().Err(err).Msg("ingest failed")
		pool.Close()
		os.Exit(exitcode.FinalizeError)
	}

	if summary.AlreadyLoaded {
		fmt.Printf("Already loaded: %s (price file %d)\n", summary.HospitalKey, summary.PriceFileID)
		return nil
	}
	fmt.Printf("Ingest complete: %s, %d rows loaded, %d skipped, %d rejected, %d files superseded (%.1fs)\n",
		summary.HospitalKey, summary.RowsLoaded, summary.RowsSkipped, summary.RowsRejected,
		summary.FilesSuperseded, summary.DurationTotal.Seconds())
	return nil
}
