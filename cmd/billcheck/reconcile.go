package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/gyeh/billcheck/internal/decode"
	"github.com/gyeh/billcheck/internal/exitcode"
	"github.com/gyeh/billcheck/internal/reconcile"
)

var reconcileOpts struct {
	file     string
	hospital string
	codes    []string
	billed   map[string]string
	asJSON   bool
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Check a bill against the published prices",
	Long:  "Reads a bill (text, PDF or image) or an explicit code list, looks up published prices and flags charges billed above the negotiated median.",
	RunE:  runReconcile,
}

func init() {
	f := reconcileCmd.Flags()
	f.StringVar(&reconcileOpts.file, "file", "", "Bill to check: PDF, image, or any other file read as text")
	f.StringVar(&reconcileOpts.hospital, "hospital", "", "Price list key (defaults to --default-hospital)")
	f.StringSliceVar(&reconcileOpts.codes, "codes", nil, "Codes to check instead of reading a file")
	f.StringToStringVar(&reconcileOpts.billed, "billed", nil, "Billed amounts for --codes, e.g. 99213=450")
	f.BoolVar(&reconcileOpts.asJSON, "json", false, "Print the result as JSON")
	reconcileCmd.MarkFlagsMutuallyExclusive("file", "codes")
	reconcileCmd.MarkFlagsOneRequired("file", "codes")
	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	log := newLogger()
	ctx := cmd.Context()

	svc := mustOpenServices(ctx, log)
	defer svc.Close()

	res := mustReconcile(ctx, log, svc)
	if reconcileOpts.asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printResult(res)
	if res.NoCodesDetected {
		svc.Close()
		os.Exit(exitcode.NoCodes)
	}
	return nil
}

// mustReconcile runs the reconciliation selected by the reconcile flags and
// exits with the matching code on failure.
func mustReconcile(ctx context.Context, log zerolog.Logger, svc *services) *reconcile.Result {
	billed, err := parseBilled(reconcileOpts.billed)
	if err != nil {
		log.Error().Err(err).Msg("invalid --billed")
		svc.Close()
		os.Exit(exitcode.UsageError)
	}

	var text string
	if reconcileOpts.file != "" {
		text, err = decode.Text(ctx, reconcileOpts.file, "")
		if err != nil {
			log.Error().Err(err).Str("file", reconcileOpts.file).Msg("could not read bill")
			svc.Close()
			os.Exit(exitcode.DecodeError)
		}
	}

	scope := reconcile.Scope{Hospital: cfg.Hospital(reconcileOpts.hospital)}
	var res *reconcile.Result
	if reconcileOpts.file != "" {
		res, err = svc.reconciler.ReconcileFor(ctx, scope, text)
	} else {
		res, err = svc.reconciler.ReconcileCodes(ctx, scope, reconcileOpts.codes, billed)
	}
	if err != nil {
		var re *reconcile.Error
		if errors.As(err, &re) {
			log.Error().Err(re.Err).Str("stage", string(re.Stage)).Msg("reconciliation failed")
		} else {
			log.Error().Err(err).Msg("reconciliation failed")
		}
		svc.Close()
		os.Exit(exitcode.StoreError)
	}
	return res
}

func parseBilled(raw map[string]string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(raw))
	for code, s := range raw {
		amt, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimPrefix(s, "$"), ",", ""))
		if err != nil {
			return nil, fmt.Errorf("amount for %s: %w", code, err)
		}
		out[code] = amt
	}
	return out, nil
}

func printResult(res *reconcile.Result) {
	fmt.Printf("Hospital: %s\n", res.Hospital)
	if res.NoCodesDetected {
		fmt.Println(res.Message)
		return
	}
	fmt.Printf("Codes:    %s\n", strings.Join(res.UniqueCodes, ", "))
	var amounts []string
	for _, c := range res.BilledCharges() {
		amounts = append(amounts, c.Code+" $"+c.Amount.StringFixed(2))
	}
	if len(amounts) > 0 {
		fmt.Printf("Billed:   %s\n", strings.Join(amounts, ", "))
	}
	fmt.Println()

	fmt.Printf("%-7s %-14s %12s %12s %12s  %s\n", "CODE", "SETTING", "STANDARD", "NEGOTIATED", "BILLED", "DESCRIPTION")
	for _, g := range res.Groups {
		billed := "-"
		if g.Billed != nil {
			billed = g.Billed.StringFixed(2)
		}
		fmt.Printf("%-7s %-14s %12s %12s %12s  %s\n",
			g.Code, g.Setting, g.MedianStandard.StringFixed(2), g.MedianNegotiated.StringFixed(2), billed, g.Description)
	}
	fmt.Printf("%-7s %-14s %12s %12s\n", "TOTAL", "", res.TotalStandard.StringFixed(2), res.TotalNegotiated.StringFixed(2))

	if len(res.Flagged) == 0 {
		fmt.Println("\nNo charges above the negotiated median threshold.")
		return
	}
	fmt.Printf("\nFlagged charges (%d):\n", len(res.Flagged))
	for _, c := range res.Flagged {
		fmt.Printf("  %s (%s): billed $%s vs median $%s, %s%% above\n",
			c.Code, c.Setting, c.BilledAmount.StringFixed(2), c.MedianNegotiated.StringFixed(2), c.PercentAbove.StringFixed(1))
	}
}
