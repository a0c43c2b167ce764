package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/billcheck/internal/exitcode"
	"github.com/gyeh/billcheck/internal/narrative"
	"github.com/gyeh/billcheck/internal/pivot"
)

var letterOpts struct {
	notes   map[string]string
	details narrative.LetterDetails
	summary bool
}

var letterCmd = &cobra.Command{
	Use:   "letter",
	Short: "Draft a clarification letter for a bill's disputable charges",
	Long:  "Reconciles a bill like the reconcile command, then drafts a letter covering the flagged charges and any charge given a --note.",
	RunE:  runLetter,
}

func init() {
	f := letterCmd.Flags()
	f.StringVar(&reconcileOpts.file, "file", "", "Bill to check: .txt, .pdf, .png or .jpg")
	f.StringVar(&reconcileOpts.hospital, "hospital", "", "Price list key (defaults to --default-hospital)")
	f.StringSliceVar(&reconcileOpts.codes, "codes", nil, "Codes to check instead of reading a file")
	f.StringToStringVar(&reconcileOpts.billed, "billed", nil, "Billed amounts for --codes, e.g. 99213=450")
	f.StringToStringVar(&letterOpts.notes, "note", nil, "Dispute note for a code, e.g. 36415=\"no blood was drawn\"")
	f.StringVar(&letterOpts.details.PatientName, "patient", "", "Patient name for the letter")
	f.StringVar(&letterOpts.details.AccountID, "account", "", "Hospital account number")
	f.BoolVar(&letterOpts.summary, "summary", false, "Write a plain-language summary of the bill instead of a letter")
	letterCmd.MarkFlagsMutuallyExclusive("file", "codes")
	letterCmd.MarkFlagsOneRequired("file", "codes")
	rootCmd.AddCommand(letterCmd)
}

func runLetter(cmd *cobra.Command, args []string) error {
	log := newLogger()
	ctx := cmd.Context()

	svc := mustOpenServices(ctx, log)
	defer svc.Close()

	res := mustReconcile(ctx, log, svc)
	if res.NoCodesDetected {
		fmt.Println(res.Message)
		svc.Close()
		os.Exit(exitcode.NoCodes)
	}

	var (
		text string
		err  error
	)
	if letterOpts.summary {
		text, err = narrative.Summary(ctx, svc.completer, res.UniqueCodes, res.Charges)
	} else {
		pivot.AttachNotes(res.Charges, letterOpts.notes)
		if letterOpts.details.Hospital == "" {
			letterOpts.details.Hospital = res.Hospital
		}
		text, err = narrative.Letter(ctx, svc.completer, res.Charges, letterOpts.details)
	}
	if err != nil {
		log.Error().Err(err).Msg("text generation failed")
		svc.Close()
		os.Exit(exitcode.UsageError)
	}
	fmt.Println(text)
	return nil
}
