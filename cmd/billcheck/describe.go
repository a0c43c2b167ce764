package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/billcheck/internal/exitcode"
	"github.com/gyeh/billcheck/internal/normalize"
)

var describeCmd = &cobra.Command{
	Use:   "describe CODE...",
	Short: "Explain procedure codes in plain language",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDescribe,
}

var preventativeNote string

var preventativeCmd = &cobra.Command{
	Use:   "add-preventative CODE...",
	Short: "Mark procedure codes as preventative care",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAddPreventative,
}

func init() {
	preventativeCmd.Flags().StringVar(&preventativeNote, "note", "", "Why the code counts as preventative care")
	rootCmd.AddCommand(describeCmd, preventativeCmd)
}

func runDescribe(cmd *cobra.Command, args []string) error {
	log := newLogger()
	ctx := cmd.Context()

	svc := mustOpenServices(ctx, log)
	defer svc.Close()

	descriptions, err := svc.describer.DescribeAll(ctx, args)
	if err != nil {
		log.Error().Err(err).Msg("describe failed")
		svc.Close()
		os.Exit(exitcode.StoreError)
	}

	for _, code := range normalize.NormalizeCodes(args) {
		tag := ""
		if prev, err := svc.describer.IsPreventative(ctx, code); err != nil {
			log.Warn().Err(err).Str("code", code).Msg("preventative lookup failed")
		} else if prev {
			tag = " [preventative]"
		}
		fmt.Printf("%s%s: %s\n", code, tag, descriptions[code])
	}
	return nil
}

func runAddPreventative(cmd *cobra.Command, args []string) error {
	log := newLogger()
	ctx := cmd.Context()

	svc := mustOpenServices(ctx, log)
	defer svc.Close()

	codes := normalize.NormalizeCodes(args)
	for _, code := range codes {
		if err := svc.store.AddPreventative(ctx, code, preventativeNote); err != nil {
			log.Error().Err(err).Str("code", code).Msg("add preventative code failed")
			svc.Close()
			os.Exit(exitcode.StoreError)
		}
	}
	log.Info().Strs("codes", codes).Msg("preventative codes recorded")
	return nil
}
