// Package reconcile runs the bill check end to end: extract codes and billed
// amounts from document text, look up published prices, aggregate them and
// flag overcharges.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/gyeh/billcheck/internal/extract"
	"github.com/gyeh/billcheck/internal/model"
	"github.com/gyeh/billcheck/internal/normalize"
	"github.com/gyeh/billcheck/internal/pivot"
)

// NoCodesMessage is shown when a document contains no procedure codes.
const NoCodesMessage = "No CPT codes detected in the uploaded file"

// PriceQuerier returns every price record for the given codes from the
// hospital's price list. Result order is not significant.
type PriceQuerier interface {
	QueryPrices(ctx context.Context, hospital string, codes []string) ([]model.PriceRecord, error)
}

// Options configure a Reconciler.
type Options struct {
	Hospital string
	// Thresholds nil uses pivot.DefaultThresholds.
	Thresholds *pivot.Thresholds
	// ExcludePublicPayers is the default for requests that leave
	// Scope.ExcludePublicPayers unset.
	ExcludePublicPayers bool
}

// Scope selects the price list and filters of one reconciliation. The zero
// Scope uses the Reconciler's defaults.
type Scope struct {
	Hospital            string
	ExcludePublicPayers *bool
}

// Result is the outcome of one reconciliation.
type Result struct {
	RequestID   string   `json:"request_id"`
	Hospital    string   `json:"hospital"`
	UniqueCodes []string `json:"unique_codes"`
	// Billed holds the amounts found next to codes, keyed by code.
	Billed map[string]decimal.Decimal `json:"billed"`
	// Groups is the pivot: one row per (code, setting).
	Groups []pivot.Group `json:"pivot_results"`
	// Charges has one entry per group carrying a billed amount.
	Charges []pivot.FlaggedCharge `json:"charges"`
	// Flagged is the suspicious subset of Charges.
	Flagged []pivot.FlaggedCharge `json:"flagged"`

	TotalStandard   decimal.Decimal `json:"total_standard"`
	TotalNegotiated decimal.Decimal `json:"total_negotiated"`

	NoCodesDetected bool   `json:"no_codes_detected"`
	Message         string `json:"message,omitempty"`
}

// Reconciler composes extraction, price lookup, aggregation and flagging.
// It holds no per-request state and is safe for concurrent use.
type Reconciler struct {
	store      PriceQuerier
	opts       Options
	thresholds pivot.Thresholds
	log        zerolog.Logger
}

// New returns a Reconciler that queries store.
func New(store PriceQuerier, opts Options, log zerolog.Logger) *Reconciler {
	th := pivot.DefaultThresholds()
	if opts.Thresholds != nil {
		th = *opts.Thresholds
	}
	return &Reconciler{store: store, opts: opts, thresholds: th, log: log}
}

// Reconcile extracts codes and billed amounts from rawText and reconciles
// them against the configured hospital's prices. A document without codes
// yields a Result with NoCodesDetected set and a nil error.
func (r *Reconciler) Reconcile(ctx context.Context, rawText string) (*Result, error) {
	return r.ReconcileFor(ctx, Scope{}, rawText)
}

// ReconcileFor is Reconcile with an explicit price list and filters.
func (r *Reconciler) ReconcileFor(ctx context.Context, scope Scope, rawText string) (*Result, error) {
	ext := extract.Extract(rawText)
	r.log.Debug().
		Int("text_len", len(rawText)).
		Strs("codes", ext.Codes).
		Int("billed", len(ext.Billed)).
		Msg("extraction complete")
	return r.run(ctx, scope, ext)
}

// ReconcileCodes reconciles an explicit code list and billed map, skipping
// extraction.
func (r *Reconciler) ReconcileCodes(ctx context.Context, scope Scope, codes []string, billed map[string]decimal.Decimal) (*Result, error) {
	normalized := make(map[string]decimal.Decimal, len(billed))
	for code, amt := range billed {
		if c := normalize.NormalizeCode(&code); c != nil {
			normalized[*c] = amt
		}
	}
	return r.run(ctx, scope, &extract.Result{Codes: normalize.NormalizeCodes(codes), Billed: normalized})
}

func (r *Reconciler) run(ctx context.Context, scope Scope, ext *extract.Result) (*Result, error) {
	hospital := scope.Hospital
	if hospital == "" {
		hospital = r.opts.Hospital
	}
	exclude := r.opts.ExcludePublicPayers
	if scope.ExcludePublicPayers != nil {
		exclude = *scope.ExcludePublicPayers
	}
	codes := ext.Codes
	res := &Result{
		RequestID:   uuid.NewString(),
		Hospital:    hospital,
		UniqueCodes: codes,
		Billed:      ext.Billed,
	}
	log := r.log.With().Str("request_id", res.RequestID).Str("hospital", hospital).Logger()

	if ext.Empty() {
		log.Info().Msg("no procedure codes detected")
		res.NoCodesDetected = true
		res.Message = NoCodesMessage
		return res, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, &Error{Stage: StageExtract, Err: err}
	}

	enter(log, StageQuery)
	start := time.Now()
	records, err := r.store.QueryPrices(ctx, hospital, codes)
	if err != nil {
		log.Error().Err(err).Msg("price query failed")
		return nil, &Error{Stage: StageQuery, Err: fmt.Errorf("%w: %w", ErrStoreUnavailable, err)}
	}
	log.Info().
		Int("codes", len(codes)).
		Int("records", len(records)).
		Dur("duration", time.Since(start)).
		Msg("price query complete")

	enter(log, StageAggregate)
	res.Groups = pivot.Aggregate(records, ext.Billed, pivot.Options{
		Thresholds:          &r.thresholds,
		Hospital:            hospital,
		ExcludePublicPayers: exclude,
	})
	res.TotalStandard, res.TotalNegotiated = pivot.Totals(res.Groups)

	enter(log, StageFlag)
	res.Charges = pivot.Flag(res.Groups, r.thresholds)
	res.Flagged = pivot.Suspicious(res.Charges)

	log.Info().
		Int("groups", len(res.Groups)).
		Int("charges", len(res.Charges)).
		Int("flagged", len(res.Flagged)).
		Msg("reconciliation complete")
	return res, nil
}

// BilledCharges lists the billed amounts in code order. Codes billed
// without an amount are left out.
func (res *Result) BilledCharges() []model.BilledCharge {
	var out []model.BilledCharge
	for _, code := range res.UniqueCodes {
		if amt, ok := res.Billed[code]; ok {
			out = append(out, model.BilledCharge{Code: code, Amount: amt})
		}
	}
	return out
}

func enter(log zerolog.Logger, stage Stage) {
	log.Debug().Str("stage", string(stage)).Msg("entering stage")
}
