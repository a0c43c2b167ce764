// Package pivot groups price records into per-code, per-setting summaries
// and flags billed charges that sit too far above the negotiated median.
package pivot

import "github.com/shopspring/decimal"

// Thresholds are the business parameters of the pivot. Values are used as
// given, zero included; DefaultThresholds returns the values used when no
// Thresholds are supplied at all.
type Thresholds struct {
	// SuspiciousRatio is the fraction above the negotiated median a billed
	// amount must exceed (strictly) to be flagged.
	SuspiciousRatio decimal.Decimal
	// CashFallbackFactor scales the standard charge when a record has neither
	// a negotiated nor a cash price.
	CashFallbackFactor decimal.Decimal
}

// DefaultThresholds returns a 10% suspicious ratio and a 0.9 cash fallback.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SuspiciousRatio:    decimal.RequireFromString("0.10"),
		CashFallbackFactor: decimal.RequireFromString("0.9"),
	}
}

// resolve returns *t, or DefaultThresholds when t is nil.
func resolve(t *Thresholds) Thresholds {
	if t == nil {
		return DefaultThresholds()
	}
	return *t
}
