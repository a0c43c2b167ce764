package pivot

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// FlaggedCharge joins a billed amount with its group's negotiated median.
type FlaggedCharge struct {
	Code             string          `json:"code"`
	Description      string          `json:"description"`
	Setting          string          `json:"setting"`
	BilledAmount     decimal.Decimal `json:"billed"`
	MedianNegotiated decimal.Decimal `json:"negotiated"`
	PercentAbove     decimal.Decimal `json:"percent_above"`
	Suspicious       bool            `json:"suspicious"`
	// Note is free text the patient attached while reviewing the charge.
	Note string `json:"note,omitempty"`
}

// DisputeOnly reports whether the charge is not suspicious on price alone
// but the patient attached a dispute note to it.
func (c *FlaggedCharge) DisputeOnly() bool {
	return !c.Suspicious && c.Note != ""
}

// Flag compares each group's billed amount with its negotiated median using
// th as given; a zero SuspiciousRatio flags every charge above the median.
// Groups without a billed amount are skipped; output keeps group order.
func Flag(groups []Group, th Thresholds) []FlaggedCharge {
	var out []FlaggedCharge
	for i := range groups {
		g := &groups[i]
		if g.Billed == nil {
			continue
		}
		out = append(out, evaluate(g, th))
	}
	return out
}

func evaluate(g *Group, th Thresholds) FlaggedCharge {
	fc := FlaggedCharge{
		Code:             g.Code,
		Description:      g.Description,
		Setting:          g.Setting,
		BilledAmount:     *g.Billed,
		MedianNegotiated: g.MedianNegotiated,
		PercentAbove:     decimal.Zero,
	}
	median := g.MedianNegotiated
	if !median.IsPositive() || !fc.BilledAmount.GreaterThan(median) {
		return fc
	}
	ratio := fc.BilledAmount.Sub(median).Div(median)
	fc.PercentAbove = ratio.Mul(hundred).Round(1)
	fc.Suspicious = ratio.GreaterThan(th.SuspiciousRatio)
	return fc
}

// AttachNotes sets the note of every charge whose code appears in notes.
// Medians and percentages are left untouched.
func AttachNotes(charges []FlaggedCharge, notes map[string]string) {
	for i := range charges {
		if n, ok := notes[charges[i].Code]; ok {
			charges[i].Note = n
		}
	}
}

// Suspicious returns the charges flagged as suspicious, in order.
func Suspicious(charges []FlaggedCharge) []FlaggedCharge {
	var out []FlaggedCharge
	for _, c := range charges {
		if c.Suspicious {
			out = append(out, c)
		}
	}
	return out
}

// Disputable returns the charges that belong in a dispute letter: the
// suspicious ones plus those the patient annotated.
func Disputable(charges []FlaggedCharge) []FlaggedCharge {
	var out []FlaggedCharge
	for _, c := range charges {
		if c.Suspicious || c.DisputeOnly() {
			out = append(out, c)
		}
	}
	return out
}
