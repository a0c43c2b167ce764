package pivot

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/gyeh/billcheck/internal/model"
	"github.com/gyeh/billcheck/internal/normalize"
	"github.com/gyeh/billcheck/internal/stats"
)

// Group is the summary of every price record sharing a (code, setting) pair.
type Group struct {
	Code             string              `json:"code"`
	Setting          string              `json:"setting"`
	Description      string              `json:"description"`
	MedianStandard   decimal.Decimal     `json:"median_standard"`
	MedianNegotiated decimal.Decimal     `json:"median_negotiated"`
	Count            int                 `json:"count"`
	Billed           *decimal.Decimal    `json:"billed_charges"`
	Members          []model.PriceRecord `json:"-"`
}

type groupKey struct {
	code    string
	setting string
}

// Options narrow and parameterize an aggregation.
type Options struct {
	// Thresholds supplies the cash fallback factor; nil uses
	// DefaultThresholds.
	Thresholds *Thresholds
	// Setting keeps only groups in this care setting when non-empty.
	Setting string
	// Hospital is the price list the records came from. It selects the
	// public-payer rule, see normalize.NonPublicPlan.
	Hospital string
	// ExcludePublicPayers drops Medicare and Medicaid plan prices before
	// grouping.
	ExcludePublicPayers bool
}

// Aggregate groups records by (code, setting) and computes the median
// standard and effective negotiated price of each group. billed maps code to
// the amount the patient was billed; every setting variant of a code carries
// the same billed amount. The result is sorted by code (numeric-aware), then
// setting, and does not depend on the order of records.
func Aggregate(records []model.PriceRecord, billed map[string]decimal.Decimal, opts Options) []Group {
	th := resolve(opts.Thresholds)
	grouped := make(map[groupKey][]model.PriceRecord)
	for i := range records {
		rec := records[i]
		if opts.ExcludePublicPayers && !normalize.NonPublicPlan(opts.Hospital, rec.PlanName) {
			continue
		}
		key := groupKey{code: rec.Code, setting: rec.SettingOrUnknown()}
		if opts.Setting != "" && key.setting != opts.Setting {
			continue
		}
		grouped[key] = append(grouped[key], rec)
	}

	groups := make([]Group, 0, len(grouped))
	for key, members := range grouped {
		sortMembers(members)

		standard := make([]decimal.NullDecimal, len(members))
		negotiated := make([]decimal.NullDecimal, len(members))
		for i := range members {
			standard[i] = members[i].StandardCharge
			negotiated[i] = EffectiveNegotiated(&members[i], th.CashFallbackFactor)
		}

		g := Group{
			Code:             key.code,
			Setting:          key.setting,
			Description:      firstDescription(members),
			MedianStandard:   stats.Median(standard),
			MedianNegotiated: stats.Median(negotiated),
			Count:            len(members),
			Members:          members,
		}
		if amt, ok := billed[key.code]; ok {
			b := amt
			g.Billed = &b
		}
		groups = append(groups, g)
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Code != groups[j].Code {
			return NaturalLess(groups[i].Code, groups[j].Code)
		}
		return groups[i].Setting < groups[j].Setting
	})
	return groups
}

// EffectiveNegotiated is the price a record contributes to the negotiated
// median: the negotiated charge if positive, else the cash charge if
// positive, else the standard charge scaled by fallback if positive. A
// record with none of these contributes nothing.
func EffectiveNegotiated(rec *model.PriceRecord, fallback decimal.Decimal) decimal.NullDecimal {
	switch {
	case positive(rec.NegotiatedCharge):
		return rec.NegotiatedCharge
	case positive(rec.CashCharge):
		return rec.CashCharge
	case positive(rec.StandardCharge):
		return decimal.NewNullDecimal(rec.StandardCharge.Decimal.Mul(fallback))
	}
	return decimal.NullDecimal{}
}

// Totals sums the per-group medians across the pivot.
func Totals(groups []Group) (standard, negotiated decimal.Decimal) {
	s := make([]decimal.Decimal, len(groups))
	n := make([]decimal.Decimal, len(groups))
	for i := range groups {
		s[i] = groups[i].MedianStandard
		n[i] = groups[i].MedianNegotiated
	}
	return stats.Sum(s), stats.Sum(n)
}

func positive(v decimal.NullDecimal) bool {
	return v.Valid && v.Decimal.IsPositive()
}

// firstDescription returns the first non-blank description. Members are
// already in canonical order, so the choice is stable across input orders.
func firstDescription(members []model.PriceRecord) string {
	for i := range members {
		if d := members[i].Description; d != nil && strings.TrimSpace(*d) != "" {
			return *d
		}
	}
	return ""
}

// sortMembers puts the records of one group into a canonical order.
func sortMembers(members []model.PriceRecord) {
	sort.SliceStable(members, func(i, j int) bool {
		a, b := &members[i], &members[j]
		if c := compareNull(a.StandardCharge, b.StandardCharge); c != 0 {
			return c < 0
		}
		if c := compareNull(a.NegotiatedCharge, b.NegotiatedCharge); c != 0 {
			return c < 0
		}
		if c := compareNull(a.CashCharge, b.CashCharge); c != 0 {
			return c < 0
		}
		if c := strings.Compare(deref(a.Description), deref(b.Description)); c != 0 {
			return c < 0
		}
		return deref(a.PlanName) < deref(b.PlanName)
	})
}

// compareNull orders null before any value.
func compareNull(a, b decimal.NullDecimal) int {
	switch {
	case !a.Valid && !b.Valid:
		return 0
	case !a.Valid:
		return -1
	case !b.Valid:
		return 1
	}
	return a.Decimal.Cmp(b.Decimal)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
