// Package stats holds the numeric helpers shared by every price summary.
package stats

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

var two = decimal.NewFromInt(2)

// Median returns the median of the strictly positive, non-null values.
// Zero and negative amounts are not real prices and are skipped. Returns 0
// when nothing remains.
func Median(values []decimal.NullDecimal) decimal.Decimal {
	cleaned := make([]decimal.Decimal, 0, len(values))
	for _, v := range values {
		if v.Valid && v.Decimal.IsPositive() {
			cleaned = append(cleaned, v.Decimal)
		}
	}
	if len(cleaned) == 0 {
		return decimal.Zero
	}

	sort.Slice(cleaned, func(i, j int) bool {
		return cleaned[i].LessThan(cleaned[j])
	})
	mid := len(cleaned) / 2
	if len(cleaned)%2 != 0 {
		return cleaned[mid]
	}
	return cleaned[mid-1].Add(cleaned[mid]).Div(two)
}

// MedianFloats is Median for raw float input. nil, NaN and infinities are
// dropped along with non-positive values.
func MedianFloats(values []*float64) decimal.Decimal {
	nd := make([]decimal.NullDecimal, 0, len(values))
	for _, v := range values {
		if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
			continue
		}
		nd = append(nd, decimal.NewNullDecimal(decimal.NewFromFloat(*v)))
	}
	return Median(nd)
}

// Sum adds the given decimals.
func Sum(values []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
