package normalize

import "math"

// DollarsToCents converts a nullable float64 dollar amount to nullable int64 cents.
// Uses math.Round to avoid truncation bias. NaN and infinities become nil.
func DollarsToCents(v *float64) *int64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	c := int64(math.Round(*v * 100))
	return &c
}
