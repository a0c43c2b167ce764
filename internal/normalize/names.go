package normalize

import (
	"regexp"
	"strings"
)

var multiSpace = regexp.MustCompile(`\s+`)

// NormalizeName lowercases, collapses whitespace, and trims the input.
// Returns nil if the input is nil or the result is empty.
func NormalizeName(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	s = strings.ToLower(s)
	s = multiSpace.ReplaceAllString(s, " ")
	return &s
}

// IsPublicPayerPlan reports whether a plan name refers to a Medicare or
// Medicaid product.
func IsPublicPayerPlan(plan *string) bool {
	n := NormalizeName(plan)
	if n == nil {
		return false
	}
	return strings.Contains(*n, "medicare") || strings.Contains(*n, "medicaid")
}

// allProductsHospitals publish their commercial price as a single
// "All Products" plan next to the payer-specific rows.
var allProductsHospitals = map[string]bool{"nch_data": true}

const allProductsPlan = "all products"

// NonPublicPlan reports whether a price row survives the public-payer filter
// for hospital. Hospitals in allProductsHospitals keep only their
// "All Products" plan; elsewhere every plan but Medicare and Medicaid stays.
func NonPublicPlan(hospital string, plan *string) bool {
	if allProductsHospitals[hospital] {
		n := NormalizeName(plan)
		return n != nil && *n == allProductsPlan
	}
	return !IsPublicPayerPlan(plan)
}

var nonKeyChars = regexp.MustCompile(`[^a-z0-9]+`)

// HospitalKey derives the price-list key for a hospital name, e.g.
// "NCH Healthcare System" becomes "nch_healthcare_system".
func HospitalKey(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = nonKeyChars.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}
