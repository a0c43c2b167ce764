package normalize

import (
	"regexp"
	"strings"
)

var nonAlphanumeric = regexp.MustCompile(`[^A-Za-z0-9]`)

// NormalizeCode trims whitespace, uppercases, and strips non-alphanumeric
// characters, so "99213 " and "992-13" both store as "99213".
// Returns nil if the input is nil or the result is empty.
func NormalizeCode(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.ToUpper(strings.TrimSpace(*v))
	s = nonAlphanumeric.ReplaceAllString(s, "")
	if s == "" {
		return nil
	}
	return &s
}

// NormalizeCodes applies NormalizeCode to a caller-supplied code list,
// dropping empties and duplicates while keeping first-seen order.
func NormalizeCodes(codes []string) []string {
	out := make([]string, 0, len(codes))
	seen := make(map[string]bool, len(codes))
	for i := range codes {
		c := NormalizeCode(&codes[i])
		if c == nil || seen[*c] {
			continue
		}
		seen[*c] = true
		out = append(out, *c)
	}
	return out
}
