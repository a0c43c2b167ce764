// Package extract pulls candidate procedure codes and the billed amounts
// printed next to them out of plain document text.
//
// Amount discovery is a best-effort heuristic. Billing documents have no
// fixed layout, so the first amount found within a short window after a
// code is taken as that code's billed charge.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// CodeLength is the number of digits in a CPT-style procedure code.
const CodeLength = 5

// amountWindow is the maximum number of non-digit, non-'$' characters
// allowed between a code and its amount.
const amountWindow = 20

var digitRun = regexp.MustCompile(`[0-9]+`)

// Result holds the codes found in a document and the billed amount
// extracted for each code, if any.
type Result struct {
	// Codes are unique, in order of first appearance.
	Codes []string
	// Billed maps code -> billed amount. Codes without a nearby amount have
	// no entry.
	Billed map[string]decimal.Decimal
}

// Empty reports whether no codes were detected.
func (r *Result) Empty() bool {
	return len(r.Codes) == 0
}

// Extract scans rawText for codes and billed amounts. Empty input is not an
// error; it yields an empty Result.
func Extract(rawText string) *Result {
	res := &Result{
		Codes:  Codes(rawText),
		Billed: make(map[string]decimal.Decimal),
	}
	for _, code := range res.Codes {
		if amt, ok := BilledAmount(rawText, code); ok {
			res.Billed[code] = amt
		}
	}
	return res
}

// Codes returns every run of exactly CodeLength digits, deduplicated in
// order of first appearance. Digits embedded in longer numeric runs (phone
// numbers, account numbers) are not codes.
func Codes(text string) []string {
	var codes []string
	seen := make(map[string]bool)
	for _, run := range digitRun.FindAllString(text, -1) {
		if len(run) != CodeLength || seen[run] {
			continue
		}
		seen[run] = true
		codes = append(codes, run)
	}
	return codes
}

// BilledAmount finds the first amount following code in text. The code must
// not be preceded by a digit and must be followed by at least one
// non-digit character before the amount. Thousands separators are stripped.
func BilledAmount(text, code string) (decimal.Decimal, bool) {
	re, err := amountPattern(code)
	if err != nil {
		return decimal.Decimal{}, false
	}
	m := re.FindStringSubmatch(text)
	if m == nil {
		return decimal.Decimal{}, false
	}
	amt, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return decimal.Decimal{}, false
	}
	return amt, true
}

func amountPattern(code string) (*regexp.Regexp, error) {
	return regexp.Compile(`(?i)(?:^|[^0-9])` + regexp.QuoteMeta(code) +
		`(?:[^0-9$]{1,` + strconv.Itoa(amountWindow) + `}\$?|\$)\s?` +
		`([0-9][0-9,]*(?:\.[0-9]{1,2})?)`)
}
