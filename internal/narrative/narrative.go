// Package narrative turns reconciliation output into prompts for the
// dispute letter and the plain-language bill summary, and runs them through
// a completion service.
package narrative

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gyeh/billcheck/internal/completion"
	"github.com/gyeh/billcheck/internal/pivot"
)

// ErrNothingToDispute is returned when no charge is suspicious or carries a
// dispute note.
var ErrNothingToDispute = errors.New("no charges to dispute")

// ErrNoCodes is returned when a summary is requested for an empty bill.
var ErrNoCodes = errors.New("no procedure codes to summarize")

const (
	letterSystem  = "You are a patient advocate who writes polite, factual letters to hospital billing departments."
	summarySystem = "You are a medical billing assistant that explains hospital bills in plain language."
)

// LetterDetails personalize the dispute letter.
type LetterDetails struct {
	PatientName string `json:"patient_name,omitempty"`
	Hospital    string `json:"hospital,omitempty"`
	AccountID   string `json:"account_id,omitempty"`
}

// chargeLine is the serialized form of one charge inside a prompt.
type chargeLine struct {
	Code         string `json:"code"`
	Description  string `json:"description,omitempty"`
	Setting      string `json:"setting,omitempty"`
	Billed       string `json:"billed"`
	Negotiated   string `json:"negotiated"`
	PercentAbove string `json:"percent_above"`
	Note         string `json:"note,omitempty"`
}

func lines(charges []pivot.FlaggedCharge) []chargeLine {
	out := make([]chargeLine, len(charges))
	for i, c := range charges {
		out[i] = chargeLine{
			Code:         c.Code,
			Description:  c.Description,
			Setting:      c.Setting,
			Billed:       c.BilledAmount.StringFixed(2),
			Negotiated:   c.MedianNegotiated.StringFixed(2),
			PercentAbove: c.PercentAbove.StringFixed(1),
			Note:         c.Note,
		}
	}
	return out
}

// LetterPrompt builds the system and user prompt for a clarification letter
// covering the disputable charges. It fails with ErrNothingToDispute when
// none qualify.
func LetterPrompt(charges []pivot.FlaggedCharge, details LetterDetails) (system, user string, err error) {
	disputed := pivot.Disputable(charges)
	if len(disputed) == 0 {
		return "", "", ErrNothingToDispute
	}

	payload, err := json.MarshalIndent(lines(disputed), "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("marshal charges: %w", err)
	}

	var b strings.Builder
	b.WriteString("Draft a letter asking the hospital billing department to review and clarify the charges below.\n")
	if details.PatientName != "" {
		fmt.Fprintf(&b, "Patient: %s\n", details.PatientName)
	}
	if details.Hospital != "" {
		fmt.Fprintf(&b, "Hospital: %s\n", details.Hospital)
	}
	if details.AccountID != "" {
		fmt.Fprintf(&b, "Account: %s\n", details.AccountID)
	}
	b.WriteString("Each charge lists the billed amount, the median negotiated price and how far above it the bill is. ")
	b.WriteString("A note, when present, is the patient's own reason for disputing the charge.\n\n")
	b.Write(payload)
	return letterSystem, b.String(), nil
}

// SummaryPrompt builds the prompt for a plain-language explanation of the
// codes on a bill. When charges are given their billed and negotiated
// amounts are included.
func SummaryPrompt(codes []string, charges []pivot.FlaggedCharge) (system, user string, err error) {
	if len(codes) == 0 {
		return "", "", ErrNoCodes
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Explain in plain language what these CPT codes on my hospital bill are for: %s.\n",
		strings.Join(codes, ", "))
	if len(charges) > 0 {
		payload, err := json.MarshalIndent(lines(charges), "", "  ")
		if err != nil {
			return "", "", fmt.Errorf("marshal charges: %w", err)
		}
		b.WriteString("Mention any charge billed well above the negotiated price.\n\n")
		b.Write(payload)
	}
	return summarySystem, b.String(), nil
}

// Letter drafts the clarification letter for the disputable charges.
func Letter(ctx context.Context, c completion.Completer, charges []pivot.FlaggedCharge, details LetterDetails) (string, error) {
	system, user, err := LetterPrompt(charges, details)
	if err != nil {
		return "", err
	}
	letter, err := c.Complete(ctx, system, user)
	if err != nil {
		return "", fmt.Errorf("draft letter: %w", err)
	}
	return letter, nil
}

// Summary explains the bill's codes in plain language.
func Summary(ctx context.Context, c completion.Completer, codes []string, charges []pivot.FlaggedCharge) (string, error) {
	system, user, err := SummaryPrompt(codes, charges)
	if err != nil {
		return "", err
	}
	summary, err := c.Complete(ctx, system, user)
	if err != nil {
		return "", fmt.Errorf("summarize bill: %w", err)
	}
	return summary, nil
}
