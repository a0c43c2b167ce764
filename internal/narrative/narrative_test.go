package narrative

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/gyeh/billcheck/internal/pivot"
)

type recorder struct {
	system, user string
	err          error
}

func (r *recorder) Complete(_ context.Context, system, user string) (string, error) {
	r.system, r.user = system, user
	if r.err != nil {
		return "", r.err
	}
	return "Dear Billing Department,", nil
}

func charges() []pivot.FlaggedCharge {
	return []pivot.FlaggedCharge{
		{
			Code: "99213", Description: "OFFICE VISIT", Setting: "outpatient",
			BilledAmount: decimal.NewFromInt(450), MedianNegotiated: decimal.NewFromInt(200),
			PercentAbove: decimal.NewFromInt(125), Suspicious: true,
		},
		{
			Code: "36415", Description: "VENIPUNCTURE", Setting: "outpatient",
			BilledAmount: decimal.NewFromInt(20), MedianNegotiated: decimal.NewFromInt(20),
			PercentAbove: decimal.Zero, Note: "never had blood drawn",
		},
		{
			Code: "80053", Description: "METABOLIC PANEL", Setting: "outpatient",
			BilledAmount: decimal.NewFromInt(40), MedianNegotiated: decimal.NewFromInt(45),
			PercentAbove: decimal.Zero,
		},
	}
}

func TestLetterPrompt(t *testing.T) {
	system, user, err := LetterPrompt(charges(), LetterDetails{PatientName: "Pat Doe", Hospital: "NCH"})
	if err != nil {
		t.Fatalf("LetterPrompt: %v", err)
	}
	if system == "" {
		t.Error("empty system prompt")
	}
	for _, want := range []string{
		"Patient: Pat Doe",
		"Hospital: NCH",
		`"code": "99213"`,
		`"billed": "450.00"`,
		`"negotiated": "200.00"`,
		`"percent_above": "125.0"`,
		`"note": "never had blood drawn"`,
	} {
		if !strings.Contains(user, want) {
			t.Errorf("prompt missing %q:\n%s", want, user)
		}
	}
	if strings.Contains(user, "80053") {
		t.Error("charge that is neither suspicious nor noted should be left out")
	}
	if strings.Contains(user, "Account:") {
		t.Error("empty account id should be omitted")
	}
}

func TestLetterPrompt_NothingToDispute(t *testing.T) {
	_, _, err := LetterPrompt(charges()[2:], LetterDetails{})
	if !errors.Is(err, ErrNothingToDispute) {
		t.Fatalf("expected ErrNothingToDispute, got %v", err)
	}
}

func TestSummaryPrompt(t *testing.T) {
	_, user, err := SummaryPrompt([]string{"99213", "80053"}, nil)
	if err != nil {
		t.Fatalf("SummaryPrompt: %v", err)
	}
	if !strings.Contains(user, "99213, 80053") || strings.Contains(user, "billed") {
		t.Errorf("unexpected prompt: %s", user)
	}

	_, user, err = SummaryPrompt([]string{"99213"}, charges()[:1])
	if err != nil {
		t.Fatalf("SummaryPrompt with charges: %v", err)
	}
	if !strings.Contains(user, `"billed": "450.00"`) {
		t.Errorf("charges missing from prompt: %s", user)
	}

	if _, _, err := SummaryPrompt(nil, nil); !errors.Is(err, ErrNoCodes) {
		t.Errorf("expected ErrNoCodes, got %v", err)
	}
}

func TestLetterAndSummary(t *testing.T) {
	ctx := context.Background()

	r := &recorder{}
	letter, err := Letter(ctx, r, charges(), LetterDetails{})
	if err != nil {
		t.Fatalf("Letter: %v", err)
	}
	if letter != "Dear Billing Department," || r.system != letterSystem {
		t.Errorf("unexpected letter call: %q / %q", letter, r.system)
	}

	if _, err := Summary(ctx, r, []string{"99213"}, nil); err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if r.system != summarySystem {
		t.Errorf("summary used system prompt %q", r.system)
	}

	failing := &recorder{err: errors.New("down")}
	if _, err := Letter(ctx, failing, charges(), LetterDetails{}); err == nil {
		t.Error("expected completer error")
	}
	if _, err := Letter(ctx, failing, nil, LetterDetails{}); !errors.Is(err, ErrNothingToDispute) {
		t.Errorf("expected ErrNothingToDispute, got %v", err)
	}
}
