package extract

import (
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
)

func TestExtract_CodeAndAmount(t *testing.T) {
	res := Extract("Code 99213 billed $245.00 today")
	if !reflect.DeepEqual(res.Codes, []string{"99213"}) {
		t.Fatalf("codes: got %v", res.Codes)
	}
	amt, ok := res.Billed["99213"]
	if !ok {
		t.Fatal("expected billed amount for 99213")
	}
	if !amt.Equal(decimal.RequireFromString("245.00")) {
		t.Errorf("amount: got %s, want 245.00", amt)
	}
}

func TestExtract_NoCodes(t *testing.T) {
	for _, text := range []string{"", "Office visit, no codes here", "acct 1234 ref 123456"} {
		res := Extract(text)
		if !res.Empty() {
			t.Errorf("Extract(%q): expected no codes, got %v", text, res.Codes)
		}
		if len(res.Billed) != 0 {
			t.Errorf("Extract(%q): expected no billed amounts, got %v", text, res.Billed)
		}
	}
}

func TestCodes(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"dedup_order", "80053 then 99213 then 80053 again", []string{"80053", "99213"}},
		{"rejects_longer_runs", "phone 5551234567 code 36415", []string{"36415"}},
		{"rejects_shorter_runs", "room 1234 code 85025", []string{"85025"}},
		{"adjacent_letters", "CPT:99285/ER", []string{"99285"}},
		{"string_edges", "99213", []string{"99213"}},
		{"space_separated", "99213 99214", []string{"99213", "99214"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Codes(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Codes(%q): got %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestBilledAmount(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		code   string
		want   string
		wantOK bool
	}{
		{"thousands", "99285 ER VISIT $1,234.56", "99285", "1234.56", true},
		{"no_dollar_sign", "80053 metabolic panel 88.10", "80053", "88.10", true},
		{"dollar_with_space", "36415: $ 12.5", "36415", "12.5", true},
		{"dollar_attached", "36415$30", "36415", "30", true},
		{"first_match_wins", "99213 $100.00 adj $20.00", "99213", "100.00", true},
		{"later_occurrence", "99213 see below ........................ 99213 $75", "99213", "75", true},
		{"too_far", "99213 this description is far too long to count $50", "99213", "", false},
		{"no_amount", "99213 office visit", "99213", "", false},
		{"embedded_in_longer_run", "1992135 $40", "99213", "", false},
		{"case_insensitive_text", "99213 BILLED $9", "99213", "9", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := BilledAmount(tt.text, tt.code)
			if ok != tt.wantOK {
				t.Fatalf("ok: got %v, want %v (amount %s)", ok, tt.wantOK, got)
			}
			if ok && !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("amount: got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestExtract_MissingAmountIsAbsent(t *testing.T) {
	res := Extract("99213 $50.00\n80053 lab panel")
	if len(res.Codes) != 2 {
		t.Fatalf("codes: got %v", res.Codes)
	}
	if _, ok := res.Billed["80053"]; ok {
		t.Error("80053 should have no billed entry")
	}
}
