package normalize

import (
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/google/uuid"

	"github.com/gyeh/billcheck/internal/model"
)

func strPtr(s string) *string   { return &s }
func f64Ptr(v float64) *float64 { return &v }

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		in   *string
		want *string
	}{
		{nil, nil},
		{strPtr("  "), nil},
		{strPtr(" 99213 "), strPtr("99213")},
		{strPtr("g0283"), strPtr("G0283")},
		{strPtr("992-13"), strPtr("99213")},
		{strPtr("--"), nil},
	}
	for _, tt := range tests {
		got := NormalizeCode(tt.in)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("NormalizeCode(%v): got %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeCodes(t *testing.T) {
	got := NormalizeCodes([]string{" 99213", "", "80053", "99213 ", "g0283"})
	want := []string{"99213", "80053", "G0283"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDollarsToCents(t *testing.T) {
	if DollarsToCents(nil) != nil {
		t.Error("nil should stay nil")
	}
	if got := DollarsToCents(f64Ptr(19.999)); *got != 2000 {
		t.Errorf("got %d, want 2000", *got)
	}
	if got := DollarsToCents(f64Ptr(math.NaN())); got != nil {
		t.Errorf("NaN should be nil, got %d", *got)
	}
}

func TestIsPublicPayerPlan(t *testing.T) {
	tests := []struct {
		plan *string
		want bool
	}{
		{nil, false},
		{strPtr("All Products"), false},
		{strPtr("MEDICARE  Advantage"), true},
		{strPtr("Healthy Kids Medicaid"), true},
		{strPtr("Commercial PPO"), false},
	}
	for _, tt := range tests {
		if got := IsPublicPayerPlan(tt.plan); got != tt.want {
			t.Errorf("IsPublicPayerPlan(%v): got %v, want %v", tt.plan, got, tt.want)
		}
	}
}

func TestNonPublicPlan(t *testing.T) {
	tests := []struct {
		hospital string
		plan     *string
		want     bool
	}{
		{"nch_data", strPtr("ALL PRODUCTS"), true},
		{"nch_data", strPtr("Aetna PPO"), false},
		{"nch_data", nil, false},
		{"general_hospital", strPtr("Aetna PPO"), true},
		{"general_hospital", strPtr("Medicare Advantage"), false},
		{"general_hospital", nil, true},
	}
	for _, tt := range tests {
		if got := NonPublicPlan(tt.hospital, tt.plan); got != tt.want {
			t.Errorf("NonPublicPlan(%s, %v): got %v, want %v", tt.hospital, tt.plan, got, tt.want)
		}
	}
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2024-06-01", "06/01/2024", "June 1, 2024", "2024-06-01T00:00:00Z"} {
		got := ParseDate(s)
		if got == nil {
			t.Errorf("ParseDate(%q): nil", s)
			continue
		}
		if got.Year() != 2024 || got.Month() != 6 || got.Day() != 1 {
			t.Errorf("ParseDate(%q): got %v", s, got)
		}
	}
	if ParseDate("not a date") != nil {
		t.Error("expected nil for garbage")
	}
}

func TestToPriceRows(t *testing.T) {
	row := &model.HospitalChargeRow{
		Description:      "OFFICE VISIT EST",
		Setting:          "outpatient",
		CPTCode:          strPtr("99213"),
		HCPCSCode:        strPtr(" "),
		NDCCode:          strPtr("0002-1433"),
		PlanName:         strPtr("Medicare  Advantage"),
		GrossCharge:      f64Ptr(300),
		NegotiatedDollar: f64Ptr(200.5),
	}
	rc := RowContext{
		PriceFileID:   7,
		IngestBatchID: uuid.New(),
		HospitalKey:   "nch_data",
		CodeTypes:     []string{"CPT", "HCPCS"},
	}

	rows := ToPriceRows(row, rc, 3)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row (blank HCPCS, NDC not requested), got %d", len(rows))
	}
	r := rows[0]
	if r.Code != "99213" || r.CodeType != "CPT" {
		t.Errorf("code: got %s/%s", r.CodeType, r.Code)
	}
	if *r.StandardChargeCents != 30000 || *r.NegotiatedChargeCents != 20050 {
		t.Errorf("cents: standard=%d negotiated=%d", *r.StandardChargeCents, *r.NegotiatedChargeCents)
	}
	if r.CashChargeCents != nil {
		t.Error("cash should be nil")
	}
	if *r.PlanNameNorm != "medicare advantage" {
		t.Errorf("plan norm: got %q", *r.PlanNameNorm)
	}
	if r.HospitalKey != "nch_data" || r.PriceFileID != 7 || r.SourceRowNumber != 3 {
		t.Errorf("context not stamped: %+v", r)
	}

	rec := r.Record()
	if rec.SettingOrUnknown() != "outpatient" {
		t.Errorf("setting: got %s", rec.SettingOrUnknown())
	}
	if rec.NegotiatedCharge.Decimal.String() != "200.5" {
		t.Errorf("negotiated decimal: got %s", rec.NegotiatedCharge.Decimal)
	}
}

func TestFileHash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")
	os.WriteFile(path, []byte("abc"), 0644)
	got, err := FileHash(path)
	if err != nil {
		t.Fatalf("FileHash: %v", err)
	}
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestHospitalKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"NCH Healthcare System", "nch_healthcare_system"},
		{"  St. Mary's / East  ", "st_mary_s_east"},
		{"nch_data", "nch_data"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := HospitalKey(tt.in); got != tt.want {
				t.Errorf("HospitalKey(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
