package pivot

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/gyeh/billcheck/internal/model"
)

func strPtr(s string) *string { return &s }

func money(v string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(v))
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestAggregate_FallbackMedian(t *testing.T) {
	records := []model.PriceRecord{
		{Code: "99213", Setting: strPtr("outpatient"), StandardCharge: money("300"), NegotiatedCharge: money("200")},
		{Code: "99213", Setting: strPtr("outpatient"), StandardCharge: money("280"), NegotiatedCharge: money("0"), CashCharge: money("0")},
	}

	groups := Aggregate(records, nil, Options{})
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	g := groups[0]
	if !g.MedianStandard.Equal(dec("290")) {
		t.Errorf("MedianStandard: got %s, want 290", g.MedianStandard)
	}
	if !g.MedianNegotiated.Equal(dec("226")) {
		t.Errorf("MedianNegotiated: got %s, want 226", g.MedianNegotiated)
	}
	if g.Count != 2 {
		t.Errorf("Count: got %d, want 2", g.Count)
	}
	if g.Billed != nil {
		t.Errorf("Billed: got %s, want nil", g.Billed)
	}
}

func TestEffectiveNegotiated(t *testing.T) {
	fallback := dec("0.9")
	tests := []struct {
		name string
		rec  model.PriceRecord
		want string // "" means absent
	}{
		{"negotiated", model.PriceRecord{NegotiatedCharge: money("150"), CashCharge: money("90")}, "150"},
		{"cash", model.PriceRecord{NegotiatedCharge: money("-1"), CashCharge: money("90"), StandardCharge: money("300")}, "90"},
		{"standard_scaled", model.PriceRecord{StandardCharge: money("100")}, "90"},
		{"nothing", model.PriceRecord{StandardCharge: money("0")}, ""},
		{"all_null", model.PriceRecord{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EffectiveNegotiated(&tt.rec, fallback)
			if tt.want == "" {
				if got.Valid {
					t.Errorf("expected absent, got %s", got.Decimal)
				}
				return
			}
			if !got.Valid || !got.Decimal.Equal(dec(tt.want)) {
				t.Errorf("got %v, want %s", got, tt.want)
			}
		})
	}
}

func TestAggregate_CustomFallbackFactor(t *testing.T) {
	records := []model.PriceRecord{{Code: "99213", StandardCharge: money("200")}}
	th := Thresholds{CashFallbackFactor: dec("0.5")}
	groups := Aggregate(records, nil, Options{Thresholds: &th})
	if !groups[0].MedianNegotiated.Equal(dec("100")) {
		t.Errorf("got %s, want 100", groups[0].MedianNegotiated)
	}
}

func TestAggregate_ZeroFallbackFactor(t *testing.T) {
	records := []model.PriceRecord{
		{Code: "99213", StandardCharge: money("100")},
		{Code: "99213", StandardCharge: money("300")},
	}
	th := Thresholds{SuspiciousRatio: dec("0.10"), CashFallbackFactor: decimal.Zero}
	groups := Aggregate(records, nil, Options{Thresholds: &th})
	if !groups[0].MedianNegotiated.IsZero() {
		t.Errorf("median negotiated: got %s, want 0 (no fallback)", groups[0].MedianNegotiated)
	}
	if !groups[0].MedianStandard.Equal(dec("200")) {
		t.Errorf("median standard: got %s, want 200", groups[0].MedianStandard)
	}
}

func sampleRecords() []model.PriceRecord {
	return []model.PriceRecord{
		{Code: "99214", Setting: strPtr("outpatient"), StandardCharge: money("400"), Description: strPtr("OFFICE VISIT LVL 4")},
		{Code: "80053", Setting: nil, StandardCharge: money("90"), NegotiatedCharge: money("40")},
		{Code: "99213", Setting: strPtr("outpatient"), StandardCharge: money("300"), NegotiatedCharge: money("200")},
		{Code: "99213", Setting: strPtr("inpatient"), StandardCharge: money("350"), Description: strPtr("OFFICE VISIT")},
		{Code: "99213", Setting: strPtr("outpatient"), StandardCharge: money("280"), Description: strPtr("OFFICE VISIT EST")},
		{Code: "80053", Setting: strPtr(""), CashCharge: money("35")},
		{Code: "99213", Setting: strPtr("outpatient"), Description: strPtr("")},
	}
}

func TestAggregate_OrderingAndGrouping(t *testing.T) {
	billed := map[string]decimal.Decimal{"99213": dec("500")}
	groups := Aggregate(sampleRecords(), billed, Options{})

	type key struct{ code, setting string }
	var got []key
	for _, g := range groups {
		got = append(got, key{g.Code, g.Setting})
	}
	want := []key{
		{"80053", "unknown"},
		{"99213", "inpatient"},
		{"99213", "outpatient"},
		{"99214", "outpatient"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("group order: got %v, want %v", got, want)
	}

	unknown := groups[0]
	if unknown.Count != 2 {
		t.Errorf("nil and blank settings should share the unknown group, count=%d", unknown.Count)
	}
	if !unknown.MedianNegotiated.Equal(dec("37.5")) {
		t.Errorf("80053 negotiated median: got %s, want 37.5", unknown.MedianNegotiated)
	}

	for _, g := range groups {
		switch g.Code {
		case "99213":
			if g.Billed == nil || !g.Billed.Equal(dec("500")) {
				t.Errorf("99213/%s should carry billed 500, got %v", g.Setting, g.Billed)
			}
		default:
			if g.Billed != nil {
				t.Errorf("%s should have no billed amount", g.Code)
			}
		}
	}

	out := groups[2]
	if out.Count != 3 {
		t.Errorf("99213/outpatient count: got %d, want 3", out.Count)
	}
	if out.Description != "OFFICE VISIT EST" {
		t.Errorf("description: got %q", out.Description)
	}
}

func TestAggregate_DeterministicAcrossInputOrder(t *testing.T) {
	billed := map[string]decimal.Decimal{"99213": dec("500"), "80053": dec("12")}
	base := Aggregate(sampleRecords(), billed, Options{})

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := sampleRecords()
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := Aggregate(shuffled, billed, Options{})
		if len(got) != len(base) {
			t.Fatalf("run %d: group count %d != %d", i, len(got), len(base))
		}
		for j := range got {
			a, b := got[j], base[j]
			if a.Code != b.Code || a.Setting != b.Setting || a.Description != b.Description ||
				!a.MedianStandard.Equal(b.MedianStandard) || !a.MedianNegotiated.Equal(b.MedianNegotiated) ||
				a.Count != b.Count {
				t.Fatalf("run %d group %d differs: %+v vs %+v", i, j, a, b)
			}
		}
	}
}

func TestAggregate_Filters(t *testing.T) {
	records := []model.PriceRecord{
		{Code: "99213", Setting: strPtr("outpatient"), NegotiatedCharge: money("100"), PlanName: strPtr("Medicare Advantage")},
		{Code: "99213", Setting: strPtr("outpatient"), NegotiatedCharge: money("300"), PlanName: strPtr("Commercial PPO")},
		{Code: "99213", Setting: strPtr("inpatient"), NegotiatedCharge: money("500")},
	}

	groups := Aggregate(records, nil, Options{Setting: "outpatient", ExcludePublicPayers: true})
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if !groups[0].MedianNegotiated.Equal(dec("300")) {
		t.Errorf("median: got %s, want 300", groups[0].MedianNegotiated)
	}
}

func TestAggregate_PublicPayerRules(t *testing.T) {
	records := []model.PriceRecord{
		{Code: "99213", NegotiatedCharge: money("100"), PlanName: strPtr("All Products")},
		{Code: "99213", NegotiatedCharge: money("900"), PlanName: strPtr("Aetna PPO")},
		{Code: "99213", NegotiatedCharge: money("50"), PlanName: strPtr("Medicare Advantage")},
	}
	tests := []struct {
		name     string
		hospital string
		exclude  bool
		median   string
		count    int
	}{
		{"all_products_hospital", "nch_data", true, "100", 1},
		{"other_hospital", "general_hospital", true, "500", 2},
		{"filter_off", "nch_data", false, "100", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups := Aggregate(records, nil, Options{Hospital: tt.hospital, ExcludePublicPayers: tt.exclude})
			if len(groups) != 1 {
				t.Fatalf("expected 1 group, got %d", len(groups))
			}
			if !groups[0].MedianNegotiated.Equal(dec(tt.median)) || groups[0].Count != tt.count {
				t.Errorf("got median %s count %d, want %s and %d",
					groups[0].MedianNegotiated, groups[0].Count, tt.median, tt.count)
			}
		})
	}
}

func TestTotals(t *testing.T) {
	groups := Aggregate(sampleRecords(), nil, Options{})
	std, neg := Totals(groups)
	// medians: 80053 unknown 90/37.5, 99213 inpatient 350/315,
	// 99213 outpatient 290/226, 99214 outpatient 400/360
	if !std.Equal(dec("1130")) {
		t.Errorf("standard total: got %s, want 1130", std)
	}
	if !neg.Equal(dec("938.5")) {
		t.Errorf("negotiated total: got %s, want 938.5", neg)
	}
}

func groupWith(median, billed string) Group {
	b := dec(billed)
	return Group{Code: "99213", Setting: "outpatient", MedianNegotiated: dec(median), Billed: &b}
}

func TestFlag(t *testing.T) {
	tests := []struct {
		name       string
		median     string
		billed     string
		percent    string
		suspicious bool
	}{
		{"twenty_percent", "200", "240", "20.0", true},
		{"five_percent", "200", "210", "5.0", false},
		{"exactly_threshold", "200", "220", "10.0", false},
		{"below_median", "200", "150", "0", false},
		{"equal_median", "200", "200", "0", false},
		{"zero_median", "0", "500", "0", false},
		{"rounding", "300", "400", "33.3", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			charges := Flag([]Group{groupWith(tt.median, tt.billed)}, DefaultThresholds())
			if len(charges) != 1 {
				t.Fatalf("expected 1 charge, got %d", len(charges))
			}
			c := charges[0]
			if !c.PercentAbove.Equal(dec(tt.percent)) {
				t.Errorf("PercentAbove: got %s, want %s", c.PercentAbove, tt.percent)
			}
			if c.Suspicious != tt.suspicious {
				t.Errorf("Suspicious: got %v, want %v", c.Suspicious, tt.suspicious)
			}
		})
	}
}

func TestFlag_SkipsUnbilledAndKeepsOrder(t *testing.T) {
	b1, b2 := dec("50"), dec("900")
	groups := []Group{
		{Code: "80053", MedianNegotiated: dec("40"), Billed: &b1},
		{Code: "85025", MedianNegotiated: dec("20")},
		{Code: "99213", MedianNegotiated: dec("226"), Billed: &b2},
	}
	charges := Flag(groups, DefaultThresholds())
	if len(charges) != 2 || charges[0].Code != "80053" || charges[1].Code != "99213" {
		t.Fatalf("unexpected charges: %+v", charges)
	}
	if !charges[0].Suspicious || !charges[1].Suspicious {
		t.Errorf("both should be suspicious: %+v", charges)
	}
	if got := Suspicious(charges); len(got) != 2 {
		t.Errorf("Suspicious: got %d", len(got))
	}
}

func TestFlag_CustomThreshold(t *testing.T) {
	th := Thresholds{SuspiciousRatio: dec("0.25")}
	charges := Flag([]Group{groupWith("200", "240")}, th)
	if charges[0].Suspicious {
		t.Error("20% should not exceed a 25% threshold")
	}
	if !charges[0].PercentAbove.Equal(dec("20")) {
		t.Errorf("PercentAbove: got %s", charges[0].PercentAbove)
	}
}

func TestFlag_ZeroRatioFlagsAnyOvercharge(t *testing.T) {
	th := Thresholds{SuspiciousRatio: decimal.Zero, CashFallbackFactor: dec("0.9")}
	charges := Flag([]Group{groupWith("200", "210"), groupWith("200", "200")}, th)
	if !charges[0].Suspicious {
		t.Error("5% above the median should be flagged with a zero ratio")
	}
	if charges[1].Suspicious {
		t.Error("a charge equal to the median is never suspicious")
	}
}

func TestAttachNotes_DisputeOnly(t *testing.T) {
	b1, b2 := dec("150"), dec("400")
	charges := Flag([]Group{
		{Code: "80053", MedianNegotiated: dec("200"), Billed: &b1},
		{Code: "99213", MedianNegotiated: dec("200"), Billed: &b2},
		{Code: "99214", MedianNegotiated: dec("200"), Billed: &b1},
	}, DefaultThresholds())

	AttachNotes(charges, map[string]string{"80053": "I never received this test", "12345": "ignored"})

	if !charges[0].DisputeOnly() {
		t.Error("80053 should be dispute-only")
	}
	if !charges[0].MedianNegotiated.Equal(dec("200")) {
		t.Error("notes must not alter medians")
	}
	if charges[1].DisputeOnly() {
		t.Error("suspicious charge is not dispute-only")
	}

	got := Disputable(charges)
	if len(got) != 2 || got[0].Code != "80053" || got[1].Code != "99213" {
		t.Errorf("Disputable: got %+v", got)
	}
}

func TestNaturalLess(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"99213", "99214", true},
		{"99214", "99213", false},
		{"J1100", "J10000", true},
		{"A9", "A10", true},
		{"80053", "80053", false},
		{"0100", "100", false},
		{"100", "0100", true},
		{"G0283", "99213", false},
	}
	for _, tt := range tests {
		if got := NaturalLess(tt.a, tt.b); got != tt.want {
			t.Errorf("NaturalLess(%q, %q): got %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSortSpec(t *testing.T) {
	spec, err := ParseSortSpec("negotiated", "desc")
	if err != nil {
		t.Fatalf("ParseSortSpec: %v", err)
	}
	records := []model.PriceRecord{
		{Code: "1", NegotiatedCharge: money("10")},
		{Code: "2"},
		{Code: "3", NegotiatedCharge: money("30")},
	}
	spec.Apply(records)
	if records[0].Code != "3" || records[1].Code != "1" || records[2].Code != "2" {
		t.Errorf("desc order: got %s %s %s", records[0].Code, records[1].Code, records[2].Code)
	}

	next := spec.Toggle(ColumnNegotiated)
	if next.Descending {
		t.Error("toggle of same column should flip to ascending")
	}
	if other := next.Toggle(ColumnCode); other.Column != ColumnCode || other.Descending {
		t.Errorf("new column should start ascending: %+v", other)
	}

	if _, err := ParseSortSpec("bogus", ""); err == nil {
		t.Error("expected error for unknown column")
	}
	if _, err := ParseSortSpec("code", "sideways"); err == nil {
		t.Error("expected error for unknown direction")
	}
}
