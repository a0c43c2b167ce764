package stats

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func f(v float64) *float64 { return &v }

func nd(v float64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromFloat(v))
}

func TestMedianFloats(t *testing.T) {
	tests := []struct {
		name   string
		values []*float64
		want   string
	}{
		{"empty", nil, "0"},
		{"single", []*float64{f(5)}, "5"},
		{"even", []*float64{f(1), f(2), f(3), f(4)}, "2.5"},
		{"odd_unsorted", []*float64{f(9), f(1), f(4)}, "4"},
		{"filters_invalid", []*float64{f(0), f(-1), f(5), nil, f(math.NaN()), f(10)}, "7.5"},
		{"all_invalid", []*float64{f(0), f(-3), nil}, "0"},
		{"infinity_dropped", []*float64{f(math.Inf(1)), f(3)}, "3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MedianFloats(tt.values)
			want := decimal.RequireFromString(tt.want)
			if !got.Equal(want) {
				t.Errorf("MedianFloats: got %s, want %s", got, want)
			}
		})
	}
}

func TestMedian_SkipsNull(t *testing.T) {
	got := Median([]decimal.NullDecimal{nd(200), {}, nd(252)})
	if !got.Equal(decimal.NewFromInt(226)) {
		t.Errorf("got %s, want 226", got)
	}
}

func TestMedian_DoesNotMutateInput(t *testing.T) {
	in := []decimal.NullDecimal{nd(3), nd(1), nd(2)}
	Median(in)
	if !in[0].Decimal.Equal(decimal.NewFromInt(3)) {
		t.Errorf("input reordered: %v", in)
	}
}

func TestSum(t *testing.T) {
	got := Sum([]decimal.Decimal{decimal.NewFromInt(290), decimal.RequireFromString("226.5")})
	if !got.Equal(decimal.RequireFromString("516.5")) {
		t.Errorf("got %s", got)
	}
}
