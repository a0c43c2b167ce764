package pivot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gyeh/billcheck/internal/model"
)

// NaturalLess compares strings treating embedded digit runs as numbers, so
// "J1100" sorts before "J10000" and "99213" before "99214".
func NaturalLess(a, b string) bool {
	for a != "" && b != "" {
		ra, rb := leadingDigits(a), leadingDigits(b)
		if ra != "" && rb != "" {
			na, nb := strings.TrimLeft(ra, "0"), strings.TrimLeft(rb, "0")
			if len(na) != len(nb) {
				return len(na) < len(nb)
			}
			if na != nb {
				return na < nb
			}
			if len(ra) != len(rb) {
				return len(ra) < len(rb)
			}
			a, b = a[len(ra):], b[len(rb):]
			continue
		}
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		a, b = a[1:], b[1:]
	}
	return len(a) < len(b)
}

func leadingDigits(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i]
}

// Column identifies a sortable column of a price search table.
type Column string

const (
	ColumnCode        Column = "code"
	ColumnDescription Column = "description"
	ColumnSetting     Column = "setting"
	ColumnStandard    Column = "standard"
	ColumnNegotiated  Column = "negotiated"
	ColumnCash        Column = "cash"
	ColumnPlan        Column = "plan"
)

// SortSpec is the sort state of one table instance. It is passed with each
// request rather than kept between requests.
type SortSpec struct {
	Column     Column `json:"column"`
	Descending bool   `json:"descending"`
}

// ParseSortSpec reads a column name and a direction ("asc" or "desc").
// An empty column yields the zero SortSpec, which leaves rows unsorted.
func ParseSortSpec(column, dir string) (SortSpec, error) {
	spec := SortSpec{Column: Column(strings.ToLower(strings.TrimSpace(column)))}
	switch spec.Column {
	case "", ColumnCode, ColumnDescription, ColumnSetting, ColumnStandard,
		ColumnNegotiated, ColumnCash, ColumnPlan:
	default:
		return SortSpec{}, fmt.Errorf("unknown sort column %q", column)
	}
	switch strings.ToLower(dir) {
	case "", "asc":
	case "desc":
		spec.Descending = true
	default:
		return SortSpec{}, fmt.Errorf("unknown sort direction %q", dir)
	}
	return spec, nil
}

// Toggle returns the spec that results from clicking col: the same column
// flips direction, a new column starts ascending.
func (s SortSpec) Toggle(col Column) SortSpec {
	if s.Column == col {
		return SortSpec{Column: col, Descending: !s.Descending}
	}
	return SortSpec{Column: col}
}

// Apply sorts records in place. Money columns compare numerically with
// missing values first; text columns compare as strings.
func (s SortSpec) Apply(records []model.PriceRecord) {
	if s.Column == "" {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		c := s.compare(&records[i], &records[j])
		if s.Descending {
			return c > 0
		}
		return c < 0
	})
}

func (s SortSpec) compare(a, b *model.PriceRecord) int {
	switch s.Column {
	case ColumnCode:
		switch {
		case NaturalLess(a.Code, b.Code):
			return -1
		case NaturalLess(b.Code, a.Code):
			return 1
		}
		return 0
	case ColumnDescription:
		return strings.Compare(deref(a.Description), deref(b.Description))
	case ColumnSetting:
		return strings.Compare(a.SettingOrUnknown(), b.SettingOrUnknown())
	case ColumnStandard:
		return compareNull(a.StandardCharge, b.StandardCharge)
	case ColumnNegotiated:
		return compareNull(a.NegotiatedCharge, b.NegotiatedCharge)
	case ColumnCash:
		return compareNull(a.CashCharge, b.CashCharge)
	case ColumnPlan:
		return strings.Compare(deref(a.PlanName), deref(b.PlanName))
	}
	return 0
}
