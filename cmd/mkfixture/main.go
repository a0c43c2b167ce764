// mkfixture cuts a small price-file fixture out of a full hospital Parquet
// file. It scans every row once, fills a quota per trait the reconciliation
// tests care about, then tops up with ordinary rows.
// Usage: go run ./cmd/mkfixture --in testdata/nch.parquet --out testdata/nch-small.parquet --rows 200
package main

import (
	"flag"
	"fmt"
	"os"

	goparquet "github.com/parquet-go/parquet-go"

	"github.com/gyeh/billcheck/internal/model"
	"github.com/gyeh/billcheck/internal/normalize"
	"github.com/gyeh/billcheck/internal/parquetread"
)

type bucket struct {
	name  string
	want  int
	match func(*model.HospitalChargeRow) bool
	rows  []model.HospitalChargeRow
}

func hasCode(name string) func(*model.HospitalChargeRow) bool {
	return func(r *model.HospitalChargeRow) bool {
		return normalize.NormalizeCode(r.CodeValues()[name]) != nil
	}
}

func positive(v *float64) bool { return v != nil && *v > 0 }

func newBuckets() []*bucket {
	return []*bucket{
		{name: "CPT", want: 60, match: hasCode("CPT")},
		{name: "HCPCS", want: 30, match: hasCode("HCPCS")},
		{name: "public_payer", want: 20, match: func(r *model.HospitalChargeRow) bool {
			return normalize.IsPublicPayerPlan(r.PlanName)
		}},
		{name: "cash_only", want: 15, match: func(r *model.HospitalChargeRow) bool {
			return !positive(r.NegotiatedDollar) && positive(r.DiscountedCash)
		}},
		{name: "gross_only", want: 15, match: func(r *model.HospitalChargeRow) bool {
			return !positive(r.NegotiatedDollar) && !positive(r.DiscountedCash) && positive(r.GrossCharge)
		}},
		{name: "no_setting", want: 10, match: func(r *model.HospitalChargeRow) bool {
			return r.Setting == ""
		}},
	}
}

func main() {
	in := flag.String("in", "testdata/nch.parquet", "input parquet")
	out := flag.String("out", "testdata/nch-small.parquet", "output parquet")
	maxRows := flag.Int("rows", 200, "max rows to output")
	checkOnly := flag.Bool("check", false, "only print trait counts, don't write")
	flag.Parse()

	reader, err := parquetread.Open(*in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open input: %v\n", err)
		os.Exit(1)
	}
	defer reader.Close()

	buckets := newBuckets()
	counts := make(map[string]int)
	var general []model.HospitalChargeRow
	var total int

	err = reader.Each(1024, func(_ int64, row *model.HospitalChargeRow) error {
		total++
		placed := false
		for _, b := range buckets {
			if !b.match(row) {
				continue
			}
			counts[b.name]++
			if !*checkOnly && len(b.rows) < b.want {
				b.rows = append(b.rows, *row)
				placed = true
				break
			}
		}
		if !*checkOnly && !placed && len(general) < *maxRows {
			general = append(general, *row)
		}
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "read: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Scanned %d rows\n", total)
	if *checkOnly {
		for _, b := range buckets {
			fmt.Printf("  %-13s %d\n", b.name, counts[b.name])
		}
		return
	}

	// Trait buckets first, in priority order, then ordinary rows.
	var selected []model.HospitalChargeRow
	for _, b := range buckets {
		for _, row := range b.rows {
			if len(selected) >= *maxRows {
				break
			}
			selected = append(selected, row)
		}
	}
	for _, row := range general {
		if len(selected) >= *maxRows {
			break
		}
		selected = append(selected, row)
	}

	outFile, err := os.Create(*out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create output: %v\n", err)
		os.Exit(1)
	}
	defer outFile.Close()

	writer := goparquet.NewGenericWriter[model.HospitalChargeRow](outFile)
	if _, err := writer.Write(selected); err != nil {
		fmt.Fprintf(os.Stderr, "write: %v\n", err)
		os.Exit(1)
	}
	if err := writer.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "close writer: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %d rows to %s\n", len(selected), *out)
	for _, b := range buckets {
		fmt.Printf("  %-13s %d of %d wanted\n", b.name, len(b.rows), b.want)
	}
}
