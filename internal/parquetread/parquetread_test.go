package parquetread

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"

	"github.com/gyeh/billcheck/internal/model"
)

func strPtr(s string) *string { return &s }

func writeFixture(t *testing.T, rows []model.HospitalChargeRow) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prices.parquet")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	w := parquet.NewGenericWriter[model.HospitalChargeRow](f)
	if _, err := w.Write(rows); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return path
}

func TestReader_Each(t *testing.T) {
	path := writeFixture(t, []model.HospitalChargeRow{
		{Description: "a", Setting: "outpatient", CPTCode: strPtr("99213"), HospitalName: "H"},
		{Description: "b", Setting: "inpatient", CPTCode: strPtr("80053"), HospitalName: "H"},
		{Description: "c", Setting: "", HCPCSCode: strPtr("G0283"), HospitalName: "H"},
	})

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	if r.NumRows() != 3 {
		t.Fatalf("NumRows: got %d, want 3", r.NumRows())
	}
	if err := ValidateSchema(r.Schema(), model.DefaultCodeTypes); err != nil {
		t.Fatalf("ValidateSchema: %v", err)
	}

	var descs []string
	var last int64
	err = r.Each(2, func(rowNum int64, row *model.HospitalChargeRow) error {
		descs = append(descs, row.Description)
		last = rowNum
		return nil
	})
	if err != nil {
		t.Fatalf("Each: %v", err)
	}
	if len(descs) != 3 || descs[2] != "c" || last != 3 {
		t.Errorf("unexpected rows: %v (last=%d)", descs, last)
	}
}

func TestReader_FirstThenStop(t *testing.T) {
	path := writeFixture(t, []model.HospitalChargeRow{
		{Description: "a", CPTCode: strPtr("99213"), HospitalName: "General", Version: "2.0"},
		{Description: "b", CPTCode: strPtr("80053"), HospitalName: "General"},
		{Description: "c", CPTCode: strPtr("36415"), HospitalName: "General"},
	})

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	first, err := r.First()
	if err != nil {
		t.Fatalf("First: %v", err)
	}
	if first.HospitalName != "General" || first.Version != "2.0" {
		t.Errorf("first row: %+v", first)
	}

	var seen []string
	err = r.Each(8, func(_ int64, row *model.HospitalChargeRow) error {
		seen = append(seen, row.Description)
		return ErrStop
	})
	if err != nil {
		t.Fatalf("Each with ErrStop: %v", err)
	}
	if len(seen) != 1 || seen[0] != "b" {
		t.Errorf("rows after First: got %v, want [b]", seen)
	}
}

func TestReader_FirstEmpty(t *testing.T) {
	r, err := Open(writeFixture(t, nil))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	if _, err := r.First(); !errors.Is(err, ErrNoRows) {
		t.Errorf("First on empty file: got %v, want ErrNoRows", err)
	}
}

func TestValidateSchema_UnknownCodeType(t *testing.T) {
	schema := parquet.SchemaOf(model.HospitalChargeRow{})
	if err := ValidateSchema(schema, []string{"BOGUS"}); err == nil {
		t.Fatal("expected error for unknown code type")
	}
}

func TestValidateSchema_MissingColumns(t *testing.T) {
	type noCodes struct {
		Description  string `parquet:"description"`
		Setting      string `parquet:"setting"`
		HospitalName string `parquet:"hospital_name"`
	}
	if err := ValidateSchema(parquet.SchemaOf(noCodes{}), []string{"CPT"}); err == nil {
		t.Fatal("expected error when no code column is present")
	}

	type noSetting struct {
		Description string `parquet:"description"`
	}
	if err := ValidateSchema(parquet.SchemaOf(noSetting{}), []string{"CPT"}); err == nil {
		t.Fatal("expected error when required columns are missing")
	}
}
