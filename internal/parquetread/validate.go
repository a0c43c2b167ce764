package parquetread

import (
	"fmt"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/gyeh/billcheck/internal/model"
)

var chargeColumns = []string{"gross_charge", "discounted_cash", "negotiated_dollar"}

// ValidateSchema checks that the Parquet schema contains the required
// columns, at least one of the requested code columns and at least one
// charge column. codeTypes names the code types the caller will load.
func ValidateSchema(schema *parquet.Schema, codeTypes []string) error {
	columns := make(map[string]bool)
	for _, field := range schema.Fields() {
		columns[strings.ToLower(field.Name())] = true
	}

	for _, col := range []string{"description", "setting", "hospital_name"} {
		if !columns[col] {
			return fmt.Errorf("missing required column: %s", col)
		}
	}

	var codeCols []string
	hasCode := false
	for _, name := range codeTypes {
		ct, ok := model.CodeTypeByName(name)
		if !ok {
			return fmt.Errorf("unknown code type %q", name)
		}
		codeCols = append(codeCols, ct.Column)
		if columns[ct.Column] {
			hasCode = true
		}
	}
	if !hasCode {
		return fmt.Errorf("no code columns found; need at least one of: %s",
			strings.Join(codeCols, ", "))
	}

	for _, col := range chargeColumns {
		if columns[col] {
			return nil
		}
	}
	return fmt.Errorf("no charge columns found; need at least one of: %s",
		strings.Join(chargeColumns, ", "))
}
