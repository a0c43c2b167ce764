package model

// CodeType represents one of the supported CMS-defined billing code types.
type CodeType struct {
	Name   string // e.g. "CPT"
	Column string // parquet column name, e.g. "cpt_code"
}

// AllCodeTypes lists the supported CMS-defined code types in canonical order.
var AllCodeTypes = []CodeType{
	{Name: "CPT", Column: "cpt_code"},
	{Name: "HCPCS", Column: "hcpcs_code"},
	{Name: "MS-DRG", Column: "ms_drg_code"},
	{Name: "NDC", Column: "ndc_code"},
	{Name: "CDT", Column: "cdt_code"},
}

// DefaultCodeTypes are the code types a patient bill is reconciled against.
var DefaultCodeTypes = []string{"CPT", "HCPCS"}

// CodeTypeColumns returns just the column names for all code types.
func CodeTypeColumns() []string {
	cols := make([]string, len(AllCodeTypes))
	for i, ct := range AllCodeTypes {
		cols[i] = ct.Column
	}
	return cols
}

// CodeTypeByName returns the CodeType for the given name, or ok=false.
func CodeTypeByName(name string) (CodeType, bool) {
	for _, ct := range AllCodeTypes {
		if ct.Name == name {
			return ct, true
		}
	}
	return CodeType{}, false
}
