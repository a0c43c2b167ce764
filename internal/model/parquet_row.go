package model

// HospitalChargeRow mirrors the Parquet schema for a single charge line of a
// hospital price transparency file. Only the columns the price store keeps
// are mapped. Money fields are float64 matching the Parquet representation;
// they get converted to integer cents during normalization.
type HospitalChargeRow struct {
	Description string `parquet:"description"`
	Setting     string `parquet:"setting"`

	CPTCode   *string `parquet:"cpt_code,optional"`
	HCPCSCode *string `parquet:"hcpcs_code,optional"`
	MSDRGCode *string `parquet:"ms_drg_code,optional"`
	NDCCode   *string `parquet:"ndc_code,optional"`
	CDTCode   *string `parquet:"cdt_code,optional"`

	PayerName *string `parquet:"payer_name,optional"`
	PlanName  *string `parquet:"plan_name,optional"`

	GrossCharge      *float64 `parquet:"gross_charge,optional"`
	DiscountedCash   *float64 `parquet:"discounted_cash,optional"`
	NegotiatedDollar *float64 `parquet:"negotiated_dollar,optional"`
	MinCharge        *float64 `parquet:"min_charge,optional"`
	MaxCharge        *float64 `parquet:"max_charge,optional"`

	BillingClass *string `parquet:"billing_class,optional"`

	HospitalName  string `parquet:"hospital_name"`
	LastUpdatedOn string `parquet:"last_updated_on"`
	Version       string `parquet:"version"`
}

// CodeValues returns a map of code_type_name -> *string for the mapped code columns.
func (r *HospitalChargeRow) CodeValues() map[string]*string {
	return map[string]*string{
		"CPT":    r.CPTCode,
		"HCPCS":  r.HCPCSCode,
		"MS-DRG": r.MSDRGCode,
		"NDC":    r.NDCCode,
		"CDT":    r.CDTCode,
	}
}
