package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceRow is the normalized, DB-ready representation of one price line for
// one code. A source row carrying several codes becomes several PriceRows.
// Money values are stored as int64 cents.
type PriceRow struct {
	PriceFileID     int64
	IngestBatchID   uuid.UUID
	HospitalKey     string
	SourceRowNumber int64
	SourceRowHash   []byte

	CodeType    string
	Code        string
	Setting     *string
	Description *string

	PayerName    *string
	PlanName     *string
	PlanNameNorm *string
	BillingClass *string

	StandardChargeCents   *int64
	NegotiatedChargeCents *int64
	CashChargeCents       *int64
	MinChargeCents        *int64
	MaxChargeCents        *int64
}

// PriceColumns returns the ordered column names for COPY into billing.price_records.
func PriceColumns() []string {
	return []string{
		"price_file_id",
		"ingest_batch_id",
		"hospital_key",
		"source_row_number",
		"source_row_hash",
		"code_type",
		"code",
		"setting",
		"description",
		"payer_name",
		"plan_name",
		"plan_name_norm",
		"billing_class",
		"standard_charge_cents",
		"negotiated_charge_cents",
		"cash_charge_cents",
		"min_charge_cents",
		"max_charge_cents",
	}
}

// CopyValues returns the row values in the same order as PriceColumns(),
// suitable for pgx CopyFromSource.
func (r *PriceRow) CopyValues() []any {
	return []any{
		r.PriceFileID,
		r.IngestBatchID,
		r.HospitalKey,
		r.SourceRowNumber,
		r.SourceRowHash,
		r.CodeType,
		r.Code,
		r.Setting,
		r.Description,
		r.PayerName,
		r.PlanName,
		r.PlanNameNorm,
		r.BillingClass,
		r.StandardChargeCents,
		r.NegotiatedChargeCents,
		r.CashChargeCents,
		r.MinChargeCents,
		r.MaxChargeCents,
	}
}

// Record converts the stored row into the PriceRecord the reconciliation
// engine works on.
func (r *PriceRow) Record() PriceRecord {
	return PriceRecord{
		Code:             r.Code,
		Setting:          r.Setting,
		StandardCharge:   CentsToNullDecimal(r.StandardChargeCents),
		NegotiatedCharge: CentsToNullDecimal(r.NegotiatedChargeCents),
		CashCharge:       CentsToNullDecimal(r.CashChargeCents),
		Description:      r.Description,
		PayerName:        r.PayerName,
		PlanName:         r.PlanName,
	}
}

// CentsToNullDecimal converts nullable integer cents to a nullable dollar decimal.
func CentsToNullDecimal(c *int64) decimal.NullDecimal {
	if c == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.New(*c, -2))
}
