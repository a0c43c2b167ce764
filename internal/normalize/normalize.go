package normalize

import (
	"github.com/google/uuid"

	"github.com/gyeh/billcheck/internal/model"
)

// RowContext carries the per-file identifiers stamped onto every PriceRow.
type RowContext struct {
	PriceFileID   int64
	IngestBatchID uuid.UUID
	HospitalKey   string
	// CodeTypes restricts which code columns are exploded into price rows.
	CodeTypes []string
}

// ToPriceRows converts a Parquet-read HospitalChargeRow into one PriceRow per
// populated code column listed in rc.CodeTypes. A row with none of those
// codes yields no rows.
func ToPriceRows(row *model.HospitalChargeRow, rc RowContext, rowNum int64) []*model.PriceRow {
	codes := row.CodeValues()
	hash := RowHashFromValues(rowNum,
		row.Description,
		row.Setting,
		derefStr(row.PayerName),
		derefStr(row.PlanName),
		derefStr(row.CPTCode),
		derefStr(row.HCPCSCode),
	)

	var out []*model.PriceRow
	for _, name := range rc.CodeTypes {
		code := NormalizeCode(codes[name])
		if code == nil {
			continue
		}
		out = append(out, &model.PriceRow{
			PriceFileID:     rc.PriceFileID,
			IngestBatchID:   rc.IngestBatchID,
			HospitalKey:     rc.HospitalKey,
			SourceRowNumber: rowNum,
			SourceRowHash:   hash,

			CodeType:    name,
			Code:        *code,
			Setting:     optStr(row.Setting),
			Description: optStr(row.Description),

			PayerName:    row.PayerName,
			PlanName:     row.PlanName,
			PlanNameNorm: NormalizeName(row.PlanName),
			BillingClass: row.BillingClass,

			StandardChargeCents:   DollarsToCents(row.GrossCharge),
			NegotiatedChargeCents: DollarsToCents(row.NegotiatedDollar),
			CashChargeCents:       DollarsToCents(row.DiscountedCash),
			MinChargeCents:        DollarsToCents(row.MinCharge),
			MaxChargeCents:        DollarsToCents(row.MaxCharge),
		})
	}
	return out
}

func optStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
