package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// UnknownSetting is the care setting assigned to records that carry none.
const UnknownSetting = "unknown"

// PriceRecord is one published price line for a procedure code, as read
// back from the price store. Money fields are null when the source had no
// value; zero and negative amounts are treated as absent by every consumer.
type PriceRecord struct {
	Code             string              `json:"code"`
	Setting          *string             `json:"setting,omitempty"`
	StandardCharge   decimal.NullDecimal `json:"standard_charge"`
	NegotiatedCharge decimal.NullDecimal `json:"negotiated_charge"`
	CashCharge       decimal.NullDecimal `json:"cash_charge"`
	Description      *string             `json:"description,omitempty"`
	PayerName        *string             `json:"payer_name,omitempty"`
	PlanName         *string             `json:"plan_name,omitempty"`
}

// SettingOrUnknown returns the record's care setting, or UnknownSetting when
// it is missing or blank.
func (r *PriceRecord) SettingOrUnknown() string {
	if r.Setting == nil || strings.TrimSpace(*r.Setting) == "" {
		return UnknownSetting
	}
	return *r.Setting
}

// BilledCharge is the amount a patient was billed for one code.
type BilledCharge struct {
	Code   string          `json:"code"`
	Amount decimal.Decimal `json:"amount"`
}
