package policy

import (
	"time"

	"github.com/shopspring/decimal"

	"contractorpay/internal/domain/calendar"
	"contractorpay/internal/domain/voucher"
)

// DSRMethod selects which rest-day premium formula applies. Both methods are
// live in the field and the choice is part of the company policy.
type DSRMethod string

const (
	// DSRCalendar spreads variable premiums over rest days:
	// (overtime + holiday) / work_days * rest_days.
	DSRCalendar DSRMethod = "CALENDAR"
	// DSRFixedRate applies the flat one-sixth (~16.67%) rate to overtime only.
	DSRFixedRate DSRMethod = "FIXED_RATE"
)

func (m DSRMethod) Valid() bool {
	return m == DSRCalendar || m == DSRFixedRate
}

// CalculationPolicy is the effective parameter set handed to the calculator.
// Resolution always yields fully materialized values regardless of whether
// they came from a template or from company-local overrides.
type CalculationPolicy struct {
	CompanyID                string          `json:"companyId"`
	TemplateID               string          `json:"templateId,omitempty"`
	OvertimePct              decimal.Decimal `json:"overtimePct"`
	NightShiftPct            decimal.Decimal `json:"nightShiftPct"`
	HolidayPct               decimal.Decimal `json:"holidayPct"`
	AdvancePct               decimal.Decimal `json:"advancePct"`
	VoucherMode              voucher.Mode    `json:"voucherMode"`
	VoucherSettledSeparately bool            `json:"voucherSettledSeparately"`
	BusinessDaysRule         calendar.Rule   `json:"businessDaysRule"`
	DSRMethod                DSRMethod       `json:"dsrMethod"`
	UpdatedAt                time.Time       `json:"updatedAt"`
}

// Template is a named, reusable parameter set a company can adopt. The
// default template is protected: it cannot be edited or deleted.
type Template struct {
	ID                       string          `json:"id"`
	Name                     string          `json:"name"`
	IsDefault                bool            `json:"isDefault"`
	OvertimePct              decimal.Decimal `json:"overtimePct"`
	NightShiftPct            decimal.Decimal `json:"nightShiftPct"`
	HolidayPct               decimal.Decimal `json:"holidayPct"`
	AdvancePct               decimal.Decimal `json:"advancePct"`
	VoucherMode              voucher.Mode    `json:"voucherMode"`
	VoucherSettledSeparately bool            `json:"voucherSettledSeparately"`
	BusinessDaysRule         calendar.Rule   `json:"businessDaysRule"`
	DSRMethod                DSRMethod       `json:"dsrMethod"`
	CreatedAt                time.Time       `json:"createdAt"`
}

// Update carries a partial, company-local policy edit. Nil fields keep their
// current value.
type Update struct {
	OvertimePct              *decimal.Decimal `json:"overtimePct"`
	NightShiftPct            *decimal.Decimal `json:"nightShiftPct"`
	HolidayPct               *decimal.Decimal `json:"holidayPct"`
	AdvancePct               *decimal.Decimal `json:"advancePct"`
	VoucherMode              *voucher.Mode    `json:"voucherMode"`
	VoucherSettledSeparately *bool            `json:"voucherSettledSeparately"`
	BusinessDaysRule         *calendar.Rule   `json:"businessDaysRule"`
	DSRMethod                *DSRMethod       `json:"dsrMethod"`
}

// Materialize copies the template values into a company-owned policy. Later
// template edits never touch the copy.
func (t Template) Materialize(companyID string) CalculationPolicy {
	return CalculationPolicy{
		CompanyID:                companyID,
		TemplateID:               t.ID,
		OvertimePct:              t.OvertimePct,
		NightShiftPct:            t.NightShiftPct,
		HolidayPct:               t.HolidayPct,
		AdvancePct:               t.AdvancePct,
		VoucherMode:              t.VoucherMode,
		VoucherSettledSeparately: t.VoucherSettledSeparately,
		BusinessDaysRule:         t.BusinessDaysRule,
		DSRMethod:                t.DSRMethod,
	}
}

func (p CalculationPolicy) Validate() error {
	for field, pct := range map[string]decimal.Decimal{
		"overtimePct":   p.OvertimePct,
		"nightShiftPct": p.NightShiftPct,
		"holidayPct":    p.HolidayPct,
		"advancePct":    p.AdvancePct,
	} {
		if pct.IsNegative() {
			return &ValidationError{Field: field, Reason: "percentage must not be negative"}
		}
	}
	if !p.VoucherMode.Valid() {
		return &ConfigurationError{Reason: "unknown voucher mode " + string(p.VoucherMode)}
	}
	if !p.BusinessDaysRule.Valid() {
		return &ConfigurationError{Reason: "unknown business days rule " + string(p.BusinessDaysRule)}
	}
	if !p.DSRMethod.Valid() {
		return &ConfigurationError{Reason: "unknown dsr method " + string(p.DSRMethod)}
	}
	return nil
}
