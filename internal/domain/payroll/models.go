package payroll

import (
	"time"

	"github.com/shopspring/decimal"

	"contractorpay/internal/domain/calendar"
)

// ContractTerms is the slice of a provider's contract the calculator reads.
// It is owned by the contract entity and read-only to the engine.
type ContractTerms struct {
	ProviderID         string          `json:"providerId"`
	MonthlyValue       decimal.Decimal `json:"monthlyValue"`
	MonthlyHours       decimal.Decimal `json:"monthlyHours"`
	AdvanceEnabled     bool            `json:"advanceEnabled"`
	AdvancePct         decimal.Decimal `json:"advancePct"`
	PaymentMethod      string          `json:"paymentMethod"`
	VoucherEligible    bool            `json:"voucherEligible"`
	VoucherFare        decimal.Decimal `json:"voucherFare"`
	VoucherTripsPerDay int             `json:"voucherTripsPerDay"`
	VoucherFixedAmount decimal.Decimal `json:"voucherFixedAmount"`
}

func (t ContractTerms) Validate() error {
	if !t.MonthlyHours.IsPositive() {
		return &ValidationError{Field: "monthlyHours", Reason: "must be greater than zero"}
	}
	if t.MonthlyValue.IsNegative() {
		return &ValidationError{Field: "monthlyValue", Reason: "must not be negative"}
	}
	if t.AdvancePct.IsNegative() {
		return &ValidationError{Field: "advancePct", Reason: "must not be negative"}
	}
	if t.VoucherFare.IsNegative() {
		return &ValidationError{Field: "voucherFare", Reason: "must not be negative"}
	}
	if t.VoucherTripsPerDay < 0 {
		return &ValidationError{Field: "voucherTripsPerDay", Reason: "must not be negative"}
	}
	if t.VoucherFixedAmount.IsNegative() {
		return &ValidationError{Field: "voucherFixedAmount", Reason: "must not be negative"}
	}
	return nil
}

// PeriodInputs carries the worked-time figures reported for one reference
// period. Numeric fields default to zero and must never be negative; the
// whole struct is validated in a single pass before calculation starts.
type PeriodInputs struct {
	Period         calendar.Period `json:"-"`
	HireDate       *time.Time      `json:"hireDate,omitempty"`
	OvertimeHours  decimal.Decimal `json:"overtimeHours"`
	HolidayHours   decimal.Decimal `json:"holidayHours"`
	NightHours     decimal.Decimal `json:"nightHours"`
	LateMinutes    int             `json:"lateMinutes"`
	AbsenceDays    int             `json:"absenceDays"`
	ManualDiscount decimal.Decimal `json:"manualDiscount"`
	Notes          string          `json:"notes"`
}

func (in PeriodInputs) Validate() error {
	if in.Period.IsZero() {
		return &ValidationError{Field: "period", Reason: "reference period is required"}
	}
	if in.OvertimeHours.IsNegative() {
		return &ValidationError{Field: "overtimeHours", Reason: "must not be negative"}
	}
	if in.HolidayHours.IsNegative() {
		return &ValidationError{Field: "holidayHours", Reason: "must not be negative"}
	}
	if in.NightHours.IsNegative() {
		return &ValidationError{Field: "nightHours", Reason: "must not be negative"}
	}
	if in.ManualDiscount.IsNegative() {
		return &ValidationError{Field: "manualDiscount", Reason: "must not be negative"}
	}
	if in.LateMinutes < 0 {
		return &ValidationError{Field: "lateMinutes", Reason: "must not be negative"}
	}
	if in.AbsenceDays < 0 {
		return &ValidationError{Field: "absenceDays", Reason: "must not be negative"}
	}
	return nil
}

// LineItem is one signed entry on the pay record, preserved for audit,
// payslip rendering and register export.
type LineItem struct {
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// Record is the itemized pay record for one provider and one reference
// period. Every intermediate amount is preserved as a named field; gross and
// net are always recomputed from the line items, never hand-edited.
type Record struct {
	ID         string          `json:"id"`
	CompanyID  string          `json:"companyId"`
	ProviderID string          `json:"providerId"`
	Period     calendar.Period `json:"period"`
	Status     string          `json:"status"`

	Base                decimal.Decimal `json:"base"`
	ProportionalCut     decimal.Decimal `json:"proportionalCut"`
	OvertimeAmount      decimal.Decimal `json:"overtimeAmount"`
	HolidayAmount       decimal.Decimal `json:"holidayAmount"`
	NightAmount         decimal.Decimal `json:"nightAmount"`
	DSRAmount           decimal.Decimal `json:"dsrAmount"`
	AdvanceAmount       decimal.Decimal `json:"advanceAmount"`
	LateDiscount        decimal.Decimal `json:"lateDiscount"`
	AbsenceDiscount     decimal.Decimal `json:"absenceDiscount"`
	DSROnAbsence        decimal.Decimal `json:"dsrOnAbsence"`
	VoucherDeduction    decimal.Decimal `json:"voucherDeduction"`
	VoucherSettledApart bool            `json:"voucherSettledApart"`
	ManualDiscount      decimal.Decimal `json:"manualDiscount"`
	Gross               decimal.Decimal `json:"gross"`
	Net                 decimal.Decimal `json:"net"`

	Inputs   PeriodInputs `json:"inputs"`
	Lines    []LineItem   `json:"lines"`
	Warnings []string     `json:"warnings,omitempty"`

	ClosedAt *time.Time `json:"closedAt,omitempty"`
	PaidAt   *time.Time `json:"paidAt,omitempty"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RegisterRow is one line of the period pay register export.
type RegisterRow struct {
	ProviderID   string
	ProviderName string
	Period       string
	Gross        decimal.Decimal
	Deductions   decimal.Decimal
	Net          decimal.Decimal
	Status       string
}

// PeriodSummary aggregates a company's records for one reference period.
type PeriodSummary struct {
	TotalGross    decimal.Decimal `json:"totalGross"`
	TotalNet      decimal.Decimal `json:"totalNet"`
	ProviderCount int             `json:"providerCount"`
	Warnings      map[string]int  `json:"warnings"`
}

// Filter narrows record listings.
type Filter struct {
	ProviderID string
	Period     string
	Status     string
}
