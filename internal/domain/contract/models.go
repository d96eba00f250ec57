package contract

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrProviderNotFound = errors.New("provider not found")
	ErrContractNotFound = errors.New("provider has no active contract")
)

const (
	ProviderStatusActive   = "active"
	ProviderStatusInactive = "inactive"
)

// Provider is a contracted service provider of a company.
type Provider struct {
	ID        string     `json:"id"`
	CompanyID string     `json:"companyId"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Document  string     `json:"document,omitempty"`
	HireDate  *time.Time `json:"hireDate,omitempty"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Contract carries the commercial terms the pay calculation reads. One
// active contract per provider.
type Contract struct {
	ID                 string          `json:"id"`
	CompanyID          string          `json:"companyId"`
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
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}
