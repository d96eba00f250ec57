package contract

import (
	"context"

	"contractorpay/internal/domain/payroll"
)

// Service exposes provider and contract management and adapts stored
// contracts into the terms the pay calculator consumes.
type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

func (s *Service) CreateProvider(ctx context.Context, p Provider) (Provider, error) {
	if p.Status == "" {
		p.Status = ProviderStatusActive
	}
	id, err := s.store.CreateProvider(ctx, p)
	if err != nil {
		return Provider{}, err
	}
	return s.store.Provider(ctx, p.CompanyID, id)
}

func (s *Service) Provider(ctx context.Context, companyID, providerID string) (Provider, error) {
	return s.store.Provider(ctx, companyID, providerID)
}

func (s *Service) ListProviders(ctx context.Context, companyID string, limit, offset int) ([]Provider, int, error) {
	return s.store.ListProviders(ctx, companyID, limit, offset)
}

func (s *Service) UpdateProvider(ctx context.Context, p Provider) (Provider, error) {
	if err := s.store.UpdateProvider(ctx, p); err != nil {
		return Provider{}, err
	}
	return s.store.Provider(ctx, p.CompanyID, p.ID)
}

func (s *Service) UpsertContract(ctx context.Context, c Contract) (Contract, error) {
	if _, err := s.store.Provider(ctx, c.CompanyID, c.ProviderID); err != nil {
		return Contract{}, err
	}
	return s.store.UpsertContract(ctx, c)
}

func (s *Service) ContractByProvider(ctx context.Context, companyID, providerID string) (Contract, error) {
	return s.store.ContractByProvider(ctx, companyID, providerID)
}

// TermsByProvider satisfies payroll.ContractSource.
func (s *Service) TermsByProvider(ctx context.Context, companyID, providerID string) (payroll.ContractTerms, error) {
	c, err := s.store.ContractByProvider(ctx, companyID, providerID)
	if err != nil {
		return payroll.ContractTerms{}, err
	}
	return payroll.ContractTerms{
		ProviderID:         c.ProviderID,
		MonthlyValue:       c.MonthlyValue,
		MonthlyHours:       c.MonthlyHours,
		AdvanceEnabled:     c.AdvanceEnabled,
		AdvancePct:         c.AdvancePct,
		PaymentMethod:      c.PaymentMethod,
		VoucherEligible:    c.VoucherEligible,
		VoucherFare:        c.VoucherFare,
		VoucherTripsPerDay: c.VoucherTripsPerDay,
		VoucherFixedAmount: c.VoucherFixedAmount,
	}, nil
}
