package payroll

import (
	"context"
	"errors"
	"time"

	"contractorpay/internal/domain/calendar"
	"contractorpay/internal/domain/policy"
)

// ContractSource hands the calculator a provider's current contract terms.
type ContractSource interface {
	TermsByProvider(ctx context.Context, companyID, providerID string) (ContractTerms, error)
}

// Service orchestrates calculation, persistence and the record lifecycle.
// All mutations go through version-checked store updates.
type Service struct {
	store     StoreAPI
	policies  *policy.Resolver
	contracts ContractSource
	now       func() time.Time
}

func NewService(store StoreAPI, policies *policy.Resolver, contracts ContractSource) *Service {
	return &Service{store: store, policies: policies, contracts: contracts, now: time.Now}
}

// CreateRecord calculates and persists a new draft record for the provider
// and period. A second record for the same pair is rejected.
func (s *Service) CreateRecord(ctx context.Context, companyID, providerID string, in PeriodInputs) (Record, error) {
	rec, err := s.compute(ctx, companyID, providerID, in)
	if err != nil {
		return Record{}, err
	}
	if err := s.store.Insert(ctx, &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Recalculate replaces a draft record's inputs and rebuilds every amount from
// scratch. The record's identity, period and version survive; closed and paid
// records must be reopened first.
func (s *Service) Recalculate(ctx context.Context, companyID, recordID string, in PeriodInputs) (Record, error) {
	current, err := s.store.ByID(ctx, companyID, recordID)
	if err != nil {
		return Record{}, err
	}
	if !current.CanRecalculate() {
		return Record{}, &StateTransitionError{Current: current.Status, Attempted: StatusDraft}
	}

	in.Period = current.Period
	fresh, err := s.compute(ctx, companyID, current.ProviderID, in)
	if err != nil {
		return Record{}, err
	}
	fresh.ID = current.ID
	fresh.Version = current.Version
	fresh.CreatedAt = current.CreatedAt
	if err := s.store.Update(ctx, &fresh); err != nil {
		return Record{}, err
	}
	return fresh, nil
}

// Close moves a draft record to closed. The caller's version must match the
// stored one or the operation fails with ErrVersionConflict.
func (s *Service) Close(ctx context.Context, companyID, recordID string, version int) (Record, error) {
	return s.transition(ctx, companyID, recordID, version, func(rec *Record) error {
		return rec.Close(s.now())
	})
}

// MarkPaid moves a closed record to paid.
func (s *Service) MarkPaid(ctx context.Context, companyID, recordID string, version int) (Record, error) {
	return s.transition(ctx, companyID, recordID, version, func(rec *Record) error {
		return rec.MarkPaid(s.now())
	})
}

// Reopen returns a closed or paid record to draft.
func (s *Service) Reopen(ctx context.Context, companyID, recordID string, version int) (Record, error) {
	return s.transition(ctx, companyID, recordID, version, func(rec *Record) error {
		return rec.Reopen()
	})
}

func (s *Service) Record(ctx context.Context, companyID, recordID string) (Record, error) {
	return s.store.ByID(ctx, companyID, recordID)
}

func (s *Service) ListRecords(ctx context.Context, companyID string, filter Filter, limit, offset int) ([]Record, int, error) {
	return s.store.List(ctx, companyID, filter, limit, offset)
}

func (s *Service) Register(ctx context.Context, companyID, period string) ([]RegisterRow, error) {
	return s.store.RegisterRows(ctx, companyID, period)
}

func (s *Service) Summary(ctx context.Context, companyID, period string) (PeriodSummary, error) {
	return s.store.PeriodSummary(ctx, companyID, period)
}

// Preview calculates without persisting anything.
func (s *Service) Preview(ctx context.Context, companyID, providerID string, in PeriodInputs) (Record, error) {
	return s.compute(ctx, companyID, providerID, in)
}

func (s *Service) compute(ctx context.Context, companyID, providerID string, in PeriodInputs) (Record, error) {
	terms, err := s.contracts.TermsByProvider(ctx, companyID, providerID)
	if err != nil {
		return Record{}, err
	}
	pol, err := s.policies.Resolve(ctx, companyID)
	if err != nil {
		return Record{}, wrapPolicyError(err)
	}
	facts, err := calendar.Resolve(in.Period, pol.BusinessDaysRule, in.HireDate)
	if err != nil {
		return Record{}, &ConfigurationError{Reason: err.Error()}
	}
	rec, err := Calculate(terms, in, pol, facts)
	if err != nil {
		return Record{}, wrapPolicyError(err)
	}
	rec.CompanyID = companyID
	rec.ProviderID = providerID
	return rec, nil
}

func (s *Service) transition(ctx context.Context, companyID, recordID string, version int, apply func(*Record) error) (Record, error) {
	rec, err := s.store.ByID(ctx, companyID, recordID)
	if err != nil {
		return Record{}, err
	}
	if rec.Version != version {
		return Record{}, ErrVersionConflict
	}
	if err := apply(&rec); err != nil {
		return Record{}, err
	}
	if err := s.store.Update(ctx, &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// wrapPolicyError folds policy-level failures into this package's error
// kinds so callers map a single taxonomy to transport codes.
func wrapPolicyError(err error) error {
	var polValidation *policy.ValidationError
	if errors.As(err, &polValidation) {
		return &ValidationError{Field: polValidation.Field, Reason: polValidation.Reason}
	}
	var polConfig *policy.ConfigurationError
	if errors.As(err, &polConfig) {
		return &ConfigurationError{Reason: polConfig.Reason}
	}
	return err
}
