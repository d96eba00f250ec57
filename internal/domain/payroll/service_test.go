package payroll

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"contractorpay/internal/domain/calendar"
	"contractorpay/internal/domain/policy"
	"contractorpay/internal/domain/voucher"
)

type fakeStore struct {
	records map[string]Record
	nextID  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string]Record{}}
}

func (f *fakeStore) Insert(_ context.Context, rec *Record) error {
	for _, existing := range f.records {
		if existing.ProviderID == rec.ProviderID && existing.Period == rec.Period {
			return ErrRecordExists
		}
	}
	f.nextID++
	rec.ID = fmt.Sprintf("rec-%d", f.nextID)
	rec.Version = 1
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	f.records[rec.ID] = *rec
	return nil
}

func (f *fakeStore) ByID(_ context.Context, companyID, recordID string) (Record, error) {
	rec, ok := f.records[recordID]
	if !ok || rec.CompanyID != companyID {
		return Record{}, ErrRecordNotFound
	}
	return rec, nil
}

func (f *fakeStore) List(_ context.Context, companyID string, filter Filter, limit, offset int) ([]Record, int, error) {
	var out []Record
	for _, rec := range f.records {
		if rec.CompanyID == companyID {
			out = append(out, rec)
		}
	}
	return out, len(out), nil
}

func (f *fakeStore) Update(_ context.Context, rec *Record) error {
	stored, ok := f.records[rec.ID]
	if !ok {
		return ErrRecordNotFound
	}
	if stored.Version != rec.Version {
		return ErrVersionConflict
	}
	rec.Version++
	rec.UpdatedAt = time.Now()
	f.records[rec.ID] = *rec
	return nil
}

func (f *fakeStore) RegisterRows(_ context.Context, companyID, period string) ([]RegisterRow, error) {
	var rows []RegisterRow
	for _, rec := range f.records {
		if rec.CompanyID == companyID && rec.Period.String() == period {
			rows = append(rows, RegisterRow{
				ProviderID: rec.ProviderID,
				Period:     period,
				Gross:      rec.Gross,
				Deductions: rec.Gross.Sub(rec.Net),
				Net:        rec.Net,
				Status:     rec.Status,
			})
		}
	}
	return rows, nil
}

func (f *fakeStore) PeriodSummary(_ context.Context, companyID, period string) (PeriodSummary, error) {
	summary := PeriodSummary{Warnings: map[string]int{}}
	for _, rec := range f.records {
		if rec.CompanyID == companyID && rec.Period.String() == period {
			summary.TotalGross = summary.TotalGross.Add(rec.Gross)
			summary.TotalNet = summary.TotalNet.Add(rec.Net)
			summary.ProviderCount++
			for _, warning := range rec.Warnings {
				summary.Warnings[warning]++
			}
		}
	}
	return summary, nil
}

type fakeContracts struct {
	terms map[string]ContractTerms
}

func (f *fakeContracts) TermsByProvider(_ context.Context, _, providerID string) (ContractTerms, error) {
	terms, ok := f.terms[providerID]
	if !ok {
		return ContractTerms{}, errors.New("provider has no contract")
	}
	return terms, nil
}

type fakePolicyStore struct {
	policies  map[string]policy.CalculationPolicy
	templates map[string]policy.Template
}

func (f *fakePolicyStore) CompanyPolicy(_ context.Context, companyID string) (policy.CalculationPolicy, error) {
	p, ok := f.policies[companyID]
	if !ok {
		return policy.CalculationPolicy{}, policy.ErrNoCompanyPolicy
	}
	return p, nil
}

func (f *fakePolicyStore) UpsertCompanyPolicy(_ context.Context, p policy.CalculationPolicy) (policy.CalculationPolicy, error) {
	f.policies[p.CompanyID] = p
	return p, nil
}

func (f *fakePolicyStore) TemplateByID(_ context.Context, templateID string) (policy.Template, error) {
	t, ok := f.templates[templateID]
	if !ok {
		return policy.Template{}, policy.ErrTemplateNotFound
	}
	return t, nil
}

func (f *fakePolicyStore) DefaultTemplate(_ context.Context) (policy.Template, error) {
	for _, t := range f.templates {
		if t.IsDefault {
			return t, nil
		}
	}
	return policy.Template{}, policy.ErrTemplateNotFound
}

func (f *fakePolicyStore) ListTemplates(_ context.Context) ([]policy.Template, error) {
	var out []policy.Template
	for _, t := range f.templates {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakePolicyStore) CreateTemplate(_ context.Context, t policy.Template) (string, error) {
	id := fmt.Sprintf("tpl-%d", len(f.templates)+1)
	t.ID = id
	f.templates[id] = t
	return id, nil
}

func (f *fakePolicyStore) UpdateTemplate(_ context.Context, t policy.Template) error {
	if _, ok := f.templates[t.ID]; !ok {
		return policy.ErrTemplateNotFound
	}
	f.templates[t.ID] = t
	return nil
}

func (f *fakePolicyStore) DeleteTemplate(_ context.Context, templateID string) error {
	if _, ok := f.templates[templateID]; !ok {
		return policy.ErrTemplateNotFound
	}
	delete(f.templates, templateID)
	return nil
}

func newTestService() (*Service, *fakeStore) {
	store := newFakeStore()
	policyStore := &fakePolicyStore{
		policies: map[string]policy.CalculationPolicy{},
		templates: map[string]policy.Template{
			"tpl-default": {
				ID:               "tpl-default",
				Name:             "Standard",
				IsDefault:        true,
				OvertimePct:      decimal.NewFromInt(50),
				NightShiftPct:    decimal.NewFromInt(20),
				HolidayPct:       decimal.NewFromInt(100),
				AdvancePct:       decimal.NewFromInt(40),
				VoucherMode:      voucher.ModeNone,
				BusinessDaysRule: calendar.RuleFixed30,
				DSRMethod:        policy.DSRCalendar,
			},
		},
	}
	contracts := &fakeContracts{terms: map[string]ContractTerms{
		"prov-1": testTerms(),
	}}
	svc := NewService(store, policy.NewResolver(policyStore), contracts)
	return svc, store
}

func TestServiceCreateRecord(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	rec, err := svc.CreateRecord(ctx, "co-1", "prov-1", testInputs())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.ID == "" || rec.Version != 1 || rec.Status != StatusDraft {
		t.Fatalf("expected persisted draft v1, got id=%q v=%d status=%s", rec.ID, rec.Version, rec.Status)
	}

	if _, err := svc.CreateRecord(ctx, "co-1", "prov-1", testInputs()); !errors.Is(err, ErrRecordExists) {
		t.Fatalf("expected duplicate record rejection, got %v", err)
	}
}

func TestServiceCloseThenPay(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	rec, err := svc.CreateRecord(ctx, "co-1", "prov-1", testInputs())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	closed, err := svc.Close(ctx, "co-1", rec.ID, rec.Version)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.Status != StatusClosed || closed.Version != rec.Version+1 {
		t.Fatalf("expected closed v%d, got %s v%d", rec.Version+1, closed.Status, closed.Version)
	}

	paid, err := svc.MarkPaid(ctx, "co-1", rec.ID, closed.Version)
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if paid.Status != StatusPaid || paid.PaidAt == nil {
		t.Fatalf("expected paid record, got %s", paid.Status)
	}
}

func TestServiceCloseWithStaleVersion(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	rec, err := svc.CreateRecord(ctx, "co-1", "prov-1", testInputs())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Close(ctx, "co-1", rec.ID, rec.Version+7); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}
}

func TestServiceRecalculateReplacesAmounts(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	rec, err := svc.CreateRecord(ctx, "co-1", "prov-1", testInputs())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	in := testInputs()
	in.OvertimeHours = decimal.NewFromInt(5)
	updated, err := svc.Recalculate(ctx, "co-1", rec.ID, in)
	if err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	if !updated.Net.GreaterThan(rec.Net) {
		t.Fatalf("expected net to grow after adding overtime, got %s", updated.Net)
	}
	if updated.Version != rec.Version+1 {
		t.Fatalf("expected version bump, got %d", updated.Version)
	}
	if updated.ID != rec.ID {
		t.Fatal("expected recalculation to keep the record's identity")
	}
}

func TestServiceRecalculateOnClosedFails(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	rec, err := svc.CreateRecord(ctx, "co-1", "prov-1", testInputs())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Close(ctx, "co-1", rec.ID, rec.Version); err != nil {
		t.Fatalf("close: %v", err)
	}

	_, err = svc.Recalculate(ctx, "co-1", rec.ID, testInputs())
	var terr *StateTransitionError
	if !errors.As(err, &terr) {
		t.Fatalf("expected state transition error, got %v", err)
	}
}

func TestServiceReopenAllowsRecalculation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	rec, err := svc.CreateRecord(ctx, "co-1", "prov-1", testInputs())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	closed, err := svc.Close(ctx, "co-1", rec.ID, rec.Version)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	reopened, err := svc.Reopen(ctx, "co-1", rec.ID, closed.Version)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Status != StatusDraft || reopened.ClosedAt != nil {
		t.Fatalf("expected clean draft after reopen, got %s", reopened.Status)
	}

	in := testInputs()
	in.LateMinutes = 60
	if _, err := svc.Recalculate(ctx, "co-1", rec.ID, in); err != nil {
		t.Fatalf("recalculate after reopen: %v", err)
	}
}
