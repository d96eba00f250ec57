package payrecordhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"contractorpay/internal/domain/auth"
	"contractorpay/internal/domain/calendar"
	"contractorpay/internal/domain/contract"
	"contractorpay/internal/domain/payroll"
	"contractorpay/internal/domain/policy"
	"contractorpay/internal/domain/voucher"
	"contractorpay/internal/platform/metrics"
	"contractorpay/internal/transport/http/middleware"
)

const testSecret = "handler-test-secret"

type fakeStore struct {
	records map[string]payroll.Record
	nextID  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string]payroll.Record{}}
}

func (f *fakeStore) Insert(_ context.Context, rec *payroll.Record) error {
	for _, existing := range f.records {
		if existing.ProviderID == rec.ProviderID && existing.Period == rec.Period {
			return payroll.ErrRecordExists
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

func (f *fakeStore) ByID(_ context.Context, companyID, recordID string) (payroll.Record, error) {
	rec, ok := f.records[recordID]
	if !ok || rec.CompanyID != companyID {
		return payroll.Record{}, payroll.ErrRecordNotFound
	}
	return rec, nil
}

func (f *fakeStore) List(_ context.Context, companyID string, filter payroll.Filter, limit, offset int) ([]payroll.Record, int, error) {
	var out []payroll.Record
	for _, rec := range f.records {
		if rec.CompanyID != companyID {
			continue
		}
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		out = append(out, rec)
	}
	return out, len(out), nil
}

func (f *fakeStore) Update(_ context.Context, rec *payroll.Record) error {
	stored, ok := f.records[rec.ID]
	if !ok {
		return payroll.ErrRecordNotFound
	}
	if stored.Version != rec.Version {
		return payroll.ErrVersionConflict
	}
	rec.Version++
	rec.UpdatedAt = time.Now()
	f.records[rec.ID] = *rec
	return nil
}

func (f *fakeStore) RegisterRows(_ context.Context, companyID, period string) ([]payroll.RegisterRow, error) {
	var rows []payroll.RegisterRow
	for _, rec := range f.records {
		if rec.CompanyID == companyID && rec.Period.String() == period {
			rows = append(rows, payroll.RegisterRow{
				ProviderID:   rec.ProviderID,
				ProviderName: "Ana Lima",
				Period:       period,
				Gross:        rec.Gross,
				Deductions:   rec.Gross.Sub(rec.Net),
				Net:          rec.Net,
				Status:       rec.Status,
			})
		}
	}
	return rows, nil
}

func (f *fakeStore) PeriodSummary(_ context.Context, companyID, period string) (payroll.PeriodSummary, error) {
	summary := payroll.PeriodSummary{Warnings: map[string]int{}}
	for _, rec := range f.records {
		if rec.CompanyID == companyID && rec.Period.String() == period {
			summary.TotalGross = summary.TotalGross.Add(rec.Gross)
			summary.TotalNet = summary.TotalNet.Add(rec.Net)
			summary.ProviderCount++
		}
	}
	return summary, nil
}

type fakeProviders struct {
	terms map[string]payroll.ContractTerms
}

func (f *fakeProviders) TermsByProvider(_ context.Context, _, providerID string) (payroll.ContractTerms, error) {
	terms, ok := f.terms[providerID]
	if !ok {
		return payroll.ContractTerms{}, contract.ErrContractNotFound
	}
	return terms, nil
}

func (f *fakeProviders) Provider(_ context.Context, companyID, providerID string) (contract.Provider, error) {
	if _, ok := f.terms[providerID]; !ok {
		return contract.Provider{}, contract.ErrProviderNotFound
	}
	return contract.Provider{ID: providerID, CompanyID: companyID, Name: "Ana Lima"}, nil
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

func newTestRouter(t *testing.T) (http.Handler, *fakeStore) {
	t.Helper()

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
	providers := &fakeProviders{terms: map[string]payroll.ContractTerms{
		"prov-1": {
			ProviderID:   "prov-1",
			MonthlyValue: decimal.NewFromInt(2200),
			MonthlyHours: decimal.NewFromInt(220),
		},
	}}
	svc := payroll.NewService(store, policy.NewResolver(policyStore), providers)
	handler := NewHandler(svc, providers, nil, metrics.New())

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Auth(testSecret))
	router.Route("/api/v1", func(r chi.Router) {
		handler.RegisterRoutes(r)
	})
	return router, store
}

func operatorToken(t *testing.T) string {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, auth.Claims{UserID: "u1", CompanyID: "co-1", Role: auth.RoleOperator}, time.Hour)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return token
}

func doJSON(t *testing.T, router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body == "" {
		reader = bytes.NewBufferString("{}")
	} else {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) apiEnvelope {
	t.Helper()
	var env apiEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
	}
	return env
}

func decodeRecord(t *testing.T, env apiEnvelope) payroll.Record {
	t.Helper()
	var rec payroll.Record
	if err := json.Unmarshal(env.Data, &rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	return rec
}

func TestCreateAndGetPayRecord(t *testing.T) {
	router, _ := newTestRouter(t)
	token := operatorToken(t)

	resp := doJSON(t, router, http.MethodPost, "/api/v1/pay-records", token,
		`{"providerId":"prov-1","period":"04/2021","overtimeHours":"5"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	created := decodeRecord(t, decodeEnvelope(t, resp))
	if created.Status != payroll.StatusDraft || created.Version != 1 {
		t.Fatalf("expected draft v1, got %s v%d", created.Status, created.Version)
	}
	if created.Net.StringFixed(2) != "2302.27" {
		t.Fatalf("expected net 2302.27, got %s", created.Net.StringFixed(2))
	}

	got := doJSON(t, router, http.MethodGet, "/api/v1/pay-records/"+created.ID, token, "")
	if got.Code != http.StatusOK {
		t.Fatalf("expected 200 on get, got %d", got.Code)
	}
	fetched := decodeRecord(t, decodeEnvelope(t, got))
	if fetched.ID != created.ID || fetched.Gross.StringFixed(2) != "2302.27" {
		t.Fatalf("unexpected fetched record: %+v", fetched)
	}
}

func TestCreateDuplicateRecordConflicts(t *testing.T) {
	router, _ := newTestRouter(t)
	token := operatorToken(t)

	body := `{"providerId":"prov-1","period":"04/2021"}`
	if resp := doJSON(t, router, http.MethodPost, "/api/v1/pay-records", token, body); resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}

	resp := doJSON(t, router, http.MethodPost, "/api/v1/pay-records", token, body)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
	env := decodeEnvelope(t, resp)
	if env.Error == nil || env.Error.Code != "record_exists" {
		t.Fatalf("expected record_exists, got %+v", env.Error)
	}
}

func TestCreateRejectsMalformedPeriod(t *testing.T) {
	router, _ := newTestRouter(t)
	token := operatorToken(t)

	resp := doJSON(t, router, http.MethodPost, "/api/v1/pay-records", token,
		`{"providerId":"prov-1","period":"2021-04"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	env := decodeEnvelope(t, resp)
	if env.Error == nil || env.Error.Code != "validation_error" {
		t.Fatalf("expected validation_error, got %+v", env.Error)
	}
}

func TestMissingContractRejected(t *testing.T) {
	router, _ := newTestRouter(t)
	token := operatorToken(t)

	resp := doJSON(t, router, http.MethodPost, "/api/v1/pay-records", token,
		`{"providerId":"prov-unknown","period":"04/2021"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	env := decodeEnvelope(t, resp)
	if env.Error == nil || env.Error.Code != "contract_missing" {
		t.Fatalf("expected contract_missing, got %+v", env.Error)
	}
}

func TestUnauthenticatedRequestsBlocked(t *testing.T) {
	router, _ := newTestRouter(t)

	resp := doJSON(t, router, http.MethodGet, "/api/v1/pay-records", "", "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestLifecycleCloseAndPay(t *testing.T) {
	router, _ := newTestRouter(t)
	token := operatorToken(t)

	created := decodeRecord(t, decodeEnvelope(t, doJSON(t, router, http.MethodPost, "/api/v1/pay-records", token,
		`{"providerId":"prov-1","period":"04/2021"}`)))

	closedResp := doJSON(t, router, http.MethodPost, "/api/v1/pay-records/"+created.ID+"/close", token, `{"version":1}`)
	if closedResp.Code != http.StatusOK {
		t.Fatalf("expected 200 on close, got %d: %s", closedResp.Code, closedResp.Body.String())
	}
	closed := decodeRecord(t, decodeEnvelope(t, closedResp))
	if closed.Status != payroll.StatusClosed || closed.Version != 2 || closed.ClosedAt == nil {
		t.Fatalf("expected closed v2 with timestamp, got %s v%d", closed.Status, closed.Version)
	}

	paidResp := doJSON(t, router, http.MethodPost, "/api/v1/pay-records/"+created.ID+"/pay", token, `{"version":2}`)
	if paidResp.Code != http.StatusOK {
		t.Fatalf("expected 200 on pay, got %d", paidResp.Code)
	}
	paid := decodeRecord(t, decodeEnvelope(t, paidResp))
	if paid.Status != payroll.StatusPaid || paid.PaidAt == nil {
		t.Fatalf("expected paid record, got %s", paid.Status)
	}
}

func TestCloseWithStaleVersionConflicts(t *testing.T) {
	router, _ := newTestRouter(t)
	token := operatorToken(t)

	created := decodeRecord(t, decodeEnvelope(t, doJSON(t, router, http.MethodPost, "/api/v1/pay-records", token,
		`{"providerId":"prov-1","period":"04/2021"}`)))

	resp := doJSON(t, router, http.MethodPost, "/api/v1/pay-records/"+created.ID+"/close", token, `{"version":9}`)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
	env := decodeEnvelope(t, resp)
	if env.Error == nil || env.Error.Code != "version_conflict" {
		t.Fatalf("expected version_conflict, got %+v", env.Error)
	}
}

func TestPayOnDraftRejected(t *testing.T) {
	router, _ := newTestRouter(t)
	token := operatorToken(t)

	created := decodeRecord(t, decodeEnvelope(t, doJSON(t, router, http.MethodPost, "/api/v1/pay-records", token,
		`{"providerId":"prov-1","period":"04/2021"}`)))

	resp := doJSON(t, router, http.MethodPost, "/api/v1/pay-records/"+created.ID+"/pay", token, `{"version":1}`)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
	env := decodeEnvelope(t, resp)
	if env.Error == nil || env.Error.Code != "invalid_state" {
		t.Fatalf("expected invalid_state, got %+v", env.Error)
	}
}

func TestPreviewDoesNotPersist(t *testing.T) {
	router, store := newTestRouter(t)
	token := operatorToken(t)

	resp := doJSON(t, router, http.MethodPost, "/api/v1/pay-records/preview", token,
		`{"providerId":"prov-1","period":"04/2021","overtimeHours":"5"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	preview := decodeRecord(t, decodeEnvelope(t, resp))
	if preview.ID != "" {
		t.Fatalf("expected preview without identity, got id %q", preview.ID)
	}
	if len(store.records) != 0 {
		t.Fatalf("expected nothing persisted, got %d records", len(store.records))
	}
}

func TestPayslipPDFDownload(t *testing.T) {
	router, _ := newTestRouter(t)
	token := operatorToken(t)

	created := decodeRecord(t, decodeEnvelope(t, doJSON(t, router, http.MethodPost, "/api/v1/pay-records", token,
		`{"providerId":"prov-1","period":"04/2021"}`)))

	resp := doJSON(t, router, http.MethodGet, "/api/v1/pay-records/"+created.ID+"/payslip.pdf", token, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("expected pdf content type, got %s", ct)
	}
	if !bytes.HasPrefix(resp.Body.Bytes(), []byte("%PDF")) {
		t.Fatal("expected PDF payload")
	}
}

func TestRegisterExportCSV(t *testing.T) {
	router, _ := newTestRouter(t)
	token := operatorToken(t)

	doJSON(t, router, http.MethodPost, "/api/v1/pay-records", token, `{"providerId":"prov-1","period":"04/2021"}`)

	resp := doJSON(t, router, http.MethodGet, "/api/v1/pay-records/export/register?period=04/2021", token, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("expected csv content type, got %s", ct)
	}
	body := resp.Body.String()
	if !strings.HasPrefix(body, "provider_id,provider_name,period,gross,deductions,net,status") {
		t.Fatalf("unexpected csv header: %s", body)
	}
	if !strings.Contains(body, "Ana Lima") || !strings.Contains(body, "2200.00") {
		t.Fatalf("expected register row, got %s", body)
	}
}

func TestSummaryRequiresPeriod(t *testing.T) {
	router, _ := newTestRouter(t)
	token := operatorToken(t)

	resp := doJSON(t, router, http.MethodGet, "/api/v1/pay-records/summary", token, "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}

	doJSON(t, router, http.MethodPost, "/api/v1/pay-records", token, `{"providerId":"prov-1","period":"04/2021"}`)
	ok := doJSON(t, router, http.MethodGet, "/api/v1/pay-records/summary?period=04/2021", token, "")
	if ok.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", ok.Code)
	}
	var summary payroll.PeriodSummary
	if err := json.Unmarshal(decodeEnvelope(t, ok).Data, &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.ProviderCount != 1 || summary.TotalNet.StringFixed(2) != "2200.00" {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestRecalculateReplacesAmounts(t *testing.T) {
	router, _ := newTestRouter(t)
	token := operatorToken(t)

	created := decodeRecord(t, decodeEnvelope(t, doJSON(t, router, http.MethodPost, "/api/v1/pay-records", token,
		`{"providerId":"prov-1","period":"04/2021"}`)))

	resp := doJSON(t, router, http.MethodPut, "/api/v1/pay-records/"+created.ID+"/recalculate", token,
		`{"overtimeHours":"5"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	updated := decodeRecord(t, decodeEnvelope(t, resp))
	if updated.ID != created.ID || updated.Version != created.Version+1 {
		t.Fatalf("expected same record with bumped version, got %s v%d", updated.ID, updated.Version)
	}
	if !updated.Net.GreaterThan(created.Net) {
		t.Fatalf("expected net to grow, got %s", updated.Net)
	}
}
