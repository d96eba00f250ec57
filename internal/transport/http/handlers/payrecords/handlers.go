package payrecordhandler

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"contractorpay/internal/domain/audit"
	"contractorpay/internal/domain/auth"
	"contractorpay/internal/domain/calendar"
	"contractorpay/internal/domain/contract"
	"contractorpay/internal/domain/payroll"
	"contractorpay/internal/platform/metrics"
	"contractorpay/internal/transport/http/api"
	"contractorpay/internal/transport/http/middleware"
	"contractorpay/internal/transport/http/shared"
)

// ProviderDirectory resolves provider display data for exports and payslips.
type ProviderDirectory interface {
	Provider(ctx context.Context, companyID, providerID string) (contract.Provider, error)
}

type Handler struct {
	Service   *payroll.Service
	Providers ProviderDirectory
	Audit     *audit.Service
	Metrics   *metrics.Collector
}

func NewHandler(service *payroll.Service, providers ProviderDirectory, auditSvc *audit.Service, collector *metrics.Collector) *Handler {
	return &Handler{Service: service, Providers: providers, Audit: auditSvc, Metrics: collector}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/pay-records", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Post("/preview", h.handlePreview)
		r.Get("/summary", h.handleSummary)
		r.Get("/export/register", h.handleExportRegister)
		r.Get("/{recordID}", h.handleGet)
		r.Get("/{recordID}/payslip.pdf", h.handlePayslip)
		r.Put("/{recordID}/recalculate", h.handleRecalculate)
		r.Post("/{recordID}/close", h.handleClose)
		r.Post("/{recordID}/pay", h.handlePay)
		r.Post("/{recordID}/reopen", h.handleReopen)
	})
}

type recordPayload struct {
	ProviderID     string          `json:"providerId"`
	Period         string          `json:"period"`
	HireDate       string          `json:"hireDate"`
	OvertimeHours  decimal.Decimal `json:"overtimeHours"`
	HolidayHours   decimal.Decimal `json:"holidayHours"`
	NightHours     decimal.Decimal `json:"nightHours"`
	LateMinutes    int             `json:"lateMinutes"`
	AbsenceDays    int             `json:"absenceDays"`
	ManualDiscount decimal.Decimal `json:"manualDiscount"`
	Notes          string          `json:"notes"`
}

type transitionPayload struct {
	Version int `json:"version"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	payload, inputs, ok := h.decodeInputs(w, r, true)
	if !ok {
		return
	}

	rec, err := h.Service.CreateRecord(r.Context(), user.CompanyID, payload.ProviderID, inputs)
	if err != nil {
		h.failRecord(w, requestID, err)
		return
	}

	if h.Metrics != nil {
		h.Metrics.RecordCalculated()
	}
	h.recordAudit(r, user, "pay_record.create", rec.ID, nil, rec)
	api.Created(w, rec, requestID)
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	payload, inputs, ok := h.decodeInputs(w, r, true)
	if !ok {
		return
	}

	rec, err := h.Service.Preview(r.Context(), user.CompanyID, payload.ProviderID, inputs)
	if err != nil {
		h.failRecord(w, requestID, err)
		return
	}
	api.Success(w, rec, requestID)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	filter := payroll.Filter{
		ProviderID: strings.TrimSpace(r.URL.Query().Get("providerId")),
		Status:     strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status"))),
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("period")); raw != "" {
		period, err := calendar.ParsePeriod(raw)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_period", "period must be in MM/YYYY format", requestID)
			return
		}
		filter.Period = period.String()
	}

	page := shared.ParsePagination(r, 50, 200)
	records, total, err := h.Service.ListRecords(r.Context(), user.CompanyID, filter, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "record_list_failed", "failed to list pay records", requestID)
		return
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, records, requestID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	rec, err := h.Service.Record(r.Context(), user.CompanyID, chi.URLParam(r, "recordID"))
	if err != nil {
		h.failRecord(w, requestID, err)
		return
	}
	api.Success(w, rec, requestID)
}

func (h *Handler) handleRecalculate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())
	recordID := chi.URLParam(r, "recordID")

	_, inputs, ok := h.decodeInputs(w, r, false)
	if !ok {
		return
	}

	before, err := h.Service.Record(r.Context(), user.CompanyID, recordID)
	if err != nil {
		h.failRecord(w, requestID, err)
		return
	}

	rec, err := h.Service.Recalculate(r.Context(), user.CompanyID, recordID, inputs)
	if err != nil {
		h.failRecord(w, requestID, err)
		return
	}

	if h.Metrics != nil {
		h.Metrics.RecordCalculated()
	}
	h.recordAudit(r, user, "pay_record.recalculate", recordID, before, rec)
	api.Success(w, rec, requestID)
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, "pay_record.close", h.Service.Close, func() {
		if h.Metrics != nil {
			h.Metrics.RecordClosed()
		}
	})
}

func (h *Handler) handlePay(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, "pay_record.pay", h.Service.MarkPaid, func() {
		if h.Metrics != nil {
			h.Metrics.RecordPaid()
		}
	})
}

func (h *Handler) handleReopen(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, "pay_record.reopen", h.Service.Reopen, nil)
}

type transitionFunc func(ctx context.Context, companyID, recordID string, version int) (payroll.Record, error)

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request, action string, apply transitionFunc, onSuccess func()) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())
	recordID := chi.URLParam(r, "recordID")

	var payload transitionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	if payload.Version <= 0 {
		shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: "version", Reason: "current record version is required"}})
		return
	}

	before, err := h.Service.Record(r.Context(), user.CompanyID, recordID)
	if err != nil {
		h.failRecord(w, requestID, err)
		return
	}

	rec, err := apply(r.Context(), user.CompanyID, recordID, payload.Version)
	if err != nil {
		h.failRecord(w, requestID, err)
		return
	}

	if onSuccess != nil {
		onSuccess()
	}
	h.recordAudit(r, user, action, recordID, before, rec)
	api.Success(w, rec, requestID)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	period, ok := h.requirePeriod(w, r, requestID)
	if !ok {
		return
	}

	summary, err := h.Service.Summary(r.Context(), user.CompanyID, period)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "summary_failed", "failed to build period summary", requestID)
		return
	}
	api.Success(w, summary, requestID)
}

func (h *Handler) handleExportRegister(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	period, ok := h.requirePeriod(w, r, requestID)
	if !ok {
		return
	}

	rows, err := h.Service.Register(r.Context(), user.CompanyID, period)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "register_export_failed", "failed to export pay register", requestID)
		return
	}

	filename := "pay-register-" + strings.ReplaceAll(period, "/", "-") + ".csv"
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"provider_id", "provider_name", "period", "gross", "deductions", "net", "status"}); err != nil {
		slog.Warn("register export header failed", "err", err)
	}
	for _, row := range rows {
		record := []string{
			row.ProviderID,
			row.ProviderName,
			row.Period,
			row.Gross.StringFixed(2),
			row.Deductions.StringFixed(2),
			row.Net.StringFixed(2),
			row.Status,
		}
		if err := writer.Write(record); err != nil {
			slog.Warn("register export row failed", "err", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		slog.Warn("register export flush failed", "err", err)
	}
}

func (h *Handler) handlePayslip(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	rec, err := h.Service.Record(r.Context(), user.CompanyID, chi.URLParam(r, "recordID"))
	if err != nil {
		h.failRecord(w, requestID, err)
		return
	}

	providerName := rec.ProviderID
	if provider, err := h.Providers.Provider(r.Context(), user.CompanyID, rec.ProviderID); err == nil {
		providerName = provider.Name
	}

	payload, err := payroll.RenderPayslipPDF(rec, providerName)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "payslip_failed", "failed to render payslip", requestID)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=payslip-"+rec.ID+".pdf")
	if _, err := w.Write(payload); err != nil {
		slog.Warn("payslip write failed", "recordId", rec.ID, "err", err)
	}
}

// decodeInputs parses and validates the calculation payload. Creation and
// preview require provider and period; recalculation keeps the stored ones.
func (h *Handler) decodeInputs(w http.ResponseWriter, r *http.Request, requireTarget bool) (recordPayload, payroll.PeriodInputs, bool) {
	requestID := middleware.GetRequestID(r.Context())

	var payload recordPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return recordPayload{}, payroll.PeriodInputs{}, false
	}

	v := shared.NewValidator()
	var period calendar.Period
	if requireTarget {
		v.Required("providerId", payload.ProviderID, "providerId is required")
		v.Required("period", payload.Period, "period is required")
		if strings.TrimSpace(payload.Period) != "" {
			parsed, err := calendar.ParsePeriod(payload.Period)
			if err != nil {
				v.Add("period", "must be in MM/YYYY format")
			} else {
				period = parsed
			}
		}
	}

	var hireDate *time.Time
	if payload.HireDate != "" {
		parsed, ok := v.Date("hireDate", payload.HireDate)
		if ok {
			hireDate = &parsed
		}
	}
	if v.Reject(w, requestID) {
		return recordPayload{}, payroll.PeriodInputs{}, false
	}

	inputs := payroll.PeriodInputs{
		Period:         period,
		HireDate:       hireDate,
		OvertimeHours:  payload.OvertimeHours,
		HolidayHours:   payload.HolidayHours,
		NightHours:     payload.NightHours,
		LateMinutes:    payload.LateMinutes,
		AbsenceDays:    payload.AbsenceDays,
		ManualDiscount: payload.ManualDiscount,
		Notes:          payload.Notes,
	}
	return payload, inputs, true
}

func (h *Handler) requirePeriod(w http.ResponseWriter, r *http.Request, requestID string) (string, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("period"))
	if raw == "" {
		shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: "period", Reason: "period query parameter is required"}})
		return "", false
	}
	period, err := calendar.ParsePeriod(raw)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_period", "period must be in MM/YYYY format", requestID)
		return "", false
	}
	return period.String(), true
}

func (h *Handler) failRecord(w http.ResponseWriter, requestID string, err error) {
	var verr *payroll.ValidationError
	if errors.As(err, &verr) {
		shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: verr.Field, Reason: verr.Reason}})
		return
	}
	var sterr *payroll.StateTransitionError
	var cerr *payroll.ConfigurationError
	switch {
	case errors.As(err, &sterr):
		api.Fail(w, http.StatusConflict, "invalid_state", sterr.Error(), requestID)
	case errors.Is(err, payroll.ErrVersionConflict):
		api.Fail(w, http.StatusConflict, "version_conflict", "pay record was modified concurrently, reload and retry", requestID)
	case errors.Is(err, payroll.ErrRecordExists):
		api.Fail(w, http.StatusConflict, "record_exists", "a pay record already exists for this provider and period", requestID)
	case errors.Is(err, payroll.ErrRecordNotFound):
		api.Fail(w, http.StatusNotFound, "record_not_found", "pay record not found", requestID)
	case errors.Is(err, contract.ErrProviderNotFound):
		api.Fail(w, http.StatusNotFound, "provider_not_found", "provider not found", requestID)
	case errors.Is(err, contract.ErrContractNotFound):
		api.Fail(w, http.StatusBadRequest, "contract_missing", "provider has no active contract", requestID)
	case errors.As(err, &cerr):
		api.Fail(w, http.StatusInternalServerError, "configuration_error", cerr.Reason, requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, "internal_error", "unexpected failure", requestID)
	}
}

func (h *Handler) recordAudit(r *http.Request, user auth.UserContext, action, recordID string, before, after any) {
	if h.Audit == nil {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	if err := h.Audit.Record(r.Context(), user.CompanyID, user.UserID, action, "pay_record", recordID, requestID, shared.ClientIP(r), before, after); err != nil {
		slog.Warn("audit record failed", "action", action, "err", err)
	}
}
