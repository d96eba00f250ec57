package providerhandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"contractorpay/internal/domain/audit"
	"contractorpay/internal/domain/auth"
	"contractorpay/internal/domain/contract"
	"contractorpay/internal/domain/payroll"
	"contractorpay/internal/transport/http/api"
	"contractorpay/internal/transport/http/middleware"
	"contractorpay/internal/transport/http/shared"
)

type Handler struct {
	Service *contract.Service
	Audit   *audit.Service
}

func NewHandler(service *contract.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/providers", func(r chi.Router) {
		r.With(middleware.RequireAuth).Get("/", h.handleList)
		r.With(middleware.RequireRole(auth.RoleAdmin)).Post("/", h.handleCreate)
		r.With(middleware.RequireAuth).Get("/{providerID}", h.handleGet)
		r.With(middleware.RequireRole(auth.RoleAdmin)).Put("/{providerID}", h.handleUpdate)
		r.With(middleware.RequireAuth).Get("/{providerID}/contract", h.handleGetContract)
		r.With(middleware.RequireRole(auth.RoleAdmin)).Put("/{providerID}/contract", h.handleUpsertContract)
	})
}

type providerPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Document string `json:"document"`
	HireDate string `json:"hireDate"`
	Status   string `json:"status"`
}

type contractPayload struct {
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

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	page := shared.ParsePagination(r, 50, 200)
	providers, total, err := h.Service.ListProviders(r.Context(), user.CompanyID, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "provider_list_failed", "failed to list providers", requestID)
		return
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, providers, requestID)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	var payload providerPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}

	provider, ok := h.providerFromPayload(w, requestID, user.CompanyID, payload)
	if !ok {
		return
	}

	created, err := h.Service.CreateProvider(r.Context(), provider)
	if err != nil {
		h.failProvider(w, requestID, err, "provider_create_failed", "failed to create provider")
		return
	}

	h.recordAudit(r, user, "provider.create", "provider", created.ID, nil, created)
	api.Created(w, created, requestID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	provider, err := h.Service.Provider(r.Context(), user.CompanyID, chi.URLParam(r, "providerID"))
	if err != nil {
		h.failProvider(w, requestID, err, "provider_get_failed", "failed to load provider")
		return
	}
	api.Success(w, provider, requestID)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())
	providerID := chi.URLParam(r, "providerID")

	var payload providerPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}

	before, err := h.Service.Provider(r.Context(), user.CompanyID, providerID)
	if err != nil {
		h.failProvider(w, requestID, err, "provider_get_failed", "failed to load provider")
		return
	}

	provider, ok := h.providerFromPayload(w, requestID, user.CompanyID, payload)
	if !ok {
		return
	}
	provider.ID = providerID

	updated, err := h.Service.UpdateProvider(r.Context(), provider)
	if err != nil {
		h.failProvider(w, requestID, err, "provider_update_failed", "failed to update provider")
		return
	}

	h.recordAudit(r, user, "provider.update", "provider", providerID, before, updated)
	api.Success(w, updated, requestID)
}

func (h *Handler) handleGetContract(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	c, err := h.Service.ContractByProvider(r.Context(), user.CompanyID, chi.URLParam(r, "providerID"))
	if err != nil {
		h.failProvider(w, requestID, err, "contract_get_failed", "failed to load contract")
		return
	}
	api.Success(w, c, requestID)
}

func (h *Handler) handleUpsertContract(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())
	providerID := chi.URLParam(r, "providerID")

	var payload contractPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}

	terms := payroll.ContractTerms{
		ProviderID:         providerID,
		MonthlyValue:       payload.MonthlyValue,
		MonthlyHours:       payload.MonthlyHours,
		AdvanceEnabled:     payload.AdvanceEnabled,
		AdvancePct:         payload.AdvancePct,
		PaymentMethod:      payload.PaymentMethod,
		VoucherEligible:    payload.VoucherEligible,
		VoucherFare:        payload.VoucherFare,
		VoucherTripsPerDay: payload.VoucherTripsPerDay,
		VoucherFixedAmount: payload.VoucherFixedAmount,
	}
	if err := terms.Validate(); err != nil {
		var verr *payroll.ValidationError
		if errors.As(err, &verr) {
			shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: verr.Field, Reason: verr.Reason}})
			return
		}
		api.Fail(w, http.StatusBadRequest, "invalid_payload", err.Error(), requestID)
		return
	}

	upserted, err := h.Service.UpsertContract(r.Context(), contract.Contract{
		CompanyID:          user.CompanyID,
		ProviderID:         providerID,
		MonthlyValue:       payload.MonthlyValue,
		MonthlyHours:       payload.MonthlyHours,
		AdvanceEnabled:     payload.AdvanceEnabled,
		AdvancePct:         payload.AdvancePct,
		PaymentMethod:      payload.PaymentMethod,
		VoucherEligible:    payload.VoucherEligible,
		VoucherFare:        payload.VoucherFare,
		VoucherTripsPerDay: payload.VoucherTripsPerDay,
		VoucherFixedAmount: payload.VoucherFixedAmount,
	})
	if err != nil {
		h.failProvider(w, requestID, err, "contract_upsert_failed", "failed to save contract")
		return
	}

	h.recordAudit(r, user, "contract.upsert", "contract", upserted.ID, nil, upserted)
	api.Success(w, upserted, requestID)
}

func (h *Handler) providerFromPayload(w http.ResponseWriter, requestID, companyID string, payload providerPayload) (contract.Provider, bool) {
	v := shared.NewValidator()
	v.Required("name", payload.Name, "name is required")
	v.Required("email", payload.Email, "email is required")
	v.Enum("status", payload.Status, []string{contract.ProviderStatusActive, contract.ProviderStatusInactive}, "must be active or inactive")

	var hireDate *time.Time
	if payload.HireDate != "" {
		parsed, ok := v.Date("hireDate", payload.HireDate)
		if ok {
			hireDate = &parsed
		}
	}
	if v.Reject(w, requestID) {
		return contract.Provider{}, false
	}

	return contract.Provider{
		CompanyID: companyID,
		Name:      payload.Name,
		Email:     payload.Email,
		Document:  payload.Document,
		HireDate:  hireDate,
		Status:    payload.Status,
	}, true
}

func (h *Handler) failProvider(w http.ResponseWriter, requestID string, err error, code, message string) {
	switch {
	case errors.Is(err, contract.ErrProviderNotFound):
		api.Fail(w, http.StatusNotFound, "provider_not_found", "provider not found", requestID)
	case errors.Is(err, contract.ErrContractNotFound):
		api.Fail(w, http.StatusNotFound, "contract_not_found", "provider has no active contract", requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}

func (h *Handler) recordAudit(r *http.Request, user auth.UserContext, action, entityType, entityID string, before, after any) {
	if h.Audit == nil {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	if err := h.Audit.Record(r.Context(), user.CompanyID, user.UserID, action, entityType, entityID, requestID, shared.ClientIP(r), before, after); err != nil {
		slog.Warn("audit record failed", "action", action, "err", err)
	}
}
