package policyhandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"contractorpay/internal/domain/audit"
	"contractorpay/internal/domain/auth"
	"contractorpay/internal/domain/policy"
	"contractorpay/internal/transport/http/api"
	"contractorpay/internal/transport/http/middleware"
	"contractorpay/internal/transport/http/shared"
)

type Handler struct {
	Resolver *policy.Resolver
	Audit    *audit.Service
}

func NewHandler(resolver *policy.Resolver, auditSvc *audit.Service) *Handler {
	return &Handler{Resolver: resolver, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/policy", func(r chi.Router) {
		r.With(middleware.RequireAuth).Get("/", h.handleGetPolicy)
		r.With(middleware.RequireRole(auth.RoleAdmin)).Patch("/", h.handleUpdatePolicy)
		r.With(middleware.RequireRole(auth.RoleAdmin)).Post("/apply-template", h.handleApplyTemplate)
		r.With(middleware.RequireAuth).Get("/templates", h.handleListTemplates)
		r.With(middleware.RequireRole(auth.RoleAdmin)).Post("/templates", h.handleCreateTemplate)
		r.With(middleware.RequireRole(auth.RoleAdmin)).Put("/templates/{templateID}", h.handleUpdateTemplate)
		r.With(middleware.RequireRole(auth.RoleAdmin)).Delete("/templates/{templateID}", h.handleDeleteTemplate)
	})
}

func (h *Handler) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	effective, err := h.Resolver.Resolve(r.Context(), user.CompanyID)
	if err != nil {
		h.failPolicy(w, requestID, err, "policy_get_failed", "failed to resolve policy")
		return
	}
	api.Success(w, effective, requestID)
}

func (h *Handler) handleUpdatePolicy(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	var update policy.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}

	before, err := h.Resolver.Resolve(r.Context(), user.CompanyID)
	if err != nil {
		h.failPolicy(w, requestID, err, "policy_get_failed", "failed to resolve policy")
		return
	}

	updated, err := h.Resolver.UpdatePolicy(r.Context(), user.CompanyID, update)
	if err != nil {
		h.failPolicy(w, requestID, err, "policy_update_failed", "failed to update policy")
		return
	}

	h.recordAudit(r, user, "policy.update", "company_policy", user.CompanyID, before, updated)
	api.Success(w, updated, requestID)
}

type applyTemplateRequest struct {
	TemplateID string `json:"templateId"`
}

func (h *Handler) handleApplyTemplate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	var payload applyTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}

	v := shared.NewValidator()
	v.Required("templateId", payload.TemplateID, "templateId is required")
	if v.Reject(w, requestID) {
		return
	}

	applied, err := h.Resolver.ApplyTemplate(r.Context(), user.CompanyID, payload.TemplateID)
	if err != nil {
		h.failPolicy(w, requestID, err, "policy_apply_failed", "failed to apply template")
		return
	}

	h.recordAudit(r, user, "policy.apply_template", "company_policy", user.CompanyID, nil, applied)
	api.Success(w, applied, requestID)
}

func (h *Handler) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	templates, err := h.Resolver.ListTemplates(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "template_list_failed", "failed to list templates", requestID)
		return
	}
	api.Success(w, templates, requestID)
}

func (h *Handler) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	var tpl policy.Template
	if err := json.NewDecoder(r.Body).Decode(&tpl); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}

	v := shared.NewValidator()
	v.Required("name", tpl.Name, "name is required")
	if v.Reject(w, requestID) {
		return
	}

	id, err := h.Resolver.CreateTemplate(r.Context(), tpl)
	if err != nil {
		h.failPolicy(w, requestID, err, "template_create_failed", "failed to create template")
		return
	}

	h.recordAudit(r, user, "policy_template.create", "policy_template", id, nil, tpl)
	api.Created(w, map[string]string{"id": id}, requestID)
}

func (h *Handler) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())
	templateID := chi.URLParam(r, "templateID")

	var tpl policy.Template
	if err := json.NewDecoder(r.Body).Decode(&tpl); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	tpl.ID = templateID

	v := shared.NewValidator()
	v.Required("name", tpl.Name, "name is required")
	if v.Reject(w, requestID) {
		return
	}

	if err := h.Resolver.UpdateTemplate(r.Context(), tpl); err != nil {
		h.failPolicy(w, requestID, err, "template_update_failed", "failed to update template")
		return
	}

	h.recordAudit(r, user, "policy_template.update", "policy_template", templateID, nil, tpl)
	api.Success(w, map[string]string{"id": templateID}, requestID)
}

func (h *Handler) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())
	templateID := chi.URLParam(r, "templateID")

	if err := h.Resolver.DeleteTemplate(r.Context(), templateID); err != nil {
		h.failPolicy(w, requestID, err, "template_delete_failed", "failed to delete template")
		return
	}

	h.recordAudit(r, user, "policy_template.delete", "policy_template", templateID, nil, nil)
	api.Success(w, map[string]string{"id": templateID}, requestID)
}

func (h *Handler) failPolicy(w http.ResponseWriter, requestID string, err error, code, message string) {
	var verr *policy.ValidationError
	if errors.As(err, &verr) {
		shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: verr.Field, Reason: verr.Reason}})
		return
	}
	var cerr *policy.ConfigurationError
	switch {
	case errors.Is(err, policy.ErrTemplateNotFound):
		api.Fail(w, http.StatusNotFound, "template_not_found", "policy template not found", requestID)
	case errors.Is(err, policy.ErrTemplateProtected):
		api.Fail(w, http.StatusConflict, "template_protected", "the default template cannot be modified or deleted", requestID)
	case errors.As(err, &cerr):
		api.Fail(w, http.StatusInternalServerError, "configuration_error", cerr.Reason, requestID)
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
