package companyhandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"contractorpay/internal/domain/audit"
	"contractorpay/internal/domain/auth"
	"contractorpay/internal/domain/company"
	"contractorpay/internal/transport/http/api"
	"contractorpay/internal/transport/http/middleware"
	"contractorpay/internal/transport/http/shared"
)

type Handler struct {
	Store *company.Store
	Audit *audit.Service
}

func NewHandler(store *company.Store, auditSvc *audit.Service) *Handler {
	return &Handler{Store: store, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/company", func(r chi.Router) {
		r.With(middleware.RequireAuth).Get("/", h.handleGet)
		r.With(middleware.RequireRole(auth.RoleAdmin)).Put("/", h.handleRename)
		r.With(middleware.RequireRole(auth.RoleAdmin)).Get("/users", h.handleListUsers)
		r.With(middleware.RequireRole(auth.RoleAdmin)).Post("/users", h.handleCreateUser)
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	c, err := h.Store.Company(r.Context(), user.CompanyID)
	if err != nil {
		if errors.Is(err, company.ErrCompanyNotFound) {
			api.Fail(w, http.StatusNotFound, "company_not_found", "company not found", requestID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "company_get_failed", "failed to load company", requestID)
		return
	}
	api.Success(w, c, requestID)
}

type renameRequest struct {
	Name string `json:"name"`
}

func (h *Handler) handleRename(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	var payload renameRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}

	v := shared.NewValidator()
	v.Required("name", payload.Name, "name is required")
	if v.Reject(w, requestID) {
		return
	}

	if err := h.Store.Rename(r.Context(), user.CompanyID, payload.Name); err != nil {
		api.Fail(w, http.StatusInternalServerError, "company_update_failed", "failed to update company", requestID)
		return
	}

	h.recordAudit(r, user, "company.rename", "company", user.CompanyID, nil, payload)
	api.Success(w, map[string]string{"id": user.CompanyID, "name": payload.Name}, requestID)
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	users, err := h.Store.ListUsers(r.Context(), user.CompanyID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "user_list_failed", "failed to list users", requestID)
		return
	}
	api.Success(w, users, requestID)
}

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	var payload createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}

	v := shared.NewValidator()
	v.Required("email", payload.Email, "email is required")
	v.Required("password", payload.Password, "password is required")
	v.Enum("role", payload.Role, []string{auth.RoleAdmin, auth.RoleOperator}, "must be admin or operator")
	v.Required("role", payload.Role, "role is required")
	if v.Reject(w, requestID) {
		return
	}

	created, err := h.Store.CreateUser(r.Context(), user.CompanyID, payload.Email, payload.Password, payload.Role)
	if err != nil {
		if errors.Is(err, company.ErrUserExists) {
			api.Fail(w, http.StatusConflict, "user_exists", "a user with this email already exists", requestID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "user_create_failed", "failed to create user", requestID)
		return
	}

	h.recordAudit(r, user, "user.create", "user", created.ID, nil, created)
	api.Created(w, created, requestID)
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
