package me

import (
	"log/slog"
	"net/http"

	"github.com/cloudboost/cloudboost-api/internal/http/middleware"
	"github.com/cloudboost/cloudboost-api/internal/httputil"
	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/cloudboost/cloudboost-api/pkg/repository"
	"github.com/cloudboost/cloudboost-api/pkg/tenant"
	"github.com/go-chi/chi/v5"
)

// Handler handles the signed-in user's own profile.
type Handler struct {
	logger  *slog.Logger
	users   *repository.UsersRepository
	tenants *tenant.Service
}

// NewHandler creates a new me handler.
func NewHandler(logger *slog.Logger, users *repository.UsersRepository, tenants *tenant.Service) *Handler {
	return &Handler{
		logger:  logger,
		users:   users,
		tenants: tenants,
	}
}

// MeResponse is the caller with their tenant.
type MeResponse struct {
	User   *domain.User   `json:"user"`
	Tenant *domain.Tenant `json:"tenant"`
}

// UpdateRequest represents a profile update. Role and status are not
// self-service and stay with the tenant admin.
type UpdateRequest struct {
	FirstName          *string `json:"first_name,omitempty"`
	LastName           *string `json:"last_name,omitempty"`
	LanguagePreference *string `json:"language_preference,omitempty"`
	Timezone           *string `json:"timezone,omitempty"`
}

// GetMe returns the current user and tenant.
// GET /auth/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.users.GetByTenantAndID(r.Context(), id.TenantID, id.UserID)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	t, err := h.tenants.Get(r.Context(), id.TenantID)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}

	httputil.JSON(w, http.StatusOK, MeResponse{User: user, Tenant: t})
}

// UpdateMe updates the current user's profile.
// PUT /auth/me
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req UpdateRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	user, err := h.tenants.UpdateUser(r.Context(), id.TenantID, id.UserID, tenant.UpdateUserInput{
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		LanguagePreference: req.LanguagePreference,
		Timezone:           req.Timezone,
	})
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]any{
		"message": "Profile updated successfully",
		"user":    user,
	})
}

// RegisterRoutes registers profile routes. They must run behind Auth.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/auth/me", h.GetMe)
	r.Put("/auth/me", h.UpdateMe)
}
