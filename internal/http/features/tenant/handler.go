// Package tenant serves the tenant and its user administration.
package tenant

import (
	"log/slog"
	"net/http"

	"github.com/cloudboost/cloudboost-api/internal/http/middleware"
	"github.com/cloudboost/cloudboost-api/internal/httputil"
	"github.com/cloudboost/cloudboost-api/pkg/auth"
	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/cloudboost/cloudboost-api/pkg/tenant"
)

const defaultUsersPerPage = 10

// Handler handles tenant endpoints.
type Handler struct {
	logger  *slog.Logger
	service *tenant.Service
}

// NewHandler creates a new tenant handler.
func NewHandler(logger *slog.Logger, service *tenant.Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// UpdateRequest represents a tenant update.
type UpdateRequest struct {
	Name             *string `json:"name"`
	SubscriptionPlan *string `json:"subscription_plan"`
}

// CreateUserRequest represents a new tenant user.
type CreateUserRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

// UpdateUserRequest represents an admin change to a user.
type UpdateUserRequest struct {
	FirstName          *string `json:"first_name"`
	LastName           *string `json:"last_name"`
	Role               *string `json:"role"`
	Status             *string `json:"status"`
	LanguagePreference *string `json:"language_preference"`
	Timezone           *string `json:"timezone"`
}

// UsersResponse is a page of users.
type UsersResponse struct {
	Users      []domain.User     `json:"users"`
	Pagination domain.Pagination `json:"pagination"`
}

// Get returns the caller's tenant.
// GET /tenant
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	t, err := h.service.Get(r.Context(), id.TenantID)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"tenant": t})
}

// Update changes the tenant name or plan.
// PUT /tenant
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	var req UpdateRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	t, err := h.service.Update(r.Context(), id.TenantID, tenant.UpdateInput{
		Name:             req.Name,
		SubscriptionPlan: req.SubscriptionPlan,
	})
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("tenant updated", "tenant_id", id.TenantID)
	httputil.JSON(w, http.StatusOK, map[string]any{
		"message": "Tenant updated successfully",
		"tenant":  t,
	})
}

// ListUsers returns a page of the tenant's users.
// GET /tenant/users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	users, pagination, err := h.service.ListUsers(r.Context(), id.TenantID, httputil.PageFromQuery(r, defaultUsersPerPage))
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, UsersResponse{Users: users, Pagination: pagination})
}

// CreateUser adds a user to the tenant.
// POST /tenant/users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	var req CreateUserRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	user, err := h.service.CreateUser(r.Context(), id.TenantID, auth.CreateUserInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	})
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("user created", "tenant_id", id.TenantID, "user_id", user.ID)
	httputil.JSON(w, http.StatusCreated, map[string]any{
		"message": "User created successfully",
		"user":    user,
	})
}

// UpdateUser changes a user of the tenant.
// PUT /tenant/users/{id}
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}
	userID, ok := httputil.PathUUID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateUserRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	user, err := h.service.UpdateUser(r.Context(), id.TenantID, userID, tenant.UpdateUserInput{
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		Role:               req.Role,
		Status:             req.Status,
		LanguagePreference: req.LanguagePreference,
		Timezone:           req.Timezone,
	})
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]any{
		"message": "User updated successfully",
		"user":    user,
	})
}

// DeleteUser removes a user of the tenant. Admins cannot delete themselves.
// DELETE /tenant/users/{id}
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}
	userID, ok := httputil.PathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteUser(r.Context(), id.TenantID, id.UserID, userID); err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("user deleted", "tenant_id", id.TenantID, "user_id", userID)
	httputil.JSON(w, http.StatusOK, map[string]string{"message": "User deleted successfully"})
}

// Stats summarizes the tenant.
// GET /tenant/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	stats, err := h.service.Stats(r.Context(), id.TenantID)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, stats)
}
