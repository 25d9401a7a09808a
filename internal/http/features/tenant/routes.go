package tenant

import (
	"github.com/cloudboost/cloudboost-api/internal/http/middleware"
	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers tenant routes. They must run behind Auth; changes
// require the admin role.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/tenant", h.Get)
	r.Get("/tenant/users", h.ListUsers)
	r.Get("/tenant/stats", h.Stats)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(domain.RoleAdmin))
		r.Put("/tenant", h.Update)
		r.Post("/tenant/users", h.CreateUser)
		r.Put("/tenant/users/{id}", h.UpdateUser)
		r.Delete("/tenant/users/{id}", h.DeleteUser)
	})
}
