package business

import (
	"github.com/cloudboost/cloudboost-api/internal/http/middleware"
	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers business routes. They must run behind Auth; key
// management requires the admin role.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/business/profile", h.GetProfile)
	r.Post("/business/profile", h.CreateProfile)
	r.Put("/business/profile", h.UpdateProfile)
	r.Post("/business/analyze-website", h.AnalyzeWebsite)
	r.Post("/business/competitor-analysis", h.AnalyzeCompetitors)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(domain.RoleAdmin))
		r.Get("/business/api-keys", h.ListAPIKeys)
		r.Post("/business/api-keys", h.CreateAPIKey)
		r.Put("/business/api-keys/{id}", h.UpdateAPIKey)
		r.Delete("/business/api-keys/{id}", h.DeleteAPIKey)
	})
}
