package session

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers session routes.
func (h *Handler) RegisterRoutes(r chi.Router, refreshLimit, requireAuth func(http.Handler) http.Handler) {
	r.With(refreshLimit).Post("/auth/refresh", h.Refresh)
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/auth/logout", h.Logout)
		r.Post("/auth/logout/all", h.LogoutAll)
	})
}
