package password

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers password authentication routes. Login and register
// share the auth limiter; reset endpoints use the stricter reset limiter.
func (h *Handler) RegisterRoutes(r chi.Router, authLimit, resetLimit, requireAuth func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authLimit)
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)
	})
	r.Group(func(r chi.Router) {
		r.Use(resetLimit)
		r.Post("/auth/password/reset-request", h.RequestPasswordReset)
		r.Post("/auth/password/reset", h.ResetPassword)
	})
	r.With(requireAuth).Post("/auth/change-password", h.ChangePassword)
}
