package social

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers social routes. They must run behind Auth.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/social/platforms", h.Platforms)
	r.Post("/social/connect", h.Connect)
	r.Get("/social/accounts", h.Accounts)
	r.Delete("/social/disconnect/{platform}", h.Disconnect)
	r.Get("/social/oauth/{platform}/start", h.OAuthStart)

	r.Post("/social/post", h.CreatePost)
	r.Post("/social/schedule", h.SchedulePost)
	r.Post("/social/bulk-schedule", h.BulkSchedule)
	r.Get("/social/posts", h.ListPosts)
	r.Get("/social/posts/{id}", h.GetPost)
	r.Post("/social/posts/{id}/cancel", h.CancelPost)

	r.Get("/social/analytics", h.Analytics)
	r.Get("/social/content-calendar", h.ContentCalendar)
}

// RegisterPublicRoutes registers the OAuth callback, which providers call
// without a bearer token.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/social/oauth/{platform}/callback", h.OAuthCallback)
}
