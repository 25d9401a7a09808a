package system

import "github.com/go-chi/chi/v5"

// RegisterPublicRoutes registers the welcome and health routes.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/", h.Welcome)
	r.Get("/health", h.Health)
}

// RegisterRoutes registers status, dashboard and analytics routes. They must
// run behind Auth.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/status", h.Status)
	r.Get("/dashboard", h.Dashboard)

	r.Route("/analytics", func(r chi.Router) {
		r.Get("/dashboard", h.AnalyticsDashboard)
		r.Get("/reports", h.ListReports)
		r.Post("/reports", h.GenerateReport)
		r.Get("/kpis", h.ListKPIs)
		r.Post("/kpis", h.SaveKPI)
	})
}
