package content

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers content routes. They must run behind Auth.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/content/languages", h.Languages)
	r.Get("/content/content-types", h.ContentTypes)
	r.Get("/content/platforms", h.Platforms)

	r.Post("/content/generate", h.Generate)
	r.Post("/content/optimize", h.Optimize)
	r.Post("/content/batch-generate", h.GenerateBatch)
	r.Post("/ai/generate-content", h.GenerateQuick)

	r.Get("/content/templates", h.ListTemplates)
	r.Post("/content/templates", h.CreateTemplate)
	r.Post("/content/templates/{id}/render", h.RenderTemplate)
	r.Get("/content/schedules", h.ListSchedules)

	r.Get("/content", h.List)
	r.Post("/content", h.Create)
	r.Get("/content/{id}", h.Get)
	r.Put("/content/{id}", h.Update)
	r.Delete("/content/{id}", h.Delete)
	r.Post("/content/{id}/schedule", h.Schedule)
}
