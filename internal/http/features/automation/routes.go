package automation

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers automation routes. They must run behind Auth.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/automation", func(r chi.Router) {
		r.Get("/templates", h.Templates)

		r.Get("/workflows", h.ListWorkflows)
		r.Post("/workflows", h.CreateWorkflow)
		r.Get("/workflows/{id}", h.GetWorkflow)
		r.Put("/workflows/{id}", h.UpdateWorkflow)
		r.Delete("/workflows/{id}", h.DeleteWorkflow)
		r.Post("/workflows/{id}/execute", h.Execute)
		r.Post("/triggers", h.Trigger)

		r.Post("/decision-engine/score-lead", h.ScoreLead)
		r.Post("/decision-engine/optimize-timing", h.OptimizeTiming)
		r.Get("/analytics/workflow-performance", h.WorkflowPerformance)
		r.Post("/predictions/customer-behavior", h.PredictCustomerBehavior)
	})
}
