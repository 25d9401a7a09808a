package crm

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers CRM routes. They must run behind Auth.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/crm", func(r chi.Router) {
		r.Get("/customers", h.ListCustomers)
		r.Post("/customers", h.CreateCustomer)
		r.Get("/customers/export", h.ExportCustomers)
		r.Get("/customers/{id}", h.GetCustomer)
		r.Put("/customers/{id}", h.UpdateCustomer)
		r.Delete("/customers/{id}", h.DeleteCustomer)

		r.Get("/leads", h.ListLeads)
		r.Post("/leads", h.CreateLead)
		r.Post("/leads/score", h.ScoreLead)
		r.Put("/leads/{id}/status", h.UpdateLeadStatus)

		r.Get("/deals", h.ListDeals)
		r.Post("/deals", h.CreateDeal)
		r.Put("/deals/{id}", h.UpdateDeal)

		r.Get("/pipelines", h.ListPipelines)
		r.Post("/pipelines", h.CreatePipeline)

		r.Get("/activities", h.ListActivities)
		r.Post("/activities", h.CreateActivity)
		r.Put("/activities/{id}/complete", h.CompleteActivity)

		r.Get("/analytics/dashboard", h.Dashboard)
		r.Get("/reports/sales-forecast", h.SalesForecast)
	})
}
