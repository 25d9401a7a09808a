package communication

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers communication routes. They must run behind Auth;
// everything that sends goes through sendLimit.
func (h *Handler) RegisterRoutes(r chi.Router, sendLimit func(http.Handler) http.Handler) {
	r.Route("/communication", func(r chi.Router) {
		r.Get("/channels", h.Channels)
		r.Get("/whatsapp/templates", h.WhatsAppTemplates)
		r.Get("/messages", h.ListMessages)
		r.Get("/voice/calls", h.ListCalls)
		r.Get("/analytics", h.Analytics)
		r.Get("/campaigns", h.ListCampaigns)
		r.Post("/campaigns", h.CreateCampaign)

		r.Group(func(r chi.Router) {
			r.Use(sendLimit)
			r.Post("/send-message", h.SendMessage)
			r.Post("/bulk-send", h.BulkSend)
			r.Post("/whatsapp/send-template", h.SendTemplate)
			r.Post("/email/send", h.SendEmail)
			r.Post("/sms/send", h.SendSMS)
			r.Post("/voice/call", h.Call)
			r.Post("/campaigns/{id}/send", h.SendCampaign)
		})
	})
}
