// Package communication serves messaging over email, SMS, WhatsApp and voice.
package communication

import (
	"log/slog"
	"net/http"

	"github.com/cloudboost/cloudboost-api/internal/http/features/common"
	"github.com/cloudboost/cloudboost-api/internal/http/middleware"
	"github.com/cloudboost/cloudboost-api/internal/httputil"
	"github.com/cloudboost/cloudboost-api/pkg/analytics"
	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/cloudboost/cloudboost-api/pkg/messaging"
	"github.com/cloudboost/cloudboost-api/pkg/repository"
)

const (
	defaultMessagesPerPage = 20
	defaultCallsLimit      = 50
	defaultAnalyticsDays   = 30
)

// Handler handles communication endpoints.
type Handler struct {
	logger  *slog.Logger
	service *messaging.Service
	tracker common.Tracker
}

// NewHandler creates a new communication handler. tracker may be nil.
func NewHandler(logger *slog.Logger, service *messaging.Service, tracker common.Tracker) *Handler {
	return &Handler{logger: logger, service: service, tracker: tracker}
}

func (h *Handler) trackSent(r *http.Request, id middleware.Identity, channel string, n int) {
	common.Track(r.Context(), h.logger, h.tracker, id.TenantID, analytics.MetricMessagesSent, float64(n),
		domain.JSONMap{"channel": channel})
}

func (h *Handler) trackMessage(r *http.Request, id middleware.Identity, m *domain.Message) {
	if m.Status == domain.MessageFailed || m.Status == domain.MessageQueued {
		return
	}
	h.trackSent(r, id, m.Channel, 1)
}

// messageStatus answers a single send: 200 when handed over or queued, and the
// stored message either way.
func (h *Handler) messageStatus(w http.ResponseWriter, m *domain.Message) {
	msg := "Message sent successfully"
	switch m.Status {
	case domain.MessageQueued:
		msg = "Message scheduled successfully"
	case domain.MessageFailed:
		msg = "Message delivery failed"
	}
	httputil.JSON(w, http.StatusOK, map[string]any{
		"message":      msg,
		"message_data": m,
		"message_id":   m.ExternalID,
		"status":       m.Status,
		"cost":         m.Cost,
		"simulated":    m.Simulated,
	})
}

// Channels lists the channel catalog.
// GET /communication/channels
func (h *Handler) Channels(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]any{
		"channels":          messaging.Channels,
		"telecom_providers": messaging.TelecomProviders,
	})
}

// SendMessage sends or schedules one message.
// POST /communication/send-message
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	var req messaging.SendInput
	if !httputil.Decode(w, r, &req) {
		return
	}

	m, err := h.service.Send(r.Context(), id.TenantID, id.UserID, req)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	h.trackMessage(r, id, m)
	h.messageStatus(w, m)
}

// BulkSend sends to many recipients.
// POST /communication/bulk-send
func (h *Handler) BulkSend(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	var req messaging.BulkInput
	if !httputil.Decode(w, r, &req) {
		return
	}

	res, err := h.service.BulkSend(r.Context(), id.TenantID, id.UserID, req)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	h.trackSent(r, id, req.Channel, res.TotalSent)

	httputil.JSON(w, http.StatusOK, map[string]any{
		"message": "Bulk send completed",
		"results": res,
		"summary": map[string]any{
			"sent":       res.TotalSent,
			"failed":     res.TotalFailed,
			"total_cost": res.TotalCost,
		},
	})
}

// WhatsAppTemplates lists the approved WhatsApp templates.
// GET /communication/whatsapp/templates
func (h *Handler) WhatsAppTemplates(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]any{"templates": messaging.WhatsAppTemplates})
}

// SendTemplate sends a WhatsApp template message.
// POST /communication/whatsapp/send-template
func (h *Handler) SendTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	var req messaging.TemplateSendInput
	if !httputil.Decode(w, r, &req) {
		return
	}

	m, err := h.service.SendTemplate(r.Context(), id.TenantID, id.UserID, req)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	h.trackMessage(r, id, m)
	h.messageStatus(w, m)
}

// SendEmail sends an email.
// POST /communication/email/send
func (h *Handler) SendEmail(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	var req messaging.EmailInput
	if !httputil.Decode(w, r, &req) {
		return
	}

	m, err := h.service.SendEmail(r.Context(), id.TenantID, id.UserID, req)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	h.trackMessage(r, id, m)
	h.messageStatus(w, m)
}

// SendSMS sends an SMS.
// POST /communication/sms/send
func (h *Handler) SendSMS(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	var req messaging.SMSInput
	if !httputil.Decode(w, r, &req) {
		return
	}

	m, err := h.service.SendSMS(r.Context(), id.TenantID, id.UserID, req)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	h.trackMessage(r, id, m)
	h.messageStatus(w, m)
}

// Call places a voice call.
// POST /communication/voice/call
func (h *Handler) Call(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	var req messaging.CallInput
	if !httputil.Decode(w, r, &req) {
		return
	}

	call, err := h.service.Call(r.Context(), id.TenantID, id.UserID, req)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	if call.Status != domain.CallFailed {
		h.trackSent(r, id, domain.ChannelVoice, 1)
	}
	httputil.JSON(w, http.StatusOK, map[string]any{
		"message": "Call initiated",
		"call":    call,
	})
}

// ListCalls returns the latest calls.
// GET /communication/voice/calls
func (h *Handler) ListCalls(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	calls, err := h.service.ListCalls(r.Context(), id.TenantID, httputil.QueryInt(r, "limit", defaultCallsLimit))
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"calls": calls})
}

// ListMessages returns a page of messages.
// GET /communication/messages
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	campaignID, err := httputil.QueryUUID(r, "campaign_id")
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid campaign_id")
		return
	}
	q := r.URL.Query()
	filter := repository.MessageFilter{
		Channel:    q.Get("channel"),
		Status:     q.Get("status"),
		CampaignID: campaignID,
	}

	messages, pagination, err := h.service.ListMessages(r.Context(), id.TenantID, filter, httputil.PageFromQuery(r, defaultMessagesPerPage))
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{
		"messages":   messages,
		"pagination": pagination,
	})
}

// Analytics reports delivery per channel.
// GET /communication/analytics
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	a, err := h.service.Analytics(r.Context(), id.TenantID, httputil.QueryInt(r, "days", defaultAnalyticsDays))
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, a)
}

// CreateCampaign stores a campaign.
// POST /communication/campaigns
func (h *Handler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	var req messaging.CampaignInput
	if !httputil.Decode(w, r, &req) {
		return
	}

	c, err := h.service.CreateCampaign(r.Context(), id.TenantID, id.UserID, req)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, map[string]any{
		"message":  "Campaign created successfully",
		"campaign": c,
	})
}

// ListCampaigns returns the tenant's campaigns.
// GET /communication/campaigns
func (h *Handler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	campaigns, err := h.service.ListCampaigns(r.Context(), id.TenantID, r.URL.Query().Get("channel"))
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"campaigns": campaigns})
}

// SendCampaign sends a campaign to all its recipients.
// POST /communication/campaigns/{id}/send
func (h *Handler) SendCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}
	campaignID, ok := httputil.PathUUID(w, r, "id")
	if !ok {
		return
	}

	c, res, err := h.service.SendCampaign(r.Context(), id.TenantID, id.UserID, campaignID)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	h.trackSent(r, id, c.Channel, res.TotalSent)

	httputil.JSON(w, http.StatusOK, map[string]any{
		"message":  "Campaign sent",
		"campaign": c,
		"results":  res,
	})
}
