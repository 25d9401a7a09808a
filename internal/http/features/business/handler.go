// Package business serves the business profile, integration keys and market analysis.
package business

import (
	"log/slog"
	"net/http"

	"github.com/cloudboost/cloudboost-api/internal/http/middleware"
	"github.com/cloudboost/cloudboost-api/internal/httputil"
	"github.com/cloudboost/cloudboost-api/pkg/business"
)

// Handler handles business endpoints.
type Handler struct {
	logger  *slog.Logger
	service *business.Service
}

// NewHandler creates a new business handler.
func NewHandler(logger *slog.Logger, service *business.Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// GetProfile returns the tenant's business profile.
// GET /business/profile
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	p, err := h.service.GetProfile(r.Context(), id.TenantID)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"profile": p})
}

// CreateProfile creates the tenant's business profile.
// POST /business/profile
func (h *Handler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	var req business.ProfileInput
	if !httputil.Decode(w, r, &req) {
		return
	}

	p, err := h.service.CreateProfile(r.Context(), id.TenantID, req)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, map[string]any{
		"message": "Business profile created successfully",
		"profile": p,
	})
}

// UpdateProfile updates the tenant's business profile.
// PUT /business/profile
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	var req business.ProfileInput
	if !httputil.Decode(w, r, &req) {
		return
	}

	p, err := h.service.UpdateProfile(r.Context(), id.TenantID, req)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{
		"message": "Business profile updated successfully",
		"profile": p,
	})
}

// ListAPIKeys returns the tenant's keys with masked values.
// GET /business/api-keys
func (h *Handler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	keys, err := h.service.ListAPIKeys(r.Context(), id.TenantID)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"api_keys": keys})
}

// CreateAPIKey stores an encrypted key.
// POST /business/api-keys
func (h *Handler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	var req business.CreateAPIKeyInput
	if !httputil.Decode(w, r, &req) {
		return
	}

	key, err := h.service.CreateAPIKey(r.Context(), id.TenantID, req)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("api key created", "tenant_id", id.TenantID, "platform", key.Platform)
	httputil.JSON(w, http.StatusCreated, map[string]any{
		"message": "API key created successfully",
		"api_key": key,
	})
}

// UpdateAPIKey rotates or toggles a key.
// PUT /business/api-keys/{id}
func (h *Handler) UpdateAPIKey(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}
	keyID, ok := httputil.PathUUID(w, r, "id")
	if !ok {
		return
	}

	var req business.UpdateAPIKeyInput
	if !httputil.Decode(w, r, &req) {
		return
	}

	key, err := h.service.UpdateAPIKey(r.Context(), id.TenantID, keyID, req)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{
		"message": "API key updated successfully",
		"api_key": key,
	})
}

// DeleteAPIKey removes a key.
// DELETE /business/api-keys/{id}
func (h *Handler) DeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}
	keyID, ok := httputil.PathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteAPIKey(r.Context(), id.TenantID, keyID); err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]string{"message": "API key deleted successfully"})
}

// AnalyzeWebsiteRequest names the site to analyze. url is accepted as an alias.
type AnalyzeWebsiteRequest struct {
	WebsiteURL string `json:"website_url"`
	URL        string `json:"url"`
}

// AnalyzeWebsite derives a profile and audit from a website.
// POST /business/analyze-website
func (h *Handler) AnalyzeWebsite(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeWebsiteRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	target := req.WebsiteURL
	if target == "" {
		target = req.URL
	}

	analysis, err := h.service.AnalyzeWebsite(r.Context(), target)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{
		"message":  "Website analyzed successfully",
		"analysis": analysis,
	})
}

// CompetitorRequest describes a competitor analysis.
type CompetitorRequest struct {
	Industry    string   `json:"industry"`
	Location    string   `json:"location"`
	Competitors []string `json:"competitors"`
}

// AnalyzeCompetitors compares the tenant with competitors in an industry.
// POST /business/competitor-analysis
func (h *Handler) AnalyzeCompetitors(w http.ResponseWriter, r *http.Request) {
	var req CompetitorRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	analysis, err := h.service.AnalyzeCompetitors(r.Context(), req.Industry, req.Location, req.Competitors)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"analysis": analysis})
}
