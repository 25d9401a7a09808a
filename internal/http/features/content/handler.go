// Package content serves generation, optimization and the content library.
package content

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cloudboost/cloudboost-api/internal/catalog"
	"github.com/cloudboost/cloudboost-api/internal/http/features/common"
	"github.com/cloudboost/cloudboost-api/internal/http/middleware"
	"github.com/cloudboost/cloudboost-api/internal/httputil"
	"github.com/cloudboost/cloudboost-api/pkg/analytics"
	"github.com/cloudboost/cloudboost-api/pkg/content"
	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/cloudboost/cloudboost-api/pkg/repository"
)

const defaultContentPerPage = 20

// Handler handles content endpoints.
type Handler struct {
	logger  *slog.Logger
	service *content.Service
	tracker common.Tracker
}

// NewHandler creates a new content handler. tracker may be nil.
func NewHandler(logger *slog.Logger, service *content.Service, tracker common.Tracker) *Handler {
	return &Handler{logger: logger, service: service, tracker: tracker}
}

// Languages lists the supported languages.
// GET /content/languages
func (h *Handler) Languages(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]any{
		"languages": catalog.Languages,
		"total":     len(catalog.Languages),
	})
}

// ContentTypes lists the supported content types.
// GET /content/content-types
func (h *Handler) ContentTypes(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]any{
		"content_types": catalog.ContentTypes,
		"total":         len(catalog.ContentTypes),
	})
}

// Platforms lists the supported platforms and their limits.
// GET /content/platforms
func (h *Handler) Platforms(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]any{
		"platforms": catalog.Platforms,
		"total":     len(catalog.Platforms),
	})
}

func (h *Handler) trackGenerated(r *http.Request, id middleware.Identity, g *content.Generated) {
	common.Track(r.Context(), h.logger, h.tracker, id.TenantID, analytics.MetricContentGenerated, 1, domain.JSONMap{
		"content_type": g.ContentType,
		"language":     g.Language,
		"generated_by": g.GeneratedBy,
	})
}

// Generate produces copy for the tenant.
// POST /content/generate
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	var req content.GenerateInput
	if !httputil.Decode(w, r, &req) {
		return
	}

	g, err := h.service.Generate(r.Context(), id.TenantID, id.UserID, req)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	h.trackGenerated(r, id, g)

	httputil.JSON(w, http.StatusOK, map[string]any{
		"message": "Content generated successfully",
		"content": g,
	})
}

// QuickGenerateRequest is the body of the quick generation endpoint.
type QuickGenerateRequest struct {
	Prompt      string `json:"prompt"`
	ContentType string `json:"content_type"`
}

// GenerateQuick produces English copy from a bare prompt.
// POST /ai/generate-content
func (h *Handler) GenerateQuick(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	var req QuickGenerateRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	g, err := h.service.GenerateQuick(r.Context(), id.TenantID, id.UserID, req.Prompt, req.ContentType)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	h.trackGenerated(r, id, g)

	httputil.JSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"content":         g.Content,
		"content_type":    g.ContentType,
		"word_count":      g.WordCount,
		"character_count": g.CharacterCount,
		"generated_by":    g.GeneratedBy,
		"generation_id":   g.ID,
		"generated_at":    g.GeneratedAt,
	})
}

// BatchRequest is a list of generation requests.
type BatchRequest struct {
	Requests []content.GenerateInput `json:"requests"`
}

// GenerateBatch runs several generations independently.
// POST /content/batch-generate
func (h *Handler) GenerateBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	var req BatchRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	batch, err := h.service.GenerateBatch(r.Context(), id.TenantID, id.UserID, req.Requests)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	common.Track(r.Context(), h.logger, h.tracker, id.TenantID, analytics.MetricContentGenerated,
		float64(batch.SuccessfulGenerations), domain.JSONMap{"source": "batch"})

	httputil.JSON(w, http.StatusOK, batch)
}

// OptimizeRequest describes an optimization.
type OptimizeRequest struct {
	Content          string `json:"content"`
	Platform         string `json:"platform"`
	OptimizationType string `json:"optimization_type"`
}

// Optimize adapts copy to a platform.
// POST /content/optimize
func (h *Handler) Optimize(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	out, err := h.service.Optimize(req.Content, req.Platform, req.OptimizationType)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, out)
}

// ListResponse is a page of content.
type ListResponse struct {
	Content    []domain.Content  `json:"content"`
	Pagination domain.Pagination `json:"pagination"`
}

// List returns a page of the tenant's content.
// GET /content
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := repository.ContentFilter{
		ContentType: q.Get("type"),
		Status:      q.Get("status"),
		Language:    q.Get("language"),
	}
	items, pagination, err := h.service.List(r.Context(), id.TenantID, filter, httputil.PageFromQuery(r, defaultContentPerPage))
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, ListResponse{Content: items, Pagination: pagination})
}

// Create stores a content row.
// POST /content
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	var req content.Input
	if !httputil.Decode(w, r, &req) {
		return
	}

	c, err := h.service.Create(r.Context(), id.TenantID, id.UserID, req)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, map[string]any{
		"message": "Content created successfully",
		"content": c,
	})
}

// Get returns one content row.
// GET /content/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}
	contentID, ok := httputil.PathUUID(w, r, "id")
	if !ok {
		return
	}

	c, err := h.service.Get(r.Context(), id.TenantID, contentID)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"content": c})
}

// Update changes a content row.
// PUT /content/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}
	contentID, ok := httputil.PathUUID(w, r, "id")
	if !ok {
		return
	}

	var req content.Input
	if !httputil.Decode(w, r, &req) {
		return
	}

	c, err := h.service.Update(r.Context(), id.TenantID, contentID, req)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{
		"message": "Content updated successfully",
		"content": c,
	})
}

// Delete removes a content row.
// DELETE /content/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}
	contentID, ok := httputil.PathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id.TenantID, contentID); err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]string{"message": "Content deleted successfully"})
}

// ListTemplates returns the tenant's templates.
// GET /content/templates
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	templates, err := h.service.ListTemplates(r.Context(), id.TenantID, r.URL.Query().Get("type"))
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"templates": templates})
}

// CreateTemplate stores a template.
// POST /content/templates
func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	var req content.TemplateInput
	if !httputil.Decode(w, r, &req) {
		return
	}

	t, err := h.service.CreateTemplate(r.Context(), id.TenantID, req)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, map[string]any{
		"message":  "Template created successfully",
		"template": t,
	})
}

// RenderRequest carries template values.
type RenderRequest struct {
	Values map[string]string `json:"values"`
}

// RenderTemplate fills a template.
// POST /content/templates/{id}/render
func (h *Handler) RenderTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}
	templateID, ok := httputil.PathUUID(w, r, "id")
	if !ok {
		return
	}

	var req RenderRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	out, err := h.service.RenderTemplate(r.Context(), id.TenantID, templateID, req.Values)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, out)
}

// ScheduleRequest describes a publishing slot.
type ScheduleRequest struct {
	Platform      string    `json:"platform"`
	ScheduledTime time.Time `json:"scheduled_time"`
}

// Schedule queues a content row for publishing.
// POST /content/{id}/schedule
func (h *Handler) Schedule(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}
	contentID, ok := httputil.PathUUID(w, r, "id")
	if !ok {
		return
	}

	var req ScheduleRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	sched, err := h.service.Schedule(r.Context(), id.TenantID, contentID, req.Platform, req.ScheduledTime)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, map[string]any{
		"message":  "Content scheduled successfully",
		"schedule": sched,
	})
}

// ListSchedules returns the tenant's publishing schedules.
// GET /content/schedules
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	schedules, err := h.service.ListSchedules(r.Context(), id.TenantID)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"schedules": schedules})
}
