// Package system serves health, status, dashboards and analytics reports.
package system

import (
	"log/slog"
	"net/http"

	"github.com/cloudboost/cloudboost-api/internal/http/middleware"
	"github.com/cloudboost/cloudboost-api/internal/httputil"
	"github.com/cloudboost/cloudboost-api/pkg/analytics"
)

var features = []string{
	"AI-Powered Content Generation",
	"Multi-Channel Communication",
	"Social Media Management",
	"CRM & Lead Management",
	"Business Process Automation",
	"Real-Time Analytics",
}

// Handler handles system and analytics endpoints.
type Handler struct {
	logger  *slog.Logger
	service *analytics.Service
	version string
}

// NewHandler creates a new system handler.
func NewHandler(logger *slog.Logger, service *analytics.Service, version string) *Handler {
	if version == "" {
		version = "1.0.0"
	}
	return &Handler{logger: logger, service: service, version: version}
}

// Welcome describes the API.
// GET /
func (h *Handler) Welcome(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]any{
		"message":  "Welcome to CloudBoost AI - Complete Business Automation Platform",
		"version":  h.version,
		"features": features,
		"health":   "/health",
		"login":    "/auth/login",
	})
}

// Health reports liveness. A failing database answers 503.
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	health := h.service.Health(r.Context())
	status := http.StatusOK
	if !health.Database {
		status = http.StatusServiceUnavailable
	}
	httputil.JSON(w, status, health)
}

// Status reports row counts, integrations and uptime.
// GET /status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	status, err := h.service.Status(r.Context(), id.TenantID)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, status)
}

// Dashboard returns the tenant's main dashboard.
// GET /dashboard
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	dash, err := h.service.Dashboard(r.Context(), id.TenantID)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, dash)
}

// AnalyticsDashboard reports every feature area over a date range.
// GET /analytics/dashboard
func (h *Handler) AnalyticsDashboard(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	report, err := h.service.AnalyticsDashboard(r.Context(), id.TenantID, r.URL.Query().Get("date_range"))
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, report)
}

// GenerateReport stores a report snapshot.
// POST /analytics/reports
func (h *Handler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	var req analytics.ReportInput
	if !httputil.Decode(w, r, &req) {
		return
	}

	rep, err := h.service.GenerateReport(r.Context(), id.TenantID, req)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, map[string]any{
		"message": "Report generated successfully",
		"report":  rep,
	})
}

// ListReports returns stored reports.
// GET /analytics/reports
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	reports, err := h.service.ListReports(r.Context(), id.TenantID, r.URL.Query().Get("type"))
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{
		"reports":      reports,
		"report_types": analytics.ReportTypes,
	})
}

// SaveKPI creates or replaces a KPI.
// POST /analytics/kpis
func (h *Handler) SaveKPI(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	var req analytics.KPIInput
	if !httputil.Decode(w, r, &req) {
		return
	}

	kpi, err := h.service.SaveKPI(r.Context(), id.TenantID, req)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{
		"message": "KPI saved",
		"kpi":     kpi,
	})
}

// ListKPIs returns tracked KPIs.
// GET /analytics/kpis
func (h *Handler) ListKPIs(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	kpis, err := h.service.ListKPIs(r.Context(), id.TenantID, r.URL.Query().Get("period"))
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"kpis": kpis})
}
