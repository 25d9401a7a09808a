// Package crm serves customers, leads, deals, activities and CRM reports.
package crm

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cloudboost/cloudboost-api/internal/export"
	"github.com/cloudboost/cloudboost-api/internal/http/middleware"
	"github.com/cloudboost/cloudboost-api/internal/httputil"
	"github.com/cloudboost/cloudboost-api/pkg/crm"
	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/cloudboost/cloudboost-api/pkg/repository"
)

const (
	defaultCustomersPerPage  = 20
	defaultLeadsPerPage      = 20
	defaultActivitiesPerPage = 50
)

// Handler handles CRM endpoints.
type Handler struct {
	logger  *slog.Logger
	service *crm.Service
}

// NewHandler creates a new CRM handler.
func NewHandler(logger *slog.Logger, service *crm.Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func customerFilter(r *http.Request) repository.CustomerFilter {
	q := r.URL.Query()
	return repository.CustomerFilter{
		Status:  q.Get("status"),
		Country: q.Get("country"),
		Search:  q.Get("search"),
	}
}

// ListCustomers returns a page of customers.
// GET /crm/customers
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	customers, pagination, err := h.service.ListCustomers(r.Context(), id.TenantID, customerFilter(r),
		httputil.PageFromQuery(r, defaultCustomersPerPage))
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{
		"customers":  customers,
		"pagination": pagination,
	})
}

// CreateCustomer stores a scored customer.
// POST /crm/customers
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	var req crm.CustomerInput
	if !httputil.Decode(w, r, &req) {
		return
	}

	c, err := h.service.CreateCustomer(r.Context(), id.TenantID, req)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, map[string]any{
		"message":  "Customer created successfully",
		"customer": c,
	})
}

// GetCustomer returns a customer with its deals, activities and leads.
// GET /crm/customers/{id}
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}
	customerID, ok := httputil.PathUUID(w, r, "id")
	if !ok {
		return
	}

	detail, err := h.service.GetCustomer(r.Context(), id.TenantID, customerID)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, detail)
}

// UpdateCustomer changes and rescores a customer.
// PUT /crm/customers/{id}
func (h *Handler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}
	customerID, ok := httputil.PathUUID(w, r, "id")
	if !ok {
		return
	}

	var req crm.CustomerInput
	if !httputil.Decode(w, r, &req) {
		return
	}

	c, err := h.service.UpdateCustomer(r.Context(), id.TenantID, customerID, req)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{
		"message":  "Customer updated successfully",
		"customer": c,
	})
}

// DeleteCustomer removes a customer.
// DELETE /crm/customers/{id}
func (h *Handler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}
	customerID, ok := httputil.PathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteCustomer(r.Context(), id.TenantID, customerID); err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]string{"message": "Customer deleted successfully"})
}

// ExportCustomers downloads matching customers as a spreadsheet.
// GET /crm/customers/export
func (h *Handler) ExportCustomers(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	data, err := h.service.ExportCustomers(r.Context(), id.TenantID, customerFilter(r))
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	writeWorkbook(w, "customers", data)
}

func writeWorkbook(w http.ResponseWriter, prefix string, data []byte) {
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(prefix, time.Now())+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ListLeads returns a page of leads.
// GET /crm/leads
func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	customerID, err := httputil.QueryUUID(r, "customer_id")
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid customer_id")
		return
	}
	q := r.URL.Query()
	filter := repository.LeadFilter{
		CustomerID: customerID,
		Source:     q.Get("source"),
		Status:     q.Get("status"),
		ScoreMin:   httputil.QueryInt(r, "score_min", 0),
	}

	leads, pagination, err := h.service.ListLeads(r.Context(), id.TenantID, filter, httputil.PageFromQuery(r, defaultLeadsPerPage))
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{
		"leads":      leads,
		"pagination": pagination,
	})
}

// CreateLead stores a scored lead.
// POST /crm/leads
func (h *Handler) CreateLead(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	var req crm.LeadInput
	if !httputil.Decode(w, r, &req) {
		return
	}

	lead, err := h.service.CreateLead(r.Context(), id.TenantID, req)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, map[string]any{
		"message": "Lead created successfully",
		"lead":    lead,
	})
}

// LeadStatusRequest moves a lead to a new status.
type LeadStatusRequest struct {
	Status string `json:"status"`
}

// UpdateLeadStatus moves a lead through qualification.
// PUT /crm/leads/{id}/status
func (h *Handler) UpdateLeadStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}
	leadID, ok := httputil.PathUUID(w, r, "id")
	if !ok {
		return
	}

	var req LeadStatusRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	lead, err := h.service.UpdateLeadStatus(r.Context(), id.TenantID, leadID, req.Status)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{
		"message": "Lead updated successfully",
		"lead":    lead,
	})
}

// ScoreLead scores signals without storing them.
// POST /crm/leads/score
func (h *Handler) ScoreLead(w http.ResponseWriter, r *http.Request) {
	var req crm.ScoreInput
	if !httputil.Decode(w, r, &req) {
		return
	}

	score, temperature := h.service.ScoreLead(req)
	httputil.JSON(w, http.StatusOK, map[string]any{
		"lead_score":  score,
		"temperature": temperature,
	})
}

// ListDeals returns deals with a per-stage summary.
// GET /crm/deals
func (h *Handler) ListDeals(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	customerID, err := httputil.QueryUUID(r, "customer_id")
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid customer_id")
		return
	}
	q := r.URL.Query()
	list, err := h.service.ListDeals(r.Context(), id.TenantID, repository.DealFilter{
		CustomerID: customerID,
		Stage:      q.Get("stage"),
		Status:     q.Get("status"),
	})
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, list)
}

// CreateDeal opens a deal.
// POST /crm/deals
func (h *Handler) CreateDeal(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	var req crm.DealInput
	if !httputil.Decode(w, r, &req) {
		return
	}

	deal, err := h.service.CreateDeal(r.Context(), id.TenantID, id.UserID, req)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, map[string]any{
		"message": "Deal created successfully",
		"deal":    deal,
	})
}

// UpdateDeal changes a deal.
// PUT /crm/deals/{id}
func (h *Handler) UpdateDeal(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}
	dealID, ok := httputil.PathUUID(w, r, "id")
	if !ok {
		return
	}

	var req crm.DealInput
	if !httputil.Decode(w, r, &req) {
		return
	}

	deal, err := h.service.UpdateDeal(r.Context(), id.TenantID, dealID, req)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{
		"message": "Deal updated successfully",
		"deal":    deal,
	})
}

// ListPipelines returns the tenant's pipelines.
// GET /crm/pipelines
func (h *Handler) ListPipelines(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	pipelines, err := h.service.ListPipelines(r.Context(), id.TenantID)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"pipelines": pipelines})
}

// CreatePipeline stores a custom pipeline.
// POST /crm/pipelines
func (h *Handler) CreatePipeline(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	var req crm.PipelineInput
	if !httputil.Decode(w, r, &req) {
		return
	}

	p, err := h.service.CreatePipeline(r.Context(), id.TenantID, req)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, map[string]any{
		"message":  "Pipeline created successfully",
		"pipeline": p,
	})
}

// ListActivities returns a page of activities.
// GET /crm/activities
func (h *Handler) ListActivities(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	customerID, err := httputil.QueryUUID(r, "customer_id")
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid customer_id")
		return
	}
	dealID, err := httputil.QueryUUID(r, "deal_id")
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid deal_id")
		return
	}
	filter := repository.ActivityFilter{
		CustomerID:   customerID,
		DealID:       dealID,
		ActivityType: r.URL.Query().Get("type"),
	}
	if v := r.URL.Query().Get("completed"); v != "" {
		completed, err := strconv.ParseBool(v)
		if err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid completed")
			return
		}
		filter.Completed = &completed
	}

	activities, pagination, err := h.service.ListActivities(r.Context(), id.TenantID, filter,
		httputil.PageFromQuery(r, defaultActivitiesPerPage))
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{
		"activities": activities,
		"pagination": pagination,
	})
}

// CreateActivity logs an activity.
// POST /crm/activities
func (h *Handler) CreateActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	var req crm.ActivityInput
	if !httputil.Decode(w, r, &req) {
		return
	}

	a, err := h.service.CreateActivity(r.Context(), id.TenantID, id.UserID, req)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, map[string]any{
		"message":  "Activity created successfully",
		"activity": a,
	})
}

// CompleteRequest records the outcome of an activity.
type CompleteRequest struct {
	Outcome string `json:"outcome"`
}

// CompleteActivity marks an activity done.
// PUT /crm/activities/{id}/complete
func (h *Handler) CompleteActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}
	activityID, ok := httputil.PathUUID(w, r, "id")
	if !ok {
		return
	}

	var req CompleteRequest
	if r.ContentLength != 0 && !httputil.Decode(w, r, &req) {
		return
	}

	a, err := h.service.CompleteActivity(r.Context(), id.TenantID, activityID, req.Outcome)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{
		"message":  "Activity completed successfully",
		"activity": a,
	})
}

// Dashboard returns the CRM dashboard.
// GET /crm/analytics/dashboard
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	d, err := h.service.Dashboard(r.Context(), id.TenantID)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, d)
}

// SalesForecast projects revenue as JSON or, with format=xlsx, a spreadsheet.
// GET /crm/reports/sales-forecast
func (h *Handler) SalesForecast(w http.ResponseWriter, r *http.Request) {
	f, err := h.service.SalesForecast(httputil.QueryInt(r, "months", 6))
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "json":
		httputil.JSON(w, http.StatusOK, f)
	case "xlsx":
		data, err := crm.ForecastWorkbook(f)
		if err != nil {
			httputil.ServiceError(w, h.logger, err)
			return
		}
		writeWorkbook(w, "sales-forecast", data)
	default:
		httputil.ServiceError(w, h.logger, domain.NewValidationError("format", "format must be json or xlsx"))
	}
}
