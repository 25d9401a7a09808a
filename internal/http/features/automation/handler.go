// Package automation serves workflows, triggers and the decision engine.
package automation

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cloudboost/cloudboost-api/internal/http/middleware"
	"github.com/cloudboost/cloudboost-api/internal/httputil"
	"github.com/cloudboost/cloudboost-api/pkg/automation"
	"github.com/cloudboost/cloudboost-api/pkg/domain"
)

// Handler handles automation endpoints.
type Handler struct {
	logger  *slog.Logger
	service *automation.Service
	now     func() time.Time
}

// NewHandler creates a new automation handler.
func NewHandler(logger *slog.Logger, service *automation.Service) *Handler {
	return &Handler{logger: logger, service: service, now: time.Now}
}

// Templates lists the built-in workflow templates.
// GET /automation/templates
func (h *Handler) Templates(w http.ResponseWriter, r *http.Request) {
	templates := automation.TemplateList()
	httputil.JSON(w, http.StatusOK, map[string]any{"templates": templates, "total": len(templates)})
}

// ListWorkflows returns the tenant's workflows.
// GET /automation/workflows
func (h *Handler) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	workflows, err := h.service.ListWorkflows(r.Context(), id.TenantID, r.URL.Query().Get("status"))
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"workflows": workflows, "total": len(workflows)})
}

// CreateWorkflow stores a workflow, optionally from a template.
// POST /automation/workflows
func (h *Handler) CreateWorkflow(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	var req automation.WorkflowInput
	if !httputil.Decode(w, r, &req) {
		return
	}

	wf, err := h.service.CreateWorkflow(r.Context(), id.TenantID, id.UserID, req)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, map[string]any{
		"message":  "Workflow created successfully",
		"workflow": wf,
	})
}

// GetWorkflow returns a workflow with its recent executions.
// GET /automation/workflows/{id}
func (h *Handler) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}
	workflowID, ok := httputil.PathUUID(w, r, "id")
	if !ok {
		return
	}

	detail, err := h.service.GetWorkflow(r.Context(), id.TenantID, workflowID)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"workflow": detail})
}

// UpdateWorkflow changes a workflow.
// PUT /automation/workflows/{id}
func (h *Handler) UpdateWorkflow(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}
	workflowID, ok := httputil.PathUUID(w, r, "id")
	if !ok {
		return
	}

	var req automation.WorkflowUpdate
	if !httputil.Decode(w, r, &req) {
		return
	}

	wf, err := h.service.UpdateWorkflow(r.Context(), id.TenantID, workflowID, req)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{
		"message":  "Workflow updated successfully",
		"workflow": wf,
	})
}

// DeleteWorkflow removes a workflow.
// DELETE /automation/workflows/{id}
func (h *Handler) DeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}
	workflowID, ok := httputil.PathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteWorkflow(r.Context(), id.TenantID, workflowID); err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]string{"message": "Workflow deleted successfully"})
}

// Execute runs a workflow for one customer.
// POST /automation/workflows/{id}/execute
func (h *Handler) Execute(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}
	workflowID, ok := httputil.PathUUID(w, r, "id")
	if !ok {
		return
	}

	var req automation.ExecuteInput
	if !httputil.Decode(w, r, &req) {
		return
	}

	e, err := h.service.Execute(r.Context(), id.TenantID, id.UserID, workflowID, req)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{
		"message":   "Workflow executed",
		"execution": e,
	})
}

// Trigger fires an event at every matching active workflow.
// POST /automation/triggers
func (h *Handler) Trigger(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	var req automation.TriggerInput
	if !httputil.Decode(w, r, &req) {
		return
	}

	execs, err := h.service.Trigger(r.Context(), id.TenantID, id.UserID, req)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{
		"message":             fmt.Sprintf("Triggered %d workflows", len(execs)),
		"workflows_triggered": len(execs),
		"executions":          execs,
	})
}

// ScoreLeadRequest carries the lead signals. Non-string values are formatted.
type ScoreLeadRequest struct {
	LeadData map[string]any `json:"lead_data"`
}

// ScoreLead weighs a lead's signals.
// POST /automation/decision-engine/score-lead
func (h *Handler) ScoreLead(w http.ResponseWriter, r *http.Request) {
	var req ScoreLeadRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if len(req.LeadData) == 0 {
		httputil.ServiceError(w, h.logger, domain.Required("lead_data"))
		return
	}

	lead := make(map[string]string, len(req.LeadData))
	for k, v := range req.LeadData {
		if v != nil {
			lead[k] = fmt.Sprint(v)
		}
	}
	httputil.JSON(w, http.StatusOK, automation.ScoreLead(lead))
}

// OptimizeTimingRequest asks for a send time. customer_data may carry
// geography and timezone instead of the top level.
type OptimizeTimingRequest struct {
	automation.TimingInput
	CustomerData struct {
		Geography string `json:"geography"`
		Timezone  string `json:"timezone"`
	} `json:"customer_data"`
}

// OptimizeTiming recommends when to contact a customer.
// POST /automation/decision-engine/optimize-timing
func (h *Handler) OptimizeTiming(w http.ResponseWriter, r *http.Request) {
	var req OptimizeTimingRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	in := req.TimingInput
	if in.Geography == "" {
		in.Geography = req.CustomerData.Geography
	}
	if in.Timezone == "" {
		in.Timezone = req.CustomerData.Timezone
	}

	res, err := automation.OptimizeTiming(h.now(), in)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, res)
}

// WorkflowPerformance reports execution statistics.
// GET /automation/analytics/workflow-performance
func (h *Handler) WorkflowPerformance(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	perf, err := h.service.WorkflowPerformance(r.Context(), id.TenantID)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, perf)
}

// PredictCustomerBehavior estimates churn, upsell and lifetime value.
// POST /automation/predictions/customer-behavior
func (h *Handler) PredictCustomerBehavior(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.Caller(w, r)
	if !ok {
		return
	}

	var req automation.PredictionInput
	if !httputil.Decode(w, r, &req) {
		return
	}

	res, err := h.service.PredictCustomerBehavior(r.Context(), id.TenantID, req)
	if err != nil {
		httputil.ServiceError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, res)
}
