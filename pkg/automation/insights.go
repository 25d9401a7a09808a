package automation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/google/uuid"
)

// performanceWindow is how far back execution counts reach.
const performanceWindow = 30 * 24 * time.Hour

// WorkflowStats summarises one workflow.
type WorkflowStats struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	Status         string     `json:"status"`
	ExecutionCount int        `json:"execution_count"`
	SuccessRate    float64    `json:"success_rate"`
	LastExecutedAt *time.Time `json:"last_executed_at"`
}

// Performance is the automation overview of a tenant.
type Performance struct {
	TotalWorkflows     int              `json:"total_workflows"`
	ActiveWorkflows    int64            `json:"active_workflows"`
	TotalExecutions    int              `json:"total_executions"`
	OverallSuccessRate float64          `json:"overall_success_rate"`
	RecentExecutions   map[string]int64 `json:"recent_executions"`
	TopWorkflows       []WorkflowStats  `json:"top_workflows"`
	PeriodDays         int              `json:"period_days"`
}

// WorkflowPerformance totals execution counters over all workflows and counts
// the executions of the last thirty days by status.
func (s *Service) WorkflowPerformance(ctx context.Context, tenantID uuid.UUID) (*Performance, error) {
	workflows, err := s.repo.List(ctx, tenantID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	active, err := s.repo.CountActive(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to count workflows: %w", err)
	}
	counts, err := s.repo.ExecutionCounts(ctx, tenantID, s.now().Add(-performanceWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to count executions: %w", err)
	}

	p := &Performance{
		TotalWorkflows:   len(workflows),
		ActiveWorkflows:  active,
		RecentExecutions: map[string]int64{domain.ExecutionCompleted: 0, domain.ExecutionFailed: 0},
		TopWorkflows:     make([]WorkflowStats, 0, len(workflows)),
		PeriodDays:       int(performanceWindow.Hours() / 24),
	}
	for _, c := range counts {
		p.RecentExecutions[c.Key] = c.Count
	}

	successes := 0
	for i := range workflows {
		w := &workflows[i]
		p.TotalExecutions += w.ExecutionCount
		successes += w.SuccessCount
		p.TopWorkflows = append(p.TopWorkflows, WorkflowStats{
			ID:             w.ID,
			Name:           w.Name,
			Status:         w.Status,
			ExecutionCount: w.ExecutionCount,
			SuccessRate:    round2(w.SuccessRate()),
			LastExecutedAt: w.LastExecutedAt,
		})
	}
	if p.TotalExecutions > 0 {
		p.OverallSuccessRate = round2(float64(successes) / float64(p.TotalExecutions) * 100)
	}
	sort.SliceStable(p.TopWorkflows, func(i, j int) bool {
		return p.TopWorkflows[i].ExecutionCount > p.TopWorkflows[j].ExecutionCount
	})
	if len(p.TopWorkflows) > 5 {
		p.TopWorkflows = p.TopWorkflows[:5]
	}
	return p, nil
}

// PredictionInput names a stored customer or describes one inline.
type PredictionInput struct {
	CustomerID   *uuid.UUID     `json:"customer_id"`
	CustomerData domain.JSONMap `json:"customer_data"`
}

// PredictionResult is the behavior outlook of a customer.
type PredictionResult struct {
	CustomerID   *uuid.UUID  `json:"customer_id"`
	Predictions  Predictions `json:"predictions"`
	ModelVersion string      `json:"model_version"`
	GeneratedAt  time.Time   `json:"generated_at"`
}

// PredictCustomerBehavior estimates churn, upsell, channel engagement and lifetime value.
func (s *Service) PredictCustomerBehavior(ctx context.Context, tenantID uuid.UUID, in PredictionInput) (*PredictionResult, error) {
	if in.CustomerID == nil && len(in.CustomerData) == 0 {
		return nil, domain.Required("customer_id")
	}
	c, err := s.resolveContact(ctx, tenantID, in.CustomerID, in.CustomerData)
	if err != nil {
		return nil, err
	}
	now := s.now()
	return &PredictionResult{
		CustomerID:   c.ID,
		Predictions:  *predict(c, now),
		ModelVersion: PredictionModelVersion,
		GeneratedAt:  now,
	}, nil
}
