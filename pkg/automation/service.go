// Package automation stores workflows and runs their actions against the CRM and
// the communication channels.
package automation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudboost/cloudboost-api/internal/metrics"
	"github.com/cloudboost/cloudboost-api/pkg/auth"
	"github.com/cloudboost/cloudboost-api/pkg/crm"
	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/cloudboost/cloudboost-api/pkg/messaging"
	"github.com/cloudboost/cloudboost-api/pkg/repository"
	"github.com/google/uuid"
)

// maxDelayHours bounds the delay of a single action.
const maxDelayHours = 24 * 365

// Messenger sends messages on behalf of a tenant.
type Messenger interface {
	Send(ctx context.Context, tenantID, userID uuid.UUID, in messaging.SendInput) (*domain.Message, error)
}

// CRM is the part of the CRM workflows act on.
type CRM interface {
	GetCustomer(ctx context.Context, tenantID, id uuid.UUID) (*crm.CustomerDetail, error)
	UpdateCustomer(ctx context.Context, tenantID, id uuid.UUID, in crm.CustomerInput) (*domain.Customer, error)
	CreateActivity(ctx context.Context, tenantID, userID uuid.UUID, in crm.ActivityInput) (*domain.Activity, error)
}

// Service manages and executes workflows.
type Service struct {
	repo      *repository.WorkflowsRepository
	messenger Messenger
	crm       CRM
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates an automation service.
func NewService(repo *repository.WorkflowsRepository, messenger Messenger, c CRM, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		messenger: messenger,
		crm:       c,
		metrics:   m,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WorkflowInput creates a workflow. Naming a template fills whatever is left empty.
type WorkflowInput struct {
	Name             string                  `json:"name"`
	Description      string                  `json:"description"`
	Template         string                  `json:"template"`
	Triggers         []string                `json:"triggers"`
	Actions          []domain.WorkflowAction `json:"actions"`
	Status           string                  `json:"status"`
	CulturalSettings domain.JSONMap          `json:"cultural_settings"`
}

// WorkflowUpdate changes the fields that are set.
type WorkflowUpdate struct {
	Name             *string                  `json:"name"`
	Description      *string                  `json:"description"`
	Triggers         *[]string                `json:"triggers"`
	Actions          *[]domain.WorkflowAction `json:"actions"`
	Status           *string                  `json:"status"`
	CulturalSettings *domain.JSONMap          `json:"cultural_settings"`
}

func validStatus(status string) bool {
	switch status {
	case domain.WorkflowDraft, domain.WorkflowActive, domain.WorkflowPaused, domain.WorkflowInactive:
		return true
	}
	return false
}

func validate(w *domain.Workflow) error {
	switch {
	case strings.TrimSpace(w.Name) == "":
		return domain.Required("name")
	case len(w.Triggers) == 0:
		return domain.Required("triggers")
	case len(w.Actions) == 0:
		return domain.Required("actions")
	case !validStatus(w.Status):
		return domain.NewValidationError("status", "invalid workflow status %q", w.Status)
	}
	for i, t := range w.Triggers {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			return domain.NewValidationError("triggers", "triggers must not be empty")
		}
		w.Triggers[i] = t
	}
	for i, a := range w.Actions {
		a.Type = strings.ToLower(strings.TrimSpace(a.Type))
		switch {
		case a.Type == "":
			return domain.NewValidationError("actions", "action %d needs a type", i+1)
		case a.Delay < 0 || a.Delay > maxDelayHours:
			return domain.NewValidationError("actions", "action %d delay must be between 0 and %d hours", i+1, maxDelayHours)
		}
		w.Actions[i] = a
	}
	return nil
}

// ListWorkflows returns the tenant's workflows, optionally with status.
func (s *Service) ListWorkflows(ctx context.Context, tenantID uuid.UUID, status string) ([]domain.Workflow, error) {
	return s.repo.List(ctx, tenantID, status)
}

// CreateWorkflow stores a workflow. Workflows are active unless told otherwise.
func (s *Service) CreateWorkflow(ctx context.Context, tenantID, userID uuid.UUID, in WorkflowInput) (*domain.Workflow, error) {
	w := &domain.Workflow{
		TenantScoped:    domain.TenantScoped{TenantID: tenantID},
		UserID:          userID,
		Name:            auth.CleanText(in.Name),
		Description:     auth.CleanText(in.Description),
		Triggers:        in.Triggers,
		Actions:         in.Actions,
		Status:          in.Status,
		CulturalSetting: in.CulturalSettings,
	}
	if in.Template != "" {
		t, ok := Templates[in.Template]
		if !ok {
			return nil, domain.ErrTemplateNotFound
		}
		w.Template = t.Key
		if w.Name == "" {
			w.Name = t.Name
		}
		if w.Description == "" {
			w.Description = t.Description
		}
		if len(w.Triggers) == 0 {
			w.Triggers = append([]string(nil), t.Triggers...)
		}
		if len(w.Actions) == 0 {
			w.Actions = append([]domain.WorkflowAction(nil), t.Actions...)
		}
	}
	if w.Status == "" {
		w.Status = domain.WorkflowActive
	}
	if err := validate(w); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, w); err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}
	s.logger.InfoContext(ctx, "workflow created", "tenant_id", tenantID, "workflow_id", w.ID, "template", w.Template)
	return w, nil
}

// WorkflowDetail is a workflow with its latest executions.
type WorkflowDetail struct {
	*domain.Workflow
	SuccessRate float64                    `json:"success_rate"`
	Executions  []domain.WorkflowExecution `json:"recent_executions"`
}

// GetWorkflow returns a workflow with its ten latest executions.
func (s *Service) GetWorkflow(ctx context.Context, tenantID, id uuid.UUID) (*WorkflowDetail, error) {
	w, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	execs, err := s.repo.ListExecutions(ctx, tenantID, id, 10)
	if err != nil {
		return nil, err
	}
	return &WorkflowDetail{Workflow: w, SuccessRate: round2(w.SuccessRate()), Executions: execs}, nil
}

// UpdateWorkflow applies the set fields.
func (s *Service) UpdateWorkflow(ctx context.Context, tenantID, id uuid.UUID, in WorkflowUpdate) (*domain.Workflow, error) {
	w, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		w.Name = auth.CleanText(*in.Name)
	}
	if in.Description != nil {
		w.Description = auth.CleanText(*in.Description)
	}
	if in.Triggers != nil {
		w.Triggers = *in.Triggers
	}
	if in.Actions != nil {
		w.Actions = *in.Actions
	}
	if in.Status != nil {
		w.Status = *in.Status
	}
	if in.CulturalSettings != nil {
		w.CulturalSetting = *in.CulturalSettings
	}
	if err := validate(w); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// DeleteWorkflow removes a workflow with its history.
func (s *Service) DeleteWorkflow(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.repo.Delete(ctx, tenantID, id)
}
