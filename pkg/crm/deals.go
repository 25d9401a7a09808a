package crm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudboost/cloudboost-api/pkg/auth"
	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/cloudboost/cloudboost-api/pkg/repository"
	"github.com/google/uuid"
)

// Deal stages
const (
	StageQualification = "qualification"
	StageNeedsAnalysis = "needs_analysis"
	StageProposal      = "proposal"
	StageNegotiation   = "negotiation"
	StageClosedWon     = "closed_won"
	StageClosedLost    = "closed_lost"
)

// DefaultStages is the stage list of the built-in sales pipeline.
var DefaultStages = []domain.PipelineStage{
	{Name: StageQualification, Probability: 20},
	{Name: StageNeedsAnalysis, Probability: 40},
	{Name: StageProposal, Probability: 60},
	{Name: StageNegotiation, Probability: 80},
	{Name: StageClosedWon, Probability: 100},
	{Name: StageClosedLost, Probability: 0},
}

func stageProbability(stage string) (int, bool) {
	for _, s := range DefaultStages {
		if s.Name == stage {
			return s.Probability, true
		}
	}
	return 0, false
}

// DealInput carries deal fields. Nil fields are kept on update.
type DealInput struct {
	CustomerID        *uuid.UUID            `json:"customer_id"`
	PipelineID        *uuid.UUID            `json:"pipeline_id"`
	Title             *string               `json:"title"`
	Description       *string               `json:"description"`
	Value             *float64              `json:"value"`
	Currency          *string               `json:"currency"`
	Stage             *string               `json:"stage"`
	Probability       *int                  `json:"probability"`
	Source            *string               `json:"source"`
	Products          *[]domain.DealProduct `json:"products"`
	ExpectedCloseDate *time.Time            `json:"expected_close_date"`
	LostReason        *string               `json:"lost_reason"`
	AssignedTo        *uuid.UUID            `json:"assigned_to"`
}

// StageSummary aggregates the deals of one stage.
type StageSummary struct {
	Count         int     `json:"count"`
	TotalValue    float64 `json:"total_value"`
	WeightedValue float64 `json:"weighted_value"`
}

// DealList is a deal listing with a per-stage summary.
type DealList struct {
	Deals           []domain.Deal           `json:"deals"`
	PipelineSummary map[string]StageSummary `json:"pipeline_summary"`
}

// Summarize groups deals by stage.
func Summarize(deals []domain.Deal) map[string]StageSummary {
	summary := make(map[string]StageSummary)
	for i := range deals {
		d := &deals[i]
		s := summary[d.Stage]
		s.Count++
		s.TotalValue += d.Value
		s.WeightedValue += d.WeightedValue()
		summary[d.Stage] = s
	}
	return summary
}

// ListDeals returns matching deals with their pipeline summary.
func (s *Service) ListDeals(ctx context.Context, tenantID uuid.UUID, f repository.DealFilter) (*DealList, error) {
	deals, err := s.deals.List(ctx, tenantID, f)
	if err != nil {
		return nil, err
	}
	if deals == nil {
		deals = []domain.Deal{}
	}
	return &DealList{Deals: deals, PipelineSummary: Summarize(deals)}, nil
}

// CreateDeal opens a deal for a customer.
func (s *Service) CreateDeal(ctx context.Context, tenantID, userID uuid.UUID, in DealInput) (*domain.Deal, error) {
	switch {
	case in.Title == nil || strings.TrimSpace(*in.Title) == "":
		return nil, domain.Required("title")
	case in.CustomerID == nil || *in.CustomerID == uuid.Nil:
		return nil, domain.Required("customer_id")
	case in.Value == nil:
		return nil, domain.Required("value")
	}
	if _, err := s.customers.Get(ctx, tenantID, *in.CustomerID); err != nil {
		return nil, err
	}

	deal := &domain.Deal{
		TenantScoped: domain.TenantScoped{TenantID: tenantID},
		CustomerID:   *in.CustomerID,
		Currency:     "USD",
		Stage:        StageQualification,
		Probability:  20,
		Status:       domain.DealOpen,
		Source:       "manual",
		Products:     []domain.DealProduct{},
		AssignedTo:   &userID,
	}
	if in.Stage != nil && in.Probability == nil {
		if p, ok := stageProbability(*in.Stage); ok {
			in.Probability = &p
		}
	}
	if err := s.applyDeal(ctx, deal, in); err != nil {
		return nil, err
	}
	if err := s.deals.Create(ctx, deal); err != nil {
		return nil, fmt.Errorf("failed to create deal: %w", err)
	}
	s.invalidateDashboard(ctx, tenantID)
	return deal, nil
}

// UpdateDeal changes a deal. Moving to a new stage resets the probability to the
// stage default unless one is given; closing stages settle the status.
func (s *Service) UpdateDeal(ctx context.Context, tenantID, id uuid.UUID, in DealInput) (*domain.Deal, error) {
	deal, err := s.deals.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if in.Stage != nil && *in.Stage != deal.Stage && in.Probability == nil {
		if p, ok := stageProbability(*in.Stage); ok {
			in.Probability = &p
		}
	}
	in.CustomerID = nil
	if err := s.applyDeal(ctx, deal, in); err != nil {
		return nil, err
	}
	if err := s.deals.Update(ctx, deal); err != nil {
		return nil, err
	}
	s.invalidateDashboard(ctx, tenantID)
	return deal, nil
}

func (s *Service) applyDeal(ctx context.Context, d *domain.Deal, in DealInput) error {
	if in.Title != nil {
		d.Title = auth.CleanText(*in.Title)
	}
	if in.Description != nil {
		d.Description = auth.CleanText(*in.Description)
	}
	if in.Value != nil {
		if *in.Value < 0 {
			return domain.NewValidationError("value", "value must not be negative")
		}
		d.Value = *in.Value
	}
	if in.Currency != nil && *in.Currency != "" {
		if len(*in.Currency) != 3 {
			return domain.NewValidationError("currency", "currency must be a 3 letter code")
		}
		d.Currency = strings.ToUpper(*in.Currency)
	}
	if in.PipelineID != nil {
		p, err := s.deals.GetPipeline(ctx, d.TenantID, *in.PipelineID)
		if err != nil {
			return err
		}
		d.PipelineID = &p.ID
		if in.Stage != nil && !hasStage(p.Stages, *in.Stage) {
			return domain.NewValidationError("stage", "stage %q is not part of pipeline %s", *in.Stage, p.Name)
		}
	} else if in.Stage != nil && d.PipelineID == nil {
		if _, ok := stageProbability(*in.Stage); !ok {
			return domain.NewValidationError("stage", "invalid stage %q", *in.Stage)
		}
	}
	if in.Stage != nil {
		d.Stage = *in.Stage
	}
	if in.Probability != nil {
		if *in.Probability < 0 || *in.Probability > 100 {
			return domain.NewValidationError("probability", "probability must be between 0 and 100")
		}
		d.Probability = *in.Probability
	}
	if in.Source != nil && *in.Source != "" {
		d.Source = *in.Source
	}
	if in.Products != nil {
		d.Products = *in.Products
	}
	if in.ExpectedCloseDate != nil {
		t := in.ExpectedCloseDate.UTC()
		d.ExpectedCloseDate = &t
	}
	if in.LostReason != nil {
		d.LostReason = auth.CleanText(*in.LostReason)
	}
	if in.AssignedTo != nil {
		d.AssignedTo = in.AssignedTo
	}

	switch d.Stage {
	case StageClosedWon:
		d.Status = domain.DealWon
	case StageClosedLost:
		d.Status = domain.DealLost
	default:
		d.Status = domain.DealOpen
		d.ActualCloseDate = nil
	}
	if d.Status != domain.DealOpen && d.ActualCloseDate == nil {
		now := s.now().UTC()
		d.ActualCloseDate = &now
	}
	return nil
}

func hasStage(stages []domain.PipelineStage, name string) bool {
	for _, s := range stages {
		if s.Name == name {
			return true
		}
	}
	return false
}

// ListPipelines returns the tenant's pipelines. A tenant without pipelines gets
// the default sales pipeline.
func (s *Service) ListPipelines(ctx context.Context, tenantID uuid.UUID) ([]domain.Pipeline, error) {
	pipelines, err := s.deals.ListPipelines(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if len(pipelines) > 0 {
		return pipelines, nil
	}

	p := &domain.Pipeline{
		TenantScoped: domain.TenantScoped{TenantID: tenantID},
		Name:         "Sales Pipeline",
		Description:  "Default sales pipeline",
		Stages:       append([]domain.PipelineStage(nil), DefaultStages...),
		IsDefault:    true,
		IsActive:     true,
	}
	if err := s.deals.CreatePipeline(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create default pipeline: %w", err)
	}
	return []domain.Pipeline{*p}, nil
}

// PipelineInput describes a custom pipeline.
type PipelineInput struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Stages      []domain.PipelineStage `json:"stages"`
	IsDefault   bool                   `json:"is_default"`
}

// CreatePipeline stores a custom pipeline. Stage names must be unique.
func (s *Service) CreatePipeline(ctx context.Context, tenantID uuid.UUID, in PipelineInput) (*domain.Pipeline, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, domain.Required("name")
	}
	if len(in.Stages) == 0 {
		return nil, domain.Required("stages")
	}
	seen := make(map[string]bool, len(in.Stages))
	for _, st := range in.Stages {
		name := strings.TrimSpace(st.Name)
		switch {
		case name == "":
			return nil, domain.NewValidationError("stages", "stage name is required")
		case seen[name]:
			return nil, domain.NewValidationError("stages", "duplicate stage %q", name)
		case st.Probability < 0 || st.Probability > 100:
			return nil, domain.NewValidationError("stages", "probability of %q must be between 0 and 100", name)
		}
		seen[name] = true
	}

	p := &domain.Pipeline{
		TenantScoped: domain.TenantScoped{TenantID: tenantID},
		Name:         auth.CleanText(in.Name),
		Description:  in.Description,
		Stages:       in.Stages,
		IsDefault:    in.IsDefault,
		IsActive:     true,
	}
	if err := s.deals.CreatePipeline(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}
	return p, nil
}

// ActivityInput describes a new activity.
type ActivityInput struct {
	CustomerID  uuid.UUID  `json:"customer_id"`
	DealID      *uuid.UUID `json:"deal_id"`
	Type        string     `json:"type"`
	Subject     string     `json:"subject"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
	AssignedTo  *uuid.UUID `json:"assigned_to"`
}

// ListActivities returns a page of activities.
func (s *Service) ListActivities(ctx context.Context, tenantID uuid.UUID, f repository.ActivityFilter, page domain.Page) ([]domain.Activity, domain.Pagination, error) {
	items, total, err := s.activities.List(ctx, tenantID, f, page)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	return items, domain.NewPagination(page, total), nil
}

// CreateActivity logs an activity against a customer and touches its last contact.
func (s *Service) CreateActivity(ctx context.Context, tenantID, userID uuid.UUID, in ActivityInput) (*domain.Activity, error) {
	switch {
	case in.CustomerID == uuid.Nil:
		return nil, domain.Required("customer_id")
	case in.Type == "":
		return nil, domain.Required("type")
	case strings.TrimSpace(in.Subject) == "":
		return nil, domain.Required("subject")
	}
	if _, ok := ActivityTypes[in.Type]; !ok {
		return nil, domain.NewValidationError("type", "invalid activity type %q", in.Type)
	}
	priority := in.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	switch priority {
	case domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh:
	default:
		return nil, domain.NewValidationError("priority", "invalid priority %q", priority)
	}

	customer, err := s.customers.Get(ctx, tenantID, in.CustomerID)
	if err != nil {
		return nil, err
	}
	if in.DealID != nil {
		deal, err := s.deals.Get(ctx, tenantID, *in.DealID)
		if err != nil {
			return nil, err
		}
		if deal.CustomerID != customer.ID {
			return nil, domain.NewValidationError("deal_id", "deal belongs to another customer")
		}
	}

	assignee := userID
	if in.AssignedTo != nil {
		assignee = *in.AssignedTo
	}
	a := &domain.Activity{
		TenantScoped: domain.TenantScoped{TenantID: tenantID},
		CustomerID:   customer.ID,
		DealID:       in.DealID,
		ActivityType: in.Type,
		Subject:      auth.CleanText(in.Subject),
		Description:  auth.CleanText(in.Description),
		Priority:     priority,
		DueDate:      in.DueDate,
		AssignedTo:   assignee,
		CreatedBy:    userID,
	}
	if err := s.activities.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to create activity: %w", err)
	}

	now := s.now().UTC()
	customer.LastContactAt = &now
	if err := s.customers.Update(ctx, customer); err != nil {
		s.logger.WarnContext(ctx, "failed to update last contact", "customer_id", customer.ID, "error", err)
	}
	s.invalidateDashboard(ctx, tenantID)
	return a, nil
}

// CompleteActivity marks an activity done. Completing twice keeps the first time.
func (s *Service) CompleteActivity(ctx context.Context, tenantID, id uuid.UUID, outcome string) (*domain.Activity, error) {
	a, err := s.activities.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if !a.Completed {
		now := s.now().UTC()
		a.Completed = true
		a.CompletedAt = &now
	}
	if outcome != "" {
		a.Outcome = auth.CleanText(outcome)
	}
	if err := s.activities.Complete(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}
