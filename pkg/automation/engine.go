package automation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cloudboost/cloudboost-api/pkg/crm"
	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/google/uuid"
)

// ExecuteInput starts a workflow for a customer. customer_data stands in for a
// stored customer when customer_id is absent.
type ExecuteInput struct {
	CustomerID   *uuid.UUID     `json:"customer_id"`
	CustomerData domain.JSONMap `json:"customer_data"`
	TriggerEvent string         `json:"trigger_event"`
	TriggerData  domain.JSONMap `json:"trigger_data"`
}

// contact is who a workflow acts on.
type contact struct {
	ID              *uuid.UUID
	Name            string
	Email           string
	Phone           string
	Company         string
	CompanySize     string
	Industry        string
	Country         string
	Status          string
	EngagementScore int
	LastContactAt   *time.Time
}

func contactFromCustomer(c *domain.Customer) *contact {
	id := c.ID
	return &contact{
		ID:              &id,
		Name:            c.Name,
		Email:           c.Email,
		Phone:           c.Phone,
		Company:         c.Company,
		CompanySize:     c.CompanySize,
		Industry:        c.Industry,
		Country:         c.Country,
		Status:          c.Status,
		EngagementScore: c.EngagementScore,
		LastContactAt:   c.LastContactAt,
	}
}

func contactFromData(data domain.JSONMap) *contact {
	c := &contact{
		Name:            str(data, "name"),
		Email:           str(data, "email"),
		Phone:           str(data, "phone"),
		Company:         str(data, "company"),
		CompanySize:     str(data, "company_size"),
		Industry:        str(data, "industry"),
		Country:         strings.ToUpper(str(data, "country")),
		Status:          str(data, "status"),
		EngagementScore: num(data, "engagement_score", 50),
	}
	if raw := str(data, "id"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			c.ID = &id
		}
	}
	if days := num(data, "days_since_contact", -1); days >= 0 {
		at := time.Now().UTC().AddDate(0, 0, -days)
		c.LastContactAt = &at
	}
	return c
}

func (s *Service) resolveContact(ctx context.Context, tenantID uuid.UUID, id *uuid.UUID, data domain.JSONMap) (*contact, error) {
	if id == nil {
		if raw := str(data, "id"); raw != "" {
			if parsed, err := uuid.Parse(raw); err == nil {
				id = &parsed
			}
		}
	}
	if id != nil {
		detail, err := s.crm.GetCustomer(ctx, tenantID, *id)
		if err == nil {
			return contactFromCustomer(detail.Customer), nil
		}
		if !errors.Is(err, domain.ErrCustomerNotFound) || len(data) == 0 {
			return nil, err
		}
	}
	return contactFromData(data), nil
}

// Execute runs every action of a workflow and records the execution. Actions
// without delay run now; delayed message actions are queued for their time and
// other delayed actions are recorded as scheduled.
func (s *Service) Execute(ctx context.Context, tenantID, userID, workflowID uuid.UUID, in ExecuteInput) (*domain.WorkflowExecution, error) {
	w, err := s.repo.Get(ctx, tenantID, workflowID)
	if err != nil {
		return nil, err
	}
	if w.Status != domain.WorkflowActive {
		return nil, domain.ErrWorkflowNotActive
	}
	c, err := s.resolveContact(ctx, tenantID, in.CustomerID, in.CustomerData)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, userID, w, c, in)
}

func (s *Service) run(ctx context.Context, userID uuid.UUID, w *domain.Workflow, c *contact, in ExecuteInput) (*domain.WorkflowExecution, error) {
	start := s.now()
	e := &domain.WorkflowExecution{
		TenantScoped: domain.TenantScoped{TenantID: w.TenantID},
		WorkflowID:   w.ID,
		CustomerID:   c.ID,
		TriggerEvent: in.TriggerEvent,
		TriggerData:  in.TriggerData,
		Status:       domain.ExecutionRunning,
		TotalSteps:   len(w.Actions),
		Steps:        []domain.StepResult{},
		StartedAt:    start,
	}
	if err := s.repo.CreateExecution(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to record execution: %w", err)
	}

	e.Status = domain.ExecutionCompleted
	for i, a := range w.Actions {
		step := s.runStep(ctx, w.TenantID, userID, c, a, start)
		step.Position = i + 1
		e.Steps = append(e.Steps, step)
		if step.Status == domain.StepFailed {
			e.Status = domain.ExecutionFailed
			e.ErrorMessage = fmt.Sprintf("step %d (%s): %s", step.Position, step.Type, step.Error)
			break
		}
		if step.Status != domain.StepSkipped {
			e.StepsCompleted++
		}
	}

	done := s.now()
	e.CompletedAt = &done
	if err := s.repo.FinishExecution(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to record execution: %w", err)
	}
	s.metrics.WorkflowExecuted(e.Status)
	s.logger.InfoContext(ctx, "workflow executed",
		"tenant_id", w.TenantID,
		"workflow_id", w.ID,
		"execution_id", e.ID,
		"status", e.Status,
		"steps_completed", e.StepsCompleted)
	return e, nil
}

// TriggerInput fires an event at the tenant's workflows.
type TriggerInput struct {
	TriggerType string         `json:"trigger_type"`
	Data        domain.JSONMap `json:"data"`
}

// Trigger executes every active workflow that starts on the trigger type.
func (s *Service) Trigger(ctx context.Context, tenantID, userID uuid.UUID, in TriggerInput) ([]*domain.WorkflowExecution, error) {
	trigger := strings.ToLower(strings.TrimSpace(in.TriggerType))
	if trigger == "" {
		return nil, domain.Required("trigger_type")
	}
	workflows, err := s.repo.ActiveWithTrigger(ctx, tenantID, trigger)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflows: %w", err)
	}
	execs := make([]*domain.WorkflowExecution, 0, len(workflows))
	if len(workflows) == 0 {
		return execs, nil
	}

	c, err := s.resolveContact(ctx, tenantID, nil, in.Data)
	if err != nil {
		return nil, err
	}
	for i := range workflows {
		e, err := s.run(ctx, userID, &workflows[i], c, ExecuteInput{TriggerEvent: trigger, TriggerData: in.Data})
		if err != nil {
			return nil, err
		}
		execs = append(execs, e)
	}
	return execs, nil
}

// messageActions maps action types to a channel and default template.
var messageActions = map[string]struct {
	channel  string
	template string
}{
	"send_email":            {domain.ChannelEmail, ""},
	"send_sms":              {domain.ChannelSMS, ""},
	"send_whatsapp":         {domain.ChannelWhatsApp, ""},
	"send_welcome_kit":      {domain.ChannelEmail, "welcome_kit"},
	"send_tutorial_videos":  {domain.ChannelEmail, "tutorial_videos"},
	"personalized_outreach": {"", "check_in"},
}

// activityActions maps action types to the CRM activity they create.
var activityActions = map[string]struct {
	kind     string
	subject  string
	priority string
}{
	"create_task":              {"task", "Follow up", domain.PriorityMedium},
	"assign_sales_rep":         {"task", "Assign sales representative", domain.PriorityMedium},
	"schedule_call":            {"call", "Scheduled call", domain.PriorityMedium},
	"schedule_onboarding_call": {"call", "Onboarding call", domain.PriorityMedium},
	"check_progress":           {"task", "Check customer progress", domain.PriorityLow},
	"offer_assistance":         {"task", "Offer assistance", domain.PriorityMedium},
	"escalate_to_manager":      {"task", "Escalate to manager", domain.PriorityHigh},
}

func (s *Service) runStep(ctx context.Context, tenantID, userID uuid.UUID, c *contact, a domain.WorkflowAction, start time.Time) domain.StepResult {
	runAt := start.Add(time.Duration(a.Delay) * time.Hour)
	step := domain.StepResult{Type: a.Type, RunAt: runAt, Output: map[string]any{}}
	deferred := a.Delay > 0

	if m, ok := messageActions[a.Type]; ok {
		return s.sendStep(ctx, tenantID, userID, c, a, m.channel, m.template, step, deferred)
	}
	if act, ok := activityActions[a.Type]; ok {
		return s.activityStep(ctx, tenantID, userID, c, a, act.kind, act.subject, act.priority, step, deferred)
	}

	switch a.Type {
	case "wait", "delay":
		step.Status = domain.StepScheduled
		step.Output["resume_at"] = runAt
	case "update_lead_score":
		if deferred {
			step.Status = domain.StepScheduled
			return step
		}
		return s.scoreStep(ctx, tenantID, c, a, step)
	case "analyze_behavior":
		p := predict(c, s.now())
		step.Status = domain.StepCompleted
		step.Output["churn_probability"] = p.ChurnRisk.Probability
		step.Output["risk_level"] = p.ChurnRisk.RiskLevel
	default:
		step.Status = domain.StepSkipped
		step.Error = "unsupported action type"
	}
	return step
}

func (s *Service) sendStep(ctx context.Context, tenantID, userID uuid.UUID, c *contact, a domain.WorkflowAction, channel, template string, step domain.StepResult, deferred bool) domain.StepResult {
	if ch := str(a.Config, "channel"); ch != "" && ch != "preferred" {
		channel = ch
	}
	if channel == "" {
		channel = preferredChannels(geography(c.Country))[0]
	}
	recipient := c.Phone
	if channel == domain.ChannelEmail {
		recipient = c.Email
	}
	if recipient == "" {
		step.Status = domain.StepSkipped
		step.Error = fmt.Sprintf("customer has no %s contact", channel)
		return step
	}

	if t := str(a.Config, "template"); t != "" {
		template = t
	}
	subject, body := str(a.Config, "subject"), str(a.Config, "content")
	if mt, ok := messageTemplates[template]; ok {
		subject = firstNonEmpty(subject, mt.Subject)
		body = firstNonEmpty(body, mt.Body)
	}
	if body == "" {
		step.Status = domain.StepFailed
		step.Error = "action has no content or known template"
		return step
	}

	in := messagingInput(channel, recipient, render(subject, c), render(body, c), c.Country)
	if deferred {
		runAt := step.RunAt
		in.ScheduledAt = &runAt
	}
	msg, err := s.messenger.Send(ctx, tenantID, userID, in)
	if err != nil {
		step.Status = domain.StepFailed
		step.Error = err.Error()
		return step
	}
	step.Status = domain.StepCompleted
	if deferred {
		step.Status = domain.StepScheduled
	}
	step.Output["channel"] = channel
	step.Output["message_id"] = msg.ID
	step.Output["delivery_status"] = msg.Status
	return step
}

func (s *Service) activityStep(ctx context.Context, tenantID, userID uuid.UUID, c *contact, a domain.WorkflowAction, kind, subject, priority string, step domain.StepResult, deferred bool) domain.StepResult {
	if c.ID == nil {
		step.Status = domain.StepSkipped
		step.Error = "no stored customer to attach the activity to"
		return step
	}
	due := step.RunAt
	activity, err := s.crm.CreateActivity(ctx, tenantID, userID, crm.ActivityInput{
		CustomerID:  *c.ID,
		Type:        kind,
		Subject:     firstNonEmpty(str(a.Config, "subject"), subject),
		Description: describe(a.Config),
		Priority:    priority,
		DueDate:     &due,
	})
	if err != nil {
		step.Status = domain.StepFailed
		step.Error = err.Error()
		return step
	}
	step.Status = domain.StepCompleted
	if deferred {
		step.Status = domain.StepScheduled
	}
	step.Output["activity_id"] = activity.ID
	return step
}

func (s *Service) scoreStep(ctx context.Context, tenantID uuid.UUID, c *contact, a domain.WorkflowAction, step domain.StepResult) domain.StepResult {
	if c.ID == nil {
		step.Status = domain.StepSkipped
		step.Error = "no stored customer to score"
		return step
	}
	score := c.EngagementScore + num(a.Config, "delta", 10)
	if abs := num(a.Config, "score", -1); abs >= 0 {
		score = abs
	}
	score = max(0, min(score, 100))

	updated, err := s.crm.UpdateCustomer(ctx, tenantID, *c.ID, crm.CustomerInput{EngagementScore: &score})
	if err != nil {
		step.Status = domain.StepFailed
		step.Error = err.Error()
		return step
	}
	c.EngagementScore = updated.EngagementScore
	step.Status = domain.StepCompleted
	step.Output["engagement_score"] = updated.EngagementScore
	if updated.LeadScore != nil {
		step.Output["lead_score"] = *updated.LeadScore
	}
	return step
}

// describe renders action settings other than subject and content as text.
func describe(cfg map[string]any) string {
	var parts []string
	for _, k := range sortedKeys(cfg) {
		if k == "subject" || k == "content" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %v", k, cfg[k]))
	}
	if len(parts) == 0 {
		return "Created by workflow automation"
	}
	return "Created by workflow automation (" + strings.Join(parts, ", ") + ")"
}

func str(m map[string]any, key string) string {
	if v, ok := m[key]; ok && v != nil {
		switch t := v.(type) {
		case string:
			return strings.TrimSpace(t)
		default:
			return fmt.Sprint(t)
		}
	}
	return ""
}

// num reads an integer setting that may have been decoded from JSON as a float or string.
func num(m map[string]any, key string, def int) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
