package domain

import (
	"time"

	"github.com/google/uuid"
)

// Workflow statuses
const (
	WorkflowDraft    = "draft"
	WorkflowActive   = "active"
	WorkflowPaused   = "paused"
	WorkflowInactive = "inactive"
)

// WorkflowAction is one step definition: a type, a delay in hours and free-form settings.
type WorkflowAction struct {
	Type   string         `json:"type"`
	Delay  int            `json:"delay"`
	Config map[string]any `json:"config,omitempty"`
}

// Workflow is an automation: triggers that start it and the actions it runs.
type Workflow struct {
	TenantScoped
	UserID          uuid.UUID        `gorm:"type:uuid;index" json:"user_id"`
	Name            string           `gorm:"size:200;not null" json:"name"`
	Description     string           `gorm:"type:text" json:"description"`
	Template        string           `gorm:"size:50" json:"template,omitempty"`
	Triggers        []string         `gorm:"serializer:json;type:text" json:"triggers"`
	Actions         []WorkflowAction `gorm:"serializer:json;type:text" json:"actions"`
	Status          string           `gorm:"size:20;default:active;index" json:"status"`
	CulturalSetting JSONMap          `gorm:"serializer:json;type:text" json:"cultural_settings"`
	ExecutionCount  int              `gorm:"default:0" json:"execution_count"`
	SuccessCount    int              `gorm:"default:0" json:"success_count"`
	LastExecutedAt  *time.Time       `json:"last_executed_at"`
	Steps           []WorkflowStep   `gorm:"constraint:OnDelete:CASCADE" json:"steps,omitempty"`
}

// HasTrigger reports whether the workflow starts on trigger.
func (w *Workflow) HasTrigger(trigger string) bool {
	for _, t := range w.Triggers {
		if t == trigger {
			return true
		}
	}
	return false
}

// SuccessRate is the percentage of executions that completed.
func (w *Workflow) SuccessRate() float64 {
	if w.ExecutionCount == 0 {
		return 0
	}
	return float64(w.SuccessCount) / float64(w.ExecutionCount) * 100
}

// WorkflowStep is the persisted form of one action, in execution order.
type WorkflowStep struct {
	Base
	TenantID   uuid.UUID      `gorm:"type:uuid;index;not null" json:"tenant_id"`
	WorkflowID uuid.UUID      `gorm:"type:uuid;index;not null" json:"workflow_id"`
	Position   int            `gorm:"not null" json:"position"`
	StepType   string         `gorm:"size:50;not null" json:"step_type"`
	DelayHours int            `gorm:"default:0" json:"delay_hours"`
	Config     map[string]any `gorm:"serializer:json;type:text" json:"config"`
}

// Execution statuses
const (
	ExecutionRunning   = "running"
	ExecutionCompleted = "completed"
	ExecutionFailed    = "failed"
)

// Step result statuses
const (
	StepCompleted = "completed"
	StepScheduled = "scheduled"
	StepSkipped   = "skipped"
	StepFailed    = "failed"
)

// StepResult is the outcome of interpreting one action.
type StepResult struct {
	Position int            `json:"position"`
	Type     string         `json:"type"`
	Status   string         `json:"status"`
	RunAt    time.Time      `json:"run_at"`
	Output   map[string]any `json:"output,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// WorkflowExecution records one run of a workflow.
type WorkflowExecution struct {
	TenantScoped
	WorkflowID     uuid.UUID    `gorm:"type:uuid;index;not null" json:"workflow_id"`
	CustomerID     *uuid.UUID   `gorm:"type:uuid;index" json:"customer_id"`
	TriggerEvent   string       `gorm:"size:50" json:"trigger_event"`
	TriggerData    JSONMap      `gorm:"serializer:json;type:text" json:"trigger_data"`
	Status         string       `gorm:"size:20;default:running;index" json:"status"`
	StepsCompleted int          `json:"steps_completed"`
	TotalSteps     int          `json:"total_steps"`
	Steps          []StepResult `gorm:"serializer:json;type:text" json:"steps"`
	StartedAt      time.Time    `json:"started_at"`
	CompletedAt    *time.Time   `json:"completed_at"`
	ErrorMessage   string       `gorm:"type:text" json:"error_message,omitempty"`
}
