package repository

import (
	"context"
	"time"

	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WorkflowsRepository handles workflows, their steps and executions.
type WorkflowsRepository struct {
	db *gorm.DB
}

// NewWorkflowsRepository creates a new workflows repository.
func NewWorkflowsRepository(db *gorm.DB) *WorkflowsRepository {
	return &WorkflowsRepository{db: db}
}

// List returns the workflows of a tenant, optionally with status.
func (r *WorkflowsRepository) List(ctx context.Context, tenantID uuid.UUID, status string) ([]domain.Workflow, error) {
	q := r.db.WithContext(ctx).Scopes(ForTenant(tenantID))
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var items []domain.Workflow
	err := q.Order("created_at DESC").Find(&items).Error
	return items, err
}

// Get retrieves a workflow of a tenant with its steps in order.
func (r *WorkflowsRepository) Get(ctx context.Context, tenantID, id uuid.UUID) (*domain.Workflow, error) {
	var w domain.Workflow
	err := r.db.WithContext(ctx).Scopes(ForTenant(tenantID)).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&w, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, domain.ErrWorkflowNotFound)
	}
	return &w, nil
}

// Create stores a workflow and one step per action.
func (r *WorkflowsRepository) Create(ctx context.Context, w *domain.Workflow) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w.Steps = nil
		if err := tx.Create(w).Error; err != nil {
			return err
		}
		return replaceSteps(tx, w)
	})
}

// Update saves a workflow and rebuilds its steps from the actions.
func (r *WorkflowsRepository) Update(ctx context.Context, w *domain.Workflow) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(w).
			Where("tenant_id = ?", w.TenantID).
			Select("name", "description", "triggers", "actions", "status", "cultural_setting", "updated_at").
			Updates(w)
		if err := affected(result, domain.ErrWorkflowNotFound); err != nil {
			return err
		}
		if err := tx.Where("workflow_id = ?", w.ID).Delete(&domain.WorkflowStep{}).Error; err != nil {
			return err
		}
		return replaceSteps(tx, w)
	})
}

func replaceSteps(tx *gorm.DB, w *domain.Workflow) error {
	w.Steps = make([]domain.WorkflowStep, 0, len(w.Actions))
	for i, a := range w.Actions {
		w.Steps = append(w.Steps, domain.WorkflowStep{
			TenantID:   w.TenantID,
			WorkflowID: w.ID,
			Position:   i + 1,
			StepType:   a.Type,
			DelayHours: a.Delay,
			Config:     a.Config,
		})
	}
	if len(w.Steps) == 0 {
		return nil
	}
	return tx.Create(&w.Steps).Error
}

// Delete removes a workflow with its steps and executions.
func (r *WorkflowsRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Scopes(ForTenant(tenantID)).Delete(&domain.Workflow{}, "id = ?", id)
		if err := affected(result, domain.ErrWorkflowNotFound); err != nil {
			return err
		}
		if err := tx.Where("workflow_id = ?", id).Delete(&domain.WorkflowStep{}).Error; err != nil {
			return err
		}
		return tx.Where("workflow_id = ?", id).Delete(&domain.WorkflowExecution{}).Error
	})
}

// ActiveWithTrigger returns the active workflows of a tenant that start on trigger.
func (r *WorkflowsRepository) ActiveWithTrigger(ctx context.Context, tenantID uuid.UUID, trigger string) ([]domain.Workflow, error) {
	var candidates []domain.Workflow
	err := r.db.WithContext(ctx).Scopes(ForTenant(tenantID)).
		Where("status = ? AND triggers LIKE ?", domain.WorkflowActive, `%"`+trigger+`"%`).
		Order("created_at ASC").Find(&candidates).Error
	if err != nil {
		return nil, err
	}
	matched := candidates[:0]
	for _, w := range candidates {
		if w.HasTrigger(trigger) {
			matched = append(matched, w)
		}
	}
	return matched, nil
}

// CreateExecution stores an execution.
func (r *WorkflowsRepository) CreateExecution(ctx context.Context, e *domain.WorkflowExecution) error {
	return r.db.WithContext(ctx).Create(e).Error
}

// FinishExecution saves the outcome of an execution and updates the workflow counters.
func (r *WorkflowsRepository) FinishExecution(ctx context.Context, e *domain.WorkflowExecution) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(e).
			Select("status", "steps_completed", "total_steps", "steps", "completed_at", "error_message", "updated_at").
			Updates(e).Error
		if err != nil {
			return err
		}
		updates := map[string]any{
			"execution_count":  gorm.Expr("execution_count + 1"),
			"last_executed_at": time.Now(),
		}
		if e.Status == domain.ExecutionCompleted {
			updates["success_count"] = gorm.Expr("success_count + 1")
		}
		return tx.Model(&domain.Workflow{}).Where("id = ?", e.WorkflowID).UpdateColumns(updates).Error
	})
}

// ListExecutions returns the latest limit executions of a workflow.
func (r *WorkflowsRepository) ListExecutions(ctx context.Context, tenantID, workflowID uuid.UUID, limit int) ([]domain.WorkflowExecution, error) {
	var items []domain.WorkflowExecution
	err := r.db.WithContext(ctx).Scopes(ForTenant(tenantID)).
		Where("workflow_id = ?", workflowID).
		Order("started_at DESC").Limit(limit).Find(&items).Error
	return items, err
}

// ExecutionCounts counts the executions of a tenant since, by status.
func (r *WorkflowsRepository) ExecutionCounts(ctx context.Context, tenantID uuid.UUID, since time.Time) ([]GroupCount, error) {
	var rows []GroupCount
	err := r.db.WithContext(ctx).Model(&domain.WorkflowExecution{}).Scopes(ForTenant(tenantID)).
		Where("started_at >= ?", since.UTC()).
		Select("status AS group_key, COUNT(*) AS group_count").
		Group("status").
		Scan(&rows).Error
	return rows, err
}

// CountActive counts the active workflows of a tenant.
func (r *WorkflowsRepository) CountActive(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Workflow{}).Scopes(ForTenant(tenantID)).
		Where("status = ?", domain.WorkflowActive).Count(&n).Error
	return n, err
}
