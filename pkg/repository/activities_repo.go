package repository

import (
	"context"
	"time"

	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ActivityFilter narrows activity listings.
type ActivityFilter struct {
	CustomerID   *uuid.UUID
	DealID       *uuid.UUID
	ActivityType string
	Completed    *bool
}

// ActivitiesRepository handles CRM activity persistence.
type ActivitiesRepository struct {
	db *gorm.DB
}

// NewActivitiesRepository creates a new activities repository.
func NewActivitiesRepository(db *gorm.DB) *ActivitiesRepository {
	return &ActivitiesRepository{db: db}
}

// List returns a page of activities, newest first, and the total match count.
func (r *ActivitiesRepository) List(ctx context.Context, tenantID uuid.UUID, f ActivityFilter, page domain.Page) ([]domain.Activity, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Activity{}).Scopes(ForTenant(tenantID))
	if f.CustomerID != nil {
		q = q.Where("customer_id = ?", *f.CustomerID)
	}
	if f.DealID != nil {
		q = q.Where("deal_id = ?", *f.DealID)
	}
	if f.ActivityType != "" {
		q = q.Where("activity_type = ?", f.ActivityType)
	}
	if f.Completed != nil {
		q = q.Where("completed = ?", *f.Completed)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []domain.Activity
	err := q.Order("created_at DESC").Scopes(Paginate(page.Offset(), page.PerPage)).Find(&items).Error
	return items, total, err
}

// Recent returns the latest limit activities of a tenant.
func (r *ActivitiesRepository) Recent(ctx context.Context, tenantID uuid.UUID, limit int) ([]domain.Activity, error) {
	var items []domain.Activity
	err := r.db.WithContext(ctx).Scopes(ForTenant(tenantID)).
		Order("created_at DESC").Limit(limit).Find(&items).Error
	return items, err
}

// Get retrieves an activity of a tenant.
func (r *ActivitiesRepository) Get(ctx context.Context, tenantID, id uuid.UUID) (*domain.Activity, error) {
	var a domain.Activity
	if err := r.db.WithContext(ctx).Scopes(ForTenant(tenantID)).First(&a, "id = ?", id).Error; err != nil {
		return nil, notFound(err, domain.ErrActivityNotFound)
	}
	return &a, nil
}

// Create stores an activity.
func (r *ActivitiesRepository) Create(ctx context.Context, a *domain.Activity) error {
	return r.db.WithContext(ctx).Create(a).Error
}

// Complete marks an activity done with an optional outcome.
func (r *ActivitiesRepository) Complete(ctx context.Context, a *domain.Activity) error {
	result := r.db.WithContext(ctx).Model(a).
		Where("tenant_id = ?", a.TenantID).
		Select("completed", "completed_at", "outcome", "updated_at").
		Updates(a)
	return affected(result, domain.ErrActivityNotFound)
}

// CountOverdue counts the open activities of a tenant due before now.
func (r *ActivitiesRepository) CountOverdue(ctx context.Context, tenantID uuid.UUID, now time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Activity{}).Scopes(ForTenant(tenantID)).
		Where("completed = ? AND due_date IS NOT NULL AND due_date < ?", false, now.UTC()).
		Count(&n).Error
	return n, err
}
