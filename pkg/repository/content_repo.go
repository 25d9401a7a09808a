package repository

import (
	"context"
	"time"

	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ContentFilter narrows content listings.
type ContentFilter struct {
	ContentType string
	Status      string
	Language    string
}

// ContentRepository handles content, templates and publishing schedules.
type ContentRepository struct {
	db *gorm.DB
}

// NewContentRepository creates a new content repository.
func NewContentRepository(db *gorm.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

// List returns a page of tenant content, newest first, and the total match count.
func (r *ContentRepository) List(ctx context.Context, tenantID uuid.UUID, f ContentFilter, page domain.Page) ([]domain.Content, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Content{}).Scopes(ForTenant(tenantID))
	if f.ContentType != "" {
		q = q.Where("content_type = ?", f.ContentType)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Language != "" {
		q = q.Where("language = ?", f.Language)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []domain.Content
	err := q.Order("created_at DESC").Scopes(Paginate(page.Offset(), page.PerPage)).Find(&items).Error
	return items, total, err
}

// Get retrieves a content row of a tenant.
func (r *ContentRepository) Get(ctx context.Context, tenantID, id uuid.UUID) (*domain.Content, error) {
	var c domain.Content
	if err := r.db.WithContext(ctx).Scopes(ForTenant(tenantID)).First(&c, "id = ?", id).Error; err != nil {
		return nil, notFound(err, domain.ErrContentNotFound)
	}
	return &c, nil
}

// Create stores a content row.
func (r *ContentRepository) Create(ctx context.Context, c *domain.Content) error {
	return r.db.WithContext(ctx).Create(c).Error
}

// Update saves every column of a content row.
func (r *ContentRepository) Update(ctx context.Context, c *domain.Content) error {
	result := r.db.WithContext(ctx).Model(c).
		Where("tenant_id = ?", c.TenantID).
		Select("*").Omit("id", "tenant_id", "user_id", "created_at").
		Updates(c)
	return affected(result, domain.ErrContentNotFound)
}

// Delete removes a content row and its schedules.
func (r *ContentRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Scopes(ForTenant(tenantID)).Delete(&domain.Content{}, "id = ?", id)
		if err := affected(result, domain.ErrContentNotFound); err != nil {
			return err
		}
		return tx.Where("content_id = ?", id).Delete(&domain.ContentSchedule{}).Error
	})
}

// CountByStatus counts tenant content with status. An empty status counts everything.
func (r *ContentRepository) CountByStatus(ctx context.Context, tenantID uuid.UUID, status string) (int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Content{}).Scopes(ForTenant(tenantID))
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

// ListTemplates returns the active templates of a tenant, optionally of one type.
func (r *ContentRepository) ListTemplates(ctx context.Context, tenantID uuid.UUID, contentType string) ([]domain.ContentTemplate, error) {
	q := r.db.WithContext(ctx).Scopes(ForTenant(tenantID)).Where("is_active = ?", true)
	if contentType != "" {
		q = q.Where("content_type = ?", contentType)
	}
	var templates []domain.ContentTemplate
	err := q.Order("usage_count DESC, name ASC").Find(&templates).Error
	return templates, err
}

// GetTemplate retrieves a template of a tenant.
func (r *ContentRepository) GetTemplate(ctx context.Context, tenantID, id uuid.UUID) (*domain.ContentTemplate, error) {
	var t domain.ContentTemplate
	if err := r.db.WithContext(ctx).Scopes(ForTenant(tenantID)).First(&t, "id = ?", id).Error; err != nil {
		return nil, notFound(err, domain.ErrTemplateNotFound)
	}
	return &t, nil
}

// CreateTemplate stores a template.
func (r *ContentRepository) CreateTemplate(ctx context.Context, t *domain.ContentTemplate) error {
	return r.db.WithContext(ctx).Create(t).Error
}

// IncrementTemplateUsage bumps the usage counter of a template.
func (r *ContentRepository) IncrementTemplateUsage(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&domain.ContentTemplate{}).Where("id = ?", id).
		UpdateColumn("usage_count", gorm.Expr("usage_count + 1")).Error
}

// CreateSchedule queues content for publishing.
func (r *ContentRepository) CreateSchedule(ctx context.Context, s *domain.ContentSchedule) error {
	return r.db.WithContext(ctx).Create(s).Error
}

// ListSchedules returns the schedules of a tenant in publishing order.
func (r *ContentRepository) ListSchedules(ctx context.Context, tenantID uuid.UUID) ([]domain.ContentSchedule, error) {
	var items []domain.ContentSchedule
	err := r.db.WithContext(ctx).Scopes(ForTenant(tenantID)).Order("scheduled_at ASC").Find(&items).Error
	return items, err
}

// DueSchedules returns up to limit schedules across tenants that should publish at now.
func (r *ContentRepository) DueSchedules(ctx context.Context, now time.Time, limit int) ([]domain.ContentSchedule, error) {
	var items []domain.ContentSchedule
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_at <= ? AND retry_count < max_retries", domain.PostScheduled, now.UTC()).
		Order("scheduled_at ASC").Limit(limit).Find(&items).Error
	return items, err
}

// SaveSchedule persists the outcome of a publishing attempt.
func (r *ContentRepository) SaveSchedule(ctx context.Context, s *domain.ContentSchedule) error {
	return r.db.WithContext(ctx).Model(s).
		Select("status", "published_at", "platform_post_id", "error_message", "retry_count", "updated_at").
		Updates(s).Error
}
