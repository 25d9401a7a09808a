package repository

import (
	"context"

	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LeadFilter narrows lead listings.
type LeadFilter struct {
	CustomerID *uuid.UUID
	Source     string
	Status     string
	ScoreMin   int
}

// LeadsRepository handles lead persistence.
type LeadsRepository struct {
	db *gorm.DB
}

// NewLeadsRepository creates a new leads repository.
func NewLeadsRepository(db *gorm.DB) *LeadsRepository {
	return &LeadsRepository{db: db}
}

// List returns the leads of a tenant, best score first.
func (r *LeadsRepository) List(ctx context.Context, tenantID uuid.UUID, f LeadFilter, page domain.Page) ([]domain.Lead, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Lead{}).Scopes(ForTenant(tenantID))
	if f.CustomerID != nil {
		q = q.Where("customer_id = ?", *f.CustomerID)
	}
	if f.Source != "" {
		q = q.Where("source = ?", f.Source)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.ScoreMin > 0 {
		q = q.Where("score >= ?", f.ScoreMin)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var leads []domain.Lead
	err := q.Order("score DESC, created_at DESC").Scopes(Paginate(page.Offset(), page.PerPage)).Find(&leads).Error
	return leads, total, err
}

// Get retrieves a lead of a tenant.
func (r *LeadsRepository) Get(ctx context.Context, tenantID, id uuid.UUID) (*domain.Lead, error) {
	var lead domain.Lead
	if err := r.db.WithContext(ctx).Scopes(ForTenant(tenantID)).First(&lead, "id = ?", id).Error; err != nil {
		return nil, notFound(err, domain.ErrLeadNotFound)
	}
	return &lead, nil
}

// Create stores a lead.
func (r *LeadsRepository) Create(ctx context.Context, lead *domain.Lead) error {
	return r.db.WithContext(ctx).Create(lead).Error
}

// Update saves every column of a lead.
func (r *LeadsRepository) Update(ctx context.Context, lead *domain.Lead) error {
	result := r.db.WithContext(ctx).Model(lead).
		Where("tenant_id = ?", lead.TenantID).
		Select("*").Omit("id", "tenant_id", "customer_id", "created_at").
		Updates(lead)
	return affected(result, domain.ErrLeadNotFound)
}

// CountBySource groups the leads of a tenant by source.
func (r *LeadsRepository) CountBySource(ctx context.Context, tenantID uuid.UUID) ([]GroupCount, error) {
	var rows []GroupCount
	err := r.db.WithContext(ctx).Model(&domain.Lead{}).Scopes(ForTenant(tenantID)).
		Select("source AS group_key, COUNT(*) AS group_count").
		Group("source").Order("group_count DESC").
		Scan(&rows).Error
	return rows, err
}
