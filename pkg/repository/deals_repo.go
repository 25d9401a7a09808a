package repository

import (
	"context"

	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DealFilter narrows deal listings.
type DealFilter struct {
	CustomerID *uuid.UUID
	Stage      string
	Status     string
}

// DealsRepository handles deals and the pipelines they move through.
type DealsRepository struct {
	db *gorm.DB
}

// NewDealsRepository creates a new deals repository.
func NewDealsRepository(db *gorm.DB) *DealsRepository {
	return &DealsRepository{db: db}
}

// List returns every matching deal of a tenant, largest first.
func (r *DealsRepository) List(ctx context.Context, tenantID uuid.UUID, f DealFilter) ([]domain.Deal, error) {
	q := r.db.WithContext(ctx).Scopes(ForTenant(tenantID))
	if f.CustomerID != nil {
		q = q.Where("customer_id = ?", *f.CustomerID)
	}
	if f.Stage != "" {
		q = q.Where("stage = ?", f.Stage)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var deals []domain.Deal
	err := q.Order("value DESC, created_at DESC").Find(&deals).Error
	return deals, err
}

// Get retrieves a deal of a tenant.
func (r *DealsRepository) Get(ctx context.Context, tenantID, id uuid.UUID) (*domain.Deal, error) {
	var deal domain.Deal
	if err := r.db.WithContext(ctx).Scopes(ForTenant(tenantID)).First(&deal, "id = ?", id).Error; err != nil {
		return nil, notFound(err, domain.ErrDealNotFound)
	}
	return &deal, nil
}

// Create stores a deal.
func (r *DealsRepository) Create(ctx context.Context, deal *domain.Deal) error {
	return r.db.WithContext(ctx).Create(deal).Error
}

// Update saves every column of a deal.
func (r *DealsRepository) Update(ctx context.Context, deal *domain.Deal) error {
	result := r.db.WithContext(ctx).Model(deal).
		Where("tenant_id = ?", deal.TenantID).
		Select("*").Omit("id", "tenant_id", "customer_id", "created_at").
		Updates(deal)
	return affected(result, domain.ErrDealNotFound)
}

// ListPipelines returns the active pipelines of a tenant, default first.
func (r *DealsRepository) ListPipelines(ctx context.Context, tenantID uuid.UUID) ([]domain.Pipeline, error) {
	var pipelines []domain.Pipeline
	err := r.db.WithContext(ctx).Scopes(ForTenant(tenantID)).
		Where("is_active = ?", true).
		Order("is_default DESC, created_at ASC").
		Find(&pipelines).Error
	return pipelines, err
}

// GetPipeline retrieves a pipeline of a tenant.
func (r *DealsRepository) GetPipeline(ctx context.Context, tenantID, id uuid.UUID) (*domain.Pipeline, error) {
	var p domain.Pipeline
	if err := r.db.WithContext(ctx).Scopes(ForTenant(tenantID)).First(&p, "id = ?", id).Error; err != nil {
		return nil, notFound(err, domain.ErrPipelineNotFound)
	}
	return &p, nil
}

// CreatePipeline stores a pipeline. A new default pipeline clears the previous default.
func (r *DealsRepository) CreatePipeline(ctx context.Context, p *domain.Pipeline) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if p.IsDefault {
			err := tx.Model(&domain.Pipeline{}).
				Where("tenant_id = ? AND is_default = ?", p.TenantID, true).
				Update("is_default", false).Error
			if err != nil {
				return err
			}
		}
		return tx.Create(p).Error
	})
}
