package repository

import (
	"context"
	"strings"

	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TenantsRepository handles tenant persistence.
type TenantsRepository struct {
	db *gorm.DB
}

// NewTenantsRepository creates a new tenants repository.
func NewTenantsRepository(db *gorm.DB) *TenantsRepository {
	return &TenantsRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *TenantsRepository) WithTx(tx *gorm.DB) *TenantsRepository {
	return &TenantsRepository{db: tx}
}

// Create creates a new tenant.
func (r *TenantsRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	err := r.db.WithContext(ctx).Create(tenant).Error
	if IsDuplicate(err) {
		return domain.ErrTenantDomainTaken
	}
	return err
}

// GetByID retrieves a tenant by ID.
func (r *TenantsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	var tenant domain.Tenant
	if err := r.db.WithContext(ctx).First(&tenant, "id = ?", id).Error; err != nil {
		return nil, notFound(err, domain.ErrTenantNotFound)
	}
	return &tenant, nil
}

// GetByDomain retrieves a tenant by its domain.
func (r *TenantsRepository) GetByDomain(ctx context.Context, domainName string) (*domain.Tenant, error) {
	var tenant domain.Tenant
	err := r.db.WithContext(ctx).First(&tenant, "domain = ?", strings.ToLower(domainName)).Error
	if err != nil {
		return nil, notFound(err, domain.ErrTenantNotFound)
	}
	return &tenant, nil
}

// ExistsByDomain checks if a tenant already uses domainName.
func (r *TenantsRepository) ExistsByDomain(ctx context.Context, domainName string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Tenant{}).
		Where("domain = ?", strings.ToLower(domainName)).Count(&count).Error
	return count > 0, err
}

// Update saves name, plan and status.
func (r *TenantsRepository) Update(ctx context.Context, tenant *domain.Tenant) error {
	result := r.db.WithContext(ctx).Model(tenant).
		Select("name", "subscription_plan", "status", "updated_at").
		Updates(tenant)
	return affected(result, domain.ErrTenantNotFound)
}

// List returns every tenant ordered by creation.
func (r *TenantsRepository) List(ctx context.Context) ([]domain.Tenant, error) {
	var tenants []domain.Tenant
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&tenants).Error
	return tenants, err
}
