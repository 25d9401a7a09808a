package repository

import (
	"context"
	"time"

	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BusinessRepository handles business profiles and stored integration keys.
type BusinessRepository struct {
	db *gorm.DB
}

// NewBusinessRepository creates a new business repository.
func NewBusinessRepository(db *gorm.DB) *BusinessRepository {
	return &BusinessRepository{db: db}
}

// GetProfile retrieves the profile of a tenant.
func (r *BusinessRepository) GetProfile(ctx context.Context, tenantID uuid.UUID) (*domain.BusinessProfile, error) {
	var profile domain.BusinessProfile
	if err := r.db.WithContext(ctx).First(&profile, "tenant_id = ?", tenantID).Error; err != nil {
		return nil, notFound(err, domain.ErrProfileNotFound)
	}
	return &profile, nil
}

// CreateProfile stores the profile. A tenant has at most one.
func (r *BusinessRepository) CreateProfile(ctx context.Context, profile *domain.BusinessProfile) error {
	err := r.db.WithContext(ctx).Create(profile).Error
	if IsDuplicate(err) {
		return domain.ErrProfileExists
	}
	return err
}

// UpdateProfile saves every column of the profile.
func (r *BusinessRepository) UpdateProfile(ctx context.Context, profile *domain.BusinessProfile) error {
	result := r.db.WithContext(ctx).Model(profile).
		Where("tenant_id = ?", profile.TenantID).
		Select("*").Omit("id", "tenant_id", "created_at").
		Updates(profile)
	return affected(result, domain.ErrProfileNotFound)
}

// ListAPIKeys returns the keys of a tenant.
func (r *BusinessRepository) ListAPIKeys(ctx context.Context, tenantID uuid.UUID) ([]domain.APIKey, error) {
	var keys []domain.APIKey
	err := r.db.WithContext(ctx).Scopes(ForTenant(tenantID)).
		Order("platform ASC, key_name ASC").Find(&keys).Error
	return keys, err
}

// GetAPIKey retrieves a key of a tenant.
func (r *BusinessRepository) GetAPIKey(ctx context.Context, tenantID, id uuid.UUID) (*domain.APIKey, error) {
	var key domain.APIKey
	err := r.db.WithContext(ctx).Scopes(ForTenant(tenantID)).First(&key, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, domain.ErrAPIKeyNotFound)
	}
	return &key, nil
}

// GetActiveAPIKey retrieves the newest active key of a tenant for platform.
func (r *BusinessRepository) GetActiveAPIKey(ctx context.Context, tenantID uuid.UUID, platform string) (*domain.APIKey, error) {
	var key domain.APIKey
	err := r.db.WithContext(ctx).Scopes(ForTenant(tenantID)).
		Where("platform = ? AND status = ?", platform, domain.APIKeyActive).
		Order("created_at DESC").
		First(&key).Error
	if err != nil {
		return nil, notFound(err, domain.ErrAPIKeyNotFound)
	}
	return &key, nil
}

// CreateAPIKey stores a key. Platform and name are unique per tenant.
func (r *BusinessRepository) CreateAPIKey(ctx context.Context, key *domain.APIKey) error {
	err := r.db.WithContext(ctx).Create(key).Error
	if IsDuplicate(err) {
		return domain.ErrAPIKeyExists
	}
	return err
}

// UpdateAPIKey saves the encrypted value, status and expiry.
func (r *BusinessRepository) UpdateAPIKey(ctx context.Context, key *domain.APIKey) error {
	result := r.db.WithContext(ctx).Model(key).
		Where("tenant_id = ?", key.TenantID).
		Select("encrypted_key", "status", "expires_at", "updated_at").
		Updates(key)
	return affected(result, domain.ErrAPIKeyNotFound)
}

// TouchAPIKey records a use of the key.
func (r *BusinessRepository) TouchAPIKey(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&domain.APIKey{}).Where("id = ?", id).
		Update("last_used_at", time.Now()).Error
}

// DeleteAPIKey removes a key of a tenant.
func (r *BusinessRepository) DeleteAPIKey(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Scopes(ForTenant(tenantID)).Delete(&domain.APIKey{}, "id = ?", id)
	return affected(result, domain.ErrAPIKeyNotFound)
}
