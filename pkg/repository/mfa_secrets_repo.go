package repository

import (
	"context"
	"time"

	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MFASecretsRepository handles MFA secret persistence
type MFASecretsRepository struct {
	db *gorm.DB
}

// NewMFASecretsRepository creates a new MFA secrets repository
func NewMFASecretsRepository(db *gorm.DB) *MFASecretsRepository {
	return &MFASecretsRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *MFASecretsRepository) WithTx(tx *gorm.DB) *MFASecretsRepository {
	return &MFASecretsRepository{db: tx}
}

// Create stores a new MFA secret
func (r *MFASecretsRepository) Create(ctx context.Context, secret *domain.MFASecret) error {
	if secret.ID == uuid.Nil {
		secret.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(secret).Error
}

// GetByUserIDAndMethod retrieves the MFA secret of a user for a method
func (r *MFASecretsRepository) GetByUserIDAndMethod(ctx context.Context, userID uuid.UUID, method domain.MFAMethod) (*domain.MFASecret, error) {
	var secret domain.MFASecret
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND method = ?", userID, method).
		First(&secret).Error
	if err != nil {
		return nil, notFound(err, domain.ErrMFANotSetUp)
	}
	return &secret, nil
}

// UpdateLastUsed stamps the last successful use
func (r *MFASecretsRepository) UpdateLastUsed(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&domain.MFASecret{}).Where("id = ?", id).
		Update("last_used_at", time.Now()).Error
}

// DeleteAllByUserID removes all MFA secrets of a user
func (r *MFASecretsRepository) DeleteAllByUserID(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&domain.MFASecret{}).Error
}
