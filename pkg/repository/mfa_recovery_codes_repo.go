package repository

import (
	"context"
	"time"

	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MFARecoveryCodesRepository handles MFA recovery code persistence
type MFARecoveryCodesRepository struct {
	db *gorm.DB
}

// NewMFARecoveryCodesRepository creates a new recovery codes repository
func NewMFARecoveryCodesRepository(db *gorm.DB) *MFARecoveryCodesRepository {
	return &MFARecoveryCodesRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *MFARecoveryCodesRepository) WithTx(tx *gorm.DB) *MFARecoveryCodesRepository {
	return &MFARecoveryCodesRepository{db: tx}
}

// CreateBatch inserts multiple recovery codes at once
func (r *MFARecoveryCodesRepository) CreateBatch(ctx context.Context, codes []*domain.MFARecoveryCode) error {
	if len(codes) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&codes).Error
}

// GetByCodeHash retrieves a recovery code by its hash
func (r *MFARecoveryCodesRepository) GetByCodeHash(ctx context.Context, codeHash string) (*domain.MFARecoveryCode, error) {
	var code domain.MFARecoveryCode
	if err := r.db.WithContext(ctx).First(&code, "code_hash = ?", codeHash).Error; err != nil {
		return nil, notFound(err, domain.ErrInvalidRecoveryCode)
	}
	return &code, nil
}

// MarkUsed marks a recovery code as used. A code can only be used once.
func (r *MFARecoveryCodesRepository) MarkUsed(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&domain.MFARecoveryCode{}).
		Where("id = ? AND used_at IS NULL", id).
		Update("used_at", time.Now())
	return affected(result, domain.ErrInvalidRecoveryCode)
}

// CountUnused counts remaining recovery codes of a user
func (r *MFARecoveryCodesRepository) CountUnused(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.MFARecoveryCode{}).
		Where("user_id = ? AND used_at IS NULL", userID).
		Count(&count).Error
	return int(count), err
}

// DeleteAllByUserID removes all recovery codes of a user
func (r *MFARecoveryCodesRepository) DeleteAllByUserID(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&domain.MFARecoveryCode{}).Error
}
