package repository

import (
	"context"
	"time"

	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VerificationTokensRepository handles single-use token persistence.
type VerificationTokensRepository struct {
	db *gorm.DB
}

// NewVerificationTokensRepository creates a new verification tokens repository.
func NewVerificationTokensRepository(db *gorm.DB) *VerificationTokensRepository {
	return &VerificationTokensRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *VerificationTokensRepository) WithTx(tx *gorm.DB) *VerificationTokensRepository {
	return &VerificationTokensRepository{db: tx}
}

// Create stores a token.
func (r *VerificationTokensRepository) Create(ctx context.Context, token *domain.VerificationToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

// GetByTokenHash retrieves a token of kind by its hash.
func (r *VerificationTokensRepository) GetByTokenHash(ctx context.Context, tokenHash string, kind domain.VerificationTokenKind) (*domain.VerificationToken, error) {
	var token domain.VerificationToken
	err := r.db.WithContext(ctx).
		Where("token_hash = ? AND kind = ?", tokenHash, kind).
		First(&token).Error
	if err != nil {
		return nil, notFound(err, domain.ErrVerificationTokenNotFound)
	}
	return &token, nil
}

// MarkConsumed marks a token as used.
func (r *VerificationTokensRepository) MarkConsumed(ctx context.Context, tokenID uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&domain.VerificationToken{}).
		Where("id = ? AND consumed_at IS NULL", tokenID).
		Update("consumed_at", time.Now())
	return affected(result, domain.ErrVerificationTokenConsumed)
}

// RevokeActiveTokens consumes every outstanding token of kind for a user.
func (r *VerificationTokensRepository) RevokeActiveTokens(ctx context.Context, userID uuid.UUID, kind domain.VerificationTokenKind) error {
	return r.db.WithContext(ctx).Model(&domain.VerificationToken{}).
		Where("user_id = ? AND kind = ? AND consumed_at IS NULL", userID, kind).
		Update("consumed_at", time.Now()).Error
}
