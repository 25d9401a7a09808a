package repository

import (
	"context"
	"time"

	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionsRepository handles session persistence.
type SessionsRepository struct {
	db *gorm.DB
}

// NewSessionsRepository creates a new sessions repository.
func NewSessionsRepository(db *gorm.DB) *SessionsRepository {
	return &SessionsRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *SessionsRepository) WithTx(tx *gorm.DB) *SessionsRepository {
	return &SessionsRepository{db: tx}
}

// Create creates a new session.
func (r *SessionsRepository) Create(ctx context.Context, session *domain.Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// GetByID retrieves a session by ID.
func (r *SessionsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	var session domain.Session
	if err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		return nil, notFound(err, domain.ErrSessionNotFound)
	}
	return &session, nil
}

// GetByTokenHash retrieves a session by token hash.
func (r *SessionsRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	var session domain.Session
	if err := r.db.WithContext(ctx).First(&session, "token_hash = ?", tokenHash).Error; err != nil {
		return nil, notFound(err, domain.ErrSessionNotFound)
	}
	return &session, nil
}

// GetByPreviousTokenHash retrieves the session whose last rotated-out token
// has the given hash.
func (r *SessionsRepository) GetByPreviousTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	var session domain.Session
	if err := r.db.WithContext(ctx).First(&session, "previous_token_hash = ?", tokenHash).Error; err != nil {
		return nil, notFound(err, domain.ErrSessionNotFound)
	}
	return &session, nil
}

// Rotate swaps the session's token hash for newHash. It only succeeds while
// the session is live and still carries currentHash, so two concurrent
// refreshes with the same token cannot both win.
func (r *SessionsRepository) Rotate(ctx context.Context, id uuid.UUID, currentHash, newHash string) error {
	result := r.db.WithContext(ctx).Model(&domain.Session{}).
		Where("id = ? AND token_hash = ? AND revoked_at IS NULL", id, currentHash).
		Updates(map[string]interface{}{
			"token_hash":          newHash,
			"previous_token_hash": currentHash,
			"last_seen_at":        time.Now(),
		})
	return affected(result, domain.ErrSessionRevoked)
}

// Revoke revokes a session by ID.
func (r *SessionsRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&domain.Session{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", time.Now())
	return affected(result, domain.ErrSessionNotFound)
}

// RevokeByTokenHash revokes a session by token hash.
func (r *SessionsRepository) RevokeByTokenHash(ctx context.Context, tokenHash string) error {
	result := r.db.WithContext(ctx).Model(&domain.Session{}).
		Where("token_hash = ? AND revoked_at IS NULL", tokenHash).
		Update("revoked_at", time.Now())
	return affected(result, domain.ErrSessionNotFound)
}

// RevokeAllByUserID revokes all sessions for a user.
func (r *SessionsRepository) RevokeAllByUserID(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&domain.Session{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", time.Now()).Error
}

// DeleteExpired removes sessions that expired more than olderThan ago.
func (r *SessionsRepository) DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ?", time.Now().Add(-olderThan)).
		Delete(&domain.Session{})
	return result.RowsAffected, result.Error
}
