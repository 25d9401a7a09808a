package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/cloudboost/cloudboost-api/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultPasswordResetTTL is how long a reset link stays valid.
const DefaultPasswordResetTTL = time.Hour

// PasswordResetService issues and redeems single-use password reset tokens.
type PasswordResetService struct {
	ttl       time.Duration
	db        *gorm.DB
	tokens    *repository.VerificationTokensRepository
	users     *repository.UsersRepository
	passwords *PasswordService
	sessions  *repository.SessionsRepository
}

// NewPasswordResetService creates a new password reset service.
func NewPasswordResetService(
	ttl time.Duration,
	db *gorm.DB,
	tokens *repository.VerificationTokensRepository,
	users *repository.UsersRepository,
	passwords *PasswordService,
	sessions *repository.SessionsRepository,
) *PasswordResetService {
	if ttl == 0 {
		ttl = DefaultPasswordResetTTL
	}
	return &PasswordResetService{
		ttl:       ttl,
		db:        db,
		tokens:    tokens,
		users:     users,
		passwords: passwords,
		sessions:  sessions,
	}
}

// RequestOpts carries client context stored with the token.
type RequestOpts struct {
	IP        string
	UserAgent string
}

// CreateToken issues a reset token for email. It returns ErrUserNotFound when no
// account matches; callers must not reveal that to the client.
func (s *PasswordResetService) CreateToken(ctx context.Context, email string, opts RequestOpts) (*domain.User, string, error) {
	user, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, "", err
	}

	rawToken, err := GenerateToken(32)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	now := time.Now()
	token := &domain.VerificationToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: HashToken(rawToken),
		Kind:      domain.TokenKindPasswordReset,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
		Metadata: domain.JSONMap{
			"ip":         opts.IP,
			"user_agent": opts.UserAgent,
		},
	}

	// Revoke existing tokens and create new one in a transaction
	err = repository.Tx(ctx, s.db, func(tx *gorm.DB) error {
		tokens := s.tokens.WithTx(tx)
		if err := tokens.RevokeActiveTokens(ctx, user.ID, domain.TokenKindPasswordReset); err != nil {
			return fmt.Errorf("failed to revoke active tokens: %w", err)
		}
		if err := tokens.Create(ctx, token); err != nil {
			return fmt.Errorf("failed to create token: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	return user, rawToken, nil
}

// Reset consumes rawToken and sets newPassword. Every session of the user is revoked.
func (s *PasswordResetService) Reset(ctx context.Context, rawToken, newPassword string) error {
	if rawToken == "" {
		return domain.Required("token")
	}
	if newPassword == "" {
		return domain.Required("new_password")
	}

	token, err := s.tokens.GetByTokenHash(ctx, HashToken(rawToken), domain.TokenKindPasswordReset)
	if err != nil {
		if errors.Is(err, domain.ErrVerificationTokenNotFound) {
			return domain.ErrInvalidToken
		}
		return err
	}
	if !token.IsValid() {
		if token.ConsumedAt != nil {
			return domain.ErrVerificationTokenConsumed
		}
		return domain.ErrVerificationTokenExpired
	}

	if err := s.passwords.validatePassword(newPassword); err != nil {
		return err
	}
	// Consume first so concurrent redemptions of one token cannot both succeed.
	if err := s.tokens.MarkConsumed(ctx, token.ID); err != nil {
		return err
	}
	if err := s.passwords.SetPassword(ctx, token.UserID, newPassword); err != nil {
		return err
	}
	return s.sessions.RevokeAllByUserID(ctx, token.UserID)
}
