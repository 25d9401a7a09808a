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

// DefaultEmailVerificationTTL is how long a verification link stays valid.
const DefaultEmailVerificationTTL = 24 * time.Hour

// EmailVerificationService issues and redeems email verification tokens.
type EmailVerificationService struct {
	ttl    time.Duration
	db     *gorm.DB
	tokens *repository.VerificationTokensRepository
	users  *repository.UsersRepository
}

// NewEmailVerificationService creates a new email verification service.
func NewEmailVerificationService(
	ttl time.Duration,
	db *gorm.DB,
	tokens *repository.VerificationTokensRepository,
	users *repository.UsersRepository,
) *EmailVerificationService {
	if ttl == 0 {
		ttl = DefaultEmailVerificationTTL
	}
	return &EmailVerificationService{
		ttl:    ttl,
		db:     db,
		tokens: tokens,
		users:  users,
	}
}

// CreateToken issues a verification token for the user, revoking earlier ones.
func (s *EmailVerificationService) CreateToken(ctx context.Context, userID uuid.UUID, opts RequestOpts) (*domain.User, string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	if user.EmailVerified() {
		return nil, "", domain.ErrEmailAlreadyVerified
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
		Kind:      domain.TokenKindEmailVerification,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
		Metadata: domain.JSONMap{
			"ip":         opts.IP,
			"user_agent": opts.UserAgent,
		},
	}

	err = repository.Tx(ctx, s.db, func(tx *gorm.DB) error {
		tokens := s.tokens.WithTx(tx)
		if err := tokens.RevokeActiveTokens(ctx, user.ID, domain.TokenKindEmailVerification); err != nil {
			return fmt.Errorf("failed to revoke active tokens: %w", err)
		}
		return tokens.Create(ctx, token)
	})
	if err != nil {
		return nil, "", err
	}
	return user, rawToken, nil
}

// Verify consumes rawToken and marks the owner's email as verified.
func (s *EmailVerificationService) Verify(ctx context.Context, rawToken string) (uuid.UUID, error) {
	if rawToken == "" {
		return uuid.Nil, domain.Required("token")
	}

	token, err := s.tokens.GetByTokenHash(ctx, HashToken(rawToken), domain.TokenKindEmailVerification)
	if err != nil {
		if errors.Is(err, domain.ErrVerificationTokenNotFound) {
			return uuid.Nil, domain.ErrInvalidToken
		}
		return uuid.Nil, err
	}
	if !token.IsValid() {
		if token.ConsumedAt != nil {
			return uuid.Nil, domain.ErrVerificationTokenConsumed
		}
		return uuid.Nil, domain.ErrVerificationTokenExpired
	}

	err = repository.Tx(ctx, s.db, func(tx *gorm.DB) error {
		if err := s.tokens.WithTx(tx).MarkConsumed(ctx, token.ID); err != nil {
			return err
		}
		return s.users.WithTx(tx).MarkEmailVerified(ctx, token.UserID)
	})
	if err != nil {
		return uuid.Nil, err
	}
	return token.UserID, nil
}
