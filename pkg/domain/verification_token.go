package domain

import (
	"time"

	"github.com/google/uuid"
)

type VerificationTokenKind string

const (
	TokenKindEmailVerification VerificationTokenKind = "email_verification"
	TokenKindPasswordReset     VerificationTokenKind = "password_reset"
	TokenKindMFAChallenge      VerificationTokenKind = "mfa_challenge"
)

// VerificationToken is a single-use token delivered out of band.
type VerificationToken struct {
	ID         uuid.UUID             `gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID             `gorm:"type:uuid;index;not null"`
	TokenHash  string                `gorm:"size:255;uniqueIndex;not null"`
	Kind       VerificationTokenKind `gorm:"size:32;not null"`
	CreatedAt  time.Time
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	Metadata   JSONMap `gorm:"serializer:json;type:text"`
}

func (t *VerificationToken) IsValid() bool {
	return t.ConsumedAt == nil && time.Now().Before(t.ExpiresAt)
}
