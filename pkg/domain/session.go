package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session represents an authentication session backing a refresh token.
// TokenHash is replaced on every refresh; the hash it replaced is kept in
// PreviousTokenHash so a replayed token can be recognised.
type Session struct {
	ID                uuid.UUID        `gorm:"type:uuid;primaryKey"`
	UserID            uuid.UUID        `gorm:"type:uuid;index;not null"`
	TokenHash         string           `gorm:"size:255;uniqueIndex;not null"`
	PreviousTokenHash string           `gorm:"size:255;index:idx_sessions_previous_token_hash"`
	MFAVerified       bool             `gorm:"not null;default:false"`
	CreatedAt         time.Time
	ExpiresAt         time.Time        `gorm:"not null"`
	RevokedAt         *time.Time
	LastSeenAt        *time.Time
	Metadata          *SessionMetadata `gorm:"serializer:json;type:text"`
}

// SessionMetadata holds optional session context.
type SessionMetadata struct {
	IP              string `json:"ip,omitempty"`
	UserAgent       string `json:"user_agent,omitempty"`
	FingerprintHash string `json:"fingerprint_hash,omitempty"`
	FingerprintIP   string `json:"fingerprint_ip,omitempty"`
	FingerprintUA   string `json:"fingerprint_ua,omitempty"`
}

// IsValid checks if the session is valid (not expired and not revoked).
func (s *Session) IsValid() bool {
	if s.RevokedAt != nil {
		return false
	}
	return time.Now().Before(s.ExpiresAt)
}

// TokenPair represents the access and refresh token pair.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
}
