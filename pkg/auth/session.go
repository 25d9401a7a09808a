package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/cloudboost/cloudboost-api/pkg/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// Token lengths
	refreshTokenLen = 32

	// Default token lifetimes
	DefaultAccessTokenTTL  = 24 * time.Hour
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
)

// SessionConfig holds session configuration.
type SessionConfig struct {
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	JWTSecret          []byte
	Issuer             string
	FingerprintEnabled bool
	DetectReuseEnabled bool
}

// SessionService issues access tokens backed by refresh sessions.
type SessionService struct {
	config   SessionConfig
	sessions *repository.SessionsRepository
	users    *repository.UsersRepository
}

// NewSessionService creates a new session service.
func NewSessionService(config SessionConfig, sessions *repository.SessionsRepository, users *repository.UsersRepository) *SessionService {
	if config.AccessTokenTTL == 0 {
		config.AccessTokenTTL = DefaultAccessTokenTTL
	}
	if config.RefreshTokenTTL == 0 {
		config.RefreshTokenTTL = DefaultRefreshTokenTTL
	}
	return &SessionService{
		config:   config,
		sessions: sessions,
		users:    users,
	}
}

// AccessTokenTTL returns the access token TTL.
func (s *SessionService) AccessTokenTTL() time.Duration {
	return s.config.AccessTokenTTL
}

// RefreshTokenTTL returns the refresh token TTL.
func (s *SessionService) RefreshTokenTTL() time.Duration {
	return s.config.RefreshTokenTTL
}

// IssueSessionOpts holds options for session issuance.
type IssueSessionOpts struct {
	// Request is the HTTP request (for IP, user agent and fingerprinting)
	Request *http.Request
	// MFAVerified indicates whether MFA was verified for this session
	MFAVerified bool
}

// AccessTokenClaims represents the claims in an access token.
// Subject is the user ID and ID (jti) is the session ID.
type AccessTokenClaims struct {
	jwt.RegisteredClaims
	TenantID    string `json:"tenant_id"`
	Role        string `json:"role"`
	Email       string `json:"email,omitempty"`
	MFAVerified bool   `json:"mfa_verified,omitempty"`
}

// UserID parses the subject claim.
func (c *AccessTokenClaims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// SessionID parses the jti claim.
func (c *AccessTokenClaims) SessionID() (uuid.UUID, error) {
	return uuid.Parse(c.ID)
}

// Tenant parses the tenant_id claim.
func (c *AccessTokenClaims) Tenant() (uuid.UUID, error) {
	return uuid.Parse(c.TenantID)
}

// IssueSession creates a new session and returns access/refresh tokens.
// Every login path ends here.
func (s *SessionService) IssueSession(ctx context.Context, user *domain.User, opts IssueSessionOpts) (*domain.TokenPair, error) {
	now := time.Now()

	// Generate refresh token (opaque, stored hashed)
	refreshToken, err := GenerateToken(refreshTokenLen)
	if err != nil {
		return nil, err
	}

	mfaVerified := !user.MFAEnabled || opts.MFAVerified
	session := &domain.Session{
		ID:          uuid.New(),
		UserID:      user.ID,
		TokenHash:   HashToken(refreshToken),
		MFAVerified: mfaVerified,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.config.RefreshTokenTTL),
	}

	if r := opts.Request; r != nil {
		metadata := &domain.SessionMetadata{
			IP:        ClientIP(r),
			UserAgent: r.UserAgent(),
		}
		if s.config.FingerprintEnabled {
			fp := GenerateFingerprint(r)
			metadata.FingerprintHash = fp.Hash
			metadata.FingerprintIP = fp.IPAddress
			metadata.FingerprintUA = fp.UserAgent
		}
		session.Metadata = metadata
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	return s.tokenPair(user, session.ID, refreshToken, mfaVerified, now)
}

// RefreshSession rotates the refresh token and mints a new access token.
// The session's MFA state carries over to the new access token. Presenting
// a refresh token that was already rotated out revokes the session.
func (s *SessionService) RefreshSession(ctx context.Context, refreshToken string, opts IssueSessionOpts) (*domain.TokenPair, error) {
	tokenHash := HashToken(refreshToken)
	session, err := s.sessions.GetByTokenHash(ctx, tokenHash)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil, s.checkReuse(ctx, tokenHash)
	}
	if err != nil {
		return nil, err
	}

	if !session.IsValid() {
		if session.RevokedAt != nil {
			return nil, domain.ErrSessionRevoked
		}
		return nil, domain.ErrSessionExpired
	}

	if s.config.FingerprintEnabled && opts.Request != nil && session.Metadata != nil && session.Metadata.FingerprintHash != "" {
		current := GenerateFingerprint(opts.Request)
		if session.Metadata.FingerprintHash != current.Hash && s.config.DetectReuseEnabled {
			// Possible token theft: kill the session.
			_ = s.sessions.Revoke(ctx, session.ID)
			return nil, domain.ErrSessionFingerprint
		}
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive() {
		return nil, domain.ErrAccountInactive
	}

	next, err := GenerateToken(refreshTokenLen)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Rotate(ctx, session.ID, tokenHash, HashToken(next)); err != nil {
		return nil, err
	}

	return s.tokenPair(user, session.ID, next, session.MFAVerified || !user.MFAEnabled, time.Now())
}

// checkReuse handles a refresh token that matches no live token hash.
func (s *SessionService) checkReuse(ctx context.Context, tokenHash string) error {
	session, err := s.sessions.GetByPreviousTokenHash(ctx, tokenHash)
	if err != nil {
		return err
	}
	// A rotated-out token came back: one of the two holders is not the user.
	_ = s.sessions.Revoke(ctx, session.ID)
	return domain.ErrSessionRevoked
}

func (s *SessionService) tokenPair(user *domain.User, sessionID uuid.UUID, refreshToken string, mfaVerified bool, now time.Time) (*domain.TokenPair, error) {
	expiry := now.Add(s.config.AccessTokenTTL)
	claims := AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
			Issuer:    s.config.Issuer,
			ID:        sessionID.String(),
		},
		TenantID:    user.TenantID.String(),
		Role:        user.Role,
		Email:       user.Email,
		MFAVerified: mfaVerified,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	accessToken, err := token.SignedString(s.config.JWTSecret)
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.config.AccessTokenTTL.Seconds()),
		ExpiresAt:    expiry,
	}, nil
}

// RevokeSession revokes a session by refresh token.
func (s *SessionService) RevokeSession(ctx context.Context, refreshToken string) error {
	return s.sessions.RevokeByTokenHash(ctx, HashToken(refreshToken))
}

// RevokeSessionByID revokes the session named by an access token's jti.
func (s *SessionService) RevokeSessionByID(ctx context.Context, sessionID uuid.UUID) error {
	return s.sessions.Revoke(ctx, sessionID)
}

// RevokeAllSessions revokes all sessions for a user.
func (s *SessionService) RevokeAllSessions(ctx context.Context, userID uuid.UUID) error {
	return s.sessions.RevokeAllByUserID(ctx, userID)
}

// PurgeExpired deletes sessions that expired more than olderThan ago.
func (s *SessionService) PurgeExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	return s.sessions.DeleteExpired(ctx, olderThan)
}

// ValidateAccessToken validates an access token and returns the claims.
func (s *SessionService) ValidateAccessToken(tokenString string) (*AccessTokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return s.config.JWTSecret, nil
	})
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(*AccessTokenClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrInvalidToken
	}
	if _, err := claims.Tenant(); err != nil {
		return nil, domain.ErrInvalidToken
	}

	return claims, nil
}

// GetUserIDFromToken extracts the user ID from an access token.
func (s *SessionService) GetUserIDFromToken(tokenString string) (uuid.UUID, error) {
	claims, err := s.ValidateAccessToken(tokenString)
	if err != nil {
		return uuid.Nil, err
	}

	return claims.UserID()
}
