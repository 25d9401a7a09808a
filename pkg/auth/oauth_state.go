package auth

import (
	"time"

	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const oauthStateTTL = 10 * time.Minute

// OAuthState is carried through a provider's authorize redirect. It names the
// tenant and user that started the flow so the callback needs no session.
type OAuthState struct {
	TenantID  uuid.UUID
	UserID    uuid.UUID
	Provider  string
	Verifier  string
	ExpiresAt time.Time
}

type oauthStateClaims struct {
	jwt.RegisteredClaims
	TenantID string `json:"tid"`
	Provider string `json:"prv"`
	Verifier string `json:"pkce,omitempty"`
}

// StateSigner signs and verifies OAuth state values. The PKCE verifier is sealed
// so it never travels through the browser in clear text.
type StateSigner struct {
	secret []byte
	box    *SecretBox
	ttl    time.Duration
	now    func() time.Time
}

// NewStateSigner creates a signer. ttl 0 means ten minutes.
func NewStateSigner(secret []byte, box *SecretBox, ttl time.Duration) *StateSigner {
	if ttl <= 0 {
		ttl = oauthStateTTL
	}
	return &StateSigner{secret: secret, box: box, ttl: ttl, now: time.Now}
}

// Sign returns the state parameter for st.
func (s *StateSigner) Sign(st OAuthState) (string, error) {
	now := s.now()
	nonce, err := GenerateToken(16)
	if err != nil {
		return "", err
	}
	claims := oauthStateClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   st.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        nonce,
		},
		TenantID: st.TenantID.String(),
		Provider: st.Provider,
	}
	if st.Verifier != "" {
		if claims.Verifier, err = s.box.Seal(st.Verifier); err != nil {
			return "", err
		}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks the signature and expiry of a state parameter.
func (s *StateSigner) Verify(state string) (*OAuthState, error) {
	token, err := jwt.ParseWithClaims(state, &oauthStateClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, domain.ErrInvalidToken
	}
	claims, ok := token.Claims.(*oauthStateClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrInvalidToken
	}

	st := &OAuthState{Provider: claims.Provider}
	if st.UserID, err = uuid.Parse(claims.Subject); err != nil {
		return nil, domain.ErrInvalidToken
	}
	if st.TenantID, err = uuid.Parse(claims.TenantID); err != nil {
		return nil, domain.ErrInvalidToken
	}
	if claims.ExpiresAt != nil {
		st.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims.Verifier != "" {
		if st.Verifier, err = s.box.Open(claims.Verifier); err != nil {
			return nil, domain.ErrInvalidToken
		}
	}
	return st, nil
}
