package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/cloudboost/cloudboost-api/internal/httputil"
	"github.com/cloudboost/cloudboost-api/pkg/auth"
	"github.com/google/uuid"
)

type contextKey string

const (
	// UserIDKey is the context key for the authenticated user ID.
	UserIDKey contextKey = "user_id"
	// ClaimsKey is the context key for the token claims.
	ClaimsKey contextKey = "claims"
	// TenantIDKey is the context key for the tenant ID.
	TenantIDKey contextKey = "tenant_id"
)

// TokenValidator validates access tokens.
type TokenValidator interface {
	ValidateAccessToken(token string) (*auth.AccessTokenClaims, error)
}

// Auth creates middleware that validates JWT bearer tokens. The tenant of every
// request comes from the token, never from the request itself.
func Auth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				httputil.Error(w, http.StatusUnauthorized, "missing authorization")
				return
			}

			claims, err := validator.ValidateAccessToken(tokenString)
			if err != nil {
				httputil.Error(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			if _, err := claims.UserID(); err != nil {
				httputil.Error(w, http.StatusUnauthorized, "invalid token subject")
				return
			}
			if _, err := claims.Tenant(); err != nil {
				httputil.Error(w, http.StatusUnauthorized, "invalid tenant_id in token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// WithClaims stores validated claims and the identity they carry in ctx.
// Claims with an unparsable subject or tenant are stored without identity.
func WithClaims(ctx context.Context, claims *auth.AccessTokenClaims) context.Context {
	if userID, err := claims.UserID(); err == nil {
		ctx = context.WithValue(ctx, UserIDKey, userID)
	}
	if tenantID, err := claims.Tenant(); err == nil {
		ctx = context.WithValue(ctx, TenantIDKey, tenantID)
	}
	return context.WithValue(ctx, ClaimsKey, claims)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// GetUserID extracts the user ID from the request context.
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok
}

// GetClaims extracts the token claims from the request context.
func GetClaims(ctx context.Context) (*auth.AccessTokenClaims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*auth.AccessTokenClaims)
	return claims, ok
}

// GetTenantID extracts the tenant ID from the request context.
func GetTenantID(ctx context.Context) (uuid.UUID, bool) {
	tenantID, ok := ctx.Value(TenantIDKey).(uuid.UUID)
	return tenantID, ok
}

// Identity is the caller of an authenticated request.
type Identity struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
	Role     string
}

// GetIdentity returns the caller, or false outside the Auth middleware.
func GetIdentity(ctx context.Context) (Identity, bool) {
	userID, ok := GetUserID(ctx)
	if !ok {
		return Identity{}, false
	}
	tenantID, ok := GetTenantID(ctx)
	if !ok {
		return Identity{}, false
	}
	id := Identity{UserID: userID, TenantID: tenantID}
	if claims, ok := GetClaims(ctx); ok {
		id.Role = claims.Role
	}
	return id, true
}

// Caller returns the identity of the request, writing a 401 when there is none.
func Caller(w http.ResponseWriter, r *http.Request) (Identity, bool) {
	id, ok := GetIdentity(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
	}
	return id, ok
}
