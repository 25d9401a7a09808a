package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloudboost/cloudboost-api/pkg/auth"
	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type stubValidator struct {
	claims *auth.AccessTokenClaims
}

func (s stubValidator) ValidateAccessToken(token string) (*auth.AccessTokenClaims, error) {
	if token != "good" || s.claims == nil {
		return nil, domain.ErrInvalidToken
	}
	return s.claims, nil
}

func testClaims(userID, tenantID uuid.UUID, role string) *auth.AccessTokenClaims {
	return &auth.AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		TenantID: tenantID.String(),
		Role:     role,
	}
}

func TestAuth(t *testing.T) {
	userID, tenantID := uuid.New(), uuid.New()

	tests := []struct {
		name       string
		header     string
		claims     *auth.AccessTokenClaims
		wantStatus int
	}{
		{"missing header", "", testClaims(userID, tenantID, domain.RoleUser), http.StatusUnauthorized},
		{"wrong scheme", "Basic good", testClaims(userID, tenantID, domain.RoleUser), http.StatusUnauthorized},
		{"invalid token", "Bearer bad", testClaims(userID, tenantID, domain.RoleUser), http.StatusUnauthorized},
		{"bad subject", "Bearer good", &auth.AccessTokenClaims{TenantID: tenantID.String()}, http.StatusUnauthorized},
		{"valid", "Bearer good", testClaims(userID, tenantID, domain.RoleUser), http.StatusOK},
		{"case insensitive scheme", "bearer good", testClaims(userID, tenantID, domain.RoleUser), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Identity
			handler := Auth(stubValidator{claims: tt.claims})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, _ = GetIdentity(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/tenant", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				if got.UserID != userID || got.TenantID != tenantID || got.Role != domain.RoleUser {
					t.Errorf("identity = %+v", got)
				}
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	tenantID := uuid.New()

	tests := []struct {
		role       string
		wantStatus int
	}{
		{domain.RoleAdmin, http.StatusOK},
		{domain.RoleManager, http.StatusForbidden},
		{domain.RoleUser, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			handler := Auth(stubValidator{claims: testClaims(uuid.New(), tenantID, tt.role)})(
				RequireRole(domain.RoleAdmin)(okHandler()),
			)
			req := httptest.NewRequest(http.MethodPost, "/tenant/users", nil)
			req.Header.Set("Authorization", "Bearer good")
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("got status %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestRequireMFA(t *testing.T) {
	claims := testClaims(uuid.New(), uuid.New(), domain.RoleAdmin)

	handler := Auth(stubValidator{claims: claims})(RequireMFA()(okHandler()))
	req := httptest.NewRequest(http.MethodPost, "/auth/mfa/disable", nil)
	req.Header.Set("Authorization", "Bearer good")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("unverified: got status %d, want %d", w.Code, http.StatusForbidden)
	}

	claims.MFAVerified = true
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("verified: got status %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRecover(t *testing.T) {
	logger := discardLogger()
	handler := Recover(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("got status %d, want %d", w.Code, http.StatusInternalServerError)
	}
}
