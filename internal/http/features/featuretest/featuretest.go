// Package featuretest drives feature routers in handler tests.
package featuretest

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudboost/cloudboost-api/internal/http/middleware"
	"github.com/cloudboost/cloudboost-api/pkg/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Logger discards everything.
var Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Caller is the identity a request is made as.
type Caller struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
	Role     string
}

// NewCaller returns a caller in a fresh tenant.
func NewCaller(role string) Caller {
	return Caller{UserID: uuid.New(), TenantID: uuid.New(), Role: role}
}

// Do serves a request through h as c. An empty body sends none.
func Do(t *testing.T, h http.Handler, c Caller, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.UserID != uuid.Nil {
		claims := &auth.AccessTokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: c.UserID.String()},
			TenantID:         c.TenantID.String(),
			Role:             c.Role,
		}
		req = req.WithContext(middleware.WithClaims(req.Context(), claims))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// JSON decodes the response body as an object.
func JSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

// Object returns the nested object at key.
func Object(t *testing.T, m map[string]any, key string) map[string]any {
	t.Helper()
	v, ok := m[key].(map[string]any)
	if !ok {
		t.Fatalf("response has no object %q: %v", key, m)
	}
	return v
}
