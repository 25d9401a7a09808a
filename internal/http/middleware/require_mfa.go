package middleware

import (
	"net/http"

	"github.com/cloudboost/cloudboost-api/internal/httputil"
)

// RequireMFA enforces a verified second factor for sensitive endpoints.
// Must be used after Auth middleware. Users without MFA are always verified.
//
// Example usage:
//
//	r.With(middleware.RequireMFA()).Post("/auth/mfa/disable", mfaHandler.Disable)
func RequireMFA() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetClaims(r.Context())
			if !ok {
				httputil.Error(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			if !claims.MFAVerified {
				httputil.Error(w, http.StatusForbidden, "MFA verification required for this operation")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
