package middleware

import (
	"fmt"
	"net/http"

	"github.com/cloudboost/cloudboost-api/internal/config"
)

// SecurityHeaders creates middleware that applies OWASP-recommended security headers.
// Empty values are skipped.
func SecurityHeaders(cfg config.SecurityHeadersConfig) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return NoRateLimit()
	}

	headers := make(map[string]string, 7)
	set := func(name, value string) {
		if value != "" {
			headers[name] = value
		}
	}
	set("Content-Security-Policy", cfg.CSP)
	if cfg.HSTSMaxAge > 0 {
		set("Strict-Transport-Security", fmt.Sprintf("max-age=%d; includeSubDomains", cfg.HSTSMaxAge))
	}
	set("X-Frame-Options", cfg.FrameOptions)
	set("X-Content-Type-Options", cfg.ContentTypeOptions)
	set("X-XSS-Protection", cfg.XSSProtection)
	set("Referrer-Policy", cfg.ReferrerPolicy)
	set("Permissions-Policy", cfg.PermissionsPolicy)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for name, value := range headers {
				w.Header().Set(name, value)
			}
			next.ServeHTTP(w, r)
		})
	}
}
