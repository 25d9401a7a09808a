package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cloudboost/cloudboost-api/internal/config"
	"github.com/cloudboost/cloudboost-api/internal/httputil"
	"github.com/go-chi/httprate"
)

// Limiter names returned by CreateRateLimiters.
const (
	LimiterAuth      = "auth"
	LimiterReset     = "reset"
	LimiterRefresh   = "refresh"
	LimiterMessaging = "messaging"
	LimiterAPI       = "api"
)

// RateLimitConfig holds rate limiting configuration for a specific endpoint type.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Logger   *slog.Logger
}

// RateLimit creates an IP-based rate limiter middleware with logging.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.Requests,
		cfg.Window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Logger != nil {
				cfg.Logger.Warn("rate limit exceeded",
					"ip", r.RemoteAddr,
					"path", r.URL.Path,
					"method", r.Method,
					"user_agent", r.UserAgent(),
				)
			}
			httputil.Error(w, http.StatusTooManyRequests, "rate limit exceeded. please try again later")
		}),
	)
}

// NoRateLimit returns a no-op middleware when rate limiting is disabled.
func NoRateLimit() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return next
	}
}

func window(minutes int) time.Duration {
	if minutes <= 0 {
		minutes = 1
	}
	return time.Duration(minutes) * time.Minute
}

// CreateRateLimiters creates rate limiting middleware functions based on configuration.
func CreateRateLimiters(cfg config.RateLimitConfig, logger *slog.Logger) map[string]func(http.Handler) http.Handler {
	if !cfg.Enabled {
		noOp := NoRateLimit()
		return map[string]func(http.Handler) http.Handler{
			LimiterAuth:      noOp,
			LimiterReset:     noOp,
			LimiterRefresh:   noOp,
			LimiterMessaging: noOp,
			LimiterAPI:       noOp,
		}
	}

	return map[string]func(http.Handler) http.Handler{
		LimiterAuth: RateLimit(RateLimitConfig{
			Requests: cfg.AuthRequestsPerMinute,
			Window:   window(cfg.AuthWindowMinutes),
			Logger:   logger,
		}),
		LimiterReset: RateLimit(RateLimitConfig{
			Requests: cfg.ResetRequestsPerWindow,
			Window:   window(cfg.ResetWindowMinutes),
			Logger:   logger,
		}),
		LimiterRefresh: RateLimit(RateLimitConfig{
			Requests: cfg.RefreshRequestsPerMinute,
			Window:   window(cfg.RefreshWindowMinutes),
			Logger:   logger,
		}),
		LimiterMessaging: RateLimit(RateLimitConfig{
			Requests: cfg.MessagingRequestsPerMinute,
			Window:   window(cfg.MessagingWindowMinutes),
			Logger:   logger,
		}),
		LimiterAPI: RateLimit(RateLimitConfig{
			Requests: cfg.APIRequestsPerMinute,
			Window:   window(cfg.APIWindowMinutes),
			Logger:   logger,
		}),
	}
}
