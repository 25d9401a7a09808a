package http

import (
	"log/slog"
	"net/http"

	"github.com/cloudboost/cloudboost-api/internal/config"
	"github.com/cloudboost/cloudboost-api/internal/http/features/automation"
	"github.com/cloudboost/cloudboost-api/internal/http/features/business"
	"github.com/cloudboost/cloudboost-api/internal/http/features/common"
	"github.com/cloudboost/cloudboost-api/internal/http/features/communication"
	"github.com/cloudboost/cloudboost-api/internal/http/features/content"
	"github.com/cloudboost/cloudboost-api/internal/http/features/crm"
	"github.com/cloudboost/cloudboost-api/internal/http/features/email"
	"github.com/cloudboost/cloudboost-api/internal/http/features/me"
	"github.com/cloudboost/cloudboost-api/internal/http/features/mfa"
	"github.com/cloudboost/cloudboost-api/internal/http/features/password"
	"github.com/cloudboost/cloudboost-api/internal/http/features/session"
	"github.com/cloudboost/cloudboost-api/internal/http/features/social"
	"github.com/cloudboost/cloudboost-api/internal/http/features/system"
	"github.com/cloudboost/cloudboost-api/internal/http/features/tenant"
	"github.com/cloudboost/cloudboost-api/internal/http/middleware"
	"github.com/cloudboost/cloudboost-api/internal/httputil"
	"github.com/cloudboost/cloudboost-api/internal/metrics"
	"github.com/cloudboost/cloudboost-api/pkg/analytics"
	"github.com/cloudboost/cloudboost-api/pkg/auth"
	automationsvc "github.com/cloudboost/cloudboost-api/pkg/automation"
	businesssvc "github.com/cloudboost/cloudboost-api/pkg/business"
	contentsvc "github.com/cloudboost/cloudboost-api/pkg/content"
	crmsvc "github.com/cloudboost/cloudboost-api/pkg/crm"
	"github.com/cloudboost/cloudboost-api/pkg/messaging"
	"github.com/cloudboost/cloudboost-api/pkg/repository"
	socialsvc "github.com/cloudboost/cloudboost-api/pkg/social"
	tenantsvc "github.com/cloudboost/cloudboost-api/pkg/tenant"
	"github.com/go-chi/chi/v5"
)

// RouterConfig holds the services the router exposes.
type RouterConfig struct {
	Logger  *slog.Logger
	Version string
	// Metrics is optional; when set requests are observed and /metrics is served.
	Metrics *metrics.Metrics

	PasswordService      *auth.PasswordService
	SessionService       *auth.SessionService
	PasswordResetService *auth.PasswordResetService
	MFAService           *auth.MFAService
	ResetMailer          password.ResetMailer
	UsersRepo            *repository.UsersRepository

	// EmailVerificationService is optional; when set new accounts are asked to
	// confirm their email address.
	EmailVerificationService *auth.EmailVerificationService
	VerificationMailer       email.VerificationMailer

	TenantService     *tenantsvc.Service
	BusinessService   *businesssvc.Service
	ContentService    *contentsvc.Service
	CRMService        *crmsvc.Service
	MessagingService  *messaging.Service
	SocialService     *socialsvc.Service
	SocialOAuth       *socialsvc.OAuthService
	AutomationService *automationsvc.Service
	AnalyticsService  *analytics.Service

	AppBaseURL      string
	RateLimitConfig config.RateLimitConfig
	SecurityHeaders config.SecurityHeadersConfig
	Validation      config.ValidationConfig
	CookieSecure    bool
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.Metrics(cfg.Metrics))
	r.Use(middleware.SecurityHeaders(cfg.SecurityHeaders))
	r.Use(middleware.RequestSizeLimit(cfg.Validation.MaxRequestBodySize))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.Error(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httputil.Error(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler())
	}

	// Create rate limiters for different endpoint types
	rateLimiters := middleware.CreateRateLimiters(cfg.RateLimitConfig, cfg.Logger)
	requireAuth := middleware.Auth(cfg.SessionService)
	cookieConfig := httputil.DefaultCookieConfig(cfg.CookieSecure)

	// The analytics service doubles as the usage tracker of the feature handlers.
	var tracker common.Tracker
	if cfg.AnalyticsService != nil {
		tracker = cfg.AnalyticsService
	}

	systemHandler := system.NewHandler(cfg.Logger, cfg.AnalyticsService, cfg.Version)
	systemHandler.RegisterPublicRoutes(r)

	socialHandler := social.NewHandler(cfg.Logger, cfg.SocialService, cfg.SocialOAuth, tracker)
	socialHandler.RegisterPublicRoutes(r)

	// Authentication
	passwordHandler := password.NewHandler(
		cfg.Logger,
		cfg.PasswordService,
		cfg.SessionService,
		cfg.PasswordResetService,
		cfg.MFAService,
		cfg.ResetMailer,
		cookieConfig,
		cfg.AppBaseURL,
	)
	if cfg.EmailVerificationService != nil {
		emailHandler := email.NewHandler(cfg.Logger, cfg.EmailVerificationService, cfg.VerificationMailer, cfg.AppBaseURL)
		passwordHandler.OnRegistered(emailHandler.OnRegistered)
		emailHandler.RegisterRoutes(r, rateLimiters["reset"], requireAuth)
	}
	passwordHandler.RegisterRoutes(r, rateLimiters["auth"], rateLimiters["reset"], requireAuth)

	session.NewHandler(cfg.Logger, cfg.SessionService, cookieConfig).
		RegisterRoutes(r, rateLimiters["refresh"], requireAuth)

	if cfg.MFAService != nil {
		mfa.NewHandler(cfg.Logger, cfg.MFAService, cfg.PasswordService, cfg.SessionService).
			RegisterRoutes(r, rateLimiters["auth"], requireAuth)
	}

	// Tenant-scoped API
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(rateLimiters["api"])

		me.NewHandler(cfg.Logger, cfg.UsersRepo, cfg.TenantService).RegisterRoutes(r)
		tenant.NewHandler(cfg.Logger, cfg.TenantService).RegisterRoutes(r)
		business.NewHandler(cfg.Logger, cfg.BusinessService).RegisterRoutes(r)
		content.NewHandler(cfg.Logger, cfg.ContentService, tracker).RegisterRoutes(r)
		crm.NewHandler(cfg.Logger, cfg.CRMService).RegisterRoutes(r)
		communication.NewHandler(cfg.Logger, cfg.MessagingService, tracker).
			RegisterRoutes(r, rateLimiters["messaging"])
		socialHandler.RegisterRoutes(r)
		automation.NewHandler(cfg.Logger, cfg.AutomationService).RegisterRoutes(r)
		systemHandler.RegisterRoutes(r)
	})

	return r
}
