// Package app assembles the CloudBoost services from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cloudboost/cloudboost-api/internal/ai"
	"github.com/cloudboost/cloudboost-api/internal/cache"
	"github.com/cloudboost/cloudboost-api/internal/config"
	httpserver "github.com/cloudboost/cloudboost-api/internal/http"
	"github.com/cloudboost/cloudboost-api/internal/metrics"
	"github.com/cloudboost/cloudboost-api/internal/notification"
	"github.com/cloudboost/cloudboost-api/internal/worker"
	"github.com/cloudboost/cloudboost-api/pkg/analytics"
	"github.com/cloudboost/cloudboost-api/pkg/auth"
	"github.com/cloudboost/cloudboost-api/pkg/automation"
	"github.com/cloudboost/cloudboost-api/pkg/business"
	"github.com/cloudboost/cloudboost-api/pkg/content"
	"github.com/cloudboost/cloudboost-api/pkg/crm"
	"github.com/cloudboost/cloudboost-api/pkg/messaging"
	"github.com/cloudboost/cloudboost-api/pkg/repository"
	"github.com/cloudboost/cloudboost-api/pkg/social"
	"github.com/cloudboost/cloudboost-api/pkg/tenant"
	"gorm.io/gorm"
)

const (
	// oauthStateTTL bounds how long a social authorization may take.
	oauthStateTTL = 10 * time.Minute
	// sessionRetention keeps expired sessions around for reuse detection.
	sessionRetention = 7 * 24 * time.Hour
)

// App is a fully wired CloudBoost instance.
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	DB         *gorm.DB
	Cache      cache.Cache
	Metrics    *metrics.Metrics
	Handler    http.Handler
	Dispatcher *worker.Dispatcher

	Tenants    *repository.TenantsRepository
	Users      *repository.UsersRepository
	Automation *automation.Service

	closers []func() error
}

// New connects to the database and cache configured in cfg and wires the services.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.NewDB(repository.Config{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN(),
		SQLitePath:      cfg.Database.SQLitePath,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("connected to database", "driver", cfg.Database.Driver)

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		applied, err := repository.NewMigrator(db, repository.Migrations()).Up()
		if err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		if applied > 0 {
			logger.Info("applied migrations", "count", applied)
		}
	}

	var (
		c       cache.Cache
		closers = []func() error{sqlDB.Close}
	)
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Warn("redis unavailable, using in-memory cache", "addr", cfg.Redis.Addr, "error", err)
			c = cache.NewMemoryCache()
		} else {
			logger.Info("connected to redis", "addr", cfg.Redis.Addr)
			c = rc
			closers = append(closers, rc.Close)
		}
	} else {
		c = cache.NewMemoryCache()
	}

	a, err := Build(cfg, db, c, logger)
	if err != nil {
		for _, closeFn := range closers {
			_ = closeFn()
		}
		return nil, err
	}
	a.closers = closers
	return a, nil
}

// Build wires the services over an open database and cache.
func Build(cfg *config.Config, db *gorm.DB, c cache.Cache, logger *slog.Logger) (*App, error) {
	key := cfg.EncryptionKey
	if key == nil {
		logger.Warn("ENCRYPTION_KEY not set, deriving it from JWT_SECRET")
		key = auth.DeriveKey(cfg.JWTSecret)
	}
	box, err := auth.NewSecretBox(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret box: %w", err)
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	// Initialize repositories
	usersRepo := repository.NewUsersRepository(db)
	tenantsRepo := repository.NewTenantsRepository(db)
	sessionsRepo := repository.NewSessionsRepository(db)
	tokensRepo := repository.NewVerificationTokensRepository(db)
	mfaSecretsRepo := repository.NewMFASecretsRepository(db)
	recoveryCodesRepo := repository.NewMFARecoveryCodesRepository(db)
	businessRepo := repository.NewBusinessRepository(db)
	contentRepo := repository.NewContentRepository(db)
	activitiesRepo := repository.NewActivitiesRepository(db)
	messagesRepo := repository.NewMessagesRepository(db)
	socialRepo := repository.NewSocialRepository(db)
	workflowsRepo := repository.NewWorkflowsRepository(db)

	// Identity
	policy := auth.NewPasswordPolicy(cfg.PasswordPolicy)
	passwordService := auth.NewPasswordService(db, usersRepo, tenantsRepo, policy, false)
	sessionService := auth.NewSessionService(auth.SessionConfig{
		AccessTokenTTL:     cfg.AccessTokenTTL,
		RefreshTokenTTL:    cfg.RefreshTokenTTL,
		JWTSecret:          []byte(cfg.JWTSecret),
		Issuer:             cfg.JWTIssuer,
		FingerprintEnabled: cfg.SessionSecurity.FingerprintEnabled,
		DetectReuseEnabled: cfg.SessionSecurity.DetectReuseEnabled,
	}, sessionsRepo, usersRepo)
	resetService := auth.NewPasswordResetService(0, db, tokensRepo, usersRepo, passwordService, sessionsRepo)
	verificationService := auth.NewEmailVerificationService(0, db, tokensRepo, usersRepo)
	mfaService := auth.NewMFAService("CloudBoost AI", box, db, mfaSecretsRepo, recoveryCodesRepo, usersRepo, tokensRepo)

	// Providers
	in := cfg.Integrations
	notifier := notification.New(notification.Config{
		SendGrid: notification.SendGridConfig{APIKey: in.SendGridAPIKey, FromEmail: in.SendGridFromEmail, FromName: "CloudBoost AI"},
		SMTP: notification.SMTPConfig{
			Host: in.SMTPHost, Port: in.SMTPPort, User: in.SMTPUsername, Password: in.SMTPPassword,
			From: in.SMTPFrom, FromName: "CloudBoost AI",
		},
		Twilio:   notification.TwilioConfig{AccountSID: in.TwilioAccountSID, AuthToken: in.TwilioAuthToken, PhoneNumber: in.TwilioPhoneNumber},
		WhatsApp: notification.WhatsAppConfig{AccessToken: in.WhatsAppAccessToken, PhoneNumberID: in.WhatsAppPhoneNumberID},
		Seed:     cfg.SimulationSeed,
	}, logger)
	aiConfig := ai.Config{APIKey: in.OpenAIAPIKey, Model: in.OpenAIModel, BaseURL: in.OpenAIBaseURL}
	generator := ai.New(aiConfig, logger)

	// Domain services
	tenantService := tenant.NewService(db, tenantsRepo, usersRepo, sessionsRepo, passwordService)
	businessService := business.NewService(businessRepo, box, c)
	contentService := content.NewService(contentRepo, businessRepo, businessService, generator, content.Config{
		AI:       aiConfig,
		MaxBatch: cfg.Validation.MaxBatchGenerate,
	}, m, logger)
	crmService := crm.NewService(crm.Repositories{
		Customers:  repository.NewCustomersRepository(db),
		Leads:      repository.NewLeadsRepository(db),
		Deals:      repository.NewDealsRepository(db),
		Activities: activitiesRepo,
	}, c, cfg.Redis.TTL, logger)
	messagingService := messaging.NewService(messagesRepo, notifier, messaging.Config{
		MaxBulkRecipients: cfg.Validation.MaxBulkRecipients,
		Concurrency:       cfg.Worker.BulkSendConcurrency,
		MaxRetries:        cfg.Worker.MaxRetries,
	}, m, logger)

	socialService := social.NewService(socialRepo, box, social.Config{
		MaxBulkSchedule: cfg.Validation.MaxBulkSchedule,
		MaxRetries:      cfg.Worker.MaxRetries,
	}, m, logger)
	socialService.Register("facebook", social.NewFacebookClient(""))
	socialService.Register("linkedin", social.NewLinkedInClient(""))
	socialService.Register("twitter", social.NewTwitterClient(""))
	states := auth.NewStateSigner([]byte(cfg.JWTSecret), box, oauthStateTTL)
	socialOAuth := social.NewOAuthService(socialService, states, map[string]social.OAuthCredentials{
		"facebook": {ClientID: in.FacebookClientID, ClientSecret: in.FacebookClientSecret, RedirectURL: cfg.OAuthRedirectURL("facebook")},
		"linkedin": {ClientID: in.LinkedInClientID, ClientSecret: in.LinkedInClientSecret, RedirectURL: cfg.OAuthRedirectURL("linkedin")},
		"twitter":  {ClientID: in.TwitterClientID, ClientSecret: in.TwitterClientSecret, RedirectURL: cfg.OAuthRedirectURL("twitter")},
	})

	automationService := automation.NewService(workflowsRepo, messagingService, crmService, m, logger)

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	analyticsService := analytics.NewService(
		repository.NewAnalyticsRepository(db),
		contentRepo,
		activitiesRepo,
		analytics.Sources{
			CRM:        crmService,
			Messaging:  messagingService,
			Social:     socialService,
			Automation: automationService,
		},
		func(ctx context.Context) error { return repository.Ping(ctx, sqlDB) },
		c,
		analytics.Config{
			Version:      cfg.Version,
			Environment:  cfg.Environment,
			Integrations: cfg.IntegrationStatus(),
			CacheTTL:     time.Minute,
		},
		logger,
	)

	handler := httpserver.NewRouter(httpserver.RouterConfig{
		Logger:                   logger,
		Version:                  cfg.Version,
		Metrics:                  m,
		PasswordService:          passwordService,
		SessionService:           sessionService,
		PasswordResetService:     resetService,
		MFAService:               mfaService,
		ResetMailer:              notifier,
		EmailVerificationService: verificationService,
		VerificationMailer:       notifier,
		UsersRepo:                usersRepo,
		TenantService:            tenantService,
		BusinessService:          businessService,
		ContentService:           contentService,
		CRMService:               crmService,
		MessagingService:         messagingService,
		SocialService:            socialService,
		SocialOAuth:              socialOAuth,
		AutomationService:        automationService,
		AnalyticsService:         analyticsService,
		AppBaseURL:               cfg.AppBaseURL,
		RateLimitConfig:          cfg.RateLimit,
		SecurityHeaders:          cfg.SecurityHeaders,
		Validation:               cfg.Validation,
		CookieSecure:             cfg.CookieSecure,
	})

	dispatcher := worker.NewDispatcher(cfg.Worker, m, logger,
		worker.Job{Name: "messages", Run: messagingService.DispatchDue},
		worker.Job{Name: "social_posts", Run: socialService.PublishDue},
		worker.Job{Name: "content_schedules", Run: func(ctx context.Context, now time.Time, limit int) (int, error) {
			return contentService.PublishDue(ctx, socialService, now, limit)
		}},
		worker.Job{Name: "sessions", Run: func(ctx context.Context, _ time.Time, _ int) (int, error) {
			n, err := sessionService.PurgeExpired(ctx, sessionRetention)
			return int(n), err
		}},
	)

	return &App{
		Config:     cfg,
		Logger:     logger,
		DB:         db,
		Cache:      c,
		Metrics:    m,
		Handler:    handler,
		Dispatcher: dispatcher,
		Tenants:    tenantsRepo,
		Users:      usersRepo,
		Automation: automationService,
	}, nil
}

// Close releases the database pool and cache connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
