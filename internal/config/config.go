package config

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	// Server
	ServerAddr  string
	ServerPort  int
	Environment string
	LogLevel    slog.Level
	Version     string
	// AppBaseURL is the frontend origin used in emailed links.
	AppBaseURL string

	Database DatabaseConfig

	// JWT
	JWTSecret       string
	JWTIssuer       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// EncryptionKey protects API keys, social tokens and MFA secrets (AES-256).
	EncryptionKey []byte

	RateLimit       RateLimitConfig
	SecurityHeaders SecurityHeadersConfig
	Validation      ValidationConfig
	PasswordPolicy  PasswordPolicyConfig
	SessionSecurity SessionSecurityConfig

	Redis        RedisConfig
	Integrations IntegrationsConfig
	Worker       WorkerConfig

	MetricsEnabled bool
	CookieSecure   bool

	// SimulationSeed seeds simulated deliveries. Zero means time based.
	SimulationSeed int64
}

// DatabaseConfig selects and tunes the database connection.
type DatabaseConfig struct {
	Driver          string // postgres or sqlite
	URL             string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	SQLitePath      string
	AutoMigrate     bool
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN returns the postgres connection string.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// RateLimitConfig holds per-endpoint-class rate limits.
type RateLimitConfig struct {
	Enabled bool

	AuthRequestsPerMinute int
	AuthWindowMinutes     int

	ResetRequestsPerWindow int
	ResetWindowMinutes     int

	RefreshRequestsPerMinute int
	RefreshWindowMinutes     int

	MessagingRequestsPerMinute int
	MessagingWindowMinutes     int

	APIRequestsPerMinute int
	APIWindowMinutes     int
}

// SecurityHeadersConfig holds response security headers.
type SecurityHeadersConfig struct {
	Enabled            bool
	CSP                string
	HSTSMaxAge         int
	FrameOptions       string
	ContentTypeOptions string
	XSSProtection      string
	ReferrerPolicy     string
	PermissionsPolicy  string
}

// ValidationConfig holds request validation limits.
type ValidationConfig struct {
	MaxRequestBodySize int64
	MaxBulkRecipients  int
	MaxBatchGenerate   int
	MaxBulkSchedule    int
}

// PasswordPolicyConfig holds password complexity requirements.
type PasswordPolicyConfig struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumber    bool
	RequireSpecial   bool
}

// SessionSecurityConfig holds refresh session hardening switches.
type SessionSecurityConfig struct {
	FingerprintEnabled bool
	DetectReuseEnabled bool
}

// RedisConfig holds the cache connection. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// IntegrationsConfig holds credentials of optional third-party providers.
// Any provider left unconfigured is simulated.
type IntegrationsConfig struct {
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	SendGridAPIKey    string
	SendGridFromEmail string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string

	WhatsAppAccessToken   string
	WhatsAppPhoneNumberID string

	FacebookClientID     string
	FacebookClientSecret string
	LinkedInClientID     string
	LinkedInClientSecret string
	TwitterClientID      string
	TwitterClientSecret  string
	OAuthRedirectBaseURL string
}

// WorkerConfig tunes the background dispatcher.
type WorkerConfig struct {
	Enabled             bool
	Interval            time.Duration
	BatchSize           int
	MaxRetries          int
	BulkSendConcurrency int
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		ServerAddr:  getEnv("SERVER_ADDR", "0.0.0.0"),
		ServerPort:  getEnvInt("SERVER_PORT", 5000),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),
		Version:     getEnv("APP_VERSION", "1.0.0"),
		AppBaseURL:  strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:3000"), "/"),

		Database: DatabaseConfig{
			Driver:          strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			URL:             getEnv("DATABASE_URL", ""),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Name:            getEnv("DB_NAME", "cloudboost"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			SQLitePath:      getEnv("SQLITE_PATH", "cloudboost.db"),
			AutoMigrate:     getEnvBool("DB_AUTO_MIGRATE", true),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		},

		JWTSecret:       getEnv("JWT_SECRET", ""),
		JWTIssuer:       getEnv("JWT_ISSUER", "cloudboost"),
		AccessTokenTTL:  getEnvDuration("ACCESS_TOKEN_TTL", 24*time.Hour),
		RefreshTokenTTL: getEnvDuration("REFRESH_TOKEN_TTL", 30*24*time.Hour),

		RateLimit: RateLimitConfig{
			Enabled:                    getEnvBool("RATE_LIMIT_ENABLED", true),
			AuthRequestsPerMinute:      getEnvInt("RATE_LIMIT_AUTH_REQUESTS", 10),
			AuthWindowMinutes:          getEnvInt("RATE_LIMIT_AUTH_WINDOW_MINUTES", 1),
			ResetRequestsPerWindow:     getEnvInt("RATE_LIMIT_RESET_REQUESTS", 3),
			ResetWindowMinutes:         getEnvInt("RATE_LIMIT_RESET_WINDOW_MINUTES", 60),
			RefreshRequestsPerMinute:   getEnvInt("RATE_LIMIT_REFRESH_REQUESTS", 20),
			RefreshWindowMinutes:       getEnvInt("RATE_LIMIT_REFRESH_WINDOW_MINUTES", 1),
			MessagingRequestsPerMinute: getEnvInt("RATE_LIMIT_MESSAGING_REQUESTS", 60),
			MessagingWindowMinutes:     getEnvInt("RATE_LIMIT_MESSAGING_WINDOW_MINUTES", 1),
			APIRequestsPerMinute:       getEnvInt("RATE_LIMIT_API_REQUESTS", 300),
			APIWindowMinutes:           getEnvInt("RATE_LIMIT_API_WINDOW_MINUTES", 1),
		},

		SecurityHeaders: SecurityHeadersConfig{
			Enabled:            getEnvBool("SECURITY_HEADERS_ENABLED", true),
			CSP:                getEnv("SECURITY_CSP", "default-src 'none'; frame-ancestors 'none'"),
			HSTSMaxAge:         getEnvInt("SECURITY_HSTS_MAX_AGE", 31536000),
			FrameOptions:       getEnv("SECURITY_FRAME_OPTIONS", "DENY"),
			ContentTypeOptions: getEnv("SECURITY_CONTENT_TYPE_OPTIONS", "nosniff"),
			XSSProtection:      getEnv("SECURITY_XSS_PROTECTION", "0"),
			ReferrerPolicy:     getEnv("SECURITY_REFERRER_POLICY", "no-referrer"),
			PermissionsPolicy:  getEnv("SECURITY_PERMISSIONS_POLICY", "geolocation=(), microphone=(), camera=()"),
		},

		Validation: ValidationConfig{
			MaxRequestBodySize: int64(getEnvInt("MAX_REQUEST_BODY_SIZE", 1<<20)),
			MaxBulkRecipients:  getEnvInt("MAX_BULK_RECIPIENTS", 1000),
			MaxBatchGenerate:   getEnvInt("MAX_BATCH_GENERATE", 10),
			MaxBulkSchedule:    getEnvInt("MAX_BULK_SCHEDULE", 50),
		},

		PasswordPolicy: PasswordPolicyConfig{
			MinLength:        getEnvInt("PASSWORD_MIN_LENGTH", 8),
			RequireUppercase: getEnvBool("PASSWORD_REQUIRE_UPPERCASE", true),
			RequireLowercase: getEnvBool("PASSWORD_REQUIRE_LOWERCASE", true),
			RequireNumber:    getEnvBool("PASSWORD_REQUIRE_NUMBER", true),
			RequireSpecial:   getEnvBool("PASSWORD_REQUIRE_SPECIAL", false),
		},

		SessionSecurity: SessionSecurityConfig{
			FingerprintEnabled: getEnvBool("SESSION_FINGERPRINT_ENABLED", false),
			DetectReuseEnabled: getEnvBool("SESSION_DETECT_REUSE_ENABLED", false),
		},

		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      getEnvDuration("CACHE_TTL", 5*time.Minute),
		},

		Integrations: IntegrationsConfig{
			OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
			OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),

			SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
			SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", "noreply@cloudboost.ai"),

			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnvInt("SMTP_PORT", 587),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			SMTPFrom:     getEnv("SMTP_FROM", "noreply@cloudboost.ai"),

			TwilioAccountSID:  getEnv("TWILIO_ACCOUNT_SID", ""),
			TwilioAuthToken:   getEnv("TWILIO_AUTH_TOKEN", ""),
			TwilioPhoneNumber: getEnv("TWILIO_PHONE_NUMBER", ""),

			WhatsAppAccessToken:   getEnv("WHATSAPP_ACCESS_TOKEN", ""),
			WhatsAppPhoneNumberID: getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),

			FacebookClientID:     getEnv("FACEBOOK_CLIENT_ID", ""),
			FacebookClientSecret: getEnv("FACEBOOK_CLIENT_SECRET", ""),
			LinkedInClientID:     getEnv("LINKEDIN_CLIENT_ID", ""),
			LinkedInClientSecret: getEnv("LINKEDIN_CLIENT_SECRET", ""),
			TwitterClientID:      getEnv("TWITTER_CLIENT_ID", ""),
			TwitterClientSecret:  getEnv("TWITTER_CLIENT_SECRET", ""),
			OAuthRedirectBaseURL: getEnv("OAUTH_REDIRECT_BASE_URL", "http://localhost:5000"),
		},

		Worker: WorkerConfig{
			Enabled:             getEnvBool("WORKER_ENABLED", true),
			Interval:            getEnvDuration("WORKER_INTERVAL", 30*time.Second),
			BatchSize:           getEnvInt("WORKER_BATCH_SIZE", 100),
			MaxRetries:          getEnvInt("WORKER_MAX_RETRIES", 3),
			BulkSendConcurrency: getEnvInt("BULK_SEND_CONCURRENCY", 8),
		},

		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
		CookieSecure:   getEnvBool("COOKIE_SECURE", false),
		SimulationSeed: int64(getEnvInt("SIMULATION_SEED", 0)),
	}

	// Validate required fields
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	switch cfg.Database.Driver {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", cfg.Database.Driver)
	}

	key, err := parseEncryptionKey(getEnv("ENCRYPTION_KEY", ""))
	if err != nil {
		return nil, err
	}
	cfg.EncryptionKey = key

	return cfg, nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.ServerAddr, c.ServerPort)
}

// IntegrationStatus reports which optional providers are configured.
func (c *Config) IntegrationStatus() map[string]bool {
	i := c.Integrations
	return map[string]bool{
		"openai":   i.OpenAIAPIKey != "",
		"sendgrid": i.SendGridAPIKey != "",
		"smtp":     i.SMTPHost != "",
		"twilio":   i.TwilioAccountSID != "" && i.TwilioAuthToken != "",
		"whatsapp": i.WhatsAppAccessToken != "" && i.WhatsAppPhoneNumberID != "",
		"facebook": i.FacebookClientID != "" && i.FacebookClientSecret != "",
		"linkedin": i.LinkedInClientID != "" && i.LinkedInClientSecret != "",
		"twitter":  i.TwitterClientID != "" && i.TwitterClientSecret != "",
		"redis":    c.Redis.Addr != "",
	}
}

// OAuthRedirectURL returns the callback URL registered for platform.
func (c *Config) OAuthRedirectURL(platform string) string {
	base := strings.TrimRight(c.Integrations.OAuthRedirectBaseURL, "/")
	return base + "/social/oauth/" + url.PathEscape(platform) + "/callback"
}

// parseEncryptionKey decodes a 64 hex character key. An empty value yields nil, which
// callers treat as "derive from JWT secret" for development setups.
func parseEncryptionKey(value string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(value)
	if err != nil || len(key) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be 64 hex characters")
	}
	return key, nil
}

func parseLogLevel(value string) slog.Level {
	switch strings.ToLower(value) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
