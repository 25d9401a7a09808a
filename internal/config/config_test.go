package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	// Clear any other env vars that might interfere
	for _, v := range []string{"SERVER_ADDR", "SERVER_PORT", "DB_DRIVER", "DB_HOST", "DB_PORT", "ENCRYPTION_KEY", "REDIS_ADDR", "LOG_LEVEL"} {
		t.Setenv(v, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Addr() != "0.0.0.0:5000" {
		t.Errorf("Addr() = %q, want %q", cfg.Addr(), "0.0.0.0:5000")
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Database.Driver = %q, want postgres", cfg.Database.Driver)
	}
	if cfg.AccessTokenTTL != 24*time.Hour {
		t.Errorf("AccessTokenTTL = %v, want %v", cfg.AccessTokenTTL, 24*time.Hour)
	}
	if cfg.RefreshTokenTTL != 30*24*time.Hour {
		t.Errorf("RefreshTokenTTL = %v, want %v", cfg.RefreshTokenTTL, 30*24*time.Hour)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
	if cfg.EncryptionKey != nil {
		t.Errorf("EncryptionKey should be nil when unset")
	}
	if cfg.Validation.MaxBulkRecipients != 1000 {
		t.Errorf("MaxBulkRecipients = %d, want 1000", cfg.Validation.MaxBulkRecipients)
	}
	if cfg.Worker.BulkSendConcurrency != 8 {
		t.Errorf("BulkSendConcurrency = %d, want 8", cfg.Worker.BulkSendConcurrency)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing secret",
			env:     map[string]string{"JWT_SECRET": ""},
			wantErr: "JWT_SECRET is required",
		},
		{
			name:    "short secret",
			env:     map[string]string{"JWT_SECRET": "short"},
			wantErr: "at least 32 characters",
		},
		{
			name:    "bad driver",
			env:     map[string]string{"JWT_SECRET": testSecret, "DB_DRIVER": "mysql"},
			wantErr: "DB_DRIVER",
		},
		{
			name:    "bad encryption key",
			env:     map[string]string{"JWT_SECRET": testSecret, "ENCRYPTION_KEY": "abcd"},
			wantErr: "ENCRYPTION_KEY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DB_DRIVER", "")
			t.Setenv("ENCRYPTION_KEY", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("ACCESS_TOKEN_TTL", "30m")
	t.Setenv("ENCRYPTION_KEY", strings.Repeat("ab", 32))
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("TWILIO_ACCOUNT_SID", "AC123")
	t.Setenv("TWILIO_AUTH_TOKEN", "token")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ServerPort != 9090 {
		t.Errorf("ServerPort = %d, want 9090", cfg.ServerPort)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Database.Driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.AccessTokenTTL != 30*time.Minute {
		t.Errorf("AccessTokenTTL = %v, want 30m", cfg.AccessTokenTTL)
	}
	if len(cfg.EncryptionKey) != 32 {
		t.Errorf("EncryptionKey length = %d, want 32", len(cfg.EncryptionKey))
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}

	status := cfg.IntegrationStatus()
	if !status["twilio"] {
		t.Error("twilio should be reported as configured")
	}
	if status["openai"] {
		t.Error("openai should not be reported as configured")
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	want := "host=db port=5432 user=u password=p dbname=n sslmode=disable"
	if got := d.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}

	d.URL = "postgres://x"
	if got := d.DSN(); got != "postgres://x" {
		t.Errorf("DSN() with URL = %q", got)
	}
}

func TestConfig_OAuthRedirectURL(t *testing.T) {
	cfg := &Config{Integrations: IntegrationsConfig{OAuthRedirectBaseURL: "https://api.example.com/"}}
	want := "https://api.example.com/social/oauth/linkedin/callback"
	if got := cfg.OAuthRedirectURL("linkedin"); got != want {
		t.Errorf("OAuthRedirectURL() = %q, want %q", got, want)
	}
}
