package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloudboost/cloudboost-api/internal/cache"
	"github.com/cloudboost/cloudboost-api/internal/config"
	"github.com/cloudboost/cloudboost-api/pkg/automation"
	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/cloudboost/cloudboost-api/pkg/repository/repotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment:     "test",
		Version:         "1.0.0",
		AppBaseURL:      "http://localhost:3000",
		JWTSecret:       strings.Repeat("s", 32),
		JWTIssuer:       "cloudboost",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
		Validation: config.ValidationConfig{
			MaxRequestBodySize: 1 << 20,
			MaxBulkRecipients:  100,
			MaxBatchGenerate:   10,
			MaxBulkSchedule:    50,
		},
		PasswordPolicy: config.PasswordPolicyConfig{MinLength: 8},
		Redis:          config.RedisConfig{TTL: time.Minute},
		Integrations:   config.IntegrationsConfig{OAuthRedirectBaseURL: "http://localhost:5000"},
		Worker:         config.WorkerConfig{Interval: time.Minute, BatchSize: 10, MaxRetries: 3, BulkSendConcurrency: 2},
		MetricsEnabled: true,
		SimulationSeed: 7,
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := Build(testConfig(), repotest.NewDB(t), cache.NewMemoryCache(), logger)
	require.NoError(t, err)
	return a
}

func call(t *testing.T, a *App, method, path, token, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&out), rec.Body.String())
	}
	return rec.Code, out
}

func register(t *testing.T, a *App, domainName string) string {
	t.Helper()
	code, body := call(t, a, http.MethodPost, "/auth/register", "", `{
		"email": "owner@`+domainName+`",
		"password": "Sup3rSecret",
		"first_name": "Ada",
		"last_name": "Owner",
		"tenant_name": "Acme",
		"tenant_domain": "`+domainName+`"
	}`)
	require.Equal(t, http.StatusCreated, code, body)
	token, _ := body["access_token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestPublicRoutes(t *testing.T) {
	a := newTestApp(t)

	code, body := call(t, a, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Welcome to CloudBoost AI - Complete Business Automation Platform", body["message"])

	code, body = call(t, a, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, true, body["database"])

	code, body = call(t, a, http.MethodGet, "/does-not-exist", "", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not found", body["error"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	a := newTestApp(t)

	for _, path := range []string{"/auth/me", "/crm/customers", "/dashboard", "/social/accounts", "/automation/workflows"} {
		t.Run(path, func(t *testing.T) {
			code, body := call(t, a, http.MethodGet, path, "", "")
			assert.Equal(t, http.StatusUnauthorized, code)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestTenantFlow(t *testing.T) {
	a := newTestApp(t)
	token := register(t, a, "acme.example")

	code, body := call(t, a, http.MethodGet, "/auth/me", token, "")
	require.Equal(t, http.StatusOK, code, body)

	code, body = call(t, a, http.MethodPost, "/crm/customers", token, `{"name":"Jane Doe","email":"jane@example.com","country":"India"}`)
	require.Equal(t, http.StatusCreated, code, body)

	code, body = call(t, a, http.MethodPost, "/communication/send-message", token,
		`{"channel":"email","recipient":"jane@example.com","subject":"Hi","message_content":"Hello Jane"}`)
	require.Equal(t, http.StatusOK, code, body)

	code, body = call(t, a, http.MethodGet, "/dashboard", token, "")
	require.Equal(t, http.StatusOK, code, body)

	code, _ = call(t, a, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, code)
}

func TestTenantsAreIsolated(t *testing.T) {
	a := newTestApp(t)
	first := register(t, a, "first.example")
	second := register(t, a, "second.example")

	code, body := call(t, a, http.MethodPost, "/crm/customers", first, `{"name":"Only Mine","email":"mine@example.com"}`)
	require.Equal(t, http.StatusCreated, code, body)

	code, body = call(t, a, http.MethodGet, "/crm/customers", second, "")
	require.Equal(t, http.StatusOK, code, body)
	assert.Empty(t, body["customers"])
}

func TestSeedTemplates(t *testing.T) {
	a := newTestApp(t)
	register(t, a, "seed.example")
	ctx := context.Background()

	created, err := a.SeedTemplates(ctx, "seed.example")
	require.NoError(t, err)
	assert.Equal(t, len(automation.TemplateList()), created)

	created, err = a.SeedTemplates(ctx, "seed.example")
	require.NoError(t, err)
	assert.Zero(t, created)

	tenant, err := a.Tenants.GetByDomain(ctx, "seed.example")
	require.NoError(t, err)
	workflows, err := a.Automation.ListWorkflows(ctx, tenant.ID, domain.WorkflowDraft)
	require.NoError(t, err)
	assert.Len(t, workflows, len(automation.TemplateList()))

	_, err = a.SeedTemplates(ctx, "missing.example")
	assert.Error(t, err)
}

func TestDispatcherRunsJobs(t *testing.T) {
	a := newTestApp(t)
	assert.NotPanics(t, func() { a.Dispatcher.RunOnce(context.Background()) })
}
