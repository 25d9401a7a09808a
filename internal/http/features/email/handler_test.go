package email

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/cloudboost/cloudboost-api/internal/config"
	"github.com/cloudboost/cloudboost-api/internal/http/features/featuretest"
	"github.com/cloudboost/cloudboost-api/internal/notification"
	"github.com/cloudboost/cloudboost-api/pkg/auth"
	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/cloudboost/cloudboost-api/pkg/repository"
	"github.com/cloudboost/cloudboost-api/pkg/repository/repotest"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mailbox struct {
	links []string
}

func (m *mailbox) SendVerificationEmail(_ context.Context, _, verifyURL string) *notification.Delivery {
	m.links = append(m.links, verifyURL)
	return &notification.Delivery{Status: notification.StatusSent, Simulated: true}
}

func (m *mailbox) token(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, m.links)
	u, err := url.Parse(m.links[len(m.links)-1])
	require.NoError(t, err)
	return u.Query().Get("token")
}

type fixture struct {
	router chi.Router
	mail   *mailbox
	users  *repository.UsersRepository
	caller featuretest.Caller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := repotest.NewDB(t)
	users := repository.NewUsersRepository(db)
	tenants := repository.NewTenantsRepository(db)
	passwords := auth.NewPasswordService(db, users, tenants, auth.NewPasswordPolicy(config.PasswordPolicyConfig{MinLength: 8}), false)

	user, tenant, err := passwords.Register(context.Background(), auth.RegisterInput{
		Email:        "owner@acme.example",
		Password:     "Sup3rSecret",
		FirstName:    "Ada",
		LastName:     "Owner",
		TenantName:   "Acme",
		TenantDomain: "acme.example",
	})
	require.NoError(t, err)

	mail := &mailbox{}
	verification := auth.NewEmailVerificationService(0, db, repository.NewVerificationTokensRepository(db), users)
	h := NewHandler(featuretest.Logger, verification, mail, "http://app.example")

	r := chi.NewRouter()
	pass := func(next http.Handler) http.Handler { return next }
	h.RegisterRoutes(r, pass, pass)

	return &fixture{
		router: r,
		mail:   mail,
		users:  users,
		caller: featuretest.Caller{UserID: user.ID, TenantID: tenant.ID, Role: domain.RoleAdmin},
	}
}

func TestVerifyEmail(t *testing.T) {
	f := newFixture(t)

	rec := featuretest.Do(t, f.router, f.caller, http.MethodPost, "/auth/resend-verification", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, f.mail.links[0], "http://app.example/auth/verify-email?token=")

	token := f.mail.token(t)
	rec = featuretest.Do(t, f.router, featuretest.Caller{}, http.MethodPost, "/auth/verify-email", `{"token":"`+token+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Email verified successfully", featuretest.JSON(t, rec)["message"])

	user, err := f.users.GetByID(context.Background(), f.caller.UserID)
	require.NoError(t, err)
	assert.True(t, user.EmailVerified())

	rec = featuretest.Do(t, f.router, featuretest.Caller{}, http.MethodPost, "/auth/verify-email?token="+url.QueryEscape(token), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "verification token already used", featuretest.JSON(t, rec)["error"])

	rec = featuretest.Do(t, f.router, f.caller, http.MethodPost, "/auth/resend-verification", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email already verified", featuretest.JSON(t, rec)["error"])
}

func TestResendRevokesEarlierLinks(t *testing.T) {
	f := newFixture(t)

	require.Equal(t, http.StatusOK, featuretest.Do(t, f.router, f.caller, http.MethodPost, "/auth/resend-verification", "").Code)
	first := f.mail.token(t)
	require.Equal(t, http.StatusOK, featuretest.Do(t, f.router, f.caller, http.MethodPost, "/auth/resend-verification", "").Code)
	second := f.mail.token(t)
	require.NotEqual(t, first, second)

	rec := featuretest.Do(t, f.router, featuretest.Caller{}, http.MethodPost, "/auth/verify-email", `{"token":"`+first+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = featuretest.Do(t, f.router, featuretest.Caller{}, http.MethodPost, "/auth/verify-email", `{"token":"`+second+`"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestVerifyEmail_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name          string
		body          string
		expectedError string
	}{
		{"missing token", `{}`, "token is required"},
		{"unknown token", `{"token":"nope"}`, "invalid verification token"},
		{"invalid json", `{invalid}`, "invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := featuretest.Do(t, f.router, featuretest.Caller{}, http.MethodPost, "/auth/verify-email", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.expectedError, featuretest.JSON(t, rec)["error"])
		})
	}
}

func TestResend_RequiresIdentity(t *testing.T) {
	f := newFixture(t)

	rec := featuretest.Do(t, f.router, featuretest.Caller{}, http.MethodPost, "/auth/resend-verification", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
