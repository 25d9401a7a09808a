package tenant

import (
	"context"
	"net/http"
	"testing"

	"github.com/cloudboost/cloudboost-api/internal/config"
	"github.com/cloudboost/cloudboost-api/internal/http/features/featuretest"
	"github.com/cloudboost/cloudboost-api/pkg/auth"
	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/cloudboost/cloudboost-api/pkg/repository"
	"github.com/cloudboost/cloudboost-api/pkg/repository/repotest"
	"github.com/cloudboost/cloudboost-api/pkg/tenant"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	router http.Handler
	admin  featuretest.Caller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := repotest.NewDB(t)
	users := repository.NewUsersRepository(db)
	tenants := repository.NewTenantsRepository(db)
	policy := auth.NewPasswordPolicy(config.PasswordPolicyConfig{MinLength: 8})
	passwords := auth.NewPasswordService(db, users, tenants, policy, false)
	svc := tenant.NewService(db, tenants, users, repository.NewSessionsRepository(db), passwords)

	admin, tn, err := passwords.Register(context.Background(), auth.RegisterInput{
		Email:        "owner@spice.lk",
		Password:     "Passw0rd",
		FirstName:    "Ruwan",
		LastName:     "Silva",
		TenantName:   "Spice Island",
		TenantDomain: "spice.lk",
	})
	require.NoError(t, err)

	r := chi.NewRouter()
	NewHandler(featuretest.Logger, svc).RegisterRoutes(r)
	return &fixture{
		router: r,
		admin:  featuretest.Caller{UserID: admin.ID, TenantID: tn.ID, Role: domain.RoleAdmin},
	}
}

func (f *fixture) as(role string) featuretest.Caller {
	c := f.admin
	c.Role = role
	return c
}

func TestTenant_GetAndUpdate(t *testing.T) {
	f := newFixture(t)

	rec := featuretest.Do(t, f.router, f.admin, http.MethodGet, "/tenant", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Spice Island", featuretest.Object(t, featuretest.JSON(t, rec), "tenant")["name"])

	tests := []struct {
		name   string
		role   string
		body   string
		status int
	}{
		{"admin updates plan", domain.RoleAdmin, `{"subscription_plan":"enterprise"}`, http.StatusOK},
		{"invalid plan", domain.RoleAdmin, `{"subscription_plan":"gold"}`, http.StatusBadRequest},
		{"non admin", domain.RoleUser, `{"name":"Other"}`, http.StatusForbidden},
		{"invalid json", domain.RoleAdmin, `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := featuretest.Do(t, f.router, f.as(tt.role), http.MethodPut, "/tenant", tt.body)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestTenant_Users(t *testing.T) {
	f := newFixture(t)

	rec := featuretest.Do(t, f.router, f.admin, http.MethodPost, "/tenant/users",
		`{"email":"agent@spice.lk","password":"Passw0rd","first_name":"Nimal","last_name":"Perera","role":"manager"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	userID := featuretest.Object(t, featuretest.JSON(t, rec), "user")["id"].(string)

	rec = featuretest.Do(t, f.router, f.admin, http.MethodPost, "/tenant/users",
		`{"email":"agent@spice.lk","password":"Passw0rd","first_name":"Dup","last_name":"User"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Email already registered", featuretest.JSON(t, rec)["error"])

	rec = featuretest.Do(t, f.router, f.as(domain.RoleUser), http.MethodGet, "/tenant/users?per_page=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := featuretest.JSON(t, rec)
	assert.Len(t, body["users"], 1)
	pagination := featuretest.Object(t, body, "pagination")
	assert.Equal(t, float64(2), pagination["total"])
	assert.Equal(t, true, pagination["has_next"])

	rec = featuretest.Do(t, f.router, f.admin, http.MethodPut, "/tenant/users/"+userID, `{"status":"inactive"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "inactive", featuretest.Object(t, featuretest.JSON(t, rec), "user")["status"])

	rec = featuretest.Do(t, f.router, f.as(domain.RoleUser), http.MethodGet, "/tenant/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := featuretest.JSON(t, rec)
	assert.Equal(t, float64(2), stats["total_users"])
	assert.Equal(t, float64(1), stats["active_users"])

	rec = featuretest.Do(t, f.router, f.admin, http.MethodDelete, "/tenant/users/"+f.admin.UserID.String(), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = featuretest.Do(t, f.router, f.admin, http.MethodDelete, "/tenant/users/"+userID, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = featuretest.Do(t, f.router, f.admin, http.MethodDelete, "/tenant/users/not-a-uuid", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
