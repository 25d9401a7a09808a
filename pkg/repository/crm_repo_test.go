package repository_test

import (
	"context"
	"testing"

	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/cloudboost/cloudboost-api/pkg/repository"
	"github.com/cloudboost/cloudboost-api/pkg/repository/repotest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomersRepository_ListFilters(t *testing.T) {
	db := repotest.NewDB(t)
	ctx := context.Background()
	tenant := seedTenant(t, db, "acme.lk")
	other := seedTenant(t, db, "other.lk")
	repo := repository.NewCustomersRepository(db)

	customers := []*domain.Customer{
		{TenantScoped: domain.TenantScoped{TenantID: tenant.ID}, Name: "Nimal Perera", Email: "nimal@x.lk", Company: "Lanka Tea", Status: domain.CustomerLead, Country: "LK"},
		{TenantScoped: domain.TenantScoped{TenantID: tenant.ID}, Name: "Asha Rao", Email: "asha@x.in", Company: "Rao Foods", Status: domain.CustomerActive, Country: "IN", LifetimeValue: 1200},
		{TenantScoped: domain.TenantScoped{TenantID: tenant.ID}, Name: "Kamal Silva", Email: "kamal@x.lk", Status: domain.CustomerActive, Country: "LK", LifetimeValue: 800},
		{TenantScoped: domain.TenantScoped{TenantID: other.ID}, Name: "Hidden", Email: "hidden@x.lk", Status: domain.CustomerActive, Country: "LK"},
	}
	for _, c := range customers {
		require.NoError(t, repo.Create(ctx, c))
	}

	tests := []struct {
		name   string
		filter repository.CustomerFilter
		want   int64
	}{
		{"all of tenant", repository.CustomerFilter{}, 3},
		{"by status", repository.CustomerFilter{Status: domain.CustomerActive}, 2},
		{"by country", repository.CustomerFilter{Country: "LK"}, 2},
		{"search company", repository.CustomerFilter{Search: "tea"}, 1},
		{"search and status", repository.CustomerFilter{Search: "a", Status: domain.CustomerLead}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, total, err := repo.List(ctx, tenant.ID, tt.filter, domain.NewPage(1, 20, 20))
			require.NoError(t, err)
			assert.Equal(t, tt.want, total)
		})
	}

	byCountry, err := repo.CountBy(ctx, tenant.ID, "country")
	require.NoError(t, err)
	require.Len(t, byCountry, 2)
	assert.Equal(t, "LK", byCountry[0].Key)
	assert.Equal(t, int64(2), byCountry[0].Count)

	_, err = repo.CountBy(ctx, tenant.ID, "email; DROP TABLE customers")
	assert.True(t, domain.IsValidation(err))

	ltv, err := repo.TotalLifetimeValue(ctx, tenant.ID)
	require.NoError(t, err)
	assert.InDelta(t, 2000, ltv, 0.001)

	exists, err := repo.ExistsByEmail(ctx, tenant.ID, "NIMAL@x.lk")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCustomersRepository_DeleteCascades(t *testing.T) {
	db := repotest.NewDB(t)
	ctx := context.Background()
	tenant := seedTenant(t, db, "acme.lk")
	scoped := domain.TenantScoped{TenantID: tenant.ID}

	customers := repository.NewCustomersRepository(db)
	deals := repository.NewDealsRepository(db)
	activities := repository.NewActivitiesRepository(db)
	leads := repository.NewLeadsRepository(db)

	c := &domain.Customer{TenantScoped: scoped, Name: "Nimal", Email: "nimal@x.lk"}
	require.NoError(t, customers.Create(ctx, c))
	require.NoError(t, deals.Create(ctx, &domain.Deal{TenantScoped: scoped, CustomerID: c.ID, Title: "Deal", Value: 100}))
	require.NoError(t, activities.Create(ctx, &domain.Activity{TenantScoped: scoped, CustomerID: c.ID, ActivityType: "call", Subject: "Intro"}))
	require.NoError(t, leads.Create(ctx, &domain.Lead{TenantScoped: scoped, CustomerID: c.ID, Title: "Lead"}))

	require.NoError(t, customers.Delete(ctx, tenant.ID, c.ID))
	assert.ErrorIs(t, customers.Delete(ctx, tenant.ID, c.ID), domain.ErrCustomerNotFound)

	remaining, err := deals.List(ctx, tenant.ID, repository.DealFilter{CustomerID: &c.ID})
	require.NoError(t, err)
	assert.Empty(t, remaining)

	_, total, err := activities.List(ctx, tenant.ID, repository.ActivityFilter{CustomerID: &c.ID}, domain.NewPage(1, 10, 10))
	require.NoError(t, err)
	assert.Zero(t, total)

	_, total, err = leads.List(ctx, tenant.ID, repository.LeadFilter{CustomerID: &c.ID}, domain.NewPage(1, 10, 10))
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestDealsRepository_DefaultPipeline(t *testing.T) {
	db := repotest.NewDB(t)
	ctx := context.Background()
	tenant := seedTenant(t, db, "acme.lk")
	repo := repository.NewDealsRepository(db)

	first := &domain.Pipeline{TenantScoped: domain.TenantScoped{TenantID: tenant.ID}, Name: "Sales", IsDefault: true, IsActive: true}
	second := &domain.Pipeline{TenantScoped: domain.TenantScoped{TenantID: tenant.ID}, Name: "Partners", IsDefault: true, IsActive: true}
	require.NoError(t, repo.CreatePipeline(ctx, first))
	require.NoError(t, repo.CreatePipeline(ctx, second))

	pipelines, err := repo.ListPipelines(ctx, tenant.ID)
	require.NoError(t, err)
	require.Len(t, pipelines, 2)
	assert.Equal(t, second.ID, pipelines[0].ID)
	assert.False(t, pipelines[1].IsDefault)

	_, err = repo.GetPipeline(ctx, tenant.ID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrPipelineNotFound)
}

func TestCustomersRepository_EmailUniquePerTenant(t *testing.T) {
	db := repotest.NewDB(t)
	ctx := context.Background()
	tenant := seedTenant(t, db, "acme.lk")
	other := seedTenant(t, db, "other.lk")
	repo := repository.NewCustomersRepository(db)

	first := &domain.Customer{TenantScoped: domain.TenantScoped{TenantID: tenant.ID}, Name: "Nimal", Email: "nimal@x.lk"}
	require.NoError(t, repo.Create(ctx, first))

	dup := &domain.Customer{TenantScoped: domain.TenantScoped{TenantID: tenant.ID}, Name: "Nimal again", Email: "nimal@x.lk"}
	assert.ErrorIs(t, repo.Create(ctx, dup), domain.ErrCustomerExists)

	elsewhere := &domain.Customer{TenantScoped: domain.TenantScoped{TenantID: other.ID}, Name: "Nimal", Email: "nimal@x.lk"}
	require.NoError(t, repo.Create(ctx, elsewhere))

	second := &domain.Customer{TenantScoped: domain.TenantScoped{TenantID: tenant.ID}, Name: "Kamal", Email: "kamal@x.lk"}
	require.NoError(t, repo.Create(ctx, second))
	second.Email = "nimal@x.lk"
	assert.ErrorIs(t, repo.Update(ctx, second), domain.ErrCustomerExists)
}
