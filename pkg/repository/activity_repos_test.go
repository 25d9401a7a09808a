package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/cloudboost/cloudboost-api/pkg/repository"
	"github.com/cloudboost/cloudboost-api/pkg/repository/repotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowsRepository_StepsAndCounters(t *testing.T) {
	db := repotest.NewDB(t)
	ctx := context.Background()
	tenant := seedTenant(t, db, "acme.lk")
	repo := repository.NewWorkflowsRepository(db)

	w := &domain.Workflow{
		TenantScoped: domain.TenantScoped{TenantID: tenant.ID},
		Name:         "Nurture",
		Triggers:     []string{"form_submission", "website_visit"},
		Actions: []domain.WorkflowAction{
			{Type: "send_email", Delay: 0},
			{Type: "send_whatsapp", Delay: 24},
		},
		Status: domain.WorkflowActive,
	}
	require.NoError(t, repo.Create(ctx, w))

	got, err := repo.Get(ctx, tenant.ID, w.ID)
	require.NoError(t, err)
	require.Len(t, got.Steps, 2)
	assert.Equal(t, "send_whatsapp", got.Steps[1].StepType)
	assert.Equal(t, 24, got.Steps[1].DelayHours)

	got.Actions = got.Actions[:1]
	require.NoError(t, repo.Update(ctx, got))
	got, err = repo.Get(ctx, tenant.ID, w.ID)
	require.NoError(t, err)
	assert.Len(t, got.Steps, 1)

	matched, err := repo.ActiveWithTrigger(ctx, tenant.ID, "website_visit")
	require.NoError(t, err)
	assert.Len(t, matched, 1)
	matched, err = repo.ActiveWithTrigger(ctx, tenant.ID, "website")
	require.NoError(t, err)
	assert.Empty(t, matched)

	exec := &domain.WorkflowExecution{
		TenantScoped: domain.TenantScoped{TenantID: tenant.ID},
		WorkflowID:   w.ID,
		Status:       domain.ExecutionRunning,
		StartedAt:    time.Now(),
	}
	require.NoError(t, repo.CreateExecution(ctx, exec))
	exec.Status = domain.ExecutionCompleted
	require.NoError(t, repo.FinishExecution(ctx, exec))

	got, err = repo.Get(ctx, tenant.ID, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ExecutionCount)
	assert.Equal(t, 1, got.SuccessCount)
	assert.NotNil(t, got.LastExecutedAt)

	require.NoError(t, repo.Delete(ctx, tenant.ID, w.ID))
	execs, err := repo.ListExecutions(ctx, tenant.ID, w.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, execs)
}

func TestMessagesRepository_DueAndStats(t *testing.T) {
	db := repotest.NewDB(t)
	ctx := context.Background()
	tenant := seedTenant(t, db, "acme.lk")
	repo := repository.NewMessagesRepository(db)
	scoped := domain.TenantScoped{TenantID: tenant.ID}

	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)
	messages := []*domain.Message{
		{TenantScoped: scoped, Channel: domain.ChannelSMS, Recipient: "+94771234567", Content: "a", Status: domain.MessageQueued, ScheduledAt: &past},
		{TenantScoped: scoped, Channel: domain.ChannelSMS, Recipient: "+94771234567", Content: "b", Status: domain.MessageQueued, ScheduledAt: &future},
		{TenantScoped: scoped, Channel: domain.ChannelEmail, Recipient: "a@b.lk", Content: "c", Status: domain.MessageFailed, RetryCount: 1, Provider: "sendgrid"},
		{TenantScoped: scoped, Channel: domain.ChannelEmail, Recipient: "a@b.lk", Content: "d", Status: domain.MessageFailed, RetryCount: 3, Provider: "sendgrid"},
		{TenantScoped: scoped, Channel: domain.ChannelEmail, Recipient: "a@b.lk", Content: "e", Status: domain.MessageDelivered, Cost: 0.001},
		{TenantScoped: scoped, Channel: domain.ChannelVoice, Recipient: "+94771234567", Content: "f", Status: domain.MessageQueued, SentAt: &past, ExternalID: "CA1"},
	}
	for _, m := range messages {
		require.NoError(t, repo.Create(ctx, m))
	}

	due, err := repo.Due(ctx, time.Now(), 3, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "a", due[0].Content)
	assert.Equal(t, "c", due[1].Content)

	stats, err := repo.ChannelStats(ctx, tenant.ID, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	var emailTotal int64
	for _, s := range stats {
		if s.Channel == domain.ChannelEmail {
			emailTotal += s.Count
		}
	}
	assert.Equal(t, int64(3), emailTotal)
}

func TestSocialRepository_UpsertAccount(t *testing.T) {
	db := repotest.NewDB(t)
	ctx := context.Background()
	tenant := seedTenant(t, db, "acme.lk")
	repo := repository.NewSocialRepository(db)

	first := &domain.SocialAccount{TenantScoped: domain.TenantScoped{TenantID: tenant.ID}, Platform: "facebook", AccountName: "Old", IsActive: true, ConnectedAt: time.Now()}
	require.NoError(t, repo.UpsertAccount(ctx, first))
	second := &domain.SocialAccount{TenantScoped: domain.TenantScoped{TenantID: tenant.ID}, Platform: "facebook", AccountName: "New", IsActive: true, ConnectedAt: time.Now()}
	require.NoError(t, repo.UpsertAccount(ctx, second))
	assert.Equal(t, first.ID, second.ID)

	accounts, err := repo.ListAccounts(ctx, tenant.ID)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "New", accounts[0].AccountName)

	other := seedTenant(t, db, "other.lk")
	third := &domain.SocialAccount{TenantScoped: domain.TenantScoped{TenantID: other.ID}, Platform: "facebook", AccountName: "Other", IsActive: true, ConnectedAt: time.Now()}
	require.NoError(t, repo.UpsertAccount(ctx, third))
	assert.NotEqual(t, first.ID, third.ID)

	require.NoError(t, repo.DeactivateAccount(ctx, tenant.ID, "facebook"))
	assert.ErrorIs(t, repo.DeactivateAccount(ctx, tenant.ID, "facebook"), domain.ErrAccountNotFound)
}
