package analytics

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cloudboost/cloudboost-api/pkg/automation"
	"github.com/cloudboost/cloudboost-api/pkg/crm"
	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/cloudboost/cloudboost-api/pkg/messaging"
	"github.com/cloudboost/cloudboost-api/pkg/repository"
	"github.com/cloudboost/cloudboost-api/pkg/repository/repotest"
	"github.com/cloudboost/cloudboost-api/pkg/social"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeSources struct {
	crmCalls   int
	lastDays   int
	failSocial bool
}

func (f *fakeSources) Dashboard(context.Context, uuid.UUID) (*crm.Dashboard, error) {
	f.crmCalls++
	return &crm.Dashboard{
		Overview: crm.Overview{TotalCustomers: 12, TotalLeads: 5, ConversionRate: 25, OpenDeals: 3, WonValue: 4200},
		RecentActivities: []domain.Activity{
			{Subject: "a"}, {Subject: "b"}, {Subject: "c"}, {Subject: "d"}, {Subject: "e"}, {Subject: "f"},
		},
	}, nil
}

type fakeMessaging struct{ f *fakeSources }

func (m fakeMessaging) Analytics(_ context.Context, _ uuid.UUID, days int) (*messaging.Analytics, error) {
	m.f.lastDays = days
	return &messaging.Analytics{Overview: messaging.AnalyticsOverview{TotalMessages: 10, FailedMessages: 2, DeliveryRate: 80}}, nil
}

type fakeSocial struct{ f *fakeSources }

func (s fakeSocial) Analytics(context.Context, uuid.UUID, int) (*social.Analytics, error) {
	if s.f.failSocial {
		return nil, errors.New("boom")
	}
	return &social.Analytics{Overview: social.Overview{EngagementRate: 4.5}}, nil
}

type fakeAutomation struct{}

func (fakeAutomation) WorkflowPerformance(context.Context, uuid.UUID) (*automation.Performance, error) {
	return &automation.Performance{ActiveWorkflows: 2, OverallSuccessRate: 90}, nil
}

type fixture struct {
	svc     *Service
	sources *fakeSources
	tenant  uuid.UUID
}

func newFixture(t *testing.T, ping func(context.Context) error) *fixture {
	t.Helper()
	db := repotest.NewDB(t)
	f := &fakeSources{}
	svc := NewService(
		repository.NewAnalyticsRepository(db),
		repository.NewContentRepository(db),
		repository.NewActivitiesRepository(db),
		Sources{CRM: f, Messaging: fakeMessaging{f}, Social: fakeSocial{f}, Automation: fakeAutomation{}},
		ping, nil,
		Config{Environment: "test", Integrations: map[string]bool{"openai": false}},
		discardLogger,
	)
	return &fixture{svc: svc, sources: f, tenant: uuid.New()}
}

func TestHealth(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	ping := func(ctx context.Context) error { return repository.Ping(ctx, db) }
	f := newFixture(t, ping)

	mock.ExpectPing()
	h := f.svc.Health(context.Background())
	assert.Equal(t, "healthy", h.Status)
	assert.True(t, h.Database)
	assert.Equal(t, "1.0.0", h.Version)

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	h = f.svc.Health(context.Background())
	assert.Equal(t, "degraded", h.Status)
	assert.False(t, h.Database)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatus(t *testing.T) {
	f := newFixture(t, nil)
	st, err := f.svc.Status(context.Background(), f.tenant)
	require.NoError(t, err)
	assert.Equal(t, "test", st.Environment)
	assert.Contains(t, st.DatabaseStats, "customers")
	assert.Equal(t, int64(0), st.DatabaseStats["workflows"])
}

func TestDashboard(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.SaveKPI(ctx, f.tenant, KPIInput{Name: "New leads", Value: 30, Target: 40})
	require.NoError(t, err)

	d, err := f.svc.Dashboard(ctx, f.tenant)
	require.NoError(t, err)
	assert.Equal(t, int64(12), d.Stats.TotalCustomers)
	assert.Equal(t, 3, d.Stats.ActiveDeals)
	assert.Equal(t, 4200.0, d.Stats.TotalRevenue)
	assert.Equal(t, int64(2), d.Stats.AutomationsActive)
	assert.Len(t, d.RecentActivities, 5)
	assert.Equal(t, KPIs{ConversionRate: 25, MessageDeliveryRate: 80, ContentEngagement: 4.5, WorkflowSuccessRate: 90}, d.KPIs)
	require.Len(t, d.TrackedKPIs, 1)
	assert.Equal(t, 75.0, d.TrackedKPIs[0].Progress)
	require.Len(t, d.Notifications, 1)
	assert.Contains(t, d.Notifications[0].Message, "2 messages failed")
	assert.Len(t, d.QuickActions, 4)

	f.sources.failSocial = true
	_, err = f.svc.Dashboard(ctx, f.tenant)
	assert.Error(t, err)
}

func TestAnalyticsDashboard(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	now := time.Date(2030, 5, 10, 15, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }

	require.NoError(t, f.svc.Track(ctx, f.tenant, MetricContentGenerated, 1, domain.JSONMap{"source": "template"}))
	require.NoError(t, f.svc.Track(ctx, f.tenant, MetricContentGenerated, 2, nil))

	r, err := f.svc.AnalyticsDashboard(ctx, f.tenant, "7d")
	require.NoError(t, err)
	assert.Equal(t, "7d", r.DateRange)
	assert.Equal(t, 7, f.sources.lastDays)
	points := r.Trends[MetricContentGenerated]
	require.Len(t, points, 8)
	last := points[len(points)-1]
	assert.Equal(t, "2030-05-10", last.Date)
	assert.Equal(t, 3.0, last.Value)
	assert.Len(t, r.Trends[MetricMessagesSent], 8)

	r, err = f.svc.AnalyticsDashboard(ctx, f.tenant, "")
	require.NoError(t, err)
	assert.Equal(t, "30d", r.DateRange)

	_, err = f.svc.AnalyticsDashboard(ctx, f.tenant, "1y")
	assert.True(t, domain.IsValidation(err))
}

func TestReportsAndKPIs(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	rep, err := f.svc.GenerateReport(ctx, f.tenant, ReportInput{ReportType: "crm", DateRange: "90d"})
	require.NoError(t, err)
	assert.Equal(t, "crm", rep.ReportType)
	assert.Equal(t, float64(12), rep.Data["total_customers"])
	assert.Equal(t, "90d", rep.Parameters["date_range"])

	_, err = f.svc.GenerateReport(ctx, f.tenant, ReportInput{Name: "Board pack"})
	require.NoError(t, err)
	_, err = f.svc.GenerateReport(ctx, f.tenant, ReportInput{ReportType: "finance"})
	assert.True(t, domain.IsValidation(err))

	reports, err := f.svc.ListReports(ctx, f.tenant, "")
	require.NoError(t, err)
	assert.Len(t, reports, 2)

	_, err = f.svc.SaveKPI(ctx, f.tenant, KPIInput{Name: "Revenue", Value: 10, Target: 100, Period: "Quarterly"})
	require.NoError(t, err)
	updated, err := f.svc.SaveKPI(ctx, f.tenant, KPIInput{Name: "Revenue", Value: 50, Target: 100, Period: "quarterly"})
	require.NoError(t, err)
	assert.Equal(t, 50.0, updated.Progress)

	kpis, err := f.svc.ListKPIs(ctx, f.tenant, "quarterly")
	require.NoError(t, err)
	require.Len(t, kpis, 1)
	assert.Equal(t, 50.0, kpis[0].Value)

	_, err = f.svc.SaveKPI(ctx, f.tenant, KPIInput{})
	assert.True(t, domain.IsValidation(err))
	_, err = f.svc.SaveKPI(ctx, f.tenant, KPIInput{Name: "x", Target: -1})
	assert.True(t, domain.IsValidation(err))
}
