// Package analytics builds the tenant dashboards and system reports from the
// other feature services.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/cloudboost/cloudboost-api/internal/cache"
	"github.com/cloudboost/cloudboost-api/pkg/automation"
	"github.com/cloudboost/cloudboost-api/pkg/crm"
	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/cloudboost/cloudboost-api/pkg/messaging"
	"github.com/cloudboost/cloudboost-api/pkg/repository"
	"github.com/cloudboost/cloudboost-api/pkg/social"
	"github.com/google/uuid"
)

// Tracked metrics
const (
	MetricContentGenerated = "content_generated"
	MetricMessagesSent     = "messages_sent"
	MetricPostsPublished   = "posts_published"
)

var trackedMetrics = []string{MetricContentGenerated, MetricMessagesSent, MetricPostsPublished}

// DateRanges maps the accepted date_range values to days.
var DateRanges = map[string]int{"7d": 7, "30d": 30, "90d": 90}

// CRMSource provides the CRM dashboard.
type CRMSource interface {
	Dashboard(ctx context.Context, tenantID uuid.UUID) (*crm.Dashboard, error)
}

// MessagingSource provides communication delivery figures.
type MessagingSource interface {
	Analytics(ctx context.Context, tenantID uuid.UUID, days int) (*messaging.Analytics, error)
}

// SocialSource provides social engagement figures.
type SocialSource interface {
	Analytics(ctx context.Context, tenantID uuid.UUID, days int) (*social.Analytics, error)
}

// AutomationSource provides workflow figures.
type AutomationSource interface {
	WorkflowPerformance(ctx context.Context, tenantID uuid.UUID) (*automation.Performance, error)
}

// Sources are the feature services dashboards are built from.
type Sources struct {
	CRM        CRMSource
	Messaging  MessagingSource
	Social     SocialSource
	Automation AutomationSource
}

// Config describes the running deployment.
type Config struct {
	Version      string
	Environment  string
	Integrations map[string]bool
	CacheTTL     time.Duration
}

// Service builds dashboards and reports.
type Service struct {
	repo       *repository.AnalyticsRepository
	content    *repository.ContentRepository
	activities *repository.ActivitiesRepository
	sources    Sources
	ping       func(ctx context.Context) error
	cache      cache.Cache
	cfg        Config
	logger     *slog.Logger
	startedAt  time.Time
	now        func() time.Time
}

// NewService creates an analytics service. ping checks the database; c may be nil.
func NewService(repo *repository.AnalyticsRepository, content *repository.ContentRepository, activities *repository.ActivitiesRepository,
	sources Sources, ping func(ctx context.Context) error, c cache.Cache, cfg Config, logger *slog.Logger) *Service {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}
	if cfg.Version == "" {
		cfg.Version = "1.0.0"
	}
	now := func() time.Time { return time.Now().UTC() }
	return &Service{
		repo:       repo,
		content:    content,
		activities: activities,
		sources:    sources,
		ping:       ping,
		cache:      c,
		cfg:        cfg,
		logger:     logger,
		startedAt:  now(),
		now:        now,
	}
}

// Health is the liveness report of the service.
type Health struct {
	Status       string          `json:"status"`
	Timestamp    time.Time       `json:"timestamp"`
	Database     bool            `json:"database"`
	Integrations map[string]bool `json:"integrations"`
	Version      string          `json:"version"`
}

// Health pings the database. A failed ping reports the service as degraded.
func (s *Service) Health(ctx context.Context) *Health {
	h := &Health{
		Status:       "healthy",
		Timestamp:    s.now(),
		Database:     true,
		Integrations: s.cfg.Integrations,
		Version:      s.cfg.Version,
	}
	if s.ping != nil {
		if err := s.ping(ctx); err != nil {
			s.logger.WarnContext(ctx, "database health check failed", "error", err)
			h.Database = false
			h.Status = "degraded"
		}
	}
	return h
}

// Status is the detailed system status of a tenant.
type Status struct {
	DatabaseStats map[string]int64 `json:"database_stats"`
	Integrations  map[string]bool  `json:"integrations"`
	StartedAt     time.Time        `json:"started_at"`
	Uptime        string           `json:"uptime"`
	Environment   string           `json:"environment"`
	Version       string           `json:"version"`
}

// Status counts the tenant's rows per table.
func (s *Service) Status(ctx context.Context, tenantID uuid.UUID) (*Status, error) {
	counts, err := s.repo.TableCounts(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to count rows: %w", err)
	}
	stats := make(map[string]int64, len(counts))
	for _, c := range counts {
		stats[c.Table] = c.Rows
	}
	return &Status{
		DatabaseStats: stats,
		Integrations:  s.cfg.Integrations,
		StartedAt:     s.startedAt,
		Uptime:        s.now().Sub(s.startedAt).Round(time.Second).String(),
		Environment:   s.cfg.Environment,
		Version:       s.cfg.Version,
	}, nil
}

// Stats are the headline figures of the main dashboard.
type Stats struct {
	TotalCustomers    int64   `json:"total_customers"`
	TotalLeads        int64   `json:"total_leads"`
	ActiveDeals       int     `json:"active_deals"`
	TotalRevenue      float64 `json:"total_revenue"`
	ContentPublished  int64   `json:"content_published"`
	AutomationsActive int64   `json:"automations_active"`
}

// KPIs are the derived rates of the main dashboard.
type KPIs struct {
	ConversionRate      float64 `json:"conversion_rate"`
	MessageDeliveryRate float64 `json:"message_delivery_rate"`
	ContentEngagement   float64 `json:"content_engagement"`
	WorkflowSuccessRate float64 `json:"workflow_success_rate"`
}

// Notification is a dashboard notice.
type Notification struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// QuickAction links a common task.
type QuickAction struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Icon string `json:"icon"`
}

var quickActions = []QuickAction{
	{Name: "Create Content", URL: "/content/create", Icon: "pen"},
	{Name: "New Campaign", URL: "/campaigns/create", Icon: "megaphone"},
	{Name: "Add Customer", URL: "/crm/customers/create", Icon: "user-plus"},
	{Name: "Schedule Post", URL: "/social/schedule", Icon: "calendar"},
}

// Dashboard is the tenant's main dashboard.
type Dashboard struct {
	Stats            Stats             `json:"stats"`
	RecentActivities []domain.Activity `json:"recent_activities"`
	KPIs             KPIs              `json:"kpis"`
	TrackedKPIs      []KPIView         `json:"tracked_kpis"`
	Notifications    []Notification    `json:"notifications"`
	QuickActions     []QuickAction     `json:"quick_actions"`
	GeneratedAt      time.Time         `json:"generated_at"`
}

// Dashboard returns the main dashboard, cached briefly.
func (s *Service) Dashboard(ctx context.Context, tenantID uuid.UUID) (*Dashboard, error) {
	d, err := cache.Remember(ctx, s.cache, cache.Key("dashboard", tenantID.String()), s.cfg.CacheTTL, func() (*Dashboard, error) {
		return s.buildDashboard(ctx, tenantID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build dashboard: %w", err)
	}
	return d, nil
}

func (s *Service) buildDashboard(ctx context.Context, tenantID uuid.UUID) (*Dashboard, error) {
	now := s.now()
	crmDash, err := s.sources.CRM.Dashboard(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	comms, err := s.sources.Messaging.Analytics(ctx, tenantID, 30)
	if err != nil {
		return nil, err
	}
	socialStats, err := s.sources.Social.Analytics(ctx, tenantID, 30)
	if err != nil {
		return nil, err
	}
	perf, err := s.sources.Automation.WorkflowPerformance(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	published, err := s.content.CountByStatus(ctx, tenantID, domain.ContentPublished)
	if err != nil {
		return nil, err
	}
	overdue, err := s.activities.CountOverdue(ctx, tenantID, now)
	if err != nil {
		return nil, err
	}
	tracked, err := s.ListKPIs(ctx, tenantID, "")
	if err != nil {
		return nil, err
	}

	ov := crmDash.Overview
	d := &Dashboard{
		Stats: Stats{
			TotalCustomers:    ov.TotalCustomers,
			TotalLeads:        ov.TotalLeads,
			ActiveDeals:       ov.OpenDeals,
			TotalRevenue:      ov.WonValue,
			ContentPublished:  published,
			AutomationsActive: perf.ActiveWorkflows,
		},
		RecentActivities: crmDash.RecentActivities,
		KPIs: KPIs{
			ConversionRate:      ov.ConversionRate,
			MessageDeliveryRate: comms.Overview.DeliveryRate,
			ContentEngagement:   socialStats.Overview.EngagementRate,
			WorkflowSuccessRate: perf.OverallSuccessRate,
		},
		TrackedKPIs:   tracked,
		Notifications: []Notification{},
		QuickActions:  quickActions,
		GeneratedAt:   now,
	}
	if len(d.RecentActivities) > 5 {
		d.RecentActivities = d.RecentActivities[:5]
	}
	if overdue > 0 {
		d.Notifications = append(d.Notifications, Notification{Level: "warning", Message: fmt.Sprintf("%d overdue activities", overdue)})
	}
	if n := comms.Overview.FailedMessages; n > 0 {
		d.Notifications = append(d.Notifications, Notification{Level: "error", Message: fmt.Sprintf("%d messages failed in the last 30 days", n)})
	}
	if n := socialStats.Overview.ScheduledPosts; n > 0 {
		d.Notifications = append(d.Notifications, Notification{Level: "info", Message: fmt.Sprintf("%d social posts scheduled", n)})
	}
	return d, nil
}

// TrendPoint is one day of a tracked metric.
type TrendPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// Report is the analytics dashboard of a date range.
type Report struct {
	DateRange     string                  `json:"date_range"`
	From          time.Time               `json:"from"`
	To            time.Time               `json:"to"`
	CRM           crm.Overview            `json:"crm"`
	Communication *messaging.Analytics    `json:"communication"`
	Social        *social.Analytics       `json:"social"`
	Automation    *automation.Performance `json:"automation"`
	Trends        map[string][]TrendPoint `json:"trends"`
}

// ParseDateRange converts 7d, 30d or 90d to days. Empty means 30d.
func ParseDateRange(dateRange string) (string, int, error) {
	dateRange = strings.ToLower(strings.TrimSpace(dateRange))
	if dateRange == "" {
		dateRange = "30d"
	}
	days, ok := DateRanges[dateRange]
	if !ok {
		return "", 0, domain.NewValidationError("date_range", "date_range must be one of 7d, 30d, 90d")
	}
	return dateRange, days, nil
}

// AnalyticsDashboard reports every feature area over a date range.
func (s *Service) AnalyticsDashboard(ctx context.Context, tenantID uuid.UUID, dateRange string) (*Report, error) {
	dateRange, days, err := ParseDateRange(dateRange)
	if err != nil {
		return nil, err
	}
	now := s.now()
	since := now.AddDate(0, 0, -days)
	r := &Report{DateRange: dateRange, From: since, To: now, Trends: make(map[string][]TrendPoint, len(trackedMetrics))}

	crmDash, err := s.sources.CRM.Dashboard(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	r.CRM = crmDash.Overview
	if r.Communication, err = s.sources.Messaging.Analytics(ctx, tenantID, days); err != nil {
		return nil, err
	}
	if r.Social, err = s.sources.Social.Analytics(ctx, tenantID, days); err != nil {
		return nil, err
	}
	if r.Automation, err = s.sources.Automation.WorkflowPerformance(ctx, tenantID); err != nil {
		return nil, err
	}

	for _, metric := range trackedMetrics {
		series, err := s.repo.DailySeries(ctx, tenantID, metric, since)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", metric, err)
		}
		points := make([]TrendPoint, 0, days+1)
		for day := since.Truncate(24 * time.Hour); !day.After(now); day = day.AddDate(0, 0, 1) {
			key := day.Format("2006-01-02")
			points = append(points, TrendPoint{Date: key, Value: series[key]})
		}
		r.Trends[metric] = points
	}
	return r, nil
}

// Track records one sample of a metric.
func (s *Service) Track(ctx context.Context, tenantID uuid.UUID, metric string, value float64, dims domain.JSONMap) error {
	e := &domain.AnalyticsEvent{
		TenantScoped: domain.TenantScoped{TenantID: tenantID},
		MetricName:   metric,
		MetricValue:  value,
		Dimensions:   dims,
		RecordedAt:   s.now(),
	}
	if err := s.repo.RecordEvent(ctx, e); err != nil {
		return fmt.Errorf("failed to record %s: %w", metric, err)
	}
	return nil
}

// Report types
var ReportTypes = []string{"overview", "crm", "communication", "social", "automation"}

// ReportInput requests a stored report.
type ReportInput struct {
	Name       string `json:"name"`
	ReportType string `json:"report_type"`
	DateRange  string `json:"date_range"`
}

// GenerateReport snapshots a section of the analytics dashboard and stores it.
func (s *Service) GenerateReport(ctx context.Context, tenantID uuid.UUID, in ReportInput) (*domain.Report, error) {
	reportType := strings.ToLower(strings.TrimSpace(in.ReportType))
	if reportType == "" {
		reportType = "overview"
	}
	if i := sort.SearchStrings(sortedReportTypes, reportType); i == len(sortedReportTypes) || sortedReportTypes[i] != reportType {
		return nil, domain.NewValidationError("report_type", "invalid report type %q", in.ReportType)
	}
	full, err := s.AnalyticsDashboard(ctx, tenantID, in.DateRange)
	if err != nil {
		return nil, err
	}

	var section any = full
	switch reportType {
	case "crm":
		section = full.CRM
	case "communication":
		section = full.Communication
	case "social":
		section = full.Social
	case "automation":
		section = full.Automation
	}
	data, err := toMap(section)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = fmt.Sprintf("%s report %s", reportType, s.now().Format("2006-01-02"))
	}
	rep := &domain.Report{
		TenantScoped: domain.TenantScoped{TenantID: tenantID},
		Name:         name,
		ReportType:   reportType,
		Parameters:   domain.JSONMap{"date_range": full.DateRange},
		Data:         data,
	}
	if err := s.repo.SaveReport(ctx, rep); err != nil {
		return nil, fmt.Errorf("failed to save report: %w", err)
	}
	s.logger.InfoContext(ctx, "report generated", "tenant_id", tenantID, "report_id", rep.ID, "type", reportType)
	return rep, nil
}

var sortedReportTypes = func() []string {
	out := append([]string(nil), ReportTypes...)
	sort.Strings(out)
	return out
}()

func toMap(v any) (domain.JSONMap, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	m := domain.JSONMap{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return m, nil
}

// ListReports returns the latest twenty reports, optionally of one type.
func (s *Service) ListReports(ctx context.Context, tenantID uuid.UUID, reportType string) ([]domain.Report, error) {
	return s.repo.ListReports(ctx, tenantID, reportType, 20)
}

// KPIInput sets a tracked KPI.
type KPIInput struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Target float64 `json:"target"`
	Period string  `json:"period"`
}

// KPIView is a KPI with its progress towards the target.
type KPIView struct {
	domain.KPI
	Progress float64 `json:"progress"`
}

// SaveKPI creates or replaces the KPI with the same name and period.
func (s *Service) SaveKPI(ctx context.Context, tenantID uuid.UUID, in KPIInput) (*KPIView, error) {
	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		return nil, domain.Required("name")
	case in.Target < 0:
		return nil, domain.NewValidationError("target", "target must not be negative")
	}
	period := strings.ToLower(strings.TrimSpace(in.Period))
	if period == "" {
		period = "monthly"
	}
	k := domain.KPI{
		TenantScoped: domain.TenantScoped{TenantID: tenantID},
		Name:         name,
		Value:        in.Value,
		Target:       in.Target,
		Period:       period,
	}
	if err := s.repo.SaveKPI(ctx, &k); err != nil {
		return nil, fmt.Errorf("failed to save kpi: %w", err)
	}
	return &KPIView{KPI: k, Progress: round2(k.Progress())}, nil
}

// ListKPIs returns the tracked KPIs, optionally of one period.
func (s *Service) ListKPIs(ctx context.Context, tenantID uuid.UUID, period string) ([]KPIView, error) {
	items, err := s.repo.ListKPIs(ctx, tenantID, period)
	if err != nil {
		return nil, fmt.Errorf("failed to list kpis: %w", err)
	}
	out := make([]KPIView, 0, len(items))
	for _, k := range items {
		out = append(out, KPIView{KPI: k, Progress: round2(k.Progress())})
	}
	return out, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
