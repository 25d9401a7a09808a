package repository

import (
	"context"
	"time"

	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TableCount is the row count of one table.
type TableCount struct {
	Table string `json:"table"`
	Rows  int64  `json:"rows"`
}

// AnalyticsRepository handles metric samples, reports and KPIs.
type AnalyticsRepository struct {
	db *gorm.DB
}

// NewAnalyticsRepository creates a new analytics repository.
func NewAnalyticsRepository(db *gorm.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// RecordEvent stores a metric sample.
func (r *AnalyticsRepository) RecordEvent(ctx context.Context, e *domain.AnalyticsEvent) error {
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(e).Error
}

// SumMetric sums the samples of metric recorded by a tenant since.
func (r *AnalyticsRepository) SumMetric(ctx context.Context, tenantID uuid.UUID, metric string, since time.Time) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).Model(&domain.AnalyticsEvent{}).Scopes(ForTenant(tenantID)).
		Where("metric_name = ? AND recorded_at >= ?", metric, since.UTC()).
		Select("COALESCE(SUM(metric_value), 0)").Scan(&total).Error
	return total, err
}

// DailySeries returns the per-day sums of metric for a tenant since, oldest first.
func (r *AnalyticsRepository) DailySeries(ctx context.Context, tenantID uuid.UUID, metric string, since time.Time) (map[string]float64, error) {
	var events []domain.AnalyticsEvent
	err := r.db.WithContext(ctx).Scopes(ForTenant(tenantID)).
		Where("metric_name = ? AND recorded_at >= ?", metric, since.UTC()).
		Order("recorded_at ASC").Find(&events).Error
	if err != nil {
		return nil, err
	}
	series := make(map[string]float64)
	for _, e := range events {
		series[e.RecordedAt.UTC().Format("2006-01-02")] += e.MetricValue
	}
	return series, nil
}

// SaveReport stores a generated report.
func (r *AnalyticsRepository) SaveReport(ctx context.Context, rep *domain.Report) error {
	return r.db.WithContext(ctx).Create(rep).Error
}

// ListReports returns the latest limit reports of a tenant, optionally of one type.
func (r *AnalyticsRepository) ListReports(ctx context.Context, tenantID uuid.UUID, reportType string, limit int) ([]domain.Report, error) {
	q := r.db.WithContext(ctx).Scopes(ForTenant(tenantID))
	if reportType != "" {
		q = q.Where("report_type = ?", reportType)
	}
	var items []domain.Report
	err := q.Order("created_at DESC").Limit(limit).Find(&items).Error
	return items, err
}

// ListKPIs returns the KPIs of a tenant, optionally for one period.
func (r *AnalyticsRepository) ListKPIs(ctx context.Context, tenantID uuid.UUID, period string) ([]domain.KPI, error) {
	q := r.db.WithContext(ctx).Scopes(ForTenant(tenantID))
	if period != "" {
		q = q.Where("period = ?", period)
	}
	var items []domain.KPI
	err := q.Order("name ASC").Find(&items).Error
	return items, err
}

// SaveKPI creates or replaces the KPI of a tenant with the same name and period.
func (r *AnalyticsRepository) SaveKPI(ctx context.Context, k *domain.KPI) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.KPI
		err := tx.Where("tenant_id = ? AND name = ? AND period = ?", k.TenantID, k.Name, k.Period).
			Limit(1).Find(&existing).Error
		if err != nil {
			return err
		}
		if existing.ID == uuid.Nil {
			return tx.Create(k).Error
		}
		k.ID = existing.ID
		k.CreatedAt = existing.CreatedAt
		return tx.Model(k).Select("value", "target", "updated_at").Updates(k).Error
	})
}

// TableCounts counts the rows of a tenant in each business table.
func (r *AnalyticsRepository) TableCounts(ctx context.Context, tenantID uuid.UUID) ([]TableCount, error) {
	models := []struct {
		table string
		model any
	}{
		{"users", &domain.User{}},
		{"contents", &domain.Content{}},
		{"customers", &domain.Customer{}},
		{"leads", &domain.Lead{}},
		{"deals", &domain.Deal{}},
		{"activities", &domain.Activity{}},
		{"messages", &domain.Message{}},
		{"campaigns", &domain.Campaign{}},
		{"call_logs", &domain.CallLog{}},
		{"social_accounts", &domain.SocialAccount{}},
		{"social_posts", &domain.SocialPost{}},
		{"workflows", &domain.Workflow{}},
		{"workflow_executions", &domain.WorkflowExecution{}},
	}
	counts := make([]TableCount, 0, len(models))
	for _, m := range models {
		var n int64
		if err := r.db.WithContext(ctx).Model(m.model).Scopes(ForTenant(tenantID)).Count(&n).Error; err != nil {
			return nil, err
		}
		counts = append(counts, TableCount{Table: m.table, Rows: n})
	}
	return counts, nil
}
