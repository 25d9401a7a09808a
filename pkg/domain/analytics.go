package domain

import "time"

// AnalyticsEvent is a single recorded metric sample.
type AnalyticsEvent struct {
	TenantScoped
	MetricName  string    `gorm:"size:100;not null;index" json:"metric_name"`
	MetricValue float64   `json:"metric_value"`
	Dimensions  JSONMap   `gorm:"serializer:json;type:text" json:"dimensions"`
	RecordedAt  time.Time `gorm:"index" json:"recorded_at"`
}

// Report is a generated, stored report.
type Report struct {
	TenantScoped
	Name       string  `gorm:"size:200;not null" json:"name"`
	ReportType string  `gorm:"size:50;not null" json:"report_type"`
	Parameters JSONMap `gorm:"serializer:json;type:text" json:"parameters"`
	Data       JSONMap `gorm:"serializer:json;type:text" json:"data"`
}

// KPI is a tracked key figure with its target.
type KPI struct {
	TenantScoped
	Name   string  `gorm:"size:100;not null" json:"name"`
	Value  float64 `json:"value"`
	Target float64 `json:"target"`
	Period string  `gorm:"size:20" json:"period"`
}

// Progress is the value as a percentage of its target.
func (k *KPI) Progress() float64 {
	if k.Target == 0 {
		return 0
	}
	return k.Value / k.Target * 100
}
