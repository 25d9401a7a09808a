// Package common holds helpers shared by the feature handlers.
package common

import (
	"context"
	"log/slog"

	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/google/uuid"
)

// Tracker records tenant usage metrics.
type Tracker interface {
	Track(ctx context.Context, tenantID uuid.UUID, metric string, value float64, dims domain.JSONMap) error
}

// Track records a usage metric for the tenant. A nil tracker is a no-op;
// failures are logged, never returned.
func Track(ctx context.Context, logger *slog.Logger, t Tracker, tenantID uuid.UUID, metric string, value float64, dims domain.JSONMap) {
	if t == nil || value <= 0 {
		return
	}
	if err := t.Track(ctx, tenantID, metric, value, dims); err != nil {
		logger.WarnContext(ctx, "failed to track usage", "metric", metric, "tenant_id", tenantID, "error", err)
	}
}
