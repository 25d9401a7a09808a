// Package worker runs the periodic background jobs: queued message delivery,
// scheduled social and content publishing, and session cleanup.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/cloudboost/cloudboost-api/internal/config"
	"github.com/cloudboost/cloudboost-api/internal/metrics"
)

// Job handles up to limit due items and reports how many it handled.
type Job struct {
	Name string
	Run  func(ctx context.Context, now time.Time, limit int) (int, error)
}

// Dispatcher runs its jobs on every tick.
type Dispatcher struct {
	jobs      []Job
	interval  time.Duration
	batchSize int
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewDispatcher creates a dispatcher for jobs.
func NewDispatcher(cfg config.WorkerConfig, m *metrics.Metrics, logger *slog.Logger, jobs ...Job) *Dispatcher {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Dispatcher{
		jobs:      jobs,
		interval:  cfg.Interval,
		batchSize: cfg.BatchSize,
		metrics:   m,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Start runs the jobs every interval until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.logger.Info("dispatcher started", "interval", d.interval, "batch_size", d.batchSize, "jobs", len(d.jobs))
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopped")
			return
		case <-ticker.C:
			d.RunOnce(ctx)
		}
	}
}

// RunOnce runs every job a single time. A failing job does not stop the others.
func (d *Dispatcher) RunOnce(ctx context.Context) map[string]int {
	handled := make(map[string]int, len(d.jobs))
	now := d.now()
	for _, job := range d.jobs {
		if ctx.Err() != nil {
			break
		}
		n, err := job.Run(ctx, now, d.batchSize)
		handled[job.Name] = n
		switch {
		case err != nil:
			d.metrics.DispatcherHandled(job.Name, "error")
			d.logger.ErrorContext(ctx, "dispatcher job failed", "job", job.Name, "error", err)
		case n > 0:
			d.metrics.DispatcherHandled(job.Name, "processed")
			d.logger.InfoContext(ctx, "dispatcher job processed items", "job", job.Name, "count", n)
		default:
			d.metrics.DispatcherHandled(job.Name, "idle")
		}
	}
	return handled
}
