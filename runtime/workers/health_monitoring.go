package workers

import (
	"chat-relay/observability"
	"context"
	"log/slog"
	"time"
)

// HealthMonitoringWorker samples CPU and memory of the relay process.
type HealthMonitoringWorker struct {
	log            *slog.Logger
	monitoring     *observability.MonitoringManager
	metricInterval time.Duration
}

func NewHealthMonitoringWorker(log *slog.Logger, monitoring *observability.MonitoringManager,
	metricInterval time.Duration) *HealthMonitoringWorker {
	return &HealthMonitoringWorker{log: log, monitoring: monitoring, metricInterval: metricInterval}
}

func (w *HealthMonitoringWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	if err := w.monitoring.SampleProcess(); err != nil {
		w.log.Error("Error while sampling process", "error", err)
	}
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping health monitoring")
			return nil
		case <-ticker.C:
			if err := w.monitoring.SampleProcess(); err != nil {
				w.log.Error("Error while sampling process", "error", err)
			}
		}
	}
}
