package workers

import (
	"chat-relay/observability"
	"context"
	"log/slog"
	"reflect"
	"time"
)

type NamedChannel struct {
	Name    string
	Channel any
}

// ChannelCapacityWorker periodically records length and capacity of the
// internal channels. Reading len and cap never blocks the channel owners.
// A channel filled past the warning ratio is logged.
type ChannelCapacityWorker struct {
	log            *slog.Logger
	channels       []NamedChannel
	monitoring     *observability.MonitoringManager
	metricInterval time.Duration
	warnRatio      float64
}

func NewChannelCapacityWorker(log *slog.Logger, channels []NamedChannel,
	monitoring *observability.MonitoringManager, metricInterval time.Duration) *ChannelCapacityWorker {
	return &ChannelCapacityWorker{
		log:            log,
		channels:       channels,
		monitoring:     monitoring,
		metricInterval: metricInterval,
		warnRatio:      0.8,
	}
}

func (w *ChannelCapacityWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping channel sampling")
			return nil
		case <-ticker.C:
			w.Sample()
		}
	}
}

func (w *ChannelCapacityWorker) Sample() {
	for _, nc := range w.channels {
		v := reflect.ValueOf(nc.Channel)
		if v.Kind() != reflect.Chan {
			w.log.Error("Provided object is not a channel", "name", nc.Name)
			continue
		}
		fill := observability.ChannelFill{Name: nc.Name, Capacity: v.Cap(), Length: v.Len()}
		if fill.Capacity > 0 && float64(fill.Length) >= w.warnRatio*float64(fill.Capacity) {
			w.log.Warn("Channel almost full", "name", fill.Name, "length", fill.Length, "capacity", fill.Capacity)
		}
		w.monitoring.RecordChannel(fill)
	}
}
