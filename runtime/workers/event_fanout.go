package workers

import (
	"chat-relay/contract"
	"chat-relay/domain/event"
	"context"
	"log/slog"
	"time"
)

const DefaultSinkTimeout = 2 * time.Second

// EventFanout drains the journal channel and hands every event to the
// permanent sinks, one after the other so each sink sees the publication
// order. It is best effort: a sink failing or timing out loses the event.
type EventFanout struct {
	log         *slog.Logger
	name        contract.WorkerName
	events      <-chan event.Event
	sinks       []contract.EventSink
	sinkTimeout time.Duration
}

func NewEventFanout(log *slog.Logger, events <-chan event.Event, sinkTimeout time.Duration) *EventFanout {
	if sinkTimeout <= 0 {
		sinkTimeout = DefaultSinkTimeout
	}
	return &EventFanout{log: log, events: events, sinkTimeout: sinkTimeout}
}

func (w *EventFanout) Add(sinks ...contract.EventSink) *EventFanout {
	w.sinks = append(w.sinks, sinks...)
	return w
}

func (w *EventFanout) WithName(name string) *EventFanout {
	w.name = contract.WorkerName(name)
	return w
}

func (w *EventFanout) GetName() contract.WorkerName { return w.name }

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case evt, ok := <-w.events:
			if !ok {
				w.log.Debug("Journal channel closed, stopping fanout")
				return nil
			}
			w.Fanout(ctx, evt)
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fanout")
			return nil
		}
	}
}

// Fanout gives evt to every sink, each bounded by the sink timeout.
func (w *EventFanout) Fanout(ctx context.Context, evt event.Event) {
	for _, sink := range w.sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
		if err := sink.Consume(sinkCtx, evt); err != nil {
			w.log.Warn("Sink failed", "event", evt.Name(), "error", err)
		}
		cancel()
	}
}
