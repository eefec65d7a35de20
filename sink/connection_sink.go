package sink

import (
	"chat-relay/contract"
	"chat-relay/domain/event"
	"context"
	"log/slog"
	"sync/atomic"
)

var _ contract.EventSink = (*ConnectionSink)(nil)

// ConnectionSink buffers the events of one connection until the transport
// writes them out. Events to the same connection keep their order.
type ConnectionSink struct {
	Events  chan event.Event
	log     *slog.Logger
	dropped atomic.Uint64
}

func NewConnectionSink(log *slog.Logger, bufferSize int) *ConnectionSink {
	return &ConnectionSink{Events: make(chan event.Event, bufferSize), log: log}
}

// Consume is called by the router, usually on another connection's goroutine,
// so the caller's context is not consulted.
// A full buffer means a slow reader: the event is dropped, never waited on.
func (s *ConnectionSink) Consume(_ context.Context, e event.Event) error {
	select {
	case s.Events <- e:
		return nil
	default:
		s.dropped.Add(1)
		s.log.Warn("Connection buffer full, event dropped", "event", e.Name())
		return nil
	}
}

func (s *ConnectionSink) Dropped() uint64 {
	return s.dropped.Load()
}
