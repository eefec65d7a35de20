//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain/event"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// NamedWorker is a worker carrying its own name, e.g. one per fanout.
type NamedWorker interface {
	GetName() WorkerName
}

// GetWorkerName returns the worker's own name when it has one, its type
// name otherwise. Used for logging during supervision.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	if named, ok := w.(NamedWorker); ok && named.GetName() != "" {
		return string(named.GetName())
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives events pushed by the relay.
// Consume must not block: a connection sink that is full drops the event.
type EventSink interface {
	Consume(ctx context.Context, e event.Event) error
}
