//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chatchat/domain/chat"
	"chatchat/domain/event"
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

// GetWorkerName uses reflection to retrieve the type name of the worker.
// It is used for logging and supervision purposes.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives live-channel events for one connection.
// Consume must not block: it enqueues or fails.
type EventSink interface {
	Consume(ctx context.Context, e event.Envelope) error
}

// IRegistry tracks open sessions and their room memberships and delivers events to a scope.
type IRegistry interface {
	Register(sessionID string, identity chat.Identity, sink EventSink)
	Drop(sessionID string) []chat.RoomKey
	Join(sessionID string, room chat.RoomKey) error
	Leave(sessionID string, room chat.RoomKey)
	BroadcastToRoom(ctx context.Context, room chat.RoomKey, e event.Envelope) int
	BroadcastToAll(ctx context.Context, e event.Envelope) int
	SessionsOf(userID string) int
}
