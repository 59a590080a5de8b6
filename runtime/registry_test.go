package runtime

import (
	"chatchat/domain/chat"
	"chatchat/domain/event"
	"chatchat/errors"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

// Sink records every event it consumes.
type Sink struct {
	mu     sync.Mutex
	events []event.Envelope
	err    error
}

func (s *Sink) Consume(_ context.Context, e event.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, e)
	return nil
}

func (s *Sink) Events() []event.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.Envelope(nil), s.events...)
}

func (s *Sink) Names() []event.Name {
	var names []event.Name
	for _, e := range s.Events() {
		names = append(names, e.Event)
	}
	return names
}

func newRegistry() *Registry {
	return NewRegistry(logs.GetLoggerFromLevel(slog.LevelDebug))
}

func TestRegistry_Join_One_Room_One_Participant(t *testing.T) {
	req := require.New(t)
	registry := newRegistry()
	sessionID := uuid.NewString()
	room := chat.NewRoomKey("general")
	sink := &Sink{}

	// Given no user is connected
	// And no room exists
	sessions, rooms := registry.Stats()
	req.Zero(sessions)
	req.Zero(rooms)

	// When a participant registers then joins a room
	registry.Register(sessionID, chat.Identity{UserID: "alice"}, sink)
	req.NoError(registry.Join(sessionID, room))

	// Then
	sessions, rooms = registry.Stats()
	req.Equal(1, sessions)
	req.Equal(1, rooms)
	req.Equal([]string{sessionID}, registry.Members(room))
	req.Empty(sink.Events())
}

func TestRegistry_Join_Notifies_Other_Members_Once(t *testing.T) {
	req := require.New(t)
	registry := newRegistry()
	room := chat.NewRoomKey("general")
	alice, bob := &Sink{}, &Sink{}
	registry.Register("s-alice", chat.Identity{UserID: "alice", DisplayName: "Alice"}, alice)
	registry.Register("s-bob", chat.Identity{UserID: "bob", DisplayName: "Bob"}, bob)

	// Given alice is in the room
	req.NoError(registry.Join("s-alice", room))

	// When bob joins twice
	req.NoError(registry.Join("s-bob", room))
	req.NoError(registry.Join("s-bob", room))

	// Then alice is notified once and bob never about himself
	req.Equal([]event.Name{event.MemberJoined}, alice.Names())
	req.Equal(event.MemberJoinedPayload{Room: "general", UserID: "bob", DisplayName: "Bob"}, alice.Events()[0].Data)
	req.Empty(bob.Events())
	req.Len(registry.Members(room), 2)
}

func TestRegistry_Join_Unknown_Session(t *testing.T) {
	registry := newRegistry()
	require.ErrorIs(t, registry.Join("ghost", "general"), errors.ErrUnknownSession)
}

func TestRegistry_Leave_Twice_Equals_Leave_Once(t *testing.T) {
	req := require.New(t)
	registry := newRegistry()
	room := chat.NewRoomKey("general")
	sink1, sink2 := &Sink{}, &Sink{}
	registry.Register("s1", chat.Identity{UserID: "u1"}, sink1)
	registry.Register("s2", chat.Identity{UserID: "u2"}, sink2)
	req.NoError(registry.Join("s1", room))
	req.NoError(registry.Join("s2", room))

	// When a participant leaves twice
	registry.Leave("s1", room)
	registry.Leave("s1", room)

	// Then only one participant left and nobody was notified of the leave
	req.Equal([]string{"s2"}, registry.Members(room))
	req.Equal([]event.Name{event.MemberJoined}, sink1.Names())
	req.Empty(sink2.Events())

	// When the last participant leaves, the room doesn't exist anymore
	registry.Leave("s2", room)
	_, rooms := registry.Stats()
	req.Zero(rooms)
	req.Nil(registry.Members(room))
}

func TestRegistry_Drop_Removes_From_Every_Room(t *testing.T) {
	req := require.New(t)
	registry := newRegistry()
	sink := &Sink{}
	registry.Register("s1", chat.Identity{UserID: "u1"}, sink)
	req.NoError(registry.Join("s1", "a"))
	req.NoError(registry.Join("s1", "b"))

	left := registry.Drop("s1")

	req.ElementsMatch([]chat.RoomKey{"a", "b"}, left)
	sessions, rooms := registry.Stats()
	req.Zero(sessions)
	req.Zero(rooms)
	req.Nil(registry.Drop("s1"))
	req.Zero(registry.BroadcastToAll(context.Background(), event.New(event.MessageCreated, nil)))
	req.ErrorIs(registry.Join("s1", "a"), errors.ErrUnknownSession)
}

func TestRegistry_Broadcast_Scopes(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	registry := newRegistry()
	inRoom, outside := &Sink{}, &Sink{}
	registry.Register("s1", chat.Identity{UserID: "u1"}, inRoom)
	registry.Register("s2", chat.Identity{UserID: "u2"}, outside)
	req.NoError(registry.Join("s1", "general"))

	// When broadcasting to the room
	delivered := registry.BroadcastToRoom(ctx, "general", event.New(event.MessageCreated, "room"))
	req.Equal(1, delivered)

	// When broadcasting to everyone
	delivered = registry.BroadcastToAll(ctx, event.New(event.MessageEdited, "all"))
	req.Equal(2, delivered)

	// Then
	req.Equal([]event.Name{event.MessageCreated, event.MessageEdited}, inRoom.Names())
	req.Equal([]event.Name{event.MessageEdited}, outside.Names())
	req.Zero(registry.BroadcastToRoom(ctx, "nobody-here", event.New(event.MessageCreated, nil)))
}

func TestRegistry_Failing_Sink_Is_Isolated(t *testing.T) {
	req := require.New(t)
	registry := newRegistry()
	broken, healthy := &Sink{err: errors.ErrSinkFull}, &Sink{}
	registry.Register("broken", chat.Identity{UserID: "u1"}, broken)
	registry.Register("healthy", chat.Identity{UserID: "u2"}, healthy)
	req.NoError(registry.Join("broken", "general"))
	req.NoError(registry.Join("healthy", "general"))

	delivered := registry.BroadcastToRoom(context.Background(), "general", event.New(event.MessageCreated, nil))

	req.Equal(1, delivered)
	req.Len(healthy.Events(), 1)
}

func TestRegistry_SessionsOf(t *testing.T) {
	req := require.New(t)
	registry := newRegistry()
	registry.Register("tab-1", chat.Identity{UserID: "alice"}, &Sink{})
	registry.Register("tab-2", chat.Identity{UserID: "alice"}, &Sink{})
	registry.Register("tab-3", chat.Identity{UserID: "bob"}, &Sink{})

	req.Equal(2, registry.SessionsOf("alice"))
	registry.Drop("tab-1")
	req.Equal(1, registry.SessionsOf("alice"))
	req.Zero(registry.SessionsOf("carol"))
}

func TestRegistry_Room_Broadcasts_Keep_Emission_Order(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	registry := newRegistry()
	sinks := make([]*Sink, 5)
	for i := range sinks {
		sinks[i] = &Sink{}
		id := fmt.Sprintf("s%d", i)
		registry.Register(id, chat.Identity{UserID: id}, sinks[i])
		req.NoError(registry.Join(id, "general"))
	}
	for _, s := range sinks {
		s.mu.Lock()
		s.events = nil
		s.mu.Unlock()
	}

	for i := 0; i < 100; i++ {
		registry.BroadcastToRoom(ctx, "general", event.New(event.MessageCreated, i))
	}

	for _, s := range sinks {
		events := s.Events()
		req.Len(events, 100)
		for i, e := range events {
			req.Equal(i, e.Data)
		}
	}
}

func TestRegistry_Concurrent_Join_Leave_Broadcast(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	registry := newRegistry()
	rooms := []chat.RoomKey{"a", "b", "c"}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("s%d", i)
			registry.Register(id, chat.Identity{UserID: id}, &Sink{})
			for j := 0; j < 20; j++ {
				room := rooms[(i+j)%len(rooms)]
				_ = registry.Join(id, room)
				registry.BroadcastToRoom(ctx, room, event.New(event.MessageCreated, j))
				registry.BroadcastToAll(ctx, event.New(event.MessageEdited, j))
				registry.Leave(id, room)
			}
			registry.Drop(id)
		}(i)
	}
	wg.Wait()

	sessions, roomCount := registry.Stats()
	req.Zero(sessions)
	req.Zero(roomCount)
}
