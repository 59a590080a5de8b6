package runtime

import (
	"chatchat/contract"
	"chatchat/domain/chat"
	"chatchat/domain/event"
	"chatchat/errors"
	"context"
	"log/slog"
	"sync"
)

type session struct {
	id       string
	identity chat.Identity
	sink     contract.EventSink

	mu      sync.Mutex
	rooms   map[chat.RoomKey]struct{}
	dropped bool
}

type room struct {
	mu      sync.Mutex
	key     chat.RoomKey
	members map[string]*session
	// closed is set once the room left the registry; a joiner holding it must retry.
	closed bool
}

// Registry tracks open sessions and their room memberships.
//
// Lock order is room.mu, then session.mu or Registry.mu. Registry.mu only guards the two maps,
// so broadcasting to one room never waits on another room.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*session
	rooms    map[chat.RoomKey]*room

	// globalMu orders global broadcasts so every session sees them in the same sequence.
	globalMu sync.Mutex
	log      *slog.Logger
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*session),
		rooms:    make(map[chat.RoomKey]*room),
		log:      log,
	}
}

// Register makes a session reachable by global broadcasts.
// Registering an existing id replaces its sink and keeps its rooms.
func (r *Registry) Register(sessionID string, identity chat.Identity, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[sessionID]; ok {
		existing.mu.Lock()
		existing.sink = sink
		existing.mu.Unlock()
		return
	}
	r.sessions[sessionID] = &session{
		id:       sessionID,
		identity: identity,
		sink:     sink,
		rooms:    make(map[chat.RoomKey]struct{}),
	}
}

// Drop removes the session from every room it joined. It cannot fail and is idempotent.
func (r *Registry) Drop(sessionID string) []chat.RoomKey {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	r.mu.Unlock()
	if !ok {
		return nil
	}

	s.mu.Lock()
	s.dropped = true
	rooms := make([]chat.RoomKey, 0, len(s.rooms))
	for key := range s.rooms {
		rooms = append(rooms, key)
	}
	s.rooms = map[chat.RoomKey]struct{}{}
	s.mu.Unlock()

	for _, key := range rooms {
		r.removeMember(key, sessionID)
	}
	return rooms
}

// Join is idempotent. Only the first join of a session notifies the other members.
func (r *Registry) Join(sessionID string, key chat.RoomKey) error {
	r.mu.RLock()
	s, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if !ok {
		return errors.ErrUnknownSession
	}

	for {
		rm := r.roomFor(key)
		rm.mu.Lock()
		if rm.closed {
			rm.mu.Unlock()
			continue
		}
		if _, already := rm.members[sessionID]; already {
			rm.mu.Unlock()
			return nil
		}

		s.mu.Lock()
		if s.dropped {
			s.mu.Unlock()
			rm.mu.Unlock()
			r.removeEmpty(rm)
			return errors.ErrUnknownSession
		}
		s.rooms[key] = struct{}{}
		s.mu.Unlock()

		joined := event.Joined(key, s.identity)
		for peerID, peer := range rm.members {
			r.deliver(context.Background(), peer, joined, "room", key.String(), "peer", peerID)
		}
		rm.members[sessionID] = s
		rm.mu.Unlock()
		return nil
	}
}

// Leave is idempotent and sends no notification.
func (r *Registry) Leave(sessionID string, key chat.RoomKey) {
	r.mu.RLock()
	s, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if ok {
		s.mu.Lock()
		delete(s.rooms, key)
		s.mu.Unlock()
	}
	r.removeMember(key, sessionID)
}

// BroadcastToRoom delivers e to every member of the room, the sender included.
// Enqueueing happens under the room lock so members observe the room's events in emission order.
func (r *Registry) BroadcastToRoom(ctx context.Context, key chat.RoomKey, e event.Envelope) int {
	r.mu.RLock()
	rm, ok := r.rooms[key]
	r.mu.RUnlock()
	if !ok {
		return 0
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	delivered := 0
	for _, member := range rm.members {
		if r.deliver(ctx, member, e, "room", key.String()) {
			delivered++
		}
	}
	return delivered
}

// BroadcastToAll delivers e to every registered session, in or out of rooms.
func (r *Registry) BroadcastToAll(ctx context.Context, e event.Envelope) int {
	r.globalMu.Lock()
	defer r.globalMu.Unlock()
	r.mu.RLock()
	defer r.mu.RUnlock()

	delivered := 0
	for _, s := range r.sessions {
		if r.deliver(ctx, s, e, "room", "*") {
			delivered++
		}
	}
	return delivered
}

// SessionsOf counts the open sessions of one user.
func (r *Registry) SessionsOf(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, s := range r.sessions {
		if s.identity.UserID == userID {
			count++
		}
	}
	return count
}

// Stats returns the number of sessions and non empty rooms.
func (r *Registry) Stats() (sessions int, rooms int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions), len(r.rooms)
}

// Members lists the session ids currently in a room.
func (r *Registry) Members(key chat.RoomKey) []string {
	r.mu.RLock()
	rm, ok := r.rooms[key]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	ids := make([]string, 0, len(rm.members))
	for id := range rm.members {
		ids = append(ids, id)
	}
	return ids
}

func (r *Registry) roomFor(key chat.RoomKey) *room {
	r.mu.RLock()
	rm, ok := r.rooms[key]
	r.mu.RUnlock()
	if ok {
		return rm
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if rm, ok = r.rooms[key]; ok {
		return rm
	}
	rm = &room{key: key, members: make(map[string]*session)}
	r.rooms[key] = rm
	return rm
}

func (r *Registry) removeMember(key chat.RoomKey, sessionID string) {
	r.mu.RLock()
	rm, ok := r.rooms[key]
	r.mu.RUnlock()
	if !ok {
		return
	}
	rm.mu.Lock()
	delete(rm.members, sessionID)
	rm.mu.Unlock()
	r.removeEmpty(rm)
}

// removeEmpty removes the room entry once no one is left, so that rooms do not leak.
func (r *Registry) removeEmpty(rm *room) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.closed || len(rm.members) > 0 {
		return
	}
	rm.closed = true
	r.mu.Lock()
	if r.rooms[rm.key] == rm {
		delete(r.rooms, rm.key)
	}
	r.mu.Unlock()
}

// deliver isolates per peer failures: one failing sink never prevents delivery to the others.
func (r *Registry) deliver(ctx context.Context, s *session, e event.Envelope, attrs ...any) bool {
	s.mu.Lock()
	sink := s.sink
	s.mu.Unlock()
	if err := sink.Consume(ctx, e); err != nil {
		r.log.Debug("Event not delivered", append(attrs, "session", s.id, "event", e.Event, "error", err)...)
		return false
	}
	return true
}
