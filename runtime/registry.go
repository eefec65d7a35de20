package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"fmt"
	"sort"
	"sync"
)

type session struct {
	identity chat.Identity
	sink     contract.EventSink
	seq      uint64
}

// Registry is the identity registry: every live connection, its display
// name, the rooms it joined and the sink its events are pushed to.
// Display names are unique among live connections.
type Registry struct {
	mu       sync.RWMutex
	sessions map[chat.ConnectionID]*session
	byName   map[string]chat.ConnectionID
	seq      uint64
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[chat.ConnectionID]*session),
		byName:   make(map[string]chat.ConnectionID),
	}
}

// Register records a new anonymous connection.
// Registering an id twice replaces the sink and keeps the identity.
func (r *Registry) Register(id chat.ConnectionID, sink contract.EventSink) chat.Identity {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		s.sink = sink
		return s.identity.Clone()
	}
	r.seq++
	s := &session{identity: chat.NewIdentity(id), sink: sink, seq: r.seq}
	r.sessions[id] = s
	return s.identity.Clone()
}

// SetDisplayName names a connection once. Setting the same name again is
// accepted so one connection can join several rooms.
func (r *Registry) SetDisplayName(id chat.ConnectionID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return fmt.Errorf("%w: connection %s is not registered", errors.ErrInvalidState, id)
	}
	if s.identity.DisplayName == name {
		return nil
	}
	if !s.identity.IsAnonymous() {
		return fmt.Errorf("%w: connection %s is already named %q", errors.ErrInvalidState, id, s.identity.DisplayName)
	}
	if owner, taken := r.byName[name]; taken && owner != id {
		return fmt.Errorf("%w: display name %q is in use", errors.ErrInvalidState, name)
	}
	s.identity.DisplayName = name
	r.byName[name] = id
	return nil
}

// ResolveByName returns the live connection using name.
func (r *Registry) ResolveByName(name string) (chat.ConnectionID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byName[name]
	if !ok {
		return "", fmt.Errorf("%w: no connection named %q", errors.ErrNotFound, name)
	}
	return id, nil
}

// Unregister removes the connection and returns its last identity, joined
// rooms included, so the caller can clean up memberships.
func (r *Registry) Unregister(id chat.ConnectionID) (chat.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return chat.Identity{}, fmt.Errorf("%w: connection %s", errors.ErrNotFound, id)
	}
	delete(r.sessions, id)
	if !s.identity.IsAnonymous() && r.byName[s.identity.DisplayName] == id {
		delete(r.byName, s.identity.DisplayName)
	}
	return s.identity, nil
}

func (r *Registry) AddRoom(id chat.ConnectionID, roomID chat.RoomID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return fmt.Errorf("%w: connection %s is not registered", errors.ErrInvalidState, id)
	}
	s.identity.Rooms[roomID] = struct{}{}
	return nil
}

func (r *Registry) Get(id chat.ConnectionID) (chat.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return chat.Identity{}, fmt.Errorf("%w: connection %s is not registered", errors.ErrInvalidState, id)
	}
	return s.identity.Clone(), nil
}

// Sinks resolves connection ids to their sinks, skipping the ones gone.
func (r *Registry) Sinks(ids ...chat.ConnectionID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sinks := make([]contract.EventSink, 0, len(ids))
	for _, id := range ids {
		if s, ok := r.sessions[id]; ok {
			sinks = append(sinks, s.sink)
		}
	}
	return sinks
}

// Names maps connection ids to display names, in the order given.
// Unknown or anonymous connections are skipped.
func (r *Registry) Names(ids []chat.ConnectionID) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if s, ok := r.sessions[id]; ok && !s.identity.IsAnonymous() {
			names = append(names, s.identity.DisplayName)
		}
	}
	return names
}

// Snapshot returns every live identity in registration order.
func (r *Registry) Snapshot() []chat.Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]*session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].seq < sessions[j].seq })

	identities := make([]chat.Identity, len(sessions))
	for i, s := range sessions {
		identities[i] = s.identity.Clone()
	}
	return identities
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
