package runtime

import (
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

const generatedRoomIDLength = 8

// guardedRoom pairs a room with the lock serializing every access to it.
type guardedRoom struct {
	mu   sync.Mutex
	room *chat.Room
}

// RoomStore owns every room. The map lock only guards lookups and creation,
// each room has its own lock so rooms never wait on each other.
// Rooms are never removed, even once empty.
type RoomStore struct {
	mu       sync.RWMutex
	rooms    map[chat.RoomID]*guardedRoom
	capacity int
	newID    func() string
}

func NewRoomStore(capacity int) *RoomStore {
	return &RoomStore{
		rooms:    make(map[chat.RoomID]*guardedRoom),
		capacity: capacity,
		newID:    generateRoomID,
	}
}

func generateRoomID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:generatedRoomIDLength]
}

// EnsureRoom returns id, creating the room if needed.
// An empty id gets a generated one that no existing room uses.
func (s *RoomStore) EnsureRoom(id chat.RoomID) chat.RoomID {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		for {
			id = chat.RoomID(s.newID())
			if _, taken := s.rooms[id]; !taken {
				break
			}
		}
	}
	if _, ok := s.rooms[id]; !ok {
		s.rooms[id] = &guardedRoom{room: chat.NewRoom(id, s.capacity)}
	}
	return id
}

func (s *RoomStore) lookup(id chat.RoomID) (*guardedRoom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.rooms[id]
	if !ok {
		return nil, fmt.Errorf("%w: room %s", errors.ErrNotFound, id)
	}
	return g, nil
}

// with runs fn holding the room lock.
func (s *RoomStore) with(id chat.RoomID, fn func(room *chat.Room) error) error {
	g, err := s.lookup(id)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn(g.room)
}

func (s *RoomStore) Exists(id chat.RoomID) bool {
	_, err := s.lookup(id)
	return err == nil
}

// Join adds c to the room and returns its unread counter.
func (s *RoomStore) Join(id chat.RoomID, c chat.ConnectionID) (int, error) {
	var unread int
	err := s.with(id, func(room *chat.Room) error {
		room.Join(c)
		unread = room.Unread(c)
		return nil
	})
	return unread, err
}

func (s *RoomStore) Leave(id chat.RoomID, c chat.ConnectionID) error {
	return s.with(id, func(room *chat.Room) error {
		room.Leave(c)
		return nil
	})
}

// AppendMessage stores message if its sender is a member, and returns the
// unread counters it bumped.
func (s *RoomStore) AppendMessage(id chat.RoomID, message chat.Message) (map[chat.ConnectionID]int, error) {
	var bumped map[chat.ConnectionID]int
	err := s.with(id, func(room *chat.Room) error {
		if !room.IsMember(message.SenderConnectionID) {
			return fmt.Errorf("%w: %s has not joined room %s", errors.ErrInvalidState, message.SenderConnectionID, id)
		}
		bumped = room.PostMessage(message)
		return nil
	})
	return bumped, err
}

func (s *RoomStore) MarkRead(id chat.RoomID, c chat.ConnectionID, messageID chat.MessageID) (chat.Message, error) {
	var message chat.Message
	err := s.with(id, func(room *chat.Room) error {
		var ok bool
		if message, ok = room.MarkRead(c, messageID); !ok {
			return fmt.Errorf("%w: message %d in room %s", errors.ErrNotFound, messageID, id)
		}
		return nil
	})
	return message, err
}

func (s *RoomStore) React(id chat.RoomID, messageID chat.MessageID, displayName, symbol string) (chat.Message, error) {
	var message chat.Message
	err := s.with(id, func(room *chat.Room) error {
		var ok bool
		if message, ok = room.React(messageID, displayName, symbol); !ok {
			return fmt.Errorf("%w: message %d in room %s", errors.ErrNotFound, messageID, id)
		}
		return nil
	})
	return message, err
}

func (s *RoomStore) Page(id chat.RoomID, page, size int) ([]chat.Message, error) {
	var messages []chat.Message
	err := s.with(id, func(room *chat.Room) error {
		messages = room.Page(page, size)
		return nil
	})
	return messages, err
}

func (s *RoomStore) History(id chat.RoomID) ([]chat.Message, error) {
	var messages []chat.Message
	err := s.with(id, func(room *chat.Room) error {
		messages = room.History()
		return nil
	})
	return messages, err
}

func (s *RoomStore) Members(id chat.RoomID) ([]chat.ConnectionID, error) {
	var members []chat.ConnectionID
	err := s.with(id, func(room *chat.Room) error {
		members = room.Members()
		return nil
	})
	return members, err
}

func (s *RoomStore) IsMember(id chat.RoomID, c chat.ConnectionID) bool {
	member := false
	_ = s.with(id, func(room *chat.Room) error {
		member = room.IsMember(c)
		return nil
	})
	return member
}

func (s *RoomStore) Unread(id chat.RoomID, c chat.ConnectionID) (int, error) {
	var unread int
	err := s.with(id, func(room *chat.Room) error {
		unread = room.Unread(c)
		return nil
	})
	return unread, err
}

// MemberNames snapshots the display names of the room's members.
func (s *RoomStore) MemberNames(id chat.RoomID, registry *Registry) ([]string, error) {
	members, err := s.Members(id)
	if err != nil {
		return nil, err
	}
	return registry.Names(members), nil
}

// IDs returns every room id in lexical order.
func (s *RoomStore) IDs() []chat.RoomID {
	s.mu.RLock()
	ids := lo.Keys(s.rooms)
	s.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *RoomStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// MessageCount is the number of messages still held in room histories.
func (s *RoomStore) MessageCount() int {
	s.mu.RLock()
	rooms := lo.Values(s.rooms)
	s.mu.RUnlock()

	total := 0
	for _, g := range rooms {
		g.mu.Lock()
		total += g.room.Len()
		g.mu.Unlock()
	}
	return total
}
