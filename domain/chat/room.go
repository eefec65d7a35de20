package chat

import (
	"sort"

	"github.com/samber/lo"
)

const (
	DefaultHistoryCapacity = 100
	DefaultPageSize        = 20
)

// Room holds a bounded FIFO history, its members and their unread counters.
// Unread counters of members who left are kept, rooms are never compacted.
type Room struct {
	ID       RoomID
	capacity int
	history  []Message
	members  map[ConnectionID]struct{}
	unread   map[ConnectionID]int
}

func NewRoom(id RoomID, capacity int) *Room {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &Room{
		ID:       id,
		capacity: capacity,
		members:  make(map[ConnectionID]struct{}),
		unread:   make(map[ConnectionID]int),
	}
}

// Join adds a member. Joining twice is a no-op and keeps the unread counter.
func (r *Room) Join(c ConnectionID) {
	r.members[c] = struct{}{}
	if _, ok := r.unread[c]; !ok {
		r.unread[c] = 0
	}
}

func (r *Room) Leave(c ConnectionID) bool {
	if _, ok := r.members[c]; !ok {
		return false
	}
	delete(r.members, c)
	return true
}

func (r *Room) IsMember(c ConnectionID) bool {
	_, ok := r.members[c]
	return ok
}

// Members returns member connection ids in lexical order.
func (r *Room) Members() []ConnectionID {
	members := lo.Keys(r.members)
	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
	return members
}

// PostMessage appends message, evicting the oldest entries over capacity,
// and bumps the unread counter of every other member.
// It returns the new counters of the members that were bumped.
func (r *Room) PostMessage(message Message) map[ConnectionID]int {
	r.history = append(r.history, message.Clone())
	if overflow := len(r.history) - r.capacity; overflow > 0 {
		// Copy so the evicted backing array can be collected.
		r.history = append([]Message(nil), r.history[overflow:]...)
	}

	bumped := make(map[ConnectionID]int, len(r.members))
	for member := range r.members {
		if member == message.SenderConnectionID {
			continue
		}
		r.unread[member]++
		bumped[member] = r.unread[member]
	}
	return bumped
}

// MarkRead flags the message read and resets the reader's counter.
// Reading any message catches the reader up on the whole room.
func (r *Room) MarkRead(reader ConnectionID, id MessageID) (Message, bool) {
	i := indexOf(r.history, id)
	if i < 0 {
		return Message{}, false
	}
	r.history[i].Read = true
	r.unread[reader] = 0
	return r.history[i].Clone(), true
}

func (r *Room) React(id MessageID, displayName, symbol string) (Message, bool) {
	i := indexOf(r.history, id)
	if i < 0 {
		return Message{}, false
	}
	r.history[i].React(displayName, symbol)
	return r.history[i].Clone(), true
}

// Page returns a window counted from the newest message: page 1 holds the
// newest size messages, page 2 the size messages before them, and so on.
// A result shorter than size means there is nothing older.
func (r *Room) Page(page, size int) []Message {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	n := len(r.history)
	pages := n / size
	if n%size != 0 {
		pages++
	}
	// Checked before multiplying, page is client input and may overflow.
	if page > pages {
		return []Message{}
	}
	end := n - (page-1)*size
	start := max(0, n-page*size)
	return cloneAll(r.history[start:end])
}

func (r *Room) History() []Message {
	return cloneAll(r.history)
}

func (r *Room) Len() int {
	return len(r.history)
}

func (r *Room) Unread(c ConnectionID) int {
	return r.unread[c]
}
