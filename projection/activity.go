// Package projection builds read models from the stored-message stream.
// It never emits events and never talks to connections.
package projection

import (
	"chat-relay/contract"
	"chat-relay/domain/chat"
	"chat-relay/domain/event"
	"context"
	"sort"
	"sync"
	"time"
)

var _ contract.EventSink = (*Activity)(nil)

type RoomActivity struct {
	RoomID        chat.RoomID `json:"roomId"`
	Messages      uint64      `json:"messages"`
	Attachments   uint64      `json:"attachments"`
	LastSender    string      `json:"lastSender"`
	LastMessageAt time.Time   `json:"lastMessageAt"`
}

type ActivitySnapshot struct {
	Rooms           []RoomActivity `json:"rooms"`
	PrivateMessages uint64         `json:"privateMessages"`
	TotalMessages   uint64         `json:"totalMessages"`
	TopSenders      []SenderCount  `json:"topSenders"`
	LastMessageAt   time.Time      `json:"lastMessageAt"`
}

type SenderCount struct {
	DisplayName string `json:"username"`
	Messages    uint64 `json:"messages"`
}

// Activity counts stored messages per room and per sender.
// It lives as long as the process, like the rooms it describes.
type Activity struct {
	mu      sync.RWMutex
	rooms   map[chat.RoomID]*RoomActivity
	senders map[string]uint64
	private uint64
	total   uint64
	last    time.Time
	topN    int
}

func NewActivity(topN int) *Activity {
	return &Activity{
		rooms:   make(map[chat.RoomID]*RoomActivity),
		senders: make(map[string]uint64),
		topN:    topN,
	}
}

func (a *Activity) Consume(_ context.Context, e event.Event) error {
	posted, ok := e.(event.MessagePosted)
	if !ok {
		return nil
	}
	m := posted.Message

	a.mu.Lock()
	defer a.mu.Unlock()

	a.total++
	a.senders[m.SenderDisplayName]++
	if m.CreatedAt.After(a.last) {
		a.last = m.CreatedAt
	}
	if m.IsPrivate {
		a.private++
		return nil
	}

	room, ok := a.rooms[m.RoomID]
	if !ok {
		room = &RoomActivity{RoomID: m.RoomID}
		a.rooms[m.RoomID] = room
	}
	room.Messages++
	if m.Attachment != nil {
		room.Attachments++
	}
	room.LastSender = m.SenderDisplayName
	room.LastMessageAt = m.CreatedAt
	return nil
}

// Snapshot returns rooms by id and the busiest senders first.
func (a *Activity) Snapshot() ActivitySnapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	rooms := make([]RoomActivity, 0, len(a.rooms))
	for _, r := range a.rooms {
		rooms = append(rooms, *r)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].RoomID < rooms[j].RoomID })

	senders := make([]SenderCount, 0, len(a.senders))
	for name, n := range a.senders {
		senders = append(senders, SenderCount{DisplayName: name, Messages: n})
	}
	sort.Slice(senders, func(i, j int) bool {
		if senders[i].Messages != senders[j].Messages {
			return senders[i].Messages > senders[j].Messages
		}
		return senders[i].DisplayName < senders[j].DisplayName
	})
	if a.topN > 0 && len(senders) > a.topN {
		senders = senders[:a.topN]
	}

	return ActivitySnapshot{
		Rooms:           rooms,
		PrivateMessages: a.private,
		TotalMessages:   a.total,
		TopSenders:      senders,
		LastMessageAt:   a.last,
	}
}
