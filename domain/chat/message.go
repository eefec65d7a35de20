// Package chat contains the core concepts of the relay: messages, rooms,
// mailboxes and identities. No locking, network or logging here, callers
// own the concurrency.
package chat

import (
	"time"

	"chat-relay/domain/mimetypes"
)

type (
	RoomID       string
	ConnectionID string
	MessageID    uint64
)

// Attachment is an opaque payload. Either URI or Data is set.
type Attachment struct {
	URI      string         `json:"uri,omitempty"`
	Data     []byte         `json:"data,omitempty"`
	MimeType mimetypes.MIME `json:"mimeType,omitempty"`
}

// Message is a room or private chat message.
// Only Read and Reactions change after creation.
type Message struct {
	ID                 MessageID         `json:"id"`
	SenderDisplayName  string            `json:"sender"`
	SenderConnectionID ConnectionID      `json:"senderId"`
	Text               string            `json:"message"`
	Attachment         *Attachment       `json:"file"`
	CreatedAt          time.Time         `json:"timestamp"`
	Read               bool              `json:"read"`
	Reactions          map[string]string `json:"reactions"`
	IsPrivate          bool              `json:"isPrivate,omitempty"`
	RoomID             RoomID            `json:"roomId,omitempty"`
	To                 string            `json:"to,omitempty"`
}

// Clone returns a copy that shares no mutable state with m.
func (m Message) Clone() Message {
	reactions := make(map[string]string, len(m.Reactions))
	for name, symbol := range m.Reactions {
		reactions[name] = symbol
	}
	m.Reactions = reactions
	if m.Attachment != nil {
		a := *m.Attachment
		m.Attachment = &a
	}
	return m
}

// React records symbol as displayName's reaction, replacing any previous one.
func (m *Message) React(displayName, symbol string) {
	if m.Reactions == nil {
		m.Reactions = make(map[string]string)
	}
	m.Reactions[displayName] = symbol
}

func cloneAll(messages []Message) []Message {
	out := make([]Message, len(messages))
	for i, m := range messages {
		out[i] = m.Clone()
	}
	return out
}

func indexOf(messages []Message, id MessageID) int {
	for i := range messages {
		if messages[i].ID == id {
			return i
		}
	}
	return -1
}
