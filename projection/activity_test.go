package projection

import (
	"chat-relay/domain/chat"
	"chat-relay/domain/event"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestActivity_Consume_MessagePosted(t *testing.T) {
	req := require.New(t)
	activity := NewActivity(2)
	ctx := context.Background()
	at := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

	posted := []chat.Message{
		{ID: 1, RoomID: "lobby", SenderDisplayName: "alice", CreatedAt: at},
		{ID: 2, RoomID: "lobby", SenderDisplayName: "bob", CreatedAt: at.Add(time.Second), Attachment: &chat.Attachment{URI: "https://example.org/cat.png"}},
		{ID: 3, RoomID: "games", SenderDisplayName: "alice", CreatedAt: at.Add(2 * time.Second)},
		{ID: 4, IsPrivate: true, To: "bob", SenderDisplayName: "clara", CreatedAt: at.Add(3 * time.Second)},
	}
	for _, m := range posted {
		req.NoError(activity.Consume(ctx, event.MessagePosted{Message: m}))
	}
	// Other events are ignored
	req.NoError(activity.Consume(ctx, event.UnreadCount{RoomID: "lobby", Count: 3}))

	snapshot := activity.Snapshot()

	req.Equal(uint64(4), snapshot.TotalMessages)
	req.Equal(uint64(1), snapshot.PrivateMessages)
	req.Equal(at.Add(3*time.Second), snapshot.LastMessageAt)
	req.Len(snapshot.Rooms, 2)
	req.Equal(chat.RoomID("games"), snapshot.Rooms[0].RoomID)
	lobby := snapshot.Rooms[1]
	req.Equal(uint64(2), lobby.Messages)
	req.Equal(uint64(1), lobby.Attachments)
	req.Equal("bob", lobby.LastSender)
	req.Equal([]SenderCount{
		{DisplayName: "alice", Messages: 2},
		{DisplayName: "bob", Messages: 1},
	}, snapshot.TopSenders)
}
