package runtime

import (
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMailboxStore_ReplayBeforeAnyConnection(t *testing.T) {
	req := require.New(t)
	store := NewMailboxStore()

	// Given messages sent to a name nobody uses yet
	store.DeliverPrivate("bob", chat.Message{ID: 1, SenderDisplayName: "alice", Text: "psst", IsPrivate: true})
	store.DeliverPrivate("bob", chat.Message{ID: 2, SenderDisplayName: "clara", Text: "hey", IsPrivate: true})

	// When bob's mailbox is replayed
	replayed := store.Replay("bob")

	// Then both are there, oldest first and unread
	req.Len(replayed, 2)
	req.Equal("psst", replayed[0].Text)
	req.False(replayed[0].Read)
	req.Empty(store.Replay("nobody"))
}

func TestMailboxStore_MarkReadAndReact(t *testing.T) {
	req := require.New(t)
	store := NewMailboxStore()
	store.DeliverPrivate("bob", chat.Message{ID: 1, SenderDisplayName: "alice"})

	msg, err := store.MarkRead("bob", 1)
	req.NoError(err)
	req.True(msg.Read)

	_, err = store.React("bob", 1, "bob", "👍")
	req.NoError(err)
	msg, err = store.React("bob", 1, "bob", "👎")
	req.NoError(err)
	req.Equal(map[string]string{"bob": "👎"}, msg.Reactions)

	_, err = store.MarkRead("bob", 2)
	req.ErrorIs(err, errors.ErrNotFound)
	_, err = store.MarkRead("nobody", 1)
	req.ErrorIs(err, errors.ErrNotFound)
	req.Equal(1, store.Len())
}
