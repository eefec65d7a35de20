package repositories

import (
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *badger.DB {
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func roomMessages(room string, at time.Time, authors ...string) []DiskMessage {
	messages := make([]DiskMessage, len(authors))
	for i, author := range authors {
		messages[i] = DiskMessage{
			ID:        uuid.New(),
			MessageID: uint64(i + 1),
			Scope:     RoomScope,
			Target:    room,
			Author:    author,
			Content:   "this message will self destruct in 5 seconds",
			At:        at.Add(time.Duration(i) * time.Minute),
		}
	}
	return messages
}

func Test_Record_Multiple_Message(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openDB(t), logs.GetLoggerFromLevel(slog.LevelDebug), nil)
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	diskMessages := roomMessages("lobby", at, "Alice", "Bob", "Clara")
	diskMessages[1].AttachmentURI = "https://example.org/cat.png"
	diskMessages[1].MimeType = "image/png"

	for _, dm := range diskMessages {
		req.NoError(repository.StoreMessage(dm))
	}

	fetched, _, err := repository.GetMessages(RoomScope, "lobby", nil)
	req.NoError(err)
	req.Len(fetched, 3)
	// Newest first
	req.Equal(diskMessages[2], fetched[0])
	req.Equal(diskMessages[1], fetched[1])
	req.Equal(diskMessages[0], fetched[2])
}

func Test_Record_Multiple_Message_And_Limit(t *testing.T) {
	req := require.New(t)
	limit := 2
	repository := NewMessageRepository(openDB(t), logs.GetLoggerFromLevel(slog.LevelDebug), &limit)
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	diskMessages := roomMessages("lobby", at, "Alice", "Bob", "Clara")
	for _, dm := range diskMessages {
		req.NoError(repository.StoreMessage(dm))
	}

	// When the first page is read
	fetched, cursor, err := repository.GetMessages(RoomScope, "lobby", nil)
	req.NoError(err)
	req.Len(fetched, limit)
	req.Equal("Clara", fetched[0].Author)

	// Then the cursor resumes after Bob
	fetched, _, err = repository.GetMessages(RoomScope, "lobby", cursor)
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal("Alice", fetched[0].Author)
}

func Test_Targets_Do_Not_Overlap(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openDB(t), logs.GetLoggerFromLevel(slog.LevelDebug), nil)
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	req.NoError(repository.StoreMessage(roomMessages("lobby", at, "Alice")[0]))
	req.NoError(repository.StoreMessage(roomMessages("lobby:vip", at, "Bob")[0]))
	req.NoError(repository.StoreMessage(DiskMessage{
		ID: uuid.New(), MessageID: 9, Scope: PrivateScope, Target: "lobby", Author: "Clara", At: at,
	}))

	fetched, _, err := repository.GetMessages(RoomScope, "lobby", nil)
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal("Alice", fetched[0].Author)

	fetched, _, err = repository.GetMessages(PrivateScope, "lobby", nil)
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal("Clara", fetched[0].Author)

	all, err := repository.ListMessages(0)
	req.NoError(err)
	req.Len(all, 3)
	some, err := repository.ListMessages(2)
	req.NoError(err)
	req.Len(some, 2)
}

func Test_OpenJournalReadOnly(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()
	db, err := OpenJournal(dir, false)
	req.NoError(err)
	repository := NewMessageRepository(db, logs.GetLoggerFromLevel(slog.LevelDebug), nil)
	req.NoError(repository.StoreMessage(roomMessages("lobby", time.Now().UTC(), "Alice")[0]))
	req.NoError(db.Close())

	readOnly, err := OpenJournalReadOnly(dir)
	req.NoError(err)
	defer readOnly.Close()

	all, err := NewMessageRepository(readOnly, logs.GetLoggerFromLevel(slog.LevelDebug), nil).ListMessages(0)
	req.NoError(err)
	req.Len(all, 1)
}
