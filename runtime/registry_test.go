package runtime

import (
	"chat-relay/domain/chat"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type Sink struct {
}

func (s Sink) Consume(_ context.Context, _ event.Event) error {
	return nil
}

func TestRegistry_Register_Anonymous(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	id := chat.ConnectionID(uuid.NewString())

	// When a connection is registered
	identity := registry.Register(id, Sink{})

	// Then it has no name and no room
	req.True(identity.IsAnonymous())
	req.Empty(identity.Rooms)
	req.Len(registry.Sinks(id), 1)
	req.Equal(1, registry.Len())
}

func TestRegistry_SetDisplayName_Once(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	registry.Register("c1", Sink{})

	req.NoError(registry.SetDisplayName("c1", "alice"))
	// Same name again is accepted
	req.NoError(registry.SetDisplayName("c1", "alice"))
	// Another name is not
	req.ErrorIs(registry.SetDisplayName("c1", "bob"), errors.ErrInvalidState)
	// Unknown connection
	req.ErrorIs(registry.SetDisplayName("c2", "bob"), errors.ErrInvalidState)
}

func TestRegistry_SetDisplayName_UniqueAmongLiveConnections(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	registry.Register("c1", Sink{})
	registry.Register("c2", Sink{})
	req.NoError(registry.SetDisplayName("c1", "alice"))

	// When another connection claims the same name
	err := registry.SetDisplayName("c2", "alice")

	// Then it is refused
	req.ErrorIs(err, errors.ErrInvalidState)

	// When the first connection leaves
	_, err = registry.Unregister("c1")
	req.NoError(err)

	// Then the name is free again
	req.NoError(registry.SetDisplayName("c2", "alice"))
	id, err := registry.ResolveByName("alice")
	req.NoError(err)
	req.Equal(chat.ConnectionID("c2"), id)
}

func TestRegistry_ResolveByName_NotFound(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	registry.Register("c1", Sink{})

	_, err := registry.ResolveByName("nobody")

	req.ErrorIs(err, errors.ErrNotFound)
}

func TestRegistry_Unregister_ReturnsJoinedRooms(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	registry.Register("c1", Sink{})
	req.NoError(registry.SetDisplayName("c1", "alice"))
	req.NoError(registry.AddRoom("c1", "lobby"))
	req.NoError(registry.AddRoom("c1", "games"))

	identity, err := registry.Unregister("c1")

	req.NoError(err)
	req.Equal([]chat.RoomID{"games", "lobby"}, identity.JoinedRooms())
	req.Empty(registry.Snapshot())
	req.Empty(registry.Sinks("c1"))
	_, err = registry.ResolveByName("alice")
	req.ErrorIs(err, errors.ErrNotFound)

	// Then a second unregister fails
	_, err = registry.Unregister("c1")
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestRegistry_Snapshot_RegistrationOrder(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	registry.Register("c2", Sink{})
	registry.Register("c1", Sink{})
	req.NoError(registry.SetDisplayName("c1", "alice"))

	snapshot := registry.Snapshot()

	req.Len(snapshot, 2)
	req.Equal(chat.ConnectionID("c2"), snapshot[0].ConnectionID)
	req.Equal("alice", snapshot[1].DisplayName)
	req.Equal([]string{"alice"}, registry.Names([]chat.ConnectionID{"c2", "c1", "ghost"}))
}
