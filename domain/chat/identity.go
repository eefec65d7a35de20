package chat

import (
	"sort"

	"github.com/samber/lo"
)

// Identity is what the relay knows about one live connection.
type Identity struct {
	ConnectionID ConnectionID
	DisplayName  string
	Rooms        map[RoomID]struct{}
}

func NewIdentity(id ConnectionID) Identity {
	return Identity{ConnectionID: id, Rooms: make(map[RoomID]struct{})}
}

func (i Identity) IsAnonymous() bool {
	return i.DisplayName == ""
}

// JoinedRooms returns the joined room ids in lexical order.
func (i Identity) JoinedRooms() []RoomID {
	rooms := lo.Keys(i.Rooms)
	sort.Slice(rooms, func(a, b int) bool { return rooms[a] < rooms[b] })
	return rooms
}

func (i Identity) Clone() Identity {
	rooms := make(map[RoomID]struct{}, len(i.Rooms))
	for id := range i.Rooms {
		rooms[id] = struct{}{}
	}
	i.Rooms = rooms
	return i
}
