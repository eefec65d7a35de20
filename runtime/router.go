// Package runtime holds the live state of the relay and routes client
// actions to it. It decides who hears about what, not how bytes travel.
package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain/chat"
	"chat-relay/domain/event"
	"chat-relay/domain/mimetypes"
	"chat-relay/errors"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/samber/lo"
)

const (
	StatusOK        = "ok"
	StatusDelivered = "delivered"
)

type JoinAck struct {
	Status string      `json:"status"`
	RoomID chat.RoomID `json:"roomId"`
}

type SendAck struct {
	Status    string         `json:"status"`
	MessageID chat.MessageID `json:"messageId"`
}

// Sanitizer rewrites message text before it is stored.
type Sanitizer interface {
	Sanitize(author, text string) string
}

type Stats struct {
	Rooms           int `json:"rooms"`
	Identities      int `json:"identities"`
	Mailboxes       int `json:"mailboxes"`
	RoomMessages    int `json:"roomMessages"`
	PrivateMessages int `json:"privateMessages"`
}

// Router is the event router. Every method is called from the goroutine
// owning the connection, so actions of one connection never overlap, while
// different connections run concurrently against the shared stores.
//
// Failures are returned to the caller only, wrapped around ErrInvalidInput,
// ErrInvalidState or ErrNotFound. Other connections never see them.
type Router struct {
	log                *slog.Logger
	registry           *Registry
	rooms              *RoomStore
	mailboxes          *MailboxStore
	ids                *chat.IDGenerator
	sanitizer          Sanitizer
	journal            chan<- event.Event
	pageSize           int
	maxAttachmentBytes int
	now                func() time.Time
}

func NewRouter(log *slog.Logger, registry *Registry, rooms *RoomStore, mailboxes *MailboxStore,
	pageSize, maxAttachmentBytes int) *Router {
	if pageSize <= 0 {
		pageSize = chat.DefaultPageSize
	}
	return &Router{
		log:                log,
		registry:           registry,
		rooms:              rooms,
		mailboxes:          mailboxes,
		ids:                chat.NewIDGenerator(),
		pageSize:           pageSize,
		maxAttachmentBytes: maxAttachmentBytes,
		now:                func() time.Time { return time.Now().UTC() },
	}
}

// WithSanitizer makes every stored message text go through s.
func (r *Router) WithSanitizer(s Sanitizer) *Router {
	r.sanitizer = s
	return r
}

// WithJournal publishes a MessagePosted for every stored message.
// Publication never blocks, entries are dropped when the channel is full.
func (r *Router) WithJournal(journal chan<- event.Event) *Router {
	r.journal = journal
	return r
}

// Connect registers a new anonymous connection.
func (r *Router) Connect(id chat.ConnectionID, sink contract.EventSink) chat.Identity {
	r.log.Debug("Connection opened", "connection_id", id)
	return r.registry.Register(id, sink)
}

// Join names the connection, creates the room if needed and adds the
// connection to it. The joiner gets the room history, its private mailbox
// and its unread counter, the room gets the new member list.
func (r *Router) Join(ctx context.Context, cmd chat.JoinCommand) (JoinAck, error) {
	cmd.DisplayName = chat.Normalize(cmd.DisplayName)
	cmd.RoomID = chat.RoomID(chat.Normalize(string(cmd.RoomID)))
	if err := chat.Validate(cmd); err != nil {
		return JoinAck{}, err
	}
	if err := r.registry.SetDisplayName(cmd.ConnectionID, cmd.DisplayName); err != nil {
		return JoinAck{}, err
	}

	roomID := r.rooms.EnsureRoom(cmd.RoomID)
	unread, err := r.rooms.Join(roomID, cmd.ConnectionID)
	if err != nil {
		return JoinAck{}, err
	}
	if err = r.registry.AddRoom(cmd.ConnectionID, roomID); err != nil {
		_ = r.rooms.Leave(roomID, cmd.ConnectionID)
		return JoinAck{}, err
	}

	history, err := r.rooms.History(roomID)
	if err != nil {
		return JoinAck{}, err
	}
	r.emit(ctx, event.Messages{RoomID: roomID, Messages: history}, cmd.ConnectionID)
	r.emit(ctx, event.PrivateMessages{Messages: r.mailboxes.Replay(cmd.DisplayName)}, cmd.ConnectionID)
	r.emit(ctx, event.UnreadCount{RoomID: roomID, Count: unread}, cmd.ConnectionID)

	r.broadcastUserList(ctx, roomID)
	r.broadcast(ctx, roomID, event.UserJoined{
		RoomID:       roomID,
		DisplayName:  cmd.DisplayName,
		ConnectionID: cmd.ConnectionID,
	}, "")

	r.log.Info("User joined room", "username", cmd.DisplayName, "room_id", roomID, "connection_id", cmd.ConnectionID)
	return JoinAck{Status: StatusOK, RoomID: roomID}, nil
}

// SendToRoom stores a message in a room the sender joined and fans it out.
// An unknown room is reported as ErrNotFound: the join may not have landed yet.
func (r *Router) SendToRoom(ctx context.Context, cmd chat.SendToRoomCommand) (SendAck, error) {
	cmd.RoomID = chat.RoomID(chat.Normalize(string(cmd.RoomID)))
	if err := chat.Validate(cmd); err != nil {
		return SendAck{}, err
	}
	sender, err := r.named(cmd.ConnectionID)
	if err != nil {
		return SendAck{}, err
	}
	if !r.rooms.Exists(cmd.RoomID) {
		return SendAck{}, fmt.Errorf("%w: room %s", errors.ErrNotFound, cmd.RoomID)
	}
	attachment, err := r.prepareAttachment(cmd.Attachment)
	if err != nil {
		return SendAck{}, err
	}

	message := r.newMessage(sender, cmd.Text, attachment)
	message.RoomID = cmd.RoomID

	bumped, err := r.rooms.AppendMessage(cmd.RoomID, message)
	if err != nil {
		return SendAck{}, err
	}
	for _, member := range sortedKeys(bumped) {
		r.emit(ctx, event.UnreadCount{RoomID: cmd.RoomID, Count: bumped[member]}, member)
	}
	r.broadcast(ctx, cmd.RoomID, event.ReceiveMessage{Message: message}, "")
	r.publish(message)

	return SendAck{Status: StatusDelivered, MessageID: message.ID}, nil
}

// SendPrivate always queues the message in the recipient's mailbox, pushes
// it to the recipient if connected and echoes it to the sender.
// It acks even when nobody uses the recipient name yet.
func (r *Router) SendPrivate(ctx context.Context, cmd chat.SendPrivateCommand) (SendAck, error) {
	cmd.To = chat.Normalize(cmd.To)
	if err := chat.Validate(cmd); err != nil {
		return SendAck{}, err
	}
	sender, err := r.named(cmd.ConnectionID)
	if err != nil {
		return SendAck{}, err
	}
	attachment, err := r.prepareAttachment(cmd.Attachment)
	if err != nil {
		return SendAck{}, err
	}

	message := r.newMessage(sender, cmd.Text, attachment)
	message.IsPrivate = true
	message.To = cmd.To

	r.mailboxes.DeliverPrivate(cmd.To, message)
	if recipient, err := r.registry.ResolveByName(cmd.To); err == nil && recipient != sender.ConnectionID {
		r.emit(ctx, event.PrivateMessage{Message: message}, recipient)
	}
	r.emit(ctx, event.PrivateMessage{Message: message}, sender.ConnectionID)
	r.publish(message)

	return SendAck{Status: StatusDelivered, MessageID: message.ID}, nil
}

// SetTyping tells a user, or the rest of a room, that the sender started or
// stopped typing. Nothing is stored.
func (r *Router) SetTyping(ctx context.Context, cmd chat.TypingCommand) error {
	cmd.To = chat.Normalize(cmd.To)
	if err := chat.Validate(cmd); err != nil {
		return err
	}
	sender, err := r.named(cmd.ConnectionID)
	if err != nil {
		return err
	}
	users := []string{}
	if cmd.IsTyping {
		users = []string{sender.DisplayName}
	}

	if cmd.To != "" {
		recipient, err := r.registry.ResolveByName(cmd.To)
		if err != nil {
			return err
		}
		r.emit(ctx, event.TypingUsers{Users: users}, recipient)
		return nil
	}

	if err = r.requireMember(cmd.RoomID, sender); err != nil {
		return err
	}
	r.broadcast(ctx, cmd.RoomID, event.TypingUsers{RoomID: cmd.RoomID, Users: users}, sender.ConnectionID)
	return nil
}

// MarkRead flags a message as read. In a room it also catches the reader up
// and everyone gets the receipt. For a private message only its sender does.
func (r *Router) MarkRead(ctx context.Context, cmd chat.MarkReadCommand) error {
	cmd.To = chat.Normalize(cmd.To)
	if err := chat.Validate(cmd); err != nil {
		return err
	}
	reader, err := r.named(cmd.ConnectionID)
	if err != nil {
		return err
	}

	if cmd.To != "" {
		message, err := r.mailboxes.MarkRead(reader.DisplayName, cmd.MessageID)
		if err != nil {
			return err
		}
		if sender, err := r.registry.ResolveByName(message.SenderDisplayName); err == nil {
			r.emit(ctx, event.ReadReceipt{MessageID: message.ID, Reader: reader.DisplayName}, sender)
		}
		return nil
	}

	if err = r.requireMember(cmd.RoomID, reader); err != nil {
		return err
	}
	message, err := r.rooms.MarkRead(cmd.RoomID, reader.ConnectionID, cmd.MessageID)
	if err != nil {
		return err
	}
	r.broadcast(ctx, cmd.RoomID, event.ReadReceipt{
		MessageID: message.ID,
		RoomID:    cmd.RoomID,
		Reader:    reader.DisplayName,
	}, "")
	r.emit(ctx, event.UnreadCount{RoomID: cmd.RoomID, Count: 0}, reader.ConnectionID)
	return nil
}

// React sets the reactor's single reaction on a message.
// A private message is looked up in the reactor's mailbox first, then among
// the messages the reactor sent to the other party.
func (r *Router) React(ctx context.Context, cmd chat.ReactCommand) error {
	cmd.To = chat.Normalize(cmd.To)
	if err := chat.Validate(cmd); err != nil {
		return err
	}
	reactor, err := r.named(cmd.ConnectionID)
	if err != nil {
		return err
	}

	if cmd.To != "" {
		return r.reactPrivate(ctx, reactor, cmd)
	}

	if err = r.requireMember(cmd.RoomID, reactor); err != nil {
		return err
	}
	message, err := r.rooms.React(cmd.RoomID, cmd.MessageID, reactor.DisplayName, cmd.Symbol)
	if err != nil {
		return err
	}
	r.broadcast(ctx, cmd.RoomID, event.Reaction{
		MessageID:   message.ID,
		RoomID:      cmd.RoomID,
		DisplayName: reactor.DisplayName,
		Symbol:      cmd.Symbol,
	}, "")
	return nil
}

func (r *Router) reactPrivate(ctx context.Context, reactor chat.Identity, cmd chat.ReactCommand) error {
	counterpart := ""
	message, err := r.mailboxes.React(reactor.DisplayName, cmd.MessageID, reactor.DisplayName, cmd.Symbol)
	switch {
	case err == nil:
		counterpart = message.SenderDisplayName
	case errors.Is(err, errors.ErrNotFound):
		sent, findErr := r.mailboxes.Find(cmd.To, cmd.MessageID)
		if findErr != nil || sent.SenderDisplayName != reactor.DisplayName {
			return err
		}
		if message, err = r.mailboxes.React(cmd.To, cmd.MessageID, reactor.DisplayName, cmd.Symbol); err != nil {
			return err
		}
		counterpart = cmd.To
	default:
		return err
	}

	reaction := event.Reaction{MessageID: message.ID, DisplayName: reactor.DisplayName, Symbol: cmd.Symbol}
	if other, err := r.registry.ResolveByName(counterpart); err == nil && other != reactor.ConnectionID {
		r.emit(ctx, reaction, other)
	}
	r.emit(ctx, reaction, reactor.ConnectionID)
	return nil
}

// LoadMore sends one page of a room history to the requester only.
func (r *Router) LoadMore(ctx context.Context, cmd chat.LoadMoreCommand) error {
	cmd.RoomID = chat.RoomID(chat.Normalize(string(cmd.RoomID)))
	if err := chat.Validate(cmd); err != nil {
		return err
	}
	if _, err := r.registry.Get(cmd.ConnectionID); err != nil {
		return err
	}
	size := cmd.PageSize
	if size == 0 {
		size = r.pageSize
	}
	messages, err := r.rooms.Page(cmd.RoomID, cmd.Page, size)
	if err != nil {
		return err
	}
	r.emit(ctx, event.Messages{RoomID: cmd.RoomID, Page: cmd.Page, Messages: messages}, cmd.ConnectionID)
	return nil
}

// Disconnect forgets the connection and removes it from every room it
// joined. The transport calls it once per connection.
func (r *Router) Disconnect(ctx context.Context, id chat.ConnectionID) error {
	identity, err := r.registry.Unregister(id)
	if err != nil {
		return err
	}
	for _, roomID := range identity.JoinedRooms() {
		if err = r.rooms.Leave(roomID, id); err != nil {
			r.log.Debug("Leaving unknown room", "room_id", roomID, "error", err)
			continue
		}
		r.broadcastUserList(ctx, roomID)
		r.broadcast(ctx, roomID, event.UserLeft{
			RoomID:       roomID,
			DisplayName:  identity.DisplayName,
			ConnectionID: id,
		}, "")
	}
	r.log.Info("Connection closed", "username", identity.DisplayName, "connection_id", id)
	return nil
}

// RoomHistory is the live history of a room, for inspection.
func (r *Router) RoomHistory(id chat.RoomID) ([]chat.Message, error) {
	return r.rooms.History(id)
}

// Identities lists every live connection, for inspection.
func (r *Router) Identities() []chat.Identity {
	return r.registry.Snapshot()
}

func (r *Router) Rooms() []chat.RoomID {
	return r.rooms.IDs()
}

func (r *Router) Stats() Stats {
	return Stats{
		Rooms:           r.rooms.Len(),
		Identities:      r.registry.Len(),
		Mailboxes:       r.mailboxes.Len(),
		RoomMessages:    r.rooms.MessageCount(),
		PrivateMessages: r.mailboxes.MessageCount(),
	}
}

// named returns the identity of a connection that already joined.
func (r *Router) named(id chat.ConnectionID) (chat.Identity, error) {
	identity, err := r.registry.Get(id)
	if err != nil {
		return chat.Identity{}, err
	}
	if identity.IsAnonymous() {
		return chat.Identity{}, fmt.Errorf("%w: connection %s has not joined", errors.ErrInvalidState, id)
	}
	return identity, nil
}

func (r *Router) requireMember(roomID chat.RoomID, identity chat.Identity) error {
	if !r.rooms.Exists(roomID) {
		return fmt.Errorf("%w: room %s", errors.ErrNotFound, roomID)
	}
	if !r.rooms.IsMember(roomID, identity.ConnectionID) {
		return fmt.Errorf("%w: %s has not joined room %s", errors.ErrInvalidState, identity.DisplayName, roomID)
	}
	return nil
}

func (r *Router) newMessage(sender chat.Identity, text string, attachment *chat.Attachment) chat.Message {
	if r.sanitizer != nil && text != "" {
		text = r.sanitizer.Sanitize(sender.DisplayName, text)
	}
	return chat.Message{
		ID:                 r.ids.Next(),
		SenderDisplayName:  sender.DisplayName,
		SenderConnectionID: sender.ConnectionID,
		Text:               text,
		Attachment:         attachment,
		CreatedAt:          r.now(),
		Reactions:          map[string]string{},
	}
}

func (r *Router) prepareAttachment(a *chat.Attachment) (*chat.Attachment, error) {
	if a == nil || (a.URI == "" && len(a.Data) == 0) {
		return nil, nil
	}
	if r.maxAttachmentBytes > 0 && len(a.Data) > r.maxAttachmentBytes {
		return nil, fmt.Errorf("%w: attachment of %d bytes exceeds %d",
			errors.ErrInvalidInput, len(a.Data), r.maxAttachmentBytes)
	}
	prepared := *a
	if prepared.MimeType == "" && len(prepared.Data) > 0 {
		prepared.MimeType = mimetypes.Sniff(prepared.Data)
	}
	return &prepared, nil
}

func (r *Router) broadcastUserList(ctx context.Context, roomID chat.RoomID) {
	names, err := r.rooms.MemberNames(roomID, r.registry)
	if err != nil {
		return
	}
	r.broadcast(ctx, roomID, event.UserList{RoomID: roomID, Users: names}, "")
}

// broadcast pushes e to every member of the room but except.
func (r *Router) broadcast(ctx context.Context, roomID chat.RoomID, e event.Event, except chat.ConnectionID) {
	members, err := r.rooms.Members(roomID)
	if err != nil {
		return
	}
	r.emit(ctx, e, lo.Without(members, except)...)
}

// emit pushes e to the sinks of to. The acting connection's cancellation
// must not cost other connections their events.
func (r *Router) emit(ctx context.Context, e event.Event, to ...chat.ConnectionID) {
	ctx = context.WithoutCancel(ctx)
	for _, s := range r.registry.Sinks(to...) {
		if err := s.Consume(ctx, e); err != nil {
			r.log.Debug("Event not delivered", "event", e.Name(), "error", err)
		}
	}
}

func (r *Router) publish(message chat.Message) {
	if r.journal == nil {
		return
	}
	select {
	case r.journal <- event.MessagePosted{Message: message.Clone()}:
	default:
		r.log.Debug("Journal channel full, entry dropped", "message_id", message.ID)
	}
}

func sortedKeys(m map[chat.ConnectionID]int) []chat.ConnectionID {
	keys := lo.Keys(m)
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
