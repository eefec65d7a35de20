package storage

import (
	"chat-relay/contract"
	"chat-relay/domain/chat"
	"chat-relay/domain/event"
	"chat-relay/repositories"
	"context"
	"log/slog"

	"github.com/google/uuid"
)

var _ contract.EventSink = DiskSink{}

// DiskSink writes every stored message to the journal.
type DiskSink struct {
	repository repositories.IMessageRepository
	log        *slog.Logger
}

func NewDiskSink(repository repositories.IMessageRepository, log *slog.Logger) DiskSink {
	return DiskSink{repository: repository, log: log}
}

func (d DiskSink) Consume(ctx context.Context, e event.Event) error {
	switch evt := e.(type) {
	case event.MessagePosted:
		if err := ctx.Err(); err != nil {
			return err
		}
		return d.repository.StoreMessage(toDiskMessage(evt.Message))
	default:
		d.log.Debug("Event not journaled", "event", e.Name())
		return nil
	}
}

func toDiskMessage(m chat.Message) repositories.DiskMessage {
	dm := repositories.DiskMessage{
		ID:        uuid.New(),
		MessageID: uint64(m.ID),
		Scope:     repositories.RoomScope,
		Target:    string(m.RoomID),
		Author:    m.SenderDisplayName,
		Content:   m.Text,
		At:        m.CreatedAt,
	}
	if m.IsPrivate {
		dm.Scope = repositories.PrivateScope
		dm.Target = m.To
	}
	if m.Attachment != nil {
		dm.AttachmentURI = m.Attachment.URI
		dm.MimeType = string(m.Attachment.MimeType)
	}
	return dm
}
