//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const keyPrefix = "msg:"

type Scope string

const (
	RoomScope    Scope = "room"
	PrivateScope Scope = "private"
)

// IMessageRepository is the message journal. It is written as messages are
// stored and only read back by inspection tools, never by the relay.
type IMessageRepository interface {
	StoreMessage(message DiskMessage) error
	GetMessages(scope Scope, target string, cursor *string) ([]DiskMessage, *string, error)
	ListMessages(limit int) ([]DiskMessage, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// DiskMessage is a journal entry. Target is the room id of a room message
// and the recipient name of a private one.
type DiskMessage struct {
	ID            uuid.UUID
	MessageID     uint64
	Scope         Scope
	Target        string
	Author        string
	Content       string
	AttachmentURI string
	MimeType      string
	At            time.Time
}

// StoreMessage persists a message in BadgerDB.
// The key is formatted as "msg:{scope}:{target}:{timestamp_padded}:{uuid}":
//  1. 19-digit zero padding keeps a target's entries in chronological order.
//  2. The UUID separates two messages stored in the same nanosecond.
//
// The target is query-escaped so a ':' in a room id never crosses prefixes.
func (m MessageRepository) StoreMessage(message DiskMessage) error {
	key := fmt.Sprintf("%s%019d:%s", targetPrefix(message.Scope, message.Target), message.At.UnixNano(), message.ID)
	value, err := encode(message)
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

// GetMessages walks one room or one mailbox backwards, newest first.
// The returned cursor resumes right after the last entry read.
// It stops collecting messages once limitMessages is reached.
func (m MessageRepository) GetMessages(scope Scope, target string, cursor *string) ([]DiskMessage, *string, error) {
	var values [][]byte
	var lastKey string
	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := targetPrefix(scope, target)
		prefix := []byte(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Past the newest possible timestamp, then walk back
			seekKey = append(bytes.Clone(prefix), []byte("9999999999999999999")...)
		default:
			seekKey = append(bytes.Clone(prefix), []byte(*cursor)...)
		}

		it.Seek(seekKey)
		if cursor != nil && it.ValidForPrefix(prefix) && bytes.Equal(it.Item().Key(), seekKey) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(values) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", *m.limitMessages))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefixStr):])
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			values = append(values, value)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	messages, err := decodeAll(values)
	if err != nil {
		return nil, nil, err
	}
	return messages, &lastKey, nil
}

// ListMessages returns up to limit entries across every target, in key order.
// A limit of zero or less returns everything.
func (m MessageRepository) ListMessages(limit int) ([]DiskMessage, error) {
	var values [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(keyPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(values) == limit {
				break
			}
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			values = append(values, value)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decodeAll(values)
}

func targetPrefix(scope Scope, target string) string {
	return fmt.Sprintf("%s%s:%s:", keyPrefix, scope, url.QueryEscape(target))
}

func encode(message DiskMessage) ([]byte, error) {
	s, err := structpb.NewStruct(map[string]any{
		"id":             message.ID.String(),
		"message_id":     float64(message.MessageID),
		"scope":          string(message.Scope),
		"target":         message.Target,
		"author":         message.Author,
		"content":        message.Content,
		"attachment_uri": message.AttachmentURI,
		"mime_type":      message.MimeType,
		"at":             message.At.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

func decodeAll(values [][]byte) ([]DiskMessage, error) {
	messages := make([]DiskMessage, 0, len(values))
	for _, v := range values {
		message, err := decode(v)
		if err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, nil
}

// DecodeMessage reads back one raw journal value.
func DecodeMessage(value []byte) (DiskMessage, error) {
	return decode(value)
}

func decode(value []byte) (DiskMessage, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(value, &s); err != nil {
		return DiskMessage{}, err
	}
	fields := s.GetFields()
	str := func(name string) string { return fields[name].GetStringValue() }

	parsedID, err := uuid.Parse(str("id"))
	if err != nil {
		return DiskMessage{}, err
	}
	at, err := time.Parse(time.RFC3339Nano, str("at"))
	if err != nil {
		return DiskMessage{}, err
	}
	return DiskMessage{
		ID:            parsedID,
		MessageID:     uint64(fields["message_id"].GetNumberValue()),
		Scope:         Scope(str("scope")),
		Target:        str("target"),
		Author:        str("author"),
		Content:       str("content"),
		AttachmentURI: str("attachment_uri"),
		MimeType:      str("mime_type"),
		At:            at.UTC(),
	}, nil
}
