package ws

import (
	"chat-relay/domain/chat"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"encoding/json"
	"fmt"
)

// Inbound frame types.
const (
	JoinType           = "join"
	LegacyJoinType     = "user_join"
	SendMessageType    = "send_message"
	PrivateMessageType = "private_message"
	TypingType         = "typing"
	ReadType           = "read"
	ReactType          = "react"
	LoadMoreType       = "load_more"

	AckType = "ack"
)

// Envelope is one websocket text frame in either direction.
// Ack correlates a reply with the frame that asked for it.
type Envelope struct {
	Type    string          `json:"type"`
	Ack     uint64          `json:"ack,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Decode parses an inbound frame into the command it carries, bound to c.
func Decode(data []byte, c chat.ConnectionID) (chat.Command, Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, env, fmt.Errorf("%w: malformed frame: %s", errors.ErrInvalidInput, err.Error())
	}

	var cmd chat.Command
	var err error
	switch env.Type {
	case JoinType, LegacyJoinType:
		var join chat.JoinCommand
		err = unmarshalPayload(env.Payload, &join)
		join.ConnectionID = c
		cmd = join
	case SendMessageType:
		var send chat.SendToRoomCommand
		err = unmarshalPayload(env.Payload, &send)
		send.ConnectionID = c
		cmd = send
	case PrivateMessageType:
		var send chat.SendPrivateCommand
		err = unmarshalPayload(env.Payload, &send)
		send.ConnectionID = c
		cmd = send
	case TypingType:
		var typing chat.TypingCommand
		err = unmarshalPayload(env.Payload, &typing)
		typing.ConnectionID = c
		cmd = typing
	case ReadType:
		var read chat.MarkReadCommand
		err = unmarshalPayload(env.Payload, &read)
		read.ConnectionID = c
		cmd = read
	case ReactType:
		var react chat.ReactCommand
		err = unmarshalPayload(env.Payload, &react)
		react.ConnectionID = c
		cmd = react
	case LoadMoreType:
		loadMore := chat.LoadMoreCommand{Page: 1}
		err = unmarshalPayload(env.Payload, &loadMore)
		loadMore.ConnectionID = c
		cmd = loadMore
	default:
		return nil, env, fmt.Errorf("%w: %q", errors.ErrUnknownAction, env.Type)
	}
	if err != nil {
		return nil, env, err
	}
	return cmd, env, nil
}

func unmarshalPayload(payload json.RawMessage, v any) error {
	if len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: malformed payload: %s", errors.ErrInvalidInput, err.Error())
	}
	return nil
}

// EncodeEvent wraps an outbound event, its name becoming the frame type.
func EncodeEvent(e event.Event) ([]byte, error) {
	return encode(string(e.Name()), 0, e)
}

func EncodeAck(ack uint64, payload any) ([]byte, error) {
	return encode(AckType, ack, payload)
}

// dropReason is the stable reason logged for a dropped action.
func dropReason(err error) string {
	switch {
	case errors.Is(err, errors.ErrUnknownAction):
		return "unknown_action"
	case errors.Kind(err) == errors.ErrInvalidInput:
		return "invalid_input"
	case errors.Kind(err) == errors.ErrInvalidState:
		return "invalid_state"
	case errors.Kind(err) == errors.ErrNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

func encode(frameType string, ack uint64, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: frameType, Ack: ack, Payload: raw})
}
