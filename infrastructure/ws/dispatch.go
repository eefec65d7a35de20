package ws

import (
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"context"
	"fmt"
	"log/slog"
)

// Dispatch runs one inbound frame against the relay and returns the ack
// frame, or nil when none is due.
// Only join and both sends are acked. A failed action is dropped: no ack and
// no reply, the sender has to cope with the missing ack.
func Dispatch(ctx context.Context, log *slog.Logger, relay Relay, c chat.ConnectionID, data []byte) []byte {
	cmd, env, err := Decode(data, c)
	if err != nil {
		log.Debug("Frame dropped", "type", env.Type, "reason", dropReason(err), "error", err)
		return nil
	}

	var result any
	switch cmd := cmd.(type) {
	case chat.JoinCommand:
		result, err = relay.Join(ctx, cmd)
	case chat.SendToRoomCommand:
		result, err = relay.SendToRoom(ctx, cmd)
	case chat.SendPrivateCommand:
		result, err = relay.SendPrivate(ctx, cmd)
	case chat.TypingCommand:
		err = relay.SetTyping(ctx, cmd)
	case chat.MarkReadCommand:
		err = relay.MarkRead(ctx, cmd)
	case chat.ReactCommand:
		err = relay.React(ctx, cmd)
	case chat.LoadMoreCommand:
		err = relay.LoadMore(ctx, cmd)
	default:
		err = fmt.Errorf("%w: %T", errors.ErrUnknownAction, cmd)
	}
	if err != nil {
		log.Debug("Action dropped", "type", env.Type, "reason", dropReason(err), "error", err)
		return nil
	}
	if result == nil {
		return nil
	}

	frame, err := EncodeAck(env.Ack, result)
	if err != nil {
		log.Error("Ack encoding failed", "type", env.Type, "error", err)
		return nil
	}
	return frame
}
