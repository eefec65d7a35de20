package ws

import (
	"chat-relay/domain/chat"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	testCases := []struct {
		name    string
		frame   string
		want    chat.Command
		wantAck uint64
		wantErr error
	}{
		{
			name:    "join",
			frame:   `{"type":"join","ack":1,"payload":{"username":"alice","roomId":"lobby"}}`,
			want:    chat.JoinCommand{ConnectionID: "c1", DisplayName: "alice", RoomID: "lobby"},
			wantAck: 1,
		},
		{
			name:  "legacy join",
			frame: `{"type":"user_join","payload":{"username":"alice"}}`,
			want:  chat.JoinCommand{ConnectionID: "c1", DisplayName: "alice"},
		},
		{
			name:  "send message with file",
			frame: `{"type":"send_message","payload":{"roomId":"lobby","message":"hi","file":{"uri":"https://example.org/a.png"}}}`,
			want: chat.SendToRoomCommand{ConnectionID: "c1", RoomID: "lobby", Text: "hi",
				Attachment: &chat.Attachment{URI: "https://example.org/a.png"}},
		},
		{
			name:  "private message",
			frame: `{"type":"private_message","payload":{"to":"bob","message":"psst"}}`,
			want:  chat.SendPrivateCommand{ConnectionID: "c1", To: "bob", Text: "psst"},
		},
		{
			name:  "typing",
			frame: `{"type":"typing","payload":{"isTyping":true,"to":"bob"}}`,
			want:  chat.TypingCommand{ConnectionID: "c1", IsTyping: true, To: "bob"},
		},
		{
			name:  "read",
			frame: `{"type":"read","payload":{"messageId":4,"roomId":"lobby"}}`,
			want:  chat.MarkReadCommand{ConnectionID: "c1", MessageID: 4, RoomID: "lobby"},
		},
		{
			name:  "react",
			frame: `{"type":"react","payload":{"messageId":4,"reaction":"👍","to":"bob"}}`,
			want:  chat.ReactCommand{ConnectionID: "c1", MessageID: 4, Symbol: "👍", To: "bob"},
		},
		{
			name:  "load more defaults to first page",
			frame: `{"type":"load_more","payload":{"roomId":"lobby"}}`,
			want:  chat.LoadMoreCommand{ConnectionID: "c1", RoomID: "lobby", Page: 1},
		},
		{
			name:    "unknown type",
			frame:   `{"type":"dance","ack":3}`,
			wantAck: 3,
			wantErr: errors.ErrUnknownAction,
		},
		{
			name:    "malformed frame",
			frame:   `{"type":`,
			wantErr: errors.ErrInvalidInput,
		},
		{
			name:    "malformed payload",
			frame:   `{"type":"read","payload":{"messageId":"four"}}`,
			wantErr: errors.ErrInvalidInput,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)

			cmd, env, err := Decode([]byte(tc.frame), "c1")

			req.Equal(tc.wantAck, env.Ack)
			if tc.wantErr != nil {
				req.ErrorIs(err, tc.wantErr)
				return
			}
			req.NoError(err)
			req.Equal(tc.want, cmd)
		})
	}
}

func TestEncodeEvent_FlattensMessage(t *testing.T) {
	req := require.New(t)

	frame, err := EncodeEvent(event.ReceiveMessage{Message: chat.Message{
		ID:                7,
		SenderDisplayName: "alice",
		Text:              "hi",
		RoomID:            "lobby",
		Reactions:         map[string]string{},
	}})
	req.NoError(err)

	var decoded struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	req.NoError(json.Unmarshal(frame, &decoded))
	req.Equal("receive_message", decoded.Type)
	req.Equal(float64(7), decoded.Payload["id"])
	req.Equal("alice", decoded.Payload["sender"])
	req.Equal("hi", decoded.Payload["message"])
	req.Equal("lobby", decoded.Payload["roomId"])
}

func TestDropReason(t *testing.T) {
	req := require.New(t)

	req.Equal("invalid_input", dropReason(fmt.Errorf("%w: blank", errors.ErrInvalidInput)))
	req.Equal("invalid_state", dropReason(fmt.Errorf("%w: not joined", errors.ErrInvalidState)))
	req.Equal("not_found", dropReason(fmt.Errorf("%w: room", errors.ErrNotFound)))
	req.Equal("unknown_action", dropReason(fmt.Errorf("%w: dance", errors.ErrUnknownAction)))
	req.Equal("internal", dropReason(fmt.Errorf("boom")))
}
