package ws

import (
	"chat-relay/domain/chat"
	"chat-relay/runtime"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (*httptest.Server, *runtime.Router) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	router := runtime.NewRouter(log, runtime.NewRegistry(), runtime.NewRoomStore(0), runtime.NewMailboxStore(), 0, 0)
	server := httptest.NewServer(NewHandler(log, router, 0, 0))
	t.Cleanup(server.Close)
	return server, router
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, frame string) {
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
}

// next reads frames until one of the given type shows up.
func next(t *testing.T, conn *websocket.Conn, frameType string) Envelope {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var env Envelope
		require.NoError(t, json.Unmarshal(data, &env))
		if env.Type == frameType {
			return env
		}
	}
}

func TestHandler_LobbyScenario(t *testing.T) {
	req := require.New(t)
	server, router := newServer(t)
	alice := dial(t, server)
	bob := dial(t, server)

	// Given alice and bob in the lobby
	send(t, alice, `{"type":"join","ack":1,"payload":{"username":"alice","roomId":"lobby"}}`)
	ack := next(t, alice, AckType)
	req.Equal(uint64(1), ack.Ack)
	var joinAck runtime.JoinAck
	req.NoError(json.Unmarshal(ack.Payload, &joinAck))
	req.Equal(runtime.JoinAck{Status: runtime.StatusOK, RoomID: "lobby"}, joinAck)

	send(t, bob, `{"type":"join","ack":1,"payload":{"username":"bob","roomId":"lobby"}}`)
	next(t, bob, AckType)

	// When alice says hi
	send(t, alice, `{"type":"send_message","ack":2,"payload":{"roomId":"lobby","message":"hi"}}`)

	// Then bob receives it
	received := next(t, bob, "receive_message")
	var message chat.Message
	req.NoError(json.Unmarshal(received.Payload, &message))
	req.Equal("hi", message.Text)
	req.Equal("alice", message.SenderDisplayName)

	ack = next(t, alice, AckType)
	var sendAck runtime.SendAck
	req.NoError(json.Unmarshal(ack.Payload, &sendAck))
	req.Equal(runtime.StatusDelivered, sendAck.Status)
	req.Equal(message.ID, sendAck.MessageID)

	// When bob leaves, alice is told
	req.NoError(bob.Close())
	left := next(t, alice, "user_left")
	req.Contains(string(left.Payload), `"username":"bob"`)
	req.Eventually(func() bool { return len(router.Identities()) == 1 }, time.Second, 10*time.Millisecond)
}

// framesUntilAck reads every frame up to and including the next ack.
func framesUntilAck(t *testing.T, conn *websocket.Conn) ([]string, Envelope) {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var types []string
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var env Envelope
		require.NoError(t, json.Unmarshal(data, &env))
		types = append(types, env.Type)
		if env.Type == AckType {
			return types, env
		}
	}
}

func TestHandler_FailedActionIsDropped(t *testing.T) {
	req := require.New(t)
	server, _ := newServer(t)
	conn := dial(t, server)

	// Given a send before any join, which fails
	send(t, conn, `{"type":"send_message","ack":5,"payload":{"roomId":"lobby","message":"too early"}}`)
	send(t, conn, `{"type":"dance","ack":6}`)
	// When the client then joins
	send(t, conn, `{"type":"join","ack":7,"payload":{"username":"alice","roomId":"lobby"}}`)

	// Then nothing answered the failures, the first reply is the join
	types, env := framesUntilAck(t, conn)
	req.Equal(uint64(7), env.Ack)
	req.Equal([]string{"messages", "private_messages", "unread_count", "user_list", "user_joined", AckType}, types)
}

func TestHandler_OnlyJoinAndSendsAreAcked(t *testing.T) {
	req := require.New(t)
	server, _ := newServer(t)
	conn := dial(t, server)
	send(t, conn, `{"type":"join","ack":1,"payload":{"username":"alice","roomId":"lobby"}}`)
	next(t, conn, AckType)

	// Typing and load_more carry ack ids but get no ack
	send(t, conn, `{"type":"typing","ack":8,"payload":{"roomId":"lobby","isTyping":true}}`)
	send(t, conn, `{"type":"load_more","ack":9,"payload":{"roomId":"lobby","page":1}}`)
	send(t, conn, `{"type":"send_message","ack":10,"payload":{"roomId":"lobby","message":"hi"}}`)

	types, env := framesUntilAck(t, conn)
	req.Equal(uint64(10), env.Ack)
	req.Equal([]string{"messages", "receive_message", AckType}, types)
}
