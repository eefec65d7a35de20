// Package ws adapts websocket connections to the router.
// Each socket gets a read pump calling the router synchronously and a write
// pump draining the connection sink, as two goroutines.
package ws

import (
	"chat-relay/contract"
	"chat-relay/domain/chat"
	"chat-relay/domain/event"
	"chat-relay/runtime"
	"chat-relay/sink"
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	DefaultReadLimit  = 1 << 20
	DefaultBufferSize = 256

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Relay is what the transport needs from the router.
type Relay interface {
	Connect(id chat.ConnectionID, sink contract.EventSink) chat.Identity
	Join(ctx context.Context, cmd chat.JoinCommand) (runtime.JoinAck, error)
	SendToRoom(ctx context.Context, cmd chat.SendToRoomCommand) (runtime.SendAck, error)
	SendPrivate(ctx context.Context, cmd chat.SendPrivateCommand) (runtime.SendAck, error)
	SetTyping(ctx context.Context, cmd chat.TypingCommand) error
	MarkRead(ctx context.Context, cmd chat.MarkReadCommand) error
	React(ctx context.Context, cmd chat.ReactCommand) error
	LoadMore(ctx context.Context, cmd chat.LoadMoreCommand) error
	Disconnect(ctx context.Context, id chat.ConnectionID) error
}

type Handler struct {
	log        *slog.Logger
	relay      Relay
	upgrader   websocket.Upgrader
	bufferSize int
	readLimit  int64
}

func NewHandler(log *slog.Logger, relay Relay, bufferSize int, readLimit int64) *Handler {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if readLimit <= 0 {
		readLimit = DefaultReadLimit
	}
	return &Handler{
		log:   log,
		relay: relay,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// No authentication, any origin may connect
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		bufferSize: bufferSize,
		readLimit:  readLimit,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	id := chat.ConnectionID(uuid.NewString())
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	c := &client{
		id:    id,
		log:   h.log.With("connection_id", id),
		conn:  conn,
		relay: h.relay,
		sink:  sink.NewConnectionSink(h.log, h.bufferSize),
		done:  make(chan struct{}),
	}
	h.relay.Connect(id, c.sink)

	go c.writePump(cancel)
	c.readPump(ctx, h.readLimit)
}

// reply is an ack frame, queued behind the events the action emitted.
type reply []byte

func (reply) Name() event.Name { return AckType }

type client struct {
	id    chat.ConnectionID
	log   *slog.Logger
	conn  *websocket.Conn
	relay Relay
	sink  *sink.ConnectionSink
	done  chan struct{}
}

// readPump owns the connection until the socket or the write pump fails,
// then disconnects it from the relay exactly once.
func (c *client) readPump(ctx context.Context, readLimit int64) {
	defer func() {
		if err := c.relay.Disconnect(context.WithoutCancel(ctx), c.id); err != nil {
			c.log.Debug("Disconnect failed", "error", err)
		}
		if dropped := c.sink.Dropped(); dropped > 0 {
			c.log.Warn("Slow connection lost events", "dropped_events", dropped)
		}
		close(c.done)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("Read error", "error", err)
			}
			return
		}
		frame := Dispatch(ctx, c.log, c.relay, c.id, data)
		if frame == nil {
			continue
		}
		select {
		case c.sink.Events <- reply(frame):
		case <-ctx.Done():
			return
		}
	}
}

func (c *client) writePump(cancel context.CancelFunc) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		cancel()
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case e := <-c.sink.Events:
			if err := c.write(e); err != nil {
				c.log.Debug("Write error", "event", e.Name(), "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.Debug("Ping error", "error", err)
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

func (c *client) write(e event.Event) error {
	var data []byte
	switch frame := e.(type) {
	case reply:
		data = frame
	default:
		encoded, err := EncodeEvent(e)
		if err != nil {
			c.log.Error("Event encoding failed", "event", e.Name(), "error", err)
			return nil
		}
		data = encoded
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}
