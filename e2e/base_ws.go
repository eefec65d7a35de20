package e2e

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

const frameTimeout = 5 * time.Second

type BaseWsSuite struct {
	suite.Suite
	Config Config
}

// Frame is one envelope as it travels on the socket.
type Frame struct {
	Type    string          `json:"type"`
	Ack     uint64          `json:"ack,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SetupSuite loads the environment configuration and skips without a relay
func (s *BaseWsSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.RelayAddr == "" {
		s.T().Skip("RELAY_ADDR not set")
	}
}

// Client is a websocket connection logging every frame under name.
type Client struct {
	suite *BaseWsSuite
	name  string
	conn  *websocket.Conn
	ack   uint64
}

// Dial opens a connection to the relay, closed at the end of the test.
func (s *BaseWsSuite) Dial(name string) *Client {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)

	u := url.URL{Scheme: "ws", Host: s.Config.RelayAddr, Path: "/ws"}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	s.Require().NoError(err, "Failed to connect to relay at "+u.String())
	s.T().Cleanup(func() { _ = conn.Close() })
	return &Client{suite: s, name: name, conn: conn}
}

// Send writes an action and returns the ack id it carries.
func (c *Client) Send(action string, payload any) uint64 {
	raw, err := json.Marshal(payload)
	c.suite.Require().NoError(err)
	c.ack++
	frame := Frame{Type: action, Ack: c.ack, Payload: raw}
	c.log("->", frame)
	c.suite.Require().NoError(c.conn.WriteJSON(frame))
	return c.ack
}

// Next reads frames until one of type wanted arrives and decodes its payload into out.
func (c *Client) Next(wanted string, out any) Frame {
	for {
		s := c.suite
		s.Require().NoError(c.conn.SetReadDeadline(time.Now().Add(frameTimeout)))
		var frame Frame
		s.Require().NoError(c.conn.ReadJSON(&frame), "%s waiting for %s", c.name, wanted)
		c.log("<-", frame)
		if frame.Type != wanted {
			continue
		}
		if out != nil {
			s.Require().NoError(json.Unmarshal(frame.Payload, out))
		}
		return frame
	}
}

func (c *Client) log(direction string, frame Frame) {
	line := fmt.Sprintf("%s %s %s", c.name, direction, frame.Type)
	if c.suite.Config.DebugJSON {
		line += " " + string(frame.Payload)
	}
	c.suite.T().Log(line)
}
