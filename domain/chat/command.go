package chat

import (
	"fmt"
	"strings"

	"chat-relay/errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Command is an inbound client action bound to the connection that issued it.
type Command interface {
	Origin() ConnectionID
}

type JoinCommand struct {
	ConnectionID ConnectionID `json:"-"`
	DisplayName  string       `json:"username" validate:"required,max=64"`
	RoomID       RoomID       `json:"roomId" validate:"max=64"`
}

type SendToRoomCommand struct {
	ConnectionID ConnectionID `json:"-"`
	RoomID       RoomID       `json:"roomId" validate:"required"`
	Text         string       `json:"message"`
	Attachment   *Attachment  `json:"file"`
}

type SendPrivateCommand struct {
	ConnectionID ConnectionID `json:"-"`
	To           string       `json:"to" validate:"required"`
	Text         string       `json:"message"`
	Attachment   *Attachment  `json:"file"`
}

// TypingCommand targets either a room or a single user, never both.
type TypingCommand struct {
	ConnectionID ConnectionID `json:"-"`
	IsTyping     bool         `json:"isTyping"`
	RoomID       RoomID       `json:"roomId" validate:"required_without=To,excluded_with=To"`
	To           string       `json:"to"`
}

type MarkReadCommand struct {
	ConnectionID ConnectionID `json:"-"`
	MessageID    MessageID    `json:"messageId" validate:"required"`
	RoomID       RoomID       `json:"roomId" validate:"required_without=To,excluded_with=To"`
	To           string       `json:"to"`
}

type ReactCommand struct {
	ConnectionID ConnectionID `json:"-"`
	MessageID    MessageID    `json:"messageId" validate:"required"`
	Symbol       string       `json:"reaction" validate:"required,max=32"`
	RoomID       RoomID       `json:"roomId" validate:"required_without=To,excluded_with=To"`
	To           string       `json:"to"`
}

type LoadMoreCommand struct {
	ConnectionID ConnectionID `json:"-"`
	RoomID       RoomID       `json:"roomId" validate:"required"`
	Page         int          `json:"page" validate:"min=1"`
	PageSize     int          `json:"limit" validate:"min=0,max=100"`
}

func (c JoinCommand) Origin() ConnectionID        { return c.ConnectionID }
func (c SendToRoomCommand) Origin() ConnectionID  { return c.ConnectionID }
func (c SendPrivateCommand) Origin() ConnectionID { return c.ConnectionID }
func (c TypingCommand) Origin() ConnectionID      { return c.ConnectionID }
func (c MarkReadCommand) Origin() ConnectionID    { return c.ConnectionID }
func (c ReactCommand) Origin() ConnectionID       { return c.ConnectionID }
func (c LoadMoreCommand) Origin() ConnectionID    { return c.ConnectionID }

// Validate checks the struct tags of cmd. Every failure wraps ErrInvalidInput.
func Validate(cmd Command) error {
	if err := validate.Struct(cmd); err != nil {
		return fmt.Errorf("%w: %s", errors.ErrInvalidInput, err.Error())
	}
	return nil
}

// Normalize trims the free-form identifiers of a display name or room id.
// A name made only of spaces becomes blank.
func Normalize(s string) string {
	return strings.TrimSpace(s)
}
