// Package event defines what the relay pushes to connections.
// Each type is the payload of one logical event, Name is its wire identifier.
package event

import (
	"chat-relay/domain/chat"
)

type Name string

const (
	MessagesName        Name = "messages"
	PrivateMessagesName Name = "private_messages"
	UnreadCountName     Name = "unread_count"
	UserListName        Name = "user_list"
	UserJoinedName      Name = "user_joined"
	UserLeftName        Name = "user_left"
	ReceiveMessageName  Name = "receive_message"
	PrivateMessageName  Name = "private_message"
	TypingUsersName     Name = "typing_users"
	ReadReceiptName     Name = "read_receipt"
	ReactionName        Name = "reaction"

	// MessagePostedName never leaves the process, it feeds the journal pipeline.
	MessagePostedName Name = "message_posted"
)

type Event interface {
	Name() Name
}

// Messages carries a room history or one page of it.
type Messages struct {
	RoomID   chat.RoomID    `json:"roomId"`
	Page     int            `json:"page,omitempty"`
	Messages []chat.Message `json:"messages"`
}

type PrivateMessages struct {
	Messages []chat.Message `json:"messages"`
}

type UnreadCount struct {
	RoomID chat.RoomID `json:"roomId"`
	Count  int         `json:"count"`
}

type UserList struct {
	RoomID chat.RoomID `json:"roomId"`
	Users  []string    `json:"users"`
}

type UserJoined struct {
	RoomID       chat.RoomID       `json:"roomId"`
	DisplayName  string            `json:"username"`
	ConnectionID chat.ConnectionID `json:"id"`
}

type UserLeft struct {
	RoomID       chat.RoomID       `json:"roomId"`
	DisplayName  string            `json:"username"`
	ConnectionID chat.ConnectionID `json:"id"`
}

type ReceiveMessage struct {
	chat.Message
}

type PrivateMessage struct {
	chat.Message
}

// TypingUsers lists who is typing: the sender, or nobody once they stop.
type TypingUsers struct {
	RoomID chat.RoomID `json:"roomId,omitempty"`
	Users  []string    `json:"users"`
}

type ReadReceipt struct {
	MessageID chat.MessageID `json:"messageId"`
	RoomID    chat.RoomID    `json:"roomId,omitempty"`
	Reader    string         `json:"reader"`
}

type Reaction struct {
	MessageID   chat.MessageID `json:"messageId"`
	RoomID      chat.RoomID    `json:"roomId,omitempty"`
	DisplayName string         `json:"username"`
	Symbol      string         `json:"reaction"`
}

// MessagePosted is published once per stored room or private message.
type MessagePosted struct {
	Message chat.Message
}

func (Messages) Name() Name        { return MessagesName }
func (PrivateMessages) Name() Name { return PrivateMessagesName }
func (UnreadCount) Name() Name     { return UnreadCountName }
func (UserList) Name() Name        { return UserListName }
func (UserJoined) Name() Name      { return UserJoinedName }
func (UserLeft) Name() Name        { return UserLeftName }
func (ReceiveMessage) Name() Name  { return ReceiveMessageName }
func (PrivateMessage) Name() Name  { return PrivateMessageName }
func (TypingUsers) Name() Name     { return TypingUsersName }
func (ReadReceipt) Name() Name     { return ReadReceiptName }
func (Reaction) Name() Name        { return ReactionName }
func (MessagePosted) Name() Name   { return MessagePostedName }
