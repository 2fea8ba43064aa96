package server

import (
	"time"

	"github.com/parley-chat/parley/internal/types"
)

// ClientEvent is the tagged union of inbound events. Exactly one field
// is set per event.
type ClientEvent struct {
	Login            *Login            `json:"login,omitempty"`
	Logout           *Logout           `json:"logout,omitempty"`
	MessageChatroom  *MessageChatroom  `json:"messageChatroom,omitempty"`
	MessageUser      *MessageUser      `json:"messageUser,omitempty"`
	TypingInChatroom *TypingInChatroom `json:"typingInChatroom,omitempty"`
	TypingDirect     *TypingDirect     `json:"typingDirect,omitempty"`
}

type Login struct {
	UserId   string `json:"userId"`
	Username string `json:"username"`
}

type Logout struct{}

type MessageChatroom struct {
	ChatroomId string `json:"chatroomId"`
	Message    string `json:"message"`
}

type MessageUser struct {
	ToUserId string `json:"toUserId"`
	Message  string `json:"message"`
}

type TypingInChatroom struct {
	ToChatroomId string `json:"toChatroomId"`
	Typing       bool   `json:"typing"`
}

type TypingDirect struct {
	ToUserId string `json:"toUserId"`
	Typing   bool   `json:"typing"`
}

// ServerEvent is the tagged union of outbound notifications.
type ServerEvent struct {
	Timestamp    time.Time       `json:"timestamp"`
	Message      *types.Message  `json:"message,omitempty"`
	OnlineStatus *OnlineStatus   `json:"onlineStatus,omitempty"`
	NewChatroom  *types.Chatroom `json:"newChatroom,omitempty"`
	NewUser      *types.User     `json:"newUser,omitempty"`
	TypingChange *TypingChange   `json:"typingChange,omitempty"`
}

type OnlineStatus struct {
	UserId string `json:"userId"`
	Online bool   `json:"online"`
}

type TypingChange struct {
	UserId       string `json:"userId"`
	Username     string `json:"username"`
	Typing       bool   `json:"typing"`
	ToUserId     string `json:"toUserId,omitempty"`
	ToChatroomId string `json:"toChatroomId,omitempty"`
}

func NewMessageEvent(msg types.Message) *ServerEvent {
	return &ServerEvent{
		Timestamp: Now(),
		Message:   &msg,
	}
}

func NewOnlineStatusEvent(userId string, online bool) *ServerEvent {
	return &ServerEvent{
		Timestamp:    Now(),
		OnlineStatus: &OnlineStatus{UserId: userId, Online: online},
	}
}

func NewChatroomEvent(room types.Chatroom) *ServerEvent {
	return &ServerEvent{
		Timestamp:   Now(),
		NewChatroom: &room,
	}
}

func NewUserEvent(user types.User) *ServerEvent {
	// direct messages are never pushed in directory notices
	user.Messages = nil

	return &ServerEvent{
		Timestamp: Now(),
		NewUser:   &user,
	}
}

func NewTypingChangeEvent(change TypingChange) *ServerEvent {
	return &ServerEvent{
		Timestamp:    Now(),
		TypingChange: &change,
	}
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
