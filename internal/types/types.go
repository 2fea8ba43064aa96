package types

import (
	"time"
)

type User struct {
	UserId      string               `json:"userId"`
	Username    string               `json:"username"`
	ChatroomIds []string             `json:"chatroomIds"`
	Online      bool                 `json:"online,omitempty"`
	Messages    map[string][]Message `json:"messages,omitempty"`
	CreatedAt   time.Time            `json:"createdAt,omitempty"`
}

type Chatroom struct {
	ChatroomId string    `json:"chatroomId"`
	Name       string    `json:"name"`
	MemberIds  []string  `json:"memberIds"`
	Messages   []Message `json:"messages"`
	CreatedAt  time.Time `json:"createdAt,omitempty"`
}

// Message is addressed either to a chatroom or directly to a user, never
// both. Username is copied from the sender at write time and is not
// re-derived when a user renames.
type Message struct {
	UserId     string    `json:"userId,omitempty"`
	Username   string    `json:"username"`
	ChatroomId string    `json:"chatroomId,omitempty"`
	ToUserId   string    `json:"toUserId,omitempty"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}
