// Package directory persists Users and Chatrooms. Operations fail with
// typed errors rather than returning empty sentinel objects.
package directory

import (
	"errors"
	"time"

	"github.com/parley-chat/parley/internal/types"
)

func now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}

var (
	ErrUserNotFound     = errors.New("directory: user not found")
	ErrChatroomNotFound = errors.New("directory: chatroom not found")
	ErrNotMember        = errors.New("directory: user is not a member of chatroom")
)

type Repository interface {
	Ping() error

	CreateUser(username string) (types.User, error)
	GetUser(userId string) (types.User, error)
	ListUsers() ([]types.User, error)
	// GetUserMessages returns the direct messages stored under userId's
	// record for the given counterparty.
	GetUserMessages(userId, counterpartyId string) ([]types.Message, error)
	// AppendDirectMessage stores msg under both participants' records,
	// keyed by the other participant. Either both copies are written or
	// neither is. A self-addressed message is stored exactly once.
	AppendDirectMessage(fromUserId, toUserId string, msg types.Message) error

	CreateChatroom(name, ownerId string, memberIds []string) (types.Chatroom, error)
	GetChatroom(chatroomId, requesterUserId string) (types.Chatroom, error)
	ListChatrooms() ([]types.Chatroom, error)
	GetChatroomMessages(chatroomId, requesterUserId string) ([]types.Message, error)
	// AddMemberToChatrooms adds the user to each chatroom, skipping
	// rooms they already belong to, and returns the rooms that actually
	// changed.
	AddMemberToChatrooms(userId string, chatroomIds []string) ([]types.Chatroom, error)
	AppendRoomMessage(chatroomId string, msg types.Message) error
}
