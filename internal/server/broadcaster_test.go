package server

import (
	"testing"

	"github.com/parley-chat/parley/internal/testutil"
	"github.com/parley-chat/parley/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestSendDirectMessage(t *testing.T) {
	t.Run("deduplicates connection ids", func(t *testing.T) {
		gw := &MockGateway{}
		defer gw.AssertExpectations(t)
		gw.On("SendToConnection", "c1", mock.Anything).Return(true).Once()
		gw.On("SendToConnection", "c2", mock.Anything).Return(true).Once()

		bc := NewBroadcaster(gw, testutil.TestLogger(t))
		bc.SendDirectMessage([]string{"c1", "c2", "c1", "c1"}, types.Message{Message: "hi"})
	})

	t.Run("vanished connection is absorbed", func(t *testing.T) {
		gw := &MockGateway{}
		defer gw.AssertExpectations(t)
		gw.On("SendToConnection", "gone", mock.Anything).Return(false).Once()

		bc := NewBroadcaster(gw, testutil.TestLogger(t))
		bc.SendDirectMessage([]string{"gone"}, types.Message{Message: "hi"})
	})
}

func TestSendChatroomMessage(t *testing.T) {
	gw := &MockGateway{}
	defer gw.AssertExpectations(t)

	msg := types.Message{ChatroomId: "room1", Message: "hello", Username: "alice"}
	gw.On("SendToRoom", "room1", mock.MatchedBy(func(ev *ServerEvent) bool {
		return ev.Message != nil && *ev.Message == msg
	})).Once()

	bc := NewBroadcaster(gw, testutil.TestLogger(t))
	bc.SendChatroomMessage("room1", msg)
}

func TestBroadcastOnlineStatus(t *testing.T) {
	gw := &MockGateway{}
	defer gw.AssertExpectations(t)

	gw.On("Broadcast", mock.MatchedBy(func(ev *ServerEvent) bool {
		return ev.OnlineStatus != nil && ev.OnlineStatus.UserId == "u1" && ev.OnlineStatus.Online
	})).Once()

	bc := NewBroadcaster(gw, testutil.TestLogger(t))
	bc.BroadcastOnlineStatus("u1", true)
}

func TestBroadcastNewChatroom(t *testing.T) {
	gw := &MockGateway{}
	defer gw.AssertExpectations(t)

	room := types.Chatroom{ChatroomId: "room1", Name: "general"}
	gw.On("SendToConnection", "c1", mock.MatchedBy(func(ev *ServerEvent) bool {
		return ev.NewChatroom != nil && ev.NewChatroom.ChatroomId == room.ChatroomId
	})).Return(true).Once()

	bc := NewBroadcaster(gw, testutil.TestLogger(t))
	bc.BroadcastNewChatroom(room, []string{"c1"})
}

func TestBroadcastNewUserStripsMessages(t *testing.T) {
	gw := &MockGateway{}
	defer gw.AssertExpectations(t)

	user := types.User{
		UserId:   "u1",
		Username: "alice",
		Messages: map[string][]types.Message{"u2": {{Message: "private"}}},
	}
	gw.On("Broadcast", mock.MatchedBy(func(ev *ServerEvent) bool {
		return ev.NewUser != nil && ev.NewUser.UserId == "u1" && ev.NewUser.Messages == nil
	})).Once()

	bc := NewBroadcaster(gw, testutil.TestLogger(t))
	bc.BroadcastNewUser(user)
}

func TestTypingChanges(t *testing.T) {
	t.Run("room scoped", func(t *testing.T) {
		gw := &MockGateway{}
		defer gw.AssertExpectations(t)

		gw.On("SendToRoom", "room1", mock.MatchedBy(func(ev *ServerEvent) bool {
			return ev.TypingChange != nil && ev.TypingChange.Typing
		})).Once()

		bc := NewBroadcaster(gw, testutil.TestLogger(t))
		bc.BroadcastTypingInChatroom("room1", TypingChange{UserId: "u1", Typing: true, ToChatroomId: "room1"})
	})

	t.Run("single connection, vanished target absorbed", func(t *testing.T) {
		gw := &MockGateway{}
		defer gw.AssertExpectations(t)
		gw.On("SendToConnection", "gone", mock.Anything).Return(false).Once()

		bc := NewBroadcaster(gw, testutil.TestLogger(t))
		bc.SendTypingChange("gone", TypingChange{UserId: "u1", Typing: false, ToUserId: "u2"})
	})
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, dedupe([]string{"a", "b", "a", "c", "b"}))
	assert.Empty(t, dedupe(nil))
}
