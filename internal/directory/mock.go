package directory

import (
	"github.com/parley-chat/parley/internal/types"
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockRepository) CreateUser(username string) (types.User, error) {
	args := m.Called(username)
	return args.Get(0).(types.User), args.Error(1)
}
func (m *MockRepository) GetUser(userId string) (types.User, error) {
	args := m.Called(userId)
	return args.Get(0).(types.User), args.Error(1)
}
func (m *MockRepository) ListUsers() ([]types.User, error) {
	args := m.Called()
	return args.Get(0).([]types.User), args.Error(1)
}
func (m *MockRepository) GetUserMessages(userId, counterpartyId string) ([]types.Message, error) {
	args := m.Called(userId, counterpartyId)
	return args.Get(0).([]types.Message), args.Error(1)
}
func (m *MockRepository) AppendDirectMessage(fromUserId, toUserId string, msg types.Message) error {
	args := m.Called(fromUserId, toUserId, msg)
	return args.Error(0)
}
func (m *MockRepository) CreateChatroom(name, ownerId string, memberIds []string) (types.Chatroom, error) {
	args := m.Called(name, ownerId, memberIds)
	return args.Get(0).(types.Chatroom), args.Error(1)
}
func (m *MockRepository) GetChatroom(chatroomId, requesterUserId string) (types.Chatroom, error) {
	args := m.Called(chatroomId, requesterUserId)
	return args.Get(0).(types.Chatroom), args.Error(1)
}
func (m *MockRepository) ListChatrooms() ([]types.Chatroom, error) {
	args := m.Called()
	return args.Get(0).([]types.Chatroom), args.Error(1)
}
func (m *MockRepository) GetChatroomMessages(chatroomId, requesterUserId string) ([]types.Message, error) {
	args := m.Called(chatroomId, requesterUserId)
	return args.Get(0).([]types.Message), args.Error(1)
}
func (m *MockRepository) AddMemberToChatrooms(userId string, chatroomIds []string) ([]types.Chatroom, error) {
	args := m.Called(userId, chatroomIds)
	return args.Get(0).([]types.Chatroom), args.Error(1)
}
func (m *MockRepository) AppendRoomMessage(chatroomId string, msg types.Message) error {
	args := m.Called(chatroomId, msg)
	return args.Error(0)
}
