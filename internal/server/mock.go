package server

import (
	"github.com/stretchr/testify/mock"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) SendToConnection(connId string, ev *ServerEvent) bool {
	args := m.Called(connId, ev)
	return args.Bool(0)
}
func (m *MockGateway) SendToRoom(roomId string, ev *ServerEvent) {
	m.Called(roomId, ev)
}
func (m *MockGateway) Broadcast(ev *ServerEvent) {
	m.Called(ev)
}
func (m *MockGateway) JoinRoom(roomId, connId string) bool {
	args := m.Called(roomId, connId)
	return args.Bool(0)
}
