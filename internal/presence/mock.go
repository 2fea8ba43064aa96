package presence

import (
	"github.com/stretchr/testify/mock"
)

type MockStatusNotifier struct {
	mock.Mock
}

func (m *MockStatusNotifier) BroadcastOnlineStatus(userId string, online bool) {
	m.Called(userId, online)
}
