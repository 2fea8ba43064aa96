package server

import (
	"context"
	"testing"
	"time"

	"github.com/parley-chat/parley/internal/stats"
	"github.com/parley-chat/parley/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestChatServer(t *testing.T) (*ChatServer, *stats.MockStatsUpdater) {
	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", "NumConnections").Once()

	cs, err := NewChatServer(testutil.TestLogger(t), su)
	assert.NoError(t, err)

	return cs, su
}

func newTestClient(t *testing.T, cs *ChatServer, connId string) *Client {
	return NewClient(connId, nil, cs, nil, testutil.TestLogger(t))
}

func TestRegisterDeregisterClient(t *testing.T) {
	cs, su := newTestChatServer(t)
	su.On("Incr", "NumConnections").Once()
	su.On("Decr", "NumConnections").Once()

	c := newTestClient(t, cs, "c1")
	cs.RegisterClient(c)
	assert.Equal(t, 1, cs.numClients())

	cs.DeregisterClient(c)
	assert.Equal(t, 0, cs.numClients())

	// a second deregister must not decrement the gauge again
	cs.DeregisterClient(c)
	su.AssertExpectations(t)
}

func TestJoinRoom(t *testing.T) {
	cs, su := newTestChatServer(t)
	su.On("Incr", mock.Anything)
	su.On("Decr", mock.Anything)

	assert.False(t, cs.JoinRoom("r1", "c1"), "expected join to fail for an unregistered connection")

	c := newTestClient(t, cs, "c1")
	cs.RegisterClient(c)
	assert.True(t, cs.JoinRoom("r1", "c1"))

	cs.SendToRoom("r1", NewOnlineStatusEvent("u1", true))
	assert.Len(t, c.send, 1)

	cs.DeregisterClient(c)
	cs.SendToRoom("r1", NewOnlineStatusEvent("u1", true))
	assert.Len(t, c.send, 1, "expected no delivery after deregistration")
}

func TestLeaveRoom(t *testing.T) {
	cs, su := newTestChatServer(t)
	su.On("Incr", mock.Anything)

	c := newTestClient(t, cs, "c1")
	cs.RegisterClient(c)
	assert.True(t, cs.JoinRoom("r1", "c1"))

	cs.LeaveRoom("r1", "c1")
	cs.SendToRoom("r1", NewOnlineStatusEvent("u1", true))
	assert.Len(t, c.send, 0)

	cs.LeaveRoom("r1", "c1")
	cs.LeaveRoom("nonexistent", "c1")
}

func TestSendToConnection(t *testing.T) {
	cs, su := newTestChatServer(t)
	su.On("Incr", mock.Anything)

	assert.False(t, cs.SendToConnection("c1", NewOnlineStatusEvent("u1", true)))

	c := newTestClient(t, cs, "c1")
	cs.RegisterClient(c)

	ev := NewOnlineStatusEvent("u1", true)
	assert.True(t, cs.SendToConnection("c1", ev))
	assert.Equal(t, ev, <-c.send)
}

func TestBroadcast(t *testing.T) {
	cs, su := newTestChatServer(t)
	su.On("Incr", mock.Anything)

	c1 := newTestClient(t, cs, "c1")
	c2 := newTestClient(t, cs, "c2")
	cs.RegisterClient(c1)
	cs.RegisterClient(c2)

	cs.Broadcast(NewOnlineStatusEvent("u1", true))
	assert.Len(t, c1.send, 1)
	assert.Len(t, c2.send, 1)
}

func TestQueueEventFullBuffer(t *testing.T) {
	c := newTestClient(t, nil, "c1")
	for i := 0; i < cap(c.send); i++ {
		assert.True(t, c.queueEvent(NewOnlineStatusEvent("u1", true)))
	}
	assert.False(t, c.queueEvent(NewOnlineStatusEvent("u1", true)))
}

func TestShutdown(t *testing.T) {
	t.Run("waits for clients to drain", func(t *testing.T) {
		cs, su := newTestChatServer(t)
		su.On("Incr", mock.Anything)
		su.On("Decr", mock.Anything)

		c := newTestClient(t, cs, "c1")
		cs.RegisterClient(c)

		// stand-in for the pumps: deregister once the client is stopped
		go func() {
			<-c.stop
			cs.DeregisterClient(c)
		}()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		assert.NoError(t, cs.Shutdown(ctx))
		assert.Equal(t, 0, cs.numClients())
	})

	t.Run("returns the context error when a client hangs", func(t *testing.T) {
		cs, su := newTestChatServer(t)
		su.On("Incr", mock.Anything)

		cs.RegisterClient(newTestClient(t, cs, "c1"))

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, cs.Shutdown(ctx), context.DeadlineExceeded)
	})
}
