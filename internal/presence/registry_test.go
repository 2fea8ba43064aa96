package presence

import (
	"fmt"
	"sync"
	"testing"

	"github.com/parley-chat/parley/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestRegistry(t *testing.T, notifier StatusNotifier) *Registry {
	return NewRegistry(testutil.TestLogger(t), notifier)
}

func TestAddConnection(t *testing.T) {
	t.Run("first connection emits online once", func(t *testing.T) {
		notifier := &MockStatusNotifier{}
		defer notifier.AssertExpectations(t)
		notifier.On("BroadcastOnlineStatus", "u1", true).Once()

		reg := newTestRegistry(t, notifier)
		reg.AddConnection("u1", "alice", "c1")

		assert.True(t, reg.IsOnline("u1"), "expected user to be online after first connection")
	})

	t.Run("second device does not re-emit online", func(t *testing.T) {
		notifier := &MockStatusNotifier{}
		defer notifier.AssertExpectations(t)
		notifier.On("BroadcastOnlineStatus", "u1", true).Once()

		reg := newTestRegistry(t, notifier)
		reg.AddConnection("u1", "alice", "c1")
		reg.AddConnection("u1", "alice", "c2")

		assert.True(t, reg.IsOnline("u1"), "expected user to remain online")
		assert.Len(t, reg.ConnectionIds("u1"), 2, "expected both connections to be tracked")
	})

	t.Run("last login on a connection wins", func(t *testing.T) {
		notifier := &MockStatusNotifier{}
		defer notifier.AssertExpectations(t)
		notifier.On("BroadcastOnlineStatus", "u1", true).Once()
		notifier.On("BroadcastOnlineStatus", "u1", false).Once()
		notifier.On("BroadcastOnlineStatus", "u2", true).Once()

		reg := newTestRegistry(t, notifier)
		reg.AddConnection("u1", "alice", "c1")
		reg.AddConnection("u2", "bob", "c1")

		assert.False(t, reg.IsOnline("u1"), "expected prior user to go offline when connection is re-registered")
		assert.True(t, reg.IsOnline("u2"), "expected new user to be online")

		entry, err := reg.LookupConnection("c1")
		assert.NoError(t, err)
		assert.Equal(t, "u2", entry.UserId, "expected connection to map to the latest login")
	})

	t.Run("re-login on same connection refreshes username", func(t *testing.T) {
		notifier := &MockStatusNotifier{}
		defer notifier.AssertExpectations(t)
		notifier.On("BroadcastOnlineStatus", "u1", true).Once()

		reg := newTestRegistry(t, notifier)
		reg.AddConnection("u1", "alice", "c1")
		reg.AddConnection("u1", "alice2", "c1")

		entry, err := reg.LookupConnection("c1")
		assert.NoError(t, err)
		assert.Equal(t, "alice2", entry.Username, "expected entry to be replaced wholesale")
		assert.Len(t, reg.ConnectionIds("u1"), 1, "expected no duplicate connection record")
	})
}

func TestRemoveConnection(t *testing.T) {
	t.Run("unknown connection is a no-op", func(t *testing.T) {
		notifier := &MockStatusNotifier{}
		defer notifier.AssertExpectations(t)

		reg := newTestRegistry(t, notifier)
		reg.RemoveConnection("nope")
	})

	t.Run("two devices, offline only after the last one", func(t *testing.T) {
		notifier := &MockStatusNotifier{}
		defer notifier.AssertExpectations(t)
		notifier.On("BroadcastOnlineStatus", "alice-id", true).Once()
		notifier.On("BroadcastOnlineStatus", "alice-id", false).Once()

		reg := newTestRegistry(t, notifier)
		reg.AddConnection("alice-id", "Alice", "c1")
		reg.AddConnection("alice-id", "Alice", "c2")

		reg.RemoveConnection("c1")
		assert.True(t, reg.IsOnline("alice-id"), "expected user to stay online while c2 is alive")

		reg.RemoveConnection("c2")
		assert.False(t, reg.IsOnline("alice-id"), "expected user to go offline after last connection")
	})
}

func TestRemoveUser(t *testing.T) {
	notifier := &MockStatusNotifier{}
	defer notifier.AssertExpectations(t)
	notifier.On("BroadcastOnlineStatus", "u1", true).Once()
	notifier.On("BroadcastOnlineStatus", "u1", false).Once()

	reg := newTestRegistry(t, notifier)
	reg.AddConnection("u1", "alice", "c1")
	reg.AddConnection("u1", "alice", "c2")

	reg.RemoveUser("u1")
	assert.False(t, reg.IsOnline("u1"), "expected user to be offline")
	assert.Empty(t, reg.ConnectionIds("u1"), "expected no connections left")

	_, err := reg.LookupConnection("c1")
	assert.ErrorIs(t, err, ErrNotFound, "expected connection records to be removed")

	// removing an already offline user emits nothing
	reg.RemoveUser("u1")
}

func TestLookupUser(t *testing.T) {
	t.Run("offline user returns ErrNotFound", func(t *testing.T) {
		reg := newTestRegistry(t, &MockStatusNotifier{})
		_, err := reg.LookupUser("u1")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("most recently added connection wins", func(t *testing.T) {
		notifier := &MockStatusNotifier{}
		notifier.On("BroadcastOnlineStatus", "u1", true).Once()

		reg := newTestRegistry(t, notifier)
		reg.AddConnection("u1", "alice", "c1")
		reg.AddConnection("u1", "alice", "c2")

		entry, err := reg.LookupUser("u1")
		assert.NoError(t, err)
		assert.Equal(t, "c2", entry.ConnId, "expected tie-break on most recent connection")
	})
}

// isOnline must equal adds > removes for the user's connections at every
// observation point.
func TestOnlineMatchesNetConnectionCount(t *testing.T) {
	notifier := &MockStatusNotifier{}
	notifier.On("BroadcastOnlineStatus", mock.Anything, mock.Anything).Maybe()

	reg := newTestRegistry(t, notifier)

	reg.AddConnection("u1", "alice", "c1")
	reg.AddConnection("u1", "alice", "c2")
	reg.AddConnection("u1", "alice", "c3")
	assert.True(t, reg.IsOnline("u1"))

	reg.RemoveConnection("c2")
	assert.True(t, reg.IsOnline("u1"))
	reg.RemoveConnection("c1")
	assert.True(t, reg.IsOnline("u1"))
	reg.RemoveConnection("c3")
	assert.False(t, reg.IsOnline("u1"))
}

// Rapid reconnect bursts for one user must never lose a connection
// record and must leave the registry consistent.
func TestConcurrentAddRemove(t *testing.T) {
	notifier := &MockStatusNotifier{}
	notifier.On("BroadcastOnlineStatus", mock.Anything, mock.Anything).Maybe()

	reg := newTestRegistry(t, notifier)

	// cAnchor stays alive for the whole burst
	reg.AddConnection("u1", "alice", "anchor")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			connId := fmt.Sprintf("c%d", i)
			reg.AddConnection("u1", "alice", connId)
			assert.True(t, reg.IsOnline("u1"), "expected no offline blip while anchor connection is alive")
			reg.RemoveConnection(connId)
		}(i)
	}
	wg.Wait()

	assert.True(t, reg.IsOnline("u1"), "expected anchor connection to keep user online")
	assert.Equal(t, []string{"anchor"}, reg.ConnectionIds("u1"), "expected only the anchor connection to remain")

	reg.RemoveConnection("anchor")
	assert.False(t, reg.IsOnline("u1"))
}
