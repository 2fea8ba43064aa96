// Package presence tracks which connections currently belong to which
// logical users. A user is online iff at least one live connection maps
// to them.
package presence

import (
	"errors"
	"log"
	"sync"
)

var ErrNotFound = errors.New("presence: not found")

// Entry maps one live connection to a user identity. Entries are
// replaced wholesale, never mutated in place.
type Entry struct {
	UserId   string
	Username string
	ConnId   string
}

// StatusNotifier receives offline->online and online->offline
// transitions. Implementations must not call back into the Registry.
type StatusNotifier interface {
	BroadcastOnlineStatus(userId string, online bool)
}

type Registry struct {
	mu sync.Mutex
	// byConn holds at most one entry per connection id.
	byConn map[string]Entry
	// byUser holds the user's connection ids, oldest first.
	byUser   map[string][]string
	log      *log.Logger
	notifier StatusNotifier
}

func NewRegistry(logger *log.Logger, notifier StatusNotifier) *Registry {
	return &Registry{
		byConn:   make(map[string]Entry),
		byUser:   make(map[string][]string),
		log:      logger,
		notifier: notifier,
	}
}

// AddConnection registers a connection for a user. If the connection is
// already mapped to another user the prior mapping is replaced, last
// login wins. An online notification is emitted only when this is the
// user's first live connection.
func (r *Registry) AddConnection(userId, username, connId string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byConn[connId]; ok {
		if prev.UserId == userId {
			// re-login on the same connection, refresh the entry
			r.byConn[connId] = Entry{UserId: userId, Username: username, ConnId: connId}
			return
		}
		r.log.Printf("connection %q re-registered from user %q to %q", connId, prev.UserId, userId)
		r.dropLocked(prev)
	}

	r.byConn[connId] = Entry{UserId: userId, Username: username, ConnId: connId}
	r.byUser[userId] = append(r.byUser[userId], connId)

	if len(r.byUser[userId]) == 1 {
		r.notifier.BroadcastOnlineStatus(userId, true)
	}
}

// RemoveConnection removes exactly one connection. Unknown connection
// ids are a no-op.
func (r *Registry) RemoveConnection(connId string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.byConn[connId]
	if !ok {
		return
	}
	r.dropLocked(entry)
}

// RemoveUser removes all of a user's connections.
func (r *Registry) RemoveUser(userId string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, connId := range r.byUser[userId] {
		delete(r.byConn, connId)
	}
	if len(r.byUser[userId]) > 0 {
		delete(r.byUser, userId)
		r.notifier.BroadcastOnlineStatus(userId, false)
	}
}

// dropLocked removes a single entry and emits the offline notification
// if it was the user's last connection. Callers must hold r.mu.
func (r *Registry) dropLocked(entry Entry) {
	delete(r.byConn, entry.ConnId)

	conns := r.byUser[entry.UserId]
	for i, id := range conns {
		if id == entry.ConnId {
			conns = append(conns[:i], conns[i+1:]...)
			break
		}
	}

	if len(conns) == 0 {
		delete(r.byUser, entry.UserId)
		r.notifier.BroadcastOnlineStatus(entry.UserId, false)
		return
	}
	r.byUser[entry.UserId] = conns
}

// LookupUser returns one representative entry for an online user, the
// most recently added connection wins.
func (r *Registry) LookupUser(userId string) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns := r.byUser[userId]
	if len(conns) == 0 {
		return Entry{}, ErrNotFound
	}
	return r.byConn[conns[len(conns)-1]], nil
}

// LookupConnection resolves a connection id to its identity. Events
// racing a disconnect see ErrNotFound.
func (r *Registry) LookupConnection(connId string) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.byConn[connId]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return entry, nil
}

func (r *Registry) IsOnline(userId string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byUser[userId]) > 0
}

// ConnectionIds returns a copy of the user's live connection ids. The
// result may be empty, an offline user is not an error here.
func (r *Registry) ConnectionIds(userId string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns := r.byUser[userId]
	out := make([]string, len(conns))
	copy(out, conns)
	return out
}
