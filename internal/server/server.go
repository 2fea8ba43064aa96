package server

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/parley-chat/parley/internal/stats"
)

// ChatServer is the transport gateway: it owns the connId -> Client map
// and transport-level room membership, and implements Gateway for the
// Broadcaster and the SessionRouter.
type ChatServer struct {
	log   *log.Logger
	stats stats.StatsProvider

	mu      sync.RWMutex
	clients map[string]*Client
	// rooms maps a chatroom id to the connections joined to it
	rooms map[string]map[string]*Client
}

func NewChatServer(logger *log.Logger, sp stats.StatsProvider) (*ChatServer, error) {
	sp.RegisterMetric("NumConnections")

	return &ChatServer{
		log:     logger,
		stats:   sp,
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
	}, nil
}

func (cs *ChatServer) RegisterClient(c *Client) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.clients[c.connId] = c
	cs.stats.Incr("NumConnections")
	cs.log.Printf("registered connection %q", c.connId)
}

func (cs *ChatServer) DeregisterClient(c *Client) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if _, ok := cs.clients[c.connId]; !ok {
		return
	}

	delete(cs.clients, c.connId)
	for roomId, members := range cs.rooms {
		delete(members, c.connId)
		if len(members) == 0 {
			delete(cs.rooms, roomId)
		}
	}

	cs.stats.Decr("NumConnections")
	cs.log.Printf("deregistered connection %q", c.connId)
}

// JoinRoom adds a connection to a room's broadcast scope. Returns false
// if the connection is no longer registered.
func (cs *ChatServer) JoinRoom(roomId, connId string) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	c, ok := cs.clients[connId]
	if !ok {
		return false
	}

	if cs.rooms[roomId] == nil {
		cs.rooms[roomId] = make(map[string]*Client)
	}
	cs.rooms[roomId][connId] = c
	return true
}

func (cs *ChatServer) LeaveRoom(roomId, connId string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	members, ok := cs.rooms[roomId]
	if !ok {
		return
	}
	delete(members, connId)
	if len(members) == 0 {
		delete(cs.rooms, roomId)
	}
}

func (cs *ChatServer) SendToConnection(connId string, ev *ServerEvent) bool {
	cs.mu.RLock()
	c, ok := cs.clients[connId]
	cs.mu.RUnlock()

	if !ok {
		return false
	}
	return c.queueEvent(ev)
}

func (cs *ChatServer) SendToRoom(roomId string, ev *ServerEvent) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	for _, c := range cs.rooms[roomId] {
		c.queueEvent(ev)
	}
}

func (cs *ChatServer) Broadcast(ev *ServerEvent) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	for _, c := range cs.clients {
		c.queueEvent(ev)
	}
}

func (cs *ChatServer) numClients() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return len(cs.clients)
}

// Shutdown stops every client and waits for their pumps to deregister,
// or returns the context error on timeout.
func (cs *ChatServer) Shutdown(ctx context.Context) error {
	cs.mu.RLock()
	for _, c := range cs.clients {
		c.stopClient()
	}
	cs.mu.RUnlock()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for cs.numClients() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	cs.log.Println("chat server shutdown complete")
	return nil
}
