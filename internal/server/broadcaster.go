package server

import (
	"log"

	"github.com/parley-chat/parley/internal/types"
)

// Gateway exposes the transport-level send/room primitives implemented
// by ChatServer. SendToConnection and JoinRoom report whether the
// connection still exists.
type Gateway interface {
	SendToConnection(connId string, ev *ServerEvent) bool
	SendToRoom(roomId string, ev *ServerEvent)
	Broadcast(ev *ServerEvent)
	JoinRoom(roomId, connId string) bool
}

// Broadcaster is the stateless fan-out layer. Every send is
// fire-and-forget: a connection vanishing between lookup and send is
// logged and absorbed, never surfaced to the caller.
type Broadcaster struct {
	gw  Gateway
	log *log.Logger
}

func NewBroadcaster(gw Gateway, logger *log.Logger) *Broadcaster {
	return &Broadcaster{gw: gw, log: logger}
}

func (b *Broadcaster) SendChatroomMessage(chatroomId string, msg types.Message) {
	b.gw.SendToRoom(chatroomId, NewMessageEvent(msg))
}

// SendDirectMessage delivers msg once per unique connection id, even
// when the list contains duplicates (e.g. sender messaging themselves).
func (b *Broadcaster) SendDirectMessage(connIds []string, msg types.Message) {
	ev := NewMessageEvent(msg)
	for _, connId := range dedupe(connIds) {
		if !b.gw.SendToConnection(connId, ev) {
			b.log.Printf("direct message to vanished connection %q dropped", connId)
		}
	}
}

func (b *Broadcaster) BroadcastOnlineStatus(userId string, online bool) {
	b.gw.Broadcast(NewOnlineStatusEvent(userId, online))
}

// BroadcastNewChatroom notifies only the given connections, so
// non-members never learn about rooms they cannot access.
func (b *Broadcaster) BroadcastNewChatroom(room types.Chatroom, connIds []string) {
	ev := NewChatroomEvent(room)
	for _, connId := range dedupe(connIds) {
		if !b.gw.SendToConnection(connId, ev) {
			b.log.Printf("new chatroom notice to vanished connection %q dropped", connId)
		}
	}
}

func (b *Broadcaster) BroadcastNewUser(user types.User) {
	b.gw.Broadcast(NewUserEvent(user))
}

func (b *Broadcaster) BroadcastTypingInChatroom(chatroomId string, change TypingChange) {
	b.gw.SendToRoom(chatroomId, NewTypingChangeEvent(change))
}

func (b *Broadcaster) SendTypingChange(connId string, change TypingChange) {
	if !b.gw.SendToConnection(connId, NewTypingChangeEvent(change)) {
		b.log.Printf("typing change to vanished connection %q dropped", connId)
	}
}

func dedupe(connIds []string) []string {
	seen := make(map[string]struct{}, len(connIds))
	out := connIds[:0:0]
	for _, id := range connIds {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
