package server

import (
	"log"

	"github.com/parley-chat/parley/internal/directory"
	"github.com/parley-chat/parley/internal/presence"
	"github.com/parley-chat/parley/internal/stats"
	"github.com/parley-chat/parley/internal/types"
)

// SessionRouter receives every inbound transport event and orchestrates
// the presence registry, the directory and the broadcaster. One router
// is shared by all connections and holds no per-connection state. A bad
// event is logged and dropped, it never crashes the processing loop.
type SessionRouter struct {
	log   *log.Logger
	dir   directory.Repository
	reg   *presence.Registry
	bc    *Broadcaster
	gw    Gateway
	stats stats.StatsProvider
}

func NewSessionRouter(logger *log.Logger, dir directory.Repository, reg *presence.Registry,
	bc *Broadcaster, gw Gateway, sp stats.StatsProvider) *SessionRouter {
	sp.RegisterMetric("NumRoomMessages")
	sp.RegisterMetric("NumDirectMessages")

	return &SessionRouter{
		log:   logger,
		dir:   dir,
		reg:   reg,
		bc:    bc,
		gw:    gw,
		stats: sp,
	}
}

func (rt *SessionRouter) Dispatch(connId string, ev *ClientEvent) {
	switch {
	case ev.Login != nil:
		rt.handleLogin(connId, ev.Login)
	case ev.Logout != nil:
		rt.handleLogout(connId)
	case ev.MessageChatroom != nil:
		rt.handleMessageChatroom(connId, ev.MessageChatroom)
	case ev.MessageUser != nil:
		rt.handleMessageUser(connId, ev.MessageUser)
	case ev.TypingInChatroom != nil:
		rt.handleTypingInChatroom(connId, ev.TypingInChatroom)
	case ev.TypingDirect != nil:
		rt.handleTypingDirect(connId, ev.TypingDirect)
	default:
		rt.log.Printf("dropping empty event from connection %q", connId)
	}
}

// handleLogin binds the connection to a user and joins it to the user's
// chatrooms at the transport level. An unknown user is never registered,
// so no phantom online user with empty memberships can appear.
func (rt *SessionRouter) handleLogin(connId string, ev *Login) {
	if ev.UserId == "" {
		rt.log.Printf("invalid login attempt on connection %q: missing userId", connId)
		return
	}

	user, err := rt.dir.GetUser(ev.UserId)
	if err != nil {
		rt.log.Printf("login for unknown user %q on connection %q: %v", ev.UserId, connId, err)
		return
	}

	username := ev.Username
	if username == "" {
		username = user.Username
	}
	rt.reg.AddConnection(user.UserId, username, connId)

	for _, chatroomId := range user.ChatroomIds {
		if !rt.gw.JoinRoom(chatroomId, connId) {
			rt.log.Printf("connection %q vanished while joining room %q", connId, chatroomId)
			return
		}
	}

	rt.log.Printf("%s (%s) logged in on connection %q", username, user.UserId, connId)
}

func (rt *SessionRouter) handleLogout(connId string) {
	rt.reg.RemoveConnection(connId)
}

// HandleDisconnect runs the same path as logout. The client guarantees
// it fires exactly once per physical disconnect.
func (rt *SessionRouter) HandleDisconnect(connId string) {
	rt.reg.RemoveConnection(connId)
}

func (rt *SessionRouter) handleMessageChatroom(connId string, ev *MessageChatroom) {
	sender, err := rt.reg.LookupConnection(connId)
	if err != nil {
		rt.log.Printf("chatroom message from unregistered connection %q dropped", connId)
		return
	}
	if ev.ChatroomId == "" || ev.Message == "" {
		rt.log.Printf("invalid chatroom message from %q: chatroomId=%q", sender.UserId, ev.ChatroomId)
		return
	}

	msg := types.Message{
		UserId:     sender.UserId,
		Username:   sender.Username,
		ChatroomId: ev.ChatroomId,
		Message:    ev.Message,
		Timestamp:  Now(),
	}

	if err := rt.dir.AppendRoomMessage(ev.ChatroomId, msg); err != nil {
		rt.log.Printf("failed to store message for chatroom %q: %v", ev.ChatroomId, err)
		return
	}

	rt.bc.SendChatroomMessage(ev.ChatroomId, msg)
	rt.stats.Incr("NumRoomMessages")
}

func (rt *SessionRouter) handleMessageUser(connId string, ev *MessageUser) {
	sender, err := rt.reg.LookupConnection(connId)
	if err != nil {
		rt.log.Printf("direct message from unregistered connection %q dropped", connId)
		return
	}
	if ev.ToUserId == "" || ev.Message == "" {
		rt.log.Printf("invalid direct message from %q to %q", sender.UserId, ev.ToUserId)
		return
	}

	msg := types.Message{
		UserId:    sender.UserId,
		Username:  sender.Username,
		ToUserId:  ev.ToUserId,
		Message:   ev.Message,
		Timestamp: Now(),
	}

	if err := rt.dir.AppendDirectMessage(sender.UserId, ev.ToUserId, msg); err != nil {
		rt.log.Printf("failed to store direct message from %q to %q: %v", sender.UserId, ev.ToUserId, err)
		return
	}

	// the recipient may be offline, their connection list is then empty
	connIds := append(rt.reg.ConnectionIds(sender.UserId), rt.reg.ConnectionIds(ev.ToUserId)...)
	rt.bc.SendDirectMessage(connIds, msg)
	rt.stats.Incr("NumDirectMessages")
}

func (rt *SessionRouter) handleTypingInChatroom(connId string, ev *TypingInChatroom) {
	sender, err := rt.reg.LookupConnection(connId)
	if err != nil || ev.ToChatroomId == "" {
		return
	}

	rt.bc.BroadcastTypingInChatroom(ev.ToChatroomId, TypingChange{
		UserId:       sender.UserId,
		Username:     sender.Username,
		Typing:       ev.Typing,
		ToChatroomId: ev.ToChatroomId,
	})
}

func (rt *SessionRouter) handleTypingDirect(connId string, ev *TypingDirect) {
	sender, err := rt.reg.LookupConnection(connId)
	if err != nil {
		return
	}

	target, err := rt.reg.LookupUser(ev.ToUserId)
	if err != nil {
		// recipient offline, typing is best-effort
		return
	}

	rt.bc.SendTypingChange(target.ConnId, TypingChange{
		UserId:   sender.UserId,
		Username: sender.Username,
		Typing:   ev.Typing,
		ToUserId: ev.ToUserId,
	})
}
