package directory

import (
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/parley-chat/parley/internal/types"
	"github.com/teris-io/shortid"
)

// MemoryRepository is the default volatile backend. Entities are
// mutated in place under their store's lock, so a concurrent
// message-append and membership-add on the same chatroom both survive.
type MemoryRepository struct {
	usersMu sync.RWMutex
	users   map[string]*types.User
	// userIds preserves creation order for listing
	userIds []string

	chatroomsMu sync.RWMutex
	chatrooms   map[string]*types.Chatroom
	chatroomIds []string

	sid *shortid.Shortid
}

func NewMemoryRepository() (*MemoryRepository, error) {
	sid, err := shortid.New(1, shortid.DefaultABC, 2342)
	if err != nil {
		return nil, err
	}

	return &MemoryRepository{
		users:     make(map[string]*types.User),
		chatrooms: make(map[string]*types.Chatroom),
		sid:       sid,
	}, nil
}

func (m *MemoryRepository) Ping() error { return nil }

func (m *MemoryRepository) CreateUser(username string) (types.User, error) {
	m.usersMu.Lock()
	defer m.usersMu.Unlock()

	user := &types.User{
		UserId:      uuid.NewString(),
		Username:    username,
		ChatroomIds: []string{},
		Messages:    make(map[string][]types.Message),
		CreatedAt:   now(),
	}
	m.users[user.UserId] = user
	m.userIds = append(m.userIds, user.UserId)

	return cloneUser(user), nil
}

func (m *MemoryRepository) GetUser(userId string) (types.User, error) {
	m.usersMu.RLock()
	defer m.usersMu.RUnlock()

	user, ok := m.users[userId]
	if !ok {
		return types.User{}, ErrUserNotFound
	}
	return cloneUser(user), nil
}

func (m *MemoryRepository) ListUsers() ([]types.User, error) {
	m.usersMu.RLock()
	defer m.usersMu.RUnlock()

	users := make([]types.User, 0, len(m.userIds))
	for _, id := range m.userIds {
		users = append(users, cloneUser(m.users[id]))
	}
	return users, nil
}

func (m *MemoryRepository) GetUserMessages(userId, counterpartyId string) ([]types.Message, error) {
	m.usersMu.RLock()
	defer m.usersMu.RUnlock()

	user, ok := m.users[userId]
	if !ok {
		return nil, ErrUserNotFound
	}
	return slices.Clone(user.Messages[counterpartyId]), nil
}

func (m *MemoryRepository) AppendDirectMessage(fromUserId, toUserId string, msg types.Message) error {
	m.usersMu.Lock()
	defer m.usersMu.Unlock()

	from, ok := m.users[fromUserId]
	if !ok {
		return ErrUserNotFound
	}
	to, ok := m.users[toUserId]
	if !ok {
		return ErrUserNotFound
	}

	// both records are validated before either is touched, so the dual
	// write is all-or-nothing
	to.Messages[fromUserId] = append(to.Messages[fromUserId], msg)
	if fromUserId != toUserId {
		from.Messages[toUserId] = append(from.Messages[toUserId], msg)
	}
	return nil
}

func (m *MemoryRepository) CreateChatroom(name, ownerId string, memberIds []string) (types.Chatroom, error) {
	id, err := m.sid.Generate()
	if err != nil {
		return types.Chatroom{}, err
	}

	m.chatroomsMu.Lock()
	defer m.chatroomsMu.Unlock()

	members := []string{ownerId}
	for _, memberId := range memberIds {
		if !slices.Contains(members, memberId) {
			members = append(members, memberId)
		}
	}

	room := &types.Chatroom{
		ChatroomId: id,
		Name:       name,
		MemberIds:  members,
		Messages:   []types.Message{},
		CreatedAt:  now(),
	}
	m.chatrooms[room.ChatroomId] = room
	m.chatroomIds = append(m.chatroomIds, room.ChatroomId)

	return cloneChatroom(room), nil
}

func (m *MemoryRepository) GetChatroom(chatroomId, requesterUserId string) (types.Chatroom, error) {
	m.chatroomsMu.RLock()
	defer m.chatroomsMu.RUnlock()

	room, err := m.memberChatroomLocked(chatroomId, requesterUserId)
	if err != nil {
		return types.Chatroom{}, err
	}
	return cloneChatroom(room), nil
}

func (m *MemoryRepository) ListChatrooms() ([]types.Chatroom, error) {
	m.chatroomsMu.RLock()
	defer m.chatroomsMu.RUnlock()

	rooms := make([]types.Chatroom, 0, len(m.chatroomIds))
	for _, id := range m.chatroomIds {
		rooms = append(rooms, cloneChatroom(m.chatrooms[id]))
	}
	return rooms, nil
}

func (m *MemoryRepository) GetChatroomMessages(chatroomId, requesterUserId string) ([]types.Message, error) {
	m.chatroomsMu.RLock()
	defer m.chatroomsMu.RUnlock()

	room, err := m.memberChatroomLocked(chatroomId, requesterUserId)
	if err != nil {
		return nil, err
	}
	return slices.Clone(room.Messages), nil
}

func (m *MemoryRepository) AddMemberToChatrooms(userId string, chatroomIds []string) ([]types.Chatroom, error) {
	m.usersMu.Lock()
	defer m.usersMu.Unlock()
	m.chatroomsMu.Lock()
	defer m.chatroomsMu.Unlock()

	user, ok := m.users[userId]
	if !ok {
		return nil, ErrUserNotFound
	}
	// validate every chatroom before mutating any of them
	for _, chatroomId := range chatroomIds {
		if _, ok := m.chatrooms[chatroomId]; !ok {
			return nil, ErrChatroomNotFound
		}
	}

	var changed []types.Chatroom
	for _, chatroomId := range chatroomIds {
		if !slices.Contains(user.ChatroomIds, chatroomId) {
			user.ChatroomIds = append(user.ChatroomIds, chatroomId)
		}

		room := m.chatrooms[chatroomId]
		if slices.Contains(room.MemberIds, userId) {
			continue
		}
		room.MemberIds = append(room.MemberIds, userId)
		changed = append(changed, cloneChatroom(room))
	}
	return changed, nil
}

func (m *MemoryRepository) AppendRoomMessage(chatroomId string, msg types.Message) error {
	m.chatroomsMu.Lock()
	defer m.chatroomsMu.Unlock()

	room, ok := m.chatrooms[chatroomId]
	if !ok {
		return ErrChatroomNotFound
	}
	room.Messages = append(room.Messages, msg)
	return nil
}

func (m *MemoryRepository) memberChatroomLocked(chatroomId, requesterUserId string) (*types.Chatroom, error) {
	room, ok := m.chatrooms[chatroomId]
	if !ok {
		return nil, ErrChatroomNotFound
	}
	if !slices.Contains(room.MemberIds, requesterUserId) {
		return nil, ErrNotMember
	}
	return room, nil
}

func cloneUser(u *types.User) types.User {
	out := *u
	out.ChatroomIds = slices.Clone(u.ChatroomIds)
	out.Messages = make(map[string][]types.Message, len(u.Messages))
	for k, v := range u.Messages {
		out.Messages[k] = slices.Clone(v)
	}
	return out
}

func cloneChatroom(c *types.Chatroom) types.Chatroom {
	out := *c
	out.MemberIds = slices.Clone(c.MemberIds)
	out.Messages = slices.Clone(c.Messages)
	return out
}
