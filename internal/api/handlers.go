package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/parley-chat/parley/internal/directory"
	"github.com/parley-chat/parley/internal/server"
	"github.com/parley-chat/parley/internal/types"
)

type CreateUserRequest struct {
	Username string `json:"username"`
}

type CreateRoomRequest struct {
	Name      string   `json:"name"`
	MemberIds []string `json:"memberIds"`
}

type JoinRoomsRequest struct {
	ChatroomIds []string `json:"chatroomIds"`
}

type AckResponse struct {
	Message string `json:"message"`
}

func (s *ChatApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *ChatApp) writeError(w http.ResponseWriter, errResp *ApiError) {
	if errResp.Err != nil {
		s.log.Println("api:", errResp.Error())
	}
	s.writeJson(w, errResp.StatusCode, errResp)
}

// getUsers returns the full directory with live online status. Direct
// message history is stripped, it is fetched per conversation instead.
func (s *ChatApp) getUsers(w http.ResponseWriter, r *http.Request) {
	dirUsers, err := s.dir.ListUsers()
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	users := make([]types.User, 0, len(dirUsers))
	for _, u := range dirUsers {
		u.Messages = nil
		u.Online = s.reg.IsOnline(u.UserId)
		users = append(users, u)
	}

	s.writeJson(w, http.StatusOK, users)
}

func (s *ChatApp) createUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, NewValidationError("malformed request body"))
		return
	}

	if req.Username == "" {
		s.writeError(w, NewValidationError("username is required"))
		return
	}

	user, err := s.dir.CreateUser(req.Username)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	s.bc.BroadcastNewUser(user)
	s.writeJson(w, http.StatusCreated, user)
}

// getUserMessages returns the direct conversation between the path
// user and the requester, from the path user's side.
func (s *ChatApp) getUserMessages(w http.ResponseWriter, r *http.Request) {
	requesterId, ok := RequesterId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError("RequesterUserId header is required"))
		return
	}

	userId := r.PathValue("userId")
	messages, err := s.dir.GetUserMessages(userId, requesterId)
	if err != nil {
		if errors.Is(err, directory.ErrUserNotFound) {
			s.writeError(w, NewNotFoundError(fmt.Sprintf("user %q not found", userId)))
		} else {
			s.writeError(w, NewInternalServerError(err))
		}
		return
	}

	if messages == nil {
		messages = []types.Message{}
	}
	s.writeJson(w, http.StatusOK, messages)
}

// addUserToRooms joins a user to chatrooms. Every room actually joined
// gets a system message and the user's live connections are brought
// into the room's broadcast scope immediately.
func (s *ChatApp) addUserToRooms(w http.ResponseWriter, r *http.Request) {
	var req JoinRoomsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, NewValidationError("malformed request body"))
		return
	}

	if len(req.ChatroomIds) == 0 {
		s.writeError(w, NewValidationError("chatroomIds is required"))
		return
	}

	userId := r.PathValue("userId")
	user, err := s.dir.GetUser(userId)
	if err != nil {
		if errors.Is(err, directory.ErrUserNotFound) {
			s.writeError(w, NewNotFoundError(fmt.Sprintf("user %q not found", userId)))
		} else {
			s.writeError(w, NewInternalServerError(err))
		}
		return
	}

	changed, err := s.dir.AddMemberToChatrooms(userId, req.ChatroomIds)
	if err != nil {
		if errors.Is(err, directory.ErrChatroomNotFound) {
			s.writeError(w, NewValidationError("one or more chatrooms do not exist"))
		} else {
			s.writeError(w, NewInternalServerError(err))
		}
		return
	}

	userConnIds := s.reg.ConnectionIds(userId)
	for _, room := range changed {
		joinMsg := types.Message{
			UserId:     userId,
			Username:   user.Username,
			ChatroomId: room.ChatroomId,
			Message:    fmt.Sprintf("%s has joined the chat!", user.Username),
			Timestamp:  server.Now(),
		}
		if err := s.dir.AppendRoomMessage(room.ChatroomId, joinMsg); err != nil {
			s.log.Printf("failed to store join message for room %q: %v", room.ChatroomId, err)
			continue
		}

		for _, connId := range userConnIds {
			s.cs.JoinRoom(room.ChatroomId, connId)
		}
		s.bc.SendChatroomMessage(room.ChatroomId, joinMsg)
		s.bc.BroadcastNewChatroom(room, userConnIds)
	}

	s.writeJson(w, http.StatusOK, AckResponse{Message: "Success"})
}

func (s *ChatApp) getRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.dir.ListChatrooms()
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	s.writeJson(w, http.StatusOK, rooms)
}

func (s *ChatApp) getRoom(w http.ResponseWriter, r *http.Request) {
	requesterId, ok := RequesterId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError("RequesterUserId header is required"))
		return
	}

	chatroomId := r.PathValue("chatroomId")
	room, err := s.dir.GetChatroom(chatroomId, requesterId)
	if err != nil {
		s.writeError(w, roomError(chatroomId, err))
		return
	}

	s.writeJson(w, http.StatusOK, room)
}

func (s *ChatApp) getRoomMessages(w http.ResponseWriter, r *http.Request) {
	requesterId, ok := RequesterId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError("RequesterUserId header is required"))
		return
	}

	chatroomId := r.PathValue("chatroomId")
	messages, err := s.dir.GetChatroomMessages(chatroomId, requesterId)
	if err != nil {
		s.writeError(w, roomError(chatroomId, err))
		return
	}

	if messages == nil {
		messages = []types.Message{}
	}
	s.writeJson(w, http.StatusOK, messages)
}

// createRoom creates a chatroom, records the creation message and
// notifies only the members. Members already connected are joined to
// the room's broadcast scope so the creation message reaches them.
func (s *ChatApp) createRoom(w http.ResponseWriter, r *http.Request) {
	requesterId, ok := RequesterId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError("RequesterUserId header is required"))
		return
	}

	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, NewValidationError("malformed request body"))
		return
	}

	if req.Name == "" {
		s.writeError(w, NewValidationError("name is required"))
		return
	}

	creator, err := s.dir.GetUser(requesterId)
	if err != nil {
		if errors.Is(err, directory.ErrUserNotFound) {
			s.writeError(w, NewValidationError(fmt.Sprintf("requester %q does not exist", requesterId)))
		} else {
			s.writeError(w, NewInternalServerError(err))
		}
		return
	}

	room, err := s.dir.CreateChatroom(req.Name, requesterId, req.MemberIds)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	createdMsg := types.Message{
		UserId:     requesterId,
		Username:   creator.Username,
		ChatroomId: room.ChatroomId,
		Message:    fmt.Sprintf("%s has created chatroom # %s", creator.Username, req.Name),
		Timestamp:  server.Now(),
	}
	if err := s.dir.AppendRoomMessage(room.ChatroomId, createdMsg); err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}
	room.Messages = append(room.Messages, createdMsg)

	var memberConnIds []string
	for _, memberId := range room.MemberIds {
		memberConnIds = append(memberConnIds, s.reg.ConnectionIds(memberId)...)
	}
	for _, connId := range memberConnIds {
		s.cs.JoinRoom(room.ChatroomId, connId)
	}

	s.bc.BroadcastNewChatroom(room, memberConnIds)
	s.bc.SendChatroomMessage(room.ChatroomId, createdMsg)

	s.writeJson(w, http.StatusCreated, room)
}

func (s *ChatApp) healthz(w http.ResponseWriter, r *http.Request) {
	if err := s.dir.Ping(); err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	s.writeJson(w, http.StatusOK, AckResponse{Message: "ok"})
}

func (s *ChatApp) serveWs(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := server.NewClient(uuid.NewString(), conn, s.cs, s.router, s.log)
	s.cs.RegisterClient(client)
	go client.Write()
	go client.Read()
}

// roomError maps directory failures on a room lookup to the wire
// envelope. Membership failures are authorization failures.
func roomError(chatroomId string, err error) *ApiError {
	switch {
	case errors.Is(err, directory.ErrChatroomNotFound):
		return NewNotFoundError(fmt.Sprintf("chatroom %q not found", chatroomId))
	case errors.Is(err, directory.ErrNotMember):
		return NewUnauthorizedError(fmt.Sprintf("requester is not a member of chatroom %q", chatroomId))
	default:
		return NewInternalServerError(err)
	}
}
