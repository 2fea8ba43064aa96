package directory

import (
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/parley-chat/parley/internal/types"
)

func (db *PgRepository) CreateUser(username string) (types.User, error) {
	res := db.conn.QueryRow(
		"INSERT INTO users (id, username, created_at) "+
			"VALUES ($1, $2, $3) RETURNING id, username, created_at",
		uuid.NewString(),
		username,
		now(),
	)

	var u types.User
	if err := res.Scan(&u.UserId, &u.Username, &u.CreatedAt); err != nil {
		return types.User{}, err
	}

	u.ChatroomIds = []string{}
	return u, nil
}

func (db *PgRepository) GetUser(userId string) (types.User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, created_at FROM users "+
			"WHERE id = $1 LIMIT 1",
		userId,
	)

	var u types.User
	if err := row.Scan(&u.UserId, &u.Username, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrUserNotFound
		}
		return types.User{}, err
	}

	chatroomIds, err := db.memberChatroomIds(userId)
	if err != nil {
		return types.User{}, err
	}

	u.ChatroomIds = chatroomIds
	return u, nil
}

func (db *PgRepository) ListUsers() ([]types.User, error) {
	rows, err := db.conn.Query(
		"SELECT id, username, created_at FROM users ORDER BY created_at, id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []types.User
	for rows.Next() {
		var u types.User
		if err := rows.Scan(&u.UserId, &u.Username, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range users {
		chatroomIds, err := db.memberChatroomIds(users[i].UserId)
		if err != nil {
			return nil, err
		}
		users[i].ChatroomIds = chatroomIds
	}
	return users, nil
}

func (db *PgRepository) memberChatroomIds(userId string) ([]string, error) {
	rows, err := db.conn.Query(
		"SELECT chatroom_id FROM chatroom_members "+
			"WHERE user_id = $1 ORDER BY added_at",
		userId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chatroomIds := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		chatroomIds = append(chatroomIds, id)
	}
	return chatroomIds, rows.Err()
}

func (db *PgRepository) GetUserMessages(userId, counterpartyId string) ([]types.Message, error) {
	if _, err := db.GetUser(userId); err != nil {
		return nil, err
	}

	rows, err := db.conn.Query(
		"SELECT user_id, username, to_user_id, body, created_at FROM direct_messages "+
			"WHERE owner_id = $1 AND counterparty_id = $2 ORDER BY id",
		userId,
		counterpartyId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []types.Message{}
	for rows.Next() {
		var msg types.Message
		if err := rows.Scan(&msg.UserId, &msg.Username, &msg.ToUserId, &msg.Message, &msg.Timestamp); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (db *PgRepository) AppendDirectMessage(fromUserId, toUserId string, msg types.Message) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, userId := range []string{fromUserId, toUserId} {
		var exists bool
		if err := tx.QueryRow("SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)", userId).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrUserNotFound
		}
	}

	owners := [][2]string{{toUserId, fromUserId}}
	if fromUserId != toUserId {
		owners = append(owners, [2]string{fromUserId, toUserId})
	}

	for _, pair := range owners {
		_, err := tx.Exec(
			"INSERT INTO direct_messages (owner_id, counterparty_id, user_id, username, to_user_id, body, created_at) "+
				"VALUES ($1, $2, $3, $4, $5, $6, $7)",
			pair[0],
			pair[1],
			msg.UserId,
			msg.Username,
			msg.ToUserId,
			msg.Message,
			msg.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("insert direct message: %w", err)
		}
	}

	return tx.Commit()
}

func (db *PgRepository) CreateChatroom(name, ownerId string, memberIds []string) (types.Chatroom, error) {
	id, err := db.sid.Generate()
	if err != nil {
		return types.Chatroom{}, err
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return types.Chatroom{}, err
	}
	defer tx.Rollback()

	createdAt := now()
	room := types.Chatroom{
		ChatroomId: id,
		Name:       name,
		MemberIds:  []string{ownerId},
		Messages:   []types.Message{},
		CreatedAt:  createdAt,
	}

	if _, err := tx.Exec(
		"INSERT INTO chatrooms (id, name, created_at) VALUES ($1, $2, $3)",
		room.ChatroomId, room.Name, createdAt,
	); err != nil {
		return types.Chatroom{}, fmt.Errorf("insert chatroom: %w", err)
	}

	for _, memberId := range memberIds {
		if !slices.Contains(room.MemberIds, memberId) {
			room.MemberIds = append(room.MemberIds, memberId)
		}
	}
	for _, memberId := range room.MemberIds {
		if _, err := tx.Exec(
			"INSERT INTO chatroom_members (chatroom_id, user_id, added_at) VALUES ($1, $2, $3)",
			room.ChatroomId, memberId, now(),
		); err != nil {
			return types.Chatroom{}, fmt.Errorf("insert member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return types.Chatroom{}, err
	}
	return room, nil
}

func (db *PgRepository) GetChatroom(chatroomId, requesterUserId string) (types.Chatroom, error) {
	room, err := db.fetchChatroom(chatroomId)
	if err != nil {
		return types.Chatroom{}, err
	}

	if !slices.Contains(room.MemberIds, requesterUserId) {
		return types.Chatroom{}, ErrNotMember
	}

	room.Messages, err = db.roomMessages(chatroomId)
	if err != nil {
		return types.Chatroom{}, err
	}
	return room, nil
}

func (db *PgRepository) ListChatrooms() ([]types.Chatroom, error) {
	rows, err := db.conn.Query(
		"SELECT id, name, created_at FROM chatrooms ORDER BY created_at, id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []types.Chatroom
	for rows.Next() {
		var room types.Chatroom
		if err := rows.Scan(&room.ChatroomId, &room.Name, &room.CreatedAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range rooms {
		if rooms[i].MemberIds, err = db.roomMemberIds(rooms[i].ChatroomId); err != nil {
			return nil, err
		}
		if rooms[i].Messages, err = db.roomMessages(rooms[i].ChatroomId); err != nil {
			return nil, err
		}
	}
	return rooms, nil
}

func (db *PgRepository) GetChatroomMessages(chatroomId, requesterUserId string) ([]types.Message, error) {
	room, err := db.fetchChatroom(chatroomId)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(room.MemberIds, requesterUserId) {
		return nil, ErrNotMember
	}

	return db.roomMessages(chatroomId)
}

func (db *PgRepository) AddMemberToChatrooms(userId string, chatroomIds []string) ([]types.Chatroom, error) {
	if _, err := db.GetUser(userId); err != nil {
		return nil, err
	}

	var changed []types.Chatroom
	for _, chatroomId := range chatroomIds {
		room, err := db.fetchChatroom(chatroomId)
		if err != nil {
			return changed, err
		}
		if slices.Contains(room.MemberIds, userId) {
			continue
		}

		if _, err := db.conn.Exec(
			"INSERT INTO chatroom_members (chatroom_id, user_id, added_at) VALUES ($1, $2, $3) "+
				"ON CONFLICT (chatroom_id, user_id) DO NOTHING",
			chatroomId, userId, now(),
		); err != nil {
			return changed, fmt.Errorf("insert member: %w", err)
		}

		room.MemberIds = append(room.MemberIds, userId)
		changed = append(changed, room)
	}
	return changed, nil
}

func (db *PgRepository) AppendRoomMessage(chatroomId string, msg types.Message) error {
	res, err := db.conn.Exec(
		"INSERT INTO chatroom_messages (chatroom_id, user_id, username, body, created_at) "+
			"SELECT $1, $2, $3, $4, $5 WHERE EXISTS (SELECT 1 FROM chatrooms WHERE id = $1)",
		chatroomId,
		msg.UserId,
		msg.Username,
		msg.Message,
		msg.Timestamp,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrChatroomNotFound
	}
	return nil
}

func (db *PgRepository) fetchChatroom(chatroomId string) (types.Chatroom, error) {
	row := db.conn.QueryRow(
		"SELECT id, name, created_at FROM chatrooms WHERE id = $1 LIMIT 1",
		chatroomId,
	)

	var room types.Chatroom
	if err := row.Scan(&room.ChatroomId, &room.Name, &room.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Chatroom{}, ErrChatroomNotFound
		}
		return types.Chatroom{}, err
	}

	memberIds, err := db.roomMemberIds(chatroomId)
	if err != nil {
		return types.Chatroom{}, err
	}
	room.MemberIds = memberIds
	room.Messages = []types.Message{}
	return room, nil
}

func (db *PgRepository) roomMemberIds(chatroomId string) ([]string, error) {
	rows, err := db.conn.Query(
		"SELECT user_id FROM chatroom_members WHERE chatroom_id = $1 ORDER BY added_at",
		chatroomId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	memberIds := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		memberIds = append(memberIds, id)
	}
	return memberIds, rows.Err()
}

func (db *PgRepository) roomMessages(chatroomId string) ([]types.Message, error) {
	rows, err := db.conn.Query(
		"SELECT user_id, username, body, created_at FROM chatroom_messages "+
			"WHERE chatroom_id = $1 ORDER BY id",
		chatroomId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []types.Message{}
	for rows.Next() {
		var msg types.Message
		if err := rows.Scan(&msg.UserId, &msg.Username, &msg.Message, &msg.Timestamp); err != nil {
			return nil, err
		}
		msg.ChatroomId = chatroomId
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
