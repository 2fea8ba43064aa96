package directory

import (
	"database/sql"

	"github.com/teris-io/shortid"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS chatrooms (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS chatroom_members (
	chatroom_id TEXT NOT NULL REFERENCES chatrooms (id),
	user_id TEXT NOT NULL,
	added_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (chatroom_id, user_id)
);
CREATE TABLE IF NOT EXISTS chatroom_messages (
	id BIGSERIAL PRIMARY KEY,
	chatroom_id TEXT NOT NULL REFERENCES chatrooms (id),
	user_id TEXT NOT NULL DEFAULT '',
	username TEXT NOT NULL,
	body TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS direct_messages (
	id BIGSERIAL PRIMARY KEY,
	owner_id TEXT NOT NULL REFERENCES users (id),
	counterparty_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	username TEXT NOT NULL,
	to_user_id TEXT NOT NULL,
	body TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
`

// PgRepository is a Postgres-backed Directory. One row per direct
// message copy; the dual write runs in a transaction.
type PgRepository struct {
	conn *sql.DB
	sid  *shortid.Shortid
}

func NewPgRepository(dsn string) (*PgRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, err
	}

	sid, err := shortid.New(1, shortid.DefaultABC, 2342)
	if err != nil {
		return nil, err
	}

	return &PgRepository{conn: db, sid: sid}, nil
}

func (db *PgRepository) Ping() error {
	return db.conn.Ping()
}

func (db *PgRepository) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
