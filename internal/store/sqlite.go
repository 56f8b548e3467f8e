package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"github.com/chatline-im/chatline/internal/models"
)

// SQLiteStore handles SQLite database operations.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/chatline.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/chatline.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	// Initialize schema
	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		email TEXT PRIMARY KEY,
		name TEXT DEFAULT '',
		avatar TEXT DEFAULT '',
		online INTEGER DEFAULT 0,
		last_seen DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		from_email TEXT NOT NULL,
		to_email TEXT NOT NULL,
		body TEXT DEFAULT '',
		image TEXT DEFAULT '',
		kind TEXT DEFAULT 'text',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		read INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_messages_pair ON messages(from_email, to_email, created_at);
	CREATE INDEX IF NOT EXISTS idx_users_online ON users(online);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// UpsertUser creates the user on first login or refreshes its profile,
// marking it online either way.
func (s *SQLiteStore) UpsertUser(ctx context.Context, email, name, avatar string) (*models.User, error) {
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (email, name, avatar, online, last_seen)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(email) DO UPDATE SET
			name = excluded.name,
			avatar = excluded.avatar,
			online = 1,
			last_seen = excluded.last_seen
	`, email, name, avatar, now)
	if err != nil {
		return nil, err
	}

	return s.GetUser(ctx, email)
}

// SetUserOffline marks a user offline and refreshes last_seen.
func (s *SQLiteStore) SetUserOffline(ctx context.Context, email string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET online = 0, last_seen = ? WHERE email = ?
	`, time.Now().UTC(), email)
	return err
}

// GetUser retrieves a user by email.
func (s *SQLiteStore) GetUser(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT email, name, avatar, online, last_seen
		FROM users WHERE email = ?
	`, email).Scan(
		&user.Email,
		&user.Name,
		&user.Avatar,
		&user.Online,
		&user.LastSeen,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// ListUsers returns all known users, online first, then by name.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT email, name, avatar, online, last_seen
		FROM users ORDER BY online DESC, name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.Email, &u.Name, &u.Avatar, &u.Online, &u.LastSeen); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// SaveMessage persists a message, assigning its ID and creation time.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	if msg.Kind == "" {
		msg.Kind = models.KindText
	}
	msg.Read = false

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, from_email, to_email, body, image, kind, created_at, read)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0)
	`, msg.ID, msg.From, msg.To, msg.Text, msg.Image, msg.Kind, msg.CreatedAt)
	return err
}

// GetMessage retrieves a message by ID.
func (s *SQLiteStore) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	msg := &models.Message{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, from_email, to_email, body, image, kind, created_at, read
		FROM messages WHERE id = ?
	`, id).Scan(
		&msg.ID,
		&msg.From,
		&msg.To,
		&msg.Text,
		&msg.Image,
		&msg.Kind,
		&msg.CreatedAt,
		&msg.Read,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return msg, nil
}

// GetConversation returns all messages between two users, both directions,
// ascending by creation time.
func (s *SQLiteStore) GetConversation(ctx context.Context, userA, userB string) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, from_email, to_email, body, image, kind, created_at, read
		FROM messages
		WHERE (from_email = ? AND to_email = ?) OR (from_email = ? AND to_email = ?)
		ORDER BY created_at ASC, id ASC
	`, userA, userB, userB, userA)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.From, &m.To, &m.Text, &m.Image, &m.Kind, &m.CreatedAt, &m.Read); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// CountUsers returns the number of known users.
func (s *SQLiteStore) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// CountOnlineUsers returns the number of users marked online.
func (s *SQLiteStore) CountOnlineUsers(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE online = 1`).Scan(&n)
	return n, err
}

// CountMessages returns the total number of persisted messages.
func (s *SQLiteStore) CountMessages(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&n)
	return n, err
}

// GetMostRecentActivity returns the timestamp of the newest message,
// or nil if no message exists.
func (s *SQLiteStore) GetMostRecentActivity(ctx context.Context) (*time.Time, error) {
	var ts time.Time
	err := s.db.QueryRowContext(ctx, `
		SELECT created_at FROM messages ORDER BY created_at DESC, id DESC LIMIT 1
	`).Scan(&ts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &ts, nil
}

// MarkMessageRead flips the read flag. Returns true only on the
// false-to-true transition, so duplicate calls are a no-op.
func (s *SQLiteStore) MarkMessageRead(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE messages SET read = 1 WHERE id = ? AND read = 0
	`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
