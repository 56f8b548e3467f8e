package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"

	"github.com/chatline-im/chatline/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// UpsertUser creates the user on first login or refreshes its profile,
// marking it online either way.
func (s *PostgresStore) UpsertUser(ctx context.Context, email, name, avatar string) (*models.User, error) {
	user := &models.User{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (email, name, avatar, online, last_seen)
		VALUES ($1, $2, $3, TRUE, NOW())
		ON CONFLICT (email) DO UPDATE SET
			name = EXCLUDED.name,
			avatar = EXCLUDED.avatar,
			online = TRUE,
			last_seen = EXCLUDED.last_seen
		RETURNING email, name, avatar, online, last_seen
	`, email, name, avatar).Scan(
		&user.Email,
		&user.Name,
		&user.Avatar,
		&user.Online,
		&user.LastSeen,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// SetUserOffline marks a user offline and refreshes last_seen.
func (s *PostgresStore) SetUserOffline(ctx context.Context, email string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE users SET online = FALSE, last_seen = NOW() WHERE email = $1
	`, email)
	return err
}

// GetUser retrieves a user by email.
func (s *PostgresStore) GetUser(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	err := s.pool.QueryRow(ctx, `
		SELECT email, name, avatar, online, last_seen
		FROM users WHERE email = $1
	`, email).Scan(
		&user.Email,
		&user.Name,
		&user.Avatar,
		&user.Online,
		&user.LastSeen,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// ListUsers returns all known users, online first, then by name.
func (s *PostgresStore) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.pool.Query(ctx, `
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
func (s *PostgresStore) SaveMessage(ctx context.Context, msg *models.Message) error {
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

	_, err := s.pool.Exec(ctx, `
		INSERT INTO messages (id, from_email, to_email, body, image, kind, created_at, read)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE)
	`, msg.ID, msg.From, msg.To, msg.Text, msg.Image, msg.Kind, msg.CreatedAt)
	return err
}

// GetMessage retrieves a message by ID.
func (s *PostgresStore) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	msg := &models.Message{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, from_email, to_email, body, image, kind, created_at, read
		FROM messages WHERE id = $1
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
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return msg, nil
}

// GetConversation returns all messages between two users, both directions,
// ascending by creation time.
func (s *PostgresStore) GetConversation(ctx context.Context, userA, userB string) ([]models.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, from_email, to_email, body, image, kind, created_at, read
		FROM messages
		WHERE (from_email = $1 AND to_email = $2) OR (from_email = $2 AND to_email = $1)
		ORDER BY created_at ASC, id ASC
	`, userA, userB)
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
func (s *PostgresStore) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// CountOnlineUsers returns the number of users marked online.
func (s *PostgresStore) CountOnlineUsers(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE online = TRUE`).Scan(&n)
	return n, err
}

// CountMessages returns the total number of persisted messages.
func (s *PostgresStore) CountMessages(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM messages`).Scan(&n)
	return n, err
}

// GetMostRecentActivity returns the timestamp of the newest message,
// or nil if no message exists.
func (s *PostgresStore) GetMostRecentActivity(ctx context.Context) (*time.Time, error) {
	var ts *time.Time
	err := s.pool.QueryRow(ctx, `SELECT MAX(created_at) FROM messages`).Scan(&ts)
	if err != nil {
		return nil, err
	}
	return ts, nil
}

// MarkMessageRead flips the read flag. Returns true only on the
// false-to-true transition, so duplicate calls are a no-op.
func (s *PostgresStore) MarkMessageRead(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE messages SET read = TRUE WHERE id = $1 AND read = FALSE
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
