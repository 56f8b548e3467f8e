package store

import (
	"context"
	"time"

	"github.com/chatline-im/chatline/internal/models"
)

// DataStore defines the interface for durable storage of users and messages.
// Both PostgresStore and SQLiteStore implement this interface.
//
// Lookup methods return (nil, nil) when the record does not exist.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// User directory
	UpsertUser(ctx context.Context, email, name, avatar string) (*models.User, error)
	SetUserOffline(ctx context.Context, email string) error
	GetUser(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)

	// Message log
	SaveMessage(ctx context.Context, msg *models.Message) error
	GetMessage(ctx context.Context, id string) (*models.Message, error)
	GetConversation(ctx context.Context, userA, userB string) ([]models.Message, error)
	MarkMessageRead(ctx context.Context, id string) (bool, error)

	// Aggregates (stats endpoint)
	CountUsers(ctx context.Context) (int64, error)
	CountOnlineUsers(ctx context.Context) (int64, error)
	CountMessages(ctx context.Context) (int64, error)
	GetMostRecentActivity(ctx context.Context) (*time.Time, error)
}
