package models

import "time"

// Message kinds.
const (
	KindText  = "text"
	KindImage = "image"
)

// Message represents a persisted 1:1 chat message.
type Message struct {
	ID        string    `json:"_id"` // ULID, sortable by creation time
	From      string    `json:"from"`
	To        string    `json:"to"`
	Text      string    `json:"text,omitempty"`
	Image     string    `json:"image,omitempty"` // opaque ref, not validated
	Kind      string    `json:"type"`
	CreatedAt time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}
