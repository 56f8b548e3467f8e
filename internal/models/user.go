package models

import "time"

// User represents a registered chat identity, keyed by email.
type User struct {
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Avatar   string    `json:"avatar,omitempty"`
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"lastSeen"`

	// Unread is the number of unread messages the requesting user has
	// from this contact. Populated only on the REST surface when the
	// unread cache is configured.
	Unread int64 `json:"unread,omitempty"`
}
