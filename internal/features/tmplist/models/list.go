package models

import "time"

// List is an ephemeral, named collection of directory references. At most
// three lists per chat may be active and unexpired at a time; a list flips to
// inactive exactly once, by deletion or lazy expiry.
type List struct {
	ID        int64     `json:"id"`
	ChatID    int64     `json:"chat_id"`
	Name      string    `json:"name"`
	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	IsActive  bool      `json:"is_active"`
}

// Item references one member in a list. The (list, user) pair is unique;
// re-adding is a no-op.
type Item struct {
	ListID int64 `json:"list_id"`
	UserID int64 `json:"user_id"`
}
