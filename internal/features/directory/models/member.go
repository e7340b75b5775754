package models

import "time"

// Member is one directory row per (chat, user).
//
// Username and FullName mirror the platform's current values as of the last
// successful sync. ExternalName and Role are operator-assigned and are never
// touched by automatic membership sync.
type Member struct {
	ID           int64     `json:"id"`
	ChatID       int64     `json:"chat_id"`
	UserID       int64     `json:"user_id"`
	Username     string    `json:"username"`
	FullName     string    `json:"full_name"`
	ExternalName string    `json:"external_name"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
