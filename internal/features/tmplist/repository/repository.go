package repository

import (
	"context"
	"errors"
	"time"

	"member-directory-bot/internal/features/tmplist/models"
)

var ErrListNotFound = errors.New("temporary list not found")

// ListRepository is row-level access to the tmplists and tmplist_items tables.
type ListRepository interface {
	ActiveByChat(ctx context.Context, chatID int64) ([]models.List, error)
	ActiveByName(ctx context.Context, chatID int64, name string) (*models.List, error)
	// Create stores the list and fills in its id.
	Create(ctx context.Context, l *models.List) error
	Deactivate(ctx context.Context, listID int64) error
	// DeactivateExpired flips every active list of the chat whose expiry has
	// passed. There is no background sweeper; callers run this before reads.
	DeactivateExpired(ctx context.Context, chatID int64, now time.Time) error
	// AddItem inserts the pair unless it already exists and reports whether a
	// row was actually added.
	AddItem(ctx context.Context, listID, userID int64) (bool, error)
	RemoveItem(ctx context.Context, listID, userID int64) error
	Items(ctx context.Context, listID int64) ([]int64, error)
}
