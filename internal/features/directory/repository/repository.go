package repository

import (
	"context"
	"errors"

	"member-directory-bot/internal/features/directory/models"
)

var ErrMemberNotFound = errors.New("member not found")

// MemberRepository is row-level access to the members table. Each call is a
// single remote operation; no cross-row transaction is assumed.
type MemberRepository interface {
	// List returns all rows of one chat's directory in insertion order.
	List(ctx context.Context, chatID int64) ([]models.Member, error)
	Get(ctx context.Context, chatID, userID int64) (*models.Member, error)
	Insert(ctx context.Context, m *models.Member) error
	// UpdateIdentity overwrites the platform-synced fields only.
	UpdateIdentity(ctx context.Context, chatID, userID int64, username, fullName string) error
	SetExternalName(ctx context.Context, chatID, userID int64, externalName string) error
	SetRole(ctx context.Context, chatID, userID int64, role string) error
	Delete(ctx context.Context, chatID, userID int64) error
	DeleteBatch(ctx context.Context, chatID int64, userIDs []int64) error
}
