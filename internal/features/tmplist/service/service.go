package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"member-directory-bot/internal/common/apperr"
	"member-directory-bot/internal/common/logger"
	"member-directory-bot/internal/features/tmplist/models"
	"member-directory-bot/internal/features/tmplist/repository"
)

const (
	maxActiveLists = 3
	listLifetime   = 24 * time.Hour
)

// List names are short identifiers; the pattern cannot start with "@" so a
// name is never mistakable for a username mention.
var listNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{2,32}$`)

// CreateOrExtendResult reports what CreateOrExtend did.
type CreateOrExtendResult struct {
	ListID     int64
	IsNewList  bool
	AddedCount int
}

type Service struct {
	repo repository.ListRepository
	now  func() time.Time
}

func NewService(repo repository.ListRepository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// canonicalName validates and case-folds a list name.
func canonicalName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if !listNamePattern.MatchString(name) {
		return "", apperr.New(apperr.CodeInvalidName,
			"list name must be 2-32 characters of letters, digits, '_' or '-'")
	}
	return strings.ToLower(name), nil
}

// sweep lazily expires overdue lists. It runs at the top of every operation,
// so an expired list disappears from capacity checks and name lookups on the
// very next call that touches the chat.
func (s *Service) sweep(ctx context.Context, chatID int64) error {
	if err := s.repo.DeactivateExpired(ctx, chatID, s.now()); err != nil {
		return apperr.Wrap(err, apperr.CodeStoreUnavailable, "failed to expire temporary lists")
	}
	return nil
}

// CreateOrExtend creates a list named name, or extends it when it already
// exists, and appends the given members. AddedCount counts only rows that
// were actually inserted; re-adding a member is a no-op.
func (s *Service) CreateOrExtend(ctx context.Context, chatID int64, name string, actingUserID int64, userIDs []int64) (CreateOrExtendResult, error) {
	name, err := canonicalName(name)
	if err != nil {
		return CreateOrExtendResult{}, err
	}

	if err := s.sweep(ctx, chatID); err != nil {
		return CreateOrExtendResult{}, err
	}

	list, err := s.repo.ActiveByName(ctx, chatID, name)
	isNew := false
	if errors.Is(err, repository.ErrListNotFound) {
		active, err := s.repo.ActiveByChat(ctx, chatID)
		if err != nil {
			return CreateOrExtendResult{}, apperr.Wrap(err, apperr.CodeStoreUnavailable, "failed to count active lists")
		}
		if len(active) >= maxActiveLists {
			return CreateOrExtendResult{}, apperr.Newf(apperr.CodeCapacityExceeded,
				"chat already has %d active lists", maxActiveLists)
		}

		now := s.now()
		list = &models.List{
			ChatID:    chatID,
			Name:      name,
			CreatedBy: actingUserID,
			CreatedAt: now,
			ExpiresAt: now.Add(listLifetime),
		}
		if err := s.repo.Create(ctx, list); err != nil {
			return CreateOrExtendResult{}, apperr.Wrap(err, apperr.CodeStoreUnavailable, "failed to create list")
		}
		isNew = true
	} else if err != nil {
		return CreateOrExtendResult{}, apperr.Wrap(err, apperr.CodeStoreUnavailable, "failed to look up list")
	}

	added := 0
	for _, userID := range userIDs {
		inserted, err := s.repo.AddItem(ctx, list.ID, userID)
		if err != nil {
			// Scoped failure: the remaining members are still attempted.
			logger.Error().
				Err(err).
				Int64("list_id", list.ID).
				Int64("user_id", userID).
				Msg("failed to add list member")
			continue
		}
		if inserted {
			added++
		}
	}

	return CreateOrExtendResult{ListID: list.ID, IsNewList: isNew, AddedCount: added}, nil
}

// Delete deactivates a list immediately, independent of its expiry.
func (s *Service) Delete(ctx context.Context, chatID int64, name string) error {
	name, err := canonicalName(name)
	if err != nil {
		return err
	}

	if err := s.sweep(ctx, chatID); err != nil {
		return err
	}

	list, err := s.repo.ActiveByName(ctx, chatID, name)
	if errors.Is(err, repository.ErrListNotFound) {
		return apperr.Newf(apperr.CodeNotFound, "no active list named %q", name)
	}
	if err != nil {
		return apperr.Wrap(err, apperr.CodeStoreUnavailable, "failed to look up list")
	}

	if err := s.repo.Deactivate(ctx, list.ID); err != nil {
		if errors.Is(err, repository.ErrListNotFound) {
			return apperr.Newf(apperr.CodeNotFound, "no active list named %q", name)
		}
		return apperr.Wrap(err, apperr.CodeStoreUnavailable, "failed to delete list")
	}
	return nil
}

// RemoveMembers deletes the given members from an active list. Membership of
// inactive lists is immutable.
func (s *Service) RemoveMembers(ctx context.Context, chatID int64, name string, userIDs []int64) error {
	name, err := canonicalName(name)
	if err != nil {
		return err
	}

	if err := s.sweep(ctx, chatID); err != nil {
		return err
	}

	list, err := s.repo.ActiveByName(ctx, chatID, name)
	if errors.Is(err, repository.ErrListNotFound) {
		return apperr.Newf(apperr.CodeNotFound, "no active list named %q", name)
	}
	if err != nil {
		return apperr.Wrap(err, apperr.CodeStoreUnavailable, "failed to look up list")
	}

	for _, userID := range userIDs {
		if err := s.repo.RemoveItem(ctx, list.ID, userID); err != nil {
			logger.Error().
				Err(err).
				Int64("list_id", list.ID).
				Int64("user_id", userID).
				Msg("failed to remove list member")
		}
	}
	return nil
}

// Members returns the user ids of an active list.
func (s *Service) Members(ctx context.Context, chatID int64, name string) ([]int64, error) {
	name, err := canonicalName(name)
	if err != nil {
		return nil, err
	}

	if err := s.sweep(ctx, chatID); err != nil {
		return nil, err
	}

	list, err := s.repo.ActiveByName(ctx, chatID, name)
	if errors.Is(err, repository.ErrListNotFound) {
		return nil, apperr.Newf(apperr.CodeNotFound, "no active list named %q", name)
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStoreUnavailable, "failed to look up list")
	}

	userIDs, err := s.repo.Items(ctx, list.ID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStoreUnavailable, "failed to load list members")
	}
	return userIDs, nil
}

// ActiveLists returns the chat's active lists after the expiry sweep.
func (s *Service) ActiveLists(ctx context.Context, chatID int64) ([]models.List, error) {
	if err := s.sweep(ctx, chatID); err != nil {
		return nil, err
	}

	lists, err := s.repo.ActiveByChat(ctx, chatID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStoreUnavailable, "failed to load lists")
	}
	return lists, nil
}
