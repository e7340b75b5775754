package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"member-directory-bot/internal/common/apperr"
	"member-directory-bot/internal/common/logger"
	"member-directory-bot/internal/common/throttle"
	"member-directory-bot/internal/features/directory/models"
	"member-directory-bot/internal/features/directory/repository"
	"member-directory-bot/internal/platform/telegram"
)

const (
	// Identity refresh is throttled per user to keep chatter from hammering
	// the store on every message.
	activityUpdateTTL = 10 * time.Second

	maxExternalNameLen = 100

	// The anonymous-admin placeholder account must never enter the directory.
	anonymousBotUsername = "GroupAnonymousBot"
)

// SortMode selects the ordering of listings and exports.
type SortMode string

const (
	SortByInsertion SortMode = ""
	SortByFullName  SortMode = "name"
	SortByUsername  SortMode = "username"
	SortByExternal  SortMode = "external"
)

// ParseSortMode maps command arguments ("n", "user", "ext", ...) to a mode.
func ParseSortMode(arg string) SortMode {
	switch strings.ToLower(arg) {
	case "name", "n":
		return SortByFullName
	case "username", "user", "u":
		return SortByUsername
	case "external", "ext", "e":
		return SortByExternal
	default:
		return SortByInsertion
	}
}

type Service struct {
	repo     repository.MemberRepository
	throttle throttle.Throttle
}

func NewService(repo repository.MemberRepository, th throttle.Throttle) *Service {
	return &Service{repo: repo, throttle: th}
}

func trackable(user telegram.User) bool {
	return !user.IsBot && user.Username != anonymousBotUsername
}

// RegisterActivity creates or refreshes the directory row for a user who just
// wrote a message. Inserts are never throttled; identity updates are.
func (s *Service) RegisterActivity(ctx context.Context, chatID int64, user telegram.User) error {
	if !trackable(user) {
		return nil
	}

	allowed, err := s.throttle.Allow(ctx,
		fmt.Sprintf("member:activity:%d:%d", chatID, user.ID), activityUpdateTTL)
	if err != nil {
		// A broken throttle must not suppress directory upkeep.
		logger.Debug().Err(err).Msg("activity throttle unavailable")
		allowed = true
	}

	m, err := s.repo.Get(ctx, chatID, user.ID)
	if errors.Is(err, repository.ErrMemberNotFound) {
		return s.insert(ctx, chatID, user)
	}
	if err != nil {
		return apperr.Wrap(err, apperr.CodeStoreUnavailable, "failed to read member")
	}

	if !allowed {
		return nil
	}
	if m.Username == user.Username && m.FullName == user.FullName() {
		return nil
	}

	if err := s.repo.UpdateIdentity(ctx, chatID, user.ID, user.Username, user.FullName()); err != nil {
		return apperr.Wrap(err, apperr.CodeStoreUnavailable, "failed to refresh member identity")
	}
	return nil
}

// UpsertFromEvent records a user observed via a join event or a reply target.
func (s *Service) UpsertFromEvent(ctx context.Context, chatID int64, user telegram.User) error {
	if !trackable(user) {
		return nil
	}

	m, err := s.repo.Get(ctx, chatID, user.ID)
	if errors.Is(err, repository.ErrMemberNotFound) {
		return s.insert(ctx, chatID, user)
	}
	if err != nil {
		return apperr.Wrap(err, apperr.CodeStoreUnavailable, "failed to read member")
	}

	if m.Username == user.Username && m.FullName == user.FullName() {
		return nil
	}
	if err := s.repo.UpdateIdentity(ctx, chatID, user.ID, user.Username, user.FullName()); err != nil {
		return apperr.Wrap(err, apperr.CodeStoreUnavailable, "failed to refresh member identity")
	}
	return nil
}

func (s *Service) insert(ctx context.Context, chatID int64, user telegram.User) error {
	m := &models.Member{
		ChatID:   chatID,
		UserID:   user.ID,
		Username: user.Username,
		FullName: user.FullName(),
	}
	if err := s.repo.Insert(ctx, m); err != nil {
		return apperr.Wrap(err, apperr.CodeStoreUnavailable, "failed to insert member")
	}
	return nil
}

// RemoveFromEvent drops the directory row after a leave/kick event.
func (s *Service) RemoveFromEvent(ctx context.Context, chatID, userID int64) error {
	if err := s.repo.Delete(ctx, chatID, userID); err != nil {
		return apperr.Wrap(err, apperr.CodeStoreUnavailable, "failed to delete member")
	}
	return nil
}

// ResolveTarget resolves a free-form target string against the chat directory.
func (s *Service) ResolveTarget(ctx context.Context, chatID int64, query string) (Resolution, error) {
	members, err := s.repo.List(ctx, chatID)
	if err != nil {
		return Resolution{}, apperr.Wrap(err, apperr.CodeStoreUnavailable, "failed to load directory")
	}
	return Resolve(members, query), nil
}

// AssignExternalName sets the sticky operator-assigned name of a member.
func (s *Service) AssignExternalName(ctx context.Context, chatID, userID int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperr.New(apperr.CodeInvalidName, "name must not be blank")
	}
	if len([]rune(name)) > maxExternalNameLen {
		return apperr.Newf(apperr.CodeInvalidName, "name longer than %d characters", maxExternalNameLen)
	}

	err := s.repo.SetExternalName(ctx, chatID, userID, name)
	if errors.Is(err, repository.ErrMemberNotFound) {
		return apperr.New(apperr.CodeNotFound, "member is not in the directory")
	}
	if err != nil {
		return apperr.Wrap(err, apperr.CodeStoreUnavailable, "failed to save external name")
	}
	return nil
}

// AssignRole sets the free-text role label of a member. Words starting with
// "@" are stripped so a pasted mention does not end up inside the label.
func (s *Service) AssignRole(ctx context.Context, chatID, userID int64, role string) error {
	words := strings.Fields(role)
	kept := words[:0]
	for _, w := range words {
		if !strings.HasPrefix(w, "@") {
			kept = append(kept, w)
		}
	}
	role = strings.Join(kept, " ")
	if role == "" {
		return apperr.New(apperr.CodeInvalidName, "role must not be blank")
	}

	err := s.repo.SetRole(ctx, chatID, userID, role)
	if errors.Is(err, repository.ErrMemberNotFound) {
		return apperr.New(apperr.CodeNotFound, "member is not in the directory")
	}
	if err != nil {
		return apperr.Wrap(err, apperr.CodeStoreUnavailable, "failed to save role")
	}
	return nil
}

// List returns the chat directory ordered by the requested mode.
func (s *Service) List(ctx context.Context, chatID int64, mode SortMode) ([]models.Member, error) {
	members, err := s.repo.List(ctx, chatID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStoreUnavailable, "failed to load directory")
	}

	switch mode {
	case SortByFullName:
		sort.SliceStable(members, func(i, j int) bool {
			return strings.ToLower(members[i].FullName) < strings.ToLower(members[j].FullName)
		})
	case SortByUsername:
		sort.SliceStable(members, func(i, j int) bool {
			return strings.ToLower(members[i].Username) < strings.ToLower(members[j].Username)
		})
	case SortByExternal:
		sort.SliceStable(members, func(i, j int) bool {
			return strings.ToLower(members[i].ExternalName) < strings.ToLower(members[j].ExternalName)
		})
	}

	return members, nil
}

// Find returns every member whose full name, external name, username or role
// contains the query, case-insensitively.
func (s *Service) Find(ctx context.Context, chatID int64, query string) ([]models.Member, error) {
	members, err := s.repo.List(ctx, chatID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStoreUnavailable, "failed to load directory")
	}

	target := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(query, "@")))
	if target == "" {
		return nil, nil
	}

	var results []models.Member
	for _, m := range members {
		if containsFold(m.FullName, target) ||
			containsFold(m.Username, target) ||
			containsFold(m.ExternalName, target) ||
			containsFold(m.Role, target) {
			results = append(results, m)
		}
	}
	return results, nil
}

// LookupByUsername finds a stored member by exact username, for resolving
// "@mention" entities that carry no user id.
func (s *Service) LookupByUsername(ctx context.Context, chatID int64, username string) (*models.Member, error) {
	members, err := s.repo.List(ctx, chatID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStoreUnavailable, "failed to load directory")
	}

	username = strings.ToLower(strings.TrimPrefix(username, "@"))
	for _, m := range members {
		if m.Username != "" && strings.ToLower(m.Username) == username {
			member := m
			return &member, nil
		}
	}
	return nil, apperr.New(apperr.CodeNotFound, "username is not in the directory")
}
