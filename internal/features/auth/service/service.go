package service

import (
	"context"
	"sync"
	"time"

	"member-directory-bot/internal/common/apperr"
	"member-directory-bot/internal/common/logger"
	"member-directory-bot/internal/platform/telegram"
)

// adminCacheTTL bounds how stale an authorization decision may be.
const adminCacheTTL = 10 * time.Second

// AdminLister is the platform call the cache wraps.
type AdminLister interface {
	GetChatAdministrators(ctx context.Context, chatID int64) ([]telegram.ChatMember, error)
}

type cacheEntry struct {
	mu        sync.Mutex
	fetchedAt time.Time
	admins    map[int64]struct{}
}

// Service caches per-chat administrator sets with a short TTL. A failed
// refresh denies rather than grants: the caller gets an empty set and the
// stale entry is not reused.
type Service struct {
	api   AdminLister
	botID int64
	ttl   time.Duration
	now   func() time.Time

	mu      sync.Mutex
	entries map[int64]*cacheEntry
}

func NewService(api AdminLister, botID int64) *Service {
	return &Service{
		api:     api,
		botID:   botID,
		ttl:     adminCacheTTL,
		now:     time.Now,
		entries: make(map[int64]*cacheEntry),
	}
}

func (s *Service) entry(chatID int64) *cacheEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[chatID]
	if !ok {
		e = &cacheEntry{}
		s.entries[chatID] = e
	}
	return e
}

// AdminIDs returns the cached admin set for a chat, refreshing it when older
// than the TTL. The per-chat lock keeps concurrent callers on the same chat
// from refreshing twice without blocking other chats.
func (s *Service) AdminIDs(ctx context.Context, chatID int64) map[int64]struct{} {
	e := s.entry(chatID)

	e.mu.Lock()
	defer e.mu.Unlock()

	now := s.now()
	if e.admins != nil && now.Sub(e.fetchedAt) < s.ttl {
		return e.admins
	}

	admins, err := s.api.GetChatAdministrators(ctx, chatID)
	if err != nil {
		logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to fetch chat administrators")
		return map[int64]struct{}{}
	}

	set := make(map[int64]struct{}, len(admins))
	for _, a := range admins {
		set[a.User.ID] = struct{}{}
	}

	e.fetchedAt = now
	e.admins = set
	return set
}

// IsAdmin reports whether the user currently administers the chat.
func (s *Service) IsAdmin(ctx context.Context, chatID, userID int64) bool {
	_, ok := s.AdminIDs(ctx, chatID)[userID]
	return ok
}

// IsBotAdmin reports whether the bot itself administers the chat.
func (s *Service) IsBotAdmin(ctx context.Context, chatID int64) bool {
	_, ok := s.AdminIDs(ctx, chatID)[s.botID]
	return ok
}

// Gate is the composite check in front of every privileged operation. The
// three failure reasons stay distinguishable so each maps to its own
// user-facing message.
func (s *Service) Gate(ctx context.Context, chat telegram.Chat, userID int64) error {
	if !chat.IsGroup() {
		return apperr.Unauthorized(apperr.ReasonWrongContext, "command only works in group chats")
	}

	admins := s.AdminIDs(ctx, chat.ID)

	if _, ok := admins[userID]; !ok {
		return apperr.Unauthorized(apperr.ReasonActorNotAdmin, "command is restricted to chat administrators")
	}
	if _, ok := admins[s.botID]; !ok {
		return apperr.Unauthorized(apperr.ReasonBotNotAdmin, "bot needs administrator rights for this command")
	}
	return nil
}
