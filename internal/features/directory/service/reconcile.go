package service

import (
	"context"

	"member-directory-bot/internal/common/apperr"
	"member-directory-bot/internal/common/logger"
	"member-directory-bot/internal/platform/telegram"
)

// MemberStatusFetcher is the single platform call reconciliation depends on.
type MemberStatusFetcher interface {
	GetChatMember(ctx context.Context, chatID, userID int64) (*telegram.ChatMember, error)
}

// ReconcileResult reports what a reconciliation pass changed.
type ReconcileResult struct {
	Removed int `json:"removed"`
	Updated int `json:"updated"`
}

// Reconcile cross-checks every stored directory row of a chat against live
// membership. Departed and unreachable users are removed in one batch at the
// end; drifted usernames/full names are updated in place. Operator-assigned
// fields are never touched. A per-record update failure is logged and skipped
// so the rest of the scan still runs.
//
// An unreachable user (lookup error) is treated the same as a confirmed
// departure. That conflates transient API failures with real departures; the
// removal is logged distinctly so such deletions can be audited.
func (s *Service) Reconcile(ctx context.Context, chatID int64, fetcher MemberStatusFetcher) (ReconcileResult, error) {
	members, err := s.repo.List(ctx, chatID)
	if err != nil {
		return ReconcileResult{}, apperr.Wrap(err, apperr.CodeStoreUnavailable, "failed to load directory")
	}

	var result ReconcileResult
	var toRemove []int64

	for _, m := range members {
		member, err := fetcher.GetChatMember(ctx, chatID, m.UserID)
		if err != nil {
			logger.Warn().
				Err(err).
				Int64("chat_id", chatID).
				Int64("user_id", m.UserID).
				Msg("member lookup failed, treating as left")
			toRemove = append(toRemove, m.UserID)
			continue
		}

		if telegram.StatusOutsideChat(member.Status) {
			toRemove = append(toRemove, m.UserID)
			continue
		}

		live := member.User
		if m.Username == live.Username && m.FullName == live.FullName() {
			continue
		}

		if err := s.repo.UpdateIdentity(ctx, chatID, m.UserID, live.Username, live.FullName()); err != nil {
			logger.Error().
				Err(err).
				Int64("chat_id", chatID).
				Int64("user_id", m.UserID).
				Msg("reconcile update failed, skipping record")
			continue
		}
		result.Updated++
	}

	if len(toRemove) > 0 {
		if err := s.repo.DeleteBatch(ctx, chatID, toRemove); err != nil {
			return result, apperr.Wrap(err, apperr.CodeStoreUnavailable, "failed to remove departed members")
		}
		result.Removed = len(toRemove)
	}

	logger.Info().
		Int64("chat_id", chatID).
		Int("removed", result.Removed).
		Int("updated", result.Updated).
		Msg("Reconciliation finished")

	return result, nil
}
