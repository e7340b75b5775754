package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"member-directory-bot/internal/common/apperr"
	"member-directory-bot/internal/platform/telegram"
)

const testBotID = int64(999)

type adminListerStub struct {
	admins map[int64][]telegram.ChatMember
	err    error
	calls  int
}

func (l *adminListerStub) GetChatAdministrators(_ context.Context, chatID int64) ([]telegram.ChatMember, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	return l.admins[chatID], nil
}

func adminMembers(ids ...int64) []telegram.ChatMember {
	out := make([]telegram.ChatMember, 0, len(ids))
	for _, id := range ids {
		out = append(out, telegram.ChatMember{Status: telegram.StatusAdministrator, User: telegram.User{ID: id}})
	}
	return out
}

func TestAdminIDsCachedWithinTTL(t *testing.T) {
	lister := &adminListerStub{admins: map[int64][]telegram.ChatMember{1: adminMembers(7, testBotID)}}
	svc := NewService(lister, testBotID)

	current := time.Unix(1000, 0)
	svc.now = func() time.Time { return current }

	assert.True(t, svc.IsAdmin(context.Background(), 1, 7))
	assert.True(t, svc.IsAdmin(context.Background(), 1, 7))
	assert.False(t, svc.IsAdmin(context.Background(), 1, 8))
	assert.Equal(t, 1, lister.calls)

	// Just inside the window: still served from cache.
	current = current.Add(adminCacheTTL - time.Millisecond)
	assert.True(t, svc.IsAdmin(context.Background(), 1, 7))
	assert.Equal(t, 1, lister.calls)

	// Past the window: one refresh, then cached again.
	current = current.Add(2 * time.Millisecond)
	assert.True(t, svc.IsAdmin(context.Background(), 1, 7))
	assert.True(t, svc.IsBotAdmin(context.Background(), 1))
	assert.Equal(t, 2, lister.calls)
}

func TestAdminIDsPerChatCaches(t *testing.T) {
	lister := &adminListerStub{admins: map[int64][]telegram.ChatMember{
		1: adminMembers(7),
		2: adminMembers(8),
	}}
	svc := NewService(lister, testBotID)

	assert.True(t, svc.IsAdmin(context.Background(), 1, 7))
	assert.True(t, svc.IsAdmin(context.Background(), 2, 8))
	assert.False(t, svc.IsAdmin(context.Background(), 2, 7))
	assert.Equal(t, 2, lister.calls)
}

func TestAdminIDsFailClosedAndRetries(t *testing.T) {
	lister := &adminListerStub{err: errors.New("api down")}
	svc := NewService(lister, testBotID)

	// A failed refresh denies, and the failure itself is not cached.
	assert.False(t, svc.IsAdmin(context.Background(), 1, 7))
	assert.Equal(t, 1, lister.calls)

	lister.err = nil
	lister.admins = map[int64][]telegram.ChatMember{1: adminMembers(7)}
	assert.True(t, svc.IsAdmin(context.Background(), 1, 7))
	assert.Equal(t, 2, lister.calls)
}

func TestGateOrdering(t *testing.T) {
	lister := &adminListerStub{admins: map[int64][]telegram.ChatMember{1: adminMembers(7)}}
	svc := NewService(lister, testBotID)

	group := telegram.Chat{ID: 1, Type: "supergroup"}

	err := svc.Gate(context.Background(), telegram.Chat{ID: 5, Type: "private"}, 7)
	assert.Equal(t, apperr.ReasonWrongContext, apperr.ReasonOf(err))

	err = svc.Gate(context.Background(), group, 8)
	assert.Equal(t, apperr.ReasonActorNotAdmin, apperr.ReasonOf(err))

	// Actor is admin but the bot is not.
	err = svc.Gate(context.Background(), group, 7)
	assert.Equal(t, apperr.ReasonBotNotAdmin, apperr.ReasonOf(err))

	lister.admins[1] = adminMembers(7, testBotID)
	svc.now = func() time.Time { return time.Now().Add(time.Minute) }
	require.NoError(t, svc.Gate(context.Background(), group, 7))
}
