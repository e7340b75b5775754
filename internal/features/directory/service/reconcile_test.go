package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"member-directory-bot/internal/features/directory/models"
	"member-directory-bot/internal/platform/telegram"
)

// fetcherStub maps user ids to canned lookups.
type fetcherStub struct {
	statuses map[int64]*telegram.ChatMember
	errs     map[int64]error
	calls    int
}

func (f *fetcherStub) GetChatMember(_ context.Context, _, userID int64) (*telegram.ChatMember, error) {
	f.calls++
	if err := f.errs[userID]; err != nil {
		return nil, err
	}
	if m, ok := f.statuses[userID]; ok {
		return m, nil
	}
	return nil, errors.New("unexpected user")
}

func TestReconcileOutcomes(t *testing.T) {
	repo := newMemberRepoStub(
		models.Member{ChatID: 1, UserID: 10, Username: "same", FullName: "Same", ExternalName: "Kept", Role: "lead"},
		models.Member{ChatID: 1, UserID: 20, Username: "old", FullName: "Old Name", ExternalName: "Sticky"},
		models.Member{ChatID: 1, UserID: 30, Username: "gone", FullName: "Gone"},
		models.Member{ChatID: 1, UserID: 40, Username: "lost", FullName: "Lost"},
	)
	fetcher := &fetcherStub{
		statuses: map[int64]*telegram.ChatMember{
			10: {Status: telegram.StatusMember, User: telegram.User{ID: 10, FirstName: "Same", Username: "same"}},
			20: {Status: telegram.StatusMember, User: telegram.User{ID: 20, FirstName: "New", LastName: "Name", Username: "fresh"}},
			30: {Status: telegram.StatusLeft, User: telegram.User{ID: 30}},
		},
		errs: map[int64]error{40: errors.New("user not reachable")},
	}
	svc := NewService(repo, &throttleStub{allow: true})

	result, err := svc.Reconcile(context.Background(), 1, fetcher)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Removed)
	assert.Equal(t, 1, result.Updated)

	remaining, err := repo.List(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, remaining, 2)

	// Drifted identity refreshed; operator-assigned fields untouched.
	m, err := repo.Get(context.Background(), 1, 20)
	require.NoError(t, err)
	assert.Equal(t, "fresh", m.Username)
	assert.Equal(t, "New Name", m.FullName)
	assert.Equal(t, "Sticky", m.ExternalName)

	_, err = repo.Get(context.Background(), 1, 30)
	assert.Error(t, err)
	_, err = repo.Get(context.Background(), 1, 40)
	assert.Error(t, err)
}

func TestReconcileIsIdempotent(t *testing.T) {
	repo := newMemberRepoStub(
		models.Member{ChatID: 1, UserID: 10, Username: "same", FullName: "Same"},
		models.Member{ChatID: 1, UserID: 30, Username: "gone", FullName: "Gone"},
	)
	fetcher := &fetcherStub{
		statuses: map[int64]*telegram.ChatMember{
			10: {Status: telegram.StatusMember, User: telegram.User{ID: 10, FirstName: "Same", Username: "same"}},
			30: {Status: telegram.StatusKicked, User: telegram.User{ID: 30}},
		},
	}
	svc := NewService(repo, &throttleStub{allow: true})

	first, err := svc.Reconcile(context.Background(), 1, fetcher)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Removed)

	second, err := svc.Reconcile(context.Background(), 1, fetcher)
	require.NoError(t, err)
	assert.Equal(t, ReconcileResult{}, second)
}

func TestReconcileSkipsFailedUpdate(t *testing.T) {
	repo := newMemberRepoStub(
		models.Member{ChatID: 1, UserID: 10, Username: "old_a", FullName: "A"},
		models.Member{ChatID: 1, UserID: 20, Username: "old_b", FullName: "B"},
	)
	repo.updateErrFor = map[int64]error{10: errors.New("write failed")}
	fetcher := &fetcherStub{
		statuses: map[int64]*telegram.ChatMember{
			10: {Status: telegram.StatusMember, User: telegram.User{ID: 10, FirstName: "A", Username: "new_a"}},
			20: {Status: telegram.StatusMember, User: telegram.User{ID: 20, FirstName: "B", Username: "new_b"}},
		},
	}
	svc := NewService(repo, &throttleStub{allow: true})

	result, err := svc.Reconcile(context.Background(), 1, fetcher)
	require.NoError(t, err)

	// The failed record is skipped, the rest of the scan still runs.
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 0, result.Removed)
	assert.Equal(t, 2, fetcher.calls)
}
