package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"member-directory-bot/internal/common/apperr"
	"member-directory-bot/internal/features/directory/models"
	"member-directory-bot/internal/features/directory/repository"
	"member-directory-bot/internal/platform/telegram"
)

// memberRepoStub is an in-memory MemberRepository that keeps insertion order.
type memberRepoStub struct {
	mu      sync.Mutex
	members []models.Member

	updateErrFor map[int64]error
	inserts      int
	updates      int
}

func newMemberRepoStub(members ...models.Member) *memberRepoStub {
	return &memberRepoStub{members: members}
}

func (r *memberRepoStub) List(_ context.Context, chatID int64) ([]models.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Member
	for _, m := range r.members {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memberRepoStub) Get(_ context.Context, chatID, userID int64) (*models.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members {
		if m.ChatID == chatID && m.UserID == userID {
			member := m
			return &member, nil
		}
	}
	return nil, repository.ErrMemberNotFound
}

func (r *memberRepoStub) Insert(_ context.Context, m *models.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inserts++
	r.members = append(r.members, *m)
	return nil
}

func (r *memberRepoStub) UpdateIdentity(_ context.Context, chatID, userID int64, username, fullName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.updateErrFor[userID]; err != nil {
		return err
	}
	for i, m := range r.members {
		if m.ChatID == chatID && m.UserID == userID {
			r.members[i].Username = username
			r.members[i].FullName = fullName
			r.updates++
			return nil
		}
	}
	return repository.ErrMemberNotFound
}

func (r *memberRepoStub) SetExternalName(_ context.Context, chatID, userID int64, externalName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.members {
		if m.ChatID == chatID && m.UserID == userID {
			r.members[i].ExternalName = externalName
			return nil
		}
	}
	return repository.ErrMemberNotFound
}

func (r *memberRepoStub) SetRole(_ context.Context, chatID, userID int64, role string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.members {
		if m.ChatID == chatID && m.UserID == userID {
			r.members[i].Role = role
			return nil
		}
	}
	return repository.ErrMemberNotFound
}

func (r *memberRepoStub) Delete(_ context.Context, chatID, userID int64) error {
	return r.DeleteBatch(context.Background(), chatID, []int64{userID})
}

func (r *memberRepoStub) DeleteBatch(_ context.Context, chatID int64, userIDs []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	drop := make(map[int64]struct{}, len(userIDs))
	for _, id := range userIDs {
		drop[id] = struct{}{}
	}
	kept := r.members[:0]
	for _, m := range r.members {
		if _, ok := drop[m.UserID]; ok && m.ChatID == chatID {
			continue
		}
		kept = append(kept, m)
	}
	r.members = kept
	return nil
}

// throttleStub returns a fixed verdict and remembers the keys it saw.
type throttleStub struct {
	allow bool
	err   error
	keys  []string
}

func (t *throttleStub) Allow(_ context.Context, key string, _ time.Duration) (bool, error) {
	t.keys = append(t.keys, key)
	return t.allow, t.err
}

func TestRegisterActivityInsertsNewMember(t *testing.T) {
	repo := newMemberRepoStub()
	svc := NewService(repo, &throttleStub{allow: false})

	// A throttled window must not suppress the first insert.
	err := svc.RegisterActivity(context.Background(), 1, telegram.User{ID: 10, FirstName: "Ann", Username: "ann"})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.inserts)
}

func TestRegisterActivityThrottledUpdateSkipped(t *testing.T) {
	repo := newMemberRepoStub(models.Member{ChatID: 1, UserID: 10, Username: "old", FullName: "Old Name"})
	svc := NewService(repo, &throttleStub{allow: false})

	err := svc.RegisterActivity(context.Background(), 1, telegram.User{ID: 10, FirstName: "New", Username: "new"})
	require.NoError(t, err)
	assert.Equal(t, 0, repo.updates)
}

func TestRegisterActivityUpdatesDriftedIdentity(t *testing.T) {
	repo := newMemberRepoStub(models.Member{ChatID: 1, UserID: 10, Username: "old", FullName: "Old Name"})
	svc := NewService(repo, &throttleStub{allow: true})

	err := svc.RegisterActivity(context.Background(), 1, telegram.User{ID: 10, FirstName: "New", Username: "new"})
	require.NoError(t, err)
	require.Equal(t, 1, repo.updates)

	m, err := repo.Get(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, "new", m.Username)
	assert.Equal(t, "New", m.FullName)
}

func TestRegisterActivityThrottleFailureDoesNotBlock(t *testing.T) {
	repo := newMemberRepoStub(models.Member{ChatID: 1, UserID: 10, Username: "old", FullName: "Old"})
	svc := NewService(repo, &throttleStub{allow: false, err: errors.New("redis down")})

	err := svc.RegisterActivity(context.Background(), 1, telegram.User{ID: 10, FirstName: "New", Username: "new"})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.updates)
}

func TestRegisterActivityIgnoresBots(t *testing.T) {
	repo := newMemberRepoStub()
	svc := NewService(repo, &throttleStub{allow: true})

	require.NoError(t, svc.RegisterActivity(context.Background(), 1, telegram.User{ID: 10, IsBot: true}))
	require.NoError(t, svc.RegisterActivity(context.Background(), 1, telegram.User{ID: 11, Username: "GroupAnonymousBot"}))
	assert.Equal(t, 0, repo.inserts)
}

func TestAssignExternalNameValidation(t *testing.T) {
	repo := newMemberRepoStub(models.Member{ChatID: 1, UserID: 10})
	svc := NewService(repo, &throttleStub{allow: true})

	err := svc.AssignExternalName(context.Background(), 1, 10, "   ")
	assert.Equal(t, apperr.CodeInvalidName, apperr.CodeOf(err))

	long := make([]rune, 101)
	for i := range long {
		long[i] = 'x'
	}
	err = svc.AssignExternalName(context.Background(), 1, 10, string(long))
	assert.Equal(t, apperr.CodeInvalidName, apperr.CodeOf(err))

	err = svc.AssignExternalName(context.Background(), 1, 99, "Ghost")
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	require.NoError(t, svc.AssignExternalName(context.Background(), 1, 10, "  Ann K  "))
	m, err := repo.Get(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, "Ann K", m.ExternalName)
}

func TestAssignRoleStripsMentions(t *testing.T) {
	repo := newMemberRepoStub(models.Member{ChatID: 1, UserID: 10})
	svc := NewService(repo, &throttleStub{allow: true})

	require.NoError(t, svc.AssignRole(context.Background(), 1, 10, "backend @ann lead"))
	m, err := repo.Get(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, "backend lead", m.Role)

	err = svc.AssignRole(context.Background(), 1, 10, "@only @mentions")
	assert.Equal(t, apperr.CodeInvalidName, apperr.CodeOf(err))
}

func TestListSortModes(t *testing.T) {
	repo := newMemberRepoStub(
		models.Member{ChatID: 1, UserID: 1, Username: "zed", FullName: "Bravo"},
		models.Member{ChatID: 1, UserID: 2, Username: "amy", FullName: "alpha"},
	)
	svc := NewService(repo, &throttleStub{allow: true})

	byName, err := svc.List(context.Background(), 1, SortByFullName)
	require.NoError(t, err)
	assert.Equal(t, "alpha", byName[0].FullName)

	byUser, err := svc.List(context.Background(), 1, SortByUsername)
	require.NoError(t, err)
	assert.Equal(t, "amy", byUser[0].Username)

	insertion, err := svc.List(context.Background(), 1, SortByInsertion)
	require.NoError(t, err)
	assert.Equal(t, int64(1), insertion[0].UserID)
}
