package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authservice "member-directory-bot/internal/features/auth/service"
	"member-directory-bot/internal/features/directory/models"
	"member-directory-bot/internal/features/directory/repository"
	dirservice "member-directory-bot/internal/features/directory/service"
	selservice "member-directory-bot/internal/features/selection/service"
	"member-directory-bot/internal/platform/telegram"
)

const (
	stubBotID   = int64(999)
	stubAdminID = int64(7)
)

type apiStub struct {
	statuses map[int64]*telegram.ChatMember
	delErr   error

	sent    []string
	deleted []int64
	docs    []string
}

func (a *apiStub) BotID() int64 { return stubBotID }

func (a *apiStub) GetUpdates(context.Context, int64, time.Duration) ([]telegram.Update, error) {
	return nil, nil
}

func (a *apiStub) SendMessage(_ context.Context, _ int64, text string, _ *telegram.SendOptions) (*telegram.Message, error) {
	a.sent = append(a.sent, text)
	return &telegram.Message{}, nil
}

func (a *apiStub) EditMessageText(context.Context, int64, int64, string) error { return nil }

func (a *apiStub) AnswerCallbackQuery(context.Context, string, string, bool) error { return nil }

func (a *apiStub) DeleteMessage(_ context.Context, _ int64, messageID int64) error {
	if a.delErr != nil {
		return a.delErr
	}
	a.deleted = append(a.deleted, messageID)
	return nil
}

func (a *apiStub) SendDocument(_ context.Context, _ int64, filename string, _ []byte, _ string) error {
	a.docs = append(a.docs, filename)
	return nil
}

func (a *apiStub) GetChatMember(_ context.Context, _, userID int64) (*telegram.ChatMember, error) {
	if m, ok := a.statuses[userID]; ok {
		return m, nil
	}
	return nil, errors.New("unknown user")
}

func (a *apiStub) GetChatAdministrators(context.Context, int64) ([]telegram.ChatMember, error) {
	return []telegram.ChatMember{
		{Status: telegram.StatusAdministrator, User: telegram.User{ID: stubAdminID}},
		{Status: telegram.StatusAdministrator, User: telegram.User{ID: stubBotID, IsBot: true}},
	}, nil
}

type memberRepoStub struct {
	members []models.Member
}

func (r *memberRepoStub) List(_ context.Context, chatID int64) ([]models.Member, error) {
	var out []models.Member
	for _, m := range r.members {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memberRepoStub) Get(_ context.Context, chatID, userID int64) (*models.Member, error) {
	for _, m := range r.members {
		if m.ChatID == chatID && m.UserID == userID {
			member := m
			return &member, nil
		}
	}
	return nil, repository.ErrMemberNotFound
}

func (r *memberRepoStub) Insert(_ context.Context, m *models.Member) error {
	r.members = append(r.members, *m)
	return nil
}

func (r *memberRepoStub) UpdateIdentity(_ context.Context, chatID, userID int64, username, fullName string) error {
	for i, m := range r.members {
		if m.ChatID == chatID && m.UserID == userID {
			r.members[i].Username = username
			r.members[i].FullName = fullName
			return nil
		}
	}
	return repository.ErrMemberNotFound
}

func (r *memberRepoStub) SetExternalName(_ context.Context, chatID, userID int64, externalName string) error {
	for i, m := range r.members {
		if m.ChatID == chatID && m.UserID == userID {
			r.members[i].ExternalName = externalName
			return nil
		}
	}
	return repository.ErrMemberNotFound
}

func (r *memberRepoStub) SetRole(_ context.Context, chatID, userID int64, role string) error {
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

type allowAllThrottle struct{}

func (allowAllThrottle) Allow(context.Context, string, time.Duration) (bool, error) {
	return true, nil
}

func newTestBot(api *apiStub, repo *memberRepoStub) *Bot {
	directory := dirservice.NewService(repo, allowAllThrottle{})
	auth := authservice.NewService(api, stubBotID)
	selection := selservice.NewService(directory, auth)
	return New(api, directory, auth, selection, nil, allowAllThrottle{}, time.Second)
}

func adminCommand(text string) *telegram.Message {
	return &telegram.Message{
		MessageID: 42,
		From:      &telegram.User{ID: stubAdminID, FirstName: "Admin"},
		Chat:      telegram.Chat{ID: 1, Type: "supergroup"},
		Text:      text,
	}
}

func TestAdminCommandMessageDeleted(t *testing.T) {
	api := &apiStub{}
	repo := &memberRepoStub{members: []models.Member{
		{ChatID: 1, UserID: 10, Username: "bob", FullName: "Bob"},
	}}
	b := newTestBot(api, repo)

	b.handleMessage(context.Background(), adminCommand("/setname @bob Robert"))

	m, err := repo.Get(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, "Robert", m.ExternalName)
	assert.Equal(t, []int64{42}, api.deleted)
}

func TestCleanupCommandMessageDeleted(t *testing.T) {
	api := &apiStub{statuses: map[int64]*telegram.ChatMember{
		10: {Status: telegram.StatusLeft, User: telegram.User{ID: 10}},
	}}
	repo := &memberRepoStub{members: []models.Member{
		{ChatID: 1, UserID: 10, Username: "bob", FullName: "Bob"},
	}}
	b := newTestBot(api, repo)

	b.handleMessage(context.Background(), adminCommand("/cleanup"))

	members, err := repo.List(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, members)
	assert.Equal(t, []int64{42}, api.deleted)
}

func TestNonAdminCommandMessageKept(t *testing.T) {
	api := &apiStub{}
	repo := &memberRepoStub{members: []models.Member{
		{ChatID: 1, UserID: 10, Username: "bob", FullName: "Bob"},
	}}
	b := newTestBot(api, repo)

	msg := adminCommand("/setname @bob Robert")
	msg.From = &telegram.User{ID: 8}
	b.handleMessage(context.Background(), msg)

	assert.Empty(t, api.deleted)
	m, err := repo.Get(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Empty(t, m.ExternalName)
}

func TestCommandDeleteFailureSuppressed(t *testing.T) {
	api := &apiStub{delErr: errors.New("not enough rights")}
	repo := &memberRepoStub{members: []models.Member{
		{ChatID: 1, UserID: 10, Username: "bob", FullName: "Bob"},
	}}
	b := newTestBot(api, repo)

	b.handleMessage(context.Background(), adminCommand("/export"))

	// The export still went out; the failed delete is silently dropped.
	assert.Len(t, api.docs, 1)
	assert.Empty(t, api.deleted)
}
