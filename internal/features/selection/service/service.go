package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"member-directory-bot/internal/common/apperr"
	"member-directory-bot/internal/features/directory/models"
)

// ActionKind is the closed set of operations a pending selection can carry.
type ActionKind int

const (
	ActionAssignName ActionKind = iota
	ActionAssignRole
)

// Action is the typed payload bound to every candidate of a proposal.
type Action struct {
	Kind  ActionKind
	Value string
}

// DirectoryWriter applies a completed selection to the single bound record.
type DirectoryWriter interface {
	AssignExternalName(ctx context.Context, chatID, userID int64, name string) error
	AssignRole(ctx context.Context, chatID, userID int64, role string) error
}

// AdminChecker re-validates the acting user at completion time.
type AdminChecker interface {
	IsAdmin(ctx context.Context, chatID, userID int64) bool
}

type pendingSelection struct {
	chatID    int64
	userID    int64
	action    Action
	createdAt time.Time
}

// Choice pairs a candidate record with its opaque task id. Each choice is an
// independent capability; consuming one leaves its siblings valid.
type Choice struct {
	TaskID string
	Member models.Member
}

// Completed reports what a consumed selection applied.
type Completed struct {
	ChatID int64
	UserID int64
	Action Action
}

// Service holds the process-wide pending-selection map.
type Service struct {
	directory DirectoryWriter
	auth      AdminChecker
	now       func() time.Time

	mu    sync.Mutex
	tasks map[string]pendingSelection
}

func NewService(directory DirectoryWriter, auth AdminChecker) *Service {
	return &Service{
		directory: directory,
		auth:      auth,
		now:       time.Now,
		tasks:     make(map[string]pendingSelection),
	}
}

// Propose registers one pending task per candidate and returns the choices in
// candidate order.
func (s *Service) Propose(chatID int64, candidates []models.Member, action Action) []Choice {
	choices := make([]Choice, 0, len(candidates))

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, candidate := range candidates {
		taskID := uuid.NewString()
		s.tasks[taskID] = pendingSelection{
			chatID:    chatID,
			userID:    candidate.UserID,
			action:    action,
			createdAt: s.now(),
		}
		choices = append(choices, Choice{TaskID: taskID, Member: candidate})
	}

	return choices
}

// claim atomically removes and returns the task, so concurrent completions of
// the same id yield exactly one winner.
func (s *Service) claim(taskID string) (pendingSelection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.tasks[taskID]
	if ok {
		delete(s.tasks, taskID)
	}
	return p, ok
}

// Complete consumes a task id and applies its action. Unknown or already
// consumed ids fail with an invalid-selection error. The acting user's admin
// rights are checked now, not at proposal time: rights may have been revoked
// while the choice sat unanswered.
func (s *Service) Complete(ctx context.Context, taskID string, actingUserID int64) (Completed, error) {
	p, ok := s.claim(taskID)
	if !ok {
		return Completed{}, apperr.New(apperr.CodeInvalidSelection, "selection is stale or already used")
	}

	if !s.auth.IsAdmin(ctx, p.chatID, actingUserID) {
		return Completed{}, apperr.Unauthorized(apperr.ReasonActorNotAdmin, "selection requires administrator rights")
	}

	var err error
	switch p.action.Kind {
	case ActionAssignName:
		err = s.directory.AssignExternalName(ctx, p.chatID, p.userID, p.action.Value)
	case ActionAssignRole:
		err = s.directory.AssignRole(ctx, p.chatID, p.userID, p.action.Value)
	default:
		err = fmt.Errorf("unknown action kind %d", p.action.Kind)
	}
	if err != nil {
		return Completed{}, err
	}

	return Completed{ChatID: p.chatID, UserID: p.userID, Action: p.action}, nil
}
