package activity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"go.temporal.io/sdk/temporal"

	"github.com/tinkerloft/formpilot/internal/model"
	"github.com/tinkerloft/formpilot/internal/notify"
	"github.com/tinkerloft/formpilot/internal/session"
)

// AttemptQuestionInput is the input for the AttemptQuestion activity.
type AttemptQuestionInput struct {
	SessionID string              `json:"session_id"`
	Question  model.QuestionInput `json:"question"`
}

// NotifyHumanInput is the input for the NotifyHuman activity.
type NotifyHumanInput struct {
	SessionID string               `json:"session_id"`
	Channel   string               `json:"channel"`
	Result    model.QuestionResult `json:"result"`
}

// ResolveQuestionInput is the input for the ResolveQuestion activity.
type ResolveQuestionInput struct {
	SessionID string               `json:"session_id"`
	Result    model.QuestionResult `json:"result"`
	Answer    string               `json:"answer"`
}

// MergeKnowledgeInput is the input for the MergeKnowledge activity.
type MergeKnowledgeInput struct {
	Dir string `json:"dir"`
}

// SessionDepsFunc returns the dependencies one session runs against.
type SessionDepsFunc func(sessionID string) (session.Deps, error)

// Option configures SessionActivities.
type Option func(*SessionActivities)

// WithSessionDeps gives each session its own dependencies, typically a store
// backed by a per-session snapshot. Without it every session shares the
// worker's store.
func WithSessionDeps(fn SessionDepsFunc) Option {
	return func(a *SessionActivities) { a.sessionDeps = fn }
}

// SessionActivities runs session steps against the worker's knowledge store.
// All methods serialise on one mutex so each store has a single writer.
type SessionActivities struct {
	deps        session.Deps
	sessionDeps SessionDepsFunc
	poster      notify.Poster
	logger      *slog.Logger
	mu          sync.Mutex
}

// NewSessionActivities creates session activities. poster may be nil, in
// which case NotifyHuman only logs.
func NewSessionActivities(deps session.Deps, poster notify.Poster, opts ...Option) (*SessionActivities, error) {
	if deps.Engine == nil {
		return nil, errors.New("session activities require an engine")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	a := &SessionActivities{deps: withoutHuman(deps), poster: poster, logger: deps.Logger}
	for _, o := range opts {
		o(a)
	}
	return a, nil
}

// withoutHuman strips in-process human boundaries; answers arrive as
// workflow signals.
func withoutHuman(deps session.Deps) session.Deps {
	deps.Human = nil
	deps.Notifier = nil
	return deps
}

func (a *SessionActivities) session(id string) (*session.Session, error) {
	deps := a.deps
	if a.sessionDeps != nil {
		d, err := a.sessionDeps(id)
		if err != nil {
			return nil, fmt.Errorf("session %s: %w", id, err)
		}
		deps = withoutHuman(d)
	}
	s, err := session.New(id, deps)
	if err != nil {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), "SessionSetup", err)
	}
	return s, nil
}

// AttemptQuestion classifies and, when confident enough, automates one
// question. Capability failures come back in the result, not as errors.
func (a *SessionActivities) AttemptQuestion(ctx context.Context, input AttemptQuestionInput) (model.QuestionResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, err := a.session(input.SessionID)
	if err != nil {
		return model.QuestionResult{}, err
	}
	return s.Attempt(ctx, input.Question), nil
}

// NotifyHuman posts a pending question to Slack. It is non-blocking on
// failure: errors are logged and nil is returned so the session keeps
// waiting for its answer signal.
func (a *SessionActivities) NotifyHuman(ctx context.Context, input NotifyHumanInput) error {
	if a.poster == nil || input.Channel == "" {
		a.logger.InfoContext(ctx, "pending question not posted, no Slack channel configured",
			"session_id", input.SessionID, "question_id", input.Result.QuestionID)
		return nil
	}
	n := notify.NewSlackWithPoster(a.poster, input.Channel)
	if err := n.NotifyPending(ctx, input.SessionID, input.Result); err != nil {
		a.logger.WarnContext(ctx, "failed to notify pending question",
			"session_id", input.SessionID, "question_id", input.Result.QuestionID, "error", err)
	}
	return nil
}

// ResolveQuestion stores a human answer as a learning event.
func (a *SessionActivities) ResolveQuestion(ctx context.Context, input ResolveQuestionInput) (model.LearningEvent, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, err := a.session(input.SessionID)
	if err != nil {
		return model.LearningEvent{}, err
	}
	ev, err := s.Resolve(ctx, input.Result, input.Answer)
	if errors.Is(err, session.ErrNoAnswer) {
		return model.LearningEvent{}, temporal.NewNonRetryableApplicationError(err.Error(), "NoAnswer", err)
	}
	return ev, err
}

// MergeKnowledge folds every *.yaml snapshot in input.Dir into the store.
// Merging is idempotent, so snapshots are left in place.
func (a *SessionActivities) MergeKnowledge(ctx context.Context, input MergeKnowledgeInput) (int, error) {
	if input.Dir == "" {
		return 0, nil
	}
	paths, err := filepath.Glob(filepath.Join(input.Dir, "*.yaml"))
	if err != nil {
		return 0, fmt.Errorf("failed to list snapshots in %s: %w", input.Dir, err)
	}
	if len(paths) == 0 {
		return 0, nil
	}
	sort.Strings(paths)

	a.mu.Lock()
	defer a.mu.Unlock()

	merged, err := a.deps.Engine.Store().MergeFrom(paths...)
	if err != nil {
		a.logger.WarnContext(ctx, "some knowledge snapshots could not be merged", "dir", input.Dir, "error", err)
	}
	a.logger.InfoContext(ctx, "merged knowledge snapshots", "dir", input.Dir, "merged", merged, "found", len(paths))
	return merged, nil
}
