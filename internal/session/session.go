// Package session drives questions through classification, the automate or
// defer decision, capability execution, and human resolution.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tinkerloft/formpilot/internal/capability"
	"github.com/tinkerloft/formpilot/internal/confidence"
	"github.com/tinkerloft/formpilot/internal/learning"
	"github.com/tinkerloft/formpilot/internal/model"
)

// ErrNoAnswer is returned when a human gives an empty answer.
var ErrNoAnswer = errors.New("a specific answer is required")

// DefaultHintTimeout bounds a hint lookup when none is configured.
const DefaultHintTimeout = 5 * time.Second

// Classifier classifies question text.
type Classifier interface {
	Classify(text string) model.Classification
}

// Prompt is what a human is shown for a deferred question.
type Prompt struct {
	SessionID string
	Result    model.QuestionResult
}

// Human answers deferred questions. Ask blocks until an answer is given or
// ctx is done.
type Human interface {
	Ask(ctx context.Context, p Prompt) (string, error)
}

// HintSource supplies an upstream classification hint. A nil hint with a
// nil error means no opinion.
type HintSource interface {
	Hint(ctx context.Context, text string, options []string) (*model.Hint, error)
}

// Notifier announces a question that is waiting on a human.
type Notifier interface {
	NotifyPending(ctx context.Context, sessionID string, r model.QuestionResult) error
}

// Deps are the collaborators of a session. Classifier, Registry, Engine and
// Learning are required.
type Deps struct {
	Classifier  Classifier
	Registry    *capability.Registry
	Engine      *confidence.Engine
	Learning    *learning.Store
	Human       Human
	Hints       HintSource
	HintTimeout time.Duration
	Notifier    Notifier
	Logger      *slog.Logger
}

// Session processes questions one at a time. It is not safe for
// concurrent use.
type Session struct {
	id   string
	deps Deps
	now  func() time.Time
}

// New creates a session.
func New(id string, deps Deps) (*Session, error) {
	if deps.Classifier == nil || deps.Registry == nil || deps.Engine == nil || deps.Learning == nil {
		return nil, errors.New("session requires a classifier, registry, engine and learning store")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.HintTimeout <= 0 {
		deps.HintTimeout = DefaultHintTimeout
	}
	return &Session{id: id, deps: deps, now: time.Now}, nil
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// Attempt classifies a question, decides whether to automate it and, when
// it does, runs the selected capability and records the outcome. It never
// panics and never returns capability errors; a failed automation comes
// back deferred with Error set.
func (s *Session) Attempt(ctx context.Context, in model.QuestionInput) model.QuestionResult {
	logger := s.deps.Logger.With("session_id", s.id, "question_id", in.ID)

	q := &model.Question{
		ID:             in.ID,
		Text:           in.Text,
		Options:        in.Options,
		Classification: s.deps.Classifier.Classify(in.Text),
		Context:        model.DecisionContext{Element: in.Element},
		Hint:           in.Hint,
	}
	if q.Hint == nil {
		q.Hint = s.lookupHint(ctx, logger, q)
	}

	r := model.QuestionResult{
		QuestionID:     in.ID,
		Text:           in.Text,
		Options:        in.Options,
		Element:        in.Element,
		Classification: q.Classification,
	}

	c, conf, ok := s.deps.Registry.Select(q)
	if !ok {
		r.Reason = model.ReasonNoCapability
		return s.deferred(logger, r)
	}
	r.Capability = c.Name()

	// A hint supplements a capability's estimate; it never creates one.
	if conf <= 0 {
		r.Reason = model.ReasonNoCapability
		if q.Classification.IsUnknown() {
			r.Reason = model.ReasonUnclassified
		}
		r.Threshold = s.deps.Engine.EffectiveThreshold(c.Name(), q.Type(), &q.Context)
		return s.deferred(logger, r)
	}
	conf = s.deps.Engine.ApplyHint(conf, q.Type(), q.Hint)
	r.Confidence = conf

	d := s.deps.Engine.Decide(c.Name(), conf, q.Type(), &q.Context)
	r.Threshold = d.Threshold
	r.Reason = d.Reason
	if !d.Automate {
		return s.deferred(logger, r)
	}

	r.Attempted = true
	out, err := handle(ctx, c, q)
	success := err == nil && out.Success

	s.deps.Engine.RecordOutcome(c.Name(), q.Type(), conf, success, &q.Context)
	s.deps.Learning.Calibrate(c.Name(), q.Type(), conf, success)

	if success {
		strategy := out.Strategy
		if strategy == "" {
			strategy = q.Context.ElementOrUnknown()
		}
		s.deps.Engine.LearnSuccessfulPattern(c.Name(), q.Type(), strategy, conf)
		r.Success = true
		r.Value = out.Value
		logger.Info("question automated",
			"capability", c.Name(),
			"question_type", q.Type(),
			"confidence", conf,
			"threshold", d.Threshold,
			"reason", d.Reason,
		)
		return r
	}

	switch {
	case err != nil:
		r.Error = err.Error()
	case out.Detail != "":
		r.Error = out.Detail
	default:
		r.Error = "capability reported failure"
	}
	logger.Warn("automation failed, deferring to human",
		"capability", c.Name(),
		"question_type", q.Type(),
		"confidence", conf,
		"error", r.Error,
	)
	return s.deferred(logger, r)
}

// deferred marks r for a human and decides whether the answer is worth
// soliciting as a learning opportunity.
func (s *Session) deferred(logger *slog.Logger, r model.QuestionResult) model.QuestionResult {
	r.Deferred = true
	r.LearningRequested, r.LearningReason = s.deps.Engine.ShouldRequestLearningInput(r.Capability, r.Confidence, r.Classification.Type)
	if r.Attempted {
		r.LearningRequested = true
	}
	logger.Info("question deferred",
		"capability", r.Capability,
		"question_type", r.Classification.Type,
		"confidence", r.Confidence,
		"threshold", r.Threshold,
		"reason", r.Reason,
		"learning_requested", r.LearningRequested,
	)
	return r
}

func (s *Session) lookupHint(ctx context.Context, logger *slog.Logger, q *model.Question) *model.Hint {
	if s.deps.Hints == nil {
		return nil
	}
	hctx, cancel := context.WithTimeout(ctx, s.deps.HintTimeout)
	defer cancel()
	h, err := s.deps.Hints.Hint(hctx, q.Text, q.Options)
	if err != nil {
		logger.Warn("hint lookup failed", "error", err)
		return nil
	}
	return h
}

// handle runs a capability, converting a panic into an error.
func handle(ctx context.Context, c capability.Capability, q *model.Question) (out capability.Outcome, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("capability %s panicked: %v", c.Name(), p)
		}
	}()
	return c.Handle(ctx, q)
}

// Resolve stores a human answer for a deferred question as a learning event.
func (s *Session) Resolve(_ context.Context, r model.QuestionResult, answer string) (model.LearningEvent, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return model.LearningEvent{}, ErrNoAnswer
	}
	outcome := model.OutcomeManualAnswer
	if r.Attempted && !r.Success {
		outcome = model.OutcomeAutomationFailed
	}
	qt := r.Classification.Type
	if qt == "" {
		qt = model.TypeUnknown
	}
	return s.deps.Learning.StoreIntervention(model.LearningEvent{
		Capability:       r.Capability,
		QuestionType:     qt,
		QuestionText:     r.Text,
		ConfidenceBefore: r.Confidence,
		Context:          model.DecisionContext{Element: r.Element},
		Outcome:          outcome,
		ResolutionValue:  answer,
		SessionID:        s.id,
	}), nil
}

// Process attempts a question and, when it is deferred, asks the human and
// records the answer. Without a Human the result stays deferred.
func (s *Session) Process(ctx context.Context, in model.QuestionInput) model.QuestionResult {
	r := s.Attempt(ctx, in)
	if !r.Deferred || s.deps.Human == nil {
		return r
	}

	if s.deps.Notifier != nil && r.LearningRequested {
		if err := s.deps.Notifier.NotifyPending(ctx, s.id, r); err != nil {
			s.deps.Logger.Warn("failed to notify pending question", "session_id", s.id, "question_id", r.QuestionID, "error", err)
		}
	}

	answer, err := s.deps.Human.Ask(ctx, Prompt{SessionID: s.id, Result: r})
	if err == nil {
		var ev model.LearningEvent
		if ev, err = s.Resolve(ctx, r, answer); err == nil {
			r.Value = ev.ResolutionValue
			r.LearningEventID = ev.ID
			return r
		}
	}
	s.deps.Logger.Warn("question left unanswered", "session_id", s.id, "question_id", r.QuestionID, "error", err)
	if r.Error == "" {
		r.Error = err.Error()
	}
	return r
}

// Run processes inputs in order and summarises the session. It stops early
// when ctx is done.
func (s *Session) Run(ctx context.Context, inputs []model.QuestionInput) model.SessionSummary {
	sum := model.SessionSummary{SessionID: s.id, StartedAt: s.now().UTC()}
	for _, in := range inputs {
		if ctx.Err() != nil {
			s.deps.Logger.Warn("session interrupted", "session_id", s.id, "remaining", len(inputs)-sum.Total)
			break
		}
		sum.Add(s.Process(ctx, in))
	}
	sum.FinishedAt = s.now().UTC()
	s.deps.Logger.Info("session finished",
		"session_id", s.id,
		"total", sum.Total,
		"automated", sum.Automated,
		"deferred", sum.Deferred,
		"failed_attempts", sum.FailedAttempts,
		"learning_events", sum.LearningEvents,
	)
	return sum
}
