// Package learning records human interventions and calibrates confidence
// predictions against real outcomes.
package learning

import (
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tinkerloft/formpilot/internal/confidence"
	"github.com/tinkerloft/formpilot/internal/knowledge"
	"github.com/tinkerloft/formpilot/internal/model"
)

// Observer receives every stored intervention.
type Observer interface {
	ObserveIntervention(ev model.LearningEvent)
}

// Store is the learning store. It shares the engine's knowledge store and,
// like the engine, is not safe for concurrent use.
type Store struct {
	engine   *confidence.Engine
	store    *knowledge.Store
	observer Observer
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

// Option configures a Store.
type Option func(*Store)

// WithObserver installs an intervention observer.
func WithObserver(o Observer) Option {
	return func(s *Store) { s.observer = o }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a learning store over the engine's knowledge store.
func New(engine *confidence.Engine, opts ...Option) *Store {
	s := &Store{
		engine: engine,
		store:  engine.Store(),
		logger: slog.Default(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// StoreIntervention appends a learning event and records it as a failed
// outcome for its capability. Events with outcome automation_failed were
// already recorded when the attempt failed and only update the history.
// The stored event, with ID and timestamp assigned, is returned.
func (s *Store) StoreIntervention(ev model.LearningEvent) model.LearningEvent {
	if ev.ID == "" {
		ev.ID = s.newID()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = s.now().UTC()
	}
	if ev.QuestionType == "" {
		ev.QuestionType = model.TypeUnknown
	}
	if ev.Outcome == "" {
		ev.Outcome = model.OutcomeManualAnswer
	}

	doc := s.store.Document()
	doc.InterventionHistory = append(doc.InterventionHistory, ev)
	s.store.MarkDirty()

	s.logger.Info("intervention stored",
		"id", ev.ID,
		"capability", ev.Capability,
		"question_type", ev.QuestionType,
		"failure_cluster", clusterKey(ev.QuestionType, ev.Context.ElementOrUnknown()),
		"confidence_before", ev.ConfidenceBefore,
	)

	if ev.Capability != "" && ev.Outcome != model.OutcomeAutomationFailed {
		// RecordOutcome flushes.
		s.engine.RecordOutcome(ev.Capability, ev.QuestionType, ev.ConfidenceBefore, false, &ev.Context)
	} else {
		s.store.FlushBestEffort()
	}

	if s.observer != nil {
		s.observer.ObserveIntervention(ev)
	}
	return ev
}

// History returns the intervention history in append order.
func (s *Store) History() []model.LearningEvent {
	return append([]model.LearningEvent(nil), s.store.Document().InterventionHistory...)
}

// Recall returns the most recent human answer given to exactly this
// question text, compared case-insensitively with whitespace collapsed.
func (s *Store) Recall(text string) (model.LearningEvent, bool) {
	want := normalize(text)
	if want == "" {
		return model.LearningEvent{}, false
	}
	history := s.store.Document().InterventionHistory
	for i := len(history) - 1; i >= 0; i-- {
		ev := history[i]
		if ev.ResolutionValue != "" && normalize(ev.QuestionText) == want {
			return ev, true
		}
	}
	return model.LearningEvent{}, false
}

func normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
