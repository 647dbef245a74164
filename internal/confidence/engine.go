package confidence

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/tinkerloft/formpilot/internal/knowledge"
	"github.com/tinkerloft/formpilot/internal/model"
)

// ContextAdjuster returns an additive threshold adjustment for a question's
// context. The default adjuster returns 0.
type ContextAdjuster func(capability string, qt model.QuestionType, dctx *model.DecisionContext) float64

// Observer receives decisions and outcomes, e.g. for metrics.
type Observer interface {
	ObserveDecision(capability string, d Decision)
	ObserveOutcome(capability string, success bool, threshold float64)
}

// Decision is the result of Decide.
type Decision struct {
	Automate     bool                 `json:"automate"`
	Reason       model.DecisionReason `json:"reason"`
	Confidence   float64              `json:"confidence"`
	Threshold    float64              `json:"threshold"`
	PatternBoost float64              `json:"pattern_boost,omitempty"`
}

// Engine decides whether to automate and learns from outcomes. It mutates
// the store's document in place and is not safe for concurrent use.
type Engine struct {
	settings Settings
	store    *knowledge.Store
	adjust   ContextAdjuster
	observer Observer
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithContextAdjuster installs a context-derived threshold adjustment.
func WithContextAdjuster(fn ContextAdjuster) Option {
	return func(e *Engine) { e.adjust = fn }
}

// WithObserver installs a decision/outcome observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an Engine over store.
func New(store *knowledge.Store, settings Settings, opts ...Option) *Engine {
	e := &Engine{
		settings: settings,
		store:    store,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Settings returns the engine tuning.
func (e *Engine) Settings() Settings {
	return e.settings
}

// Store returns the backing store.
func (e *Engine) Store() *knowledge.Store {
	return e.store
}

// Threshold returns the state for capability, creating it on first reference.
func (e *Engine) Threshold(capability string) *model.CapabilityThreshold {
	doc := e.store.Document()
	th, ok := doc.CapabilityThresholds[capability]
	if !ok {
		th = &model.CapabilityThreshold{
			Name:          capability,
			BaseThreshold: e.settings.baseFor(capability),
			Trend:         model.TrendUnknown,
		}
		doc.CapabilityThresholds[capability] = th
	}
	return th
}

// EffectiveThreshold is base + adjustment + type modifier + context
// adjustment, clamped to [MinThreshold, MaxThreshold].
func (e *Engine) EffectiveThreshold(capability string, qt model.QuestionType, dctx *model.DecisionContext) float64 {
	th := e.Threshold(capability)
	v := th.BaseThreshold + th.DynamicAdjustment
	if qt != "" {
		v += e.settings.TypeModifiers[qt]
	}
	if e.adjust != nil {
		v += e.adjust(capability, qt, dctx)
	}
	return e.clampThreshold(v)
}

func (e *Engine) clampThreshold(v float64) float64 {
	if math.IsNaN(v) {
		return e.settings.MaxThreshold
	}
	return math.Max(e.settings.MinThreshold, math.Min(e.settings.MaxThreshold, v))
}

// Decide reports whether confidence is high enough to automate. The result
// depends only on its inputs and the current store state.
func (e *Engine) Decide(capability string, confidence float64, qt model.QuestionType, dctx *model.DecisionContext) Decision {
	threshold := e.EffectiveThreshold(capability, qt, dctx)
	d := Decision{Confidence: confidence, Threshold: threshold}

	switch {
	case confidence >= threshold:
		d.Automate = true
		d.PatternBoost = e.PatternBoost(capability, qt, dctx.ElementOrUnknown())
		if d.PatternBoost > 0 {
			d.Reason = model.ReasonPatternBoosted
		} else {
			d.Reason = model.ReasonExceedsThreshold
		}
	case confidence >= threshold-e.settings.Margin && e.trendingUp(capability):
		d.Automate = true
		d.Reason = model.ReasonNearThresholdTrendingUp
	default:
		d.Reason = model.ReasonBelowThreshold
	}

	if e.observer != nil {
		e.observer.ObserveDecision(capability, d)
	}
	return d
}

func (e *Engine) trendingUp(capability string) bool {
	th := e.Threshold(capability)
	return th.Trend == model.TrendImproving && th.TotalAttempts >= e.settings.HysteresisMinSamples
}

// ShouldRequestLearningInput reports whether a deferral is a learning
// opportunity worth soliciting, as opposed to a mid-confidence skip.
func (e *Engine) ShouldRequestLearningInput(capability string, confidence float64, qt model.QuestionType) (bool, model.DecisionReason) {
	if confidence < e.settings.ManualInterventionThreshold {
		return true, model.ReasonLowConfidenceLearning
	}
	if e.isLearningPriority(capability, qt) {
		return true, model.ReasonLearningPriority
	}
	return false, model.ReasonAdequateForSkipping
}

// isLearningPriority is true for a type that keeps needing humans and has
// never produced a success pattern for this capability.
func (e *Engine) isLearningPriority(capability string, qt model.QuestionType) bool {
	minFailures := e.settings.LearningPriorityMinFailures
	if minFailures <= 0 || qt == "" {
		return false
	}
	doc := e.store.Document()
	for _, p := range doc.SuccessPatterns {
		if p.Capability == capability && p.QuestionType == qt {
			return false
		}
	}
	n := 0
	for _, ev := range doc.InterventionHistory {
		if ev.Capability == capability && ev.QuestionType == qt {
			n++
		}
	}
	return n >= minFailures
}

// RecordOutcome updates attempt counters, nudges the dynamic adjustment
// (down on success, up on failure, bounded by MaxDrift) and flushes.
func (e *Engine) RecordOutcome(capability string, qt model.QuestionType, confidence float64, success bool, dctx *model.DecisionContext) {
	th := e.Threshold(capability)
	prev := th.DynamicAdjustment

	th.Record(success, e.now().UTC())

	var delta float64
	if success {
		delta = -e.settings.SuccessBoost * e.settings.LearningRate
	} else {
		delta = -e.settings.FailurePenalty * e.settings.LearningRate
	}
	th.DynamicAdjustment = math.Max(-e.settings.MaxDrift, math.Min(e.settings.MaxDrift, prev+delta))

	e.logger.Debug("outcome recorded",
		"capability", capability,
		"question_type", qt,
		"element", dctx.ElementOrUnknown(),
		"confidence", confidence,
		"success", success,
		"success_rate", th.SuccessRate,
		"adjustment_before", prev,
		"adjustment_after", th.DynamicAdjustment,
		"trend", th.Trend,
	)

	if e.observer != nil {
		e.observer.ObserveOutcome(capability, success, e.EffectiveThreshold(capability, qt, dctx))
	}

	e.store.MarkDirty()
	e.store.FlushBestEffort()
}

// ApplyHint adds HintBoost to confidence when an upstream hint is confident
// enough and does not name a different question type than qt. The boosted
// value never exceeds HintCap, and a hint never lowers confidence.
func (e *Engine) ApplyHint(confidence float64, qt model.QuestionType, hint *model.Hint) float64 {
	if hint == nil || hint.Confidence <= e.settings.HintConfidenceFloor {
		return confidence
	}
	if hint.QuestionType != "" && hint.QuestionType != qt {
		e.logger.Debug("Ignoring hint for a different question type", "hint_type", hint.QuestionType, "question_type", qt)
		return confidence
	}
	limit := e.settings.HintCap
	if limit <= 0 {
		limit = 1
	}
	return math.Max(confidence, math.Min(limit, confidence+e.settings.HintBoost))
}

// Statistics summarises every known capability.
func (e *Engine) Statistics() model.SystemStatistics {
	doc := e.store.Document()
	stats := model.SystemStatistics{Capabilities: len(doc.CapabilityThresholds)}
	if stats.Capabilities == 0 {
		return stats
	}

	names := make([]string, 0, len(doc.CapabilityThresholds))
	for name := range doc.CapabilityThresholds {
		names = append(names, name)
	}
	sort.Strings(names)

	var thresholdSum float64
	for _, name := range names {
		th := doc.CapabilityThresholds[name]
		stats.TotalAttempts += th.TotalAttempts
		stats.SuccessfulAttempts += th.SuccessfulAttempts
		thresholdSum += e.clampThreshold(th.BaseThreshold + th.DynamicAdjustment)
	}
	if stats.TotalAttempts > 0 {
		stats.OverallSuccessRate = float64(stats.SuccessfulAttempts) / float64(stats.TotalAttempts)
	}
	stats.AverageCurrentThreshold = thresholdSum / float64(stats.Capabilities)
	return stats
}
