// Package capability defines the answering strategies a session can
// dispatch a question to, and the registry that maps question types onto
// them.
package capability

import (
	"context"
	"errors"
	"math"

	"github.com/tinkerloft/formpilot/internal/model"
)

var (
	// ErrNoAnswer means the capability has nothing to answer with.
	ErrNoAnswer = errors.New("no answer available")
	// ErrUnsupported means the question is outside the capability's scope.
	ErrUnsupported = errors.New("question not supported")
)

// Capability names.
const (
	NameDemographics      = "demographics"
	NameRatingMatrix      = "rating_matrix"
	NameMultiSelect       = "multi_select"
	NameBrandFamiliarity  = "brand_familiarity"
	NameResearchRequired  = "research_required"
	NameRecencyActivities = "recency_activities"
	NameMultiQuestion     = "multi_question"
	NameGeneric           = "generic"
)

// Capability is one answering strategy. CanHandle must be cheap and free of
// side effects; Handle is only called once the decision engine has chosen
// to automate.
type Capability interface {
	Name() string
	CanHandle(q *model.Question) float64
	Handle(ctx context.Context, q *model.Question) (Outcome, error)
}

// Outcome is what Handle reports back.
type Outcome struct {
	Success bool   `json:"success"`
	Value   string `json:"value,omitempty"`
	// Strategy is the element or approach that produced the answer; success
	// patterns are keyed on it.
	Strategy string `json:"strategy,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// Booster supplies learned confidence boosts.
type Booster interface {
	PatternBoost(capability string, qt model.QuestionType, strategy string) float64
}

// Recaller looks up a previous human answer to the same question text.
type Recaller interface {
	Recall(text string) (model.LearningEvent, bool)
}

// Classifier classifies question text.
type Classifier interface {
	Classify(text string) model.Classification
}

// base carries what every capability shares.
type base struct {
	name  string
	exec  Executor
	boost Booster
}

func (b *base) Name() string { return b.name }

// learned returns the success-pattern boost for q.
func (b *base) learned(q *model.Question) float64 {
	if b.boost == nil {
		return 0
	}
	return b.boost.PatternBoost(b.name, q.Type(), q.Context.ElementOrUnknown())
}

// finish adds the learned boost to a positive estimate and clamps it.
func (b *base) finish(q *model.Question, conf float64) float64 {
	if conf <= 0 {
		return 0
	}
	return clamp01(conf + b.learned(q))
}

// execute hands a plan to the executor and turns its report into an Outcome.
func (b *base) execute(ctx context.Context, q *model.Question, action ActionKind, values ...string) (Outcome, error) {
	plan := ActionPlan{
		Capability:   b.name,
		QuestionID:   q.ID,
		QuestionText: q.Text,
		Element:      q.Context.ElementOrUnknown(),
		Action:       action,
		Values:       values,
	}
	report, err := b.exec.Execute(ctx, plan)
	if err != nil {
		return Outcome{Strategy: plan.Element}, err
	}
	value := report.Value
	if value == "" {
		value = joinValues(values)
	}
	return Outcome{
		Success:  report.Success,
		Value:    value,
		Strategy: plan.Element,
		Detail:   report.Detail,
	}, nil
}

// typeConfidence returns the classifier's confidence that q is one of types,
// looking at the primary type and then the alternatives.
func typeConfidence(q *model.Question, types ...model.QuestionType) float64 {
	var best float64
	for _, t := range types {
		if q.Classification.Type == t {
			best = math.Max(best, q.Classification.Confidence)
		}
		for _, alt := range q.Classification.Alternatives {
			if alt.Type == t {
				best = math.Max(best, alt.Confidence)
			}
		}
	}
	return best
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
