package capability

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/tinkerloft/formpilot/internal/model"
)

// A page of several questions is trusted slightly less than its weakest part.
const multiQuestionScale = 0.9

// MultiQuestion splits a page holding several questions into parts and
// answers each with the best other capability.
type MultiQuestion struct {
	base
	classifier Classifier
	registry   *Registry
}

// NewMultiQuestion returns the multi-question capability. registry is
// consulted lazily, so the capability may be registered into it.
func NewMultiQuestion(classifier Classifier, registry *Registry, boost Booster) *MultiQuestion {
	return &MultiQuestion{
		base:       base{name: NameMultiQuestion, boost: boost},
		classifier: classifier,
		registry:   registry,
	}
}

type part struct {
	question *model.Question
	cap      Capability
	conf     float64
}

// SplitQuestions splits text into one entry per question mark, or per line
// when there are fewer than two question marks.
func SplitQuestions(text string) []string {
	var parts []string
	if strings.Count(text, "?") >= 2 {
		for _, p := range strings.SplitAfter(text, "?") {
			if s := strings.TrimSpace(p); s != "" && s != "?" {
				parts = append(parts, s)
			}
		}
		return parts
	}
	for _, line := range strings.Split(text, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}

func (m *MultiQuestion) plan(q *model.Question) []part {
	texts := SplitQuestions(q.Text)
	if len(texts) < 2 {
		return nil
	}
	parts := make([]part, 0, len(texts))
	for i, text := range texts {
		sub := &model.Question{
			ID:             fmt.Sprintf("%s#%d", q.ID, i+1),
			Text:           text,
			Classification: m.classifier.Classify(text),
			Context:        q.Context,
		}
		c, conf, ok := m.registry.selectExcluding(sub, m.name)
		if !ok {
			return nil
		}
		parts = append(parts, part{question: sub, cap: c, conf: conf})
	}
	return parts
}

// CanHandle implements Capability.
func (m *MultiQuestion) CanHandle(q *model.Question) float64 {
	conf := typeConfidence(q, model.TypeMultiQuestion)
	if conf <= 0 {
		return 0
	}
	parts := m.plan(q)
	if len(parts) == 0 {
		return 0
	}
	weakest := 1.0
	for _, p := range parts {
		weakest = math.Min(weakest, p.conf)
	}
	return m.finish(q, math.Min(conf, weakest)*multiQuestionScale)
}

// Handle implements Capability. Parts run in order and the first failure
// stops the page.
func (m *MultiQuestion) Handle(ctx context.Context, q *model.Question) (Outcome, error) {
	parts := m.plan(q)
	if len(parts) == 0 {
		return Outcome{}, ErrUnsupported
	}
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		out, err := p.cap.Handle(ctx, p.question)
		if err != nil {
			return Outcome{Strategy: q.Context.ElementOrUnknown()}, fmt.Errorf("part %q via %s: %w", p.question.Text, p.cap.Name(), err)
		}
		if !out.Success {
			return Outcome{Strategy: q.Context.ElementOrUnknown(), Value: strings.Join(values, " | "),
				Detail: fmt.Sprintf("part %q failed via %s", p.question.Text, p.cap.Name())}, nil
		}
		values = append(values, out.Value)
	}
	return Outcome{Success: true, Value: strings.Join(values, " | "), Strategy: q.Context.ElementOrUnknown()}, nil
}

// Recall-based answering for anything no specific capability covers.
const recallConfidence = 0.85

// Generic answers a question a human has answered before, word for word.
// Without a recalled answer it reports zero confidence.
type Generic struct {
	base
	recall Recaller
}

// NewGeneric returns the generic fallback capability.
func NewGeneric(recall Recaller, exec Executor, boost Booster) *Generic {
	return &Generic{base: base{name: NameGeneric, exec: exec, boost: boost}, recall: recall}
}

// CanHandle implements Capability.
func (g *Generic) CanHandle(q *model.Question) float64 {
	if g.recall == nil || strings.TrimSpace(q.Text) == "" {
		return 0
	}
	ev, ok := g.recall.Recall(q.Text)
	if !ok {
		return 0
	}
	if len(q.Options) > 0 {
		if _, ok := matchOption(ev.ResolutionValue, q.Options); !ok {
			return 0
		}
	}
	return g.finish(q, recallConfidence)
}

// Handle implements Capability.
func (g *Generic) Handle(ctx context.Context, q *model.Question) (Outcome, error) {
	if g.recall == nil {
		return Outcome{}, ErrNoAnswer
	}
	ev, ok := g.recall.Recall(q.Text)
	if !ok {
		return Outcome{}, ErrNoAnswer
	}
	if len(q.Options) > 0 {
		opt, ok := matchOption(ev.ResolutionValue, q.Options)
		if !ok {
			return Outcome{}, ErrNoAnswer
		}
		return g.execute(ctx, q, ActionSelect, opt)
	}
	return g.execute(ctx, q, ActionFill, ev.ResolutionValue)
}
