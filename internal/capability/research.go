package capability

import (
	"context"
	"sort"
	"strings"

	"github.com/tinkerloft/formpilot/internal/model"
)

// Research questions without a prepared answer are rarely worth automating.
const unresearchedScale = 0.4

// ResearchRequired answers factual questions (sponsors, venues, company
// names) from prepared research answers.
type ResearchRequired struct {
	base
	profile Profile
}

// NewResearchRequired returns the research-required capability.
func NewResearchRequired(profile Profile, exec Executor, boost Booster) *ResearchRequired {
	return &ResearchRequired{base: base{name: NameResearchRequired, exec: exec, boost: boost}, profile: profile}
}

// CanHandle implements Capability.
func (r *ResearchRequired) CanHandle(q *model.Question) float64 {
	conf := typeConfidence(q, model.TypeResearchRequired)
	if conf <= 0 {
		return 0
	}
	if _, ok := r.lookup(q.Text); !ok {
		conf *= unresearchedScale
	}
	return r.finish(q, conf)
}

// Handle implements Capability.
func (r *ResearchRequired) Handle(ctx context.Context, q *model.Question) (Outcome, error) {
	answer, ok := r.lookup(q.Text)
	if !ok {
		return Outcome{}, ErrNoAnswer
	}
	if len(q.Options) > 0 {
		opt, ok := matchOption(answer, q.Options)
		if !ok {
			return Outcome{}, ErrNoAnswer
		}
		return r.execute(ctx, q, ActionSelect, opt)
	}
	return r.execute(ctx, q, ActionFill, answer)
}

// lookup finds the prepared answer whose keyword appears in text, longest
// keyword first.
func (r *ResearchRequired) lookup(text string) (string, bool) {
	t := lower(text)
	keys := make([]string, 0, len(r.profile.Answers))
	for k := range r.profile.Answers {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		if k != "" && strings.Contains(t, lower(k)) {
			return r.profile.Answers[k], true
		}
	}
	return "", false
}
