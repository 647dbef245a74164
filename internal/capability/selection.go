package capability

import (
	"context"
	"strings"

	"github.com/tinkerloft/formpilot/internal/model"
)

const (
	noOptionsScale = 0.5
	overlapBonus   = 0.1
)

// MultiSelect answers "select all that apply" lists from the profile's
// activities and known brands.
type MultiSelect struct {
	base
	profile Profile
}

// NewMultiSelect returns the multi-select capability.
func NewMultiSelect(profile Profile, exec Executor, boost Booster) *MultiSelect {
	return &MultiSelect{base: base{name: NameMultiSelect, exec: exec, boost: boost}, profile: profile}
}

// CanHandle implements Capability.
func (m *MultiSelect) CanHandle(q *model.Question) float64 {
	conf := typeConfidence(q, model.TypeMultiSelect)
	if conf <= 0 {
		return 0
	}
	if len(q.Options) == 0 {
		conf *= noOptionsScale
	}
	return m.finish(q, conf)
}

// Handle implements Capability.
func (m *MultiSelect) Handle(ctx context.Context, q *model.Question) (Outcome, error) {
	known := append([]string(nil), m.profile.Activities...)
	for brand := range m.profile.Brands {
		known = append(known, brand)
	}
	picks := selectMatching(q.Options, known)
	if len(picks) == 0 {
		none, ok := noneOption(q.Options)
		if !ok {
			return Outcome{}, ErrNoAnswer
		}
		picks = []string{none}
	}
	return m.execute(ctx, q, ActionSelectMany, picks...)
}

// RecencyActivities answers "which have you done in the last N months".
type RecencyActivities struct {
	base
	profile Profile
}

// NewRecencyActivities returns the recency-activities capability.
func NewRecencyActivities(profile Profile, exec Executor, boost Booster) *RecencyActivities {
	return &RecencyActivities{base: base{name: NameRecencyActivities, exec: exec, boost: boost}, profile: profile}
}

// CanHandle implements Capability.
func (r *RecencyActivities) CanHandle(q *model.Question) float64 {
	conf := typeConfidence(q, model.TypeRecencyActivities)
	if conf <= 0 {
		return 0
	}
	if len(q.Options) == 0 {
		conf *= noOptionsScale
	} else if len(selectMatching(q.Options, r.profile.Activities)) > 0 {
		conf += overlapBonus
	}
	return r.finish(q, clamp01(conf))
}

// Handle implements Capability.
func (r *RecencyActivities) Handle(ctx context.Context, q *model.Question) (Outcome, error) {
	picks := selectMatching(q.Options, r.profile.Activities)
	if len(picks) == 0 {
		none, ok := noneOption(q.Options)
		if !ok {
			return Outcome{}, ErrNoAnswer
		}
		picks = []string{none}
	}
	return r.execute(ctx, q, ActionSelectMany, picks...)
}

// selectMatching returns the options, in option order, that match any of
// known case-insensitively in either direction.
func selectMatching(options, known []string) []string {
	var picks []string
	for _, o := range options {
		lo := strings.ToLower(strings.TrimSpace(o))
		if lo == "" {
			continue
		}
		for _, k := range known {
			lk := strings.ToLower(strings.TrimSpace(k))
			if lk != "" && (strings.Contains(lo, lk) || strings.Contains(lk, lo)) {
				picks = append(picks, o)
				break
			}
		}
	}
	return picks
}
