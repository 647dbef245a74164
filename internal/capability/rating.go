package capability

import (
	"context"
	"sort"
	"strings"

	"github.com/tinkerloft/formpilot/internal/model"
)

const (
	defaultRating = "Somewhat agree"
	defaultTrust  = "Somewhat trustworthy"
	scaleBonus    = 0.05
)

var scaleWords = []string{"agree", "disagree", "satisf", "trust", "likely", "excellent", "poor"}

// RatingMatrix answers agreement, satisfaction and trust grids.
type RatingMatrix struct {
	base
	profile Profile
}

// NewRatingMatrix returns the rating-matrix capability.
func NewRatingMatrix(profile Profile, exec Executor, boost Booster) *RatingMatrix {
	return &RatingMatrix{base: base{name: NameRatingMatrix, exec: exec, boost: boost}, profile: profile}
}

// CanHandle implements Capability.
func (r *RatingMatrix) CanHandle(q *model.Question) float64 {
	conf := typeConfidence(q, model.TypeRatingMatrix, model.TypeTrustRating)
	if conf <= 0 {
		return 0
	}
	for _, o := range q.Options {
		if countContains(lower(o), scaleWords) > 0 {
			conf += scaleBonus
			break
		}
	}
	return r.finish(q, clamp01(conf))
}

// Handle implements Capability.
func (r *RatingMatrix) Handle(ctx context.Context, q *model.Question) (Outcome, error) {
	answer := r.answerFor(q)
	if len(q.Options) > 0 {
		opt, ok := matchOption(answer, q.Options)
		if !ok {
			return Outcome{}, ErrNoAnswer
		}
		answer = opt
	}
	return r.execute(ctx, q, ActionRate, answer)
}

// answerFor prefers a configured rating whose keyword appears in the text,
// longest keyword first, then the trust or general default.
func (r *RatingMatrix) answerFor(q *model.Question) string {
	text := lower(q.Text)
	keys := make([]string, 0, len(r.profile.Ratings))
	for k := range r.profile.Ratings {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		if strings.Contains(text, lower(k)) {
			return r.profile.Ratings[k]
		}
	}

	if q.Type() == model.TypeTrustRating || strings.Contains(text, "trust") {
		if r.profile.DefaultTrust != "" {
			return r.profile.DefaultTrust
		}
		return defaultTrust
	}
	if r.profile.DefaultRating != "" {
		return r.profile.DefaultRating
	}
	return defaultRating
}
