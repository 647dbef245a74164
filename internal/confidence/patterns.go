package confidence

import (
	"math"
	"sort"

	"github.com/tinkerloft/formpilot/internal/knowledge"
	"github.com/tinkerloft/formpilot/internal/model"
)

// Success pattern tuning.
const (
	initialPatternBoost = 0.05
	maxPatternBoost     = 0.15
	boostGrowthRate     = 0.5
	boostRateFloor      = 0.9
	boostMinSamples     = 5
)

// LearnSuccessfulPattern upserts the (capability, type, strategy) pattern
// after a successful automated answer. The sample size only grows and the
// boost never shrinks.
func (e *Engine) LearnSuccessfulPattern(capability string, qt model.QuestionType, strategy string, confidence float64) *model.SuccessPattern {
	if strategy == "" {
		strategy = "unknown"
	}
	doc := e.store.Document()
	key := knowledge.PatternKey(capability, qt, strategy)
	now := e.now().UTC()

	p, ok := doc.SuccessPatterns[key]
	if !ok {
		p = &model.SuccessPattern{
			Capability:      capability,
			QuestionType:    qt,
			Strategy:        strategy,
			ConfidenceBoost: initialPatternBoost,
			SuccessRate:     1.0,
			SampleSize:      1,
		}
		doc.SuccessPatterns[key] = p
	} else {
		n := p.SampleSize + 1
		p.SuccessRate = (p.SuccessRate*float64(p.SampleSize) + 1.0) / float64(n)
		p.SampleSize = n
		if p.SuccessRate > boostRateFloor && n >= boostMinSamples {
			grown := math.Min(maxPatternBoost, initialPatternBoost+(p.SuccessRate-boostRateFloor)*boostGrowthRate)
			p.ConfidenceBoost = math.Max(p.ConfidenceBoost, grown)
		}
	}
	p.Strength = model.StrengthFor(p.SampleSize)
	p.LastConfidence = confidence
	p.UpdatedAt = now

	e.logger.Debug("success pattern learned", "key", key, "boost", p.ConfidenceBoost, "samples", p.SampleSize)
	e.store.MarkDirty()
	e.store.FlushBestEffort()
	return p
}

// PatternBoost returns the learned boost for a pattern, weighted by how many
// samples back it: full at 10 or more, 70% at 5 or more, 40% otherwise.
func (e *Engine) PatternBoost(capability string, qt model.QuestionType, strategy string) float64 {
	if qt == "" || strategy == "" {
		return 0
	}
	p, ok := e.store.Document().SuccessPatterns[knowledge.PatternKey(capability, qt, strategy)]
	if !ok {
		return 0
	}
	return weightedBoost(p)
}

func weightedBoost(p *model.SuccessPattern) float64 {
	switch {
	case p.SampleSize >= 10:
		return p.ConfidenceBoost
	case p.SampleSize >= 5:
		return p.ConfidenceBoost * 0.7
	default:
		return p.ConfidenceBoost * 0.4
	}
}

// BestStrategy returns the strategy with the highest weighted boost for a
// capability and type. Ties go to the larger sample, then the name.
func (e *Engine) BestStrategy(capability string, qt model.QuestionType) (*model.SuccessPattern, bool) {
	var (
		best      *model.SuccessPattern
		bestBoost float64
	)
	for _, p := range e.store.Document().SuccessPatterns {
		if p.Capability != capability || p.QuestionType != qt {
			continue
		}
		b := weightedBoost(p)
		switch {
		case best == nil, b > bestBoost:
		case b == bestBoost && p.SampleSize > best.SampleSize:
		case b == bestBoost && p.SampleSize == best.SampleSize && p.Strategy < best.Strategy:
		default:
			continue
		}
		best, bestBoost = p, b
	}
	return best, best != nil
}

// Patterns returns every success pattern for a capability, or all of them
// when capability is empty.
func (e *Engine) Patterns(capability string) []model.SuccessPattern {
	var out []model.SuccessPattern
	for _, p := range e.store.Document().SuccessPatterns {
		if capability == "" || p.Capability == capability {
			out = append(out, *p)
		}
	}
	SortPatterns(out)
	return out
}

// SortPatterns orders patterns by sample size descending, then key.
func SortPatterns(ps []model.SuccessPattern) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].SampleSize != ps[j].SampleSize {
			return ps[i].SampleSize > ps[j].SampleSize
		}
		return knowledge.PatternKey(ps[i].Capability, ps[i].QuestionType, ps[i].Strategy) <
			knowledge.PatternKey(ps[j].Capability, ps[j].QuestionType, ps[j].Strategy)
	})
}
