package learning

import (
	"fmt"
	"sort"

	"github.com/tinkerloft/formpilot/internal/knowledge"
	"github.com/tinkerloft/formpilot/internal/model"
)

// StrongPatternSamples is the sample size at which a success pattern counts
// as strong in insights.
const StrongPatternSamples = 5

func clusterKey(qt model.QuestionType, element string) string {
	return string(qt) + "|" + element
}

// FailureClusters groups interventions by (type, element), largest first.
func (s *Store) FailureClusters() []model.FailureCluster {
	return failureClusters(s.store.Document().InterventionHistory)
}

func failureClusters(history []model.LearningEvent) []model.FailureCluster {
	byKey := make(map[string]*model.FailureCluster)
	sums := make(map[string]float64)
	for _, ev := range history {
		element := ev.Context.ElementOrUnknown()
		key := clusterKey(ev.QuestionType, element)
		c, ok := byKey[key]
		if !ok {
			c = &model.FailureCluster{Key: key, QuestionType: ev.QuestionType, Element: element}
			byKey[key] = c
		}
		c.Count++
		sums[key] += ev.ConfidenceBefore
	}

	out := make([]model.FailureCluster, 0, len(byKey))
	for key, c := range byKey {
		c.AvgConfidence = sums[key] / float64(c.Count)
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Insights aggregates the learning state. It does not mutate anything.
func (s *Store) Insights() model.Insights {
	return Summarize(s.store.Document())
}

// Summarize computes insights from a document. The HTTP API uses it on a
// read-only copy of the knowledge file.
func Summarize(doc *knowledge.Document) model.Insights {
	in := model.Insights{
		Maturity:           model.MaturityBeginner,
		TotalInterventions: len(doc.InterventionHistory),
		SuccessPatterns:    len(doc.SuccessPatterns),
		Calibrations:       len(doc.ConfidenceCalibration),
		FailureClusters:    failureClusters(doc.InterventionHistory),
	}

	if n := len(doc.CapabilityThresholds); n > 0 {
		var sum float64
		for _, th := range doc.CapabilityThresholds {
			sum += th.SuccessRate
		}
		mean := sum / float64(n)
		in.AutomationReadiness = mean * 100
		switch {
		case mean >= 0.8:
			in.Maturity = model.MaturityAdvanced
		case mean >= 0.6:
			in.Maturity = model.MaturityIntermediate
		}
	}

	for _, p := range doc.SuccessPatterns {
		if p.SampleSize >= StrongPatternSamples {
			in.StrongPatterns++
		}
	}

	in.DominantFailureCategory = dominantType(doc.InterventionHistory)
	if in.DominantFailureCategory != "" && in.DominantFailureCategory != model.TypeUnknown {
		in.Recommendations = append(in.Recommendations,
			fmt.Sprintf("Focus on improving %s question detection", in.DominantFailureCategory))
	}

	names := make([]string, 0, len(doc.CapabilityThresholds))
	for name := range doc.CapabilityThresholds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		th := doc.CapabilityThresholds[name]
		if th.Trend == model.TrendNeedsAttention && th.TotalAttempts >= StrongPatternSamples {
			in.Recommendations = append(in.Recommendations,
				fmt.Sprintf("Review %s: success rate %.0f%% over %d attempts", name, th.SuccessRate*100, th.TotalAttempts))
		}
	}

	keys := make([]string, 0, len(doc.ConfidenceCalibration))
	for k := range doc.ConfidenceCalibration {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		c := doc.ConfidenceCalibration[k]
		th, ok := doc.CapabilityThresholds[c.Capability]
		if !ok || len(c.Predictions) < MinCalibrationSamples {
			continue
		}
		current := th.BaseThreshold + th.DynamicAdjustment
		if diff := c.RecommendedThreshold - current; diff > 0.1 || diff < -0.1 {
			in.Recommendations = append(in.Recommendations,
				fmt.Sprintf("Calibration suggests threshold %.2f for %s on %s (currently %.2f)",
					c.RecommendedThreshold, c.Capability, c.QuestionType, current))
		}
	}
	return in
}

// dominantType is the most common question type among interventions. Ties
// go to the type seen first.
func dominantType(history []model.LearningEvent) model.QuestionType {
	counts := make(map[model.QuestionType]int)
	var (
		best      model.QuestionType
		bestCount int
	)
	for _, ev := range history {
		counts[ev.QuestionType]++
	}
	for _, ev := range history {
		if c := counts[ev.QuestionType]; c > bestCount {
			best, bestCount = ev.QuestionType, c
		}
	}
	return best
}
