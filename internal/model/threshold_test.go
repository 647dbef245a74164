package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinkerloft/formpilot/internal/model"
)

func TestTrendFor(t *testing.T) {
	tests := []struct {
		rate     float64
		expected model.Trend
	}{
		{1.0, model.TrendExcellent},
		{0.81, model.TrendExcellent},
		{0.8, model.TrendImproving},
		{0.61, model.TrendImproving},
		{0.6, model.TrendStable},
		{0.41, model.TrendStable},
		{0.4, model.TrendNeedsAttention},
		{0, model.TrendNeedsAttention},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.expected, model.TrendFor(tc.rate), "rate %v", tc.rate)
	}
}

func TestCapabilityThreshold_Record(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	th := model.CapabilityThreshold{Name: "demographics", BaseThreshold: 0.5}
	for i := 0; i < 10; i++ {
		th.Record(true, now)
	}
	assert.Equal(t, 10, th.TotalAttempts)
	assert.Equal(t, 10, th.SuccessfulAttempts)
	assert.Equal(t, 1.0, th.SuccessRate)
	assert.Equal(t, model.TrendExcellent, th.Trend)
	require.NotNil(t, th.LastSuccessTime)
	assert.Equal(t, now, *th.LastSuccessTime)
}

func TestCapabilityThreshold_Record_HalfAndHalf(t *testing.T) {
	now := time.Now()

	a := model.CapabilityThreshold{Name: "a"}
	a.Record(true, now)
	a.Record(false, now)

	b := model.CapabilityThreshold{Name: "b"}
	b.Record(false, now)
	b.Record(true, now)

	assert.Equal(t, 0.5, a.SuccessRate)
	assert.Equal(t, 0.5, b.SuccessRate)
	assert.Equal(t, model.TrendStable, a.Trend)
}

func TestCapabilityThreshold_Record_FailureKeepsLastSuccess(t *testing.T) {
	th := model.CapabilityThreshold{Name: "generic"}
	th.Record(false, time.Now())
	assert.Nil(t, th.LastSuccessTime)
	assert.Zero(t, th.SuccessRate)
	assert.Equal(t, model.TrendNeedsAttention, th.Trend)
}

func TestStrengthFor(t *testing.T) {
	assert.Equal(t, model.StrengthWeak, model.StrengthFor(1))
	assert.Equal(t, model.StrengthWeak, model.StrengthFor(2))
	assert.Equal(t, model.StrengthModerate, model.StrengthFor(3))
	assert.Equal(t, model.StrengthStrong, model.StrengthFor(5))
	assert.Equal(t, model.StrengthStrong, model.StrengthFor(9))
	assert.Equal(t, model.StrengthVeryStrong, model.StrengthFor(10))
}

func TestDecisionContext_ElementOrUnknown(t *testing.T) {
	var nilCtx *model.DecisionContext
	assert.Equal(t, "unknown", nilCtx.ElementOrUnknown())
	assert.Equal(t, "unknown", (&model.DecisionContext{}).ElementOrUnknown())
	assert.Equal(t, "radio", (&model.DecisionContext{Element: "radio"}).ElementOrUnknown())
}

func TestPatternDefinition_Extend(t *testing.T) {
	d := model.PatternDefinition{Type: model.TypeAge, Keywords: []string{"age"}}
	d.Extend(model.PatternDefinition{
		Category: model.CategoryDemographics,
		Keywords: []string{"age", "how old"},
		Signals:  []model.SecondarySignal{{Kind: model.SignalQuestionMarks, Min: 1, Bonus: 0.1}},
	})

	assert.Equal(t, []string{"age", "how old"}, d.Keywords)
	assert.Equal(t, model.CategoryDemographics, d.Category)
	assert.Len(t, d.Signals, 1)
}

func TestSessionSummary_Add(t *testing.T) {
	var s model.SessionSummary
	s.Add(model.QuestionResult{Attempted: true, Success: true})
	s.Add(model.QuestionResult{Attempted: true, Success: false, Deferred: true, LearningEventID: "e1"})
	s.Add(model.QuestionResult{Deferred: true, LearningEventID: "e2"})

	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Automated)
	assert.Equal(t, 1, s.FailedAttempts)
	assert.Equal(t, 2, s.Deferred)
	assert.Equal(t, 2, s.LearningEvents)
	assert.Len(t, s.Results, 3)
}
