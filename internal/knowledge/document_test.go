package knowledge_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinkerloft/formpilot/internal/knowledge"
	"github.com/tinkerloft/formpilot/internal/model"
)

func TestDocument_CloneIsDeep(t *testing.T) {
	doc := knowledge.NewDocument()
	doc.CapabilityThresholds["generic"] = &model.CapabilityThreshold{Name: "generic", TotalAttempts: 1}
	doc.ConfidenceCalibration["generic|unknown"] = &model.ConfidenceCalibration{
		Predictions: []model.Prediction{{PredictedConfidence: 0.7, ActualSuccess: true}},
	}
	doc.QuestionPatterns[model.TypeAge] = model.PatternDefinition{Type: model.TypeAge, Keywords: []string{"age"}}

	clone := doc.Clone()
	clone.CapabilityThresholds["generic"].TotalAttempts = 9
	clone.ConfidenceCalibration["generic|unknown"].Predictions[0].ActualSuccess = false
	def := clone.QuestionPatterns[model.TypeAge]
	def.Keywords[0] = "changed"

	assert.Equal(t, 1, doc.CapabilityThresholds["generic"].TotalAttempts)
	assert.True(t, doc.ConfidenceCalibration["generic|unknown"].Predictions[0].ActualSuccess)
	assert.Equal(t, "age", doc.QuestionPatterns[model.TypeAge].Keywords[0])
}

func TestDocument_MergeKeepsMoreObservations(t *testing.T) {
	ours := knowledge.NewDocument()
	ours.CapabilityThresholds["demographics"] = &model.CapabilityThreshold{Name: "demographics", TotalAttempts: 10}
	ours.CapabilityThresholds["generic"] = &model.CapabilityThreshold{Name: "generic", TotalAttempts: 1}
	ours.SuccessPatterns["p"] = &model.SuccessPattern{SampleSize: 6, ConfidenceBoost: 0.07}

	theirs := knowledge.NewDocument()
	theirs.CapabilityThresholds["demographics"] = &model.CapabilityThreshold{Name: "demographics", TotalAttempts: 3}
	theirs.CapabilityThresholds["generic"] = &model.CapabilityThreshold{Name: "generic", TotalAttempts: 5}
	theirs.CapabilityThresholds["multi_select"] = &model.CapabilityThreshold{Name: "multi_select", TotalAttempts: 2}
	theirs.SuccessPatterns["p"] = &model.SuccessPattern{SampleSize: 2, ConfidenceBoost: 0.05}
	theirs.SuccessPatterns["q"] = &model.SuccessPattern{SampleSize: 1}

	ours.Merge(theirs)

	assert.Equal(t, 10, ours.CapabilityThresholds["demographics"].TotalAttempts)
	assert.Equal(t, 5, ours.CapabilityThresholds["generic"].TotalAttempts)
	assert.Contains(t, ours.CapabilityThresholds, "multi_select")
	assert.Equal(t, 6, ours.SuccessPatterns["p"].SampleSize)
	assert.Contains(t, ours.SuccessPatterns, "q")

	// Merged entries are copies.
	theirs.CapabilityThresholds["generic"].TotalAttempts = 100
	assert.Equal(t, 5, ours.CapabilityThresholds["generic"].TotalAttempts)
}

func TestDocument_MergeUnionsInterventions(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	ours := knowledge.NewDocument()
	ours.InterventionHistory = []model.LearningEvent{
		{ID: "a", Timestamp: t0},
		{ID: "c", Timestamp: t0.Add(2 * time.Minute)},
	}
	theirs := knowledge.NewDocument()
	theirs.InterventionHistory = []model.LearningEvent{
		{ID: "a", Timestamp: t0},
		{ID: "b", Timestamp: t0.Add(time.Minute)},
	}

	ours.Merge(theirs)
	ours.Merge(theirs)

	var ids []string
	for _, ev := range ours.InterventionHistory {
		ids = append(ids, ev.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestDocument_MergeCalibrationAndPatterns(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	ours := knowledge.NewDocument()
	ours.ConfidenceCalibration["k"] = &model.ConfidenceCalibration{
		Predictions:          []model.Prediction{{Timestamp: t0}},
		RecommendedThreshold: 0.5,
	}
	ours.QuestionPatterns[model.TypeAge] = model.PatternDefinition{Type: model.TypeAge, Keywords: []string{"age"}}

	theirs := knowledge.NewDocument()
	theirs.ConfidenceCalibration["k"] = &model.ConfidenceCalibration{
		Predictions:          []model.Prediction{{Timestamp: t0}, {Timestamp: t0.Add(time.Second)}},
		RecommendedThreshold: 0.4,
	}
	theirs.QuestionPatterns[model.TypeAge] = model.PatternDefinition{Type: model.TypeAge, Keywords: []string{"age", "years old"}}

	ours.Merge(theirs)
	require.Contains(t, ours.ConfidenceCalibration, "k")
	assert.InDelta(t, 0.4, ours.ConfidenceCalibration["k"].RecommendedThreshold, 1e-9)
	assert.Equal(t, []string{"age", "years old"}, ours.QuestionPatterns[model.TypeAge].Keywords)
}

func TestDocument_MergeNil(t *testing.T) {
	doc := knowledge.NewDocument()
	doc.Merge(nil)
	assert.Empty(t, doc.CapabilityThresholds)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "demographics|age|text_input", knowledge.PatternKey("demographics", model.TypeAge, "text_input"))
	assert.Equal(t, "demographics|age", knowledge.CalibrationKey("demographics", model.TypeAge))
}
