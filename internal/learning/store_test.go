package learning_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinkerloft/formpilot/internal/confidence"
	"github.com/tinkerloft/formpilot/internal/knowledge"
	"github.com/tinkerloft/formpilot/internal/learning"
	"github.com/tinkerloft/formpilot/internal/model"
)

type recorder struct {
	events []model.LearningEvent
}

func (r *recorder) ObserveIntervention(ev model.LearningEvent) {
	r.events = append(r.events, ev)
}

func newLearning(t *testing.T, opts ...learning.Option) (*learning.Store, *confidence.Engine) {
	t.Helper()
	engine := confidence.New(knowledge.NewMemoryStore(), confidence.DefaultSettings())
	return learning.New(engine, opts...), engine
}

func TestStoreIntervention_AppendsAndRecordsFailure(t *testing.T) {
	rec := &recorder{}
	ls, engine := newLearning(t, learning.WithObserver(rec))

	ev := ls.StoreIntervention(model.LearningEvent{
		Capability:       "demographics",
		QuestionType:     model.TypeAge,
		QuestionText:     "How old are you?",
		ConfidenceBefore: 0.42,
		Context:          model.DecisionContext{Element: "text_input"},
		ResolutionValue:  "34",
	})

	assert.NotEmpty(t, ev.ID)
	assert.False(t, ev.Timestamp.IsZero())
	assert.Equal(t, model.OutcomeManualAnswer, ev.Outcome)

	history := ls.History()
	require.Len(t, history, 1)
	assert.Equal(t, ev.ID, history[0].ID)

	th := engine.Threshold("demographics")
	assert.Equal(t, 1, th.TotalAttempts)
	assert.Zero(t, th.SuccessfulAttempts)
	assert.Greater(t, th.DynamicAdjustment, 0.0)

	require.Len(t, rec.events, 1)
	assert.Equal(t, ev.ID, rec.events[0].ID)
}

func TestStoreIntervention_HistoryIsAppendOnly(t *testing.T) {
	ls, _ := newLearning(t)

	first := ls.StoreIntervention(model.LearningEvent{ID: "fixed", Capability: "generic", ResolutionValue: "a"})
	ls.StoreIntervention(model.LearningEvent{Capability: "generic", ResolutionValue: "b"})
	ls.StoreIntervention(model.LearningEvent{Capability: "generic", ResolutionValue: "c"})

	history := ls.History()
	require.Len(t, history, 3)
	assert.Equal(t, first, history[0])
	assert.Equal(t, "fixed", history[0].ID)
	assert.Equal(t, model.TypeUnknown, history[1].QuestionType)

	// The returned slice is a copy.
	history[0].ResolutionValue = "tampered"
	assert.Equal(t, "a", ls.History()[0].ResolutionValue)
}

func TestStoreIntervention_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "knowledge.yaml")
	store, err := knowledge.Open(path, nil)
	require.NoError(t, err)
	ls := learning.New(confidence.New(store, confidence.DefaultSettings()))

	ls.StoreIntervention(model.LearningEvent{Capability: "multi_select", QuestionType: model.TypeMultiSelect, ResolutionValue: "Yoga"})
	ls.StoreIntervention(model.LearningEvent{QuestionType: model.TypeUnknown, ResolutionValue: "n/a"})

	doc, err := knowledge.Load(path)
	require.NoError(t, err)
	assert.Len(t, doc.InterventionHistory, 2)
	assert.Equal(t, 1, doc.CapabilityThresholds["multi_select"].TotalAttempts)
}

func TestRecall(t *testing.T) {
	ls, _ := newLearning(t)

	_, ok := ls.Recall("What is your favourite colour?")
	assert.False(t, ok)

	ls.StoreIntervention(model.LearningEvent{QuestionText: "What is your favourite colour?", ResolutionValue: "Blue"})
	ls.StoreIntervention(model.LearningEvent{QuestionText: "What is your  favourite COLOUR?", ResolutionValue: "Green"})
	ls.StoreIntervention(model.LearningEvent{QuestionText: "What is your favourite colour?", ResolutionValue: ""})

	ev, ok := ls.Recall("what is your favourite colour?")
	require.True(t, ok)
	assert.Equal(t, "Green", ev.ResolutionValue)

	_, ok = ls.Recall("   ")
	assert.False(t, ok)
}

func TestCalibrate_InsufficientSamplesSkipsNudge(t *testing.T) {
	ls, _ := newLearning(t)

	ls.Calibrate("demographics", model.TypeAge, 0.9, true)
	c := ls.Calibrate("demographics", model.TypeAge, 0.9, true)
	assert.Len(t, c.Predictions, 2)
	assert.InDelta(t, 0.5, c.RecommendedThreshold, 1e-9)
	assert.Zero(t, c.AccuracyRate)
}

func TestCalibrate_AccurateLowersRecommendation(t *testing.T) {
	ls, _ := newLearning(t)

	var c *model.ConfidenceCalibration
	for i := 0; i < 3; i++ {
		c = ls.Calibrate("demographics", model.TypeAge, 0.85, true)
	}
	assert.Equal(t, 1.0, c.AccuracyRate)
	assert.InDelta(t, 0.4, c.RecommendedThreshold, 1e-9)

	for i := 0; i < 10; i++ {
		c = ls.Calibrate("demographics", model.TypeAge, 0.85, true)
	}
	assert.InDelta(t, 0.3, c.RecommendedThreshold, 1e-9)
}

func TestCalibrate_InaccurateRaisesRecommendation(t *testing.T) {
	ls, _ := newLearning(t)

	var c *model.ConfidenceCalibration
	for i := 0; i < 20; i++ {
		c = ls.Calibrate("brand_familiarity", model.TypeBrandFamiliarity, 0.7, i%2 == 0)
	}
	assert.InDelta(t, 0.5, c.AccuracyRate, 0.06)
	assert.InDelta(t, 0.8, c.RecommendedThreshold, 1e-9)
}

func TestCalibrate_OnlyConfidentPredictionsCount(t *testing.T) {
	ls, _ := newLearning(t)

	for i := 0; i < 5; i++ {
		ls.Calibrate("generic", model.TypeUnknown, 0.2, false)
	}
	c, ok := ls.Calibration("generic", model.TypeUnknown)
	require.True(t, ok)
	assert.Zero(t, c.AccuracyRate)
	assert.InDelta(t, 0.5, c.RecommendedThreshold, 1e-9)

	_, ok = ls.Calibration("generic", model.TypeAge)
	assert.False(t, ok)
}

func TestCalibrate_RollingWindowCapped(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	ls, _ := newLearning(t, learning.WithClock(func() time.Time {
		tick++
		return start.Add(time.Duration(tick) * time.Second)
	}))

	var c *model.ConfidenceCalibration
	for i := 0; i < 60; i++ {
		c = ls.Calibrate("rating_matrix", model.TypeRatingMatrix, float64(i)/100, true)
	}
	require.Len(t, c.Predictions, learning.MaxPredictions)
	assert.InDelta(t, 0.10, c.Predictions[0].PredictedConfidence, 1e-9)
	assert.InDelta(t, 0.59, c.Predictions[len(c.Predictions)-1].PredictedConfidence, 1e-9)
}
