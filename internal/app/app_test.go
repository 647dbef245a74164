package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinkerloft/formpilot/internal/app"
	"github.com/tinkerloft/formpilot/internal/capability"
	"github.com/tinkerloft/formpilot/internal/config"
	"github.com/tinkerloft/formpilot/internal/knowledge"
	"github.com/tinkerloft/formpilot/internal/metrics"
	"github.com/tinkerloft/formpilot/internal/model"
	"github.com/tinkerloft/formpilot/internal/session"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Knowledge.Path = filepath.Join(t.TempDir(), "knowledge.yaml")
	cfg.Profile = capability.Profile{Age: 34, Gender: "Female"}
	return cfg
}

func TestBuild_RunsSession(t *testing.T) {
	cfg := testConfig(t)
	rt, err := app.Build(cfg, app.Options{})
	require.NoError(t, err)
	assert.Nil(t, rt.Hints)

	s, err := session.New("s-1", rt.Deps(nil, nil))
	require.NoError(t, err)
	summary := s.Run(context.Background(), []model.QuestionInput{{Text: "How old are you?", Element: "text_input"}})
	assert.Equal(t, 1, summary.Automated)

	require.NoError(t, rt.Close())
	doc, err := knowledge.Load(cfg.Knowledge.Path)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.CapabilityThresholds[capability.NameDemographics].TotalAttempts)
}

func TestBuild_MetricsObserveEngine(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.Register(reg)
	require.NoError(t, err)

	rt, err := app.Build(testConfig(t), app.Options{Metrics: m, Store: knowledge.NewMemoryStore()})
	require.NoError(t, err)

	rt.Engine.Decide(capability.NameDemographics, 0.9, model.TypeAge, nil)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, mf := range mfs {
		if mf.GetName() == "formpilot_decisions_total" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestBuild_HintEnabledUsesInjectedSource(t *testing.T) {
	cfg := testConfig(t)
	cfg.Hint.Enabled = true
	h := stubHints{}

	rt, err := app.Build(cfg, app.Options{Store: knowledge.NewMemoryStore(), Hints: h})
	require.NoError(t, err)
	assert.Equal(t, h, rt.Hints)
	assert.Equal(t, h, rt.Deps(nil, nil).Hints)
}

func TestBuild_InvalidClassifierPattern(t *testing.T) {
	cfg := testConfig(t)
	cfg.Classifier.Patterns = []model.PatternDefinition{{Type: "custom", Keywords: []string{"custom"}, Regexes: []string{"("}}}

	_, err := app.Build(cfg, app.Options{Store: knowledge.NewMemoryStore()})
	require.Error(t, err)
}

func TestBuild_CorruptKnowledgeFileIsPreserved(t *testing.T) {
	cfg := testConfig(t)
	original := []byte("capability_thresholds:\n  demographics: {total_attempts: 120, successful_attempts: 110\n")
	require.NoError(t, os.WriteFile(cfg.Knowledge.Path, original, 0o644))

	rt, err := app.Build(cfg, app.Options{})
	require.NoError(t, err)

	rt.Engine.RecordOutcome(capability.NameDemographics, model.TypeAge, 0.8, true, nil)
	assert.Equal(t, 1, rt.Engine.Threshold(capability.NameDemographics).TotalAttempts)
	require.ErrorIs(t, rt.Close(), knowledge.ErrNotLoaded)

	data, err := os.ReadFile(cfg.Knowledge.Path)
	require.NoError(t, err)
	assert.Equal(t, original, data)
}

func TestBuild_AppliesLearnedQuestionPatterns(t *testing.T) {
	store := knowledge.NewMemoryStore()
	store.Document().QuestionPatterns["pet_ownership"] = model.PatternDefinition{Keywords: []string{"pets", "dog"}}
	store.Document().QuestionPatterns["bad_pattern"] = model.PatternDefinition{Keywords: []string{"zzz"}, Regexes: []string{"("}}

	rt, err := app.Build(testConfig(t), app.Options{Store: store})
	require.NoError(t, err)

	c := rt.Classifier.Classify("Do you own any pets, like a dog?")
	assert.Equal(t, model.QuestionType("pet_ownership"), c.Type)
	assert.Greater(t, c.Confidence, 0.0)
	assert.Contains(t, rt.Classifier.Types(), model.QuestionType("pet_ownership"))
	assert.NotContains(t, rt.Classifier.Types(), model.QuestionType("bad_pattern"))
}

func TestSessionRuntime_ResumesSnapshot(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	rt, err := app.Build(cfg, app.Options{})
	require.NoError(t, err)
	rt.Engine.RecordOutcome(capability.NameDemographics, model.TypeAge, 0.8, true, nil)

	first, err := rt.SessionRuntime(dir, "s-1")
	require.NoError(t, err)
	assert.Equal(t, knowledge.SnapshotPath(dir, "s-1"), first.Store.Path())
	assert.Equal(t, 1, first.Engine.Threshold(capability.NameDemographics).TotalAttempts)
	first.Engine.RecordOutcome(capability.NameDemographics, model.TypeAge, 0.8, false, nil)

	resumed, err := rt.SessionRuntime(dir, "s-1")
	require.NoError(t, err)
	th := resumed.Engine.Threshold(capability.NameDemographics)
	assert.Equal(t, 2, th.TotalAttempts)
	assert.Equal(t, 1, th.SuccessfulAttempts)
	assert.Equal(t, 1, rt.Engine.Threshold(capability.NameDemographics).TotalAttempts)
}

type stubHints struct{}

func (stubHints) Hint(context.Context, string, []string) (*model.Hint, error) { return nil, nil }
