package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadExampleFiles(t *testing.T) {
	// Find examples directory (go test runs from the package directory)
	examplesDir := filepath.Join("..", "..", "examples")

	if _, err := os.Stat(examplesDir); os.IsNotExist(err) {
		t.Skip("Examples directory not found, skipping test")
	}

	t.Run("formpilot.yaml", func(t *testing.T) {
		data, err := os.ReadFile(filepath.Join(examplesDir, "formpilot.yaml"))
		require.NoError(t, err)

		cfg, err := Load(data)
		require.NoError(t, err, "Failed to load formpilot.yaml")
		assert.Equal(t, 34, cfg.Profile.Age)
		assert.Equal(t, 3, cfg.Engine.LearningPriorityMinFailures)
		assert.InDelta(t, 0.4, cfg.Engine.BaseThresholds["demographics"], 1e-9)
		assert.NotEmpty(t, cfg.Knowledge.Path)
		assert.NotContains(t, cfg.Knowledge.Path, "~")
	})

	t.Run("questions.yaml", func(t *testing.T) {
		qs, err := LoadQuestions(filepath.Join(examplesDir, "questions.yaml"))
		require.NoError(t, err)
		require.Len(t, qs, 4)
		assert.Equal(t, "age", qs[0].ID)
		assert.Equal(t, "checkbox", qs[2].Element)
	})

	t.Run("questions directory", func(t *testing.T) {
		qs, err := LoadQuestions(filepath.Join(examplesDir, "questions"))
		require.NoError(t, err)
		require.Len(t, qs, 2)
		assert.Equal(t, "income", qs[0].ID)
		assert.Equal(t, "02-trust", qs[1].ID)
		assert.Len(t, qs[1].Options, 4)
	})
}
