package session_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinkerloft/formpilot/internal/model"
	"github.com/tinkerloft/formpilot/internal/session"
)

func genderPrompt() session.Prompt {
	return session.Prompt{
		SessionID: "s",
		Result: model.QuestionResult{
			Text:              "What is your gender?",
			Options:           []string{"Male", "Female"},
			Classification:    model.Classification{Type: model.TypeGender},
			Capability:        "demographics",
			Confidence:        0.42,
			Threshold:         0.5,
			Reason:            model.ReasonBelowThreshold,
			Deferred:          true,
			LearningRequested: true,
			LearningReason:    model.ReasonLearningPriority,
		},
	}
}

func TestConsoleHuman_RepromptsAndResolvesOptionNumber(t *testing.T) {
	var out bytes.Buffer
	h := session.NewConsoleHuman(strings.NewReader("\n   \n2\n"), &out)

	answer, err := h.Ask(context.Background(), genderPrompt())
	require.NoError(t, err)
	assert.Equal(t, "Female", answer)
	assert.Equal(t, 2, strings.Count(out.String(), session.ErrNoAnswer.Error()))
}

func TestConsoleHuman_FreeTextWithoutNewline(t *testing.T) {
	h := session.NewConsoleHuman(strings.NewReader("Non-binary"), &bytes.Buffer{})
	answer, err := h.Ask(context.Background(), genderPrompt())
	require.NoError(t, err)
	assert.Equal(t, "Non-binary", answer)
}

func TestConsoleHuman_OutOfRangeNumberIsLiteral(t *testing.T) {
	h := session.NewConsoleHuman(strings.NewReader("7\n"), &bytes.Buffer{})
	answer, err := h.Ask(context.Background(), genderPrompt())
	require.NoError(t, err)
	assert.Equal(t, "7", answer)
}

func TestConsoleHuman_EOFWithoutAnswer(t *testing.T) {
	h := session.NewConsoleHuman(strings.NewReader(""), &bytes.Buffer{})
	_, err := h.Ask(context.Background(), genderPrompt())
	require.ErrorIs(t, err, session.ErrNoAnswer)
}

func TestConsoleHuman_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h := session.NewConsoleHuman(strings.NewReader("Female\n"), &bytes.Buffer{})
	_, err := h.Ask(ctx, genderPrompt())
	require.ErrorIs(t, err, context.Canceled)
}

func TestRenderPrompt(t *testing.T) {
	p := genderPrompt()
	p.Result.Error = "element not found"
	out := session.RenderPrompt(p)

	assert.Contains(t, out, "What is your gender?")
	assert.Contains(t, out, "1. Male")
	assert.Contains(t, out, "2. Female")
	assert.Contains(t, out, "demographics 0.42 vs threshold 0.50")
	assert.Contains(t, out, "below_threshold")
	assert.Contains(t, out, "automation failed: element not found")
	assert.Contains(t, out, "learning_priority_pattern")
}
