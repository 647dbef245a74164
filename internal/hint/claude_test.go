package hint

import (
	"context"
	"errors"
	"testing"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinkerloft/formpilot/internal/model"
)

var testTypes = []model.QuestionType{model.TypeAge, model.TypeGender, model.TypeRatingMatrix}

type fakeMessages struct {
	reply  string
	err    error
	params anthropic.MessageNewParams
	calls  int
}

func (f *fakeMessages) New(_ context.Context, body anthropic.MessageNewParams, _ ...option.RequestOption) (*anthropic.Message, error) {
	f.calls++
	f.params = body
	if f.err != nil {
		return nil, f.err
	}
	return &anthropic.Message{Content: []anthropic.ContentBlockUnion{{Type: "text", Text: f.reply}}}, nil
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("How old are you?", []string{"18-24", "25-34"}, testTypes)
	assert.Contains(t, p, "- age\n")
	assert.Contains(t, p, "- rating_matrix\n")
	assert.Contains(t, p, "- unknown (none of the above)")
	assert.Contains(t, p, "How old are you?")
	assert.Contains(t, p, "- 25-34\n")

	p = BuildPrompt("Any comments?", nil, testTypes)
	assert.NotContains(t, p, "Answer options")
}

func TestParseHint(t *testing.T) {
	h, err := ParseHint("```json\n{\"question_type\": \"Age\", \"confidence\": 92}\n```", "How old?", testTypes)
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, model.TypeAge, h.QuestionType)
	assert.InDelta(t, 92, h.Confidence, 1e-9)
	assert.Equal(t, "How old?", h.QuestionText)

	h, err = ParseHint(`{"question_type": "age", "confidence": 250}`, "", testTypes)
	require.NoError(t, err)
	assert.InDelta(t, 100, h.Confidence, 1e-9)

	h, err = ParseHint(`{"question_type": "unknown", "confidence": 90}`, "", testTypes)
	require.NoError(t, err)
	assert.Nil(t, h)

	_, err = ParseHint("I think it is about age.", "", testTypes)
	require.Error(t, err)

	_, err = ParseHint(`{"question_type": age}`, "", testTypes)
	require.Error(t, err)
}

func TestSource_Hint(t *testing.T) {
	fake := &fakeMessages{reply: `{"question_type": "gender", "confidence": 85}`}
	s := NewSource(testTypes, WithMessages(fake), WithModel("claude-sonnet-4-5"), WithMaxTokens(64))

	h, err := s.Hint(context.Background(), "What is your gender?", []string{"Male", "Female"})
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, model.TypeGender, h.QuestionType)
	assert.Equal(t, anthropic.Model("claude-sonnet-4-5"), fake.params.Model)
	assert.Equal(t, int64(64), fake.params.MaxTokens)
	require.Len(t, fake.params.Messages, 1)
}

func TestSource_EmptyTextSkipsRequest(t *testing.T) {
	fake := &fakeMessages{}
	s := NewSource(testTypes, WithMessages(fake))

	h, err := s.Hint(context.Background(), "  ", nil)
	require.NoError(t, err)
	assert.Nil(t, h)
	assert.Zero(t, fake.calls)
}

func TestSource_RequestError(t *testing.T) {
	s := NewSource(testTypes, WithMessages(&fakeMessages{err: errors.New("rate limited")}))
	_, err := s.Hint(context.Background(), "How old are you?", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestSource_Defaults(t *testing.T) {
	fake := &fakeMessages{reply: `{"question_type": "age", "confidence": 10}`}
	s := NewSource(testTypes, WithMessages(fake), WithModel(""), WithMaxTokens(0))
	_, err := s.Hint(context.Background(), "How old are you?", nil)
	require.NoError(t, err)
	assert.Equal(t, anthropic.ModelClaudeHaiku4_5, fake.params.Model)
	assert.Equal(t, int64(DefaultMaxTokens), fake.params.MaxTokens)
}
