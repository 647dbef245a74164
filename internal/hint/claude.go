// Package hint asks Claude for an independent classification of a question,
// used as an upstream hint by the decision engine.
package hint

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/tinkerloft/formpilot/internal/model"
)

// DefaultMaxTokens bounds the classification reply.
const DefaultMaxTokens = 256

// MessageCreator is the subset of the Anthropic messages API used here.
type MessageCreator interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Source produces hints from Claude.
type Source struct {
	messages  MessageCreator
	model     anthropic.Model
	maxTokens int64
	types     []model.QuestionType
}

// Option configures a Source.
type Option func(*Source)

// WithModel overrides the model.
func WithModel(m string) Option {
	return func(s *Source) {
		if m != "" {
			s.model = anthropic.Model(m)
		}
	}
}

// WithMaxTokens overrides the reply budget.
func WithMaxTokens(n int) Option {
	return func(s *Source) {
		if n > 0 {
			s.maxTokens = int64(n)
		}
	}
}

// WithMessages replaces the Anthropic client, mainly for tests.
func WithMessages(m MessageCreator) Option {
	return func(s *Source) { s.messages = m }
}

// NewSource returns a Source that may answer with any of types. The
// Anthropic client reads ANTHROPIC_API_KEY from the environment.
func NewSource(types []model.QuestionType, opts ...Option) *Source {
	s := &Source{
		model:     anthropic.ModelClaudeHaiku4_5,
		maxTokens: DefaultMaxTokens,
		types:     append([]model.QuestionType(nil), types...),
	}
	for _, o := range opts {
		o(s)
	}
	if s.messages == nil {
		client := anthropic.NewClient()
		s.messages = &client.Messages
	}
	return s
}

// rawHint is the JSON shape returned by Claude.
type rawHint struct {
	QuestionType string  `json:"question_type"`
	Confidence   float64 `json:"confidence"`
}

// jsonObjectRE matches a JSON object (possibly fenced in markdown code blocks).
var jsonObjectRE = regexp.MustCompile(`(?s)\{.*\}`)

// Hint classifies text. A reply naming a type outside the known set yields
// no hint.
func (s *Source) Hint(ctx context.Context, text string, options []string) (*model.Hint, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	msg, err := s.messages.New(ctx, anthropic.MessageNewParams{
		Model:     s.model,
		MaxTokens: s.maxTokens,
		Messages: []anthropic.MessageParam{
			{
				Role: anthropic.MessageParamRoleUser,
				Content: []anthropic.ContentBlockParamUnion{
					{OfText: &anthropic.TextBlockParam{Text: BuildPrompt(text, options, s.types)}},
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("claude hint request: %w", err)
	}

	var rawText string
	for _, block := range msg.Content {
		if block.Type == "text" {
			rawText += block.Text
		}
	}
	return ParseHint(rawText, text, s.types)
}

// BuildPrompt constructs the classification prompt.
func BuildPrompt(text string, options []string, types []model.QuestionType) string {
	var b strings.Builder
	b.WriteString("You classify survey questions. Reply with a single JSON object ")
	b.WriteString(`{"question_type": "<type>", "confidence": <0-100>} and nothing else.`)
	b.WriteString("\n\nAllowed types:\n")
	for _, t := range types {
		fmt.Fprintf(&b, "- %s\n", t)
	}
	fmt.Fprintf(&b, "- %s (none of the above)\n", model.TypeUnknown)
	fmt.Fprintf(&b, "\nQuestion:\n%s\n", text)
	if len(options) > 0 {
		b.WriteString("\nAnswer options:\n")
		for _, o := range options {
			fmt.Fprintf(&b, "- %s\n", o)
		}
	}
	return b.String()
}

// ParseHint extracts a hint from Claude's reply.
func ParseHint(raw, text string, types []model.QuestionType) (*model.Hint, error) {
	match := jsonObjectRE.FindString(raw)
	if match == "" {
		return nil, fmt.Errorf("no JSON object in reply: %q", truncate(raw, 80))
	}
	var rh rawHint
	if err := json.Unmarshal([]byte(match), &rh); err != nil {
		return nil, fmt.Errorf("failed to parse hint: %w", err)
	}

	qt := model.QuestionType(strings.TrimSpace(strings.ToLower(rh.QuestionType)))
	known := false
	for _, t := range types {
		if t == qt {
			known = true
			break
		}
	}
	if !known {
		return nil, nil
	}
	return &model.Hint{
		QuestionText: text,
		QuestionType: qt,
		Confidence:   math.Max(0, math.Min(100, rh.Confidence)),
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
