package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinkerloft/formpilot/internal/model"
)

func pending() model.QuestionResult {
	return model.QuestionResult{
		Text:           "What is your gender?",
		Options:        []string{"Male", "Female"},
		Classification: model.Classification{Type: model.TypeGender},
		Capability:     "demographics",
		Confidence:     0.2,
		Threshold:      0.5,
		Reason:         model.ReasonBelowThreshold,
		Error:          "element not found",
	}
}

func TestPendingBlocks(t *testing.T) {
	blocks := PendingBlocks("s-1", pending())
	require.Len(t, blocks, 4)

	header, ok := blocks[0].(*slack.SectionBlock)
	require.True(t, ok)
	assert.Contains(t, header.Text.Text, "s-1")
	assert.Contains(t, header.Text.Text, "What is your gender?")

	options, ok := blocks[1].(*slack.SectionBlock)
	require.True(t, ok)
	assert.Equal(t, "1. Male\n2. Female", options.Text.Text)

	ctxBlock, ok := blocks[3].(*slack.ContextBlock)
	require.True(t, ok)
	require.Len(t, ctxBlock.ContextElements.Elements, 1)
	text, ok := ctxBlock.ContextElements.Elements[0].(*slack.TextBlockObject)
	require.True(t, ok)
	assert.Contains(t, text.Text, "demographics 0.20 vs 0.50")
	assert.Contains(t, text.Text, "automation failed: element not found")
}

func TestPendingBlocks_NoOptions(t *testing.T) {
	r := pending()
	r.Options = nil
	assert.Len(t, PendingBlocks("s-1", r), 3)
}

func TestSlack_NotifyPending(t *testing.T) {
	var form map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat.postMessage", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "channel": "C123", "ts": "1700000000.000100"})
	}))
	defer srv.Close()

	api := slack.New("xoxb-test", slack.OptionAPIURL(srv.URL+"/"))
	n := NewSlackWithPoster(api, "C123")

	require.NoError(t, n.NotifyPending(context.Background(), "s-1", pending()))
	assert.Equal(t, []string{"C123"}, form["channel"])
	assert.Equal(t, []string{PendingText("s-1", pending())}, form["text"])
	assert.NotEmpty(t, form["blocks"])
}

func TestSlack_NotifyPendingError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "channel_not_found"})
	}))
	defer srv.Close()

	n := NewSlackWithPoster(slack.New("xoxb-test", slack.OptionAPIURL(srv.URL+"/")), "C404")
	err := n.NotifyPending(context.Background(), "s-1", pending())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel_not_found")
}

func TestSlack_NoChannelIsNoop(t *testing.T) {
	n := NewSlackWithPoster(nil, "")
	assert.NoError(t, n.NotifyPending(context.Background(), "s-1", pending()))
}

func TestNewSlack_RequiresToken(t *testing.T) {
	t.Setenv("SLACK_BOT_TOKEN", "")
	_, err := NewSlack("C123")
	require.ErrorIs(t, err, ErrNoToken)

	t.Setenv("SLACK_BOT_TOKEN", "xoxb-test")
	n, err := NewSlack("C123")
	require.NoError(t, err)
	assert.NotNil(t, n)
}
