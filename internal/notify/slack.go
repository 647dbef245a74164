// Package notify tells people in Slack that a form session is waiting on
// them.
package notify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/slack-go/slack"

	"github.com/tinkerloft/formpilot/internal/model"
)

// ErrNoToken is returned when no bot token is configured.
var ErrNoToken = errors.New("SLACK_BOT_TOKEN is not set")

// Poster is the subset of the Slack API used here.
type Poster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Slack posts pending-question notices to one channel.
type Slack struct {
	api     Poster
	channel string
}

// NewSlack returns a notifier using SLACK_BOT_TOKEN.
func NewSlack(channel string, opts ...slack.Option) (*Slack, error) {
	token := os.Getenv("SLACK_BOT_TOKEN")
	if token == "" {
		return nil, ErrNoToken
	}
	return NewSlackWithPoster(slack.New(token, opts...), channel), nil
}

// NewSlackWithPoster returns a notifier over an existing client.
func NewSlackWithPoster(api Poster, channel string) *Slack {
	return &Slack{api: api, channel: channel}
}

// NotifyPending posts the question a session is waiting on.
func (s *Slack) NotifyPending(ctx context.Context, sessionID string, r model.QuestionResult) error {
	if s.channel == "" {
		return nil
	}
	_, _, err := s.api.PostMessageContext(ctx, s.channel,
		slack.MsgOptionText(PendingText(sessionID, r), false),
		slack.MsgOptionBlocks(PendingBlocks(sessionID, r)...),
	)
	if err != nil {
		return fmt.Errorf("failed to post to %s: %w", s.channel, err)
	}
	return nil
}

// PendingText is the plain-text fallback of a pending notice.
func PendingText(sessionID string, r model.QuestionResult) string {
	return fmt.Sprintf("Session %s needs an answer: %s", sessionID, r.Text)
}

// PendingBlocks renders a pending notice.
func PendingBlocks(sessionID string, r model.QuestionResult) []slack.Block {
	header := slack.NewSectionBlock(
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Session `%s` needs an answer*\n>%s", sessionID, r.Text), false, false),
		nil, nil,
	)
	blocks := []slack.Block{header}

	if len(r.Options) > 0 {
		opts := make([]string, len(r.Options))
		for i, o := range r.Options {
			opts[i] = fmt.Sprintf("%d. %s", i+1, o)
		}
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject("mrkdwn", strings.Join(opts, "\n"), false, false),
			nil, nil,
		))
	}

	info := fmt.Sprintf("type `%s` | reason `%s`", r.Classification.Type, r.Reason)
	if r.Capability != "" {
		info += fmt.Sprintf(" | %s %.2f vs %.2f", r.Capability, r.Confidence, r.Threshold)
	}
	if r.Error != "" {
		info += fmt.Sprintf(" | automation failed: %s", r.Error)
	}
	blocks = append(blocks,
		slack.NewDividerBlock(),
		slack.NewContextBlock("", slack.NewTextBlockObject("mrkdwn", info, false, false)),
	)
	return blocks
}
