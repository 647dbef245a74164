package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	promptBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
	questionStyle = lipgloss.NewStyle().Bold(true)
	metaStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	learningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// ConsoleHuman asks deferred questions on a terminal. An option may be
// chosen by its number.
type ConsoleHuman struct {
	in  *bufio.Reader
	out io.Writer
}

// NewConsoleHuman returns a Human reading answers from in.
func NewConsoleHuman(in io.Reader, out io.Writer) *ConsoleHuman {
	return &ConsoleHuman{in: bufio.NewReader(in), out: out}
}

// Ask implements Human. It re-prompts until a non-empty answer is given.
func (h *ConsoleHuman) Ask(ctx context.Context, p Prompt) (string, error) {
	fmt.Fprintln(h.out, RenderPrompt(p))
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		fmt.Fprint(h.out, "> ")
		line, err := h.in.ReadString('\n')
		answer := resolveChoice(strings.TrimSpace(line), p.Result.Options)
		if answer != "" {
			return answer, nil
		}
		if err != nil {
			if err == io.EOF {
				return "", ErrNoAnswer
			}
			return "", fmt.Errorf("failed to read answer: %w", err)
		}
		fmt.Fprintln(h.out, errorStyle.Render(ErrNoAnswer.Error()))
	}
}

// RenderPrompt formats a deferred question for a terminal.
func RenderPrompt(p Prompt) string {
	r := p.Result
	var b strings.Builder
	b.WriteString(questionStyle.Render(r.Text))
	for i, opt := range r.Options {
		fmt.Fprintf(&b, "\n  %d. %s", i+1, opt)
	}

	meta := fmt.Sprintf("type %s", r.Classification.Type)
	if r.Capability != "" {
		meta += fmt.Sprintf(" | %s %.2f vs threshold %.2f", r.Capability, r.Confidence, r.Threshold)
	}
	meta += fmt.Sprintf(" | %s", r.Reason)
	b.WriteString("\n\n" + metaStyle.Render(meta))
	if r.Error != "" {
		b.WriteString("\n" + errorStyle.Render("automation failed: "+r.Error))
	}
	if r.LearningRequested {
		b.WriteString("\n" + learningStyle.Render("Your answer will be learned from ("+string(r.LearningReason)+")"))
	}
	return promptBoxStyle.Render(b.String())
}

// resolveChoice maps a 1-based option number onto its option text.
func resolveChoice(answer string, options []string) string {
	if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(options) {
		return options[n-1]
	}
	return answer
}
