package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tinkerloft/formpilot/internal/client"
	"github.com/tinkerloft/formpilot/internal/config"
	"github.com/tinkerloft/formpilot/internal/model"
	"github.com/tinkerloft/formpilot/internal/state"
)

var startCmd = &cobra.Command{
	Use:   "start QUESTIONS",
	Short: "Start a durable session on the worker",
	Long:  "Start a FormSession workflow; deferred questions wait for an answer via 'formpilot answer' or the API",
	Args:  cobra.ExactArgs(1),
	RunE:  runStart,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Get session status",
	Long:  "Query the current status of a session",
	RunE:  runStatus,
}

var resultCmd = &cobra.Command{
	Use:   "result",
	Short: "Get session result",
	Long:  "Wait for and get the final result of a session",
	RunE:  runResult,
}

var answerCmd = &cobra.Command{
	Use:     "answer",
	Aliases: []string{"respond"},
	Short:   "Answer a deferred question",
	Long:    "Send a human answer to a session awaiting one",
	RunE:    runAnswer,
}

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel a session",
	Long:  "Send a cancellation signal to a running session",
	RunE:  runCancel,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions",
	RunE:  runList,
}

func init() {
	startCmd.Flags().String("session-id", "", "Session ID (default: generated)")
	startCmd.Flags().String("slack-channel", "", "Slack channel for pending answers (default: slack.channel)")
	startCmd.Flags().Duration("answer-timeout", 0, "How long to wait for each human answer (0 waits indefinitely)")

	statusCmd.Flags().String("session-id", "", "Session ID (default: last started)")

	resultCmd.Flags().String("session-id", "", "Session ID (default: last started)")

	answerCmd.Flags().String("session-id", "", "Session ID (default: last started)")
	answerCmd.Flags().Int("question", -1, "Question index (default: the pending question)")
	answerCmd.Flags().String("answer", "", "Answer text (required)")
	answerCmd.MarkFlagRequired("answer")

	cancelCmd.Flags().String("session-id", "", "Session ID (default: last started)")

	listCmd.Flags().String("status", "", "Filter by status (Running, Completed, Failed, Canceled, Terminated)")
	listCmd.Flags().Int("limit", 50, "Maximum number of sessions")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resultCmd)
	rootCmd.AddCommand(answerCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(listCmd)
}

func dial(cmd *cobra.Command) (*client.Client, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	c, err := client.NewClient(client.Options{
		Address:   cfg.Temporal.Address,
		Namespace: cfg.Temporal.Namespace,
		TaskQueue: cfg.Temporal.TaskQueue,
		Logger:    newLogger(cmd),
	})
	if err != nil {
		return nil, nil, err
	}
	return c, cfg, nil
}

// sessionFlag returns --session-id, falling back to the last started session.
func sessionFlag(cmd *cobra.Command) (string, error) {
	id, _ := cmd.Flags().GetString("session-id")
	return state.ResolveSession(id)
}

func runStart(cmd *cobra.Command, args []string) error {
	c, cfg, err := dial(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	questions, err := config.LoadQuestions(args[0])
	if err != nil {
		return err
	}
	sessionID, _ := cmd.Flags().GetString("session-id")
	channel, _ := cmd.Flags().GetString("slack-channel")
	if channel == "" {
		channel = cfg.Slack.Channel
	}
	timeout, _ := cmd.Flags().GetDuration("answer-timeout")

	id, err := c.StartSession(context.Background(), model.SessionInput{
		SessionID:     sessionID,
		Questions:     questions,
		SlackChannel:  channel,
		AnswerTimeout: timeout,
	})
	if err != nil {
		return err
	}

	if err := state.SaveLastSession(id); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Session started: %s (%d questions)\n", id, len(questions))
	fmt.Fprintf(out, "View at: http://localhost:8233/namespaces/default/workflows/%s\n", id)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	c, _, err := dial(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	sessionID, err := sessionFlag(cmd)
	if err != nil {
		return err
	}
	status, err := c.GetSessionStatus(context.Background(), sessionID)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if jsonOutput(cmd) {
		return printJSON(out, status)
	}
	printStatus(out, status)
	return nil
}

func printStatus(w io.Writer, s *model.SessionStatus) {
	fmt.Fprintf(w, "Session: %s\n", s.SessionID)
	fmt.Fprintf(w, "Phase:   %s\n", s.Phase)
	fmt.Fprintf(w, "Progress: %d/%d\n", len(s.Results), s.Total)
	if s.Pending != nil {
		fmt.Fprintf(w, "\nWaiting on question %d: %s\n", s.Current, s.Pending.Text)
		for i, opt := range s.Pending.Options {
			fmt.Fprintf(w, "  %d. %s\n", i+1, opt)
		}
		fmt.Fprintf(w, "Answer with: formpilot answer --session-id %s --answer \"...\"\n", s.SessionID)
	}
}

func runResult(cmd *cobra.Command, args []string) error {
	c, _, err := dial(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	sessionID, err := sessionFlag(cmd)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Waiting for session %s...\n", sessionID)
	result, err := c.GetSessionResult(context.Background(), sessionID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput(cmd) {
		return printJSON(out, result)
	}
	fmt.Fprintf(out, "Phase: %s\n", result.Phase)
	if result.Error != "" {
		fmt.Fprintf(out, "Error: %s\n", result.Error)
	}
	fmt.Fprintln(out)
	printSummary(out, result.Summary)
	return nil
}

func runAnswer(cmd *cobra.Command, args []string) error {
	c, _, err := dial(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	sessionID, err := sessionFlag(cmd)
	if err != nil {
		return err
	}
	answer, _ := cmd.Flags().GetString("answer")
	index, _ := cmd.Flags().GetInt("question")

	ctx := context.Background()
	if index < 0 {
		status, err := c.GetSessionStatus(ctx, sessionID)
		if err != nil {
			return err
		}
		if status.Pending == nil {
			return fmt.Errorf("session %s is not waiting for an answer (phase %s)", sessionID, status.Phase)
		}
		index = status.Current
	}

	if err := c.AnswerQuestion(ctx, sessionID, index, answer); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Answer sent for question %d of %s\n", index, sessionID)
	return nil
}

func runCancel(cmd *cobra.Command, args []string) error {
	c, _, err := dial(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	sessionID, err := sessionFlag(cmd)
	if err != nil {
		return err
	}
	if err := c.CancelSession(context.Background(), sessionID); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cancellation sent to %s\n", sessionID)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	c, _, err := dial(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	statusFilter, _ := cmd.Flags().GetString("status")
	limit, _ := cmd.Flags().GetInt("limit")
	sessions, err := c.ListSessions(context.Background(), statusFilter, limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput(cmd) {
		return printJSON(out, sessions)
	}
	if len(sessions) == 0 {
		fmt.Fprintln(out, "No sessions found.")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION ID\tSTATUS\tSTARTED")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.WorkflowID, s.Status, s.StartTime)
	}
	return tw.Flush()
}
