// Package client provides Temporal client utilities for form sessions.
package client

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"

	"github.com/tinkerloft/formpilot/internal/logging"
	"github.com/tinkerloft/formpilot/internal/model"
	"github.com/tinkerloft/formpilot/internal/workflow"
)

// DefaultTaskQueue is the task queue the worker polls when none is configured.
const DefaultTaskQueue = "formpilot"

// validWorkflowStatuses defines allowed Temporal workflow execution statuses.
var validWorkflowStatuses = map[string]bool{
	"Running":    true,
	"Completed":  true,
	"Failed":     true,
	"Canceled":   true,
	"Terminated": true,
	"TimedOut":   true,
}

// Options configures the connection.
type Options struct {
	Address   string
	Namespace string
	TaskQueue string
	Logger    *slog.Logger
}

// Client wraps the Temporal client to reduce connection churn.
type Client struct {
	temporal  client.Client
	taskQueue string
}

// NewClient dials Temporal.
func NewClient(opts Options) (*Client, error) {
	if opts.Address == "" {
		opts.Address = "localhost:7233"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	c, err := client.Dial(client.Options{
		HostPort:  opts.Address,
		Namespace: opts.Namespace,
		Logger:    logging.NewSlogAdapter(opts.Logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Temporal: %w", err)
	}
	return New(c, opts.TaskQueue), nil
}

// New wraps an existing Temporal client.
func New(c client.Client, taskQueue string) *Client {
	if taskQueue == "" {
		taskQueue = DefaultTaskQueue
	}
	return &Client{temporal: c, taskQueue: taskQueue}
}

// Close closes the underlying Temporal client connection.
func (c *Client) Close() {
	c.temporal.Close()
}

// StartSession starts a FormSession workflow. The session ID doubles as the
// workflow ID and is generated when empty.
func (c *Client) StartSession(ctx context.Context, input model.SessionInput) (string, error) {
	if len(input.Questions) == 0 {
		return "", fmt.Errorf("session has no questions")
	}
	if input.SessionID == "" {
		input.SessionID = "session-" + uuid.NewString()
	}

	options := client.StartWorkflowOptions{
		ID:        input.SessionID,
		TaskQueue: c.taskQueue,
	}
	we, err := c.temporal.ExecuteWorkflow(ctx, options, workflow.FormSession, input)
	if err != nil {
		return "", fmt.Errorf("failed to start workflow: %w", err)
	}
	return we.GetID(), nil
}

// GetSessionStatus queries the status of a running or finished session.
func (c *Client) GetSessionStatus(ctx context.Context, sessionID string) (*model.SessionStatus, error) {
	resp, err := c.temporal.QueryWorkflow(ctx, sessionID, "", workflow.QueryStatus)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow: %w", err)
	}

	var status model.SessionStatus
	if err := resp.Get(&status); err != nil {
		return nil, fmt.Errorf("failed to decode status: %w", err)
	}
	return &status, nil
}

// GetSessionResult waits for and returns the session result.
func (c *Client) GetSessionResult(ctx context.Context, sessionID string) (*model.SessionResult, error) {
	run := c.temporal.GetWorkflow(ctx, sessionID, "")

	var result model.SessionResult
	if err := run.Get(ctx, &result); err != nil {
		return nil, fmt.Errorf("failed to get workflow result: %w", err)
	}
	return &result, nil
}

// AnswerQuestion delivers a human answer for the question at index.
func (c *Client) AnswerQuestion(ctx context.Context, sessionID string, index int, answer string) error {
	payload := model.AnswerSignalPayload{QuestionIndex: index, Answer: answer}
	return c.temporal.SignalWorkflow(ctx, sessionID, "", workflow.SignalAnswer, payload)
}

// CancelSession sends a cancellation signal to a session.
func (c *Client) CancelSession(ctx context.Context, sessionID string) error {
	return c.temporal.SignalWorkflow(ctx, sessionID, "", workflow.SignalCancel, nil)
}

// WorkflowInfo contains summary information about a workflow.
type WorkflowInfo struct {
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id"`
	Status     string `json:"status"`
	StartTime  string `json:"start_time"`
}

// ListSessions lists sessions matching the given status filter with pagination.
// If limit is 0, all matching sessions are returned.
func (c *Client) ListSessions(ctx context.Context, statusFilter string, limit int) ([]WorkflowInfo, error) {
	query := `WorkflowType = "FormSession"`
	if statusFilter != "" {
		if !validWorkflowStatuses[statusFilter] {
			return nil, fmt.Errorf("invalid status filter: %q (valid: Running, Completed, Failed, Canceled, Terminated, TimedOut)", statusFilter)
		}
		query += fmt.Sprintf(` AND ExecutionStatus = "%s"`, statusFilter)
	}

	var workflows []WorkflowInfo
	var nextPageToken []byte

	for {
		resp, err := c.temporal.ListWorkflow(ctx, &workflowservice.ListWorkflowExecutionsRequest{
			Query:         query,
			NextPageToken: nextPageToken,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list workflows: %w", err)
		}

		for _, wf := range resp.Executions {
			if limit > 0 && len(workflows) >= limit {
				break
			}
			workflows = append(workflows, WorkflowInfo{
				WorkflowID: wf.Execution.WorkflowId,
				RunID:      wf.Execution.RunId,
				Status:     wf.Status.String(),
				StartTime:  wf.StartTime.AsTime().Format("2006-01-02 15:04:05"),
			})
		}

		nextPageToken = resp.NextPageToken
		if len(nextPageToken) == 0 || (limit > 0 && len(workflows) >= limit) {
			break
		}
	}

	return workflows, nil
}
