package client

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	commonpb "go.temporal.io/api/common/v1"
	enumspb "go.temporal.io/api/enums/v1"
	workflowpb "go.temporal.io/api/workflow/v1"
	"go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/converter"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/tinkerloft/formpilot/internal/model"
	"github.com/tinkerloft/formpilot/internal/workflow"
)

type signal struct {
	workflowID string
	name       string
	arg        any
}

// fakeTemporal overrides the calls the wrapper makes; anything else panics
// through the nil embedded interface.
type fakeTemporal struct {
	client.Client

	started   client.StartWorkflowOptions
	startArgs []any
	signals   []signal
	queries   []string
	status    model.SessionStatus
	pages     []*workflowservice.ListWorkflowExecutionsResponse
	listed    []string
	err       error
}

type fakeRun struct {
	client.WorkflowRun
	id string
}

func (r fakeRun) GetID() string { return r.id }

type jsonValue struct{ v any }

func (j jsonValue) HasValue() bool { return j.v != nil }

func (j jsonValue) Get(ptr any) error {
	data, err := json.Marshal(j.v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, ptr)
}

func (f *fakeTemporal) ExecuteWorkflow(_ context.Context, options client.StartWorkflowOptions, _ any, args ...any) (client.WorkflowRun, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.started = options
	f.startArgs = args
	return fakeRun{id: options.ID}, nil
}

func (f *fakeTemporal) SignalWorkflow(_ context.Context, workflowID, _ string, signalName string, arg any) error {
	f.signals = append(f.signals, signal{workflowID: workflowID, name: signalName, arg: arg})
	return f.err
}

func (f *fakeTemporal) QueryWorkflow(_ context.Context, workflowID, _ string, queryType string, _ ...any) (converter.EncodedValue, error) {
	f.queries = append(f.queries, workflowID+":"+queryType)
	if f.err != nil {
		return nil, f.err
	}
	return jsonValue{v: f.status}, nil
}

func (f *fakeTemporal) ListWorkflow(_ context.Context, req *workflowservice.ListWorkflowExecutionsRequest) (*workflowservice.ListWorkflowExecutionsResponse, error) {
	f.listed = append(f.listed, req.Query)
	if len(f.pages) == 0 {
		return &workflowservice.ListWorkflowExecutionsResponse{}, nil
	}
	page := f.pages[0]
	f.pages = f.pages[1:]
	return page, nil
}

func execution(id string, start time.Time) *workflowpb.WorkflowExecutionInfo {
	return &workflowpb.WorkflowExecutionInfo{
		Execution: &commonpb.WorkflowExecution{WorkflowId: id, RunId: "run-" + id},
		Status:    enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING,
		StartTime: timestamppb.New(start),
	}
}

func TestStartSession(t *testing.T) {
	fake := &fakeTemporal{}
	c := New(fake, "")

	id, err := c.StartSession(context.Background(), model.SessionInput{
		SessionID: "s-1",
		Questions: []model.QuestionInput{{Text: "How old are you?"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "s-1", id)
	assert.Equal(t, "s-1", fake.started.ID)
	assert.Equal(t, DefaultTaskQueue, fake.started.TaskQueue)
	require.Len(t, fake.startArgs, 1)
}

func TestStartSession_GeneratesID(t *testing.T) {
	fake := &fakeTemporal{}
	c := New(fake, "forms")

	id, err := c.StartSession(context.Background(), model.SessionInput{
		Questions: []model.QuestionInput{{Text: "How old are you?"}},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "session-"))
	assert.Equal(t, "forms", fake.started.TaskQueue)

	input, ok := fake.startArgs[0].(model.SessionInput)
	require.True(t, ok)
	assert.Equal(t, id, input.SessionID)
}

func TestStartSession_Errors(t *testing.T) {
	c := New(&fakeTemporal{}, "")
	_, err := c.StartSession(context.Background(), model.SessionInput{})
	require.Error(t, err)

	c = New(&fakeTemporal{err: errors.New("unavailable")}, "")
	_, err = c.StartSession(context.Background(), model.SessionInput{Questions: []model.QuestionInput{{Text: "x"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start workflow")
}

func TestGetSessionStatus(t *testing.T) {
	fake := &fakeTemporal{status: model.SessionStatus{SessionID: "s-1", Phase: model.SessionPhaseAwaitingAnswer, Total: 3, Current: 1}}
	c := New(fake, "")

	status, err := c.GetSessionStatus(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, model.SessionPhaseAwaitingAnswer, status.Phase)
	assert.Equal(t, 1, status.Current)
	assert.Equal(t, []string{"s-1:" + workflow.QueryStatus}, fake.queries)
}

func TestAnswerAndCancel(t *testing.T) {
	fake := &fakeTemporal{}
	c := New(fake, "")

	require.NoError(t, c.AnswerQuestion(context.Background(), "s-1", 2, "Blue"))
	require.NoError(t, c.CancelSession(context.Background(), "s-1"))

	require.Len(t, fake.signals, 2)
	assert.Equal(t, workflow.SignalAnswer, fake.signals[0].name)
	assert.Equal(t, model.AnswerSignalPayload{QuestionIndex: 2, Answer: "Blue"}, fake.signals[0].arg)
	assert.Equal(t, workflow.SignalCancel, fake.signals[1].name)
	assert.Nil(t, fake.signals[1].arg)
}

func TestListSessions(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	fake := &fakeTemporal{pages: []*workflowservice.ListWorkflowExecutionsResponse{
		{Executions: []*workflowpb.WorkflowExecutionInfo{execution("a", start)}, NextPageToken: []byte("p2")},
		{Executions: []*workflowpb.WorkflowExecutionInfo{execution("b", start), execution("c", start)}},
	}}
	c := New(fake, "")

	sessions, err := c.ListSessions(context.Background(), "Running", 2)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "a", sessions[0].WorkflowID)
	assert.Equal(t, "run-b", sessions[1].RunID)
	assert.Equal(t, "Running", sessions[0].Status)
	assert.Equal(t, "2026-03-01 09:30:00", sessions[0].StartTime)
	assert.Equal(t, `WorkflowType = "FormSession" AND ExecutionStatus = "Running"`, fake.listed[0])
}

func TestListSessions_InvalidFilter(t *testing.T) {
	c := New(&fakeTemporal{}, "")
	_, err := c.ListSessions(context.Background(), "Paused", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid status filter")
}
