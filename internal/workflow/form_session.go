// Package workflow contains the Temporal workflow that runs a form session
// and waits on humans for the questions it defers.
package workflow

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/tinkerloft/formpilot/internal/activity"
	"github.com/tinkerloft/formpilot/internal/model"
)

// Signal and query names.
const (
	SignalAnswer = "answer"
	SignalCancel = "cancel"
	QueryStatus  = "status"
)

// FormSession runs each question through AttemptQuestion. A deferred
// question is announced through NotifyHuman and the workflow then waits for
// an answer signal for that question index, or a cancel. Answers are stored
// through ResolveQuestion. Activity failures end the session as failed
// rather than failing the workflow.
func FormSession(ctx workflow.Context, input model.SessionInput) (*model.SessionResult, error) {
	logger := workflow.GetLogger(ctx)

	sessionID := input.SessionID
	if sessionID == "" {
		sessionID = workflow.GetInfo(ctx).WorkflowExecution.ID
	}

	summary := model.SessionSummary{SessionID: sessionID, StartedAt: workflow.Now(ctx).UTC()}
	status := model.SessionStatus{
		SessionID: sessionID,
		Phase:     model.SessionPhaseRunning,
		Total:     len(input.Questions),
	}
	var (
		answers               = map[int]string{}
		cancellationRequested bool
	)

	_ = workflow.SetQueryHandler(ctx, QueryStatus, func() (model.SessionStatus, error) { return status, nil })

	answerChannel := workflow.GetSignalChannel(ctx, SignalAnswer)
	cancelChannel := workflow.GetSignalChannel(ctx, SignalCancel)

	doneChannel := workflow.NewChannel(ctx)
	var signalHandlerDone bool

	workflow.Go(ctx, func(ctx workflow.Context) {
		for !signalHandlerDone {
			selector := workflow.NewSelector(ctx)
			selector.AddReceive(doneChannel, func(c workflow.ReceiveChannel, more bool) {
				c.Receive(ctx, nil)
				signalHandlerDone = true
			})
			selector.AddReceive(answerChannel, func(c workflow.ReceiveChannel, more bool) {
				var payload model.AnswerSignalPayload
				c.Receive(ctx, &payload)
				if strings.TrimSpace(payload.Answer) == "" {
					logger.Warn("Ignoring empty answer", "question_index", payload.QuestionIndex)
					return
				}
				answers[payload.QuestionIndex] = payload.Answer
			})
			selector.AddReceive(cancelChannel, func(c workflow.ReceiveChannel, more bool) {
				c.Receive(ctx, nil)
				cancellationRequested = true
			})
			selector.Select(ctx)
		}
	})

	finish := func(phase model.SessionPhase, errMsg string) *model.SessionResult {
		doneChannel.Send(ctx, struct{}{})
		summary.FinishedAt = workflow.Now(ctx).UTC()
		status.Phase = phase
		status.Pending = nil
		logger.Info("Form session finished",
			"phase", phase,
			"total", summary.Total,
			"automated", summary.Automated,
			"deferred", summary.Deferred,
			"learning_events", summary.LearningEvents)
		return &model.SessionResult{Phase: phase, Summary: summary, Error: errMsg}
	}

	retryPolicy := &temporal.RetryPolicy{
		InitialInterval:    time.Second,
		MaximumInterval:    time.Minute,
		BackoffCoefficient: 2.0,
		MaximumAttempts:    3,
	}
	actCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy:         retryPolicy,
	})

	for i, q := range input.Questions {
		if cancellationRequested {
			return finish(model.SessionPhaseCancelled, "session cancelled"), nil
		}
		status.Current = i

		var r model.QuestionResult
		attempt := activity.AttemptQuestionInput{SessionID: sessionID, Question: q}
		if err := workflow.ExecuteActivity(actCtx, activity.ActivityAttemptQuestion, attempt).Get(ctx, &r); err != nil {
			return finish(model.SessionPhaseFailed, fmt.Sprintf("question %d: attempt failed: %v", i, err)), nil
		}

		if r.Deferred {
			pending := r
			status.Phase = model.SessionPhaseAwaitingAnswer
			status.Pending = &pending

			notify := activity.NotifyHumanInput{SessionID: sessionID, Channel: input.SlackChannel, Result: r}
			if err := workflow.ExecuteActivity(actCtx, activity.ActivityNotifyHuman, notify).Get(ctx, nil); err != nil {
				logger.Warn("Failed to notify human", "question_index", i, "error", err)
			}

			idx := i
			answered := func() bool {
				_, ok := answers[idx]
				return ok || cancellationRequested
			}
			if input.AnswerTimeout > 0 {
				ok, err := workflow.AwaitWithTimeout(ctx, input.AnswerTimeout, answered)
				if err != nil {
					return finish(model.SessionPhaseFailed, fmt.Sprintf("question %d: waiting for answer: %v", i, err)), nil
				}
				if !ok {
					logger.Warn("No answer before timeout", "question_index", i, "timeout", input.AnswerTimeout)
					if r.Error == "" {
						r.Error = fmt.Sprintf("no answer within %s", input.AnswerTimeout)
					}
				}
			} else if err := workflow.Await(ctx, answered); err != nil {
				return finish(model.SessionPhaseFailed, fmt.Sprintf("question %d: waiting for answer: %v", i, err)), nil
			}

			if cancellationRequested {
				return finish(model.SessionPhaseCancelled, "session cancelled"), nil
			}

			if answer, ok := answers[i]; ok {
				var ev model.LearningEvent
				resolve := activity.ResolveQuestionInput{SessionID: sessionID, Result: r, Answer: answer}
				if err := workflow.ExecuteActivity(actCtx, activity.ActivityResolveQuestion, resolve).Get(ctx, &ev); err != nil {
					logger.Warn("Failed to store answer", "question_index", i, "error", err)
					if r.Error == "" {
						r.Error = err.Error()
					}
				} else {
					r.Value = ev.ResolutionValue
					r.LearningEventID = ev.ID
				}
			}
			status.Phase = model.SessionPhaseRunning
			status.Pending = nil
		}

		summary.Add(r)
		status.Results = append(status.Results, r)
	}

	return finish(model.SessionPhaseCompleted, ""), nil
}
