package metrics

import (
	"context"
	"time"

	"go.temporal.io/sdk/interceptor"

	"github.com/tinkerloft/formpilot/internal/activity"
	"github.com/tinkerloft/formpilot/internal/model"
)

// Question outcome labels recorded from session activities.
const (
	QuestionAutomated = "automated"
	QuestionDeferred  = "deferred"
	QuestionFailed    = "failed"
	QuestionAnswered  = "answered"
)

// Interceptor is a Temporal WorkerInterceptor that times every activity and
// counts question outcomes reported by the session activities.
type Interceptor struct {
	interceptor.WorkerInterceptorBase
	m *Metrics
}

// NewInterceptor returns an interceptor recording into m.
func NewInterceptor(m *Metrics) *Interceptor {
	return &Interceptor{m: m}
}

// InterceptActivity wraps an activity's inbound calls.
func (i *Interceptor) InterceptActivity(ctx context.Context, next interceptor.ActivityInboundInterceptor) interceptor.ActivityInboundInterceptor {
	return &sessionActivityInterceptor{
		ActivityInboundInterceptorBase: interceptor.ActivityInboundInterceptorBase{Next: next},
		m:                              i.m,
	}
}

type sessionActivityInterceptor struct {
	interceptor.ActivityInboundInterceptorBase
	m        *Metrics
	outbound interceptor.ActivityOutboundInterceptor
}

// Init keeps the outbound interceptor; it carries the activity info.
func (s *sessionActivityInterceptor) Init(outbound interceptor.ActivityOutboundInterceptor) error {
	s.outbound = outbound
	return s.ActivityInboundInterceptorBase.Init(outbound)
}

func (s *sessionActivityInterceptor) ExecuteActivity(ctx context.Context, in *interceptor.ExecuteActivityInput) (interface{}, error) {
	var name string
	if s.outbound != nil {
		name = s.outbound.GetInfo(ctx).ActivityType.Name
	}

	start := time.Now()
	result, err := s.ActivityInboundInterceptorBase.ExecuteActivity(ctx, in)
	s.m.observeActivity(name, time.Since(start), err)

	if err == nil {
		s.m.observeSessionStep(name, result)
	}
	return result, err
}

func (m *Metrics) observeActivity(name string, elapsed time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.ActivityDuration.WithLabelValues(name, result).Observe(elapsed.Seconds())
	m.ActivityTotal.WithLabelValues(name, result).Inc()
}

// observeSessionStep counts what a successful session activity did.
func (m *Metrics) observeSessionStep(name string, result interface{}) {
	switch name {
	case activity.ActivityAttemptQuestion:
		if r, ok := result.(model.QuestionResult); ok {
			m.QuestionResults.WithLabelValues(QuestionOutcome(r)).Inc()
		}
	case activity.ActivityResolveQuestion:
		m.QuestionResults.WithLabelValues(QuestionAnswered).Inc()
	case activity.ActivityNotifyHuman:
		m.NotificationsTotal.Inc()
	}
}

// QuestionOutcome labels an attempt result.
func QuestionOutcome(r model.QuestionResult) string {
	switch {
	case r.Success:
		return QuestionAutomated
	case r.Attempted:
		return QuestionFailed
	default:
		return QuestionDeferred
	}
}
