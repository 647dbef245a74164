package capability

import (
	"context"
	"log/slog"
	"strings"
)

// ActionKind is the kind of UI interaction a plan asks for.
type ActionKind string

const (
	ActionFill       ActionKind = "fill"
	ActionSelect     ActionKind = "select"
	ActionSelectMany ActionKind = "select_many"
	ActionRate       ActionKind = "rate"
)

// ActionPlan is the finalised instruction handed to the UI execution layer.
type ActionPlan struct {
	Capability   string     `json:"capability"`
	QuestionID   string     `json:"question_id,omitempty"`
	QuestionText string     `json:"question_text"`
	Element      string     `json:"element"`
	Action       ActionKind `json:"action"`
	Values       []string   `json:"values"`
}

// ExecutionReport is what the UI layer reports back. Value is the literal
// value used, required for pattern learning.
type ExecutionReport struct {
	Success bool   `json:"success"`
	Value   string `json:"value"`
	Detail  string `json:"detail,omitempty"`
}

// Executor performs element interactions.
type Executor interface {
	Execute(ctx context.Context, plan ActionPlan) (ExecutionReport, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, plan ActionPlan) (ExecutionReport, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, plan ActionPlan) (ExecutionReport, error) {
	return f(ctx, plan)
}

// DryRunExecutor logs plans and reports success for any plan that carries at
// least one value. It stands in for a browser when running offline.
type DryRunExecutor struct {
	Logger *slog.Logger
}

// Execute implements Executor.
func (d DryRunExecutor) Execute(ctx context.Context, plan ActionPlan) (ExecutionReport, error) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	value := joinValues(plan.Values)
	logger.InfoContext(ctx, "dry-run action",
		"capability", plan.Capability,
		"action", plan.Action,
		"element", plan.Element,
		"value", value,
	)
	if value == "" {
		return ExecutionReport{Detail: "empty plan"}, nil
	}
	return ExecutionReport{Success: true, Value: value}, nil
}

func joinValues(values []string) string {
	return strings.Join(values, "; ")
}
