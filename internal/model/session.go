package model

import "time"

// DecisionReason explains an automate/defer decision.
type DecisionReason string

const (
	ReasonExceedsThreshold        DecisionReason = "exceeds_threshold"
	ReasonPatternBoosted          DecisionReason = "pattern_boosted"
	ReasonNearThresholdTrendingUp DecisionReason = "near_threshold_trending_up"
	ReasonBelowThreshold          DecisionReason = "below_threshold"
	ReasonUnclassified            DecisionReason = "unclassified"
	ReasonNoCapability            DecisionReason = "no_capability"

	ReasonLowConfidenceLearning DecisionReason = "low_confidence_learning_opportunity"
	ReasonLearningPriority      DecisionReason = "learning_priority_pattern"
	ReasonAdequateForSkipping   DecisionReason = "confidence_adequate_for_skipping"
)

// QuestionInput is one question handed to a session.
type QuestionInput struct {
	ID      string   `json:"id,omitempty" yaml:"id,omitempty"`
	Text    string   `json:"text" yaml:"text"`
	Options []string `json:"options,omitempty" yaml:"options,omitempty"`
	Element string   `json:"element,omitempty" yaml:"element,omitempty"`
	Hint    *Hint    `json:"hint,omitempty" yaml:"hint,omitempty"`
}

// QuestionResult records what happened to one question.
type QuestionResult struct {
	QuestionID        string         `json:"question_id,omitempty"`
	Text              string         `json:"text"`
	Options           []string       `json:"options,omitempty"`
	Element           string         `json:"element,omitempty"`
	Classification    Classification `json:"classification"`
	Capability        string         `json:"capability,omitempty"`
	Confidence        float64        `json:"confidence"`
	Threshold         float64        `json:"threshold"`
	Reason            DecisionReason `json:"reason"`
	Attempted         bool           `json:"attempted"`
	Success           bool           `json:"success"`
	Value             string         `json:"value,omitempty"`
	Deferred          bool           `json:"deferred"`
	LearningRequested bool           `json:"learning_requested"`
	LearningReason    DecisionReason `json:"learning_reason,omitempty"`
	Error             string         `json:"error,omitempty"`
	LearningEventID   string         `json:"learning_event_id,omitempty"`
}

// SessionInput starts a durable form session.
type SessionInput struct {
	SessionID    string          `json:"session_id"`
	Questions    []QuestionInput `json:"questions"`
	SlackChannel string          `json:"slack_channel,omitempty"`
	// AnswerTimeout bounds each human wait; zero waits indefinitely.
	AnswerTimeout time.Duration `json:"answer_timeout,omitempty"`
}

// SessionPhase is the coarse state of a form session.
type SessionPhase string

const (
	SessionPhaseRunning        SessionPhase = "running"
	SessionPhaseAwaitingAnswer SessionPhase = "awaiting_answer"
	SessionPhaseCompleted      SessionPhase = "completed"
	SessionPhaseCancelled      SessionPhase = "cancelled"
	SessionPhaseFailed         SessionPhase = "failed"
)

// SessionStatus is the queryable state of a form session.
type SessionStatus struct {
	SessionID string           `json:"session_id"`
	Phase     SessionPhase     `json:"phase"`
	Current   int              `json:"current"`
	Total     int              `json:"total"`
	Pending   *QuestionResult  `json:"pending,omitempty"`
	Results   []QuestionResult `json:"results,omitempty"`
}

// AnswerSignalPayload carries a human answer into a waiting session.
type AnswerSignalPayload struct {
	QuestionIndex int    `json:"question_index"`
	Answer        string `json:"answer"`
}

// SessionSummary counts what a session did.
type SessionSummary struct {
	SessionID      string           `json:"session_id"`
	Total          int              `json:"total"`
	Automated      int              `json:"automated"`
	Deferred       int              `json:"deferred"`
	FailedAttempts int              `json:"failed_attempts"`
	LearningEvents int              `json:"learning_events"`
	Results        []QuestionResult `json:"results,omitempty"`
	StartedAt      time.Time        `json:"started_at"`
	FinishedAt     time.Time        `json:"finished_at"`
}

// Add folds one result into the summary counters.
func (s *SessionSummary) Add(r QuestionResult) {
	s.Total++
	if r.Attempted && r.Success {
		s.Automated++
	}
	if r.Attempted && !r.Success {
		s.FailedAttempts++
	}
	if r.Deferred {
		s.Deferred++
	}
	if r.LearningEventID != "" {
		s.LearningEvents++
	}
	s.Results = append(s.Results, r)
}

// SessionResult is the outcome of a durable form session.
type SessionResult struct {
	Phase   SessionPhase   `json:"phase"`
	Summary SessionSummary `json:"summary"`
	Error   string         `json:"error,omitempty"`
}
