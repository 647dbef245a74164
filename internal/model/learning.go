package model

import "time"

// InterventionOutcome describes how a deferred question was resolved.
type InterventionOutcome string

const (
	// OutcomeManualAnswer is a human-supplied answer after automation was skipped.
	OutcomeManualAnswer InterventionOutcome = "manual_answer"
	// OutcomeAutomationFailed is a human answer after automation was tried and failed.
	OutcomeAutomationFailed InterventionOutcome = "automation_failed"
)

// LearningEvent is one append-only entry of intervention history.
type LearningEvent struct {
	ID               string              `json:"id" yaml:"id"`
	Timestamp        time.Time           `json:"timestamp" yaml:"timestamp"`
	Capability       string              `json:"capability" yaml:"capability"`
	QuestionType     QuestionType        `json:"question_type" yaml:"question_type"`
	QuestionText     string              `json:"question_text" yaml:"question_text"`
	ConfidenceBefore float64             `json:"confidence_before" yaml:"confidence_before"`
	Context          DecisionContext     `json:"context" yaml:"context"`
	Outcome          InterventionOutcome `json:"outcome" yaml:"outcome"`
	ResolutionValue  string              `json:"resolution_value" yaml:"resolution_value"`
	SessionID        string              `json:"session_id,omitempty" yaml:"session_id,omitempty"`
}

// PatternStrength tiers a success pattern by how often it has worked.
type PatternStrength string

const (
	StrengthWeak       PatternStrength = "weak"
	StrengthModerate   PatternStrength = "moderate"
	StrengthStrong     PatternStrength = "strong"
	StrengthVeryStrong PatternStrength = "very_strong"
)

// StrengthFor tiers a sample size.
func StrengthFor(sampleSize int) PatternStrength {
	switch {
	case sampleSize >= 10:
		return StrengthVeryStrong
	case sampleSize >= 5:
		return StrengthStrong
	case sampleSize >= 3:
		return StrengthModerate
	default:
		return StrengthWeak
	}
}

// SuccessPattern is a remembered (capability, type, strategy) combination
// that worked.
type SuccessPattern struct {
	Capability      string          `json:"capability" yaml:"capability"`
	QuestionType    QuestionType    `json:"question_type" yaml:"question_type"`
	Strategy        string          `json:"strategy" yaml:"strategy"`
	ConfidenceBoost float64         `json:"confidence_boost" yaml:"confidence_boost"`
	SuccessRate     float64         `json:"success_rate" yaml:"success_rate"`
	SampleSize      int             `json:"sample_size" yaml:"sample_size"`
	Strength        PatternStrength `json:"strength_tier" yaml:"strength_tier"`
	LastConfidence  float64         `json:"last_confidence" yaml:"last_confidence"`
	UpdatedAt       time.Time       `json:"updated_at" yaml:"updated_at"`
}

// Prediction is one (predicted, actual) pair in a calibration log.
type Prediction struct {
	PredictedConfidence float64   `json:"predicted_confidence" yaml:"predicted_confidence"`
	ActualSuccess       bool      `json:"actual_success" yaml:"actual_success"`
	Timestamp           time.Time `json:"timestamp" yaml:"timestamp"`
}

// ConfidenceCalibration is the rolling predicted-vs-actual record of one
// capability and question type.
type ConfidenceCalibration struct {
	Capability           string       `json:"capability" yaml:"capability"`
	QuestionType         QuestionType `json:"question_type" yaml:"question_type"`
	Predictions          []Prediction `json:"predictions" yaml:"predictions"`
	AccuracyRate         float64      `json:"accuracy_rate" yaml:"accuracy_rate"`
	RecommendedThreshold float64      `json:"recommended_threshold" yaml:"recommended_threshold"`
}

// FailureCluster groups interventions by question type and element.
type FailureCluster struct {
	Key           string       `json:"key"`
	QuestionType  QuestionType `json:"question_type"`
	Element       string       `json:"element"`
	Count         int          `json:"count"`
	AvgConfidence float64      `json:"avg_confidence"`
}

// Maturity tiers the learning system by mean capability success rate.
type Maturity string

const (
	MaturityBeginner     Maturity = "beginner"
	MaturityIntermediate Maturity = "intermediate"
	MaturityAdvanced     Maturity = "advanced"
)

// Insights is a read-only aggregate over the learning state.
type Insights struct {
	Maturity                Maturity         `json:"learning_maturity"`
	AutomationReadiness     float64          `json:"automation_readiness_pct"`
	TotalInterventions      int              `json:"total_interventions"`
	DominantFailureCategory QuestionType     `json:"dominant_failure_category,omitempty"`
	StrongPatterns          int              `json:"strong_patterns"`
	SuccessPatterns         int              `json:"success_patterns"`
	Calibrations            int              `json:"calibrations"`
	FailureClusters         []FailureCluster `json:"failure_clusters,omitempty"`
	Recommendations         []string         `json:"recommendations,omitempty"`
}

// SystemStatistics summarises performance across every capability.
type SystemStatistics struct {
	Capabilities            int     `json:"capabilities"`
	TotalAttempts           int     `json:"total_attempts"`
	SuccessfulAttempts      int     `json:"successful_attempts"`
	OverallSuccessRate      float64 `json:"overall_success_rate"`
	AverageCurrentThreshold float64 `json:"average_current_threshold"`
}
