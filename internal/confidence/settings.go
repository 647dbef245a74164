// Package confidence holds per-capability dynamic thresholds, the
// automate/defer decision, and learned success patterns.
package confidence

import "github.com/tinkerloft/formpilot/internal/model"

// Settings are the tunables of the decision engine.
type Settings struct {
	LearningRate   float64 `json:"learning_rate" yaml:"learning_rate"`
	SuccessBoost   float64 `json:"success_boost" yaml:"success_boost"`
	FailurePenalty float64 `json:"failure_penalty" yaml:"failure_penalty"`
	MinThreshold   float64 `json:"min_threshold" yaml:"min_threshold"`
	MaxThreshold   float64 `json:"max_threshold" yaml:"max_threshold"`
	// ManualInterventionThreshold is the bar below which a deferral is worth
	// soliciting a human answer for.
	ManualInterventionThreshold float64 `json:"manual_intervention_threshold" yaml:"manual_intervention_threshold"`
	Margin                      float64 `json:"margin" yaml:"margin"`
	// MaxDrift bounds |dynamic_adjustment|.
	MaxDrift             float64 `json:"max_drift" yaml:"max_drift"`
	DefaultBaseThreshold float64 `json:"default_base_threshold" yaml:"default_base_threshold"`
	// HysteresisMinSamples is the attempt count a capability needs before
	// near-threshold automation applies. Zero applies it immediately.
	HysteresisMinSamples int `json:"hysteresis_min_samples" yaml:"hysteresis_min_samples"`
	// LearningPriorityMinFailures marks a question type as a learning
	// priority once it has this many interventions and no success pattern.
	// Zero disables the rule.
	LearningPriorityMinFailures int     `json:"learning_priority_min_failures" yaml:"learning_priority_min_failures"`
	HintBoost                   float64 `json:"hint_boost" yaml:"hint_boost"`
	// HintConfidenceFloor is on the hint's 0-100 scale.
	HintConfidenceFloor float64 `json:"hint_confidence_floor" yaml:"hint_confidence_floor"`
	// HintCap bounds a hint-boosted confidence. Zero means 1.
	HintCap float64 `json:"hint_cap" yaml:"hint_cap"`

	BaseThresholds map[string]float64             `json:"base_thresholds,omitempty" yaml:"base_thresholds,omitempty"`
	TypeModifiers  map[model.QuestionType]float64 `json:"type_modifiers,omitempty" yaml:"type_modifiers,omitempty"`
}

// DefaultSettings returns the stock tuning.
func DefaultSettings() Settings {
	return Settings{
		LearningRate:                0.1,
		SuccessBoost:                0.05,
		FailurePenalty:              -0.02,
		MinThreshold:                0.1,
		MaxThreshold:                0.95,
		ManualInterventionThreshold: 0.3,
		Margin:                      0.05,
		MaxDrift:                    0.2,
		DefaultBaseThreshold:        0.5,
		HintBoost:                   0.15,
		HintConfidenceFloor:         80,
		HintCap:                     0.95,
	}
}

// baseFor returns the configured base threshold for a capability.
func (s Settings) baseFor(capability string) float64 {
	if b, ok := s.BaseThresholds[capability]; ok {
		return b
	}
	return s.DefaultBaseThreshold
}
