package model

import "time"

// Trend summarises a capability's recent success rate.
type Trend string

const (
	TrendUnknown        Trend = "unknown"
	TrendExcellent      Trend = "excellent"
	TrendImproving      Trend = "improving"
	TrendStable         Trend = "stable"
	TrendNeedsAttention Trend = "needs_attention"
)

// TrendFor maps a success rate onto a trend bucket.
func TrendFor(successRate float64) Trend {
	switch {
	case successRate > 0.8:
		return TrendExcellent
	case successRate > 0.6:
		return TrendImproving
	case successRate > 0.4:
		return TrendStable
	default:
		return TrendNeedsAttention
	}
}

// CapabilityThreshold is the durable threshold state of one capability.
// The current threshold is always derived and never stored.
type CapabilityThreshold struct {
	Name               string     `json:"name" yaml:"name"`
	BaseThreshold      float64    `json:"base_threshold" yaml:"base_threshold"`
	DynamicAdjustment  float64    `json:"dynamic_adjustment" yaml:"dynamic_adjustment"`
	SuccessRate        float64    `json:"success_rate" yaml:"success_rate"`
	TotalAttempts      int        `json:"total_attempts" yaml:"total_attempts"`
	SuccessfulAttempts int        `json:"successful_attempts" yaml:"successful_attempts"`
	Trend              Trend      `json:"trend" yaml:"trend"`
	LastSuccessTime    *time.Time `json:"last_success_time,omitempty" yaml:"last_success_time,omitempty"`
}

// Record applies one outcome to the attempt counters and recomputes the
// success rate and trend.
func (t *CapabilityThreshold) Record(success bool, at time.Time) {
	t.TotalAttempts++
	if success {
		t.SuccessfulAttempts++
		ts := at
		t.LastSuccessTime = &ts
	}
	t.SuccessRate = 0
	if t.TotalAttempts > 0 {
		t.SuccessRate = float64(t.SuccessfulAttempts) / float64(t.TotalAttempts)
	}
	if t.SuccessRate > 1 {
		t.SuccessRate = 1
	}
	t.Trend = TrendFor(t.SuccessRate)
}
