package knowledge

import (
	"sort"
	"strings"
	"time"

	"github.com/tinkerloft/formpilot/internal/model"
)

// DocumentVersion is written to every flushed document.
const DocumentVersion = 1

// Document is the whole persisted learning state. Section names match the
// on-disk YAML keys.
type Document struct {
	Version               int                                            `json:"version" yaml:"version"`
	UpdatedAt             time.Time                                      `json:"updated_at" yaml:"updated_at"`
	CapabilityThresholds  map[string]*model.CapabilityThreshold          `json:"capability_thresholds" yaml:"capability_thresholds"`
	QuestionPatterns      map[model.QuestionType]model.PatternDefinition `json:"question_patterns" yaml:"question_patterns"`
	InterventionHistory   []model.LearningEvent                          `json:"intervention_history" yaml:"intervention_history"`
	SuccessPatterns       map[string]*model.SuccessPattern               `json:"success_patterns" yaml:"success_patterns"`
	ConfidenceCalibration map[string]*model.ConfidenceCalibration        `json:"confidence_calibration" yaml:"confidence_calibration"`
}

// NewDocument returns an empty document with every section initialised.
func NewDocument() *Document {
	d := &Document{Version: DocumentVersion}
	d.ensure()
	return d
}

// ensure fills sections a decoded document left nil.
func (d *Document) ensure() {
	if d.Version == 0 {
		d.Version = DocumentVersion
	}
	if d.CapabilityThresholds == nil {
		d.CapabilityThresholds = make(map[string]*model.CapabilityThreshold)
	}
	if d.QuestionPatterns == nil {
		d.QuestionPatterns = make(map[model.QuestionType]model.PatternDefinition)
	}
	if d.SuccessPatterns == nil {
		d.SuccessPatterns = make(map[string]*model.SuccessPattern)
	}
	if d.ConfidenceCalibration == nil {
		d.ConfidenceCalibration = make(map[string]*model.ConfidenceCalibration)
	}
}

// PatternKey is the success_patterns key for a (capability, type, strategy).
func PatternKey(capability string, qt model.QuestionType, strategy string) string {
	return strings.Join([]string{capability, string(qt), strategy}, "|")
}

// CalibrationKey is the confidence_calibration key for a (capability, type).
func CalibrationKey(capability string, qt model.QuestionType) string {
	return capability + "|" + string(qt)
}

// Clone returns a deep copy, used to hand each concurrent session its own
// store.
func (d *Document) Clone() *Document {
	out := &Document{
		Version:               d.Version,
		UpdatedAt:             d.UpdatedAt,
		CapabilityThresholds:  make(map[string]*model.CapabilityThreshold, len(d.CapabilityThresholds)),
		QuestionPatterns:      make(map[model.QuestionType]model.PatternDefinition, len(d.QuestionPatterns)),
		InterventionHistory:   append([]model.LearningEvent(nil), d.InterventionHistory...),
		SuccessPatterns:       make(map[string]*model.SuccessPattern, len(d.SuccessPatterns)),
		ConfidenceCalibration: make(map[string]*model.ConfidenceCalibration, len(d.ConfidenceCalibration)),
	}
	for k, v := range d.CapabilityThresholds {
		out.CapabilityThresholds[k] = cloneThreshold(v)
	}
	for k, v := range d.QuestionPatterns {
		out.QuestionPatterns[k] = clonePatternDef(v)
	}
	for k, v := range d.SuccessPatterns {
		p := *v
		out.SuccessPatterns[k] = &p
	}
	for k, v := range d.ConfidenceCalibration {
		out.ConfidenceCalibration[k] = cloneCalibration(v)
	}
	return out
}

// Merge folds other into d. For thresholds and calibrations the side with
// more observations wins; success patterns keep the larger sample; the
// intervention history is the union by event ID ordered by timestamp.
func (d *Document) Merge(other *Document) {
	if other == nil {
		return
	}
	d.ensure()

	for k, theirs := range other.CapabilityThresholds {
		ours, ok := d.CapabilityThresholds[k]
		if !ok || theirs.TotalAttempts > ours.TotalAttempts {
			d.CapabilityThresholds[k] = cloneThreshold(theirs)
		}
	}

	for k, theirs := range other.SuccessPatterns {
		ours, ok := d.SuccessPatterns[k]
		if !ok || theirs.SampleSize > ours.SampleSize {
			p := *theirs
			d.SuccessPatterns[k] = &p
		}
	}

	for k, theirs := range other.ConfidenceCalibration {
		ours, ok := d.ConfidenceCalibration[k]
		if !ok || newerCalibration(theirs, ours) {
			d.ConfidenceCalibration[k] = cloneCalibration(theirs)
		}
	}

	for t, theirs := range other.QuestionPatterns {
		ours, ok := d.QuestionPatterns[t]
		if !ok {
			d.QuestionPatterns[t] = clonePatternDef(theirs)
			continue
		}
		ours.Extend(theirs)
		d.QuestionPatterns[t] = ours
	}

	seen := make(map[string]bool, len(d.InterventionHistory))
	for _, ev := range d.InterventionHistory {
		seen[ev.ID] = true
	}
	added := false
	for _, ev := range other.InterventionHistory {
		if seen[ev.ID] {
			continue
		}
		seen[ev.ID] = true
		d.InterventionHistory = append(d.InterventionHistory, ev)
		added = true
	}
	if added {
		sort.SliceStable(d.InterventionHistory, func(i, j int) bool {
			return d.InterventionHistory[i].Timestamp.Before(d.InterventionHistory[j].Timestamp)
		})
	}

	if other.UpdatedAt.After(d.UpdatedAt) {
		d.UpdatedAt = other.UpdatedAt
	}
}

// newerCalibration reports whether a carries more evidence than b. The
// prediction log is capped, so equal lengths fall back to the latest entry.
func newerCalibration(a, b *model.ConfidenceCalibration) bool {
	if len(a.Predictions) != len(b.Predictions) {
		return len(a.Predictions) > len(b.Predictions)
	}
	if len(a.Predictions) == 0 {
		return false
	}
	return a.Predictions[len(a.Predictions)-1].Timestamp.After(b.Predictions[len(b.Predictions)-1].Timestamp)
}

func cloneThreshold(t *model.CapabilityThreshold) *model.CapabilityThreshold {
	c := *t
	if t.LastSuccessTime != nil {
		ts := *t.LastSuccessTime
		c.LastSuccessTime = &ts
	}
	return &c
}

func cloneCalibration(c *model.ConfidenceCalibration) *model.ConfidenceCalibration {
	out := *c
	out.Predictions = append([]model.Prediction(nil), c.Predictions...)
	return &out
}

func clonePatternDef(p model.PatternDefinition) model.PatternDefinition {
	p.Keywords = append([]string(nil), p.Keywords...)
	p.Regexes = append([]string(nil), p.Regexes...)
	p.Responses = append([]string(nil), p.Responses...)
	p.Entities = append([]string(nil), p.Entities...)
	p.Signals = append([]model.SecondarySignal(nil), p.Signals...)
	return p
}
