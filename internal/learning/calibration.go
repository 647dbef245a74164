package learning

import (
	"math"

	"github.com/tinkerloft/formpilot/internal/knowledge"
	"github.com/tinkerloft/formpilot/internal/model"
)

// Calibration tuning.
const (
	MaxPredictions          = 50
	MinCalibrationSamples   = 3
	HighConfidencePredicted = 0.6

	initialRecommended = 0.5
	recommendedStep    = 0.1
	recommendedFloor   = 0.3
	recommendedCeiling = 0.8
	accurateRate       = 0.9
	inaccurateRate     = 0.7
)

// Calibrate appends a predicted-vs-actual pair to the rolling log for
// (capability, type) and, once enough samples exist, nudges the recommended
// threshold: down when confident predictions were reliably right, up when
// they were often wrong.
func (s *Store) Calibrate(capability string, qt model.QuestionType, predicted float64, actual bool) *model.ConfidenceCalibration {
	doc := s.store.Document()
	key := knowledge.CalibrationKey(capability, qt)

	c, ok := doc.ConfidenceCalibration[key]
	if !ok {
		c = &model.ConfidenceCalibration{
			Capability:           capability,
			QuestionType:         qt,
			RecommendedThreshold: initialRecommended,
		}
		doc.ConfidenceCalibration[key] = c
	}

	c.Predictions = append(c.Predictions, model.Prediction{
		PredictedConfidence: predicted,
		ActualSuccess:       actual,
		Timestamp:           s.now().UTC(),
	})
	if n := len(c.Predictions); n > MaxPredictions {
		c.Predictions = append([]model.Prediction(nil), c.Predictions[n-MaxPredictions:]...)
	}

	s.recalibrate(c)
	s.store.MarkDirty()
	s.store.FlushBestEffort()
	return c
}

func (s *Store) recalibrate(c *model.ConfidenceCalibration) {
	if len(c.Predictions) < MinCalibrationSamples {
		return
	}
	var confident, correct int
	for _, p := range c.Predictions {
		if p.PredictedConfidence < HighConfidencePredicted {
			continue
		}
		confident++
		if p.ActualSuccess {
			correct++
		}
	}
	if confident == 0 {
		return
	}

	c.AccuracyRate = float64(correct) / float64(confident)
	switch {
	case c.AccuracyRate >= accurateRate:
		c.RecommendedThreshold = math.Max(recommendedFloor, c.RecommendedThreshold-recommendedStep)
	case c.AccuracyRate < inaccurateRate:
		c.RecommendedThreshold = math.Min(recommendedCeiling, c.RecommendedThreshold+recommendedStep)
	}
	s.logger.Debug("confidence calibrated",
		"capability", c.Capability,
		"question_type", c.QuestionType,
		"accuracy", c.AccuracyRate,
		"recommended_threshold", c.RecommendedThreshold,
	)
}

// Calibration returns the calibration record for (capability, type).
func (s *Store) Calibration(capability string, qt model.QuestionType) (*model.ConfidenceCalibration, bool) {
	c, ok := s.store.Document().ConfidenceCalibration[knowledge.CalibrationKey(capability, qt)]
	return c, ok
}
