package capability

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/tinkerloft/formpilot/internal/model"
)

var demographicTypes = []model.QuestionType{
	model.TypeAge, model.TypeGender, model.TypeIncome, model.TypePostcode,
	model.TypeOccupation, model.TypeLocation, model.TypeEducation,
	model.TypeEmployment, model.TypeMaritalStatus, model.TypeHousehold,
}

// DemographicTypes lists the question types the demographics capability
// answers.
func DemographicTypes() []model.QuestionType {
	return append([]model.QuestionType(nil), demographicTypes...)
}

// Phrases that point at a product or opinion question sharing the page.
var nonDemographicIndicators = []string{
	"purchased", "bought", "buy", "chocolate", "product", "brand",
	"last 12 months", "in the past", "consumption", "shopping",
	"which of the following brands", "how often do you",
	"rate your experience", "satisfaction", "likely to recommend",
	"familiar with", "heard of", "currently use",
}

// Phrases that unambiguously ask for a demographic answer.
var strongDemographicIndicators = []string{
	"please enter your age", "what is your age", "enter your age", "how old are you",
	"which gender", "what gender", "your postcode", "your date of birth",
}

// Mixed-page tuning.
const (
	mixedIndicatorMin   = 3
	mixedKeepFloor      = 0.8
	mixedScale          = 0.6
	mixedCap            = 0.7
	strongIndicatorStep = 0.1
)

// Demographics answers personal questions from the profile.
type Demographics struct {
	base
	profile Profile
}

// NewDemographics returns the demographics capability.
func NewDemographics(profile Profile, exec Executor, boost Booster) *Demographics {
	return &Demographics{base: base{name: NameDemographics, exec: exec, boost: boost}, profile: profile}
}

// CanHandle implements Capability.
func (d *Demographics) CanHandle(q *model.Question) float64 {
	conf := typeConfidence(q, demographicTypes...)
	if conf <= 0 {
		return 0
	}
	if _, ok := d.profile.Demographic(d.questionType(q), q.Text); !ok {
		return 0
	}

	text := lower(q.Text)
	for _, s := range strongDemographicIndicators {
		if strings.Contains(text, s) {
			conf += strongIndicatorStep
			break
		}
	}
	conf = clamp01(conf)

	if countContains(text, nonDemographicIndicators) >= mixedIndicatorMin {
		if conf < mixedKeepFloor {
			return 0
		}
		conf = math.Min(conf*mixedScale, mixedCap)
	}
	return d.finish(q, conf)
}

// questionType is the primary type if demographic, else the best
// demographic alternative.
func (d *Demographics) questionType(q *model.Question) model.QuestionType {
	for _, t := range demographicTypes {
		if q.Type() == t {
			return t
		}
	}
	var (
		best     model.QuestionType
		bestConf float64
	)
	for _, alt := range q.Classification.Alternatives {
		for _, t := range demographicTypes {
			if alt.Type == t && alt.Confidence > bestConf {
				best, bestConf = t, alt.Confidence
			}
		}
	}
	return best
}

// Handle implements Capability.
func (d *Demographics) Handle(ctx context.Context, q *model.Question) (Outcome, error) {
	qt := d.questionType(q)
	if qt == "" {
		return Outcome{}, ErrUnsupported
	}
	answer, ok := d.profile.Demographic(qt, q.Text)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: profile has no %s", ErrNoAnswer, qt)
	}

	if len(q.Options) == 0 {
		return d.execute(ctx, q, ActionFill, answer)
	}

	var choice string
	if qt == model.TypeAge && d.profile.Age > 0 {
		opt, err := AgeOption(d.profile.Age, q.Options)
		if err != nil {
			return Outcome{}, err
		}
		choice = opt
	} else {
		opt, ok := matchOption(answer, q.Options)
		if !ok {
			return Outcome{}, fmt.Errorf("%w: %q is not among the options", ErrNoAnswer, answer)
		}
		choice = opt
	}
	return d.execute(ctx, q, ActionSelect, choice)
}

func countContains(text string, phrases []string) int {
	n := 0
	for _, p := range phrases {
		if strings.Contains(text, p) {
			n++
		}
	}
	return n
}
