package classifier

import "github.com/tinkerloft/formpilot/internal/model"

// DefaultPriority is the tie-break order used when two types score equally.
// Specific, hard-to-automate types come first so a tie never hides them.
var DefaultPriority = []model.QuestionType{
	model.TypeResearchRequired,
	model.TypeMultiQuestion,
	model.TypeBrandFamiliarity,
	model.TypeTrustRating,
	model.TypeRatingMatrix,
	model.TypeRecencyActivities,
	model.TypeMultiSelect,
	model.TypeAge,
	model.TypeGender,
	model.TypePostcode,
	model.TypeIncome,
	model.TypeOccupation,
	model.TypeEmployment,
	model.TypeEducation,
	model.TypeMaritalStatus,
	model.TypeHousehold,
	model.TypeLocation,
}

// DefaultPatterns returns the built-in pattern definitions keyed by type.
// Callers get a fresh copy they may mutate.
func DefaultPatterns() map[model.QuestionType]model.PatternDefinition {
	defs := []model.PatternDefinition{
		{
			Type:     model.TypeAge,
			Category: model.CategoryDemographics,
			Keywords: []string{"how old", "your age", "age"},
			Regexes:  []string{`\bhow old\b|\b(date|year) of birth\b|\bborn in\b`},
		},
		{
			Type:     model.TypeGender,
			Category: model.CategoryDemographics,
			Keywords: []string{"gender", "sex", "male", "female", "identify as"},
		},
		{
			Type:     model.TypePostcode,
			Category: model.CategoryDemographics,
			Keywords: []string{"postcode", "post code", "postal code", "zip code", "zip"},
		},
		{
			Type:     model.TypeIncome,
			Category: model.CategoryDemographics,
			Keywords: []string{"income", "salary", "earn", "household income", "before tax"},
		},
		{
			Type:     model.TypeOccupation,
			Category: model.CategoryDemographics,
			Keywords: []string{"occupation", "job title", "profession", "what do you do", "industry"},
		},
		{
			Type:     model.TypeEmployment,
			Category: model.CategoryDemographics,
			Keywords: []string{"employment status", "employment", "employed", "work full-time", "working"},
		},
		{
			Type:     model.TypeEducation,
			Category: model.CategoryDemographics,
			Keywords: []string{"education", "highest level", "qualification", "degree", "school"},
		},
		{
			Type:     model.TypeMaritalStatus,
			Category: model.CategoryDemographics,
			Keywords: []string{"marital", "married", "relationship status", "single"},
		},
		{
			Type:     model.TypeHousehold,
			Category: model.CategoryDemographics,
			Keywords: []string{"household", "people live", "children", "how many people", "kids"},
		},
		{
			Type:     model.TypeLocation,
			Category: model.CategoryDemographics,
			Keywords: []string{"which state", "where do you live", "region", "state or territory", "location", "suburb", "city"},
		},
		{
			Type:     model.TypeRatingMatrix,
			Category: model.CategoryRatingMatrix,
			Keywords: []string{"agree", "disagree", "rate", "rating", "statements", "scale"},
			Responses: []string{
				"strongly agree", "somewhat agree", "neither agree nor disagree",
				"somewhat disagree", "strongly disagree",
				"very satisfied", "somewhat satisfied", "dissatisfied",
				"excellent", "good", "fair", "poor",
			},
			Signals: []model.SecondarySignal{{Kind: model.SignalResponseScale, Min: 2, Bonus: 0.2}},
		},
		{
			Type:      model.TypeTrustRating,
			Category:  model.CategoryRatingMatrix,
			Keywords:  []string{"trust", "trustworthy", "how much do you trust", "reliable"},
			Responses: []string{"very trustworthy", "somewhat trustworthy", "not very trustworthy", "not at all trustworthy"},
			Signals:   []model.SecondarySignal{{Kind: model.SignalResponseScale, Min: 2, Bonus: 0.2}},
		},
		{
			Type:      model.TypeBrandFamiliarity,
			Category:  model.CategoryBrandFamiliarity,
			Keywords:  []string{"familiar", "brand", "heard of", "aware of", "currently use"},
			Responses: []string{"very familiar", "somewhat familiar", "not familiar", "never heard of"},
			Signals: []model.SecondarySignal{
				{Kind: model.SignalEntities, Min: 3, Bonus: 0.2},
				{Kind: model.SignalResponseScale, Min: 2, Bonus: 0.1},
			},
		},
		{
			Type:     model.TypeMultiSelect,
			Category: model.CategoryMultiSelect,
			Keywords: []string{"select all", "check all", "all that apply", "tick all", "multiple", "more than one"},
		},
		{
			Type:     model.TypeResearchRequired,
			Category: model.CategoryResearchRequired,
			Keywords: []string{"sponsor", "stadium", "venue", "what is the name of", "which company", "documentary"},
		},
		{
			Type:     model.TypeRecencyActivities,
			Category: model.CategoryRecencyActivities,
			Keywords: []string{"in the last 12 months", "in the past year", "in the last year", "have you done", "activities", "recently"},
		},
		{
			Type:     model.TypeMultiQuestion,
			Category: model.CategoryMultiQuestion,
			Keywords: []string{"question 1", "question 2", "following questions", "each question"},
			Signals:  []model.SecondarySignal{{Kind: model.SignalQuestionMarks, Min: 2, Bonus: 0.8}},
		},
	}

	out := make(map[model.QuestionType]model.PatternDefinition, len(defs))
	for _, d := range defs {
		out[d.Type] = d
	}
	return out
}
