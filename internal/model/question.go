// Package model contains the shared data types for formpilot.
package model

// QuestionType is the fine-grained type the classifier assigns to a question.
type QuestionType string

// Question types. Demographic sub-types share the demographics category.
const (
	TypeUnknown QuestionType = "unknown"

	TypeAge           QuestionType = "age"
	TypeGender        QuestionType = "gender"
	TypeIncome        QuestionType = "income"
	TypePostcode      QuestionType = "postcode"
	TypeOccupation    QuestionType = "occupation"
	TypeLocation      QuestionType = "location"
	TypeEducation     QuestionType = "education"
	TypeEmployment    QuestionType = "employment"
	TypeMaritalStatus QuestionType = "marital_status"
	TypeHousehold     QuestionType = "household"

	TypeRatingMatrix      QuestionType = "rating_matrix"
	TypeTrustRating       QuestionType = "trust_rating"
	TypeMultiSelect       QuestionType = "multi_select"
	TypeBrandFamiliarity  QuestionType = "brand_familiarity"
	TypeResearchRequired  QuestionType = "research_required"
	TypeRecencyActivities QuestionType = "recency_activities"
	TypeMultiQuestion     QuestionType = "multi_question"
)

// Category groups question types that one capability family answers.
type Category string

const (
	CategoryUnknown           Category = "unknown"
	CategoryDemographics      Category = "demographics"
	CategoryRatingMatrix      Category = "rating_matrix"
	CategoryMultiSelect       Category = "multi_select"
	CategoryBrandFamiliarity  Category = "brand_familiarity"
	CategoryResearchRequired  Category = "research_required"
	CategoryRecencyActivities Category = "recency_activities"
	CategoryMultiQuestion     Category = "multi_question"
)

// Alternative is a secondary classification candidate.
type Alternative struct {
	Type       QuestionType `json:"type" yaml:"type"`
	Confidence float64      `json:"confidence" yaml:"confidence"`
}

// Classification is the classifier's verdict for one question text.
type Classification struct {
	Type         QuestionType  `json:"primary_type" yaml:"primary_type"`
	Category     Category      `json:"category" yaml:"category"`
	Confidence   float64       `json:"confidence" yaml:"confidence"`
	Alternatives []Alternative `json:"alternatives,omitempty" yaml:"alternatives,omitempty"`
	Matches      []string      `json:"matches,omitempty" yaml:"matches,omitempty"`
}

// IsUnknown reports whether no category cleared classification.
func (c Classification) IsUnknown() bool {
	return c.Type == TypeUnknown || c.Type == ""
}

// DecisionContext carries optional situational detail about a question.
type DecisionContext struct {
	// Element is the UI element kind the question is rendered with
	// (e.g. "text_input", "radio", "dropdown", "checkbox").
	Element    string            `json:"element,omitempty" yaml:"element,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// ElementOrUnknown returns the element kind, defaulting to "unknown".
func (c *DecisionContext) ElementOrUnknown() string {
	if c == nil || c.Element == "" {
		return "unknown"
	}
	return c.Element
}

// Hint is an optional signal from an upstream classification service.
// Confidence is on a 0-100 scale.
type Hint struct {
	QuestionText string       `json:"question_text,omitempty" yaml:"question_text,omitempty"`
	QuestionType QuestionType `json:"question_type,omitempty" yaml:"question_type,omitempty"`
	Confidence   float64      `json:"confidence" yaml:"confidence"`
}

// Question is created per incoming question and discarded once handled.
type Question struct {
	ID             string          `json:"id,omitempty"`
	Text           string          `json:"text"`
	Options        []string        `json:"options,omitempty"`
	Classification Classification  `json:"classification"`
	Context        DecisionContext `json:"context"`
	Hint           *Hint           `json:"hint,omitempty"`
}

// Type is shorthand for the detected question type.
func (q *Question) Type() QuestionType {
	return q.Classification.Type
}

// Category is shorthand for the detected category.
func (q *Question) Category() Category {
	return q.Classification.Category
}
