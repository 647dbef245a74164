package model

// SignalKind names a category-specific secondary classification signal.
type SignalKind string

const (
	// SignalResponseScale counts distinct response-vocabulary phrases in the text.
	SignalResponseScale SignalKind = "response_scale"
	// SignalEntities counts recognised entity names (e.g. brands) in the text.
	SignalEntities SignalKind = "entities"
	// SignalQuestionMarks counts question marks, a proxy for several questions on one page.
	SignalQuestionMarks SignalKind = "question_marks"
)

// SecondarySignal adds Bonus to a type's score once at least Min hits are found.
type SecondarySignal struct {
	Kind  SignalKind `json:"kind" yaml:"kind"`
	Min   int        `json:"min" yaml:"min"`
	Bonus float64    `json:"bonus" yaml:"bonus"`
}

// PatternDefinition is the keyword/regex/response vocabulary for one question type.
type PatternDefinition struct {
	Type      QuestionType      `json:"type" yaml:"type"`
	Category  Category          `json:"category" yaml:"category"`
	Keywords  []string          `json:"keywords" yaml:"keywords"`
	Regexes   []string          `json:"regexes,omitempty" yaml:"regexes,omitempty"`
	Responses []string          `json:"responses,omitempty" yaml:"responses,omitempty"`
	Entities  []string          `json:"entities,omitempty" yaml:"entities,omitempty"`
	Signals   []SecondarySignal `json:"signals,omitempty" yaml:"signals,omitempty"`
}

// Extend appends keywords, regexes, responses and entities from other that
// are not already present.
func (d *PatternDefinition) Extend(other PatternDefinition) {
	d.Keywords = appendMissing(d.Keywords, other.Keywords)
	d.Regexes = appendMissing(d.Regexes, other.Regexes)
	d.Responses = appendMissing(d.Responses, other.Responses)
	d.Entities = appendMissing(d.Entities, other.Entities)
	if len(d.Signals) == 0 {
		d.Signals = other.Signals
	}
	if d.Category == "" {
		d.Category = other.Category
	}
}

func appendMissing(dst, src []string) []string {
	seen := make(map[string]bool, len(dst))
	for _, s := range dst {
		seen[s] = true
	}
	for _, s := range src {
		if !seen[s] {
			dst = append(dst, s)
			seen[s] = true
		}
	}
	return dst
}
