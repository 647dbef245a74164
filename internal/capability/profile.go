package capability

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tinkerloft/formpilot/internal/model"
)

// Profile is the persona a session answers as.
type Profile struct {
	Age             int    `json:"age,omitempty" yaml:"age,omitempty"`
	DateOfBirth     string `json:"date_of_birth,omitempty" yaml:"date_of_birth,omitempty"`
	Gender          string `json:"gender,omitempty" yaml:"gender,omitempty"`
	Postcode        string `json:"postcode,omitempty" yaml:"postcode,omitempty"`
	Location        string `json:"location,omitempty" yaml:"location,omitempty"`
	Occupation      string `json:"occupation,omitempty" yaml:"occupation,omitempty"`
	Employment      string `json:"employment,omitempty" yaml:"employment,omitempty"`
	Education       string `json:"education,omitempty" yaml:"education,omitempty"`
	MaritalStatus   string `json:"marital_status,omitempty" yaml:"marital_status,omitempty"`
	Household       string `json:"household,omitempty" yaml:"household,omitempty"`
	PersonalIncome  string `json:"personal_income,omitempty" yaml:"personal_income,omitempty"`
	HouseholdIncome string `json:"household_income,omitempty" yaml:"household_income,omitempty"`

	// Activities done in the last twelve months.
	Activities []string `json:"activities,omitempty" yaml:"activities,omitempty"`
	// Brands maps a brand name to the familiarity answer for it.
	Brands map[string]string `json:"brands,omitempty" yaml:"brands,omitempty"`
	// Ratings maps a statement keyword to a rating answer.
	Ratings       map[string]string `json:"ratings,omitempty" yaml:"ratings,omitempty"`
	DefaultRating string            `json:"default_rating,omitempty" yaml:"default_rating,omitempty"`
	DefaultTrust  string            `json:"default_trust,omitempty" yaml:"default_trust,omitempty"`
	// Answers maps a question keyword to a researched answer.
	Answers map[string]string `json:"answers,omitempty" yaml:"answers,omitempty"`
}

// Demographic returns the profile answer for a demographic question type.
// Income questions that mention the household use the household figure.
func (p Profile) Demographic(qt model.QuestionType, text string) (string, bool) {
	var v string
	switch qt {
	case model.TypeAge:
		if p.Age > 0 {
			v = strconv.Itoa(p.Age)
		}
	case model.TypeGender:
		v = p.Gender
	case model.TypePostcode:
		v = p.Postcode
	case model.TypeLocation:
		v = p.Location
	case model.TypeOccupation:
		v = p.Occupation
	case model.TypeEmployment:
		v = p.Employment
	case model.TypeEducation:
		v = p.Education
	case model.TypeMaritalStatus:
		v = p.MaritalStatus
	case model.TypeHousehold:
		v = p.Household
	case model.TypeIncome:
		v = p.PersonalIncome
		if strings.Contains(strings.ToLower(text), "household") && p.HouseholdIncome != "" {
			v = p.HouseholdIncome
		}
	}
	return v, v != ""
}

// AgeRange returns the standard bracket label for an age.
func AgeRange(age int) string {
	switch {
	case age < 18:
		return "Under 18"
	case age <= 24:
		return "18-24"
	case age <= 34:
		return "25-34"
	case age <= 44:
		return "35-44"
	case age <= 54:
		return "45-54"
	case age <= 64:
		return "55-64"
	default:
		return "65+"
	}
}

var (
	rangePattern = regexp.MustCompile(`(?i)(\d+)\s*(?:-|–|—|to|thru|through)\s*(\d+)`)
	plusPattern  = regexp.MustCompile(`(\d+)\s*(?:\+|or (?:over|older|more)|and (?:over|older))`)
)

// AgeInRange reports whether an option label such as "45-54", "45 to 54" or
// "65+" covers age.
func AgeInRange(age int, label string) bool {
	if m := rangePattern.FindStringSubmatch(label); m != nil {
		lo, _ := strconv.Atoi(m[1])
		hi, _ := strconv.Atoi(m[2])
		return lo <= age && age <= hi
	}
	if m := plusPattern.FindStringSubmatch(strings.ToLower(label)); m != nil {
		lo, _ := strconv.Atoi(m[1])
		return age >= lo
	}
	return strings.TrimSpace(label) == strconv.Itoa(age)
}

// AgeOption picks the option covering age, or falls back to the bracket label.
func AgeOption(age int, options []string) (string, error) {
	if len(options) == 0 {
		return strconv.Itoa(age), nil
	}
	for _, o := range options {
		if AgeInRange(age, o) {
			return o, nil
		}
	}
	if o, ok := matchOption(AgeRange(age), options); ok {
		return o, nil
	}
	return "", fmt.Errorf("%w: no option covers age %d", ErrNoAnswer, age)
}

// matchOption finds the option equal to want, or failing that one that
// contains it or is contained by it, case-insensitively.
func matchOption(want string, options []string) (string, bool) {
	w := strings.ToLower(strings.TrimSpace(want))
	if w == "" {
		return "", false
	}
	for _, o := range options {
		if strings.ToLower(strings.TrimSpace(o)) == w {
			return o, true
		}
	}
	for _, o := range options {
		lo := strings.ToLower(strings.TrimSpace(o))
		if lo != "" && (strings.Contains(lo, w) || strings.Contains(w, lo)) {
			return o, true
		}
	}
	return "", false
}

// noneOption returns a "none of these" style option if one is offered.
func noneOption(options []string) (string, bool) {
	for _, o := range options {
		lo := strings.ToLower(o)
		if strings.Contains(lo, "none of") || lo == "none" || strings.Contains(lo, "not applicable") {
			return o, true
		}
	}
	return "", false
}

func lower(s string) string {
	return strings.ToLower(s)
}
