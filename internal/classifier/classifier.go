// Package classifier scores question text against per-type pattern sets.
package classifier

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/tinkerloft/formpilot/internal/model"
)

// Default scoring constants.
const (
	DefaultAlternativeFloor = 0.3
	DefaultMinConfidence    = 0.3
	DefaultWholeWordBonus   = 0.2
)

// Options tunes scoring. Zero values fall back to the defaults.
type Options struct {
	// AlternativeFloor is the score a non-primary type must exceed to be reported.
	AlternativeFloor float64
	// MinConfidence is the score the best type needs to avoid a classification miss.
	MinConfidence float64
	// WholeWordBonus is added once when any keyword matches as a whole word.
	WholeWordBonus float64
	// Priority orders types for tie-breaking. Types not listed sort after,
	// alphabetically.
	Priority []model.QuestionType
}

func (o Options) withDefaults() Options {
	if o.AlternativeFloor <= 0 {
		o.AlternativeFloor = DefaultAlternativeFloor
	}
	if o.MinConfidence <= 0 {
		o.MinConfidence = DefaultMinConfidence
	}
	if o.WholeWordBonus <= 0 {
		o.WholeWordBonus = DefaultWholeWordBonus
	}
	if len(o.Priority) == 0 {
		o.Priority = DefaultPriority
	}
	return o
}

type compiled struct {
	def     model.PatternDefinition
	regexes []*regexp.Regexp
}

// Classifier is safe for concurrent use once constructed; Extend is not.
type Classifier struct {
	opts  Options
	order []*compiled
	byTyp map[model.QuestionType]*compiled
}

// New compiles defs into a Classifier.
func New(defs map[model.QuestionType]model.PatternDefinition, opts Options) (*Classifier, error) {
	c := &Classifier{
		opts:  opts.withDefaults(),
		byTyp: make(map[model.QuestionType]*compiled, len(defs)),
	}
	for t, d := range defs {
		if d.Type == "" {
			d.Type = t
		}
		cd, err := compile(d)
		if err != nil {
			return nil, err
		}
		c.byTyp[d.Type] = cd
	}
	c.reorder()
	return c, nil
}

// NewDefault builds a Classifier from the built-in patterns.
func NewDefault() *Classifier {
	c, err := New(DefaultPatterns(), Options{})
	if err != nil {
		panic(fmt.Sprintf("built-in patterns do not compile: %v", err))
	}
	return c
}

func compile(d model.PatternDefinition) (*compiled, error) {
	cd := &compiled{def: d}
	for _, expr := range d.Regexes {
		re, err := regexp.Compile("(?i)" + expr)
		if err != nil {
			return nil, fmt.Errorf("compiling pattern %q for %s: %w", expr, d.Type, err)
		}
		cd.regexes = append(cd.regexes, re)
	}
	keywords := make([]string, len(d.Keywords))
	for i, kw := range d.Keywords {
		keywords[i] = strings.ToLower(kw)
	}
	cd.def.Keywords = keywords
	return cd, nil
}

// reorder rebuilds the deterministic evaluation order: priority first,
// remaining types alphabetically.
func (c *Classifier) reorder() {
	rank := make(map[model.QuestionType]int, len(c.opts.Priority))
	for i, t := range c.opts.Priority {
		rank[t] = i
	}
	c.order = c.order[:0]
	for _, cd := range c.byTyp {
		c.order = append(c.order, cd)
	}
	sort.SliceStable(c.order, func(i, j int) bool {
		ri, iok := rank[c.order[i].def.Type]
		rj, jok := rank[c.order[j].def.Type]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return c.order[i].def.Type < c.order[j].def.Type
		}
	})
}

// Types lists the known question types in evaluation order.
func (c *Classifier) Types() []model.QuestionType {
	out := make([]model.QuestionType, len(c.order))
	for i, cd := range c.order {
		out[i] = cd.def.Type
	}
	return out
}

// Extend merges def into the existing definition for its type, or adds it.
func (c *Classifier) Extend(def model.PatternDefinition) error {
	if existing, ok := c.byTyp[def.Type]; ok {
		merged := existing.def
		merged.Extend(def)
		def = merged
	}
	cd, err := compile(def)
	if err != nil {
		return err
	}
	c.byTyp[def.Type] = cd
	c.reorder()
	return nil
}

// Definition returns the pattern definition for t.
func (c *Classifier) Definition(t model.QuestionType) (model.PatternDefinition, bool) {
	cd, ok := c.byTyp[t]
	if !ok {
		return model.PatternDefinition{}, false
	}
	return cd.def, true
}

// CategoryOf returns the category a type belongs to.
func (c *Classifier) CategoryOf(t model.QuestionType) model.Category {
	if cd, ok := c.byTyp[t]; ok && cd.def.Category != "" {
		return cd.def.Category
	}
	return model.CategoryUnknown
}

// Score returns the raw score of text against a single type.
func (c *Classifier) Score(text string, t model.QuestionType) float64 {
	cd, ok := c.byTyp[t]
	if !ok {
		return 0
	}
	score, _ := c.score(normalize(text), text, cd)
	return score
}

// Classify scores text against every known type. An empty or unmatched text
// yields the unknown type with zero confidence; this is not an error.
func (c *Classifier) Classify(text string) model.Classification {
	unknown := model.Classification{Type: model.TypeUnknown, Category: model.CategoryUnknown}
	norm := normalize(text)
	if norm == "" {
		return unknown
	}

	type scored struct {
		typ   model.QuestionType
		score float64
	}
	var (
		results []scored
		matches []string
	)
	for _, cd := range c.order {
		s, hits := c.score(norm, text, cd)
		if s <= 0 {
			continue
		}
		results = append(results, scored{typ: cd.def.Type, score: s})
		for _, h := range hits {
			matches = append(matches, fmt.Sprintf("%s:%s", cd.def.Type, h))
		}
	}
	if len(results) == 0 {
		return unknown
	}

	// results is in priority order, so a stable sort on score keeps the
	// priority tie-break.
	sort.SliceStable(results, func(i, j int) bool { return results[i].score > results[j].score })

	best := results[0]
	if best.score < c.opts.MinConfidence {
		unknown.Matches = matches
		return unknown
	}

	out := model.Classification{
		Type:       best.typ,
		Category:   c.CategoryOf(best.typ),
		Confidence: best.score,
		Matches:    matches,
	}
	for _, r := range results[1:] {
		if r.score > c.opts.AlternativeFloor {
			out.Alternatives = append(out.Alternatives, model.Alternative{Type: r.typ, Confidence: r.score})
		}
	}
	return out
}

// score computes matched/total plus the whole-word bonus and secondary
// signals, clamped to [0,1]. Signals count even without a keyword hit so a
// page of several questions is recognised by its question marks alone.
func (c *Classifier) score(norm, raw string, cd *compiled) (float64, []string) {
	total := len(cd.def.Keywords) + len(cd.regexes)

	var (
		matched   int
		wholeWord bool
		hits      []string
	)
	for _, kw := range cd.def.Keywords {
		if kw == "" || !strings.Contains(norm, kw) {
			continue
		}
		matched++
		hits = append(hits, kw)
		if !wholeWord && containsWord(norm, kw) {
			wholeWord = true
		}
	}
	for _, re := range cd.regexes {
		if re.MatchString(norm) {
			matched++
			hits = append(hits, re.String())
		}
	}
	var score float64
	if matched > 0 {
		score = float64(matched) / float64(total)
	}
	if wholeWord {
		score += c.opts.WholeWordBonus
	}
	for _, sig := range cd.def.Signals {
		if signalHits(sig.Kind, norm, raw, cd.def) >= sig.Min {
			score += sig.Bonus
			hits = append(hits, string(sig.Kind))
		}
	}
	return clamp01(score), hits
}

func signalHits(kind model.SignalKind, norm, raw string, def model.PatternDefinition) int {
	switch kind {
	case model.SignalResponseScale:
		return countDistinct(norm, def.Responses)
	case model.SignalEntities:
		return countDistinct(norm, def.Entities)
	case model.SignalQuestionMarks:
		return strings.Count(raw, "?")
	default:
		return 0
	}
}

func countDistinct(norm string, phrases []string) int {
	seen := make(map[string]bool, len(phrases))
	n := 0
	for _, p := range phrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		if strings.Contains(norm, p) {
			n++
		}
	}
	return n
}

// normalize lower-cases text and collapses runs of whitespace.
func normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// containsWord reports whether word occurs in text bounded by non-alphanumerics.
func containsWord(text, word string) bool {
	for start := 0; start <= len(text)-len(word); {
		idx := strings.Index(text[start:], word)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(word)
		if boundary(text, idx-1) && boundary(text, end) {
			return true
		}
		start = idx + 1
	}
	return false
}

func boundary(text string, i int) bool {
	if i < 0 || i >= len(text) {
		return true
	}
	r := rune(text[i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
