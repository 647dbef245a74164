package capability

import (
	"fmt"
	"log/slog"

	"github.com/tinkerloft/formpilot/internal/model"
)

// Registry maps question types to ordered candidate capabilities. Iteration
// always follows mapping order, never map order.
type Registry struct {
	caps     map[string]Capability
	order    []string
	byType   map[model.QuestionType][]string
	fallback string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		caps:   make(map[string]Capability),
		byType: make(map[model.QuestionType][]string),
	}
}

// Register adds or replaces a capability by name.
func (r *Registry) Register(c Capability) {
	if _, ok := r.caps[c.Name()]; !ok {
		r.order = append(r.order, c.Name())
	}
	r.caps[c.Name()] = c
}

// Map appends capabilities to the candidate list for a question type.
func (r *Registry) Map(qt model.QuestionType, names ...string) error {
	for _, n := range names {
		if _, ok := r.caps[n]; !ok {
			return fmt.Errorf("mapping %s: capability %q is not registered", qt, n)
		}
		r.byType[qt] = append(r.byType[qt], n)
	}
	return nil
}

// SetFallback names the capability tried after the mapped candidates.
func (r *Registry) SetFallback(name string) error {
	if _, ok := r.caps[name]; !ok {
		return fmt.Errorf("fallback capability %q is not registered", name)
	}
	r.fallback = name
	return nil
}

// Get returns a capability by name.
func (r *Registry) Get(name string) (Capability, bool) {
	c, ok := r.caps[name]
	return c, ok
}

// Names returns registered names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Candidates returns the mapped capabilities for qt followed by the
// fallback.
func (r *Registry) Candidates(qt model.QuestionType) []Capability {
	var out []Capability
	seen := make(map[string]bool)
	for _, n := range r.byType[qt] {
		if !seen[n] {
			seen[n] = true
			out = append(out, r.caps[n])
		}
	}
	if r.fallback != "" && !seen[r.fallback] {
		out = append(out, r.caps[r.fallback])
	}
	return out
}

// Select returns the candidate with the highest CanHandle. Ties go to the
// earlier candidate. With no candidates ok is false.
func (r *Registry) Select(q *model.Question) (Capability, float64, bool) {
	return r.selectExcluding(q, "")
}

func (r *Registry) selectExcluding(q *model.Question, exclude string) (Capability, float64, bool) {
	var (
		best     Capability
		bestConf = -1.0
	)
	for _, c := range r.Candidates(q.Type()) {
		if c.Name() == exclude {
			continue
		}
		if conf := c.CanHandle(q); conf > bestConf {
			best, bestConf = c, conf
		}
	}
	if best == nil {
		return nil, 0, false
	}
	return best, bestConf, true
}

// Deps are the collaborators the built-in capabilities need.
type Deps struct {
	Profile    Profile
	Executor   Executor
	Booster    Booster
	Recaller   Recaller
	Classifier Classifier
	Logger     *slog.Logger
}

// NewDefaultRegistry registers the eight built-in capabilities and the
// standard type mapping, with generic as the fallback.
func NewDefaultRegistry(d Deps) *Registry {
	if d.Executor == nil {
		d.Executor = DryRunExecutor{Logger: d.Logger}
	}
	r := NewRegistry()
	r.Register(NewDemographics(d.Profile, d.Executor, d.Booster))
	r.Register(NewRatingMatrix(d.Profile, d.Executor, d.Booster))
	r.Register(NewMultiSelect(d.Profile, d.Executor, d.Booster))
	r.Register(NewBrandFamiliarity(d.Profile, d.Executor, d.Booster))
	r.Register(NewResearchRequired(d.Profile, d.Executor, d.Booster))
	r.Register(NewRecencyActivities(d.Profile, d.Executor, d.Booster))
	r.Register(NewGeneric(d.Recaller, d.Executor, d.Booster))
	if d.Classifier != nil {
		r.Register(NewMultiQuestion(d.Classifier, r, d.Booster))
	}

	mustMap := func(qt model.QuestionType, names ...string) {
		if err := r.Map(qt, names...); err != nil {
			panic(err)
		}
	}
	for _, t := range demographicTypes {
		mustMap(t, NameDemographics)
	}
	mustMap(model.TypeRatingMatrix, NameRatingMatrix)
	mustMap(model.TypeTrustRating, NameRatingMatrix)
	mustMap(model.TypeMultiSelect, NameMultiSelect)
	mustMap(model.TypeRecencyActivities, NameRecencyActivities, NameMultiSelect)
	mustMap(model.TypeBrandFamiliarity, NameBrandFamiliarity, NameMultiSelect)
	mustMap(model.TypeResearchRequired, NameResearchRequired)
	if d.Classifier != nil {
		mustMap(model.TypeMultiQuestion, NameMultiQuestion)
	}
	if err := r.SetFallback(NameGeneric); err != nil {
		panic(err)
	}
	return r
}
