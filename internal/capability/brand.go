package capability

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tinkerloft/formpilot/internal/model"
)

const (
	brandEntityMin   = 3
	brandEntityBonus = 0.1
)

// BrandFamiliarity answers brand awareness questions from the profile's
// brand list.
type BrandFamiliarity struct {
	base
	profile Profile
}

// NewBrandFamiliarity returns the brand-familiarity capability.
func NewBrandFamiliarity(profile Profile, exec Executor, boost Booster) *BrandFamiliarity {
	return &BrandFamiliarity{base: base{name: NameBrandFamiliarity, exec: exec, boost: boost}, profile: profile}
}

// CanHandle implements Capability.
func (b *BrandFamiliarity) CanHandle(q *model.Question) float64 {
	conf := typeConfidence(q, model.TypeBrandFamiliarity)
	if conf <= 0 {
		return 0
	}
	mentioned := b.mentioned(q)
	if len(mentioned) == 0 {
		return 0
	}
	if len(mentioned) >= brandEntityMin {
		conf += brandEntityBonus
	}
	return b.finish(q, clamp01(conf))
}

// Handle implements Capability. A single brand with a familiarity scale is
// answered by picking the scale option; several brands produce one
// "brand: answer" value each.
func (b *BrandFamiliarity) Handle(ctx context.Context, q *model.Question) (Outcome, error) {
	mentioned := b.mentioned(q)
	if len(mentioned) == 0 {
		return Outcome{}, ErrNoAnswer
	}

	if len(mentioned) == 1 && len(q.Options) > 0 {
		answer := b.profile.Brands[mentioned[0]]
		if opt, ok := matchOption(answer, q.Options); ok {
			return b.execute(ctx, q, ActionSelect, opt)
		}
		if opt, ok := matchOption(mentioned[0], q.Options); ok {
			return b.execute(ctx, q, ActionSelectMany, opt)
		}
		return Outcome{}, fmt.Errorf("%w: %q not among options", ErrNoAnswer, answer)
	}

	values := make([]string, 0, len(mentioned))
	for _, brand := range mentioned {
		values = append(values, brand+": "+b.profile.Brands[brand])
	}
	return b.execute(ctx, q, ActionRate, values...)
}

// mentioned lists profile brands named in the question or its options,
// sorted by name.
func (b *BrandFamiliarity) mentioned(q *model.Question) []string {
	haystack := lower(q.Text + "\n" + strings.Join(q.Options, "\n"))
	var out []string
	for brand := range b.profile.Brands {
		if brand != "" && strings.Contains(haystack, lower(brand)) {
			out = append(out, brand)
		}
	}
	sort.Strings(out)
	return out
}
