package recommend

import (
	"sort"
	"strings"

	"github.com/daochai/teasommelier/internal/domain"
)

// Apply evaluates the filter spec against the catalog. The result is always
// non-nil, stably ordered with available teas first, and shares the catalog's
// read-only records. Each predicate narrows the surviving set; a dimension
// with an empty spec field is skipped entirely.
func Apply(spec FilterSpec, cat CatalogReader) []*domain.Tea {
	teas := cat.Teas()
	out := make([]*domain.Tea, len(teas))
	copy(out, teas)

	// Available teas first, independent of any other filter. The sort is
	// stable so catalog order survives within each availability group.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Available() && !out[j].Available()
	})

	if len(spec.Categories) > 0 {
		out = keep(out, func(t *domain.Tea) bool {
			return matchesAnyCategory(spec.Categories, t.Categories())
		})
	}

	if spec.PriceMax != nil {
		out = keep(out, func(t *domain.Tea) bool {
			price, ok := t.Price()
			return ok && price <= *spec.PriceMax
		})
	}
	if spec.PriceMin != nil {
		out = keep(out, func(t *domain.Tea) bool {
			price, ok := t.Price()
			return ok && price >= *spec.PriceMin
		})
	}

	// Every requested descriptor must be satisfied, each via any of four
	// sources: curated tags, model tags, the description, or any comment.
	for _, desc := range spec.Descriptors {
		desc := desc
		out = keep(out, func(t *domain.Tea) bool {
			return matchesDescriptor(desc, t)
		})
	}

	if spec.Batch != "" {
		out = keep(out, func(t *domain.Tea) bool {
			return featureContains(t, domain.FeatureKeyBatch, spec.Batch)
		})
	}
	if spec.Province != "" {
		out = keep(out, func(t *domain.Tea) bool {
			return featureContains(t, domain.FeatureKeyProvince, spec.Province)
		})
	}

	return out
}

// keep filters in place, preserving order.
func keep(teas []*domain.Tea, pred func(*domain.Tea) bool) []*domain.Tea {
	kept := teas[:0]
	for _, t := range teas {
		if pred(t) {
			kept = append(kept, t)
		}
	}
	return kept
}

func matchesAnyCategory(wanted, have []string) bool {
	for _, w := range wanted {
		for _, h := range have {
			if strings.EqualFold(w, h) {
				return true
			}
		}
	}
	return false
}

func matchesDescriptor(desc string, t *domain.Tea) bool {
	lowered := strings.ToLower(desc)

	for _, d := range t.Descriptors() {
		if strings.ToLower(d) == lowered {
			return true
		}
	}
	for _, d := range t.ModelDescriptors() {
		if strings.ToLower(d) == lowered {
			return true
		}
	}
	if strings.Contains(strings.ToLower(t.Description()), lowered) {
		return true
	}
	for _, c := range t.Comments() {
		if strings.Contains(strings.ToLower(c), lowered) {
			return true
		}
	}
	return false
}

func featureContains(t *domain.Tea, key, wanted string) bool {
	v, ok := t.Feature(key)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(v), strings.ToLower(wanted))
}
