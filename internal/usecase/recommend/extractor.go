package recommend

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/daochai/teasommelier/internal/domain"
)

// FilterSpec is the structured, per-query constraint set derived from free
// text. An empty/nil field means "do not filter on this dimension".
type FilterSpec struct {
	Categories  []string
	PriceMin    *float64
	PriceMax    *float64
	Descriptors []string
	Batch       string
	Province    string
}

// IsEmpty reports whether no dimension is constrained.
func (s FilterSpec) IsEmpty() bool {
	return len(s.Categories) == 0 && s.PriceMin == nil && s.PriceMax == nil &&
		len(s.Descriptors) == 0 && s.Batch == "" && s.Province == ""
}

var (
	priceMaxRe = regexp.MustCompile(`до (\d+)`)
	priceMinRe = regexp.MustCompile(`от (\d+)`)
)

// Extract derives a FilterSpec from a free-text query by matching it against
// the catalog's vocabularies. Pure function of the query and the catalog;
// deliberately heuristic substring matching, not entity extraction.
func Extract(query string, cat CatalogReader) FilterSpec {
	var spec FilterSpec
	lowered := strings.ToLower(query)

	for _, category := range cat.Categories() {
		if strings.Contains(lowered, strings.ToLower(category)) {
			spec.Categories = append(spec.Categories, category)
		}
	}

	if m := priceMaxRe.FindStringSubmatch(lowered); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			spec.PriceMax = &v
		}
	}
	if m := priceMinRe.FindStringSubmatch(lowered); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			spec.PriceMin = &v
		}
	}

	// The two descriptor vocabularies are matched independently; a tag
	// present in both accumulates twice, matching the source behavior.
	for _, desc := range cat.Descriptors() {
		if strings.Contains(lowered, strings.ToLower(desc)) {
			spec.Descriptors = append(spec.Descriptors, desc)
		}
	}
	for _, desc := range cat.ModelDescriptors() {
		if strings.Contains(lowered, strings.ToLower(desc)) {
			spec.Descriptors = append(spec.Descriptors, desc)
		}
	}

	// Last match in catalog order wins when several teas share matchable
	// batch or province text.
	for _, tea := range cat.Teas() {
		if v, ok := tea.Feature(domain.FeatureKeyBatch); ok && v != "" {
			if strings.Contains(lowered, strings.ToLower(v)) {
				spec.Batch = v
			}
		}
		if v, ok := tea.Feature(domain.FeatureKeyProvince); ok && v != "" {
			if strings.Contains(lowered, strings.ToLower(v)) {
				spec.Province = v
			}
		}
	}

	return spec
}
