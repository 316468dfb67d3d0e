package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Semantically meaningful keys of the tea feature map. The source spreadsheet
// keeps the trailing colon as part of the key.
const (
	FeatureKeyBatch    = "Партия:"
	FeatureKeyProvince = "Провинция:"
)

// Tea is an immutable catalog entry (value object).
type Tea struct {
	id               string
	title            string
	description      string
	url              string
	rawPrice         string
	available        bool
	categories       []string
	descriptors      []string
	modelDescriptors []string
	comments         []string
	features         map[string]string
	combinedText     string
	embedding        []float32
}

// New validates and creates a Tea. The combined search text is derived once
// here and never rebuilt at query time.
func New(
	id, title, description, url, rawPrice string,
	available bool,
	categories, descriptors, modelDescriptors, comments []string,
	features map[string]string,
) (Tea, error) {
	if id == "" {
		return Tea{}, fmt.Errorf("tea ID is required")
	}
	if title == "" {
		return Tea{}, fmt.Errorf("tea title is required")
	}

	t := Tea{
		id:               id,
		title:            title,
		description:      description,
		url:              url,
		rawPrice:         rawPrice,
		available:        available,
		categories:       cloneStrings(categories),
		descriptors:      cloneStrings(descriptors),
		modelDescriptors: cloneStrings(modelDescriptors),
		comments:         cloneStrings(comments),
		features:         cloneStringMap(features),
	}
	t.combinedText = combineText(&t)
	return t, nil
}

// Reconstruct creates a Tea without validation (storage hydration).
func Reconstruct(
	id, title, description, url, rawPrice string,
	available bool,
	categories, descriptors, modelDescriptors, comments []string,
	features map[string]string,
	combinedText string,
	embedding []float32,
) Tea {
	t := Tea{
		id:               id,
		title:            title,
		description:      description,
		url:              url,
		rawPrice:         rawPrice,
		available:        available,
		categories:       categories,
		descriptors:      descriptors,
		modelDescriptors: modelDescriptors,
		comments:         comments,
		features:         features,
		combinedText:     combinedText,
		embedding:        embedding,
	}
	if t.combinedText == "" {
		t.combinedText = combineText(&t)
	}
	return t
}

// ID returns the stable catalog identifier.
func (t *Tea) ID() string { return t.id }

// Title returns the tea title.
func (t *Tea) Title() string { return t.title }

// Description returns the free-text description.
func (t *Tea) Description() string { return t.description }

// URL returns the shop page link, if any.
func (t *Tea) URL() string { return t.url }

// RawPrice returns the price exactly as found in the source data.
func (t *Tea) RawPrice() string { return t.rawPrice }

// Price parses the raw price. ok=false means the price is absent or
// non-numeric; such teas are excluded by price-bounded filters only.
func (t *Tea) Price() (float64, bool) {
	raw := strings.TrimSpace(t.rawPrice)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Available reports whether the tea is in stock.
func (t *Tea) Available() bool { return t.available }

// Categories returns the category labels.
func (t *Tea) Categories() []string { return t.categories }

// Descriptors returns the curated flavor/aroma tags.
func (t *Tea) Descriptors() []string { return t.descriptors }

// ModelDescriptors returns the model-derived flavor/aroma tags.
func (t *Tea) ModelDescriptors() []string { return t.modelDescriptors }

// Comments returns the customer comments in source order.
func (t *Tea) Comments() []string { return t.comments }

// Features returns the free-form key/value feature map.
func (t *Tea) Features() map[string]string { return t.features }

// Feature looks up a single feature value.
func (t *Tea) Feature(key string) (string, bool) {
	v, ok := t.features[key]
	return v, ok
}

// CombinedText returns the precomputed search text.
func (t *Tea) CombinedText() string { return t.combinedText }

// Embedding returns the cached vector for the combined text.
func (t *Tea) Embedding() []float32 { return t.embedding }

// SetEmbedding sets the vector in place. Called once at catalog build,
// before the store is published.
func (t *Tea) SetEmbedding(v []float32) { t.embedding = v }

// combineText joins every searchable field into one string: title,
// description, both descriptor sets, comments, feature pairs, categories.
// Feature keys are sorted so the text (and therefore the cached embedding)
// is stable across runs.
func combineText(t *Tea) string {
	parts := make([]string, 0, 8+len(t.descriptors)+len(t.modelDescriptors)+len(t.comments))
	parts = append(parts, t.title, t.description)
	parts = append(parts, t.descriptors...)
	parts = append(parts, t.modelDescriptors...)
	parts = append(parts, t.comments...)
	keys := make([]string, 0, len(t.features))
	for k := range t.features {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k, t.features[k])
	}
	parts = append(parts, t.categories...)
	return strings.Join(parts, " ")
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	c := make([]string, len(s))
	copy(c, s)
	return c
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
