package recommend

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/daochai/teasommelier/internal/domain"
)

// testCatalog implements CatalogReader over a plain tea slice.
type testCatalog struct {
	teas []domain.Tea
	refs []*domain.Tea
}

func newTestCatalog(teas ...domain.Tea) *testCatalog {
	c := &testCatalog{teas: teas}
	c.refs = make([]*domain.Tea, len(c.teas))
	for i := range c.teas {
		c.refs[i] = &c.teas[i]
	}
	return c
}

func (c *testCatalog) Teas() []*domain.Tea { return c.refs }
func (c *testCatalog) Len() int            { return len(c.teas) }

func (c *testCatalog) Categories() []string {
	return c.vocab(func(t *domain.Tea) []string { return t.Categories() })
}

func (c *testCatalog) Descriptors() []string {
	return c.vocab(func(t *domain.Tea) []string { return t.Descriptors() })
}

func (c *testCatalog) ModelDescriptors() []string {
	return c.vocab(func(t *domain.Tea) []string { return t.ModelDescriptors() })
}

func (c *testCatalog) vocab(get func(*domain.Tea) []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range c.refs {
		for _, v := range get(t) {
			if k := strings.ToLower(v); !seen[k] {
				seen[k] = true
				out = append(out, v)
			}
		}
	}
	return out
}

type teaSpec struct {
	id               string
	title            string
	description      string
	url              string
	price            string
	available        bool
	categories       []string
	descriptors      []string
	modelDescriptors []string
	comments         []string
	features         map[string]string
	embedding        []float32
}

func buildTea(t *testing.T, spec teaSpec) domain.Tea {
	t.Helper()
	if spec.id == "" {
		spec.id = "tea-" + spec.title
	}
	tea := domain.Reconstruct(
		spec.id, spec.title, spec.description, spec.url, spec.price,
		spec.available,
		spec.categories, spec.descriptors, spec.modelDescriptors,
		spec.comments, spec.features, "", spec.embedding,
	)
	return tea
}

// mockEmbedder returns a fixed vector and counts calls.
type mockEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vector}, nil
}

// mockGenerator records the prompt and counts calls.
type mockGenerator struct {
	output string
	err    error
	calls  int
	prompt string
}

func (m *mockGenerator) Generate(_ context.Context, prompt string) (string, error) {
	m.calls++
	m.prompt = prompt
	if m.err != nil {
		return "", m.err
	}
	return m.output, nil
}

func newTestService(cat CatalogReader, emb *mockEmbedder, gen *mockGenerator) *Service {
	return New(cat, emb, gen, Config{}, zap.NewNop())
}
