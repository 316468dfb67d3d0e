package recommend

import (
	"context"

	"github.com/daochai/teasommelier/internal/domain"
)

// CatalogReader is the read-only catalog contract. The store behind it is
// immutable for the lifetime of the process, so concurrent queries share it
// without locking.
type CatalogReader interface {
	Teas() []*domain.Tea
	Categories() []string
	Descriptors() []string
	ModelDescriptors() []string
	Len() int
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Generator produces the natural-language explanation.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
