package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/daochai/teasommelier/internal/domain"
)

// Store is the immutable in-memory tea catalog. Built once at startup;
// read-only afterwards, so concurrent queries need no locking.
type Store struct {
	teas             []domain.Tea
	refs             []*domain.Tea
	categories       []string
	descriptors      []string
	modelDescriptors []string
}

// Build embeds each tea's combined text and assembles the store.
// A tea whose embedding fails is excluded and logged; quota and rate-limit
// errors cascade because every remaining call would fail the same way.
func Build(ctx context.Context, teas []domain.Tea, embedder domain.Embedder, logger *zap.Logger) (*Store, error) {
	if len(teas) == 0 {
		return nil, domain.ErrEmptyCatalog
	}

	kept := make([]domain.Tea, 0, len(teas))
	dim := -1

	for i := range teas {
		tea := teas[i]

		result, err := embedder.Embed(ctx, tea.CombinedText())
		if err != nil {
			if errors.Is(err, domain.ErrEmbeddingQuotaExceeded) || errors.Is(err, domain.ErrRateLimited) {
				return nil, fmt.Errorf("embed catalog item %s: %w", tea.ID(), err)
			}
			logger.Warn("Skipping tea: embedding failed",
				zap.String("id", tea.ID()),
				zap.String("title", tea.Title()),
				zap.Error(err),
			)
			continue
		}
		if len(result.Embedding) == 0 {
			logger.Warn("Skipping tea: empty embedding",
				zap.String("id", tea.ID()),
			)
			continue
		}
		if dim == -1 {
			dim = len(result.Embedding)
		} else if len(result.Embedding) != dim {
			logger.Warn("Skipping tea: embedding dimension mismatch",
				zap.String("id", tea.ID()),
				zap.Int("expected", dim),
				zap.Int("got", len(result.Embedding)),
			)
			continue
		}

		tea.SetEmbedding(result.Embedding)
		kept = append(kept, tea)
	}

	if len(kept) == 0 {
		return nil, fmt.Errorf("no catalog items could be embedded: %w", domain.ErrEmptyCatalog)
	}

	return newStore(kept), nil
}

// Reconstruct assembles a store from teas that already carry embeddings
// (tests, pre-vectorized fixtures).
func Reconstruct(teas []domain.Tea) *Store {
	return newStore(teas)
}

func newStore(teas []domain.Tea) *Store {
	s := &Store{teas: teas}

	s.refs = make([]*domain.Tea, len(s.teas))
	seenCat := make(map[string]bool)
	seenDesc := make(map[string]bool)
	seenModel := make(map[string]bool)

	for i := range s.teas {
		t := &s.teas[i]
		s.refs[i] = t

		for _, c := range t.Categories() {
			if k := strings.ToLower(c); !seenCat[k] {
				seenCat[k] = true
				s.categories = append(s.categories, c)
			}
		}
		for _, d := range t.Descriptors() {
			if k := strings.ToLower(d); !seenDesc[k] {
				seenDesc[k] = true
				s.descriptors = append(s.descriptors, d)
			}
		}
		for _, d := range t.ModelDescriptors() {
			if k := strings.ToLower(d); !seenModel[k] {
				seenModel[k] = true
				s.modelDescriptors = append(s.modelDescriptors, d)
			}
		}
	}

	return s
}

// Teas returns references to every catalog entry in load order.
// Callers must treat the records as read-only.
func (s *Store) Teas() []*domain.Tea { return s.refs }

// Len returns the number of catalog entries.
func (s *Store) Len() int { return len(s.teas) }

// Categories returns the category vocabulary, unique case-insensitively,
// first-seen storage case, catalog order.
func (s *Store) Categories() []string { return s.categories }

// Descriptors returns the curated descriptor vocabulary.
func (s *Store) Descriptors() []string { return s.descriptors }

// ModelDescriptors returns the model-derived descriptor vocabulary.
func (s *Store) ModelDescriptors() []string { return s.modelDescriptors }
