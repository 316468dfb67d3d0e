package recommend

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/daochai/teasommelier/internal/domain"
)

// minSimilarity is assigned when cosine similarity is undefined (zero norm)
// so such items sort last instead of producing NaN.
const minSimilarity = -1.0

// RankedTea is a query-scoped (tea, score) pair. Scores are never written
// onto the shared catalog records.
type RankedTea struct {
	Tea        *domain.Tea
	Similarity float64
}

// Rank embeds the query and orders candidates by semantic similarity.
// Empty candidates short-circuit before the embedding call. The final order
// is available descending, then similarity descending, truncated to topN.
func (s *Service) Rank(
	ctx context.Context, query string, candidates []*domain.Tea, topN int,
) ([]RankedTea, error) {
	if len(candidates) == 0 {
		return []RankedTea{}, nil
	}

	embResult, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}
	queryVec := embResult.Embedding

	ranked := make([]RankedTea, 0, len(candidates))
	for _, tea := range candidates {
		vec := tea.Embedding()
		if len(vec) != len(queryVec) {
			s.logger.Warn("Excluding tea from ranking: embedding dimension mismatch",
				zap.String("id", tea.ID()),
				zap.Int("tea_dim", len(vec)),
				zap.Int("query_dim", len(queryVec)),
			)
			continue
		}
		ranked = append(ranked, RankedTea{
			Tea:        tea,
			Similarity: cosineSimilarity(vec, queryVec),
		})
	}

	// Availability precedence is re-asserted here: the similarity sort must
	// not let a high-scoring unavailable tea outrank an available one.
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Tea.Available() != b.Tea.Available() {
			return a.Tea.Available()
		}
		return a.Similarity > b.Similarity
	})

	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked, nil
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return minSimilarity
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
