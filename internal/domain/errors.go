package domain

import "errors"

var (
	// ErrEmptyCatalog signals that the catalog contains no usable entries.
	ErrEmptyCatalog = errors.New("catalog is empty")
	// ErrCatalogFormat signals an unreadable catalog source.
	ErrCatalogFormat = errors.New("invalid catalog format")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrGenerationProviderError signals a text-generation provider failure.
	ErrGenerationProviderError = errors.New("generation provider error")
	// ErrRateLimited signals a rate limit hit on an external provider.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingQuotaExceeded signals an exhausted embedding budget.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
)
