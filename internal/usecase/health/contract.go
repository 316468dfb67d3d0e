package health

import "context"

// CacheStorePinger checks embedding-cache store availability.
type CacheStorePinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// CatalogReader reports the loaded catalog size.
type CatalogReader interface {
	Len() int
}
