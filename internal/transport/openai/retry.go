package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/daochai/teasommelier/internal/domain"
)

// RetryingGenerator retries failed generation calls with exponential backoff.
// Used by the batch augmentation pipeline; the interactive recommendation
// path calls the inner generator directly.
type RetryingGenerator struct {
	inner      domain.Generator
	maxRetries uint64
	interval   time.Duration
	logger     *zap.Logger
}

// NewRetryingGenerator wraps a generator with retry-on-failure behavior.
func NewRetryingGenerator(inner domain.Generator, maxRetries int, logger *zap.Logger) *RetryingGenerator {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &RetryingGenerator{
		inner:      inner,
		maxRetries: uint64(maxRetries),
		interval:   time.Second,
		logger:     logger,
	}
}

// WithInitialInterval configures the first backoff interval.
func (g *RetryingGenerator) WithInitialInterval(d time.Duration) *RetryingGenerator {
	if d > 0 {
		g.interval = d
	}
	return g
}

// Generate calls the inner generator, retrying transient failures.
func (g *RetryingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(newExponentialBackOff(g.interval), g.maxRetries),
		ctx,
	)

	var attempt int
	result, err := backoff.RetryWithData(func() (string, error) {
		attempt++
		out, err := g.inner.Generate(ctx, prompt)
		if err != nil {
			if g.logger != nil {
				g.logger.Warn("generation attempt failed",
					zap.Int("attempt", attempt),
					zap.Error(err),
				)
			}
			return "", err
		}
		return out, nil
	}, policy)
	if err != nil {
		return "", fmt.Errorf("generate after %d attempt(s): %w", attempt, err)
	}
	return result, nil
}

func newExponentialBackOff(initial time.Duration) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = 30 * time.Second
	return b
}
