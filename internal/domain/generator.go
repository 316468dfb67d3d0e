package domain

import "context"

// Generator is the text-generation contract. Implementations talk to an
// OpenAI-compatible backend; callers decide how failures degrade.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
