package llm

import "context"

type Provider interface {
	// Generate returns the full completion for one prompt (blocking).
	Generate(ctx context.Context, prompt string) (string, error)
	Close() error
}
