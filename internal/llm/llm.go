// Package llm defines the text generation contract and its Gemini-backed
// implementation. The rest of the system depends only on the Generator
// interface; swapping providers touches this package alone.
package llm

import (
	"context"
	"errors"
)

// Generator produces a completion for an assembled prompt. Implementations
// must be safe for concurrent use.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ErrGeneration indicates the generation backend failed or returned nothing
// usable. Callers abort the turn; nothing is persisted for it.
var ErrGeneration = errors.New("generation failed")

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
