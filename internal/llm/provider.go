// Package llm defines the generative text backend consumed by the chat
// synthesizer.
package llm

import "context"

// Generator produces a raw text reply for a fully assembled prompt.
// Implementations must honor context cancellation; a timeout or transport
// failure surfaces as an error, which callers treat as "generation
// unavailable" and route to the deterministic fallback.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
