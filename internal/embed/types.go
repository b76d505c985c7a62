// Package embed defines the embedding provider contract and the built-in
// hash-based fallback. The engine works without any provider at all; a
// missing provider disables the semantic strategy, nothing else.
package embed

import "context"

// Provider turns text into a fixed-dimension float vector.
type Provider interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Available reports whether the provider is ready to embed.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}
