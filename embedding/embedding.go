// Package embedding provides the text-to-vector collaborators the index
// can be wired with: a provider turning text into vectors and a
// memoization cache keyed by input text.
//
// Both are explicit dependencies injected at construction; there is no
// package-level default instance.
package embedding

import (
	"context"
	"errors"
)

var (
	// ErrModelLoad is returned when the provider cannot initialize or
	// switch to the requested model.
	ErrModelLoad = errors.New("embedding model load failed")

	// ErrInference is returned when the provider fails to produce a
	// vector for the given text.
	ErrInference = errors.New("embedding inference failed")
)

// Provider turns text into an embedding vector.
type Provider interface {
	// Embed returns the vector for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Model returns the identifier of the currently active model.
	Model() string
}
