package embedding

import (
	"context"
	"errors"
)

var (
	// ErrUnknownModel is returned for a framework/model pair outside the registry.
	ErrUnknownModel = errors.New("could not find a vectorisation function for model")
	// ErrModelUnavailable is returned when a known model lacks provider credentials.
	ErrModelUnavailable = errors.New("model is not available on this server")
)

// Vectoriser turns texts into embeddings for one model. The result has one vector
// per input text, in input order. An empty input returns an empty result.
type Vectoriser interface {
	Vectorise(ctx context.Context, texts []string) ([][]float32, error)
}

// VectoriserFunc adapts a function to Vectoriser.
type VectoriserFunc func(ctx context.Context, texts []string) ([][]float32, error)

func (f VectoriserFunc) Vectorise(ctx context.Context, texts []string) ([][]float32, error) {
	return f(ctx, texts)
}
