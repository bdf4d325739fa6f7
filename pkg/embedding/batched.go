package embedding

import (
	"context"
	"fmt"

	"harmony-api/pkg/utils"
)

// Batched splits large requests into provider-sized batches, sent one after another.
type Batched struct {
	next Vectoriser
	size int
}

// NewBatched wraps next so that no single call carries more than size texts.
// A non-positive size returns next unchanged.
func NewBatched(next Vectoriser, size int) Vectoriser {
	if size <= 0 {
		return next
	}
	return &Batched{next: next, size: size}
}

func (b *Batched) Vectorise(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, batch := range utils.Chunk(texts, b.size) {
		vectors, err := b.next.Vectorise(ctx, batch)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("provider returned %d embeddings for %d texts", len(vectors), len(batch))
		}
		out = append(out, vectors...)
	}
	return out, nil
}
