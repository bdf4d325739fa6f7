package embedding

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimited gates every call to the wrapped Vectoriser on a shared limiter.
type RateLimited struct {
	next    Vectoriser
	limiter *rate.Limiter
}

// NewRateLimited wraps next with a limiter of rps requests per second.
// A non-positive rps returns next unchanged.
func NewRateLimited(next Vectoriser, rps float64) Vectoriser {
	if rps <= 0 {
		return next
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (r *RateLimited) Vectorise(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.next.Vectorise(ctx, texts)
}
