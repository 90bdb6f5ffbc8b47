// Package ratelimit throttles calls to an embedding service with a token bucket.
package ratelimit

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Embedder implements the interfaces.
var (
	_ driven.Embedder    = (*Embedder)(nil)
	_ driven.Dimensioned = (*Embedder)(nil)
	_ driven.Pinger      = (*Embedder)(nil)
)

// Embedder waits for a token before every call to the wrapped embedder.
type Embedder struct {
	next    driven.Embedder
	limiter *rate.Limiter
}

// New wraps next with a limit of perSecond requests. The burst is the
// rounded-up rate so short pauses do not waste capacity.
// A non-positive rate returns next unchanged.
func New(next driven.Embedder, perSecond float64) driven.Embedder {
	if perSecond <= 0 {
		return next
	}
	burst := max(1, int(math.Ceil(perSecond)))
	return &Embedder{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Embed blocks until the limiter allows the call or ctx is done.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return e.next.Embed(ctx, text)
}

// Dimensions passes through to the wrapped embedder, or 0 if unknown.
func (e *Embedder) Dimensions() int {
	if d, ok := e.next.(driven.Dimensioned); ok {
		return d.Dimensions()
	}
	return 0
}

// Ping passes through without consuming a token.
func (e *Embedder) Ping(ctx context.Context) error {
	if p, ok := e.next.(driven.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
