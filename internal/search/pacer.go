package search

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces upstream requests by the running backoff delay. It
// wraps a token bucket with burst 1, so the first Wait returns
// immediately and every later Wait blocks until one delay has elapsed
// since the previous request.
type Pacer struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	delay   time.Duration
}

// NewPacer creates a pacer with the given inter-request delay.
func NewPacer(delay time.Duration) *Pacer {
	return &Pacer{
		limiter: rate.NewLimiter(limitFor(delay), 1),
		delay:   delay,
	}
}

// Wait blocks until the next request may be issued without violating
// the pacing contract, or until ctx is cancelled.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	limiter := p.limiter
	p.mu.Unlock()
	return limiter.Wait(ctx)
}

// SetDelay updates the inter-request delay. Called after every contact
// with the value returned by the search client, so Retry-After and
// backoff doubling carry over to the pacing of subsequent requests.
func (p *Pacer) SetDelay(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if d == p.delay {
		return
	}
	p.delay = d
	p.limiter.SetLimit(limitFor(d))
}

// Delay returns the current inter-request delay.
func (p *Pacer) Delay() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.delay
}

// limitFor converts a delay into a limiter rate. A non-positive delay
// disables pacing.
func limitFor(d time.Duration) rate.Limit {
	if d <= 0 {
		return rate.Inf
	}
	return rate.Every(d)
}
