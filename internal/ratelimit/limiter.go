// Package ratelimit bounds outbound load against the third-party site
// the scraper polls (spec.md §4.3). It composes two independent gates
// behind one Acquire call: a sliding 60-second request-count window
// (golang.org/x/time/rate, the ecosystem-standard limiter, also used
// elsewhere in the pack's middleware/ratelimit) and a minimum-interval
// gate between consecutive acquires, guarded by a mutex in the style of
// the teacher's scheduler and reconciler loops.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/cyprienbrisset/ffemonitor/internal/metrics"
)

// Config holds the two gate parameters from spec.md §4.3.
type Config struct {
	// MinInterval is the minimum time between consecutive acquires.
	MinInterval time.Duration
	// MaxRequestsPerMinute bounds the sliding 60-second window.
	MaxRequestsPerMinute int
}

// DefaultConfig returns spec.md §4.3's defaults: 2s / 20rpm.
func DefaultConfig() Config {
	return Config{
		MinInterval:          2 * time.Second,
		MaxRequestsPerMinute: 20,
	}
}

// Limiter gates outbound scrape calls. Safe for concurrent Acquire.
type Limiter struct {
	cfg     Config
	bucket  *rate.Limiter
	mu      sync.Mutex
	lastAcq time.Time
}

// New constructs a Limiter from cfg.
func New(cfg Config) *Limiter {
	var bucket *rate.Limiter
	if cfg.MaxRequestsPerMinute > 0 {
		// rate.Limit is expressed in events/second; spread max_rpm
		// evenly across the minute. Burst is fixed at 1: a burst equal
		// to max_rpm would let the bucket start full and admit a whole
		// minute's quota immediately, so a caller spaced by min_interval
		// alone could run unthrottled until the bucket first empties,
		// breaking the sliding-window bound. Burst 1 forces every
		// acquire past the first to wait out the per-token refill.
		perSecond := float64(cfg.MaxRequestsPerMinute) / 60.0
		bucket = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
	return &Limiter{cfg: cfg, bucket: bucket}
}

// Acquire suspends the caller until both gates admit it: at least
// MinInterval has elapsed since the previous acquire, and the 60-second
// token bucket has a token available. Returns ctx.Err() if ctx is
// cancelled while waiting, and context.DeadlineExceeded when the next
// token is due only after ctx's deadline.
func (l *Limiter) Acquire(ctx context.Context) error {
	start := time.Now()
	defer func() {
		metrics.RateLimiterWaitSeconds.Observe(time.Since(start).Seconds())
	}()

	if err := l.waitMinInterval(ctx); err != nil {
		return err
	}
	if l.bucket != nil {
		if err := l.bucket.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			// rate.Limiter refuses up front, with a plain error, when
			// the next token is due only after ctx's deadline.
			return context.DeadlineExceeded
		}
	}
	return nil
}

func (l *Limiter) waitMinInterval(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := time.Now()
		elapsed := now.Sub(l.lastAcq)
		if l.lastAcq.IsZero() || elapsed >= l.cfg.MinInterval {
			l.lastAcq = now
			l.mu.Unlock()
			return nil
		}
		wait := l.cfg.MinInterval - elapsed
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
			// loop again: recheck under lock in case of a concurrent
			// acquirer that moved lastAcq forward while we slept.
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}
