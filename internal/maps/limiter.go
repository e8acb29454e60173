package maps

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"ridematch/internal/clock"
)

// Limiter combines a continuously refilling token bucket with a hard daily
// quota. Both are measured in billing units (matrix elements or single
// lookups). The daily counter resets at midnight in the limiter's location.
type Limiter struct {
	mu      sync.Mutex
	clock   clock.Clock
	loc     *time.Location
	bucket  *rate.Limiter
	quota   int
	used    int
	resetAt time.Time
}

// NewLimiter creates a limiter refilling perSecond tokens up to burst.
// A non-positive rate disables the bucket; a non-positive quota disables the
// daily cap.
func NewLimiter(perSecond float64, burst, dailyQuota int, clk clock.Clock, loc *time.Location) *Limiter {
	if clk == nil {
		clk = clock.Real()
	}
	if loc == nil {
		loc = time.UTC
	}
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = int(math.Max(1, math.Ceil(perSecond)))
	}
	l := &Limiter{
		clock:  clk,
		loc:    loc,
		bucket: rate.NewLimiter(limit, burst),
		quota:  dailyQuota,
	}
	l.resetAt = nextMidnight(clk.Now(), loc)
	return l
}

// Acquire reserves cost units. It fails immediately with ErrQuotaExceeded,
// consuming nothing, if the call would exceed today's quota. Otherwise it
// consumes the units and waits until the bucket has refilled enough.
func (l *Limiter) Acquire(ctx context.Context, cost int) error {
	if cost <= 0 {
		cost = 1
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	now := l.clock.Now()
	l.rollover(now)
	if l.quota > 0 && l.used+cost > l.quota {
		used := l.used
		l.mu.Unlock()
		return fmt.Errorf("%w: used %d of %d, need %d", ErrQuotaExceeded, used, l.quota, cost)
	}
	tokens := cost
	if b := l.bucket.Burst(); tokens > b {
		tokens = b
	}
	r := l.bucket.ReserveN(now, tokens)
	if !r.OK() {
		l.mu.Unlock()
		return fmt.Errorf("reserve %d tokens: bucket cannot satisfy request", tokens)
	}
	l.used += cost
	day := l.resetAt
	delay := r.DelayFrom(now)
	l.mu.Unlock()

	if delay <= 0 {
		return nil
	}
	select {
	case <-l.clock.After(delay):
		return nil
	case <-ctx.Done():
		l.mu.Lock()
		r.CancelAt(l.clock.Now())
		if l.resetAt.Equal(day) {
			l.used -= cost
		}
		l.mu.Unlock()
		return ctx.Err()
	}
}

// Reset clears the daily counter and starts a new quota day.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.used = 0
	l.resetAt = nextMidnight(l.clock.Now(), l.loc)
}

// Used returns units consumed in the current quota day.
func (l *Limiter) Used() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollover(l.clock.Now())
	return l.used
}

// Tokens returns the tokens currently available in the bucket.
func (l *Limiter) Tokens() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bucket.TokensAt(l.clock.Now())
}

func (l *Limiter) rollover(now time.Time) {
	if now.Before(l.resetAt) {
		return
	}
	l.used = 0
	l.resetAt = nextMidnight(now, l.loc)
}

func nextMidnight(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, loc)
}
