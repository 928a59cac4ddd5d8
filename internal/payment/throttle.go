package payment

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const throttlePruneAt = 10_000

// Throttle counts authentication failures per card number with a token
// bucket: maxFailures tokens, refilled over window. Every submission holds a
// slot from Begin until its outcome is known, and held slots count against
// the bucket, so concurrent guesses cannot overrun the limit.
type Throttle struct {
	mu     sync.Mutex
	limit  rate.Limit
	burst  int
	byCard map[string]*bucket
}

type bucket struct {
	lim      *rate.Limiter
	inflight int
}

// Attempt is one submission's hold on its card's bucket. Exactly one of
// Failed, Succeeded or Release must be called.
type Attempt struct {
	t      *Throttle
	number string
}

// NewThrottle returns nil when maxFailures <= 0; a nil Throttle never blocks.
func NewThrottle(maxFailures int, window time.Duration) *Throttle {
	if maxFailures <= 0 || window <= 0 {
		return nil
	}
	return &Throttle{
		limit:  rate.Limit(float64(maxFailures) / window.Seconds()),
		burst:  maxFailures,
		byCard: make(map[string]*bucket),
	}
}

// Begin reserves a slot for number. ok is false when the card has used up
// its failures, counting attempts still in flight.
func (t *Throttle) Begin(number string) (a *Attempt, ok bool) {
	if t == nil {
		return nil, true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	b, found := t.byCard[number]
	if !found {
		if len(t.byCard) >= throttlePruneAt {
			t.prune()
		}
		b = &bucket{lim: rate.NewLimiter(t.limit, t.burst)}
		t.byCard[number] = b
	}
	if b.lim.Tokens()-float64(b.inflight) < 1 {
		return nil, false
	}
	b.inflight++
	return &Attempt{t: t, number: number}, true
}

// Failed spends the slot: the password was wrong.
func (a *Attempt) Failed() {
	a.finish(func(b *bucket) { b.lim.Allow() })
}

// Succeeded clears earlier failures for the card.
func (a *Attempt) Succeeded() {
	a.finish(func(b *bucket) { b.lim = rate.NewLimiter(a.t.limit, a.t.burst) })
}

// Release gives the slot back without counting a failure.
func (a *Attempt) Release() {
	a.finish(func(*bucket) {})
}

func (a *Attempt) finish(fn func(b *bucket)) {
	if a == nil {
		return
	}
	a.t.mu.Lock()
	defer a.t.mu.Unlock()
	b, ok := a.t.byCard[a.number]
	if !ok {
		return
	}
	b.inflight--
	fn(b)
}

// prune drops idle buckets that have fully refilled. Caller holds mu.
func (t *Throttle) prune() {
	for k, b := range t.byCard {
		if b.inflight == 0 && b.lim.Tokens() >= float64(t.burst) {
			delete(t.byCard, k)
		}
	}
}
