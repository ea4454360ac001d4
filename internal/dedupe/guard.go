// ABOUTME: TTL-bounded guard that lets each form submission token through once
// ABOUTME: Stops browser resubmits and double clicks from re-sending a message

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

// claim records when a token was first accepted.
type claim struct {
	at      time.Time
	element *list.Element
}

// Guard tracks submission tokens that have already been accepted. Tokens
// expire after the configured TTL; when the guard is full the oldest token
// is dropped first.
type Guard struct {
	mu      sync.Mutex
	claims  map[string]*claim
	order   *list.List // oldest at front
	ttl     time.Duration
	maxSize int
	now     func() time.Time

	done   chan struct{}
	closed bool
}

// Option configures a Guard.
type Option func(*Guard)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) {
		g.now = now
	}
}

// New creates a guard and starts its background sweep.
func New(ttl time.Duration, maxSize int, opts ...Option) *Guard {
	g := &Guard{
		claims:  make(map[string]*claim),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	go g.sweepLoop()
	return g
}

// Claim accepts token if it has not been seen within the TTL. It returns
// false for replays. Empty tokens are never accepted.
func (g *Guard) Claim(token string) bool {
	if token == "" {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if c, ok := g.claims[token]; ok {
		if now.Sub(c.at) < g.ttl {
			return false
		}
		g.order.Remove(c.element)
		delete(g.claims, token)
	}

	if g.maxSize > 0 && len(g.claims) >= g.maxSize {
		g.evictOldest()
	}
	g.claims[token] = &claim{at: now, element: g.order.PushBack(token)}
	return true
}

// Seen reports whether token has been claimed and has not expired.
func (g *Guard) Seen(token string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	c, ok := g.claims[token]
	return ok && g.now().Sub(c.at) < g.ttl
}

// Release forgets token so it can be claimed again, used when the claimed
// submission was rejected before doing any work.
func (g *Guard) Release(token string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if c, ok := g.claims[token]; ok {
		g.order.Remove(c.element)
		delete(g.claims, token)
	}
}

// Len returns the number of tracked tokens, expired or not.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.claims)
}

// evictOldest must be called with mu held.
func (g *Guard) evictOldest() {
	front := g.order.Front()
	if front == nil {
		return
	}
	token, _ := front.Value.(string)
	g.order.Remove(front)
	delete(g.claims, token)
}

func (g *Guard) sweepLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.Sweep()
		case <-g.done:
			return
		}
	}
}

// Sweep drops expired tokens. Tokens are claimed in time order, so it stops
// at the first live one.
func (g *Guard) Sweep() {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for e := g.order.Front(); e != nil; {
		token, _ := e.Value.(string)
		c := g.claims[token]
		if c != nil && now.Sub(c.at) < g.ttl {
			return
		}
		next := e.Next()
		g.order.Remove(e)
		delete(g.claims, token)
		e = next
	}
}

// Close stops the background sweep. It is safe to call multiple times.
func (g *Guard) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.closed {
		close(g.done)
		g.closed = true
	}
}
