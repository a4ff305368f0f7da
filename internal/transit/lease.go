package transit

import (
	"sync"
	"time"
)

// DefaultLeaseTimeout is how long a refresh may hold the lease before another
// attempt is allowed to take it over.
const DefaultLeaseTimeout = 300 * time.Second

// Lease grants at most one refresh attempt the right to publish. Every grant
// carries a generation; taking over an abandoned lease bumps the generation so
// the previous holder can no longer release it or publish.
type Lease struct {
	mu         sync.Mutex
	timeout    time.Duration
	held       bool
	generation uint64
	acquiredAt time.Time
}

// NewLease returns an unheld lease. A non-positive timeout uses
// DefaultLeaseTimeout.
func NewLease(timeout time.Duration) *Lease {
	if timeout <= 0 {
		timeout = DefaultLeaseTimeout
	}
	return &Lease{timeout: timeout}
}

// TryAcquire never blocks. When the lease is held for longer than the timeout
// it is reclaimed and granted to the caller.
func (l *Lease) TryAcquire(now time.Time) (generation uint64, reclaimed bool, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held {
		if now.Sub(l.acquiredAt) <= l.timeout {
			return 0, false, false
		}
		reclaimed = true
	}

	l.generation++
	l.held = true
	l.acquiredAt = now
	return l.generation, reclaimed, true
}

// Release frees the lease if generation is still the current grant. A stale
// release reports false and changes nothing.
func (l *Lease) Release(generation uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held || l.generation != generation {
		return false
	}
	l.held = false
	return true
}

// Holds reports whether generation is the current, unreleased grant.
func (l *Lease) Holds(generation uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held && l.generation == generation
}
