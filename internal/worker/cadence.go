package worker

import (
	"sync"
	"time"
)

// CadenceTracker remembers when each tenant was last swept so the
// daemon tick can run faster than any tenant's check interval.
type CadenceTracker struct {
	mu      sync.Mutex
	lastRun map[string]time.Time
}

// NewCadenceTracker creates an empty tracker; every tenant is due.
func NewCadenceTracker() *CadenceTracker {
	return &CadenceTracker{lastRun: make(map[string]time.Time)}
}

// Due reports whether the tenant's interval has elapsed since its last
// recorded sweep.
func (c *CadenceTracker) Due(tenantCode string, interval time.Duration, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	last, ok := c.lastRun[tenantCode]
	if !ok {
		return true
	}
	return now.Sub(last) >= interval
}

// MarkRun records a completed sweep.
func (c *CadenceTracker) MarkRun(tenantCode string, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastRun[tenantCode] = at
}
