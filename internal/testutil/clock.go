package testutil

import (
	"sync"
	"time"
)

// Epoch is the time a FixedClock starts at unless told otherwise.
var Epoch = time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)

// FixedClock is a manually advanced clock for tests.
//
// Unlike the system clock, FixedClock only moves when told to, so saved
// timestamps are reproducible across runs.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedClock creates a clock reading start. A zero start means Epoch.
func NewFixedClock(start time.Time) *FixedClock {
	if start.IsZero() {
		start = Epoch
	}
	return &FixedClock{now: start}
}

// Now returns the current reading without advancing.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new reading.
func (c *FixedClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// Set moves the clock to t.
func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
