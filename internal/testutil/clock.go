package testutil

import (
	"sync"
	"time"
)

// StepClock is a deterministic wall clock for tests.
//
// Each call to Now advances the clock by Step, starting at Base. This keeps
// recorded timestamps and durations identical across runs so golden output
// can be compared byte for byte.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type StepClock struct {
	mu    sync.Mutex
	base  time.Time
	step  time.Duration
	ticks int64
}

// DefaultClockBase is the instant the first Now() returns.
var DefaultClockBase = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

// NewStepClock creates a clock starting at DefaultClockBase that advances one
// second per call.
func NewStepClock() *StepClock {
	return &StepClock{base: DefaultClockBase, step: time.Second}
}

// Now returns the current tick and advances the clock.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.base.Add(time.Duration(c.ticks) * c.step)
	c.ticks++
	return t
}

// Ticks returns how many times Now has been called.
func (c *StepClock) Ticks() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

// Reset rewinds the clock to its base.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks = 0
}
