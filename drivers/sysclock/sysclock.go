// Package sysclock implements the Clock interface over the host monotonic
// clock with a settable offset, so the system time can be stepped from an
// RTC or a network source without touching the underlying timer.
package sysclock

import (
	"sync"
	"time"

	"plumcore-go/errcode"
)

// Clock is the system time source.
type Clock struct {
	mu     sync.Mutex
	offset time.Duration
}

// New creates a clock running at the host wall time.
func New() *Clock { return &Clock{} }

// Get returns the current adjusted time.
func (c *Clock) Get() (time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Now().Add(c.offset), nil
}

// Set steps the clock to t.
func (c *Clock) Set(t time.Time) error {
	if t.IsZero() {
		return errcode.BadArg
	}
	c.mu.Lock()
	c.offset = time.Until(t)
	c.mu.Unlock()
	return nil
}

// Shift applies a phase offset without stepping.
func (c *Clock) Shift(offset time.Duration) error {
	c.mu.Lock()
	c.offset += offset
	c.mu.Unlock()
	return nil
}
