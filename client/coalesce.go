package client

import (
	"sync"
	"time"
)

// Coalescer batches values and hands them to flush in one slice once the
// interval elapses after the first Add of a batch. Rapid bursts, such as
// marking a page of messages read while scrolling, collapse into a single
// call.
type Coalescer[T any] struct {
	mu       sync.Mutex
	interval time.Duration
	flush    func([]T)
	pending  []T
	timer    *time.Timer
	stopped  bool
}

// NewCoalescer constructs a Coalescer that calls flush at most once per
// interval.
func NewCoalescer[T any](interval time.Duration, flush func([]T)) *Coalescer[T] {
	return &Coalescer[T]{interval: interval, flush: flush}
}

// Add queues a value for the next flush.
func (c *Coalescer[T]) Add(value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}
	c.pending = append(c.pending, value)
	if c.timer == nil {
		c.timer = time.AfterFunc(c.interval, c.fire)
	}
}

func (c *Coalescer[T]) fire() {
	c.mu.Lock()
	batch := c.pending
	c.pending = nil
	c.timer = nil
	c.mu.Unlock()

	if len(batch) > 0 {
		c.flush(batch)
	}
}

// Flush delivers any queued values immediately.
func (c *Coalescer[T]) Flush() {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	batch := c.pending
	c.pending = nil
	c.mu.Unlock()

	if len(batch) > 0 {
		c.flush(batch)
	}
}

// Stop flushes queued values and rejects further Adds.
func (c *Coalescer[T]) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()
	c.Flush()
}
