package engine

import (
	"sync/atomic"
	"time"
)

// SeqClock is a monotonic logical clock for movement ordering.
//
// Every movement is stamped with a strictly increasing seq number so that
// replay order is total even when two movements share a wall timestamp.
//
// Thread-safety: safe for concurrent use (atomic operations).
type SeqClock struct {
	seq atomic.Int64
}

// NewSeqClock creates a clock starting at 0; the first Next() returns 1.
func NewSeqClock() *SeqClock {
	return &SeqClock{}
}

// NewSeqClockAt creates a clock resuming from a specific sequence number.
// Used at startup to continue from the highest persisted movement seq.
func NewSeqClockAt(start int64) *SeqClock {
	c := &SeqClock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *SeqClock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *SeqClock) Current() int64 {
	return c.seq.Load()
}

// WallClock supplies wall time to the engine. Production uses SystemClock;
// tests inject a manual clock for deterministic timestamps and staleness
// windows.
type WallClock interface {
	Now() time.Time
}

// SystemClock is the production WallClock backed by time.Now.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
