// Package alerts keeps the bounded, time-ordered notification feed consumed
// by presentation collaborators.
package alerts

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/stockd/internal/ledger"
)

// DefaultCapacity is the feed bound: once full, the oldest alert is
// silently evicted regardless of severity or read state.
const DefaultCapacity = 100

// Bus is the capacity-bounded FIFO alert feed.
//
// Thread-safety: all methods are safe for concurrent use.
type Bus struct {
	mu       sync.RWMutex
	capacity int
	alerts   []ledger.Alert // newest first
	now      func() time.Time
	notify   func(ledger.Alert) // called outside the lock on every Raise
}

// New creates a bus with the given capacity (DefaultCapacity when n <= 0).
// now supplies timestamps; notify, when non-nil, observes every raised alert.
func New(n int, now func() time.Time, notify func(ledger.Alert)) *Bus {
	if n <= 0 {
		n = DefaultCapacity
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Bus{
		capacity: n,
		now:      now,
		notify:   notify,
	}
}

// Raise appends a new alert, evicting the oldest entry when the feed is at
// capacity, and returns the stored alert.
func (b *Bus) Raise(category, message string, sev ledger.Severity) ledger.Alert {
	a := ledger.Alert{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Category:  category,
		Message:   message,
		Severity:  sev,
		Timestamp: b.now(),
	}

	b.mu.Lock()
	b.alerts = append([]ledger.Alert{a}, b.alerts...)
	if len(b.alerts) > b.capacity {
		b.alerts = b.alerts[:b.capacity]
	}
	b.mu.Unlock()

	if b.notify != nil {
		b.notify(a)
	}
	return a
}

// List returns alerts newest first. With unreadOnly set, read alerts are
// filtered out. The returned slice is a copy.
func (b *Bus) List(unreadOnly bool) []ledger.Alert {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]ledger.Alert, 0, len(b.alerts))
	for _, a := range b.alerts {
		if unreadOnly && a.Read {
			continue
		}
		out = append(out, a)
	}
	return out
}

// MarkRead flags one alert as read.
func (b *Bus) MarkRead(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.alerts {
		if b.alerts[i].ID == id {
			b.alerts[i].Read = true
			return nil
		}
	}
	return fmt.Errorf("alert %s: %w", id, ledger.ErrNotFound)
}

// Len returns the current feed length.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.alerts)
}
