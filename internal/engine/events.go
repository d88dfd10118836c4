package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/stockd/internal/ledger"
)

// EventKind distinguishes the event types published by the core.
type EventKind string

const (
	// EventOrderProcessed fires once per committed order, fulfilled or rejected.
	EventOrderProcessed EventKind = "order.processed"

	// EventSyncCompleted fires when a sync job reaches a terminal state.
	EventSyncCompleted EventKind = "sync.completed"

	// EventAlertRaised fires for every alert accepted by the alert bus.
	EventAlertRaised EventKind = "alert.raised"
)

// Event is one typed notification. Exactly one of Order, Sync, Alert is set,
// matching Kind.
type Event struct {
	Kind  EventKind
	At    time.Time
	Order *ledger.Order
	Sync  *ledger.SyncJob
	Alert *ledger.Alert
}

// Subscriber receives events on a bounded buffered channel. When the buffer
// is full the oldest pending event is dropped and counted; publishers never
// block on a slow consumer.
type Subscriber struct {
	ch      chan Event
	dropped atomic.Int64
}

// C returns the receive channel. It is closed when the bus closes.
func (s *Subscriber) C() <-chan Event {
	return s.ch
}

// Dropped returns how many events were evicted because this subscriber's
// buffer was full.
func (s *Subscriber) Dropped() int64 {
	return s.dropped.Load()
}

// Bus multiplexes core events to any number of subscribers in publish order.
type Bus struct {
	mu     sync.Mutex
	subs   []*Subscriber
	closed bool
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{}
}

// DefaultSubscriberBuffer is the per-subscriber channel capacity used when
// Subscribe is called with a non-positive buffer size.
const DefaultSubscriberBuffer = 64

// Subscribe registers a new subscriber with the given buffer capacity.
// Returns nil if the bus is already closed.
func (b *Bus) Subscribe(buffer int) *Subscriber {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}

	sub := &Subscriber{ch: make(chan Event, buffer)}
	b.subs = append(b.subs, sub)
	return sub
}

// Publish delivers an event to every subscriber. Per-subscriber ordering
// matches publish order. A full subscriber loses its oldest pending event.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	for _, sub := range b.subs {
		select {
		case sub.ch <- e:
		default:
			// Buffer full: evict the oldest, then retry once.
			select {
			case <-sub.ch:
				sub.dropped.Add(1)
			default:
			}
			select {
			case sub.ch <- e:
			default:
				sub.dropped.Add(1)
			}
		}
	}
}

// Close closes every subscriber channel. Publish becomes a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, sub := range b.subs {
		close(sub.ch)
	}
}
