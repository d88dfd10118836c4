package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stockd/internal/ledger"
)

func alertEvent(msg string) Event {
	return Event{
		Kind:  EventAlertRaised,
		At:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Alert: &ledger.Alert{Message: msg},
	}
}

func TestBus_DeliversInPublishOrder(t *testing.T) {
	b := NewBus()
	defer b.Close()

	sub := b.Subscribe(8)
	require.NotNil(t, sub)

	b.Publish(alertEvent("first"))
	b.Publish(alertEvent("second"))
	b.Publish(alertEvent("third"))

	assert.Equal(t, "first", (<-sub.C()).Alert.Message)
	assert.Equal(t, "second", (<-sub.C()).Alert.Message)
	assert.Equal(t, "third", (<-sub.C()).Alert.Message)
	assert.Equal(t, int64(0), sub.Dropped())
}

func TestBus_SlowSubscriberLosesOldest(t *testing.T) {
	b := NewBus()
	defer b.Close()

	sub := b.Subscribe(2)
	require.NotNil(t, sub)

	b.Publish(alertEvent("first"))
	b.Publish(alertEvent("second"))
	b.Publish(alertEvent("third"))

	assert.Equal(t, "second", (<-sub.C()).Alert.Message, "oldest pending event evicted")
	assert.Equal(t, "third", (<-sub.C()).Alert.Message)
	assert.Equal(t, int64(1), sub.Dropped())
}

func TestBus_IndependentSubscribers(t *testing.T) {
	b := NewBus()
	defer b.Close()

	fast := b.Subscribe(8)
	slow := b.Subscribe(1)

	b.Publish(alertEvent("first"))
	b.Publish(alertEvent("second"))

	// The slow subscriber's loss never affects the fast one.
	assert.Equal(t, "first", (<-fast.C()).Alert.Message)
	assert.Equal(t, "second", (<-fast.C()).Alert.Message)

	assert.Equal(t, "second", (<-slow.C()).Alert.Message)
	assert.Equal(t, int64(1), slow.Dropped())
}

func TestBus_Close(t *testing.T) {
	b := NewBus()

	sub := b.Subscribe(2)
	b.Publish(alertEvent("first"))
	b.Close()

	// Buffered events drain before the channel reports closed.
	ev, ok := <-sub.C()
	assert.True(t, ok)
	assert.Equal(t, "first", ev.Alert.Message)

	_, ok = <-sub.C()
	assert.False(t, ok)

	// After close: publishing is a no-op, subscribing yields nil.
	b.Publish(alertEvent("late"))
	assert.Nil(t, b.Subscribe(2))
}
