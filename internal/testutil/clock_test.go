package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualClock(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewManualClock(start)

	assert.Equal(t, start, c.Now())
	assert.Equal(t, c.Now(), c.Now(), "time does not move on its own")

	c.Advance(90 * time.Minute)
	assert.Equal(t, start.Add(90*time.Minute), c.Now())

	jump := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	c.Set(jump)
	assert.Equal(t, jump, c.Now())
}

func TestManualClock_ConcurrentAdvance(t *testing.T) {
	c := NewManualClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Advance(time.Second)
			_ = c.Now()
		}()
	}
	wg.Wait()

	assert.Equal(t, time.Date(2026, 3, 1, 12, 1, 40, 0, time.UTC), c.Now())
}
