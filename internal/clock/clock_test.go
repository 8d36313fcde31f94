package clock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNowStrictlyIncreases(t *testing.T) {
	c := New()

	prev := c.Now()
	for i := 0; i < 10000; i++ {
		next := c.Now()
		assert.True(t, next.After(prev), "call %d: %v must be after %v", i, next, prev)
		prev = next
	}
}

func TestNowConcurrentCallsAreDistinct(t *testing.T) {
	c := New()

	const n = 1000
	var mu sync.Mutex
	seen := make(map[int64]bool, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ts := c.Now().UnixNano()
			mu.Lock()
			defer mu.Unlock()
			assert.False(t, seen[ts], "duplicate timestamp %d", ts)
			seen[ts] = true
		}()
	}
	wg.Wait()
}
