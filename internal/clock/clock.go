// Package clock mints mutation timestamps. Postgres now() is fixed per
// transaction and can repeat across rapid successive updates, so updated_at
// values are generated in-process with a strict monotonicity guarantee.
package clock

import (
	"sync"
	"time"
)

// Clock hands out strictly increasing UTC timestamps.
type Clock struct {
	mu   sync.Mutex
	last time.Time
}

func New() *Clock { return &Clock{} }

// Now returns the current UTC time, nudged forward by a microsecond when the
// wall clock has not advanced since the previous call. Two calls never return
// the same value and later calls never return an earlier one.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC()
	if !now.After(c.last) {
		now = c.last.Add(time.Microsecond)
	}
	c.last = now
	return now
}
