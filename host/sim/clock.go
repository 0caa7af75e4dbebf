package sim

import (
	"sync/atomic"
	"time"
)

// Clock is a manually advanced microsecond clock. Install it with
// core.SetClockSource(c.Now).
type Clock struct {
	now atomic.Uint64
}

func (c *Clock) Now() uint64 {
	return c.now.Load()
}

func (c *Clock) Advance(d time.Duration) {
	c.now.Add(uint64(d / time.Microsecond))
}

func (c *Clock) Set(us uint64) {
	c.now.Store(us)
}
