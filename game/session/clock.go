package session

import (
	"sync"
	"time"
)

// Clock is a restartable, cancellable countdown. Each Arm fires its callback
// at most once; arming again or cancelling stops the previous countdown.
//
// Stopping a countdown that has already fired cannot recall the callback.
// Callers that need exactly-once semantics across re-arms must check their
// own state inside the callback, as Manager does with the move sequence.
type Clock struct {
	timer *time.Timer
	mu    sync.Mutex
}

// Arm starts a countdown of d that calls fn on expiry.
func (c *Clock) Arm(d time.Duration, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(d, fn)
}

// Cancel stops the countdown. It reports whether a pending countdown was
// stopped before firing.
func (c *Clock) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer == nil {
		return false
	}
	stopped := c.timer.Stop()
	c.timer = nil
	return stopped
}
