package schedule

import (
	"sync"
	"time"
)

// fakeClock advances instantly whenever a caller waits on it.
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	steps []time.Duration

	// afterStep runs once per After call with the advanced time.
	afterStep func(now time.Time)
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.steps = append(c.steps, d)
	c.now = c.now.Add(d)
	now, hook := c.now, c.afterStep
	c.mu.Unlock()

	if hook != nil {
		hook(now)
	}
	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Steps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.steps...)
}
