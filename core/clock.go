package core

import "time"

// Clock measures monotonic elapsed time since its first reading.
type Clock struct {
	now     func() time.Time
	start   time.Time
	started bool
}

func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// NewClockWithSource lets tests drive the clock.
func NewClockWithSource(now func() time.Time) *Clock {
	return &Clock{now: now}
}

// Start resets the origin to the current instant.
func (c *Clock) Start() {
	c.start = c.now()
	c.started = true
}

// ElapsedTime returns seconds since Start, starting the clock on first use.
// Successive readings never decrease.
func (c *Clock) ElapsedTime() float64 {
	if !c.started {
		c.Start()
		return 0
	}
	d := c.now().Sub(c.start)
	if d < 0 {
		return 0
	}
	return d.Seconds()
}
