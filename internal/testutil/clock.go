package testutil

import (
	"time"

	"github.com/calvinalkan/outline/pkg/outline"
)

// Clock provides deterministic, monotonically increasing times for tests
// that allocate node identities.
type Clock struct {
	current time.Time
	step    time.Duration
}

// NewClock returns a clock initialized to a fixed UTC start time.
func NewClock() *Clock {
	return &Clock{
		current: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		step:    time.Second,
	}
}

// Now advances the clock by one step and returns the new time.
func (c *Clock) Now() time.Time {
	c.current = c.current.Add(c.step)

	return c.current
}

// Generator returns a GNX generator with session id "test" stamped with the
// clock's next time. GNXs look like "test.20240101000001.1".
func (c *Clock) Generator() *outline.Generator {
	return outline.NewGenerator("test", c.Now())
}

// NewOutline returns an empty outline with a deterministic generator.
func NewOutline() *outline.Outline {
	return outline.New(NewClock().Generator())
}
