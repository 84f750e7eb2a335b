// Package clock abstracts the current instant and the locale formatting of
// instants, so the pipeline's "today" and "last ten minutes" windows can be
// driven deterministically in tests.
package clock

import (
	"sync"
	"time"
)

// TimeOfDayLayout is the 24-hour time of day shown next to log lines.
const TimeOfDayLayout = "15:04:05"

// Clock provides the current instant.
type Clock interface {
	Now() time.Time
}

// Real returns a Clock backed by time.Now.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Fake returns a FakeClock stopped at initial.
func Fake(initial time.Time) *FakeClock {
	return &FakeClock{current: initial}
}

// FakeClock is a Clock whose time only moves when Set or Advance is called.
// It is safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Set moves the clock to t.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	c.mu.Unlock()
}

// Locale pins calendar dates and times of day to one location.
type Locale struct {
	Location *time.Location
}

func (l Locale) loc() *time.Location {
	if l.Location == nil {
		return time.Local
	}
	return l.Location
}

// TimeOfDay formats t as a 24-hour HH:MM:SS string in the locale.
func (l Locale) TimeOfDay(t time.Time) string {
	return t.In(l.loc()).Format(TimeOfDayLayout)
}

// SameDay reports whether a and b fall on the same calendar date in the
// locale.
func (l Locale) SameDay(a, b time.Time) bool {
	ay, am, ad := a.In(l.loc()).Date()
	by, bm, bd := b.In(l.loc()).Date()
	return ay == by && am == bm && ad == bd
}
