// Package clock supplies the current time to the account rules so that
// daily limits can be exercised across simulated day boundaries.
package clock

import (
	"sync"
	"time"
)

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// System is the wall clock.
type System struct{}

// Now returns time.Now().
func (System) Now() time.Time { return time.Now() }

// Manual is a settable clock. It is safe for concurrent use.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual returns a Manual clock stopped at t.
func NewManual(t time.Time) *Manual {
	return &Manual{now: t}
}

// Now returns the clock's current time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set moves the clock to t.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// AdvanceDays moves the clock forward n calendar days, keeping the time of day.
func (m *Manual) AdvanceDays(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.AddDate(0, 0, n)
}
