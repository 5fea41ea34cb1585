package mock

import (
	"sync"
	"time"

	"pagecms/internal/clock"
)

// MockClock implements clock.Clock with a controllable time value.
// Timers only fire when Advance or Set moves the clock past their
// deadline, which lets tests drive a poll loop tick by tick.
//
// Every timer creation is reported on the channel returned by Timers, so a
// test can wait until the code under test is blocked on a timer and learn
// the duration it asked for.
type MockClock struct {
	mu      sync.Mutex
	current time.Time
	timers  []*mockTimer
	created chan time.Duration
}

// NewMockClock creates a new mock clock initialized to the given time.
// If t is zero, the clock is initialized to the current time.
func NewMockClock(t time.Time) *MockClock {
	if t.IsZero() {
		t = time.Now()
	}
	return &MockClock{
		current: t,
		created: make(chan time.Duration, 256),
	}
}

// Now returns the current time according to this mock clock.
func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// NewTimer registers a timer that fires once the clock reaches now+d.
func (m *MockClock) NewTimer(d time.Duration) clock.Timer {
	m.mu.Lock()
	timer := &mockTimer{
		clock:    m,
		deadline: m.current.Add(d),
		ch:       make(chan time.Time, 1),
	}
	if d <= 0 {
		timer.fired = true
		timer.ch <- m.current
	} else {
		m.timers = append(m.timers, timer)
	}
	m.mu.Unlock()

	select {
	case m.created <- d:
	default:
	}
	return timer
}

// Timers reports the duration of every timer created on this clock, in
// creation order.
func (m *MockClock) Timers() <-chan time.Duration {
	return m.created
}

// Advance moves the clock forward by the given duration and fires every
// timer whose deadline has been reached.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	m.current = m.current.Add(d)
	m.fireLocked()
	m.mu.Unlock()
}

// Set sets the clock to a specific time.
func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	m.current = t
	m.fireLocked()
	m.mu.Unlock()
}

// PendingTimers returns the number of timers that are neither stopped nor fired.
func (m *MockClock) PendingTimers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

func (m *MockClock) fireLocked() {
	remaining := m.timers[:0]
	for _, t := range m.timers {
		if !m.current.Before(t.deadline) {
			t.fired = true
			t.ch <- m.current
			continue
		}
		remaining = append(remaining, t)
	}
	m.timers = remaining
}

func (m *MockClock) removeLocked(target *mockTimer) {
	for i, t := range m.timers {
		if t == target {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return
		}
	}
}

type mockTimer struct {
	clock    *MockClock
	deadline time.Time
	ch       chan time.Time
	fired    bool
	stopped  bool
}

func (t *mockTimer) C() <-chan time.Time { return t.ch }

func (t *mockTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	t.clock.removeLocked(t)
	return true
}
