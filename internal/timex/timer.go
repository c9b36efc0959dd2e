package timex

import (
	"sync"
	"time"
)

// Timer is the part of *time.Timer callers need to cancel a deferred call.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f to run once after d, like time.AfterFunc.
type AfterFunc func(d time.Duration, f func()) Timer

// RealAfterFunc is the AfterFunc backed by the runtime timer.
func RealAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// ManualTimers is an AfterFunc whose calls only run when fired explicitly.
// Zero value is ready to use.
type ManualTimers struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	mu      *sync.Mutex
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// AfterFunc records f; pass m.AfterFunc wherever an AfterFunc is expected.
func (m *ManualTimers) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTimer{mu: &m.mu, d: d, f: f}
	m.timers = append(m.timers, t)
	return t
}

// Len returns how many calls were scheduled so far.
func (m *ManualTimers) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// Duration returns the delay the i-th call was scheduled with.
func (m *ManualTimers) Duration(i int) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timers[i].d
}

// Active returns the number of scheduled calls neither stopped nor fired.
func (m *ManualTimers) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// Fire runs the i-th scheduled call even if it was stopped, which models a
// runtime timer that already started firing when Stop was called.
func (m *ManualTimers) Fire(i int) {
	m.mu.Lock()
	t := m.timers[i]
	t.fired = true
	m.mu.Unlock()
	t.f()
}

// FireLast runs the most recently scheduled call.
func (m *ManualTimers) FireLast() {
	m.Fire(m.Len() - 1)
}
