package coop

import (
	"sort"
	"time"

	"github.com/benbjohnson/clock"
)

// A TimerService is a [Service] that fires time-delayed callbacks.
//
// It is the canonical progress-step provider for time-driven programs:
// construct a Scheduler with [NewFromService], register callbacks that
// complete Futures, and await. Each idle iteration of the resolution loop
// then waits for the earliest due timer and runs its callback.
//
// A TimerService is driven by a [clock.Clock] so that tests can substitute
// a mock clock. It follows the single-threaded discipline of this package:
// register and run only from the contexts of one Scheduler.
type TimerService struct {
	clk    clock.Clock
	timers []timer
}

type timer struct {
	deadline time.Time
	f        func()
}

// NewTimerService creates a TimerService on clk. A nil clk selects the
// wall clock.
func NewTimerService(clk clock.Clock) *TimerService {
	if clk == nil {
		clk = clock.New()
	}
	return &TimerService{clk: clk}
}

// AfterFunc registers f to run d from now. Registration order breaks ties
// between equal deadlines.
func (ts *TimerService) AfterFunc(d time.Duration, f func()) {
	t := timer{deadline: ts.clk.Now().Add(d), f: f}
	i := sort.Search(len(ts.timers), func(i int) bool {
		return t.deadline.Before(ts.timers[i].deadline)
	})
	ts.timers = append(ts.timers, timer{})
	copy(ts.timers[i+1:], ts.timers[i:])
	ts.timers[i] = t
}

// Len reports the number of registered timers that have not fired.
func (ts *TimerService) Len() int {
	return len(ts.timers)
}

// RunOne waits until the earliest registered timer is due, runs its
// callback, and reports whether a callback ran. With no timers registered
// it reports false immediately.
func (ts *TimerService) RunOne() bool {
	if len(ts.timers) == 0 {
		return false
	}
	t := ts.timers[0]
	ts.timers[0] = timer{}
	ts.timers = ts.timers[1:]
	if d := t.deadline.Sub(ts.clk.Now()); d > 0 {
		ts.clk.Sleep(d)
	}
	t.f()
	return true
}
