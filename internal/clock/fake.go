package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake is a deterministic Clock. Time only moves when Advance is called.
//
// AfterFunc callbacks run synchronously inside Advance, in deadline
// order. Callbacks must not call Advance.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	waiters []*fakeWaiter
}

type fakeWaiter struct {
	deadline time.Time
	callback func()         // AfterFunc
	ch       chan time.Time // ticker
	interval time.Duration
	stopped  bool
	fired    bool
}

// NewFake returns a Fake clock set to start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the fake time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// AfterFunc registers fn to run once the clock passes now+d.
func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	w := &fakeWaiter{deadline: f.now.Add(d), callback: fn}
	f.waiters = append(f.waiters, w)
	f.mu.Unlock()
	return &fakeTimer{clock: f, w: w}
}

// NewTicker registers a periodic waiter. Panics if d <= 0.
func (f *Fake) NewTicker(d time.Duration) Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}
	f.mu.Lock()
	w := &fakeWaiter{deadline: f.now.Add(d), ch: make(chan time.Time, 1), interval: d}
	f.waiters = append(f.waiters, w)
	f.mu.Unlock()
	return &fakeTicker{clock: f, w: w}
}

// Pending returns the number of timers and tickers that have not fired
// or been stopped.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, w := range f.waiters {
		if !w.stopped && !w.fired {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d and fires everything that came due.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()

	for {
		f.mu.Lock()
		w := f.nextDueLocked(target)
		if w == nil {
			f.now = target
			f.compactLocked()
			f.mu.Unlock()
			return
		}

		f.now = w.deadline
		if w.interval > 0 {
			w.deadline = w.deadline.Add(w.interval)
			select {
			case w.ch <- f.now:
			default:
			}
			f.mu.Unlock()
			continue
		}

		w.fired = true
		fn := w.callback
		f.mu.Unlock()

		fn()
	}
}

func (f *Fake) nextDueLocked(target time.Time) *fakeWaiter {
	var due []*fakeWaiter
	for _, w := range f.waiters {
		if w.stopped || w.fired || w.deadline.After(target) {
			continue
		}
		due = append(due, w)
	}
	if len(due) == 0 {
		return nil
	}
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].deadline.Before(due[j].deadline)
	})
	return due[0]
}

func (f *Fake) compactLocked() {
	live := f.waiters[:0]
	for _, w := range f.waiters {
		if !w.stopped && !w.fired {
			live = append(live, w)
		}
	}
	f.waiters = live
}

type fakeTimer struct {
	clock *Fake
	w     *fakeWaiter
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.w.stopped || t.w.fired {
		return false
	}
	t.w.stopped = true
	return true
}

type fakeTicker struct {
	clock *Fake
	w     *fakeWaiter
}

func (t *fakeTicker) C() <-chan time.Time { return t.w.ch }

func (t *fakeTicker) Stop() {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	t.w.stopped = true
}
