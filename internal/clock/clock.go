// Package clock provides pausable, cancelable timers on a virtual clock.
//
// Time only moves when Advance is called, so tests drive timers
// deterministically and an interactive front-end just feeds elapsed wall
// time into Advance. Pausing freezes every pending timer with
// its remaining delay; resuming re-arms it relative to the current virtual
// time, so the time spent paused never counts towards any timer.
package clock

import (
	"sync"
	"time"
)

// Handle identifies a scheduled timer. The zero Handle is never issued.
type Handle uint64

type timer struct {
	id        Handle
	deadline  time.Duration // Valid while not paused
	remaining time.Duration // Valid while paused
	fn        func()
}

// Timers is a set of timers sharing one virtual clock. It is safe for
// concurrent use; callbacks run on the goroutine calling Advance, without
// any lock held, so they may schedule or cancel timers themselves.
type Timers struct {
	mu      sync.Mutex
	now     time.Duration
	paused  bool
	next    Handle
	pending map[Handle]*timer
}

// New creates an empty, running timer set.
func New() *Timers {
	return &Timers{pending: make(map[Handle]*timer)}
}

// Now returns the current virtual time.
func (t *Timers) Now() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.now
}

// Schedule runs fn after delay of virtual time. Negative delays are treated
// as zero; a zero-delay timer fires on the next Advance.
func (t *Timers) Schedule(delay time.Duration, fn func()) Handle {
	if delay < 0 {
		delay = 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.next++
	tm := &timer{id: t.next, fn: fn}
	if t.paused {
		tm.remaining = delay
	} else {
		tm.deadline = t.now + delay
	}
	t.pending[tm.id] = tm
	return tm.id
}

// Cancel removes a pending timer. It reports whether the timer was pending.
func (t *Timers) Cancel(h Handle) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.pending[h]; !ok {
		return false
	}
	delete(t.pending, h)
	return true
}

// CancelAll removes every pending timer and returns how many were removed.
func (t *Timers) CancelAll() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(t.pending)
	clear(t.pending)
	return n
}

// Pending returns the number of timers waiting to fire.
func (t *Timers) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Remaining returns how long until h fires, and whether h is pending.
func (t *Timers) Remaining(h Handle) (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tm, ok := t.pending[h]
	if !ok {
		return 0, false
	}
	if t.paused {
		return tm.remaining, true
	}
	return tm.deadline - t.now, true
}

// Paused reports whether the timers are frozen.
func (t *Timers) Paused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.paused
}

// Pause freezes every pending timer, recording its remaining delay.
// Pausing twice is a no-op.
func (t *Timers) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.paused {
		return
	}
	t.paused = true
	for _, tm := range t.pending {
		tm.remaining = max(tm.deadline-t.now, 0)
	}
}

// Resume re-arms every frozen timer with its recorded remaining delay.
func (t *Timers) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.paused {
		return
	}
	t.paused = false
	for _, tm := range t.pending {
		tm.deadline = t.now + tm.remaining
		tm.remaining = 0
	}
}

// Toggle flips the paused state and returns the new state.
func (t *Timers) Toggle() bool {
	if t.Paused() {
		t.Resume()
		return false
	}
	t.Pause()
	return true
}

// Advance moves the virtual clock forward by d, firing due timers in
// deadline order (ties in scheduling order). Timers scheduled by callbacks
// fire within the same call if their deadline falls inside the window.
// While paused, time passes but nothing fires.
func (t *Timers) Advance(d time.Duration) int {
	if d < 0 {
		d = 0
	}
	t.mu.Lock()
	target := t.now + d
	fired := 0
	for !t.paused {
		tm := t.earliestLocked(target)
		if tm == nil {
			break
		}
		delete(t.pending, tm.id)
		if tm.deadline > t.now {
			t.now = tm.deadline
		}
		t.mu.Unlock()
		tm.fn()
		fired++
		t.mu.Lock()
	}
	if target > t.now {
		t.now = target
	}
	t.mu.Unlock()
	return fired
}

// Flush fires every pending timer, advancing the clock as far as needed.
// It stops after limit callbacks to guard against self-rescheduling loops.
func (t *Timers) Flush(limit int) int {
	fired := 0
	for fired < limit {
		t.mu.Lock()
		if t.paused || len(t.pending) == 0 {
			t.mu.Unlock()
			break
		}
		tm := t.earliestLocked(-1)
		wait := max(tm.deadline-t.now, 0)
		t.mu.Unlock()

		// Advance fires every timer due by then, possibly more than one.
		n := t.Advance(wait)
		if n == 0 {
			break
		}
		fired += n
	}
	return fired
}

// earliestLocked returns the pending timer with the smallest deadline not
// after target, or any pending timer when target is negative.
func (t *Timers) earliestLocked(target time.Duration) *timer {
	var best *timer
	for _, tm := range t.pending {
		if target >= 0 && tm.deadline > target {
			continue
		}
		if best == nil || tm.deadline < best.deadline || (tm.deadline == best.deadline && tm.id < best.id) {
			best = tm
		}
	}
	return best
}
