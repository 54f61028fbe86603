// Package timer implements the exam countdown. Remaining time is always
// derived from the wall clock, so a suspended process catches up on resume.
package timer

import (
	"sync"
	"time"
)

// DefaultTick is how often a started timer re-evaluates the deadline.
const DefaultTick = time.Second

// Timer counts down from startedAt+limit and calls onExpire exactly once.
type Timer struct {
	startedAt time.Time
	limit     time.Duration
	onExpire  func()
	now       func() time.Time
	tick      time.Duration

	mu      sync.Mutex
	fired   bool
	stopped bool
	done    chan struct{}
	started bool
	// inflight covers a running onExpire so Stop can wait it out.
	inflight sync.WaitGroup
}

// Option customizes a Timer.
type Option func(*Timer)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Timer) { t.now = now }
}

// WithTick sets the evaluation interval of Start.
func WithTick(d time.Duration) Option {
	return func(t *Timer) {
		if d > 0 {
			t.tick = d
		}
	}
}

// New creates a stopped timer. Negative limits are treated as zero.
func New(startedAt time.Time, limitSec int, onExpire func(), opts ...Option) *Timer {
	if limitSec < 0 {
		limitSec = 0
	}
	t := &Timer{
		startedAt: startedAt,
		limit:     time.Duration(limitSec) * time.Second,
		onExpire:  onExpire,
		now:       time.Now,
		tick:      DefaultTick,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Remaining returns the time left, never negative.
func (t *Timer) Remaining() time.Duration {
	left := t.limit - t.now().Sub(t.startedAt)
	if left < 0 {
		return 0
	}
	return left
}

// Expired reports whether the deadline has passed.
func (t *Timer) Expired() bool {
	return t.Remaining() == 0
}

// Check evaluates the deadline once and fires the callback if it has passed
// and the timer is neither stopped nor already fired. It reports whether the
// timer is expired.
func (t *Timer) Check() bool {
	if !t.Expired() {
		return false
	}

	t.mu.Lock()
	if t.fired || t.stopped {
		t.mu.Unlock()
		return true
	}
	t.fired = true
	t.inflight.Add(1)
	t.mu.Unlock()
	defer t.inflight.Done()

	if t.onExpire != nil {
		t.onExpire()
	}
	return true
}

// Start evaluates immediately and then on every tick until the callback has
// fired or Stop is called. Calling Start more than once has no effect.
func (t *Timer) Start() {
	t.mu.Lock()
	if t.started || t.stopped {
		t.mu.Unlock()
		return
	}
	t.started = true
	t.mu.Unlock()

	if t.Check() {
		return
	}

	go func() {
		ticker := time.NewTicker(t.tick)
		defer ticker.Stop()
		for {
			select {
			case <-t.done:
				return
			case <-ticker.C:
				if t.Check() {
					return
				}
			}
		}
	}()
}

// Stop cancels the timer and waits for a callback already in progress, so
// no callback runs after Stop returns. Safe to call repeatedly and
// concurrently, but not from inside the callback itself.
func (t *Timer) Stop() {
	t.mu.Lock()
	if !t.stopped {
		t.stopped = true
		close(t.done)
	}
	t.mu.Unlock()
	t.inflight.Wait()
}

// Fired reports whether the expiry callback has been invoked.
func (t *Timer) Fired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fired
}
