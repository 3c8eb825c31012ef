// internal/shift/timer.go
package shift

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/juju/clock"
)

// DefaultDuration is the maximum length of a work shift.
const DefaultDuration = 8 * time.Hour

// DefaultThresholds are the remaining times at which a cashier is warned.
var DefaultThresholds = []time.Duration{30 * time.Minute, 15 * time.Minute, 5 * time.Minute}

// Notifier receives the events of a running shift.
type Notifier interface {
	// Warn is called once per threshold when remaining time drops to it.
	Warn(remaining time.Duration)
	// Expired is called once when the shift runs out.
	Expired()
}

// Status is a point-in-time view of a shift countdown.
type Status struct {
	Active    bool          `json:"isActive"`
	StartTime time.Time     `json:"startTime"`
	Deadline  time.Time     `json:"deadline"`
	Elapsed   time.Duration `json:"-"`
	Remaining time.Duration `json:"-"`
}

func (s Status) ElapsedSeconds() int64   { return int64(s.Elapsed / time.Second) }
func (s Status) RemainingSeconds() int64 { return int64(s.Remaining / time.Second) }

// Timer counts down to a fixed deadline. Remaining time is always derived
// from the deadline and the clock, never accumulated.
type Timer struct {
	clock      clock.Clock
	start      time.Time
	deadline   time.Time
	thresholds []time.Duration
	notifier   Notifier

	mu       sync.Mutex
	next     int
	expired  bool
	stopOnce sync.Once
	stopped  chan struct{}
}

// NewTimer starts a countdown of duration from start. Thresholds already
// behind at construction time are treated as delivered.
func NewTimer(clk clock.Clock, start time.Time, duration time.Duration, thresholds []time.Duration, notifier Notifier) *Timer {
	ts := append([]time.Duration(nil), thresholds...)
	sort.Slice(ts, func(i, j int) bool { return ts[i] > ts[j] })
	t := &Timer{
		clock:      clk,
		start:      start,
		deadline:   start.Add(duration),
		thresholds: ts,
		notifier:   notifier,
		stopped:    make(chan struct{}),
	}
	remaining := t.deadline.Sub(clk.Now())
	for t.next < len(ts) && remaining <= ts[t.next] {
		t.next++
	}
	return t
}

func (t *Timer) Start() time.Time    { return t.start }
func (t *Timer) Deadline() time.Time { return t.deadline }

func (t *Timer) Status() Status {
	now := t.clock.Now()
	elapsed := now.Sub(t.start).Truncate(time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := t.deadline.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	remaining = remaining.Truncate(time.Second)

	t.mu.Lock()
	active := !t.expired
	t.mu.Unlock()
	return Status{
		Active:    active,
		StartTime: t.start,
		Deadline:  t.deadline,
		Elapsed:   elapsed,
		Remaining: remaining,
	}
}

// Check evaluates the countdown against the clock, delivering at most one
// warning and the expiry. It reports whether the shift has expired.
func (t *Timer) Check() bool {
	remaining := t.deadline.Sub(t.clock.Now())

	t.mu.Lock()
	if t.expired {
		t.mu.Unlock()
		return true
	}
	var warn time.Duration
	warned := false
	for t.next < len(t.thresholds) && remaining <= t.thresholds[t.next] {
		warn = t.thresholds[t.next]
		warned = true
		t.next++
	}
	expired := remaining <= 0
	if expired {
		t.expired = true
	}
	t.mu.Unlock()

	if t.notifier == nil {
		return expired
	}
	if warned && !expired {
		t.notifier.Warn(warn)
	}
	if expired {
		t.notifier.Expired()
	}
	return expired
}

// untilNext returns how long to wait before the next warning or the expiry.
func (t *Timer) untilNext() time.Duration {
	remaining := t.deadline.Sub(t.clock.Now())
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.next < len(t.thresholds) {
		if wait := remaining - t.thresholds[t.next]; wait > 0 {
			return wait
		}
		return 0
	}
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Run drives the timer until it expires, is stopped or ctx is done. A single
// clock timer is armed for the next event rather than polling.
func (t *Timer) Run(ctx context.Context) error {
	for {
		if t.Check() {
			return nil
		}
		wait := t.clock.NewTimer(t.untilNext())
		select {
		case <-ctx.Done():
			wait.Stop()
			return ctx.Err()
		case <-t.stopped:
			wait.Stop()
			return nil
		case <-wait.Chan():
		}
	}
}

// Stop ends Run without delivering the expiry.
func (t *Timer) Stop() {
	t.stopOnce.Do(func() { close(t.stopped) })
}

// FormatDuration renders d as HH:MM:SS.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}
