// internal/shift/timer_test.go
package shift

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
)

const shortWait = time.Second

func expectEvent(t *testing.T, ch <-chan string, want string) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Fatalf("event = %q, want %q", got, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %q", want)
	}
}

func TestTimer_RunSchedulesDeadlineEvents(t *testing.T) {
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	clk := testclock.NewClock(start)
	rec := newRecorder()
	timer := NewTimer(clk, start, DefaultDuration, DefaultThresholds, rec)

	done := make(chan error, 1)
	go func() { done <- timer.Run(context.Background()) }()

	if err := clk.WaitAdvance(7*time.Hour+30*time.Minute, shortWait, 1); err != nil {
		t.Fatal(err)
	}
	expectEvent(t, rec.events, "warn:00:30:00")

	if err := clk.WaitAdvance(15*time.Minute, shortWait, 1); err != nil {
		t.Fatal(err)
	}
	expectEvent(t, rec.events, "warn:00:15:00")

	if err := clk.WaitAdvance(10*time.Minute, shortWait, 1); err != nil {
		t.Fatal(err)
	}
	expectEvent(t, rec.events, "warn:00:05:00")

	if err := clk.WaitAdvance(5*time.Minute, shortWait, 1); err != nil {
		t.Fatal(err)
	}
	expectEvent(t, rec.events, "expired")

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run() did not return after expiry")
	}
	if st := timer.Status(); st.Active || st.Remaining != 0 {
		t.Errorf("Status() after expiry = %+v", st)
	}
}

func TestTimer_SkipsThresholdsBehindAtStart(t *testing.T) {
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	clk := testclock.NewClock(start.Add(7*time.Hour + 50*time.Minute))
	rec := newRecorder()
	timer := NewTimer(clk, start, DefaultDuration, DefaultThresholds, rec)

	if timer.Check() {
		t.Fatalf("Check() reported expiry with ten minutes left")
	}
	warnings, _ := rec.snapshot()
	if len(warnings) != 0 {
		t.Errorf("thresholds already passed were re-delivered: %v", warnings)
	}
	clk.Advance(6 * time.Minute)
	timer.Check()
	warnings, _ = rec.snapshot()
	if len(warnings) != 1 || warnings[0] != 5*time.Minute {
		t.Errorf("warnings = %v, want [5m]", warnings)
	}
}

func TestTimer_StopEndsRunWithoutExpiry(t *testing.T) {
	start := time.Now()
	clk := testclock.NewClock(start)
	rec := newRecorder()
	timer := NewTimer(clk, start, time.Hour, nil, rec)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := timer.Run(context.Background()); err != nil {
			t.Errorf("Run() error = %v", err)
		}
	}()
	if err := clk.WaitAdvance(time.Minute, shortWait, 1); err != nil {
		t.Fatal(err)
	}
	timer.Stop()
	wg.Wait()
	if _, expired := rec.snapshot(); expired != 0 {
		t.Errorf("Stop() delivered expiry")
	}
}

func TestTimer_RunHonoursContext(t *testing.T) {
	clk := testclock.NewClock(time.Now())
	timer := NewTimer(clk, clk.Now(), time.Hour, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := timer.Run(ctx); err != context.Canceled {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00"},
		{-time.Second, "00:00:00"},
		{DefaultDuration, "08:00:00"},
		{25200 * time.Second, "07:00:00"},
		{time.Hour + 2*time.Minute + 3*time.Second, "01:02:03"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
