package sched

import (
	"testing"
	"time"
)

func TestAdvanceFiresInDeadlineOrder(t *testing.T) {
	s := New()
	var got []string
	s.After(300*time.Millisecond, func() { got = append(got, "c") })
	s.After(100*time.Millisecond, func() { got = append(got, "a") })
	s.After(200*time.Millisecond, func() { got = append(got, "b") })

	if n := s.Advance(250 * time.Millisecond); n != 2 {
		t.Fatalf("expected 2 callbacks, got %d", n)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("expected [a b], got %v", got)
	}
	s.Advance(50 * time.Millisecond)
	if len(got) != 3 || got[2] != "c" {
		t.Fatalf("expected c to fire at 300ms, got %v", got)
	}
	if s.Now() != 300*time.Millisecond {
		t.Errorf("expected now=300ms, got %v", s.Now())
	}
}

func TestEqualDeadlinesFireFIFO(t *testing.T) {
	s := New()
	var got []int
	for i := 0; i < 5; i++ {
		i := i
		s.After(time.Second, func() { got = append(got, i) })
	}
	s.Advance(time.Second)
	for i, v := range got {
		if v != i {
			t.Fatalf("expected FIFO order, got %v", got)
		}
	}
}

func TestNowDuringCallbackIsDeadline(t *testing.T) {
	s := New()
	var seen time.Duration
	s.After(40*time.Millisecond, func() { seen = s.Now() })
	s.Advance(100 * time.Millisecond)
	if seen != 40*time.Millisecond {
		t.Errorf("expected callback to see 40ms, got %v", seen)
	}
	if s.Now() != 100*time.Millisecond {
		t.Errorf("expected now=100ms after advance, got %v", s.Now())
	}
}

func TestCancelPreventsFiring(t *testing.T) {
	s := New()
	fired := false
	h := s.After(time.Second, func() { fired = true })
	if !h.Active() {
		t.Fatal("expected handle to be active")
	}
	if !h.Cancel() {
		t.Fatal("expected Cancel to report a pending callback")
	}
	if h.Cancel() {
		t.Error("second Cancel should report false")
	}
	s.Advance(2 * time.Second)
	if fired {
		t.Error("cancelled callback fired")
	}
	if s.Pending() != 0 {
		t.Errorf("expected no pending callbacks, got %d", s.Pending())
	}
}

func TestCallbackScheduledDuringAdvance(t *testing.T) {
	s := New()
	var got []time.Duration
	s.After(100*time.Millisecond, func() {
		got = append(got, s.Now())
		s.After(50*time.Millisecond, func() { got = append(got, s.Now()) })
	})
	s.Advance(200 * time.Millisecond)
	if len(got) != 2 || got[1] != 150*time.Millisecond {
		t.Fatalf("expected chained callback at 150ms, got %v", got)
	}
}

func TestTimerResetCancelsPrevious(t *testing.T) {
	s := New()
	tm := s.NewTimer()
	count := 0
	tm.Reset(time.Second, func() { count += 1 })
	s.Advance(500 * time.Millisecond)
	tm.Reset(time.Second, func() { count += 10 })
	s.Advance(600 * time.Millisecond)
	if count != 0 {
		t.Fatalf("first callback should have been cancelled, count=%d", count)
	}
	s.Advance(400 * time.Millisecond)
	if count != 10 {
		t.Errorf("expected only the rescheduled callback, count=%d", count)
	}
	if tm.Active() {
		t.Error("timer should be idle after firing")
	}
}

func TestTimerStop(t *testing.T) {
	s := New()
	tm := s.NewTimer()
	if tm.Stop() {
		t.Error("stopping an idle timer should report false")
	}
	fired := false
	tm.Reset(time.Second, func() { fired = true })
	if !tm.Stop() {
		t.Error("expected Stop to cancel a pending callback")
	}
	s.Advance(time.Minute)
	if fired {
		t.Error("stopped timer fired")
	}
}

func TestNegativeValuesClamp(t *testing.T) {
	s := New()
	fired := false
	s.After(-time.Second, func() { fired = true })
	s.Advance(-time.Second)
	if !fired {
		t.Error("negative delay should fire on the next advance")
	}
	if s.Now() != 0 {
		t.Errorf("negative advance must not rewind, got %v", s.Now())
	}
}

func TestZeroHandleIsInert(t *testing.T) {
	var h Handle
	if h.Cancel() || h.Active() {
		t.Error("zero handle should be inert")
	}
}
