package core

import "testing"

func TestSchedulerOrdersByFiringTimeThenSerial(t *testing.T) {
	sched := NewScheduler()
	var order []string

	sched.Schedule(MustNewEvent(2, func(interface{}) { order = append(order, "b") }, nil))
	sched.Schedule(MustNewEvent(1, func(interface{}) { order = append(order, "a") }, nil))
	sched.Schedule(MustNewEvent(1, func(interface{}) { order = append(order, "a2") }, nil))

	if err := sched.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}

	want := []string{"a", "a2", "b"}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got %v, want %v", order, want)
		}
	}
}

func TestSchedulerVirtualTimeNeverDecreases(t *testing.T) {
	sched := NewScheduler()
	var last float64
	cb := func(interface{}) {
		if sched.Now() < last {
			t.Fatalf("time went backwards: now=%f last=%f", sched.Now(), last)
		}
		last = sched.Now()
	}
	sched.Schedule(MustNewEvent(5, cb, nil))
	sched.Schedule(MustNewEvent(1, cb, nil))
	sched.Schedule(MustNewEvent(3, cb, nil))
	if err := sched.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestSchedulerRunCountStopsAfterActiveEvents(t *testing.T) {
	sched := NewScheduler()
	fired := 0
	cb := func(interface{}) { fired++ }
	for i := 0; i < 5; i++ {
		sched.Schedule(MustNewEvent(float64(i), cb, nil))
	}
	if err := sched.RunCount(3); err != nil {
		t.Fatalf("run count: %v", err)
	}
	if fired != 3 {
		t.Fatalf("fired = %d, want 3", fired)
	}
	// The 4th event (firing=3) is popped to discover it trips the stop
	// count, and is discarded rather than requeued: only the 5th event
	// (firing=4) remains pending.
	if sched.Pending() != 1 {
		t.Fatalf("pending = %d, want 1", sched.Pending())
	}
	if sched.Now() != 3 {
		t.Fatalf("now = %f, want 3 (virtual time advances to the discarded stopping event)", sched.Now())
	}
}

func TestSchedulerRunCountIgnoresInactiveEvents(t *testing.T) {
	sched := NewScheduler()
	fired := 0
	cb := func(interface{}) { fired++ }
	e1 := MustNewEvent(0, cb, nil)
	e2 := MustNewEvent(1, cb, nil)
	sched.Schedule(e1)
	sched.Schedule(e2)
	e1.SetInactive()

	if err := sched.RunCount(1); err != nil {
		t.Fatalf("run count: %v", err)
	}
	if fired != 1 {
		t.Fatalf("fired = %d, want 1 (inactive dispatch shouldn't count)", fired)
	}
	if sched.EventCount() != 1 {
		t.Fatalf("event count = %d, want 1", sched.EventCount())
	}
}

func TestSchedulerRunUntilIsExclusiveAtBoundary(t *testing.T) {
	sched := NewScheduler()
	fired := false
	sched.Schedule(MustNewEvent(10, func(interface{}) { fired = true }, nil))

	if err := sched.RunUntil(10); err != nil {
		t.Fatalf("run until: %v", err)
	}
	if fired {
		t.Fatalf("event firing exactly at stop_time must not execute")
	}
	// The boundary event is popped to discover it trips stop_time, then
	// discarded rather than requeued: virtual time still advances to
	// its firing time, but it does not remain pending.
	if sched.Pending() != 0 {
		t.Fatalf("pending = %d, want 0", sched.Pending())
	}
	if sched.Now() != 10 {
		t.Fatalf("now = %f, want 10", sched.Now())
	}
}

func TestSchedulerRejectsReentrantRun(t *testing.T) {
	sched := NewScheduler()
	var reentryErr error
	sched.Schedule(MustNewEvent(0, func(interface{}) {
		reentryErr = sched.Run()
	}, nil))

	if err := sched.Run(); err != nil {
		t.Fatalf("outer run: %v", err)
	}
	if reentryErr != ErrSchedulerRunning {
		t.Fatalf("reentrant run error = %v, want %v", reentryErr, ErrSchedulerRunning)
	}
}

func TestSchedulerDiscardsInactiveEventAfterClearLikeCancellation(t *testing.T) {
	sched := NewScheduler()
	fired := false
	e := MustNewEvent(1, func(interface{}) { fired = true }, nil)
	sched.Schedule(e)
	e.SetInactive()

	if err := sched.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if fired {
		t.Fatalf("inactive event must not dispatch")
	}
	if sched.EventCount() != 0 {
		t.Fatalf("event count = %d, want 0", sched.EventCount())
	}
}
