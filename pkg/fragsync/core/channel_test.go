package core

import (
	"math/rand"
	"testing"

	"github.com/jabolina/go-fragsync/pkg/fragsync/types"
)

type recordingReceiver struct {
	received []types.Message
	times    []float64
	sched    *Scheduler
}

func (r *recordingReceiver) Receive(m types.Message) {
	r.received = append(r.received, m)
	if r.sched != nil {
		r.times = append(r.times, r.sched.Now())
	}
}

func mustUniform(t *testing.T, rng *rand.Rand, lo, hi float64) *Uniform {
	t.Helper()
	u, err := NewUniform(rng, lo, hi)
	if err != nil {
		t.Fatalf("new uniform: %v", err)
	}
	return u
}

func TestChannelDeliversInFIFOOrderUnderNoLoss(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	sched := NewScheduler()
	ch, err := NewChannel(sched, rng, mustUniform(t, rng, 1, 2), 0.0, nil)
	if err != nil {
		t.Fatalf("new channel: %v", err)
	}

	recv := &recordingReceiver{}
	for i := 0; i < 5; i++ {
		ch.Enqueue(recv, types.NewReset("sender", 1, uint16(i)))
	}

	if err := sched.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(recv.received) != 5 {
		t.Fatalf("received %d messages, want 5", len(recv.received))
	}
	for i, m := range recv.received {
		reset := m.(types.Reset)
		if int(reset.N) != i {
			t.Fatalf("message %d out of order: got N=%d", i, reset.N)
		}
	}
}

func TestChannelClearDropsInFlightAndQueued(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	sched := NewScheduler()
	ch, err := NewChannel(sched, rng, mustUniform(t, rng, 1, 1), 0.0, nil)
	if err != nil {
		t.Fatalf("new channel: %v", err)
	}

	recv := &recordingReceiver{}
	ch.Enqueue(recv, types.NewReset("sender", 1, 1))
	ch.Enqueue(recv, types.NewReset("sender", 1, 2))
	ch.Clear()

	if err := sched.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(recv.received) != 0 {
		t.Fatalf("expected no deliveries after Clear, got %d", len(recv.received))
	}
	if sched.EventCount() != 0 {
		t.Fatalf("cleared timer must not count as dispatched, got %d", sched.EventCount())
	}
}

// TestChannelAtMostOneTimerInFlight drives the channel to completion and
// checks that each of the three messages was delivered at a distinct,
// strictly increasing virtual time spaced by the fixed uniform(1,1)
// delay: proof that the channel never pipelines more than one timer,
// since overlapping timers would deliver two messages at the same
// instant or out of the 1-second cadence.
func TestChannelAtMostOneTimerInFlight(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	sched := NewScheduler()
	ch, err := NewChannel(sched, rng, mustUniform(t, rng, 1, 1), 0.0, nil)
	if err != nil {
		t.Fatalf("new channel: %v", err)
	}
	recv := &recordingReceiver{sched: sched}
	ch.Enqueue(recv, types.NewReset("sender", 1, 1))
	ch.Enqueue(recv, types.NewReset("sender", 1, 2))
	ch.Enqueue(recv, types.NewReset("sender", 1, 3))

	if err := sched.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}

	want := []float64{1, 2, 3}
	if len(recv.times) != len(want) {
		t.Fatalf("got %d deliveries, want %d", len(recv.times), len(want))
	}
	for i, wt := range want {
		if recv.times[i] != wt {
			t.Fatalf("delivery %d at time %f, want %f (timers must run strictly one at a time)", i, recv.times[i], wt)
		}
	}
}

func TestChannelRejectsInvalidLossRate(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	sched := NewScheduler()
	if _, err := NewChannel(sched, rng, mustUniform(t, rng, 0, 1), -0.1, nil); err == nil {
		t.Fatalf("expected error for negative loss rate")
	}
	if _, err := NewChannel(sched, rng, mustUniform(t, rng, 0, 1), 1.1, nil); err == nil {
		t.Fatalf("expected error for loss rate > 1")
	}
}

func TestChannelRejectsNilRng(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	sched := NewScheduler()
	if _, err := NewChannel(sched, nil, mustUniform(t, rng, 0, 1), 0, nil); err == nil {
		t.Fatalf("expected error for nil rng")
	}
}
