package core

import (
	"container/heap"
	"errors"
	"fmt"
)

// ErrSchedulerRunning is returned by Run/RunUntil/RunCount when called
// reentrantly from within an already-running dispatch loop.
var ErrSchedulerRunning = errors.New("fragsync: scheduler is already running")

// eventHeap orders scheduled events by (firing time, serial id), giving
// stable FIFO ordering among events scheduled for the same virtual
// instant. Shaped after a timer-wheel priority queue, generalized here
// from wall-clock dispatch to virtual time.
type eventHeap []*Event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].firing != h[j].firing {
		return h[i].firing < h[j].firing
	}
	return h[i].serial < h[j].serial
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x interface{}) {
	*h = append(*h, x.(*Event))
}

func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Scheduler is a single-threaded, cooperative, virtual-time event
// loop: a min-heap of timed callbacks driven to completion by Run,
// RunUntil or RunCount. Reentrancy into any Run* method is forbidden.
type Scheduler struct {
	now     float64
	pq      eventHeap
	count   uint64
	running bool
}

// NewScheduler returns a Scheduler with virtual time at zero.
func NewScheduler() *Scheduler {
	s := &Scheduler{pq: make(eventHeap, 0)}
	heap.Init(&s.pq)
	return s
}

// Now returns the current virtual time.
func (s *Scheduler) Now() float64 {
	return s.now
}

// EventCount returns the number of active events dispatched so far.
func (s *Scheduler) EventCount() uint64 {
	return s.count
}

// Pending returns the number of events still in the heap (active or
// not; inactive ones are discarded lazily when popped).
func (s *Scheduler) Pending() int {
	return len(s.pq)
}

// Schedule inserts event, to fire at Now()+event.Delay.
func (s *Scheduler) Schedule(event *Event) {
	event.firing = s.now + event.Delay
	heap.Push(&s.pq, event)
}

// Run drains the heap until it is empty, advancing virtual time to
// each popped event's firing time and invoking active callbacks.
func (s *Scheduler) Run() error {
	return s.run(nil, nil)
}

// RunUntil runs until the heap is empty or the next event's firing
// time is >= stopTime, whichever comes first. The boundary is
// inclusive-exclusive: an event firing exactly at stopTime does not
// execute. That stopping event is popped and discarded, not requeued:
// virtual time still advances to its firing time, matching the
// pop-first, check-after algorithm below.
func (s *Scheduler) RunUntil(stopTime float64) error {
	return s.run(&stopTime, nil)
}

// RunCount runs until exactly count additional *active* events have
// been dispatched (inactive pops are discarded without counting), or
// the heap empties first. As with RunUntil, the event that trips the
// stop condition is popped and discarded rather than left pending.
func (s *Scheduler) RunCount(count uint64) error {
	target := s.count + count
	return s.run(nil, &target)
}

func (s *Scheduler) run(stopTime *float64, stopCount *uint64) error {
	if s.running {
		return ErrSchedulerRunning
	}
	s.running = true
	defer func() { s.running = false }()

	for len(s.pq) > 0 {
		event := heap.Pop(&s.pq).(*Event)
		s.now = event.firing

		if stopTime != nil && event.firing >= *stopTime {
			break
		}
		if stopCount != nil && s.count >= *stopCount {
			break
		}

		if !event.active {
			continue
		}

		s.count++
		event.callback(event.data)
	}

	return nil
}

// String renders the simulation-stopping summary line: events
// remaining in the heap and events executed so far.
func (s *Scheduler) String() string {
	return fmt.Sprintf("simulation stopping: %d events remaining, %d events executed", len(s.pq), s.count)
}
