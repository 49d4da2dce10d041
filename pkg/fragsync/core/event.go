package core

import (
	"fmt"
	"sync/atomic"
)

var eventSerial uint64

func nextEventSerial() uint64 {
	return atomic.AddUint64(&eventSerial, 1)
}

// Callback is invoked by the Scheduler when an Event fires. The payload
// is whatever was attached at scheduling time.
type Callback func(payload interface{})

// Event is a single scheduled callback. It is immutable once created
// except for the active flag, which the owner flips to false to
// request lazy cancellation; the Scheduler honors that flag at
// dispatch time and never rebalances the heap.
type Event struct {
	// Delay is the offset from "now" at scheduling time; the Scheduler
	// turns this into an absolute firing time on Schedule.
	Delay float64

	callback Callback
	data     interface{}
	serial   uint64
	firing   float64
	active   bool
}

// NewEvent creates an event that will fire `delay` virtual seconds
// after it is scheduled, invoking callback(data). A negative delay or a
// nil callback is a contract violation, reported as an error rather
// than a panic, matching the rest of the constructor surface
// (NewChannel, NewExponentialWithFloor, NewUniform).
func NewEvent(delay float64, callback Callback, data interface{}) (*Event, error) {
	if delay < 0 {
		return nil, fmt.Errorf("fragsync: event delay must be non-negative, got %f", delay)
	}
	if callback == nil {
		return nil, fmt.Errorf("fragsync: event callback must not be nil")
	}
	return &Event{
		Delay:    delay,
		callback: callback,
		data:     data,
		serial:   nextEventSerial(),
		active:   true,
	}, nil
}

// MustNewEvent is like NewEvent but panics on error. Used at call sites
// where delay is already known non-negative — a DelaySource sample or a
// validated timeout constant — so a constructor error there signals a
// bug, not bad input, the same reasoning behind go-version's Must.
func MustNewEvent(delay float64, callback Callback, data interface{}) *Event {
	event, err := NewEvent(delay, callback, data)
	if err != nil {
		panic(err)
	}
	return event
}

// Active reports whether this event is still eligible for dispatch.
func (e *Event) Active() bool {
	return e.active
}

// SetInactive marks the event so the Scheduler discards it silently
// when popped, without invoking its callback. This is the only
// supported cancellation mechanism; the heap is never rebalanced.
func (e *Event) SetInactive() {
	e.active = false
}
