package core

import (
	"fmt"
	"math/rand"

	"github.com/jabolina/go-fragsync/pkg/fragsync/definition"
	"github.com/jabolina/go-fragsync/pkg/fragsync/types"
)

// Receiver accepts delivered messages. A Peer implements this for its
// counterpart's outbound Channel to call into.
type Receiver interface {
	Receive(message types.Message)
}

type outbound struct {
	destination Receiver
	message     types.Message
}

// Channel is a per-sender, lossy, FIFO outbound pipe. At most one
// timer is ever in flight: messages are drained strictly one at a
// time, each delayed independently by the injected DelaySource, never
// pipelined.
type Channel struct {
	sched    *Scheduler
	rng      *rand.Rand
	delay    DelaySource
	lossRate float64
	log      definition.Logger

	queue   []outbound
	pending *Event
}

// NewChannel builds a Channel scheduled on sched, sampling delays from
// delay and dropping each head-of-line message independently with
// probability lossRate. rng backs the drop decision; callers should
// pass the same *rand.Rand their DelaySource and Peer use, so a whole
// Trial draws from one ordered, single-threaded sequence.
func NewChannel(sched *Scheduler, rng *rand.Rand, delay DelaySource, lossRate float64, log definition.Logger) (*Channel, error) {
	if lossRate < 0 || lossRate > 1 {
		return nil, fmt.Errorf("fragsync: channel loss rate must be in [0,1], got %f", lossRate)
	}
	if sched == nil || delay == nil {
		return nil, fmt.Errorf("fragsync: channel requires a scheduler and delay source")
	}
	if rng == nil {
		return nil, fmt.Errorf("fragsync: channel requires a non-nil rng")
	}
	if log == nil {
		log = definition.NopLogger{}
	}
	return &Channel{sched: sched, rng: rng, delay: delay, lossRate: lossRate, log: log}, nil
}

// Enqueue appends (destination, message) to the FIFO. If the queue was
// empty, a timer is armed immediately for the new head.
func (c *Channel) Enqueue(destination Receiver, message types.Message) {
	c.queue = append(c.queue, outbound{destination: destination, message: message})
	if len(c.queue) == 1 {
		c.armTimer()
	}
}

// Clear empties the FIFO and marks any pending timer inactive,
// dropping every in-flight and queued message at this instant. Used
// by a Peer on reboot start.
func (c *Channel) Clear() {
	c.queue = nil
	if c.pending != nil {
		c.pending.SetInactive()
		c.pending = nil
	}
}

func (c *Channel) armTimer() {
	delay := c.delay.Sample()
	event := MustNewEvent(delay, c.fire, nil)
	c.pending = event
	c.sched.Schedule(event)
}

func (c *Channel) fire(interface{}) {
	c.pending = nil
	if len(c.queue) == 0 {
		return
	}
	head := c.queue[0]
	c.queue = c.queue[1:]

	if c.rng.Float64() < (1 - c.lossRate) {
		head.destination.Receive(head.message)
	} else {
		c.log.Debugf("channel dropped message from %s", head.message.Sender())
	}

	if len(c.queue) > 0 {
		c.armTimer()
	}
}
