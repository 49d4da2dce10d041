package core

import (
	"fmt"
	"math/rand"

	"github.com/jabolina/go-fragsync/pkg/fragsync/definition"
	"github.com/jabolina/go-fragsync/pkg/fragsync/types"
)

// Timer discipline constants, normative per the synchronization
// protocol this Peer implements.
const (
	TimeoutMin    = 0.050
	TimeoutMax    = 4.000
	TimeoutJitter = 0.005

	nLocalMin = 1
	nLocalMax = 0xFFFF
)

// PeerConfig configures the boot-delay window and protocol version a
// Peer is constructed with. Zero values are replaced by defaults.
type PeerConfig struct {
	// BootDelayLo, BootDelayHi bound the uniform window, in virtual
	// seconds, before a freshly-constructed Peer behaves like a
	// completed reboot for the first time. Defaults to [1.0, 2.0).
	BootDelayLo, BootDelayHi float64

	// ProtocolVersion is stamped on every message this Peer sends.
	ProtocolVersion uint16
}

// DefaultPeerConfig returns the reference boot-delay window and
// protocol version 1.
func DefaultPeerConfig() PeerConfig {
	return PeerConfig{BootDelayLo: 1.0, BootDelayHi: 2.0, ProtocolVersion: 1}
}

func (c PeerConfig) withDefaults() PeerConfig {
	if c.BootDelayHi == 0 && c.BootDelayLo == 0 {
		c.BootDelayLo, c.BootDelayHi = 1.0, 2.0
	}
	if c.ProtocolVersion == 0 {
		c.ProtocolVersion = 1
	}
	return c
}

type rebootPlan struct {
	configured bool
	after      float64
	delay      float64
	recurring  bool
}

// Peer owns the six-state synchronization FSM described by the
// reset/reset-ack handshake: timeout/backoff discipline, reboot
// lifecycle, and the receive handlers for Reset, ResetAck and
// DataFragment messages. A Peer is single-threaded and reentered only
// through Scheduler-driven callbacks; it never blocks.
type Peer struct {
	sched *Scheduler
	rng   *rand.Rand
	name  types.PeerID
	out   *Channel
	log   definition.Logger
	cfg   PeerConfig

	counterpart Receiver

	state      types.State
	nLocal     uint16
	nRemote    uint16
	fsnLocal   uint16
	fsnRemote  uint16
	timeout    float64
	timeoutEvt *Event
	ready      bool
	stats      types.Stats

	reboot rebootPlan
}

// NewPeer constructs a Peer whose outbound messages flow through out,
// and immediately schedules its initial bootstrap event (uniformly in
// [BootDelayLo, BootDelayHi) seconds) that behaves like a completed
// reboot. rng backs every random draw this Peer makes (N_LOCAL, boot
// delay, timer jitter); callers should pass the same *rand.Rand given
// to out's DelaySource, so a whole Trial draws from one ordered,
// single-threaded sequence.
func NewPeer(sched *Scheduler, rng *rand.Rand, name types.PeerID, out *Channel, log definition.Logger, cfg PeerConfig) *Peer {
	if log == nil {
		log = definition.NopLogger{}
	}
	cfg = cfg.withDefaults()
	p := &Peer{
		sched: sched,
		rng:   rng,
		name:  name,
		out:   out,
		log:   log,
		cfg:   cfg,
		state: types.Reboot,
		ready: false,
	}
	delay := uniformSample(rng, cfg.BootDelayLo, cfg.BootDelayHi)
	p.sched.Schedule(MustNewEvent(delay, p.rebootFinishedCallback, nil))
	return p
}

// SetPeer wires the non-owning back-reference to this Peer's
// counterpart, used for Receive dispatch. The two peers have equal
// lifetimes tied to the enclosing trial; neither owns the other.
func (p *Peer) SetPeer(other Receiver) {
	p.counterpart = other
}

// Name returns this peer's identity.
func (p *Peer) Name() types.PeerID {
	return p.name
}

// DataReady reports whether the peer is in OK_OK: both synchronization
// halves complete, eligible to emit/accept data fragments.
func (p *Peer) DataReady() bool {
	return p.state == types.OkOk
}

// State returns the current FSM state, chiefly for tests and stats.
func (p *Peer) State() types.State {
	return p.state
}

// Stats returns a snapshot of this peer's counters.
func (p *Peer) Stats() types.Stats {
	return p.stats
}

// PrintStats renders the terminating per-peer counter line.
func (p *Peer) PrintStats() string {
	s := p.stats
	return fmt.Sprintf(
		"%s stats: state=%s data_recv=%d data_sent=%d data_not_ok=%d reset_recv=%d reset_sent=%d resetack_recv=%d resetack_sent=%d reboots=%d",
		p.name, p.state, s.DataRecv, s.DataSent, s.DataNotOk, s.ResetRecv, s.ResetSent, s.ResetAckRecv, s.ResetAckSent, s.Reboots,
	)
}

// RebootAfter arms an automatic reboot after seconds once the peer is
// (or becomes) data-ready. If already data-ready, the reboot is
// scheduled immediately; otherwise it is armed by the data-ready edge
// detector the next time the peer reaches OK_OK. When recurring is
// true, every subsequent return to OK_OK re-arms the next reboot.
func (p *Peer) RebootAfter(after, delay float64, recurring bool) {
	p.reboot = rebootPlan{configured: true, after: after, delay: delay, recurring: recurring}
	if p.DataReady() {
		p.armReboot()
		if !p.reboot.recurring {
			p.reboot.configured = false
		}
	}
}

func (p *Peer) armReboot() {
	p.sched.Schedule(MustNewEvent(p.reboot.after, p.rebootStartCallback, nil))
}

// Receive implements the Channel Receiver interface consumed by this
// peer's counterpart. While not ready (mid-reboot window), every
// incoming message is dropped without counting.
func (p *Peer) Receive(message types.Message) {
	if !p.ready {
		return
	}
	if err := CheckMessageVersion(message); err != nil {
		p.log.Warnf("peer %s dropping message: %v", p.name, err)
		return
	}
	switch m := message.(type) {
	case types.Reset:
		p.receiveReset(m)
	case types.ResetAck:
		p.receiveResetAck(m)
	case types.DataFragment:
		p.receiveData(m)
	default:
		p.log.Warnf("peer %s received unrecognized message %#v", p.name, message)
	}
}

func (p *Peer) receiveReset(m types.Reset) {
	prior := p.DataReady()
	p.stats.ResetRecv++

	switch p.state {
	case types.Reboot:
		// dropped: a non-ready peer never reaches here in practice,
		// since REBOOT only holds while ready is false.
	case types.InitInit:
		// masterStart folds INIT_INIT into SYNC_INIT within the same
		// callback before control returns to the scheduler, so this
		// branch is never observably entered; kept for symmetry with
		// the states it would handle if that ever changed.
		p.nRemote = m.N
		p.sendResetAck()
		p.state = types.InitOk
		p.sendReset()
		p.startTimer()
		p.state = types.SyncOk
	case types.InitOk:
		p.nRemote = m.N
		p.sendResetAck()
	case types.SyncOk:
		if m.N == p.nRemote {
			p.sendResetAck()
		} else {
			p.cancelTimer()
			p.nRemote = m.N
			p.resetFSN()
			p.sendResetAck()
			p.state = types.InitOk
			p.sendReset()
			p.startTimer()
			p.state = types.SyncOk
		}
	case types.SyncInit:
		p.nRemote = m.N
		p.sendResetAck()
		p.state = types.SyncOk
	case types.OkInit:
		p.nRemote = m.N
		p.sendResetAck()
		p.state = types.OkOk
	case types.OkOk:
		if m.N == p.nRemote {
			p.sendResetAck()
		} else {
			p.nRemote = m.N
			p.resetFSN()
			p.sendResetAck()
			p.state = types.InitOk
			p.sendReset()
			p.startTimer()
			p.state = types.SyncOk
		}
	}

	p.afterTransition(prior)
}

func (p *Peer) receiveResetAck(m types.ResetAck) {
	prior := p.DataReady()
	p.stats.ResetAckRecv++

	switch p.state {
	case types.Reboot:
		// dropped; see receiveReset.
	case types.InitInit:
		// unreachable; see the matching case in receiveReset.
		panic(fmt.Sprintf("fragsync: illegal ResetAck received by %s in INIT_INIT", p.name))
	case types.InitOk:
		panic(fmt.Sprintf("fragsync: illegal ResetAck received by %s in INIT_OK", p.name))
	case types.SyncOk:
		if m.A == p.nLocal {
			p.cancelTimer()
			p.resetTimeoutValue()
			if m.R == p.nRemote {
				p.state = types.OkOk
			} else {
				p.nRemote = m.R
				p.resetFSN()
				p.sendResetAck()
				p.state = types.InitOk
				p.sendReset()
				p.startTimer()
				p.state = types.SyncOk
			}
		}
	case types.SyncInit:
		if m.A == p.nLocal {
			p.cancelTimer()
			p.resetTimeoutValue()
			// The OK_INIT intermediate is folded into one atomic
			// transition straight to OK_OK; it is never observable.
			p.nRemote = m.R
			p.sendResetAck()
			p.state = types.OkOk
		}
	case types.OkInit:
		// ignored
	case types.OkOk:
		// ignored
	}

	p.afterTransition(prior)
}

func (p *Peer) receiveData(_ types.DataFragment) {
	switch p.state {
	case types.InitOk, types.SyncOk, types.OkOk:
		p.stats.DataRecv++
	default:
		p.stats.DataNotOk++
	}
}

// afterTransition arms the pending reboot the moment the peer crosses
// into OK_OK from a non-data-ready state. A one-shot plan (recurring
// false) is consumed here and never arms again; a recurring plan stays
// configured and re-arms on every such crossing.
func (p *Peer) afterTransition(priorDataReady bool) {
	if !priorDataReady && p.DataReady() {
		if p.reboot.configured {
			p.armReboot()
			if !p.reboot.recurring {
				p.reboot.configured = false
			}
		}
	}
}

func (p *Peer) resetFSN() {
	p.fsnLocal = 0
	p.fsnRemote = 0
}

func (p *Peer) sendReset() {
	p.stats.ResetSent++
	p.out.Enqueue(p.counterpart, types.NewReset(p.name, p.cfg.ProtocolVersion, p.nLocal))
}

func (p *Peer) sendResetAck() {
	p.stats.ResetAckSent++
	p.out.Enqueue(p.counterpart, types.NewResetAck(p.name, p.cfg.ProtocolVersion, p.nLocal, p.nRemote))
}

// SendData emits a data fragment if the peer is data-ready, counting
// it as sent; this is a placeholder transport for the handshake layer
// and never inspects or assembles payloads.
func (p *Peer) SendData(fragmentID uint32, payload []byte, flags types.Flag) error {
	if !p.DataReady() {
		return fmt.Errorf("fragsync: %s cannot send data outside OK_OK (state=%s)", p.name, p.state)
	}
	p.stats.DataSent++
	p.out.Enqueue(p.counterpart, types.NewDataFragment(p.name, p.cfg.ProtocolVersion, fragmentID, payload, flags))
	return nil
}

func (p *Peer) resetTimeoutValue() {
	p.timeout = TimeoutMin
}

func (p *Peer) increaseTimeout() {
	p.timeout = 2 * p.timeout
	if p.timeout > TimeoutMax {
		p.timeout = TimeoutMax
	}
}

func (p *Peer) sampleTimeoutDuration() float64 {
	return p.timeout + uniformSample(p.rng, 0, TimeoutJitter)
}

func (p *Peer) startTimer() {
	if p.timeoutEvt != nil && p.timeoutEvt.Active() {
		panic(fmt.Sprintf("fragsync: %s started a timer while one was already pending", p.name))
	}
	event := MustNewEvent(p.sampleTimeoutDuration(), p.timeoutCallback, nil)
	p.timeoutEvt = event
	p.sched.Schedule(event)
}

func (p *Peer) cancelTimer() {
	if p.timeoutEvt != nil {
		p.timeoutEvt.SetInactive()
		p.timeoutEvt = nil
	}
}

func (p *Peer) timeoutCallback(interface{}) {
	p.timeoutEvt = nil
	switch p.state {
	case types.SyncOk, types.SyncInit:
		p.increaseTimeout()
		p.sendReset()
		p.startTimer()
	default:
		panic(fmt.Sprintf("fragsync: illegal timeout fired for %s in state %s", p.name, p.state))
	}
}

func (p *Peer) masterStart() {
	p.state = types.InitInit
	p.nLocal = uint16(nLocalMin + p.rng.Intn(nLocalMax-nLocalMin+1))
	p.resetTimeoutValue()
	p.sendReset()
	p.startTimer()
	p.state = types.SyncInit
}

func (p *Peer) rebootStartCallback(interface{}) {
	p.ready = false
	p.out.Clear()
	p.cancelTimer()
	p.sched.Schedule(MustNewEvent(p.reboot.delay, p.rebootFinishedCallback, nil))
}

func (p *Peer) rebootFinishedCallback(interface{}) {
	p.state = types.Reboot
	p.nLocal = 0
	p.nRemote = 0
	p.resetFSN()
	p.timeout = TimeoutMin
	p.stats.Reboots++
	p.ready = true
	p.masterStart()
}
