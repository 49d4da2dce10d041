// Package fragsync wires the scheduler, channels and peers of the
// reset/reset-ack synchronization protocol into a runnable,
// reproducible convergence trial.
package fragsync

import (
	"fmt"
	"math/rand"

	"github.com/jabolina/go-fragsync/pkg/fragsync/core"
	"github.com/jabolina/go-fragsync/pkg/fragsync/definition"
)

// TrialConfiguration bundles every parameter a single convergence
// trial needs: the channel's loss/delay model, each peer's reboot
// schedule, the PRNG seed, and the event budget the driver is willing
// to spend before declaring non-convergence.
type TrialConfiguration struct {
	// Seed seeds the *rand.Rand that NewTrial builds for this trial
	// alone, so the same seed plus the same configuration reproduces an
	// identical event trace and counter totals.
	Seed int64

	LossRate   float64
	DelayMin   float64
	DelayMean  float64
	EventBudget uint64

	AlicePeerConfig core.PeerConfig
	BobPeerConfig   core.PeerConfig

	// AliceRebootAt/BobRebootAt, when > 0, arm a one-shot reboot via
	// RebootAfter(at, RebootDuration, false) once the respective peer
	// first reaches OK_OK.
	AliceRebootAt float64
	BobRebootAt   float64
	RebootDuration float64
}

// DefaultTrialConfiguration mirrors the reference scenario: 60% loss,
// exponential delay with a 1 microsecond floor and 20 microsecond
// mean, no reboots, a 2000-event budget.
func DefaultTrialConfiguration() TrialConfiguration {
	return TrialConfiguration{
		Seed:           1,
		LossRate:       0.60,
		DelayMin:       0.000001,
		DelayMean:      0.000020,
		EventBudget:    2000,
		AlicePeerConfig: core.DefaultPeerConfig(),
		BobPeerConfig:   core.DefaultPeerConfig(),
		RebootDuration:  2.0,
	}
}

// Trial is one instantiation of the two-peer simulation: a Scheduler,
// two outbound Channels, and the two cross-linked Peers, Alice and
// Bob.
type Trial struct {
	cfg   TrialConfiguration
	log   definition.Logger
	sched *core.Scheduler
	Alice *core.Peer
	Bob   *core.Peer
}

// NewTrial builds a fresh Trial from cfg, seeding a *rand.Rand owned
// exclusively by this Trial. Alice and Bob share that rng (and the
// scheduler) but each owns an independent Channel and DelaySource:
// since every draw happens synchronously within one Trial's own
// Scheduler, sharing one rng instance per Trial is safe, while giving
// every Trial its own instance (instead of a package-level PRNG) keeps
// concurrently-run trials — as internal/harness.RunBatch fans out —
// from racing on shared state.
func NewTrial(cfg TrialConfiguration, log definition.Logger) (*Trial, error) {
	if log == nil {
		log = definition.NopLogger{}
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	sched := core.NewScheduler()

	aliceDelay, err := core.NewExponentialWithFloor(rng, cfg.DelayMin, cfg.DelayMean)
	if err != nil {
		return nil, fmt.Errorf("fragsync: alice delay source: %w", err)
	}
	bobDelay, err := core.NewExponentialWithFloor(rng, cfg.DelayMin, cfg.DelayMean)
	if err != nil {
		return nil, fmt.Errorf("fragsync: bob delay source: %w", err)
	}

	aliceOut, err := core.NewChannel(sched, rng, aliceDelay, cfg.LossRate, log)
	if err != nil {
		return nil, fmt.Errorf("fragsync: alice channel: %w", err)
	}
	bobOut, err := core.NewChannel(sched, rng, bobDelay, cfg.LossRate, log)
	if err != nil {
		return nil, fmt.Errorf("fragsync: bob channel: %w", err)
	}

	alice := core.NewPeer(sched, rng, "alice", aliceOut, log, cfg.AlicePeerConfig)
	bob := core.NewPeer(sched, rng, "bob", bobOut, log, cfg.BobPeerConfig)
	alice.SetPeer(bob)
	bob.SetPeer(alice)

	if cfg.AliceRebootAt > 0 {
		alice.RebootAfter(cfg.AliceRebootAt, cfg.RebootDuration, false)
	}
	if cfg.BobRebootAt > 0 {
		bob.RebootAfter(cfg.BobRebootAt, cfg.RebootDuration, false)
	}

	return &Trial{cfg: cfg, log: log, sched: sched, Alice: alice, Bob: bob}, nil
}

// Scheduler exposes the underlying Scheduler, chiefly for tests that
// need direct Now()/Pending() access.
func (t *Trial) Scheduler() *core.Scheduler {
	return t.sched
}

// Run drives the scheduler for the trial's event budget and reports
// whether both peers converged to OK_OK within it.
func (t *Trial) Run() (converged bool, err error) {
	if err := t.sched.RunCount(t.cfg.EventBudget); err != nil {
		return false, err
	}
	t.log.Info(t.sched.String())
	t.log.Info(t.Alice.PrintStats())
	t.log.Info(t.Bob.PrintStats())
	return t.Alice.DataReady() && t.Bob.DataReady(), nil
}

// ErrConvergenceFailure is returned by RunToConvergence when the trial
// exhausts its event budget without both peers reaching OK_OK.
type ErrConvergenceFailure struct {
	Seed int64
}

func (e *ErrConvergenceFailure) Error() string {
	return fmt.Sprintf("fragsync: trial with seed %d did not converge within its event budget", e.Seed)
}

// RunToConvergence runs the trial and turns a non-convergent outcome
// into a fatal, seed-carrying error, per the driver's assertion
// contract.
func (t *Trial) RunToConvergence() error {
	ok, err := t.Run()
	if err != nil {
		return err
	}
	if !ok {
		return &ErrConvergenceFailure{Seed: t.cfg.Seed}
	}
	return nil
}
