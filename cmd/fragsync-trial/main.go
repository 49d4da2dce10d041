// Command fragsync-trial drives convergence trials of the
// reset/reset-ack synchronization protocol simulator: a single trial
// with a chosen seed and reboot schedule, or a batch of trials per
// reboot pattern.
package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/prometheus/common/version"
	kingpin "gopkg.in/alecthomas/kingpin.v2"

	"github.com/jabolina/go-fragsync/internal/harness"
	"github.com/jabolina/go-fragsync/pkg/fragsync"
	"github.com/jabolina/go-fragsync/pkg/fragsync/definition"
)

var (
	app = kingpin.New("fragsync-trial", "Discrete-event convergence trials for the reset/reset-ack synchronization protocol.")

	seed        = app.Flag("seed", "PRNG seed for the trial.").Default("1").Int64()
	lossRate    = app.Flag("loss-rate", "Channel loss probability in [0,1].").Default("0.60").Float64()
	delayMin    = app.Flag("delay-min", "Exponential delay floor, in seconds.").Default("0.000001").Float64()
	delayMean   = app.Flag("delay-mean", "Exponential delay mean, in seconds.").Default("0.000020").Float64()
	eventBudget = app.Flag("event-budget", "Maximum events the scheduler may execute before declaring non-convergence.").Default("2000").Uint64()
	aliceReboot = app.Flag("alice-reboot-at", "Seconds after Alice first reaches OK_OK before Alice reboots (0 disables).").Default("0").Float64()
	bobReboot   = app.Flag("bob-reboot-at", "Seconds after Bob first reaches OK_OK before Bob reboots (0 disables).").Default("0").Float64()
	rebootFor   = app.Flag("reboot-duration", "How long a reboot keeps its peer unready.").Default("2.0").Float64()
	verbose     = app.Flag("verbose", "Enable debug-level logging.").Bool()

	batchCmd   = app.Command("batch", "Run a batch of trials across multiple seeds for one reboot pattern.")
	batchCount = batchCmd.Flag("count", "Number of trials in the batch.").Default("50").Int()
)

func main() {
	app.Version(version.Print("fragsync-trial"))
	app.HelpFlag.Short('h')

	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	log := definition.NewDefaultLogger()
	log.ToggleDebug(*verbose)

	base := fragsync.DefaultTrialConfiguration()
	base.Seed = *seed
	base.LossRate = *lossRate
	base.DelayMin = *delayMin
	base.DelayMean = *delayMean
	base.EventBudget = *eventBudget
	base.AliceRebootAt = *aliceReboot
	base.BobRebootAt = *bobReboot
	base.RebootDuration = *rebootFor

	switch cmd {
	case batchCmd.FullCommand():
		runBatch(base, log)
	default:
		runSingle(base, log)
	}
}

func runSingle(cfg fragsync.TrialConfiguration, log definition.Logger) {
	trial, err := fragsync.NewTrial(cfg, log)
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "FAIL: %v\n", err)
		os.Exit(1)
	}

	if err := trial.RunToConvergence(); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "FAIL seed=%d: %v\n", cfg.Seed, err)
		os.Exit(1)
	}

	color.New(color.FgGreen, color.Bold).Fprintf(os.Stdout, "PASS seed=%d: both peers converged to OK_OK\n", cfg.Seed)
}

func runBatch(base fragsync.TrialConfiguration, log definition.Logger) {
	seeds := make([]int64, *batchCount)
	for i := range seeds {
		seeds[i] = base.Seed + int64(i)
	}

	results := harness.RunBatch(base, seeds, log)

	failures := 0
	for _, r := range results {
		if r.Err != nil || !r.Converged {
			failures++
			color.New(color.FgRed).Fprintf(os.Stderr, "FAIL seed=%d converged=%v err=%v\n", r.Seed, r.Converged, r.Err)
		}
	}

	if failures > 0 {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stdout, "%d/%d trials failed to converge\n", failures, len(results))
		os.Exit(1)
	}
	color.New(color.FgGreen, color.Bold).Fprintf(os.Stdout, "%d/%d trials converged\n", len(results), len(results))
}
