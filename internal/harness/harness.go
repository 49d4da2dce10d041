// Package harness runs batches of independent convergence trials
// concurrently, for the CLI's batch mode.
// The simulator core itself stays single-threaded and goroutine-free;
// concurrency here is confined to fanning independent Trial instances
// out across goroutines, one per trial.
package harness

import (
	"sync"
	"time"

	"github.com/jabolina/go-fragsync/pkg/fragsync"
	"github.com/jabolina/go-fragsync/pkg/fragsync/definition"
)

// BatchResult reports the outcome of one trial within a batch.
type BatchResult struct {
	Seed      int64
	Converged bool
	Err       error
}

// RunBatch builds and runs one Trial per seed in seeds, in parallel,
// each against a copy of base with Seed overridden. Results are
// returned in the same order as seeds.
func RunBatch(base fragsync.TrialConfiguration, seeds []int64, log definition.Logger) []BatchResult {
	results := make([]BatchResult, len(seeds))
	var wg sync.WaitGroup
	for i, seed := range seeds {
		wg.Add(1)
		go func(i int, seed int64) {
			defer wg.Done()
			cfg := base
			cfg.Seed = seed
			trial, err := fragsync.NewTrial(cfg, log)
			if err != nil {
				results[i] = BatchResult{Seed: seed, Err: err}
				return
			}
			converged, err := trial.Run()
			results[i] = BatchResult{Seed: seed, Converged: converged, Err: err}
		}(i, seed)
	}
	wg.Wait()
	return results
}

// WaitThisOrTimeout runs cb in a goroutine and reports whether it
// finished before duration elapsed.
func WaitThisOrTimeout(cb func(), duration time.Duration) bool {
	done := make(chan struct{})
	go func() {
		cb()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(duration):
		return false
	}
}
