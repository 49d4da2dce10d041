package harness

import (
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/jabolina/go-fragsync/pkg/fragsync"
	"github.com/jabolina/go-fragsync/pkg/fragsync/definition"
)

func TestRunBatchConvergesAndLeavesNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t)

	base := fragsync.DefaultTrialConfiguration()
	seeds := []int64{1, 2, 3, 4, 5}

	results := RunBatch(base, seeds, definition.NopLogger{})
	if len(results) != len(seeds) {
		t.Fatalf("got %d results, want %d", len(results), len(seeds))
	}
	for _, r := range results {
		if r.Err != nil {
			t.Fatalf("seed %d: %v", r.Seed, r.Err)
		}
		if !r.Converged {
			t.Fatalf("seed %d did not converge", r.Seed)
		}
	}
}

func TestWaitThisOrTimeoutReportsCompletion(t *testing.T) {
	if !WaitThisOrTimeout(func() {}, time.Second) {
		t.Fatalf("expected immediate completion to report true")
	}
	if WaitThisOrTimeout(func() { time.Sleep(50 * time.Millisecond) }, time.Millisecond) {
		t.Fatalf("expected slow completion to report false")
	}
}
