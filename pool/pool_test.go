// ABOUTME: Tests for the worker pool
// ABOUTME: Verifies every task runs, concurrency is bounded and the first error is reported

package pool

import (
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"
)

// TestWorkerPoolRunsAllTasks verifies Wait returns after every task has run
func TestWorkerPoolRunsAllTasks(t *testing.T) {
	p := NewWorkerPool(4, 8)
	defer p.Close()

	var count atomic.Int64
	for range 100 {
		p.Submit(func() error {
			count.Add(1)
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if got := count.Load(); got != 100 {
		t.Errorf("Expected 100 tasks to run, got %d", got)
	}
}

// TestWorkerPoolDefaultsToNumCPU verifies the worker count fallback
func TestWorkerPoolDefaultsToNumCPU(t *testing.T) {
	p := NewWorkerPool(0, 1)
	defer p.Close()

	if p.Workers() != runtime.NumCPU() {
		t.Errorf("Expected %d workers, got %d", runtime.NumCPU(), p.Workers())
	}
}

// TestWorkerPoolBoundsConcurrency verifies no more than the configured workers run at once
func TestWorkerPoolBoundsConcurrency(t *testing.T) {
	const workers = 3

	p := NewWorkerPool(workers, 0)
	defer p.Close()

	var running, peak atomic.Int64
	for range 20 {
		p.Submit(func() error {
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			running.Add(-1)
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if peak.Load() > workers {
		t.Errorf("Expected at most %d concurrent tasks, got %d", workers, peak.Load())
	}
}

// TestWorkerPoolReportsError verifies a failing task surfaces from Wait
func TestWorkerPoolReportsError(t *testing.T) {
	p := NewWorkerPool(2, 4)
	defer p.Close()

	boom := errors.New("boom")
	for i := range 10 {
		p.Submit(func() error {
			if i == 5 {
				return boom
			}
			return nil
		})
	}

	if err := p.Wait(); !errors.Is(err, boom) {
		t.Errorf("Expected boom error, got %v", err)
	}
}
