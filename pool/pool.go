// ABOUTME: Simple worker pool for parallelizing independent I/O-bound tasks
// ABOUTME: Provides submit-and-wait pattern that reports the first task error

package pool

import (
	"runtime"
	"sync"
)

// WorkerPool manages a pool of worker goroutines for parallel task execution
type WorkerPool struct {
	workers  int
	taskChan chan func() error
	workerWg sync.WaitGroup // tracks worker goroutines lifetime
	taskWg   sync.WaitGroup // tracks submitted tasks completion

	errOnce sync.Once
	err     error
}

// NewWorkerPool creates a worker pool with the given number of workers.
// A non-positive count sizes the pool to available CPUs.
// The bufferSize determines the task channel capacity
func NewWorkerPool(workers, bufferSize int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	pool := &WorkerPool{
		workers:  workers,
		taskChan: make(chan func() error, bufferSize),
	}

	// Start worker goroutines
	for range workers {
		pool.workerWg.Add(1)

		go func() {
			defer pool.workerWg.Done()

			for task := range pool.taskChan {
				if err := task(); err != nil {
					pool.errOnce.Do(func() { pool.err = err })
				}
				pool.taskWg.Done() // Mark task as complete
			}
		}()
	}

	return pool
}

// Workers returns the number of worker goroutines
func (p *WorkerPool) Workers() int {
	return p.workers
}

// Submit adds a task to the pool
// Blocks if the task channel is full
func (p *WorkerPool) Submit(task func() error) {
	p.taskWg.Add(1)
	p.taskChan <- task
}

// Wait blocks until all submitted tasks have completed and returns the
// first error any of them reported
func (p *WorkerPool) Wait() error {
	p.taskWg.Wait()
	return p.err
}

// Close shuts down the worker pool and waits for all workers to exit
func (p *WorkerPool) Close() {
	close(p.taskChan)
	p.workerWg.Wait()
}
