package orchestrator

import (
	"context"
	"sync"
)

// WorkerPool bounds the fan-out concurrency of independent per-unit
// work within a phase (per-record LLM calls, per-snapshot
// segmentation). It has no Start/Stop lifecycle of its own: a pool is
// sized once and its Run method blocks until every index has been
// visited or the first error cancels the remaining work.
type WorkerPool struct {
	concurrency int
}

// NewWorkerPool returns a pool that runs at most concurrency units at
// once. A non-positive concurrency is treated as 1 (sequential).
func NewWorkerPool(concurrency int) *WorkerPool {
	if concurrency < 1 {
		concurrency = 1
	}
	return &WorkerPool{concurrency: concurrency}
}

// Run invokes fn(ctx, i) for every i in [0, n), bounded to p.concurrency
// concurrent goroutines. Workers check ctx between units, so a
// cancelled context stops dispatching new work once the first error
// (or external cancellation) is observed; units already in flight are
// allowed to finish. Run returns the first error encountered, if any.
func (p *WorkerPool) Run(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	if n == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	indices := make(chan int)
	go func() {
		defer close(indices)
		for i := 0; i < n; i++ {
			select {
			case indices <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	var (
		wg      sync.WaitGroup
		errOnce sync.Once
		firstErr error
	)

	workers := p.concurrency
	if workers > n {
		workers = n
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				if ctx.Err() != nil {
					continue
				}
				if err := fn(ctx, i); err != nil {
					errOnce.Do(func() {
						firstErr = err
						cancel()
					})
				}
			}
		}()
	}

	wg.Wait()
	return firstErr
}
