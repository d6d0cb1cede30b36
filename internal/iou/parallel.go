package iou

import (
	"context"
	"sync"

	"github.com/MeKo-Tech/rboxdist/internal/metrics"
)

// forEach runs fn(i) for every i in [0, n) on a worker pool. fn must only
// write state owned by index i. Cancellation stops dispatch and is returned
// once the workers drain.
func (e *Engine) forEach(ctx context.Context, n int, fn func(i int)) error {
	if n == 0 {
		return ctx.Err()
	}
	progress := e.cfg.Progress
	if progress == nil {
		progress = NoOpProgressCallback{}
	}
	progress.OnStart(n)
	defer progress.OnComplete()

	workers := min(e.cfg.Workers, n)

	// For a single job or worker, run inline
	if workers <= 1 {
		for i := range n {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn(i)
			progress.OnProgress(i+1, n)
		}
		return nil
	}

	jobs := make(chan int, n)
	done := make(chan int, n)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go worker(ctx, jobs, done, &wg, fn)
	}

	go func() {
		defer close(jobs)
		for i := range n {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(done)
	}()

	finished := 0
	for range done {
		finished++
		progress.OnProgress(finished, n)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

func worker(ctx context.Context, jobs <-chan int, done chan<- int, wg *sync.WaitGroup, fn func(i int)) {
	defer wg.Done()
	metrics.WorkerStarted()
	defer metrics.WorkerDone()

	for {
		select {
		case i, ok := <-jobs:
			if !ok {
				return
			}
			fn(i)
			select {
			case done <- i:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
