package util

import (
	"context"
	"sync"
)

// Parallel runs fn for every input on at most workers goroutines. fn gets
// the input's index so callers can write results into a slice of their
// own. The first error cancels the context handed to the remaining calls
// and is returned.
func Parallel[T any](ctx context.Context, inputs []T, workers int, fn func(ctx context.Context, i int, in T) error) error {
	if len(inputs) == 0 {
		return nil
	}
	workers = max(1, min(workers, len(inputs)))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
		next     = make(chan int)
	)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				if err := fn(ctx, i, inputs[i]); err != nil {
					errOnce.Do(func() {
						firstErr = err
						cancel()
					})
					return
				}
			}
		}()
	}

feed:
	for i := range inputs {
		select {
		case <-ctx.Done():
			break feed
		case next <- i:
		}
	}
	close(next)
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}
