package worker

import (
	"context"
	"fmt"
	"sync"
)

// Outcome is the result of one job. Index is the job's position in the input.
type Outcome[R any] struct {
	Index int
	Value R
	Err   error
}

type job[T any] struct {
	index int
	item  T
}

// Run processes jobs with at most workers goroutines. Every job yields exactly one
// Outcome, placed at its input index. A job's error or panic is captured in its
// Outcome and never stops sibling jobs. Once ctx is done, jobs not yet started
// are recorded with ctx.Err().
func Run[T, R any](ctx context.Context, workers int, items []T, fn func(context.Context, T) (R, error)) []Outcome[R] {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	jobs := make(chan job[T], len(items))
	results := make(chan Outcome[R], len(items))
	wg := &sync.WaitGroup{}

	for w := 1; w <= workers; w++ {
		wg.Add(1)
		go process(ctx, wg, jobs, results, fn)
	}

	for i, item := range items {
		jobs <- job[T]{index: i, item: item}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]Outcome[R], len(items))
	for res := range results {
		out[res.Index] = res
	}
	return out
}

func process[T, R any](ctx context.Context, wg *sync.WaitGroup, jobs <-chan job[T], results chan<- Outcome[R], fn func(context.Context, T) (R, error)) {
	defer wg.Done()

	for j := range jobs {
		if err := ctx.Err(); err != nil {
			results <- Outcome[R]{Index: j.index, Err: err}
			continue
		}
		results <- call(ctx, j, fn)
	}
}

func call[T, R any](ctx context.Context, j job[T], fn func(context.Context, T) (R, error)) (out Outcome[R]) {
	out.Index = j.index
	defer func() {
		if r := recover(); r != nil {
			out.Err = fmt.Errorf("panic: %v", r)
		}
	}()
	out.Value, out.Err = fn(ctx, j.item)
	return out
}

// Collect flattens the values of successful outcomes in input order
func Collect[R any](outcomes []Outcome[[]R]) []R {
	var all []R
	for _, o := range outcomes {
		if o.Err == nil {
			all = append(all, o.Value...)
		}
	}
	return all
}

// Errors returns the non-nil errors in input order
func Errors[R any](outcomes []Outcome[R]) []error {
	var errs []error
	for _, o := range outcomes {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return errs
}
