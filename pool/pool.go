package pool

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/lcrh/turingsoup/soup"
)

// Pool runs batches of soup.Pair executions across a fixed number of
// worker goroutines. Each worker executes its slice of pairs strictly in
// order, sequentially, matching soup.RunPair's semantics one pair at a
// time — the only thing Pool adds over a single sequential loop is
// splitting the batch across goroutines and summing the results.
type Pool struct {
	workers int
}

// DefaultWorkers returns hardwareConcurrency-1, clamped to at least 1 —
// the same "leave a core for everything else" default the driver uses
// when the configuration doesn't override it.
func DefaultWorkers() int {
	if n := runtime.NumCPU() - 1; n > 0 {
		return n
	}
	return 1
}

// New creates a Pool with the given worker count. A non-positive count is
// replaced with DefaultWorkers().
func New(workers int) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	return &Pool{workers: workers}
}

// Dispatch splits pairs into at most p.workers contiguous slices (in
// order), runs each slice on its own goroutine via soup.RunPair, and sums
// the resulting per-category counters. It satisfies soup.Dispatcher.
//
// With workers=1, Dispatch executes every pair sequentially in the order
// given and returns exactly what a direct loop over soup.RunPair would —
// the round-trip/idempotence property the interpreter layer requires.
//
// If ctx is already canceled when Dispatch is called, it returns
// ctx.Err() without running anything. Once workers have started, they run
// their assigned slice to completion: there is no mid-pair or mid-slice
// cancellation, matching the "outstanding work finishes" policy described
// for the execution pool.
func (p *Pool) Dispatch(ctx context.Context, buf []byte, pairs []soup.Pair, opts soup.PairOptions) (soup.Counters, error) {
	if err := ctx.Err(); err != nil {
		return soup.Counters{}, err
	}
	if len(pairs) == 0 {
		return soup.Counters{}, nil
	}

	slices := splitSlices(pairs, p.workers)
	results := make([]soup.Counters, len(slices))

	g, gctx := errgroup.WithContext(ctx)
	for i, slice := range slices {
		i, slice := i, slice
		g.Go(func() error {
			results[i] = runSlice(slice, buf, opts)
			return gctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return soup.Counters{}, err
	}

	var total soup.Counters
	for _, r := range results {
		total.Add(r)
	}
	return total, nil
}

// runSlice runs every pair in slice, in order, against buf and returns
// the slice's aggregated counters.
func runSlice(slice []soup.Pair, buf []byte, opts soup.PairOptions) soup.Counters {
	var c soup.Counters
	for _, pair := range slice {
		stats := soup.RunPair(buf, pair, opts)
		c.AddStats(stats)
	}
	return c
}

// splitSlices divides pairs into at most workers contiguous, roughly
// equal slices, preserving order both within and across slices.
func splitSlices(pairs []soup.Pair, workers int) [][]soup.Pair {
	if workers > len(pairs) {
		workers = len(pairs)
	}
	if workers < 1 {
		workers = 1
	}

	base := len(pairs) / workers
	rem := len(pairs) % workers

	slices := make([][]soup.Pair, 0, workers)
	start := 0
	for i := 0; i < workers; i++ {
		size := base
		if i < rem {
			size++
		}
		slices = append(slices, pairs[start:start+size])
		start += size
	}
	return slices
}
