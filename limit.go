package html2pdf

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Concurrency bounds used when the cap is derived from the CPU count.
const (
	// MinConcurrent ensures at least one render can run.
	MinConcurrent = 1

	// MaxConcurrent caps browser instances to limit memory (~200MB each).
	MaxConcurrent = 8

	// cpuDivisor leaves headroom for Chrome child processes.
	cpuDivisor = 2
)

// ResolveConcurrency turns a configured cap into an effective one.
// Positive values are used as-is, zero means unlimited (returned as 0), and
// negative values derive a cap from GOMAXPROCS (adjusted by automaxprocs in
// containers).
func ResolveConcurrency(n int) int {
	if n >= 0 {
		return n
	}

	available := runtime.GOMAXPROCS(0)
	n = available / cpuDivisor

	if n < MinConcurrent {
		return MinConcurrent
	}
	if n > MaxConcurrent {
		return MaxConcurrent
	}
	return n
}

// renderGate admits at most n concurrent renders. A nil gate admits all.
type renderGate struct {
	sem *semaphore.Weighted
}

// newRenderGate returns a gate for n slots; n <= 0 means unlimited.
func newRenderGate(n int) *renderGate {
	if n <= 0 {
		return nil
	}
	return &renderGate{sem: semaphore.NewWeighted(int64(n))}
}

// acquire blocks until a slot is free or ctx is done.
// The returned release func must be called exactly once.
func (g *renderGate) acquire(ctx context.Context) (release func(), err error) {
	if g == nil {
		return func() {}, nil
	}
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { g.sem.Release(1) }, nil
}
