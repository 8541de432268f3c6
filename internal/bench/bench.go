// Package bench measures filter-query latency before and after a secondary
// index is introduced.
package bench

import (
	"context"
	"time"

	"github.com/censusdb/census/internal/directory"
	"github.com/censusdb/census/pkg/types"
)

// Querier is the read-side surface the benchmark drives.
// *directory.Store satisfies this.
type Querier interface {
	Filter(ctx context.Context, pred directory.Predicate) ([]types.StoredPerson, error)
	AddIndex(ctx context.Context, columns ...string) error
}

// Measurement is a single timed query execution.
type Measurement struct {
	Results []types.StoredPerson
	Elapsed time.Duration
}

// Report compares a query before and after index creation.
// Improvement is undefined (Valid false) when the before run took zero time
// or matched zero rows.
type Report struct {
	Before Measurement
	After  Measurement

	Improvement struct {
		Percent float64
		Valid   bool
	}
}

// Runner executes timed filter queries against a store.
type Runner struct {
	querier Querier
}

// NewRunner creates a benchmark runner.
func NewRunner(q Querier) *Runner {
	return &Runner{querier: q}
}

// Benchmark executes the filter once and measures wall-clock elapsed time
// around the call. time.Since reads the monotonic clock, so the measurement
// is immune to wall-clock adjustments.
func (r *Runner) Benchmark(ctx context.Context, pred directory.Predicate) (Measurement, error) {
	start := time.Now()
	results, err := r.querier.Filter(ctx, pred)
	elapsed := time.Since(start)
	if err != nil {
		return Measurement{}, err
	}
	return Measurement{Results: results, Elapsed: elapsed}, nil
}

// CompareBeforeAfter times the query, creates the index, and times the query
// again. A single run each; no warm-up or averaging.
func (r *Runner) CompareBeforeAfter(ctx context.Context, pred directory.Predicate, indexColumns ...string) (*Report, error) {
	report := &Report{}

	before, err := r.Benchmark(ctx, pred)
	if err != nil {
		return nil, err
	}
	report.Before = before

	if err := r.querier.AddIndex(ctx, indexColumns...); err != nil {
		return nil, err
	}

	after, err := r.Benchmark(ctx, pred)
	if err != nil {
		return nil, err
	}
	report.After = after

	if before.Elapsed > 0 && len(before.Results) > 0 {
		report.Improvement.Percent = float64(before.Elapsed-after.Elapsed) / float64(before.Elapsed) * 100
		report.Improvement.Valid = true
	}

	return report, nil
}
