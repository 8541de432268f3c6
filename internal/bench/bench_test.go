package bench

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/censusdb/census/internal/directory"
	"github.com/censusdb/census/internal/generate"
	"github.com/censusdb/census/internal/load"
	"github.com/censusdb/census/pkg/types"
)

func newTestStore(t *testing.T) *directory.Store {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "census-bench-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	store, err := directory.Open(filepath.Join(tmpDir, "directory.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.CreateSchema(context.Background()); err != nil {
		t.Fatalf("CreateSchema failed: %v", err)
	}
	return store
}

func TestRunner_Benchmark(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	gen := generate.New(42)
	loader := load.NewLoader(store, 500)
	if _, err := loader.Load(ctx, gen.Generate(2000)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := loader.Load(ctx, gen.GenerateTargeted(100)); err != nil {
		t.Fatalf("targeted Load failed: %v", err)
	}

	runner := NewRunner(store)
	pred := directory.Predicate{Gender: types.GenderMale, NamePrefix: "F"}

	m, err := runner.Benchmark(ctx, pred)
	if err != nil {
		t.Fatalf("Benchmark failed: %v", err)
	}
	if m.Elapsed < 0 {
		t.Errorf("negative elapsed time: %v", m.Elapsed)
	}
	if len(m.Results) < 100 {
		t.Errorf("expected at least 100 targeted matches, got %d", len(m.Results))
	}
}

func TestRunner_CompareBeforeAfter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	gen := generate.New(7)
	loader := load.NewLoader(store, 1000)
	if _, err := loader.Load(ctx, gen.Generate(5000)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := loader.Load(ctx, gen.GenerateTargeted(100)); err != nil {
		t.Fatalf("targeted Load failed: %v", err)
	}

	runner := NewRunner(store)
	pred := directory.Predicate{Gender: types.GenderMale, NamePrefix: "F"}

	report, err := runner.CompareBeforeAfter(ctx, pred, "gender", "full_name")
	if err != nil {
		t.Fatalf("CompareBeforeAfter failed: %v", err)
	}

	if report.Before.Elapsed < 0 || report.After.Elapsed < 0 {
		t.Error("elapsed times must be non-negative")
	}

	// Timing is probabilistic; result sets must not be. Both runs must see
	// exactly the same rows.
	if len(report.Before.Results) != len(report.After.Results) {
		t.Fatalf("result counts differ: %d vs %d",
			len(report.Before.Results), len(report.After.Results))
	}
	seen := make(map[int64]types.StoredPerson, len(report.Before.Results))
	for _, r := range report.Before.Results {
		seen[r.ID] = r
	}
	for _, r := range report.After.Results {
		if seen[r.ID] != r {
			t.Errorf("row %d differs between runs", r.ID)
		}
	}
}

func TestRunner_ImprovementUndefinedOnZeroRows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Empty table: the query matches zero rows, so the improvement
	// percentage is undefined rather than a division by zero.
	runner := NewRunner(store)
	pred := directory.Predicate{Gender: types.GenderMale, NamePrefix: "F"}

	report, err := runner.CompareBeforeAfter(ctx, pred, "gender", "full_name")
	if err != nil {
		t.Fatalf("CompareBeforeAfter failed: %v", err)
	}
	if report.Improvement.Valid {
		t.Error("improvement should be undefined for a zero-row result")
	}
	if report.Improvement.Percent != 0 {
		t.Errorf("undefined improvement should carry zero percent, got %f", report.Improvement.Percent)
	}
}
