package directory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	cenerrors "github.com/censusdb/census/internal/errors"
	"github.com/censusdb/census/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "census-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	store, err := Open(filepath.Join(tmpDir, "directory.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.CreateSchema(context.Background()); err != nil {
		t.Fatalf("CreateSchema failed: %v", err)
	}
	return store
}

func TestStore_CreateSchemaIdempotent(t *testing.T) {
	store := newTestStore(t)
	if err := store.CreateSchema(context.Background()); err != nil {
		t.Fatalf("second CreateSchema failed: %v", err)
	}
}

func TestStore_InsertOneAndListDistinct(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := types.Person{FullName: "Ivanov Ivan Ivanovich", BirthDate: "1990-05-15", Gender: types.GenderMale}
	id, err := store.InsertOne(ctx, p)
	if err != nil {
		t.Fatalf("InsertOne failed: %v", err)
	}
	if id <= 0 {
		t.Errorf("expected positive surrogate key, got %d", id)
	}

	// A second identical insert keeps the duplicate in the table but not in
	// the distinct listing.
	if _, err := store.InsertOne(ctx, p); err != nil {
		t.Fatalf("duplicate InsertOne failed: %v", err)
	}

	people, err := store.ListDistinct(ctx)
	if err != nil {
		t.Fatalf("ListDistinct failed: %v", err)
	}
	if len(people) != 1 {
		t.Fatalf("expected 1 distinct record, got %d", len(people))
	}
	if people[0] != p {
		t.Errorf("got %+v, want %+v", people[0], p)
	}

	count, err := store.RowCount(ctx)
	if err != nil {
		t.Fatalf("RowCount failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 underlying rows, got %d", count)
	}
}

func TestStore_InsertOneRejectsInvalid(t *testing.T) {
	store := newTestStore(t)

	_, err := store.InsertOne(context.Background(),
		types.Person{FullName: "X Y Z", BirthDate: "1990-99-99", Gender: types.GenderMale})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if cenerrors.GetCategory(err) != cenerrors.ErrCategoryValidation {
		t.Errorf("got category %q, want VALIDATION", cenerrors.GetCategory(err))
	}
}

func TestStore_SurrogateKeysMonotonic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var last int64
	for i := 0; i < 5; i++ {
		id, err := store.InsertOne(ctx, types.Person{
			FullName: "Petrov Petr Petrovich", BirthDate: "1980-01-10", Gender: types.GenderMale,
		})
		if err != nil {
			t.Fatalf("InsertOne failed: %v", err)
		}
		if id <= last {
			t.Errorf("key %d not greater than previous %d", id, last)
		}
		last = id
	}
}

func TestStore_InsertBatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	batch := []types.Person{
		{FullName: "Ivanov Ivan Ivanovich", BirthDate: "1975-03-12", Gender: types.GenderMale},
		{FullName: "Smirnova Anna Petrovna", BirthDate: "1988-11-02", Gender: types.GenderFemale},
		{FullName: "Volkov Sergey Andreevich", BirthDate: "1962-07-28", Gender: types.GenderMale},
	}

	n, err := store.InsertBatch(ctx, batch)
	if err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}
	if n != len(batch) {
		t.Errorf("expected %d inserted, got %d", len(batch), n)
	}

	count, err := store.RowCount(ctx)
	if err != nil {
		t.Fatalf("RowCount failed: %v", err)
	}
	if count != int64(len(batch)) {
		t.Errorf("expected %d rows, got %d", len(batch), count)
	}
}

func TestStore_InsertBatchAllOrNothing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	batch := []types.Person{
		{FullName: "Ivanov Ivan Ivanovich", BirthDate: "1975-03-12", Gender: types.GenderMale},
		{FullName: "Broken Record", BirthDate: "not-a-date", Gender: types.GenderMale},
		{FullName: "Volkov Sergey Andreevich", BirthDate: "1962-07-28", Gender: types.GenderMale},
	}

	if _, err := store.InsertBatch(ctx, batch); err == nil {
		t.Fatal("expected batch to fail on invalid record")
	}

	count, err := store.RowCount(ctx)
	if err != nil {
		t.Fatalf("RowCount failed: %v", err)
	}
	if count != 0 {
		t.Errorf("failed batch left %d rows visible, want 0", count)
	}
}

func TestStore_InsertBatchEmpty(t *testing.T) {
	store := newTestStore(t)

	n, err := store.InsertBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("empty batch failed: %v", err)
	}
	if n != 0 {
		t.Errorf("empty batch inserted %d rows", n)
	}
}

func TestStore_Filter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	pred := Predicate{Gender: types.GenderMale, NamePrefix: "F"}

	// Empty table: empty result.
	results, err := store.Filter(ctx, pred)
	if err != nil {
		t.Fatalf("Filter failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty result, got %d rows", len(results))
	}

	batch := []types.Person{
		{FullName: "Fisher Ivan Ivanovich", BirthDate: "1975-03-12", Gender: types.GenderMale},
		{FullName: "Ford Petr Petrovich", BirthDate: "1980-06-20", Gender: types.GenderMale},
		{FullName: "Fedorova Anna Petrovna", BirthDate: "1988-11-02", Gender: types.GenderFemale},
		{FullName: "Ivanov Ivan Ivanovich", BirthDate: "1962-07-28", Gender: types.GenderMale},
	}
	if _, err := store.InsertBatch(ctx, batch); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	results, err = store.Filter(ctx, pred)
	if err != nil {
		t.Fatalf("Filter failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(results))
	}
	for _, r := range results {
		if r.Gender != types.GenderMale {
			t.Errorf("match %q has gender %q", r.FullName, r.Gender)
		}
		if r.FullName[0] != 'F' {
			t.Errorf("match %q does not start with F", r.FullName)
		}
		if r.ID <= 0 {
			t.Errorf("match %q has no surrogate key", r.FullName)
		}
	}
}

func TestStore_AddIndexIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.AddIndex(ctx, "gender", "full_name"); err != nil {
		t.Fatalf("AddIndex failed: %v", err)
	}
	if err := store.AddIndex(ctx, "gender", "full_name"); err != nil {
		t.Fatalf("second AddIndex failed: %v", err)
	}

	names, err := store.ListIndexes(ctx)
	if err != nil {
		t.Fatalf("ListIndexes failed: %v", err)
	}
	if len(names) != 1 || names[0] != "idx_people_gender_full_name" {
		t.Errorf("unexpected index state: %v", names)
	}
}

func TestStore_AddIndexRejectsUnknownColumn(t *testing.T) {
	store := newTestStore(t)

	err := store.AddIndex(context.Background(), "gender; DROP TABLE people")
	if err == nil {
		t.Fatal("expected error for unknown column")
	}
	if cenerrors.GetCategory(err) != cenerrors.ErrCategoryArgument {
		t.Errorf("got category %q, want ARGUMENT", cenerrors.GetCategory(err))
	}
}

func TestStore_IndexDoesNotChangeFilterResults(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	batch := []types.Person{
		{FullName: "Fisher Ivan Ivanovich", BirthDate: "1975-03-12", Gender: types.GenderMale},
		{FullName: "Fletcher Dmitry Petrovich", BirthDate: "1991-02-14", Gender: types.GenderMale},
		{FullName: "Popova Elena Sergeevna", BirthDate: "1970-09-09", Gender: types.GenderFemale},
	}
	if _, err := store.InsertBatch(ctx, batch); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	pred := Predicate{Gender: types.GenderMale, NamePrefix: "F"}
	before, err := store.Filter(ctx, pred)
	if err != nil {
		t.Fatalf("Filter failed: %v", err)
	}

	if err := store.AddIndex(ctx, "gender", "full_name"); err != nil {
		t.Fatalf("AddIndex failed: %v", err)
	}

	after, err := store.Filter(ctx, pred)
	if err != nil {
		t.Fatalf("Filter failed: %v", err)
	}

	if len(before) != len(after) {
		t.Fatalf("index changed result count: %d vs %d", len(before), len(after))
	}
	seen := make(map[int64]types.StoredPerson, len(before))
	for _, r := range before {
		seen[r.ID] = r
	}
	for _, r := range after {
		if seen[r.ID] != r {
			t.Errorf("index changed row %d: %+v", r.ID, r)
		}
	}
}

func TestStore_ResetSchema(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.InsertOne(ctx, types.Person{
		FullName: "Ivanov Ivan Ivanovich", BirthDate: "1990-05-15", Gender: types.GenderMale,
	}); err != nil {
		t.Fatalf("InsertOne failed: %v", err)
	}

	if err := store.ResetSchema(ctx); err != nil {
		t.Fatalf("ResetSchema failed: %v", err)
	}

	count, err := store.RowCount(ctx)
	if err != nil {
		t.Fatalf("RowCount failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected empty table after reset, got %d rows", count)
	}

	// The store must stay usable after a reset.
	if _, err := store.InsertOne(ctx, types.Person{
		FullName: "Petrov Petr Petrovich", BirthDate: "1985-04-04", Gender: types.GenderMale,
	}); err != nil {
		t.Fatalf("InsertOne after reset failed: %v", err)
	}
}

func TestStore_LoadLedger(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.RecordBatch(ctx, "session-1", 0, 1000, "00deadbeef"); err != nil {
		t.Fatalf("RecordBatch failed: %v", err)
	}
	if err := store.RecordBatch(ctx, "session-1", 1, 250, "00cafef00d"); err != nil {
		t.Fatalf("RecordBatch failed: %v", err)
	}

	total, err := store.SessionRowCount(ctx, "session-1")
	if err != nil {
		t.Fatalf("SessionRowCount failed: %v", err)
	}
	if total != 1250 {
		t.Errorf("expected 1250 rows in session, got %d", total)
	}

	total, err = store.SessionRowCount(ctx, "missing")
	if err != nil {
		t.Fatalf("SessionRowCount failed: %v", err)
	}
	if total != 0 {
		t.Errorf("expected 0 rows for unknown session, got %d", total)
	}
}
