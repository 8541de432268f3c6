package directory

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	cenerrors "github.com/censusdb/census/internal/errors"
	"github.com/censusdb/census/pkg/types"
)

// Directory exposes the operations of the person-directory store.
type Directory interface {
	// CreateSchema creates the durable tables if absent. Idempotent.
	CreateSchema(ctx context.Context) error

	// ResetSchema drops and recreates the tables, losing all records.
	// Callers must confirm at the boundary before invoking this.
	ResetSchema(ctx context.Context) error

	// InsertOne persists a single record and returns its surrogate key.
	InsertOne(ctx context.Context, p types.Person) (int64, error)

	// InsertBatch persists all records in one transaction. Either every
	// record becomes visible or none do.
	InsertBatch(ctx context.Context, people []types.Person) (int, error)

	// ListDistinct returns records deduplicated on (full_name, birth_date),
	// ordered by full_name ascending.
	ListDistinct(ctx context.Context) ([]types.Person, error)

	// Filter returns all records matching the predicate.
	Filter(ctx context.Context, pred Predicate) ([]types.StoredPerson, error)

	// AddIndex creates a secondary index over the given columns if one does
	// not already exist. Idempotent.
	AddIndex(ctx context.Context, columns ...string) error

	// RowCount returns the total number of rows in the people table.
	RowCount(ctx context.Context) (int64, error)

	// Close closes the underlying database connection.
	Close() error
}

// Predicate restricts a Filter call. Gender is matched by equality and
// NamePrefix by prefix match on full_name; zero values disable a clause.
type Predicate struct {
	Gender     types.Gender
	NamePrefix string
}

// indexableColumns are the people columns an index may cover.
var indexableColumns = map[string]bool{
	"full_name":  true,
	"birth_date": true,
	"gender":     true,
}

// Store implements Directory using SQLite.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex // write-only lock; reads go straight to the pool

	insertStmt *sql.Stmt
}

// Open opens (creating if necessary) the directory database at dbPath.
// The connection is a single writer with WAL mode, matching the
// single-writer execution model.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, cenerrors.NewStorageError(cenerrors.CodeOpenFailed,
			fmt.Sprintf("failed to open directory database at %s", dbPath), err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &Store{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// CreateSchema creates all required tables. Idempotent.
func (s *Store) CreateSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, stmt := range AllSchemaSQL() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return cenerrors.NewStorageError(cenerrors.CodeSchemaFailed,
				"failed to execute schema statement", err)
		}
	}
	return nil
}

// ResetSchema drops and recreates the tables, losing all prior records.
func (s *Store) ResetSchema(ctx context.Context) error {
	s.mu.Lock()

	s.closeInsertStmt()

	for _, stmt := range []string{DropPeopleTableSQL, DropLoadBatchesTableSQL} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			s.mu.Unlock()
			return cenerrors.NewStorageError(cenerrors.CodeSchemaFailed,
				"failed to drop table", err)
		}
	}
	s.mu.Unlock()

	return s.CreateSchema(ctx)
}

// InsertOne persists a single record and returns its surrogate key.
func (s *Store) InsertOne(ctx context.Context, p types.Person) (int64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stmt, err := s.prepareInsert()
	if err != nil {
		return 0, err
	}

	res, err := stmt.ExecContext(ctx, p.FullName, p.BirthDate, string(p.Gender))
	if err != nil {
		return 0, cenerrors.NewStorageError(cenerrors.CodeWriteFailed,
			fmt.Sprintf("failed to insert record for %q", p.FullName), err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, cenerrors.NewStorageError(cenerrors.CodeWriteFailed,
			"failed to read surrogate key", err)
	}
	return id, nil
}

// InsertBatch persists all records within a single transaction.
// It inserts exactly len(people) rows or none at all.
func (s *Store) InsertBatch(ctx context.Context, people []types.Person) (int, error) {
	if len(people) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, cenerrors.NewStorageError(cenerrors.CodeBatchAborted,
			"failed to begin batch transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO people (full_name, birth_date, gender) VALUES (?, ?, ?)")
	if err != nil {
		return 0, cenerrors.NewStorageError(cenerrors.CodeBatchAborted,
			"failed to prepare batch insert", err)
	}
	defer stmt.Close()

	for _, p := range people {
		if err := p.Validate(); err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, p.FullName, p.BirthDate, string(p.Gender)); err != nil {
			return 0, cenerrors.NewStorageError(cenerrors.CodeBatchAborted,
				fmt.Sprintf("failed to insert record for %q", p.FullName), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, cenerrors.NewStorageError(cenerrors.CodeBatchAborted,
			"failed to commit batch", err)
	}
	return len(people), nil
}

// ListDistinct returns records deduplicated on (full_name, birth_date),
// ordered by full_name ascending. Duplicates stay in the underlying table;
// the deduplication is display-only.
func (s *Store) ListDistinct(ctx context.Context) ([]types.Person, error) {
	query := `
		SELECT full_name, birth_date, gender
		FROM people
		GROUP BY full_name, birth_date
		ORDER BY full_name ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, cenerrors.NewQueryError(cenerrors.CodeQueryFailed,
			"failed to list records", err)
	}
	defer rows.Close()

	var people []types.Person
	for rows.Next() {
		var p types.Person
		var gender string
		if err := rows.Scan(&p.FullName, &p.BirthDate, &gender); err != nil {
			return nil, cenerrors.NewQueryError(cenerrors.CodeScanFailed,
				"failed to scan record", err)
		}
		p.Gender = types.Gender(gender)
		people = append(people, p)
	}

	if err := rows.Err(); err != nil {
		return nil, cenerrors.NewQueryError(cenerrors.CodeQueryFailed,
			"error iterating records", err)
	}
	return people, nil
}

// Filter returns all records matching the predicate.
func (s *Store) Filter(ctx context.Context, pred Predicate) ([]types.StoredPerson, error) {
	query := "SELECT id, full_name, birth_date, gender FROM people"
	var clauses []string
	var args []interface{}

	if pred.Gender != "" {
		clauses = append(clauses, "gender = ?")
		args = append(args, string(pred.Gender))
	}
	if pred.NamePrefix != "" {
		clauses = append(clauses, "full_name LIKE ?")
		args = append(args, pred.NamePrefix+"%")
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, cenerrors.NewQueryError(cenerrors.CodeQueryFailed,
			"failed to filter records", err)
	}
	defer rows.Close()

	var people []types.StoredPerson
	for rows.Next() {
		var p types.StoredPerson
		var gender string
		if err := rows.Scan(&p.ID, &p.FullName, &p.BirthDate, &gender); err != nil {
			return nil, cenerrors.NewQueryError(cenerrors.CodeScanFailed,
				"failed to scan record", err)
		}
		p.Gender = types.Gender(gender)
		people = append(people, p)
	}

	if err := rows.Err(); err != nil {
		return nil, cenerrors.NewQueryError(cenerrors.CodeQueryFailed,
			"error iterating records", err)
	}
	return people, nil
}

// AddIndex creates a secondary index over the given columns if one matching
// them does not already exist. The index name is derived from the column
// tuple, so repeated calls are no-ops.
func (s *Store) AddIndex(ctx context.Context, columns ...string) error {
	if len(columns) == 0 {
		return cenerrors.NewArgumentError(cenerrors.CodeMissingArgument,
			"at least one index column is required")
	}
	for _, col := range columns {
		if !indexableColumns[col] {
			return cenerrors.NewArgumentError(cenerrors.CodeInvalidArgument,
				fmt.Sprintf("column %q cannot be indexed", col))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := "idx_people_" + strings.Join(columns, "_")
	ddl := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON people(%s)",
		name, strings.Join(columns, ", "))

	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return cenerrors.NewStorageError(cenerrors.CodeSchemaFailed,
			fmt.Sprintf("failed to create index %s", name), err)
	}

	// Refresh planner statistics so the new index is actually chosen.
	if _, err := s.db.ExecContext(ctx, AnalyzeSQL); err != nil {
		return cenerrors.NewStorageError(cenerrors.CodeSchemaFailed,
			"failed to run ANALYZE", err)
	}
	return nil
}

// ListIndexes returns the names of secondary indexes on the people table.
func (s *Store) ListIndexes(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = 'people' AND name LIKE 'idx_people_%'")
	if err != nil {
		return nil, cenerrors.NewQueryError(cenerrors.CodeQueryFailed,
			"failed to list indexes", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, cenerrors.NewQueryError(cenerrors.CodeScanFailed,
				"failed to scan index name", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, cenerrors.NewQueryError(cenerrors.CodeQueryFailed,
			"error iterating indexes", err)
	}
	sort.Strings(names)
	return names, nil
}

// RowCount returns the total number of rows in the people table.
func (s *Store) RowCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM people").Scan(&count)
	if err != nil {
		return 0, cenerrors.NewQueryError(cenerrors.CodeQueryFailed,
			"failed to count rows", err)
	}
	return count, nil
}

// RecordBatch writes one committed batch into the load ledger.
func (s *Store) RecordBatch(ctx context.Context, sessionID string, batchSeq, rowCount int, checksum string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO load_batches (session_id, batch_seq, row_count, checksum, created_at) VALUES (?, ?, ?, ?, ?)",
		sessionID, batchSeq, rowCount, checksum, time.Now().Unix())
	if err != nil {
		return cenerrors.NewStorageError(cenerrors.CodeWriteFailed,
			fmt.Sprintf("failed to record batch %d of session %s", batchSeq, sessionID), err)
	}
	return nil
}

// SessionRowCount returns the total rows committed under a load session.
func (s *Store) SessionRowCount(ctx context.Context, sessionID string) (int64, error) {
	var total sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		"SELECT SUM(row_count) FROM load_batches WHERE session_id = ?", sessionID).Scan(&total)
	if err != nil {
		return 0, cenerrors.NewQueryError(cenerrors.CodeQueryFailed,
			fmt.Sprintf("failed to sum session %s", sessionID), err)
	}
	return total.Int64, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closeInsertStmt()
	s.mu.Unlock()
	return s.db.Close()
}

// prepareInsert lazily prepares the cached single-row insert statement.
// Must be called with the write lock held.
func (s *Store) prepareInsert() (*sql.Stmt, error) {
	if s.insertStmt != nil {
		return s.insertStmt, nil
	}
	stmt, err := s.db.Prepare(
		"INSERT INTO people (full_name, birth_date, gender) VALUES (?, ?, ?)")
	if err != nil {
		return nil, cenerrors.NewStorageError(cenerrors.CodeWriteFailed,
			"failed to prepare insert statement", err)
	}
	s.insertStmt = stmt
	return stmt, nil
}

// closeInsertStmt drops the cached insert statement. Must be called with the
// write lock held; ResetSchema invalidates it by dropping the table.
func (s *Store) closeInsertStmt() {
	if s.insertStmt != nil {
		s.insertStmt.Close()
		s.insertStmt = nil
	}
}
