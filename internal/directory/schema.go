// Package directory provides the durable person-directory store backed by
// SQLite (directory.db).
package directory

// Schema contains the SQL schema definitions for the directory store.
// The people table is the single source of truth; load_batches is a ledger
// of flushed batches for load-run auditing.

// CreatePeopleTableSQL creates the core people table. The surrogate key is a
// monotonically increasing rowid alias assigned on insert.
const CreatePeopleTableSQL = `
CREATE TABLE IF NOT EXISTS people (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    full_name TEXT NOT NULL,
    birth_date TEXT NOT NULL,
    gender TEXT NOT NULL
)`

// CreateLoadBatchesTableSQL creates the load ledger table. Each row records
// one successfully committed batch of a load session.
const CreateLoadBatchesTableSQL = `
CREATE TABLE IF NOT EXISTS load_batches (
    session_id TEXT NOT NULL,
    batch_seq INTEGER NOT NULL,
    row_count INTEGER NOT NULL,
    checksum TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    PRIMARY KEY (session_id, batch_seq)
)`

// DropPeopleTableSQL removes the people table, destroying all records.
const DropPeopleTableSQL = `DROP TABLE IF EXISTS people`

// DropLoadBatchesTableSQL removes the load ledger.
const DropLoadBatchesTableSQL = `DROP TABLE IF EXISTS load_batches`

// AnalyzeSQL updates SQLite query planner statistics. Run after bulk loads
// and index creation so the planner sees current selectivity.
const AnalyzeSQL = `ANALYZE`

// AllSchemaSQL returns all schema statements in execution order.
func AllSchemaSQL() []string {
	return []string{
		CreatePeopleTableSQL,
		CreateLoadBatchesTableSQL,
	}
}
