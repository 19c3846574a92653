// Package catalog provides a SQLite-backed history of indexing runs. Each
// successful index operation is recorded so operators can answer "which
// collection came from which file, with which model, and when" without
// querying the vector store itself.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Run is one completed indexing operation.
type Run struct {
	// Collection is the derived vector store collection name.
	Collection string
	// Document is the source document filename.
	Document string
	// StoreProvider is the vector store backend ("milvus", "chroma", "qdrant").
	StoreProvider string
	// EmbeddingProvider is the embedding backend recorded in the file.
	EmbeddingProvider string
	// EmbeddingModel is the embedding model name.
	EmbeddingModel string
	// IndexMode is the similarity index built over the collection.
	IndexMode string
	// VectorDimension is the embedding vector length.
	VectorDimension int
	// TotalVectors is the number of vectors inserted.
	TotalVectors int
	// Duration is how long the indexing run took.
	Duration time.Duration
	// CreatedAt is when the run was recorded.
	CreatedAt time.Time
}

// Catalog persists and retrieves indexing-run history. Implementations must
// be safe for concurrent use.
type Catalog interface {
	// Record persists a single completed run.
	Record(ctx context.Context, run Run) error
	// Recent returns the most recent n runs, newest-first.
	Recent(ctx context.Context, n int) ([]Run, error)
	// ByCollection returns all runs recorded for the named collection,
	// newest-first.
	ByCollection(ctx context.Context, collection string) ([]Run, error)
	// Close releases any resources held by the catalog.
	Close() error
}

// SQLiteCatalog is a Catalog backed by a local SQLite database.
type SQLiteCatalog struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default path for the catalog database. It
// resolves to ~/.finrag/catalog.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("catalog: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".finrag")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("catalog: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "catalog.db"), nil
}

// Open opens (or creates) a SQLiteCatalog at the given path and runs the
// schema migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteCatalog, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	c := &SQLiteCatalog{db: db}
	if err := c.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

// migrate creates the schema if it does not already exist.
func (c *SQLiteCatalog) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS index_runs (
    id                 INTEGER PRIMARY KEY AUTOINCREMENT,
    collection         TEXT    NOT NULL,
    document           TEXT    NOT NULL,
    store_provider     TEXT    NOT NULL,
    embedding_provider TEXT    NOT NULL,
    embedding_model    TEXT    NOT NULL,
    index_mode         TEXT    NOT NULL,
    vector_dimension   INTEGER NOT NULL,
    total_vectors      INTEGER NOT NULL,
    duration_ms        INTEGER NOT NULL,
    created_at         INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE INDEX IF NOT EXISTS idx_index_runs_collection_created
    ON index_runs (collection, created_at);
`
	if _, err := c.db.Exec(ddl); err != nil {
		return fmt.Errorf("catalog: migrate: %w", err)
	}
	return nil
}

// Record persists a single completed run.
func (c *SQLiteCatalog) Record(ctx context.Context, run Run) error {
	const q = `
INSERT INTO index_runs
    (collection, document, store_provider, embedding_provider, embedding_model,
     index_mode, vector_dimension, total_vectors, duration_ms, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := c.db.ExecContext(ctx, q,
		run.Collection, run.Document, run.StoreProvider, run.EmbeddingProvider,
		run.EmbeddingModel, run.IndexMode, run.VectorDimension, run.TotalVectors,
		run.Duration.Milliseconds(), createdAt.Unix())
	if err != nil {
		return fmt.Errorf("catalog: record: %w", err)
	}
	return nil
}

// Recent returns the most recent n runs, newest-first.
func (c *SQLiteCatalog) Recent(ctx context.Context, n int) ([]Run, error) {
	const q = selectRuns + `
ORDER BY created_at DESC, id DESC
LIMIT  ?`
	return c.queryRuns(ctx, q, n)
}

// ByCollection returns all runs recorded for the named collection,
// newest-first.
func (c *SQLiteCatalog) ByCollection(ctx context.Context, collection string) ([]Run, error) {
	const q = selectRuns + `
WHERE  collection = ?
ORDER  BY created_at DESC, id DESC`
	return c.queryRuns(ctx, q, collection)
}

const selectRuns = `
SELECT collection, document, store_provider, embedding_provider, embedding_model,
       index_mode, vector_dimension, total_vectors, duration_ms, created_at
FROM   index_runs`

// queryRuns executes a run query and scans the result rows.
func (c *SQLiteCatalog) queryRuns(ctx context.Context, q string, args ...any) ([]Run, error) {
	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: query: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var durationMS, ts int64
		if err := rows.Scan(&r.Collection, &r.Document, &r.StoreProvider,
			&r.EmbeddingProvider, &r.EmbeddingModel, &r.IndexMode,
			&r.VectorDimension, &r.TotalVectors, &durationMS, &ts); err != nil {
			return nil, fmt.Errorf("catalog: scan: %w", err)
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		r.CreatedAt = time.Unix(ts, 0)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: rows: %w", err)
	}
	return runs, nil
}

// Close releases the database connection pool.
func (c *SQLiteCatalog) Close() error {
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("catalog: close: %w", err)
	}
	return nil
}
