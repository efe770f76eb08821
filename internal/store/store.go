// Package store persists vector index state in a local SQLite database.
// Every committed ingestion batch is written in a single transaction, so the
// file on disk always reflects the last successful batch and nothing after it.
// The in-memory search structure is rebuilt from this state at startup.
package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver

	"github.com/54b3r/docqa-go/internal/rag"
)

// FileName is the database file created inside the index directory.
const FileName = "index.db"

// schemaVersion is recorded in the meta table.
const schemaVersion = "1"

// Entry is one persisted index entry.
type Entry struct {
	// ID is the entry id, unique and increasing in insertion order.
	ID uint64
	// Chunk is the chunk text and its provenance.
	Chunk rag.Chunk
	// Vector is the raw embedding as returned by the embedder.
	Vector []float32
}

// Batch is one ingestion batch to commit atomically.
type Batch struct {
	// ID is the batch identifier (a UUID).
	ID string
	// CreatedAt is recorded on the batch row.
	CreatedAt time.Time
	// Dimension is the vector size of every entry. The first committed batch
	// fixes the index dimension.
	Dimension int
	// Entries are the new entries, in id order.
	Entries []Entry
}

// State is the complete persisted index.
type State struct {
	// Dimension is 0 when nothing has been committed.
	Dimension int
	// Entries are ordered by id.
	Entries []Entry
}

// Stats summarises the persisted index without loading vectors.
type Stats struct {
	Dimension int
	Entries   int
	Batches   int
	Sources   int
	LastBatch time.Time
}

// SQLiteStore is the durable backing for the local vector index.
type SQLiteStore struct {
	// db is the underlying database connection pool.
	db *sql.DB
	// path is the database file path, for logging.
	path string
}

// Open creates dir if needed and opens (or creates) dir/index.db.
func Open(dir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create %s: %w", dir, err)
	}
	return OpenPath(filepath.Join(dir, FileName))
}

// OpenPath opens the database at path and runs the schema migration. Use
// ":memory:" for an in-memory database in tests.
func OpenPath(path string) (*SQLiteStore, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// Single connection: one writer, and ":memory:" stays one database.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, path: path}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS batches (
    id         TEXT    PRIMARY KEY,
    created_at INTEGER NOT NULL,  -- Unix timestamp (seconds)
    entries    INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS entries (
    id          INTEGER PRIMARY KEY,
    batch_id    TEXT    NOT NULL REFERENCES batches(id),
    source      TEXT    NOT NULL,
    page        INTEGER NOT NULL,
    char_offset INTEGER NOT NULL,
    text        TEXT    NOT NULL,
    vector      BLOB    NOT NULL  -- little-endian float32
);
CREATE INDEX IF NOT EXISTS idx_entries_source ON entries (source);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	if _, err := s.db.Exec(`INSERT OR IGNORE INTO meta (key, value) VALUES ('schema_version', ?)`, schemaVersion); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Dimension returns the fixed index dimension, or 0 if none is recorded.
func (s *SQLiteStore) Dimension(ctx context.Context) (int, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'dimension'`).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("store: read dimension: %w", err)
	}
	d, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("store: corrupt dimension %q: %w", v, err)
	}
	return d, nil
}

// Load reads every entry in id order.
func (s *SQLiteStore) Load(ctx context.Context) (State, error) {
	dim, err := s.Dimension(ctx)
	if err != nil {
		return State{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, page, char_offset, text, vector FROM entries ORDER BY id ASC`)
	if err != nil {
		return State{}, fmt.Errorf("store: load: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e    Entry
			id   int64
			blob []byte
		)
		if err := rows.Scan(&id, &e.Chunk.Source, &e.Chunk.Page, &e.Chunk.Offset, &e.Chunk.Text, &blob); err != nil {
			return State{}, fmt.Errorf("store: load scan: %w", err)
		}
		e.ID = uint64(id) //nolint:gosec // ids are positive
		if e.Vector, err = decodeVector(blob); err != nil {
			return State{}, fmt.Errorf("store: entry %d: %w", id, err)
		}
		if len(e.Vector) != dim {
			return State{}, fmt.Errorf("store: entry %d has dimension %d, index has %d", id, len(e.Vector), dim)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return State{}, fmt.Errorf("store: load rows: %w", err)
	}
	return State{Dimension: dim, Entries: entries}, nil
}

// Commit writes b in one transaction. On error nothing from b is persisted.
func (s *SQLiteStore) Commit(ctx context.Context, b Batch) (err error) {
	if len(b.Entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var existing string
	switch err = tx.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'dimension'`).Scan(&existing); {
	case errors.Is(err, sql.ErrNoRows):
		if _, err = tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES ('dimension', ?)`, strconv.Itoa(b.Dimension)); err != nil {
			return fmt.Errorf("store: record dimension: %w", err)
		}
	case err != nil:
		return fmt.Errorf("store: read dimension: %w", err)
	case existing != strconv.Itoa(b.Dimension):
		err = &rag.DimensionMismatchError{Want: atoi(existing), Got: b.Dimension}
		return err
	}

	created := b.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO batches (id, created_at, entries) VALUES (?, ?, ?)`,
		b.ID, created.Unix(), len(b.Entries)); err != nil {
		return fmt.Errorf("store: insert batch: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO entries (id, batch_id, source, page, char_offset, text, vector) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range b.Entries {
		if _, err = stmt.ExecContext(ctx, int64(e.ID), b.ID, e.Chunk.Source, e.Chunk.Page, e.Chunk.Offset, e.Chunk.Text, encodeVector(e.Vector)); err != nil { //nolint:gosec // ids fit in int64
			return fmt.Errorf("store: insert entry %d: %w", e.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// Stats returns entry, batch and source counts.
func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	dim, err := s.Dimension(ctx)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{Dimension: dim}
	var last sql.NullInt64
	err = s.db.QueryRowContext(ctx, `
SELECT (SELECT COUNT(*) FROM entries),
       (SELECT COUNT(*) FROM batches),
       (SELECT COUNT(DISTINCT source) FROM entries),
       (SELECT MAX(created_at) FROM batches)`).Scan(&st.Entries, &st.Batches, &st.Sources, &last)
	if err != nil {
		return Stats{}, fmt.Errorf("store: stats: %w", err)
	}
	if last.Valid {
		st.LastBatch = time.Unix(last.Int64, 0)
	}
	return st, nil
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("store: ping: %w", err)
	}
	return nil
}

// Close releases the database connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}

// encodeVector serialises v as little-endian float32.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

// decodeVector is the inverse of encodeVector.
func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
