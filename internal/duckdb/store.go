// Package duckdb keeps an audit trail of extraction runs in DuckDB: every
// processed locus with its outcome, plus fingerprints of the input files.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection for the extraction audit trail. Each
// Store is one run: extractions written through it carry its run ID.
type Store struct {
	db    *sql.DB
	path  string
	runID string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path, runID: uuid.NewString()}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database path, empty for an in-memory database.
func (s *Store) Path() string {
	return s.path
}

// RunID returns the identifier stamped on extractions written by this store.
func (s *Store) RunID() string {
	return s.runID
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS extractions (
		mode VARCHAR,
		identifiers VARCHAR,
		tss VARCHAR,
		chrom VARCHAR,
		start_pos BIGINT,
		end_pos BIGINT,
		strands VARCHAR,
		status VARCHAR,
		seq_length BIGINT,
		masked BIGINT,
		sequence VARCHAR,
		run_id VARCHAR
	)`); err != nil {
		return err
	}
	// databases written before run IDs were recorded
	if _, err := s.db.Exec(`ALTER TABLE extractions ADD COLUMN IF NOT EXISTS run_id VARCHAR`); err != nil {
		return err
	}
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS inputs (
		kind VARCHAR,
		path VARCHAR,
		size BIGINT,
		mod_time TIMESTAMP,
		PRIMARY KEY (kind, path)
	)`)
	return err
}
