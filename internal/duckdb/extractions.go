package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strings"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/locusfa/internal/locus"
)

// Extraction outcomes.
const (
	StatusEmitted           = "emitted"
	StatusEmpty             = "empty"
	StatusFiltered          = "filtered"
	StatusMissingChromosome = "missing_chromosome"
)

// Extraction holds one processed locus and what happened to it.
type Extraction struct {
	Mode     string // "sites" or "window"
	Locus    *locus.Locus
	Status   string
	Masked   int64
	Sequence string // empty unless Status is StatusEmitted
	RunID    string // set when read back; writes use the store's run ID
}

// Run summarizes the extractions recorded by one Store.
type Run struct {
	ID          string
	Mode        string
	Extractions int64
}

// WriteExtractions batch-inserts extractions using the Appender API, stamped
// with the store's run ID.
func (s *Store) WriteExtractions(exts []Extraction) error {
	if len(exts) == 0 {
		return nil
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "extractions")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, e := range exts {
		l := e.Locus
		if err := appender.AppendRow(
			e.Mode,
			strings.Join(l.Identifiers, ","),
			strings.Join(l.TSS, ","),
			l.Chrom, l.Start, l.End,
			strings.Join(l.Strands, ","),
			e.Status, int64(len(e.Sequence)), e.Masked, e.Sequence,
			s.runID,
		); err != nil {
			return fmt.Errorf("append extraction: %w", err)
		}
	}

	return appender.Flush()
}

// ClearExtractions removes all recorded extractions.
func (s *Store) ClearExtractions() error {
	_, err := s.db.Exec("DELETE FROM extractions")
	return err
}

// Runs returns the recorded run IDs with their mode and extraction count,
// in order of first appearance.
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.db.Query(`SELECT coalesce(run_id, ''), any_value(mode), count(*)
		FROM extractions
		GROUP BY run_id
		ORDER BY min(rowid)`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Mode, &r.Extractions); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// LookupSymbol returns the extractions whose identifiers include symbol,
// including merged records where it is not the first identifier.
func (s *Store) LookupSymbol(symbol string) ([]Extraction, error) {
	rows, err := s.db.Query(`SELECT
		mode, identifiers, tss, chrom, start_pos, end_pos, strands,
		status, masked, sequence, coalesce(run_id, '')
		FROM extractions
		WHERE list_contains(string_split(identifiers, ','), ?)
		ORDER BY chrom, start_pos`, symbol)
	if err != nil {
		return nil, fmt.Errorf("query symbol: %w", err)
	}
	defer rows.Close()

	var exts []Extraction
	for rows.Next() {
		var e Extraction
		var ids, tss, strands string
		l := &locus.Locus{}
		if err := rows.Scan(
			&e.Mode, &ids, &tss, &l.Chrom, &l.Start, &l.End, &strands,
			&e.Status, &e.Masked, &e.Sequence, &e.RunID,
		); err != nil {
			return nil, fmt.Errorf("scan extraction: %w", err)
		}
		l.Identifiers = splitList(ids)
		l.TSS = splitList(tss)
		l.Strands = splitList(strands)
		e.Locus = l
		exts = append(exts, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate extractions: %w", err)
	}
	return exts, nil
}

// CountByStatus returns the number of recorded extractions per status,
// restricted to one run unless runID is empty.
func (s *Store) CountByStatus(runID string) (map[string]int64, error) {
	query := `SELECT status, count(*) FROM extractions GROUP BY status`
	var args []any
	if runID != "" {
		query = `SELECT status, count(*) FROM extractions WHERE run_id = ? GROUP BY status`
		args = append(args, runID)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}
	return counts, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
