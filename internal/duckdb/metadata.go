package duckdb

import (
	"fmt"
	"os"
	"time"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// RecordInput stores the fingerprint of an input file under kind (for
// example "sites" or "cpg"), replacing any earlier entry for the same path.
func (s *Store) RecordInput(kind, path string) error {
	fp, err := StatFile(path)
	if err != nil {
		return fmt.Errorf("stat input %s: %w", path, err)
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO inputs (kind, path, size, mod_time) VALUES (?, ?, ?, ?)`,
		kind, fp.Path, fp.Size, fp.ModTime)
	if err != nil {
		return fmt.Errorf("record input %s: %w", path, err)
	}
	return nil
}

// Inputs returns the recorded input fingerprints for kind.
func (s *Store) Inputs(kind string) ([]FileFingerprint, error) {
	rows, err := s.db.Query(`SELECT path, size, mod_time FROM inputs WHERE kind=? ORDER BY path`, kind)
	if err != nil {
		return nil, fmt.Errorf("query inputs: %w", err)
	}
	defer rows.Close()

	var fps []FileFingerprint
	for rows.Next() {
		var fp FileFingerprint
		if err := rows.Scan(&fp.Path, &fp.Size, &fp.ModTime); err != nil {
			return nil, fmt.Errorf("scan input: %w", err)
		}
		fps = append(fps, fp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inputs: %w", err)
	}
	return fps, nil
}
