// Package output writes extracted sequence as FASTA-like records.
package output

import (
	"bufio"
	"errors"
	"io"

	"github.com/inodb/locusfa/internal/locus"
)

// ErrEmptySequence is returned by Write when there is no sequence to emit.
var ErrEmptySequence = errors.New("empty sequence")

// HeaderStyle selects the fields rendered in a record header.
type HeaderStyle int

const (
	// SitesHeader renders 'genes chrom start end tss strands'.
	SitesHeader HeaderStyle = iota
	// WindowHeader renders 'gene chrom start end strand'.
	WindowHeader
)

// Writer writes one record per locus:
//
//	> 'fields'
//	SEQUENCE
//	<blank line>
type Writer struct {
	w     *bufio.Writer
	style HeaderStyle
	count int
}

// NewWriter creates a record writer with the given header style.
func NewWriter(w io.Writer, style HeaderStyle) *Writer {
	return &Writer{
		w:     bufio.NewWriter(w),
		style: style,
	}
}

// Header returns the header line for l without the leading "> ".
func (rw *Writer) Header(l *locus.Locus) string {
	return l.Header(rw.style == SitesHeader)
}

// Write writes a single record. An empty seq writes nothing and returns
// ErrEmptySequence.
func (rw *Writer) Write(l *locus.Locus, seq string) error {
	if seq == "" {
		return ErrEmptySequence
	}
	if _, err := rw.w.WriteString("> " + rw.Header(l) + "\n"); err != nil {
		return err
	}
	if _, err := rw.w.WriteString(seq + "\n\n"); err != nil {
		return err
	}
	rw.count++
	return nil
}

// Count returns the number of records written.
func (rw *Writer) Count() int {
	return rw.count
}

// Flush flushes any buffered data to the underlying writer.
func (rw *Writer) Flush() error {
	return rw.w.Flush()
}
