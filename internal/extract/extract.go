// Package extract slices locus sequence out of in-memory chromosomes and
// orients it by strand.
package extract

import (
	"errors"

	"github.com/inodb/locusfa/internal/locus"
)

// ErrEmptyExtraction signals that a locus produced no sequence, which means
// its coordinates lie outside the loaded chromosome.
var ErrEmptyExtraction = errors.New("empty extraction")

// Slice returns chromSeq[l.Start:l.End] in forward orientation. Coordinates
// are clamped to the sequence: a negative start reads from 0 and an end past
// the sequence reads to its end. A locus starting at or after the end of the
// sequence yields "".
func Slice(l *locus.Locus, chromSeq string) string {
	n := int64(len(chromSeq))
	start := min(max(l.Start, 0), n)
	end := min(max(l.End, 0), n)
	if start >= end {
		return ""
	}
	return chromSeq[start:end]
}

// Orient returns seq as it should be emitted for l: unchanged on the plus
// strand, reverse-complemented when l.Reversed().
func Orient(l *locus.Locus, seq string) string {
	if l.Reversed() {
		return ReverseComplement(seq)
	}
	return seq
}

// Extract slices and orients the sequence for l. It returns
// ErrEmptyExtraction when the slice is empty.
func Extract(l *locus.Locus, chromSeq string) (string, error) {
	seq := Slice(l, chromSeq)
	if seq == "" {
		return "", ErrEmptyExtraction
	}
	return Orient(l, seq), nil
}

// ReverseComplement returns the reverse complement of a DNA sequence.
// Case is preserved and bases without a complement pass through unchanged.
func ReverseComplement(seq string) string {
	n := len(seq)
	result := make([]byte, n)
	for i := 0; i < n; i++ {
		result[i] = Complement(seq[n-1-i])
	}
	return string(result)
}

// Complement returns the complement of a single base. Anything other than
// A, C, G or T in either case, such as N, IUPAC ambiguity codes or a mask
// character, is returned as is.
func Complement(base byte) byte {
	switch base {
	case 'A':
		return 'T'
	case 'T':
		return 'A'
	case 'G':
		return 'C'
	case 'C':
		return 'G'
	case 'a':
		return 't'
	case 't':
		return 'a'
	case 'g':
		return 'c'
	case 'c':
		return 'g'
	default:
		return base
	}
}
