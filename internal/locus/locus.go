// Package locus models gene loci read from site tables and resolves
// overlapping loci into merged records.
package locus

import (
	"fmt"
	"strconv"
	"strings"
)

// Record is one parsed row of a locus table, before strand resolution.
type Record struct {
	ID     string // db.desc1, a gene id
	Symbol string // gene symbol, left of the last ':' in db.desc2
	TSS    string // transcription start site label, right of the last ':'
	Chrom  string
	Start  int64
	End    int64
	Strand string // strand or expression column, empty if absent
	Line   int    // source line number
}

// Locus is a half-open region [Start, End) on a chromosome carrying one or,
// after merging, several gene identifiers.
type Locus struct {
	Identifiers []string
	TSS         []string
	Chrom       string
	Start       int64
	End         int64
	Strands     []string

	// Swapped is set when the source coordinates were reversed and
	// construction swapped them.
	Swapped bool
}

// ParseSymbolTSS splits a "symbol:tss" field at its last colon.
func ParseSymbolTSS(field string) (symbol, tss string, err error) {
	i := strings.LastIndexByte(field, ':')
	if i < 0 {
		return "", "", fmt.Errorf("expected symbol:tss, got %q", field)
	}
	symbol, tss = field[:i], field[i+1:]
	if symbol == "" {
		return "", "", fmt.Errorf("empty gene symbol in %q", field)
	}
	return symbol, tss, nil
}

// ParseCoordinate parses a genomic coordinate.
func ParseCoordinate(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}

// New builds a Locus from a raw record, keeping the record's strand column
// verbatim. Reversed coordinates are swapped and reported through
// Locus.Swapped.
func New(rec *Record) *Locus {
	l := &Locus{
		Identifiers: []string{rec.Symbol},
		TSS:         []string{rec.TSS},
		Chrom:       rec.Chrom,
		Start:       rec.Start,
		End:         rec.End,
		Strands:     []string{rec.Strand},
	}
	l.Swapped = l.Normalize()
	return l
}

// FromRecord builds a Locus from a raw record with a resolved strand. The
// record's own strand is used when it is a recognized strand symbol;
// otherwise the strand is looked up by gene symbol in strands, which may be
// nil.
func FromRecord(rec *Record, strands StrandLookup) (*Locus, error) {
	l := New(rec)
	if IsStrand(rec.Strand) {
		return l, nil
	}

	var strand string
	var ok bool
	if strands != nil {
		strand, ok = strands.Strand(rec.Symbol)
	}
	if !ok || !IsStrand(strand) {
		return nil, &MalformedRecordError{
			Line:    rec.Line,
			Field:   "strand",
			Message: fmt.Sprintf("no strand information for %s", rec.Symbol),
		}
	}
	l.Strands[0] = strand
	return l, nil
}

// Normalize swaps Start and End if they are reversed and reports whether it
// did so.
func (l *Locus) Normalize() bool {
	if l.Start <= l.End {
		return false
	}
	l.Start, l.End = l.End, l.Start
	return true
}

// Len returns the length of the locus.
func (l *Locus) Len() int64 {
	return l.End - l.Start
}

// Symbol returns the first (anchor) gene symbol.
func (l *Locus) Symbol() string {
	if len(l.Identifiers) == 0 {
		return ""
	}
	return l.Identifiers[0]
}

// Strand returns the anchor strand, the strand of the first locus that
// contributed to this one.
func (l *Locus) Strand() string {
	if len(l.Strands) == 0 {
		return ""
	}
	return l.Strands[0]
}

// Reversed reports whether sequence for this locus is emitted as the reverse
// complement. Merged loci keep the orientation of their anchor.
func (l *Locus) Reversed() bool {
	return IsMinus(l.Strand())
}

// Window centres a window of half-width r on the locus' transcription start:
// the start coordinate on the plus strand, the end coordinate on the minus
// strand. Plus yields [Start-(r+1), Start+r), minus yields [End-r, End+r+1).
func (l *Locus) Window(r int64) (*Locus, error) {
	if r < 0 {
		return nil, fmt.Errorf("window range must be non-negative, got %d", r)
	}
	w := l.Clone()
	switch {
	case IsPlus(l.Strand()):
		w.Start = l.Start - (r + 1)
		w.End = l.Start + r
	case IsMinus(l.Strand()):
		w.Start = l.End - r
		w.End = l.End + (r + 1)
	default:
		return nil, &StrandError{Symbol: l.Symbol(), Strand: l.Strand()}
	}
	return w, nil
}

// Clone returns a deep copy of the locus.
func (l *Locus) Clone() *Locus {
	c := *l
	c.Identifiers = append([]string(nil), l.Identifiers...)
	c.TSS = append([]string(nil), l.TSS...)
	c.Strands = append([]string(nil), l.Strands...)
	return &c
}

// Header renders the descriptive fields of an output record, quoted and
// space separated: 'genes chrom start end tss strands'. Multi-valued fields
// are comma-joined. The tss column is omitted when withTSS is false.
func (l *Locus) Header(withTSS bool) string {
	fields := []string{
		strings.Join(l.Identifiers, ","),
		l.Chrom,
		strconv.FormatInt(l.Start, 10),
		strconv.FormatInt(l.End, 10),
	}
	if withTSS {
		fields = append(fields, strings.Join(l.TSS, ","))
	}
	fields = append(fields, strings.Join(l.Strands, ","))
	return "'" + strings.Join(fields, " ") + "'"
}

// String implements fmt.Stringer.
func (l *Locus) String() string {
	return l.Header(true)
}
