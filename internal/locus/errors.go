package locus

import "fmt"

// MalformedRecordError reports a raw record that could not be turned into a
// Locus: wrong field count, a non-numeric coordinate or an unresolvable strand.
type MalformedRecordError struct {
	Line    int    // 1-based line number in the source table, 0 if unknown
	Field   string // offending field name, may be empty
	Message string
}

func (e *MalformedRecordError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("malformed record at line %d: %s: %s", e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("malformed record at line %d: %s", e.Line, e.Message)
}

// StrandError reports a strand symbol outside the plus/minus vocabulary.
type StrandError struct {
	Symbol string
	Strand string
}

func (e *StrandError) Error() string {
	return fmt.Sprintf("unrecognized strand %q for %s", e.Strand, e.Symbol)
}
