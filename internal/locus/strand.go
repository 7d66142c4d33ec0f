package locus

// Strand symbols as they appear in locus tables. Site tables use the short
// form, gene lists exported from the genome browser use the long one.
const (
	StrandPlus      = "+"
	StrandMinus     = "-"
	StrandPlusWord  = "plus"
	StrandMinusWord = "minus"
)

// IsStrand reports whether s is one of the recognized strand symbols.
func IsStrand(s string) bool {
	return IsPlus(s) || IsMinus(s)
}

// IsPlus reports whether s denotes the forward strand.
func IsPlus(s string) bool {
	return s == StrandPlus || s == StrandPlusWord
}

// IsMinus reports whether s denotes the reverse strand.
func IsMinus(s string) bool {
	return s == StrandMinus || s == StrandMinusWord
}

// StrandLookup resolves a gene symbol to a strand symbol.
type StrandLookup interface {
	Strand(symbol string) (string, bool)
}

// StrandTable maps gene symbol -> strand, built from a gene database file.
type StrandTable map[string]string

// Strand implements StrandLookup.
func (t StrandTable) Strand(symbol string) (string, bool) {
	s, ok := t[symbol]
	return s, ok
}
