package sites

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/inodb/locusfa/internal/locus"
)

// strandTableColumns is the column count of a gene database file:
// id, symbol:tss, chrom, start, end, strand.
const strandTableColumns = ColStrand + 1

// LoadStrandTable reads a gene database file into a symbol -> strand table.
// Lines starting with '#' are comments. Unlike site tables, any malformed
// line fails the whole load.
func LoadStrandTable(path string) (locus.StrandTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open strand table: %w", err)
	}
	defer f.Close()

	return ParseStrandTable(f)
}

// ParseStrandTable parses gene database content.
func ParseStrandTable(r io.Reader) (locus.StrandTable, error) {
	table := make(locus.StrandTable)
	scanner := bufio.NewScanner(r)

	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(strings.TrimSpace(line), "\t")
		if len(fields) != strandTableColumns {
			return nil, &locus.MalformedRecordError{
				Line:    lineNumber,
				Message: fmt.Sprintf("strand table: expected %d columns, found %d", strandTableColumns, len(fields)),
			}
		}

		symbol, _, err := locus.ParseSymbolTSS(fields[ColSymbolTSS])
		if err != nil {
			return nil, &locus.MalformedRecordError{Line: lineNumber, Field: "symbol:tss", Message: err.Error()}
		}
		table[symbol] = fields[ColStrand]
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan strand table: %w", err)
	}

	return table, nil
}

// SymbolFilter is a set of gene symbols to keep.
type SymbolFilter map[string]struct{}

// Contains reports whether symbol is in the filter.
func (f SymbolFilter) Contains(symbol string) bool {
	_, ok := f[symbol]
	return ok
}

// LoadSymbolFilter reads a gene symbol list, one symbol per line.
func LoadSymbolFilter(path string) (SymbolFilter, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open symbol filter: %w", err)
	}
	defer f.Close()

	return ParseSymbolFilter(f)
}

// ParseSymbolFilter parses a gene symbol list.
func ParseSymbolFilter(r io.Reader) (SymbolFilter, error) {
	filter := make(SymbolFilter)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		symbol := strings.TrimRight(scanner.Text(), " \t\r")
		if symbol == "" {
			continue
		}
		filter[symbol] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan symbol filter: %w", err)
	}
	return filter, nil
}
