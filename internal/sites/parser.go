// Package sites reads locus tables: cppmatch result files, gene database
// files and gene lists, plus the auxiliary strand and symbol filter tables.
package sites

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/inodb/locusfa/internal/locus"
)

// Column positions shared by cppmatch results and gene database files.
const (
	ColID = iota
	ColSymbolTSS
	ColChrom
	ColStart
	ColEnd
	ColStrand
)

// minColumns is the number of columns needed to build a record; the strand
// column is optional since it may be recovered from a strand table.
const minColumns = ColEnd + 1

// cppmatchHeader starts the header line of a cppmatch result file.
const cppmatchHeader = "db.desc1"

// fieldSep matches the single space or tab separating locus table columns.
var fieldSep = regexp.MustCompile(`[ \t]`)

// Parser reads locus records from a site table.
type Parser struct {
	reader     *bufio.Reader
	file       *os.File
	gzipReader *gzip.Reader
	lineNumber int
}

// NewParser opens a site table. Gzipped tables are detected by their magic
// bytes. The first line is a header and is skipped.
func NewParser(path string) (*Parser, error) {
	if path == "-" {
		return NewParserFromReader(os.Stdin)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sites file: %w", err)
	}

	p := &Parser{file: file}

	br := bufio.NewReader(file)
	magic, err := br.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		p.gzipReader, err = gzip.NewReader(br)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		p.reader = bufio.NewReader(p.gzipReader)
	} else {
		p.reader = br
	}

	if err := p.skipHeader(); err != nil {
		p.Close()
		return nil, err
	}

	return p, nil
}

// NewParserFromReader creates a parser from an io.Reader (e.g., stdin).
func NewParserFromReader(r io.Reader) (*Parser, error) {
	p := &Parser{
		reader: bufio.NewReader(r),
	}

	if err := p.skipHeader(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Parser) skipHeader() error {
	_, err := p.reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("read sites header: %w", err)
	}
	p.lineNumber++
	return nil
}

// Next reads the next record. It returns nil, nil when the table is
// exhausted. A line that cannot be parsed yields a *locus.MalformedRecordError;
// the parser stays positioned after that line, so callers may log it and
// continue.
func (p *Parser) Next() (*locus.Record, error) {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("read sites line: %w", err)
		}
		if err == io.EOF && line == "" {
			return nil, nil
		}
		p.lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, cppmatchHeader) {
			continue
		}

		return ParseLine(line, p.lineNumber)
	}
}

// ParseLine parses one site table line.
func ParseLine(line string, lineNumber int) (*locus.Record, error) {
	fields := fieldSep.Split(line, -1)
	if len(fields) < minColumns {
		return nil, &locus.MalformedRecordError{
			Line:    lineNumber,
			Message: fmt.Sprintf("expected at least %d columns, found %d", minColumns, len(fields)),
		}
	}

	symbol, tss, err := locus.ParseSymbolTSS(fields[ColSymbolTSS])
	if err != nil {
		return nil, &locus.MalformedRecordError{Line: lineNumber, Field: "symbol:tss", Message: err.Error()}
	}

	start, err := locus.ParseCoordinate(fields[ColStart])
	if err != nil {
		return nil, &locus.MalformedRecordError{
			Line:    lineNumber,
			Field:   "start",
			Message: fmt.Sprintf("invalid coordinate %q", fields[ColStart]),
		}
	}

	end, err := locus.ParseCoordinate(fields[ColEnd])
	if err != nil {
		return nil, &locus.MalformedRecordError{
			Line:    lineNumber,
			Field:   "end",
			Message: fmt.Sprintf("invalid coordinate %q", fields[ColEnd]),
		}
	}

	rec := &locus.Record{
		ID:     fields[ColID],
		Symbol: symbol,
		TSS:    tss,
		Chrom:  fields[ColChrom],
		Start:  start,
		End:    end,
		Line:   lineNumber,
	}
	if len(fields) > ColStrand {
		rec.Strand = strings.TrimSpace(fields[ColStrand])
	}
	return rec, nil
}

// Close closes the parser and underlying file.
func (p *Parser) Close() error {
	if p.gzipReader != nil {
		p.gzipReader.Close()
	}
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}
