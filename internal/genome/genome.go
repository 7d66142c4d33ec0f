// Package genome loads chromosome sequences from per-chromosome FASTA files.
package genome

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
)

// Chromosomes maps chromosome name to its full sequence.
type Chromosomes map[string]string

// Names returns the loaded chromosome names in sorted order.
func (c Chromosomes) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ErrMalformedFASTA is wrapped by ReadChromosome errors caused by file
// content rather than I/O.
var ErrMalformedFASTA = errors.New("malformed FASTA")

// MissingChromosomeFileError reports that no usable FASTA file exists for a
// chromosome referenced by a locus. Err is nil when the file does not exist
// and holds the parse failure when it exists but is not valid FASTA.
type MissingChromosomeFileError struct {
	Chrom string
	Path  string
	Err   error
}

func (e *MissingChromosomeFileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unreadable sequence file for chromosome %s: %s: %v", e.Chrom, e.Path, e.Err)
	}
	return fmt.Sprintf("no sequence file for chromosome %s: %s", e.Chrom, e.Path)
}

func (e *MissingChromosomeFileError) Unwrap() error {
	return e.Err
}

// ReadChromosome reads the first FASTA record from r and returns its
// sequence with line breaks removed. Case is preserved. Content that is
// not FASTA, such as a file without a '>' header line, yields an error
// wrapping ErrMalformedFASTA.
func ReadChromosome(r io.Reader) (string, error) {
	sc := seqio.NewScanner(fasta.NewReader(r, linear.NewSeq("", nil, alphabet.DNA)))
	if !sc.Next() {
		if err := sc.Error(); err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformedFASTA, err)
		}
		return "", nil
	}
	s := sc.Seq().(*linear.Seq)

	buf := make([]byte, len(s.Seq))
	for i, l := range s.Seq {
		buf[i] = byte(l)
	}
	return string(buf), nil
}

// Loader reads chromosome files named <chrom>.fa, or <chrom>.fa.gz, from a
// directory and caches them by name.
type Loader struct {
	dir     string
	loaded  Chromosomes
	missing map[string]*MissingChromosomeFileError
	logger  *zap.Logger
}

// NewLoader creates a loader for chromosome files in dir.
func NewLoader(dir string) *Loader {
	return &Loader{
		dir:     dir,
		loaded:  make(Chromosomes),
		missing: make(map[string]*MissingChromosomeFileError),
		logger:  zap.NewNop(),
	}
}

// SetLogger sets the logger for load messages.
func (l *Loader) SetLogger(logger *zap.Logger) {
	l.logger = logger
}

// Path returns the file holding chrom. The plain .fa path is preferred; the
// .fa.gz path is returned only when it exists and the plain one does not.
func (l *Loader) Path(chrom string) string {
	plain := filepath.Join(l.dir, chrom+".fa")
	if _, err := os.Stat(plain); err == nil {
		return plain
	}
	gz := plain + ".gz"
	if _, err := os.Stat(gz); err == nil {
		return gz
	}
	return plain
}

// Load returns the sequence for chrom, reading it on first use. A missing
// or malformed file yields a *MissingChromosomeFileError, which is
// remembered so the file is tried only once.
func (l *Loader) Load(chrom string) (string, error) {
	if seq, ok := l.loaded[chrom]; ok {
		return seq, nil
	}
	if err, ok := l.missing[chrom]; ok {
		return "", err
	}

	path := l.Path(chrom)
	seq, err := readFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			mcf := &MissingChromosomeFileError{Chrom: chrom, Path: path}
			l.missing[chrom] = mcf
			l.logger.Warn("chromosome file not found",
				zap.String("chrom", chrom),
				zap.String("path", path))
			return "", mcf
		}
		if errors.Is(err, ErrMalformedFASTA) {
			mcf := &MissingChromosomeFileError{Chrom: chrom, Path: path, Err: err}
			l.missing[chrom] = mcf
			l.logger.Warn("skipping malformed chromosome file",
				zap.String("chrom", chrom),
				zap.String("path", path),
				zap.Error(err))
			return "", mcf
		}
		return "", fmt.Errorf("load chromosome %s: %w", chrom, err)
	}

	l.loaded[chrom] = seq
	l.logger.Info("loaded chromosome",
		zap.String("chrom", chrom),
		zap.String("path", path),
		zap.Int("length", len(seq)))
	return seq, nil
}

// LoadAll loads every named chromosome. Chromosomes without a usable file
// are returned in missing rather than as an error; any other failure stops the
// load.
func (l *Loader) LoadAll(names []string) (Chromosomes, []string, error) {
	chroms := make(Chromosomes, len(names))
	var missing []string
	for _, name := range names {
		seq, err := l.Load(name)
		if err != nil {
			var mcf *MissingChromosomeFileError
			if errors.As(err, &mcf) {
				missing = append(missing, name)
				continue
			}
			return nil, nil, err
		}
		chroms[name] = seq
	}
	return chroms, missing, nil
}

func readFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	var reader io.Reader = br

	// Detect gzip by magic bytes rather than extension
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return "", fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	return ReadChromosome(reader)
}
