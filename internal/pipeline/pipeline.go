// Package pipeline runs locus tables through extraction: sites mode merges
// overlapping loci and masks CpG islands, window mode cuts a fixed window
// around each transcription start.
package pipeline

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/locusfa/internal/cpg"
	"github.com/inodb/locusfa/internal/duckdb"
	"github.com/inodb/locusfa/internal/extract"
	"github.com/inodb/locusfa/internal/genome"
	"github.com/inodb/locusfa/internal/locus"
	"github.com/inodb/locusfa/internal/output"
	"github.com/inodb/locusfa/internal/sites"
)

// Run modes, as recorded in the audit store.
const (
	ModeSites  = "sites"
	ModeWindow = "window"
)

// DefaultWindowRange is the window half-width used when none is configured.
const DefaultWindowRange = 10

// Config holds everything a run needs. The zero value of each optional
// field disables the feature.
type Config struct {
	ChromDir string // directory of <chrom>.fa files

	// Window mode: half-width of the window around each TSS.
	WindowRange int64

	// Maximum number of records to process, 0 for no limit.
	Limit int

	// CpG masking, applied when CpG is non-nil.
	CpG               *cpg.Index
	Fill              byte
	RemoveFullyMasked bool

	// Strands resolves the strand for records without one (sites mode).
	Strands locus.StrandLookup

	// Filter restricts window mode to the listed symbols.
	Filter sites.SymbolFilter
}

// RecordSource yields raw locus records. *sites.Parser implements it.
type RecordSource interface {
	Next() (*locus.Record, error)
}

// Recorder receives the outcome of every processed locus.
// *duckdb.Store implements it.
type Recorder interface {
	WriteExtractions([]duckdb.Extraction) error
}

// Summary counts what happened during a run.
type Summary struct {
	Read     int // records accepted from the source
	Skipped  int // malformed records and records with an unusable strand
	Excluded int // records not in the symbol filter
	Merged   int // loci folded into an overlapping one
	Emitted  int // records written
	Empty    int // loci with no sequence in range
	Clamped  int // loci extending past a chromosome end, emitted truncated
	Filtered int // loci suppressed because CpG islands cover them
	Missing  int // loci on chromosomes without a sequence file
}

// Pipeline extracts sequence for locus tables according to a Config.
type Pipeline struct {
	cfg    Config
	out    *output.Writer
	loader *genome.Loader
	masker *cpg.Masker
	store  Recorder
	logger *zap.Logger

	mode    string
	pending []duckdb.Extraction
}

// New creates a pipeline writing records to out.
func New(cfg Config, out *output.Writer) *Pipeline {
	if cfg.Fill == 0 {
		cfg.Fill = cpg.DefaultFill
	}
	return &Pipeline{
		cfg:    cfg,
		out:    out,
		loader: genome.NewLoader(cfg.ChromDir),
		masker: cpg.NewMasker(cfg.Fill, cfg.RemoveFullyMasked),
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for the pipeline and its components.
func (p *Pipeline) SetLogger(l *zap.Logger) {
	p.logger = l
	p.loader.SetLogger(l)
	p.masker.SetLogger(l)
}

// SetStore sets a recorder for per-locus outcomes.
func (p *Pipeline) SetStore(r Recorder) {
	p.store = r
}

// Sites runs sites mode: records are resolved to stranded loci, sorted,
// merged where they overlap, and extracted with CpG masking. Every
// chromosome the merged loci need is loaded before extraction starts.
func (p *Pipeline) Sites(src RecordSource) (Summary, error) {
	p.mode = ModeSites
	var sum Summary

	var loci []*locus.Locus
	for p.cfg.Limit == 0 || sum.Read < p.cfg.Limit {
		rec, err := p.next(src, &sum)
		if err != nil {
			return sum, err
		}
		if rec == nil {
			break
		}

		l, err := locus.FromRecord(rec, p.cfg.Strands)
		if err != nil {
			p.logger.Warn("skipping record",
				zap.Int("line", rec.Line),
				zap.String("symbol", rec.Symbol),
				zap.Error(err))
			sum.Skipped++
			continue
		}
		sum.Read++
		p.logSwap(l, rec.Line)
		loci = append(loci, l)
	}

	locus.SortLoci(loci)
	merged := locus.Merge(loci)
	sum.Merged = merged.Overlaps
	p.logger.Info("merged loci",
		zap.Int("total", len(loci)),
		zap.Int("overlaps", merged.Overlaps),
		zap.Int("unduplicated", len(merged.Loci)))

	chroms, missing, err := p.loader.LoadAll(merged.Chromosomes)
	if err != nil {
		return sum, err
	}
	if len(missing) > 0 {
		p.logger.Warn("chromosomes without sequence files", zap.Strings("chroms", missing))
	}

	for _, l := range merged.Loci {
		seq, ok := chroms[l.Chrom]
		if !ok {
			sum.Missing++
			p.record(l, duckdb.StatusMissingChromosome, 0, "")
			continue
		}
		if err := p.emit(l, seq, &sum); err != nil {
			return sum, err
		}
	}

	return sum, p.finish()
}

// Window runs window mode: each record's window of Config.WindowRange bases
// around its transcription start is extracted, chromosomes are loaded on
// first use, and no merging takes place. Records keep the strand column as
// written; one that is neither plus nor minus is skipped.
func (p *Pipeline) Window(src RecordSource) (Summary, error) {
	p.mode = ModeWindow
	var sum Summary

	for p.cfg.Limit == 0 || sum.Read < p.cfg.Limit {
		rec, err := p.next(src, &sum)
		if err != nil {
			return sum, err
		}
		if rec == nil {
			break
		}

		if p.cfg.Filter != nil && !p.cfg.Filter.Contains(rec.Symbol) {
			p.logger.Debug("symbol not in filter", zap.String("symbol", rec.Symbol))
			sum.Excluded++
			continue
		}
		sum.Read++

		l := locus.New(rec)
		p.logSwap(l, rec.Line)

		w, err := l.Window(p.cfg.WindowRange)
		if err != nil {
			var se *locus.StrandError
			if !errors.As(err, &se) {
				return sum, err
			}
			p.logger.Warn("skipping record", zap.Int("line", rec.Line), zap.Error(err))
			sum.Skipped++
			continue
		}

		seq, err := p.loader.Load(w.Chrom)
		if err != nil {
			var mcf *genome.MissingChromosomeFileError
			if !errors.As(err, &mcf) {
				return sum, err
			}
			sum.Missing++
			p.record(w, duckdb.StatusMissingChromosome, 0, "")
			continue
		}

		if err := p.emit(w, seq, &sum); err != nil {
			return sum, err
		}
	}

	return sum, p.finish()
}

// next returns the next well-formed record, skipping malformed ones.
func (p *Pipeline) next(src RecordSource, sum *Summary) (*locus.Record, error) {
	for {
		rec, err := src.Next()
		if err == nil {
			return rec, nil
		}
		var mre *locus.MalformedRecordError
		if !errors.As(err, &mre) {
			return nil, fmt.Errorf("read locus table: %w", err)
		}
		p.logger.Warn("skipping malformed record", zap.Int("line", mre.Line), zap.Error(err))
		sum.Skipped++
	}
}

func (p *Pipeline) logSwap(l *locus.Locus, line int) {
	if l.Swapped {
		p.logger.Info("swapped start and end",
			zap.Int("line", line),
			zap.String("symbol", l.Symbol()),
			zap.Int64("start", l.Start),
			zap.Int64("end", l.End))
	}
}

// emit extracts, masks and writes one locus.
func (p *Pipeline) emit(l *locus.Locus, chromSeq string, sum *Summary) error {
	seq, err := extract.Extract(l, chromSeq)
	if err != nil {
		p.logger.Warn("empty extraction",
			zap.String("locus", l.String()),
			zap.Int("chrom_length", len(chromSeq)))
		sum.Empty++
		p.record(l, duckdb.StatusEmpty, 0, "")
		return nil
	}

	// mask against the bounds actually extracted so offsets line up with
	// seq near chromosome ends
	ml := l
	if n := int64(len(chromSeq)); l.Start < 0 || l.End > n {
		ml = l.Clone()
		ml.Start = max(l.Start, 0)
		ml.End = min(l.End, n)
		p.logger.Info("locus clamped to chromosome bounds",
			zap.String("locus", l.String()),
			zap.Int64("requested_start", l.Start),
			zap.Int64("requested_end", l.End),
			zap.Int64("extracted_start", ml.Start),
			zap.Int64("extracted_end", ml.End),
			zap.Int64("chrom_length", n))
		sum.Clamped++
	}

	var masked int64
	if p.cfg.CpG != nil {
		res := p.masker.Mask(ml, seq, p.cfg.CpG.Overlapping(ml.Chrom, ml.Start, ml.End))
		if res.Suppressed {
			p.logger.Info("locus fully covered by CpG islands",
				zap.String("locus", l.String()))
			sum.Filtered++
			p.record(l, duckdb.StatusFiltered, res.Masked, "")
			return nil
		}
		seq, masked = res.Sequence, res.Masked
	}

	if err := p.out.Write(l, seq); err != nil {
		return fmt.Errorf("write %s: %w", l.Symbol(), err)
	}
	sum.Emitted++
	p.record(l, duckdb.StatusEmitted, masked, seq)
	return nil
}

func (p *Pipeline) record(l *locus.Locus, status string, masked int64, seq string) {
	if p.store == nil {
		return
	}
	p.pending = append(p.pending, duckdb.Extraction{
		Mode:     p.mode,
		Locus:    l,
		Status:   status,
		Masked:   masked,
		Sequence: seq,
	})
}

func (p *Pipeline) finish() error {
	if err := p.out.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	if p.store != nil {
		pending := p.pending
		p.pending = nil
		if err := p.store.WriteExtractions(pending); err != nil {
			return fmt.Errorf("write audit records: %w", err)
		}
	}
	return nil
}
