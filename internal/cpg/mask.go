package cpg

import (
	"go.uber.org/zap"

	"github.com/inodb/locusfa/internal/locus"
)

// DefaultFill is the character substituted for bases inside CpG islands.
const DefaultFill = 'X'

// Result is the outcome of masking one snippet.
type Result struct {
	Sequence   string // masked sequence, empty when Suppressed
	Masked     int64  // number of bases replaced
	Suppressed bool   // the whole locus was masked and removal is enabled
}

// Masker replaces the parts of extracted sequence that overlap CpG islands.
type Masker struct {
	fill              byte
	removeFullyMasked bool
	logger            *zap.Logger
}

// NewMasker creates a masker substituting fill for island bases. With
// removeFullyMasked set, loci lying entirely inside islands are suppressed.
func NewMasker(fill byte, removeFullyMasked bool) *Masker {
	return &Masker{
		fill:              fill,
		removeFullyMasked: removeFullyMasked,
		logger:            zap.NewNop(),
	}
}

// SetLogger sets the logger for per-island debug messages.
func (m *Masker) SetLogger(l *zap.Logger) {
	m.logger = l
}

// Mask masks snippet, the sequence extracted for l, against intervals, which
// must be sorted by start. An interval overlaps when
// iv.End >= l.Start && iv.Start <= l.End; the scan stops at the first interval
// starting past l.End. For each overlap the replaced range, in snippet
// coordinates, is
//
//	[max(0, iv.Start-l.Start), (l.End-l.Start) - max(0, l.End-iv.End))
//
// clamped to the snippet. Replacement keeps the snippet length, so offsets
// stay valid as islands are applied one after another. When l is emitted
// reverse-complemented the range is mirrored so the same genomic bases are
// masked.
func (m *Masker) Mask(l *locus.Locus, snippet string, intervals []Interval) Result {
	n := int64(len(snippet))
	span := l.End - l.Start
	reversed := l.Reversed()

	var buf []byte
	var masked, reach int64

	for _, iv := range intervals {
		if iv.Start > l.End {
			break
		}
		if iv.End < l.Start {
			continue
		}

		startOff := max(0, iv.Start-l.Start)
		endOff := span - max(0, l.End-iv.End)
		startOff, endOff = min(startOff, n), min(endOff, n)

		m.logger.Debug("cpg island overlaps locus",
			zap.String("locus", l.Symbol()),
			zap.Int64("cpg_start", iv.Start),
			zap.Int64("cpg_end", iv.End),
			zap.Int64("locus_start", l.Start),
			zap.Int64("locus_end", l.End),
			zap.Int64("start_offset", startOff),
			zap.Int64("end_offset", endOff))

		if startOff >= endOff {
			continue
		}

		// start offsets are non-decreasing, so the masked union grows from
		// the left
		switch {
		case startOff >= reach:
			masked += endOff - startOff
		case endOff > reach:
			masked += endOff - reach
		}
		reach = max(reach, endOff)

		if buf == nil {
			buf = []byte(snippet)
		}
		lo, hi := startOff, endOff
		if reversed {
			lo, hi = n-endOff, n-startOff
		}
		for i := lo; i < hi; i++ {
			buf[i] = m.fill
		}
	}

	if n > 0 && masked == n && m.removeFullyMasked {
		return Result{Masked: masked, Suppressed: true}
	}
	if buf == nil {
		return Result{Sequence: snippet}
	}
	return Result{Sequence: string(buf), Masked: masked}
}
