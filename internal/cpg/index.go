// Package cpg indexes CpG island intervals and masks the parts of extracted
// sequence that fall inside them.
package cpg

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/inodb/locusfa/internal/locus"
)

// Interval is a CpG island. Both bounds are treated as inclusive when
// testing for overlap with a locus.
type Interval struct {
	Start int64
	End   int64
}

// Index holds CpG islands grouped by chromosome and sorted by (Start, End).
// It is built once and read-only afterwards.
type Index struct {
	intervals map[string][]Interval
	maxEnd    map[string][]int64 // maxEnd[c][i] = max(End) for intervals[c][:i+1]
	built     bool
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		intervals: make(map[string][]Interval),
		maxEnd:    make(map[string][]int64),
	}
}

// Add adds an interval. Build must be called before querying.
func (x *Index) Add(chrom string, iv Interval) {
	x.intervals[chrom] = append(x.intervals[chrom], iv)
	x.built = false
}

// Build sorts every chromosome's intervals by (Start, End) and precomputes
// the running maximum end used to skip intervals that end before a query.
func (x *Index) Build() {
	for chrom, ivs := range x.intervals {
		sort.Slice(ivs, func(i, j int) bool {
			if ivs[i].Start != ivs[j].Start {
				return ivs[i].Start < ivs[j].Start
			}
			return ivs[i].End < ivs[j].End
		})

		maxEnd := make([]int64, len(ivs))
		for i, iv := range ivs {
			maxEnd[i] = iv.End
			if i > 0 && maxEnd[i-1] > maxEnd[i] {
				maxEnd[i] = maxEnd[i-1]
			}
		}
		x.maxEnd[chrom] = maxEnd
	}
	x.built = true
}

// IntervalsFor returns the sorted intervals of a chromosome, or nil if it has
// none.
func (x *Index) IntervalsFor(chrom string) []Interval {
	if x == nil {
		return nil
	}
	x.ensureBuilt()
	return x.intervals[chrom]
}

// Overlapping returns the intervals of chrom that overlap [start, end] with
// inclusive bounds, in ascending order. Intervals ending before start are
// skipped by binary search over the running maximum end; the scan stops at the
// first interval starting after end.
func (x *Index) Overlapping(chrom string, start, end int64) []Interval {
	if x == nil {
		return nil
	}
	x.ensureBuilt()

	ivs := x.intervals[chrom]
	maxEnd := x.maxEnd[chrom]

	// first index whose prefix could reach start; everything before it ends
	// too early
	lo := sort.Search(len(ivs), func(i int) bool {
		return maxEnd[i] >= start
	})

	var result []Interval
	for i := lo; i < len(ivs); i++ {
		if ivs[i].Start > end {
			break
		}
		if ivs[i].End >= start {
			result = append(result, ivs[i])
		}
	}
	return result
}

// Chromosomes returns the sorted chromosome names in the index.
func (x *Index) Chromosomes() []string {
	chroms := make([]string, 0, len(x.intervals))
	for chrom := range x.intervals {
		chroms = append(chroms, chrom)
	}
	sort.Strings(chroms)
	return chroms
}

// Count returns the total number of intervals.
func (x *Index) Count() int {
	n := 0
	for _, ivs := range x.intervals {
		n += len(ivs)
	}
	return n
}

func (x *Index) ensureBuilt() {
	if !x.built {
		x.Build()
	}
}

// LoadIndex reads a CpG island file of "chrom,start,end" lines.
func LoadIndex(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cpg file: %w", err)
	}
	defer f.Close()

	return ParseIndex(f)
}

// ParseIndex parses CpG island CSV content and builds the index. A malformed
// line fails the whole load.
func ParseIndex(r io.Reader) (*Index, error) {
	x := NewIndex()

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			line := 0
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				line = perr.Line
			}
			return nil, &locus.MalformedRecordError{Line: line, Message: fmt.Sprintf("cpg file: %v", err)}
		}
		line, _ := cr.FieldPos(0)

		start, err := locus.ParseCoordinate(rec[1])
		if err != nil {
			return nil, &locus.MalformedRecordError{Line: line, Field: "start", Message: fmt.Sprintf("invalid coordinate %q", rec[1])}
		}
		end, err := locus.ParseCoordinate(rec[2])
		if err != nil {
			return nil, &locus.MalformedRecordError{Line: line, Field: "end", Message: fmt.Sprintf("invalid coordinate %q", rec[2])}
		}

		x.Add(strings.TrimSpace(rec[0]), Interval{Start: start, End: end})
	}

	x.Build()
	return x, nil
}
