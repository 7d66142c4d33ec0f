package locus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocus(symbol, chrom string, start, end int64, strand string) *Locus {
	return &Locus{
		Identifiers: []string{symbol},
		TSS:         []string{symbol + "_tss"},
		Chrom:       chrom,
		Start:       start,
		End:         end,
		Strands:     []string{strand},
	}
}

func TestMerge_NestedAndOverlapping(t *testing.T) {
	loci := []*Locus{
		newLocus("A", "chr1", 0, 10, "+"),
		newLocus("B", "chr1", 5, 8, "-"),
		newLocus("C", "chr1", 9, 20, "+"),
	}

	res := Merge(loci)
	require.Len(t, res.Loci, 1)

	m := res.Loci[0]
	assert.Equal(t, int64(0), m.Start)
	assert.Equal(t, int64(20), m.End)
	assert.Equal(t, []string{"A", "B", "C"}, m.Identifiers)
	assert.Equal(t, []string{"A_tss", "B_tss", "C_tss"}, m.TSS)
	assert.Equal(t, []string{"+", "-", "+"}, m.Strands)
	assert.Equal(t, 2, res.Overlaps)
	assert.Equal(t, []string{"chr1"}, res.Chromosomes)
}

func TestMerge_ContainedLocusKeepsLongerEnd(t *testing.T) {
	// B is nested in A; a plain "end = candidate end" would shrink A to 50
	loci := []*Locus{
		newLocus("A", "chr1", 0, 100, "+"),
		newLocus("B", "chr1", 10, 50, "+"),
		newLocus("C", "chr1", 60, 70, "+"),
	}

	res := Merge(loci)
	require.Len(t, res.Loci, 1)
	assert.Equal(t, int64(100), res.Loci[0].End)
	assert.Equal(t, []string{"A", "B", "C"}, res.Loci[0].Identifiers)
}

func TestMerge_NonOverlapping(t *testing.T) {
	loci := []*Locus{
		newLocus("A", "chr1", 0, 5, "+"),
		newLocus("B", "chr1", 10, 15, "+"),
	}

	res := Merge(loci)
	require.Len(t, res.Loci, 2)
	assert.Equal(t, []string{"A"}, res.Loci[0].Identifiers)
	assert.Equal(t, []string{"B"}, res.Loci[1].Identifiers)
	assert.Zero(t, res.Overlaps)
}

func TestMerge_AdjacentIsNotOverlap(t *testing.T) {
	loci := []*Locus{
		newLocus("A", "chr1", 0, 10, "+"),
		newLocus("B", "chr1", 10, 20, "+"),
	}

	res := Merge(loci)
	assert.Len(t, res.Loci, 2)
}

func TestMerge_DifferentChromosomesNeverMerge(t *testing.T) {
	loci := []*Locus{
		newLocus("A", "chr1", 0, 100, "+"),
		newLocus("B", "chr2", 10, 20, "+"),
		newLocus("C", "chr2", 15, 30, "-"),
		newLocus("D", "chr3", 0, 1, "+"),
	}

	res := Merge(loci)
	require.Len(t, res.Loci, 3)
	assert.Equal(t, []string{"chr1", "chr2", "chr3"}, res.Chromosomes)
	assert.Equal(t, []string{"B", "C"}, res.Loci[1].Identifiers)
	assert.Equal(t, int64(30), res.Loci[1].End)
}

func TestMerge_DoesNotModifyInput(t *testing.T) {
	a := newLocus("A", "chr1", 0, 10, "+")
	b := newLocus("B", "chr1", 5, 15, "+")

	Merge([]*Locus{a, b})

	assert.Equal(t, []string{"A"}, a.Identifiers)
	assert.Equal(t, int64(10), a.End)
}

func TestMerge_Empty(t *testing.T) {
	res := Merge(nil)
	assert.Empty(t, res.Loci)
	assert.Empty(t, res.Chromosomes)
}

func TestMerge_Idempotent(t *testing.T) {
	loci := []*Locus{
		newLocus("A", "chr1", 0, 10, "+"),
		newLocus("B", "chr1", 3, 12, "+"),
		newLocus("C", "chr1", 12, 14, "-"),
		newLocus("D", "chr1", 13, 40, "-"),
		newLocus("E", "chr1", 50, 60, "+"),
		newLocus("F", "chr2", 5, 6, "+"),
	}

	once := Merge(loci)
	twice := Merge(once.Loci)

	require.Equal(t, len(once.Loci), len(twice.Loci))
	assert.Zero(t, twice.Overlaps)
	for i := range once.Loci {
		assert.Equal(t, once.Loci[i], twice.Loci[i])
	}

	for i := 1; i < len(twice.Loci); i++ {
		prev, cur := twice.Loci[i-1], twice.Loci[i]
		if prev.Chrom == cur.Chrom {
			assert.LessOrEqual(t, prev.End, cur.Start, "loci %d and %d overlap", i-1, i)
		}
	}
}

func TestSortLoci(t *testing.T) {
	loci := []*Locus{
		newLocus("C", "chr2", 5, 10, "+"),
		newLocus("A", "chr1", 50, 60, "+"),
		newLocus("B", "chr1", 10, 20, "+"),
		newLocus("B2", "chr1", 10, 30, "+"),
	}

	SortLoci(loci)

	var got []string
	for _, l := range loci {
		got = append(got, l.Symbol())
	}
	assert.Equal(t, []string{"B", "B2", "A", "C"}, got, "stable for equal starts")
}
