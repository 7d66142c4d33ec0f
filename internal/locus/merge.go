package locus

import "sort"

// MergeResult holds the output of Merge.
type MergeResult struct {
	Loci        []*Locus // disjoint loci, in input order
	Chromosomes []string // distinct chromosomes, in first-seen order
	Overlaps    int      // number of loci folded into an earlier one
}

// SortLoci sorts loci by chromosome, then start. The sort is stable so loci
// with equal keys keep their table order.
func SortLoci(loci []*Locus) {
	sort.SliceStable(loci, func(i, j int) bool {
		if loci[i].Chrom != loci[j].Chrom {
			return loci[i].Chrom < loci[j].Chrom
		}
		return loci[i].Start < loci[j].Start
	})
}

// Merge coalesces overlapping loci. The input must be sorted by
// (chromosome, start); Merge does not check this. A locus starting strictly
// before the current anchor's end is folded into the anchor: its identifiers,
// TSS labels and strands are appended and the anchor end grows to the larger
// of the two ends. A locus starting exactly at the anchor end is adjacent,
// not overlapping, and starts a new record. The input is not modified.
func Merge(loci []*Locus) MergeResult {
	var res MergeResult
	seen := make(map[string]bool)

	for i := 0; i < len(loci); {
		anchor := loci[i].Clone()
		if !seen[anchor.Chrom] {
			seen[anchor.Chrom] = true
			res.Chromosomes = append(res.Chromosomes, anchor.Chrom)
		}

		j := i + 1
		for ; j < len(loci); j++ {
			next := loci[j]
			if next.Chrom != anchor.Chrom || next.Start >= anchor.End {
				break
			}
			anchor.Identifiers = append(anchor.Identifiers, next.Identifiers...)
			anchor.TSS = append(anchor.TSS, next.TSS...)
			anchor.Strands = append(anchor.Strands, next.Strands...)
			anchor.End = max(anchor.End, next.End)
			res.Overlaps++
		}

		res.Loci = append(res.Loci, anchor)
		i = j
	}

	return res
}
