package duckdb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/locusfa/internal/locus"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testExtractions() []Extraction {
	return []Extraction{
		{
			Mode: "sites",
			Locus: &locus.Locus{
				Identifiers: []string{"TP53", "WRAP53"},
				TSS:         []string{"7590856", "7589389"},
				Chrom:       "chr17",
				Start:       7589300,
				End:         7590900,
				Strands:     []string{"-", "+"},
			},
			Status:   StatusEmitted,
			Masked:   2,
			Sequence: "ACXXGT",
		},
		{
			Mode: "sites",
			Locus: &locus.Locus{
				Identifiers: []string{"KRAS"},
				TSS:         []string{"25250929"},
				Chrom:       "chr12",
				Start:       25250000,
				End:         25251000,
				Strands:     []string{"-"},
			},
			Status: StatusMissingChromosome,
		},
		{
			Mode: "sites",
			Locus: &locus.Locus{
				Identifiers: []string{"CDKN2A"},
				TSS:         []string{"21994490"},
				Chrom:       "chr9",
				Start:       21994000,
				End:         21995000,
				Strands:     []string{"-"},
			},
			Status: StatusFiltered,
			Masked: 1000,
		},
	}
}

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	assert.NotNil(t, s.DB())
	assert.Empty(t, s.Path())
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "audit.duckdb")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Dir(path))
	assert.NoError(t, err)
}

func TestWriteAndLookupSymbol(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.WriteExtractions(testExtractions()))

	exts, err := s.LookupSymbol("TP53")
	require.NoError(t, err)
	require.Len(t, exts, 1)

	e := exts[0]
	assert.Equal(t, "sites", e.Mode)
	assert.Equal(t, StatusEmitted, e.Status)
	assert.Equal(t, int64(2), e.Masked)
	assert.Equal(t, "ACXXGT", e.Sequence)
	assert.Equal(t, []string{"TP53", "WRAP53"}, e.Locus.Identifiers)
	assert.Equal(t, []string{"7590856", "7589389"}, e.Locus.TSS)
	assert.Equal(t, []string{"-", "+"}, e.Locus.Strands)
	assert.Equal(t, "chr17", e.Locus.Chrom)
	assert.Equal(t, int64(7589300), e.Locus.Start)
	assert.Equal(t, int64(7590900), e.Locus.End)
}

func TestLookupSymbol_MergedIdentifier(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.WriteExtractions(testExtractions()))

	exts, err := s.LookupSymbol("WRAP53")
	require.NoError(t, err)
	require.Len(t, exts, 1)
	assert.Equal(t, "TP53", exts[0].Locus.Symbol())

	// substring of an identifier does not match
	exts, err = s.LookupSymbol("TP5")
	require.NoError(t, err)
	assert.Empty(t, exts)
}

func TestLookupSymbol_Empty(t *testing.T) {
	s := openInMemory(t)

	exts, err := s.LookupSymbol("BRCA1")
	require.NoError(t, err)
	assert.Empty(t, exts)
}

func TestCountByStatus(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.WriteExtractions(testExtractions()))
	require.NoError(t, s.WriteExtractions(testExtractions()[:1]))

	counts, err := s.CountByStatus("")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{
		StatusEmitted:           2,
		StatusMissingChromosome: 1,
		StatusFiltered:          1,
	}, counts)
}

func TestWriteExtractions_EmptyIsNoop(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.WriteExtractions(nil))

	counts, err := s.CountByStatus("")
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestClearExtractions(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.WriteExtractions(testExtractions()))
	require.NoError(t, s.ClearExtractions())

	counts, err := s.CountByStatus("")
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestRecordInput(t *testing.T) {
	s := openInMemory(t)

	path := filepath.Join(t.TempDir(), "sites.txt")
	require.NoError(t, os.WriteFile(path, []byte("header\n"), 0o644))

	require.NoError(t, s.RecordInput("sites", path))
	// recording again replaces the entry
	require.NoError(t, s.RecordInput("sites", path))

	fps, err := s.Inputs("sites")
	require.NoError(t, err)
	require.Len(t, fps, 1)
	assert.Equal(t, path, fps[0].Path)
	assert.Equal(t, int64(7), fps[0].Size)

	fps, err = s.Inputs("cpg")
	require.NoError(t, err)
	assert.Empty(t, fps)
}

func TestRecordInput_MissingFile(t *testing.T) {
	s := openInMemory(t)
	assert.Error(t, s.RecordInput("sites", filepath.Join(t.TempDir(), "nope")))
}

func TestRunID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.duckdb")

	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.WriteExtractions(testExtractions()))
	firstID := first.RunID()
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()
	require.NoError(t, second.WriteExtractions(testExtractions()[:1]))

	assert.NotEmpty(t, firstID)
	assert.NotEqual(t, firstID, second.RunID())

	exts, err := second.LookupSymbol("TP53")
	require.NoError(t, err)
	require.Len(t, exts, 2)
	assert.ElementsMatch(t, []string{firstID, second.RunID()}, []string{exts[0].RunID, exts[1].RunID})

	counts, err := second.CountByStatus(second.RunID())
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{StatusEmitted: 1}, counts)

	counts, err = second.CountByStatus(firstID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{
		StatusEmitted:           1,
		StatusMissingChromosome: 1,
		StatusFiltered:          1,
	}, counts)

	runs, err := second.Runs()
	require.NoError(t, err)
	assert.Equal(t, []Run{
		{ID: firstID, Mode: "sites", Extractions: 3},
		{ID: second.RunID(), Mode: "sites", Extractions: 1},
	}, runs)
}

func TestOpen_AddsRunIDColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.duckdb")

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.DB().Exec(`DROP TABLE extractions`)
	require.NoError(t, err)
	_, err = s.DB().Exec(`CREATE TABLE extractions (
		mode VARCHAR, identifiers VARCHAR, tss VARCHAR, chrom VARCHAR,
		start_pos BIGINT, end_pos BIGINT, strands VARCHAR, status VARCHAR,
		seq_length BIGINT, masked BIGINT, sequence VARCHAR)`)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.WriteExtractions(testExtractions()[:1]))

	exts, err := s.LookupSymbol("TP53")
	require.NoError(t, err)
	require.Len(t, exts, 1)
	assert.Equal(t, s.RunID(), exts[0].RunID)
}
