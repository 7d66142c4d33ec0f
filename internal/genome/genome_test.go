package genome

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func writeGzip(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
}

func TestReadChromosome(t *testing.T) {
	seq, err := ReadChromosome(strings.NewReader(">chr1 test\nACGTacgt\nNNNN\nAC\n"))
	require.NoError(t, err)
	assert.Equal(t, "ACGTacgtNNNNAC", seq)
}

func TestReadChromosome_FirstRecordOnly(t *testing.T) {
	seq, err := ReadChromosome(strings.NewReader(">chr1\nAAAA\n>chr1_alt\nCCCC\n"))
	require.NoError(t, err)
	assert.Equal(t, "AAAA", seq)
}

func TestReadChromosome_Empty(t *testing.T) {
	seq, err := ReadChromosome(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, seq)
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "chr1.fa"), ">chr1\nACGT\nACGT\n")

	l := NewLoader(dir)
	seq, err := l.Load("chr1")
	require.NoError(t, err)
	assert.Equal(t, "ACGTACGT", seq)

	// cached: removing the file does not matter any more
	require.NoError(t, os.Remove(filepath.Join(dir, "chr1.fa")))
	seq, err = l.Load("chr1")
	require.NoError(t, err)
	assert.Equal(t, "ACGTACGT", seq)
}

func TestLoader_Gzip(t *testing.T) {
	dir := t.TempDir()
	writeGzip(t, filepath.Join(dir, "chr2.fa.gz"), ">chr2\nGGGG\nCCCC\n")

	l := NewLoader(dir)
	assert.Equal(t, filepath.Join(dir, "chr2.fa.gz"), l.Path("chr2"))

	seq, err := l.Load("chr2")
	require.NoError(t, err)
	assert.Equal(t, "GGGGCCCC", seq)
}

func TestLoader_PlainPreferredOverGzip(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "chr3.fa"), ">chr3\nAAAA\n")
	writeGzip(t, filepath.Join(dir, "chr3.fa.gz"), ">chr3\nTTTT\n")

	seq, err := NewLoader(dir).Load("chr3")
	require.NoError(t, err)
	assert.Equal(t, "AAAA", seq)
}

func TestLoader_Missing(t *testing.T) {
	dir := t.TempDir()
	l := NewLoader(dir)

	_, err := l.Load("chrUn")
	var mcf *MissingChromosomeFileError
	require.True(t, errors.As(err, &mcf), "got %v", err)
	assert.Equal(t, "chrUn", mcf.Chrom)
	assert.Equal(t, filepath.Join(dir, "chrUn.fa"), mcf.Path)

	// the failure is remembered even if the file appears later
	writeFile(t, filepath.Join(dir, "chrUn.fa"), ">chrUn\nACGT\n")
	_, err = l.Load("chrUn")
	assert.True(t, errors.As(err, &mcf))
}

func TestLoader_LoadAll(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "chr1.fa"), ">chr1\nAAAA\n")
	writeFile(t, filepath.Join(dir, "chr2.fa"), ">chr2\nCCCC\n")

	chroms, missing, err := NewLoader(dir).LoadAll([]string{"chr1", "chrX", "chr2"})
	require.NoError(t, err)

	assert.Equal(t, Chromosomes{"chr1": "AAAA", "chr2": "CCCC"}, chroms)
	assert.Equal(t, []string{"chr1", "chr2"}, chroms.Names())
	assert.Equal(t, []string{"chrX"}, missing)
}

func TestReadChromosome_NoHeader(t *testing.T) {
	_, err := ReadChromosome(strings.NewReader("ACGTACGT\nACGT\n"))
	assert.ErrorIs(t, err, ErrMalformedFASTA)
}

func TestLoader_MalformedFileIsSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "chr1.fa"), ">chr1\nAAAA\n")
	writeFile(t, filepath.Join(dir, "chr2.fa"), "CCCC\nGGGG\n")

	core, logs := observer.New(zap.WarnLevel)
	l := NewLoader(dir)
	l.SetLogger(zap.New(core))

	chroms, missing, err := l.LoadAll([]string{"chr1", "chr2"})
	require.NoError(t, err)
	assert.Equal(t, Chromosomes{"chr1": "AAAA"}, chroms)
	assert.Equal(t, []string{"chr2"}, missing)

	_, err = l.Load("chr2")
	var mcf *MissingChromosomeFileError
	require.True(t, errors.As(err, &mcf), "got %v", err)
	assert.ErrorIs(t, err, ErrMalformedFASTA)
	assert.Equal(t, filepath.Join(dir, "chr2.fa"), mcf.Path)

	entries := logs.FilterMessage("skipping malformed chromosome file").All()
	require.Len(t, entries, 1, "the file is read once")
	assert.Equal(t, "chr2", entries[0].ContextMap()["chrom"])
}
