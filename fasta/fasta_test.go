package fasta

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFasta = `>seq1 first test sequence
ACGTACGT
ACGT
>seq2
TTTT
CCCC

>seq3 trailing
GGGG
`

func TestParse(t *testing.T) {
	t.Parallel()

	records, err := Parse(strings.NewReader(sampleFasta))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "seq1", records[0].ID)
	assert.Equal(t, "first test sequence", records[0].Description)
	assert.Equal(t, "ACGTACGTACGT", records[0].Sequence)

	assert.Equal(t, "seq2", records[1].ID)
	assert.Empty(t, records[1].Description)
	assert.Equal(t, "TTTTCCCC", records[1].Sequence)

	assert.Equal(t, "seq3", records[2].ID)
	assert.Equal(t, "GGGG", records[2].Sequence)
}

func TestParseSkipsCommentsAndBlanks(t *testing.T) {
	t.Parallel()

	input := "; old-style comment\n\n>id desc\nAAAA\n"
	records, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "AAAA", records[0].Sequence)
}

func TestParseSequenceBeforeHeader(t *testing.T) {
	t.Parallel()

	_, err := Parse(strings.NewReader("ACGT\n>id\nACGT\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "before first header")
}

func TestParseEmptyHeader(t *testing.T) {
	t.Parallel()

	_, err := Parse(strings.NewReader(">\nACGT\n"))
	require.Error(t, err)
}

func TestParseEmptyInput(t *testing.T) {
	t.Parallel()

	records, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "test.fa")
	require.NoError(t, os.WriteFile(path, []byte(sampleFasta), 0o644))

	records, err := ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestParseFileGzip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(sampleFasta))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), "test.fa.gz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	records, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "ACGTACGTACGT", records[0].Sequence)
}

func TestDict(t *testing.T) {
	t.Parallel()

	records, err := Parse(strings.NewReader(sampleFasta))
	require.NoError(t, err)

	dict, err := Dict(records)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"seq1": "ACGTACGTACGT",
		"seq2": "TTTTCCCC",
		"seq3": "GGGG",
	}, dict)
}

func TestDictDuplicateIdentifier(t *testing.T) {
	t.Parallel()

	records := []Record{
		{ID: "dup", Sequence: "AAAA"},
		{ID: "dup", Sequence: "CCCC"},
	}
	_, err := Dict(records)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dup")
}
