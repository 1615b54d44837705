package decompress

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGzip(t *testing.T, path string, content []byte) {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(content)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func writeZstd(t *testing.T, path string, content []byte) {
	t.Helper()
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = zw.Write(content)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func writeZip(t *testing.T, path string, members map[string][]byte) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range members {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestSupported(t *testing.T) {
	t.Parallel()

	assert.True(t, Supported("data.csv.gz"))
	assert.True(t, Supported("data.gzip"))
	assert.True(t, Supported("data.zip"))
	assert.True(t, Supported("data.zst"))
	assert.True(t, Supported("data.zstd"))
	assert.False(t, Supported("data.csv"))
	assert.False(t, Supported("data.tar"))
}

func TestFileGzip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "data.txt.gz")
	dest := filepath.Join(dir, "data.txt")
	writeGzip(t, src, []byte("gzip payload"))

	require.NoError(t, File(src, dest, ""))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, []byte("gzip payload"), data)
}

func TestFileZstd(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "data.txt.zst")
	dest := filepath.Join(dir, "data.txt")
	writeZstd(t, src, []byte("zstd payload"))

	require.NoError(t, File(src, dest, ""))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, []byte("zstd payload"), data)
}

func TestFileZipSingleMember(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "data.zip")
	dest := filepath.Join(dir, "data.txt")
	writeZip(t, src, map[string][]byte{"inner.txt": []byte("zip payload")})

	require.NoError(t, File(src, dest, ""))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, []byte("zip payload"), data)
}

func TestFileZipNamedMember(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "data.zip")
	dest := filepath.Join(dir, "b.txt")
	writeZip(t, src, map[string][]byte{
		"a.txt":        []byte("first"),
		"nested/b.txt": []byte("second"),
	})

	require.NoError(t, File(src, dest, "b.txt"))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)
}

func TestFileZipAmbiguousMembers(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "data.zip")
	dest := filepath.Join(dir, "out.txt")
	writeZip(t, src, map[string][]byte{
		"a.txt": []byte("first"),
		"b.txt": []byte("second"),
	})

	err := File(src, dest, "")
	require.ErrorIs(t, err, ErrDecompression)
	assert.NoFileExists(t, dest)
}

func TestFileZipMissingMember(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "data.zip")
	writeZip(t, src, map[string][]byte{"a.txt": []byte("first")})

	err := File(src, filepath.Join(dir, "out.txt"), "nope.txt")
	require.ErrorIs(t, err, ErrDecompression)
}

func TestFileUnsupportedFormat(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "data.tar")
	require.NoError(t, os.WriteFile(src, []byte("not an archive"), 0o644))

	err := File(src, filepath.Join(dir, "out"), "")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestFileCorruptGzip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "data.txt.gz")
	dest := filepath.Join(dir, "data.txt")
	require.NoError(t, os.WriteFile(src, []byte("definitely not gzip"), 0o644))

	err := File(src, dest, "")
	require.ErrorIs(t, err, ErrDecompression)

	// a corrupt archive leaves nothing behind under the final name
	assert.NoFileExists(t, dest)
}
