// Package decompress unpacks downloaded archives by filename suffix.
package decompress

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

var (
	// ErrUnsupportedFormat is returned when a file's suffix does not match any
	// known archive format.
	ErrUnsupportedFormat = errors.New("unsupported archive format")

	// ErrDecompression is returned when an archive is corrupt or cannot be
	// unpacked.
	ErrDecompression = errors.New("decompression failed")
)

// Supported reports whether name ends in a suffix the decompressor handles.
func Supported(name string) bool {
	switch suffix(name) {
	case ".gz", ".gzip", ".zip", ".zst", ".zstd":
		return true
	}
	return false
}

// File decompresses src into dest, dispatching on src's suffix.
//
// For zip archives, member selects the entry to extract; an empty member
// requires the archive to contain exactly one file. The output is written to
// a temp file beside dest and renamed into place on success.
func File(src, dest, member string) error {
	switch suffix(src) {
	case ".gz", ".gzip":
		return writeAtomic(dest, func(w io.Writer) error {
			return gunzip(src, w)
		})
	case ".zst", ".zstd":
		return writeAtomic(dest, func(w io.Writer) error {
			return unzstd(src, w)
		})
	case ".zip":
		return writeAtomic(dest, func(w io.Writer) error {
			return unzip(src, member, w)
		})
	default:
		return fmt.Errorf("decompress %s: %w", src, ErrUnsupportedFormat)
	}
}

func suffix(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

func gunzip(src string, w io.Writer) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	zr, err := gzip.NewReader(in)
	if err != nil {
		return fmt.Errorf("decompress %s: %w: %v", src, ErrDecompression, err)
	}
	defer zr.Close()

	if _, err := io.Copy(w, zr); err != nil {
		return fmt.Errorf("decompress %s: %w: %v", src, ErrDecompression, err)
	}
	return nil
}

func unzstd(src string, w io.Writer) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	zr, err := zstd.NewReader(in)
	if err != nil {
		return fmt.Errorf("decompress %s: %w: %v", src, ErrDecompression, err)
	}
	defer zr.Close()

	if _, err := io.Copy(w, zr.IOReadCloser()); err != nil {
		return fmt.Errorf("decompress %s: %w: %v", src, ErrDecompression, err)
	}
	return nil
}

func unzip(src, member string, w io.Writer) error {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("decompress %s: %w: %v", src, ErrDecompression, err)
	}
	defer zr.Close()

	entry, err := selectZipEntry(&zr.Reader, member)
	if err != nil {
		return fmt.Errorf("decompress %s: %w", src, err)
	}

	rc, err := entry.Open()
	if err != nil {
		return fmt.Errorf("decompress %s: %w: %v", src, ErrDecompression, err)
	}
	defer rc.Close()

	if _, err := io.Copy(w, rc); err != nil {
		return fmt.Errorf("decompress %s: %w: %v", src, ErrDecompression, err)
	}
	return nil
}

func selectZipEntry(zr *zip.Reader, member string) (*zip.File, error) {
	var files []*zip.File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if member != "" {
			if f.Name == member || filepath.Base(f.Name) == member {
				return f, nil
			}
			continue
		}
		files = append(files, f)
	}
	if member != "" {
		return nil, fmt.Errorf("%w: zip member %q not found", ErrDecompression, member)
	}
	if len(files) != 1 {
		return nil, fmt.Errorf(
			"%w: zip holds %d files, name the member to extract", ErrDecompression, len(files))
	}
	return files[0], nil
}

// writeAtomic fills a temp file beside dest and renames it into place, so a
// partial decompression is never visible under the final name.
func writeAtomic(dest string, fill func(io.Writer) error) error {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, filepath.Base(dest)+".unpack-*")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()

	if err := fill(tmp); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("finalize %s: %w", dest, err)
	}
	return nil
}
