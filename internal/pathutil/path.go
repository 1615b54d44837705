// Package pathutil builds collision-safe local filenames for cached downloads.
package pathutil

import (
	"net/url"
	"path"
	"strings"

	"github.com/opencontainers/go-digest"
)

// urlDigestLen is the number of hex characters of the URL digest prepended to
// derived filenames so that identical basenames from different URLs do not
// collide in the cache directory.
const urlDigestLen = 8

// compressionSuffixes lists the archive suffixes the fetch pipeline can
// decompress, in dispatch order.
var compressionSuffixes = []string{".gz", ".gzip", ".zip", ".zst", ".zstd"}

// CompressionSuffix returns the recognized compression suffix of name, or ""
// if name does not end in one.
func CompressionSuffix(name string) string {
	lower := strings.ToLower(name)
	for _, suffix := range compressionSuffixes {
		if strings.HasSuffix(lower, suffix) && len(name) > len(suffix) {
			return name[len(name)-len(suffix):]
		}
	}
	return ""
}

// StripCompressionSuffix removes a recognized compression suffix from name.
// The second return value reports whether a suffix was stripped.
func StripCompressionSuffix(name string) (string, bool) {
	suffix := CompressionSuffix(name)
	if suffix == "" {
		return name, false
	}
	return name[:len(name)-len(suffix)], true
}

// Sanitize replaces characters that are hostile to filesystems or shells with
// underscores, leaving dots and dashes alone.
func Sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ';', ':', '?', '=', '&', '#', '%', ' ':
			return '_'
		}
		return r
	}, name)
}

// LocalFilename returns the filename used inside the cache directory for a
// download.
//
// An explicit filename is used as given. Otherwise the name is derived from
// the URL: a short digest of the full URL joined with the sanitized host and
// path, so the same basename served by two hosts caches to two distinct
// files. When decompress is set, a recognized compression suffix is stripped
// since the cached artifact will hold the decompressed bytes.
func LocalFilename(downloadURL, filename string, decompress bool) string {
	if filename == "" {
		filename = deriveFilename(downloadURL)
	}
	if decompress {
		filename, _ = StripCompressionSuffix(filename)
	}
	return filename
}

func deriveFilename(downloadURL string) string {
	prefix := digest.FromString(downloadURL).Encoded()[:urlDigestLen]

	parsed, err := url.Parse(downloadURL)
	if err != nil || parsed.Host == "" {
		return prefix + "." + Sanitize(downloadURL)
	}
	base := parsed.Host + strings.TrimSuffix(parsed.Path, "/")
	return prefix + "." + Sanitize(base)
}

// URLBasename returns the last path element of a URL, or "" when the URL
// points at a bare host or directory.
func URLBasename(downloadURL string) string {
	parsed, err := url.Parse(downloadURL)
	if err != nil {
		return ""
	}
	base := path.Base(parsed.Path)
	if base == "." || base == "/" {
		return ""
	}
	return base
}
