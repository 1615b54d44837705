package datacache

import (
	"github.com/openvax/datacache/internal/decompress"
	"github.com/openvax/datacache/internal/download"
)

// Errors re-exported from the download stage.
var (
	// ErrNotFound is returned when the remote resource does not exist.
	ErrNotFound = download.ErrNotFound

	// ErrChecksumMismatch is returned when downloaded content does not match
	// the digest given via FetchWithDigest.
	ErrChecksumMismatch = download.ErrChecksumMismatch
)

// Errors re-exported from the decompression stage.
var (
	// ErrUnsupportedFormat is returned when decompression is requested for a
	// file whose suffix matches no known archive format.
	ErrUnsupportedFormat = decompress.ErrUnsupportedFormat

	// ErrDecompression is returned when an archive is corrupt or cannot be
	// unpacked.
	ErrDecompression = decompress.ErrDecompression
)

// StatusError is returned for HTTP responses outside the 2xx range that have
// no more specific sentinel.
type StatusError = download.StatusError
