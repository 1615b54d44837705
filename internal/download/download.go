// Package download writes remote resources to local files atomically.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"
)

var (
	// ErrNotFound is returned when the remote resource does not exist.
	ErrNotFound = errors.New("remote resource not found")

	// ErrChecksumMismatch is returned when downloaded content does not match
	// the expected digest.
	ErrChecksumMismatch = errors.New("content does not match expected digest")
)

// StatusError is returned for HTTP responses outside the 2xx range that have
// no more specific sentinel.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("download %s: unexpected status %s", e.URL, e.Status)
}

// Downloader fetches remote resources over HTTP into local files.
type Downloader struct {
	client *http.Client
	logger *slog.Logger
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithClient sets the HTTP client used for requests.
func WithClient(client *http.Client) Option {
	return func(d *Downloader) {
		if client != nil {
			d.client = client
		}
	}
}

// WithLogger sets a logger. If nil, logging is discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Downloader) {
		d.logger = logger
	}
}

// New creates a Downloader with the given options.
func New(opts ...Option) *Downloader {
	d := &Downloader{client: http.DefaultClient}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Downloader) log() *slog.Logger {
	if d.logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return d.logger
}

// Fetch downloads url into dest.
//
// The body is written to a temp file in the destination directory and renamed
// into place only after a complete, verified write, so a reader can never
// observe a truncated download under the final name. If expected is non-empty
// the content is verified against it before the rename.
func (d *Downloader) Fetch(ctx context.Context, url, dest string, expected digest.Digest) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", url, err)
	}

	d.log().Info("downloading", "url", url, "dest", dest)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("download %s: %w", url, ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return &StatusError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(dest)+".download-*")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()

	var w io.Writer = tmp
	var verifier digest.Verifier
	if expected != "" {
		verifier = expected.Verifier()
		w = io.MultiWriter(tmp, verifier)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("download %s: %w", url, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", tmpPath, err)
	}

	if verifier != nil && !verifier.Verified() {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("download %s: %w", url, ErrChecksumMismatch)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("finalize %s: %w", dest, err)
	}

	d.log().Debug("downloaded", "url", url, "dest", dest)
	return nil
}
