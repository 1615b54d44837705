package datacache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"

	"github.com/openvax/datacache/internal/decompress"
	"github.com/openvax/datacache/internal/download"
	"github.com/openvax/datacache/internal/pathutil"
)

// FetchOption configures a single fetch.
type FetchOption func(*fetchConfig)

type fetchConfig struct {
	filename   string
	subdir     string
	decompress bool
	force      bool
	zipMember  string
	digest     string
}

func newFetchConfig(opts []FetchOption) fetchConfig {
	cfg := fetchConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// FetchWithFilename sets the local filename used as the cache key, instead of
// a name derived from the URL.
func FetchWithFilename(filename string) FetchOption {
	return func(cfg *fetchConfig) {
		cfg.filename = filename
	}
}

// FetchWithSubdir groups the download under a dataset subdirectory.
func FetchWithSubdir(subdir string) FetchOption {
	return func(cfg *fetchConfig) {
		cfg.subdir = subdir
	}
}

// FetchWithDecompress unpacks the downloaded archive next to it, returning
// the decompressed path. Supported formats: gzip, zip, zstd.
func FetchWithDecompress() FetchOption {
	return func(cfg *fetchConfig) {
		cfg.decompress = true
	}
}

// FetchWithForce re-downloads even when a cached artifact exists.
func FetchWithForce() FetchOption {
	return func(cfg *fetchConfig) {
		cfg.force = true
	}
}

// FetchWithZipMember names the zip entry to extract when decompressing a zip
// archive that holds more than one file.
func FetchWithZipMember(member string) FetchOption {
	return func(cfg *fetchConfig) {
		cfg.zipMember = member
	}
}

// FetchWithDigest verifies the downloaded bytes against an OCI-style digest
// (e.g. "sha256:abc...") before the artifact becomes visible in the cache.
func FetchWithDigest(dgst string) FetchOption {
	return func(cfg *fetchConfig) {
		cfg.digest = dgst
	}
}

// Fetch downloads url into the cache and returns the local path, skipping the
// download when a fresh artifact is already present.
//
// With [FetchWithDecompress], the compressed download is kept and the
// returned path is its decompressed sibling, with the compression suffix
// stripped; the unpack step is skipped too when its output already exists.
func (c *Cache) Fetch(ctx context.Context, url string, opts ...FetchOption) (string, error) {
	if url == "" {
		return "", errors.New("download url is empty")
	}
	cfg := newFetchConfig(opts)

	key := pathKey{url: url, filename: cfg.filename, subdir: cfg.subdir, decompress: cfg.decompress}
	if !cfg.force {
		if path, ok := c.paths.Get(key); ok {
			if c.fresh(path) {
				return path, nil
			}
			c.paths.Remove(key)
		}
	}

	path, err := c.fetch(ctx, url, cfg)
	if err != nil {
		return "", err
	}
	c.paths.Add(key, path)
	return path, nil
}

// FetchFile downloads url into the process-wide default cache. See
// [Cache.Fetch].
func FetchFile(ctx context.Context, url string, opts ...FetchOption) (string, error) {
	c, err := Default()
	if err != nil {
		return "", err
	}
	return c.Fetch(ctx, url, opts...)
}

// resolvePaths computes the compressed download path and the final artifact
// path for a fetch. The two are equal unless decompression applies.
func (c *Cache) resolvePaths(url string, cfg fetchConfig, dir string) (downloadPath, finalPath string) {
	localName := pathutil.LocalFilename(url, cfg.filename, false)
	compressedName := localName
	suffix := pathutil.CompressionSuffix(localName)
	if cfg.decompress && suffix == "" {
		// explicit filename without a suffix: dispatch on the URL's instead
		if urlSuffix := pathutil.CompressionSuffix(pathutil.URLBasename(url)); urlSuffix != "" {
			suffix = urlSuffix
			compressedName = localName + urlSuffix
		}
	}

	downloadPath = filepath.Join(dir, compressedName)
	finalPath = downloadPath
	if cfg.decompress && suffix != "" {
		stripped, _ := pathutil.StripCompressionSuffix(compressedName)
		finalPath = filepath.Join(dir, stripped)
	}
	return downloadPath, finalPath
}

func (c *Cache) fetch(ctx context.Context, url string, cfg fetchConfig) (string, error) {
	dir, err := c.DataDir(cfg.subdir)
	if err != nil {
		return "", err
	}
	downloadPath, finalPath := c.resolvePaths(url, cfg, dir)

	var expected digest.Digest
	if cfg.digest != "" {
		expected, err = digest.Parse(cfg.digest)
		if err != nil {
			return "", fmt.Errorf("parse expected digest: %w", err)
		}
	}

	if cfg.force {
		for _, path := range []string{finalPath, downloadPath} {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return "", fmt.Errorf("remove %s: %w", path, err)
			}
		}
	} else if c.fresh(finalPath) {
		c.log().Debug("cache hit", "url", url, "path", finalPath)
		return finalPath, nil
	}

	if cfg.force || !c.fresh(downloadPath) {
		dl := download.New(download.WithClient(c.client), download.WithLogger(c.logger))
		if err := dl.Fetch(ctx, url, downloadPath, expected); err != nil {
			return "", err
		}
	}

	if finalPath != downloadPath {
		c.log().Info("decompressing", "src", downloadPath, "dest", finalPath)
		if err := decompress.File(downloadPath, finalPath, cfg.zipMember); err != nil {
			return "", err
		}
	}
	return finalPath, nil
}
