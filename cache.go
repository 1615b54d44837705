package datacache

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/openvax/datacache/internal/pathutil"
)

// DefaultSubdir groups downloads that name no dataset subdirectory.
const DefaultSubdir = "datacache"

// EnvCacheDir names the environment variable that overrides the base cache
// directory.
const EnvCacheDir = "DATACACHE_DIR"

// pathMemoSize bounds the in-memory memo of resolved local paths.
const pathMemoSize = 512

const dirPerm = 0o755

// pathKey identifies one cache entry: a URL fetched with a particular local
// filename, dataset subdirectory, and decompression setting.
type pathKey struct {
	url        string
	filename   string
	subdir     string
	decompress bool
}

// Cache downloads and stores dataset artifacts under a base cache directory,
// one subdirectory per logical dataset group.
//
// A zero TTL means an artifact on disk is valid forever; the cache trades
// staleness risk for never repeating a download.
type Cache struct {
	dir    string
	subdir string
	client *http.Client
	logger *slog.Logger
	ttl    time.Duration

	// resolved local paths, validated against the filesystem before reuse
	paths *lru.Cache[pathKey, string]
}

// New creates a Cache with the given options.
//
// The base directory defaults to the DATACACHE_DIR environment variable if
// set, else the user cache directory.
func New(opts ...Option) (*Cache, error) {
	c := &Cache{
		subdir: DefaultSubdir,
		client: http.DefaultClient,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.dir == "" {
		dir, err := defaultDir()
		if err != nil {
			return nil, err
		}
		c.dir = dir
	}
	if err := os.MkdirAll(c.dir, dirPerm); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", c.dir, err)
	}
	paths, err := lru.New[pathKey, string](pathMemoSize)
	if err != nil {
		return nil, err
	}
	c.paths = paths
	return c, nil
}

func defaultDir() (string, error) {
	if dir := os.Getenv(EnvCacheDir); dir != "" {
		return dir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve user cache dir: %w", err)
	}
	return base, nil
}

var (
	defaultCache     *Cache
	defaultCacheErr  error
	defaultCacheOnce sync.Once
)

// Default returns the process-wide Cache used by the package-level helpers.
func Default() (*Cache, error) {
	defaultCacheOnce.Do(func() {
		defaultCache, defaultCacheErr = New()
	})
	return defaultCache, defaultCacheErr
}

func (c *Cache) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c.logger
}

// Dir returns the base cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// DataDir returns, creating it if necessary, the directory holding one
// dataset group. An empty subdir selects the Cache's default group.
func (c *Cache) DataDir(subdir string) (string, error) {
	if subdir == "" {
		subdir = c.subdir
	}
	dir := filepath.Join(c.dir, subdir)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", fmt.Errorf("create cache dir %s: %w", dir, err)
	}
	return dir, nil
}

// LocalFilename returns the filename a fetch of url would use inside the
// cache directory.
func (c *Cache) LocalFilename(url string, opts ...FetchOption) string {
	cfg := newFetchConfig(opts)
	return pathutil.LocalFilename(url, cfg.filename, cfg.decompress)
}

// LocalPath returns the full local path a fetch of url would produce,
// without downloading anything.
func (c *Cache) LocalPath(url string, opts ...FetchOption) (string, error) {
	cfg := newFetchConfig(opts)
	dir, err := c.DataDir(cfg.subdir)
	if err != nil {
		return "", err
	}
	_, finalPath := c.resolvePaths(url, cfg, dir)
	return finalPath, nil
}

// Exists reports whether a fetch of url would be satisfied from disk.
func (c *Cache) Exists(url string, opts ...FetchOption) bool {
	path, err := c.LocalPath(url, opts...)
	if err != nil {
		return false
	}
	return c.fresh(path)
}

// DeleteURL removes the local artifacts downloaded from url, both compressed
// and decompressed.
func (c *Cache) DeleteURL(url string, opts ...FetchOption) error {
	cfg := newFetchConfig(opts)
	dir, err := c.DataDir(cfg.subdir)
	if err != nil {
		return err
	}
	for _, decompressed := range []bool{false, true} {
		cfg.decompress = decompressed
		downloadPath, finalPath := c.resolvePaths(url, cfg, dir)
		c.paths.Remove(pathKey{
			url:        url,
			filename:   cfg.filename,
			subdir:     cfg.subdir,
			decompress: decompressed,
		})
		for _, path := range []string{finalPath, downloadPath} {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("delete %s: %w", path, err)
			}
		}
	}
	return nil
}

// DeleteAll removes the Cache's default dataset subdirectory and purges the
// in-memory path memo.
func (c *Cache) DeleteAll() error {
	return c.Clear(c.subdir)
}

// Clear removes one dataset subdirectory and purges the in-memory path memo.
func (c *Cache) Clear(subdir string) error {
	if subdir == "" {
		subdir = c.subdir
	}
	c.paths.Purge()
	dir := filepath.Join(c.dir, subdir)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clear cache dir %s: %w", dir, err)
	}
	return nil
}

// fresh reports whether path exists and, when a TTL is configured, is younger
// than it.
func (c *Cache) fresh(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if c.ttl <= 0 {
		return true
	}
	return time.Since(info.ModTime()) < c.ttl
}
