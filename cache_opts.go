package datacache

import (
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// Option configures a Cache.
type Option func(*Cache) error

// WithDir sets the base cache directory, overriding the DATACACHE_DIR
// environment variable and the user cache directory default.
func WithDir(dir string) Option {
	return func(c *Cache) error {
		if dir == "" {
			return errors.New("cache dir is empty")
		}
		c.dir = dir
		return nil
	}
}

// WithSubdir sets the default dataset subdirectory used when a fetch names
// none. Defaults to [DefaultSubdir].
func WithSubdir(subdir string) Option {
	return func(c *Cache) error {
		if subdir == "" {
			return errors.New("subdir is empty")
		}
		c.subdir = subdir
		return nil
	}
}

// WithHTTPClient sets the HTTP client used for downloads, including whatever
// timeout discipline the caller wants.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Cache) error {
		if client == nil {
			return errors.New("http client is nil")
		}
		c.client = client
		return nil
	}
}

// WithLogger sets a logger for the cache.
// If nil, a discard logger is used (default behavior).
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) error {
		c.logger = logger
		return nil
	}
}

// WithTTL treats artifacts older than ttl as stale, re-downloading them on
// the next fetch. Zero (the default) disables staleness checks entirely.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) error {
		if ttl < 0 {
			return errors.New("ttl is negative")
		}
		c.ttl = ttl
		return nil
	}
}
