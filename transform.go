package datacache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Transformer converts a fetched source file into a derived artifact written
// to targetPath.
type Transformer func(ctx context.Context, sourcePath, targetPath string) error

// Loader reads a derived artifact from targetPath into memory.
type Loader[T any] func(targetPath string) (T, error)

// FetchAndTransform memoizes transform over a fetched source file.
//
// The source is fetched (or reused) via [Cache.Fetch], transform runs only
// when transformedFilename is absent from the cache, and load always runs on
// the transformed path. Errors from transform and load propagate unchanged;
// a failed transform leaves no artifact behind, so the next call retries it.
func FetchAndTransform[T any](
	ctx context.Context,
	c *Cache,
	transformedFilename string,
	transform Transformer,
	load Loader[T],
	sourceURL string,
	opts ...FetchOption,
) (T, error) {
	var zero T
	cfg := newFetchConfig(opts)

	dir, err := c.DataDir(cfg.subdir)
	if err != nil {
		return zero, err
	}
	targetPath := filepath.Join(dir, transformedFilename)

	if cfg.force || !c.fresh(targetPath) {
		sourcePath, err := c.Fetch(ctx, sourceURL, opts...)
		if err != nil {
			return zero, err
		}
		c.log().Info("transforming", "source", sourcePath, "target", targetPath)
		if err := transform(ctx, sourcePath, targetPath); err != nil {
			if rmErr := os.Remove(targetPath); rmErr != nil && !os.IsNotExist(rmErr) {
				c.log().Warn("could not remove partial artifact", "path", targetPath, "error", rmErr)
			}
			return zero, err
		}
		if !c.fresh(targetPath) {
			return zero, fmt.Errorf("transformer produced no artifact at %s", targetPath)
		}
	}

	return load(targetPath)
}
