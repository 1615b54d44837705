package datacache

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/openvax/datacache/db"
	"github.com/openvax/datacache/fasta"
)

// FetchFastaDict downloads a FASTA file (decompressing it on arrival) and
// parses it into an identifier→sequence map.
func (c *Cache) FetchFastaDict(ctx context.Context, url string, opts ...FetchOption) (map[string]string, error) {
	path, err := c.Fetch(ctx, url, withDecompress(opts)...)
	if err != nil {
		return nil, err
	}
	records, err := fasta.ParseFile(path)
	if err != nil {
		return nil, err
	}
	return fasta.Dict(records)
}

// FetchFastaDict downloads a FASTA file into the process-wide default cache
// and parses it into an identifier→sequence map.
func FetchFastaDict(ctx context.Context, url string, opts ...FetchOption) (map[string]string, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	return c.FetchFastaDict(ctx, url, opts...)
}

// FastaDBOption configures FetchFastaDB.
type FastaDBOption func(*fastaDBConfig)

type fastaDBConfig struct {
	keyColumn   string
	valueColumn string
	version     int
	fetchOpts   []FetchOption
}

// FastaDBWithKeyColumn names the identifier column. Defaults to "id".
func FastaDBWithKeyColumn(name string) FastaDBOption {
	return func(cfg *fastaDBConfig) {
		cfg.keyColumn = name
	}
}

// FastaDBWithValueColumn names the sequence column. Defaults to "seq".
func FastaDBWithValueColumn(name string) FastaDBOption {
	return func(cfg *fastaDBConfig) {
		cfg.valueColumn = name
	}
}

// FastaDBWithVersion tags the built database; a cached database with a
// different version is rebuilt. Defaults to 1.
func FastaDBWithVersion(version int) FastaDBOption {
	return func(cfg *fastaDBConfig) {
		cfg.version = version
	}
}

// FastaDBWithFetchOptions forwards options (filename, subdir, force, ...) to
// the underlying fetch.
func FastaDBWithFetchOptions(opts ...FetchOption) FastaDBOption {
	return func(cfg *fastaDBConfig) {
		cfg.fetchOpts = append(cfg.fetchOpts, opts...)
	}
}

// FetchFastaDB downloads a FASTA file and materializes it as a two-column
// sqlite table keyed by sequence identifier.
//
// The download and parse are delayed until the table is actually built: when
// a database with the requested table and version already exists on disk, no
// network or parse work happens at all.
func (c *Cache) FetchFastaDB(ctx context.Context, tableName, url string, opts ...FastaDBOption) (*db.Database, error) {
	cfg := fastaDBConfig{keyColumn: "id", valueColumn: "seq", version: 1}
	for _, opt := range opts {
		opt(&cfg)
	}

	fetchOpts := withDecompress(cfg.fetchOpts)
	localPath, err := c.LocalPath(url, fetchOpts...)
	if err != nil {
		return nil, err
	}

	table := &db.Table{
		Name: tableName,
		Columns: []db.Column{
			{Name: cfg.keyColumn, Type: "TEXT"},
			{Name: cfg.valueColumn, Type: "TEXT"},
		},
		PrimaryKey: cfg.keyColumn,
		Rows: func() ([][]any, error) {
			fastaPath, err := c.Fetch(ctx, url, fetchOpts...)
			if err != nil {
				return nil, err
			}
			records, err := fasta.ParseFile(fastaPath)
			if err != nil {
				return nil, err
			}
			// the key column is a primary key, so identifiers must be unique
			if _, err := fasta.Dict(records); err != nil {
				return nil, fmt.Errorf("fasta from %s: %w", url, err)
			}
			rows := make([][]any, len(records))
			for i, rec := range records {
				rows[i] = []any{rec.ID, rec.Sequence}
			}
			return rows, nil
		},
	}

	dbFilename := fmt.Sprintf("%s.%s.%s.db",
		filepath.Base(localPath), cfg.keyColumn, cfg.valueColumn)
	dbPath := filepath.Join(filepath.Dir(localPath), dbFilename)
	return db.CreateCached(dbPath, []*db.Table{table}, cfg.version, db.WithLogger(c.logger))
}

// FetchFastaDB downloads a FASTA file into the process-wide default cache and
// materializes it as a two-column sqlite table.
func FetchFastaDB(ctx context.Context, tableName, url string, opts ...FastaDBOption) (*db.Database, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	return c.FetchFastaDB(ctx, tableName, url, opts...)
}

// withDecompress copies opts and appends decompression, leaving the caller's
// slice untouched.
func withDecompress(opts []FetchOption) []FetchOption {
	out := make([]FetchOption, 0, len(opts)+1)
	out = append(out, opts...)
	return append(out, FetchWithDecompress())
}
