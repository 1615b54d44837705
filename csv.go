package datacache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"

	"github.com/openvax/datacache/db"
	"github.com/openvax/datacache/internal/pathutil"
)

// CSVOption configures the CSV helpers.
type CSVOption func(*csvConfig)

type csvConfig struct {
	fetchOpts  []FetchOption
	loadOpts   []dataframe.LoadOption
	dbFilename string
	primaryKey string
	version    int
}

// CSVWithFetchOptions forwards options (filename, subdir, force, ...) to the
// underlying fetch.
func CSVWithFetchOptions(opts ...FetchOption) CSVOption {
	return func(cfg *csvConfig) {
		cfg.fetchOpts = append(cfg.fetchOpts, opts...)
	}
}

// CSVWithLoadOptions forwards parse options (delimiter, header handling,
// column types, ...) to the dataframe reader.
func CSVWithLoadOptions(opts ...dataframe.LoadOption) CSVOption {
	return func(cfg *csvConfig) {
		cfg.loadOpts = append(cfg.loadOpts, opts...)
	}
}

// CSVWithDBFilename fixes the backing database filename instead of deriving
// it from the CSV's shape.
func CSVWithDBFilename(name string) CSVOption {
	return func(cfg *csvConfig) {
		cfg.dbFilename = name
	}
}

// CSVWithPrimaryKey marks a column as the table's primary key.
func CSVWithPrimaryKey(column string) CSVOption {
	return func(cfg *csvConfig) {
		cfg.primaryKey = column
	}
}

// CSVWithVersion tags the built database; a cached database with a different
// version is rebuilt. Defaults to 1.
func CSVWithVersion(version int) CSVOption {
	return func(cfg *csvConfig) {
		cfg.version = version
	}
}

// FetchCSVDataFrame downloads a CSV file (decompressing it on arrival) and
// parses it into a dataframe, forwarding any load options.
func (c *Cache) FetchCSVDataFrame(ctx context.Context, url string, opts ...CSVOption) (dataframe.DataFrame, error) {
	cfg := newCSVConfig(opts)
	df, _, err := c.fetchCSVDataFrame(ctx, url, cfg)
	return df, err
}

// FetchCSVDataFrame downloads a CSV file into the process-wide default cache
// and parses it into a dataframe.
func FetchCSVDataFrame(ctx context.Context, url string, opts ...CSVOption) (dataframe.DataFrame, error) {
	c, err := Default()
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	return c.FetchCSVDataFrame(ctx, url, opts...)
}

// FetchCSVDB downloads a CSV file and materializes it as a named sqlite
// table, skipping the build when the backing database already holds the
// table at the expected version.
//
// The backing database filename encodes the dataframe's row count and column
// schema, so a reshaped source produces a fresh database instead of silently
// reusing the old one.
func (c *Cache) FetchCSVDB(ctx context.Context, tableName, url string, opts ...CSVOption) (*db.Database, error) {
	cfg := newCSVConfig(opts)
	df, csvPath, err := c.fetchCSVDataFrame(ctx, url, cfg)
	if err != nil {
		return nil, err
	}

	table, err := db.TableFromDataFrame(tableName, df, cfg.primaryKey, nil)
	if err != nil {
		return nil, err
	}

	dbFilename := cfg.dbFilename
	if dbFilename == "" {
		base := strings.TrimSuffix(filepath.Base(csvPath), filepath.Ext(csvPath))
		dbFilename = constructDBFilename(base, df)
	}
	dbPath := filepath.Join(filepath.Dir(csvPath), dbFilename)
	return db.CreateCached(dbPath, []*db.Table{table}, cfg.version, db.WithLogger(c.logger))
}

// FetchCSVDB downloads a CSV file into the process-wide default cache and
// materializes it as a named sqlite table.
func FetchCSVDB(ctx context.Context, tableName, url string, opts ...CSVOption) (*db.Database, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	return c.FetchCSVDB(ctx, tableName, url, opts...)
}

func newCSVConfig(opts []CSVOption) csvConfig {
	cfg := csvConfig{version: 1}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func (c *Cache) fetchCSVDataFrame(ctx context.Context, url string, cfg csvConfig) (dataframe.DataFrame, string, error) {
	path, err := c.Fetch(ctx, url, withDecompress(cfg.fetchOpts)...)
	if err != nil {
		return dataframe.DataFrame{}, "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, "", fmt.Errorf("open csv %s: %w", path, err)
	}
	defer f.Close()

	df := dataframe.ReadCSV(f, cfg.loadOpts...)
	if df.Err != nil {
		return df, "", fmt.Errorf("parse csv %s: %w", path, df.Err)
	}
	return df, path, nil
}

// constructDBFilename derives a database filename from a dataframe's shape:
// row count plus each column's name and sqlite type.
func constructDBFilename(base string, df dataframe.DataFrame) string {
	var b strings.Builder
	b.WriteString(base)
	fmt.Fprintf(&b, "_nrows%d", df.Nrow())
	types := df.Types()
	for i, col := range df.Names() {
		b.WriteString(".")
		b.WriteString(pathutil.Sanitize(strings.ReplaceAll(col, " ", "_")))
		b.WriteString("_")
		b.WriteString(db.ColumnType(types[i]))
	}
	b.WriteString(".db")
	return b.String()
}
