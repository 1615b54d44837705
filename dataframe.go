package datacache

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-gota/gota/dataframe"

	"github.com/openvax/datacache/db"
)

// DBOption configures building databases directly from dataframes.
type DBOption func(*dbConfig)

type dbConfig struct {
	subdir      string
	version     int
	overwrite   bool
	primaryKeys map[string]string
	indices     map[string][][]string
}

// DBWithSubdir places the database under a dataset subdirectory.
func DBWithSubdir(subdir string) DBOption {
	return func(cfg *dbConfig) {
		cfg.subdir = subdir
	}
}

// DBWithVersion tags the built database; a cached database with a different
// version is rebuilt. Defaults to 1.
func DBWithVersion(version int) DBOption {
	return func(cfg *dbConfig) {
		cfg.version = version
	}
}

// DBWithOverwrite removes an existing database file before building.
func DBWithOverwrite() DBOption {
	return func(cfg *dbConfig) {
		cfg.overwrite = true
	}
}

// DBWithPrimaryKey marks column as table's primary key.
func DBWithPrimaryKey(table, column string) DBOption {
	return func(cfg *dbConfig) {
		if cfg.primaryKeys == nil {
			cfg.primaryKeys = make(map[string]string)
		}
		cfg.primaryKeys[table] = column
	}
}

// DBWithIndex adds a (possibly multi-column) index on table.
func DBWithIndex(table string, columns ...string) DBOption {
	return func(cfg *dbConfig) {
		if cfg.indices == nil {
			cfg.indices = make(map[string][][]string)
		}
		cfg.indices[table] = append(cfg.indices[table], columns)
	}
}

// DBFromDataFrames builds (or reuses) a sqlite database holding one table per
// dataframe, without any download step.
func (c *Cache) DBFromDataFrames(dbFilename string, dfs map[string]dataframe.DataFrame, opts ...DBOption) (*db.Database, error) {
	cfg := dbConfig{version: 1}
	for _, opt := range opts {
		opt(&cfg)
	}

	dir, err := c.DataDir(cfg.subdir)
	if err != nil {
		return nil, err
	}
	dbPath := filepath.Join(dir, dbFilename)

	if cfg.overwrite {
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("remove %s: %w", dbPath, err)
		}
	}

	// deterministic table order regardless of map iteration
	names := make([]string, 0, len(dfs))
	for name := range dfs {
		names = append(names, name)
	}
	sort.Strings(names)

	tables := make([]*db.Table, 0, len(dfs))
	for _, name := range names {
		table, err := db.TableFromDataFrame(name, dfs[name], cfg.primaryKeys[name], cfg.indices[name])
		if err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}

	return db.CreateCached(dbPath, tables, cfg.version, db.WithLogger(c.logger))
}

// DBFromDataFrame builds (or reuses) a sqlite database holding a single
// dataframe-backed table.
func (c *Cache) DBFromDataFrame(dbFilename, tableName string, df dataframe.DataFrame, opts ...DBOption) (*db.Database, error) {
	return c.DBFromDataFrames(dbFilename, map[string]dataframe.DataFrame{tableName: df}, opts...)
}
