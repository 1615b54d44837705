// Package db materializes datasets as versioned sqlite tables.
//
// Databases built here carry a metadata table recording a caller-supplied
// version; a database is reused only when every requested table exists and
// the stored version matches, so schema changes rebuild instead of serving
// stale shapes.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	_ "modernc.org/sqlite" // database/sql driver
)

// metadataTable records the version of a datacache-built database. Its
// absence marks a database that was not built here or did not finish.
const metadataTable = "_datacache_metadata"

// Database wraps a sqlite connection with helpers for building and checking
// cached tables.
type Database struct {
	path   string
	conn   *sql.DB
	logger *slog.Logger
}

// Option configures a Database.
type Option func(*Database)

// WithLogger sets a logger. If nil, logging is discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Database) {
		d.logger = logger
	}
}

// Open opens (creating if necessary) the sqlite database at path.
func Open(path string, opts ...Option) (*Database, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db %s: %w", path, err)
	}
	d := &Database{path: path, conn: conn}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func (d *Database) log() *slog.Logger {
	if d.logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return d.logger
}

// Path returns the database file path.
func (d *Database) Path() string {
	return d.path
}

// Conn exposes the underlying connection for direct queries.
func (d *Database) Conn() *sql.DB {
	return d.conn
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.conn.Close()
}

// HasTable reports whether a table named name exists.
func (d *Database) HasTable(name string) (bool, error) {
	row := d.conn.QueryRow(
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, name)
	var found string
	switch err := row.Scan(&found); {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("query sqlite_master: %w", err)
	}
	return true, nil
}

// HasTables reports whether every named table exists.
func (d *Database) HasTables(names []string) (bool, error) {
	for _, name := range names {
		ok, err := d.HasTable(name)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// HasVersion reports whether the database carries version metadata. Its
// absence marks an incomplete or foreign database.
func (d *Database) HasVersion() (bool, error) {
	return d.HasTable(metadataTable)
}

// Version returns the stored version, or 0 when none is recorded.
func (d *Database) Version() (int, error) {
	has, err := d.HasVersion()
	if err != nil || !has {
		return 0, err
	}
	row := d.conn.QueryRow(`SELECT version FROM "` + metadataTable + `"`)
	var version int
	switch err := row.Scan(&version); {
	case errors.Is(err, sql.ErrNoRows):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("read version metadata: %w", err)
	}
	return version, nil
}

// Create builds the tables, fills them, creates their indices, and stamps the
// version metadata, all in one transaction.
func (d *Database) Create(tables []*Table, version int) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := d.create(tx, tables, version); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (d *Database) create(tx *sql.Tx, tables []*Table, version int) error {
	for _, table := range tables {
		if err := d.createTable(tx, table); err != nil {
			return err
		}
		if err := d.fillTable(tx, table); err != nil {
			return err
		}
		if err := d.createIndices(tx, table); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(fmt.Sprintf(`CREATE TABLE %q (version INT)`, metadataTable)); err != nil {
		return fmt.Errorf("create metadata table: %w", err)
	}
	if _, err := tx.Exec(fmt.Sprintf(`INSERT INTO %q VALUES (?)`, metadataTable), version); err != nil {
		return fmt.Errorf("write version metadata: %w", err)
	}
	return nil
}

func (d *Database) createTable(tx *sql.Tx, table *Table) error {
	if table.Name == "" {
		return errors.New("table name is empty")
	}
	if len(table.Columns) == 0 {
		return fmt.Errorf("table %s has no columns", table.Name)
	}

	decls := make([]string, 0, len(table.Columns))
	for _, col := range table.Columns {
		decl := fmt.Sprintf("%q %s", col.Name, col.Type)
		if col.Name == table.PrimaryKey {
			decl += " UNIQUE PRIMARY KEY"
		} else if !table.Nullable[col.Name] {
			decl += " NOT NULL"
		}
		decls = append(decls, decl)
	}

	stmt := fmt.Sprintf("CREATE TABLE %q (%s)", table.Name, strings.Join(decls, ", "))
	d.log().Debug("creating table", "table", table.Name, "sql", stmt)
	if _, err := tx.Exec(stmt); err != nil {
		return fmt.Errorf("create table %s: %w", table.Name, err)
	}
	return nil
}

func (d *Database) fillTable(tx *sql.Tx, table *Table) error {
	rows, err := table.Rows()
	if err != nil {
		return fmt.Errorf("build rows for table %s: %w", table.Name, err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(table.Columns)), ", ")
	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO %q VALUES (%s)", table.Name, placeholders))
	if err != nil {
		return fmt.Errorf("prepare insert for table %s: %w", table.Name, err)
	}
	defer stmt.Close()

	d.log().Info("filling table", "table", table.Name, "rows", len(rows))
	for _, row := range rows {
		if len(row) != len(table.Columns) {
			return fmt.Errorf(
				"table %s: row has %d values, want %d", table.Name, len(row), len(table.Columns))
		}
		if _, err := stmt.Exec(row...); err != nil {
			return fmt.Errorf("insert into table %s: %w", table.Name, err)
		}
	}
	return nil
}

func (d *Database) createIndices(tx *sql.Tx, table *Table) error {
	for _, cols := range table.Indices {
		if len(cols) == 0 {
			continue
		}
		name := table.Name + "_index_" + strings.Join(cols, "_")
		quoted := make([]string, len(cols))
		for i, col := range cols {
			quoted[i] = fmt.Sprintf("%q", col)
		}
		stmt := fmt.Sprintf("CREATE INDEX %q ON %q (%s)", name, table.Name, strings.Join(quoted, ", "))
		d.log().Debug("creating index", "table", table.Name, "columns", cols)
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("create index on table %s: %w", table.Name, err)
		}
	}
	return nil
}

// CreateCached opens or builds the database at path.
//
// When every requested table already exists and the stored version matches,
// the existing file is reused untouched and table.Rows is never called.
// Otherwise the file is rebuilt from scratch; a failed build removes it
// rather than leaving an empty database to be mistaken for a cached one.
func CreateCached(path string, tables []*Table, version int, opts ...Option) (*Database, error) {
	d, err := Open(path, opts...)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(tables))
	for i, table := range tables {
		names[i] = table.Name
	}

	ok, err := d.HasTables(names)
	if err != nil {
		d.Close()
		return nil, err
	}
	if ok {
		stored, err := d.Version()
		if err != nil {
			d.Close()
			return nil, err
		}
		if stored == version {
			d.log().Info("reusing cached database", "path", path)
			return d, nil
		}
	}

	// Stale or partial: rebuild the file from scratch.
	if err := d.Close(); err != nil {
		return nil, fmt.Errorf("close sqlite db %s: %w", path, err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("remove stale db %s: %w", path, err)
	}
	d, err = Open(path, opts...)
	if err != nil {
		return nil, err
	}
	if err := d.Create(tables, version); err != nil {
		d.Close()
		_ = os.Remove(path)
		return nil, err
	}
	return d, nil
}
