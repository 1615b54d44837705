package db

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTable() *Table {
	return &Table{
		Name: "test",
		Columns: []Column{
			{Name: "int_col", Type: "INT"},
			{Name: "str_col", Type: "TEXT"},
		},
		PrimaryKey: "int_col",
		Nullable:   map[string]bool{"str_col": true},
		Indices:    [][]string{{"str_col"}},
		Rows: func() ([][]any, error) {
			return [][]any{
				{int64(1), "darkness"},
				{int64(2), "light"},
				{int64(3), nil},
			}, nil
		},
	}
}

func TestCreate(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "test.db")
	d, err := Open(path)
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, d.Create([]*Table{testTable()}, 2))

	hasTable, err := d.HasTable("test")
	require.NoError(t, err)
	assert.True(t, hasTable)

	hasVersion, err := d.HasVersion()
	require.NoError(t, err)
	assert.True(t, hasVersion)

	version, err := d.Version()
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	var intResult int
	row := d.Conn().QueryRow(`SELECT int_col FROM test WHERE str_col = 'light'`)
	require.NoError(t, row.Scan(&intResult))
	assert.Equal(t, 2, intResult)

	var nulls int
	row = d.Conn().QueryRow(`SELECT count(*) FROM test WHERE str_col IS NULL`)
	require.NoError(t, row.Scan(&nulls))
	assert.Equal(t, 1, nulls)
}

func TestHasTableMissing(t *testing.T) {
	t.Parallel()

	d, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer d.Close()

	hasTable, err := d.HasTable("missing")
	require.NoError(t, err)
	assert.False(t, hasTable)

	version, err := d.Version()
	require.NoError(t, err)
	assert.Zero(t, version)
}

func TestCreateRowWidthMismatch(t *testing.T) {
	t.Parallel()

	d, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer d.Close()

	table := testTable()
	table.Rows = func() ([][]any, error) {
		return [][]any{{int64(1)}}, nil
	}
	require.Error(t, d.Create([]*Table{table}, 1))
}

func TestCreateCachedBuildsOnce(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "test.db")

	d, err := CreateCached(path, []*Table{testTable()}, 1)
	require.NoError(t, err)
	require.NoError(t, d.Close())

	// second call must reuse the file without calling Rows
	poisoned := testTable()
	poisoned.Rows = func() ([][]any, error) {
		t.Fatal("Rows called for a cached database")
		return nil, nil
	}
	d, err = CreateCached(path, []*Table{poisoned}, 1)
	require.NoError(t, err)
	defer d.Close()

	var count int
	row := d.Conn().QueryRow(`SELECT count(*) FROM test`)
	require.NoError(t, row.Scan(&count))
	assert.Equal(t, 3, count)
}

func TestCreateCachedRebuildsOnVersionChange(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "test.db")

	d, err := CreateCached(path, []*Table{testTable()}, 1)
	require.NoError(t, err)
	require.NoError(t, d.Close())

	rebuilt := testTable()
	called := false
	rows := rebuilt.Rows
	rebuilt.Rows = func() ([][]any, error) {
		called = true
		return rows()
	}
	d, err = CreateCached(path, []*Table{rebuilt}, 2)
	require.NoError(t, err)
	defer d.Close()

	assert.True(t, called, "version change must rebuild the database")
	version, err := d.Version()
	require.NoError(t, err)
	assert.Equal(t, 2, version)
}

func TestCreateCachedRemovesFileOnFailure(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "test.db")
	table := testTable()
	table.Rows = func() ([][]any, error) {
		return nil, assert.AnError
	}

	_, err := CreateCached(path, []*Table{table}, 1)
	require.ErrorIs(t, err, assert.AnError)
	assert.NoFileExists(t, path)
}

func TestCreateCachedIgnoresForeignVersionlessFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "test.db")

	// a database with the table but no version metadata is incomplete
	d, err := Open(path)
	require.NoError(t, err)
	_, err = d.Conn().Exec(`CREATE TABLE test (x INT)`)
	require.NoError(t, err)
	require.NoError(t, d.Close())

	d, err = CreateCached(path, []*Table{testTable()}, 1)
	require.NoError(t, err)
	defer d.Close()

	var count int
	row := d.Conn().QueryRow(`SELECT count(*) FROM test`)
	require.NoError(t, row.Scan(&count))
	assert.Equal(t, 3, count)
}

func TestCreateIndices(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "test.db")
	table := testTable()
	table.Indices = [][]string{{"int_col", "str_col"}}

	d, err := Open(path)
	require.NoError(t, err)
	defer d.Close()
	require.NoError(t, d.Create([]*Table{table}, 1))

	var name string
	row := d.Conn().QueryRow(
		`SELECT name FROM sqlite_master WHERE type = 'index' AND name = ?`,
		"test_index_int_col_str_col")
	require.NoError(t, row.Scan(&name))
}

func TestOpenCreatesFileLazily(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "lazy.db")
	d, err := Open(path)
	require.NoError(t, err)
	defer d.Close()

	// touching the connection materializes the file
	require.NoError(t, d.Conn().Ping())
	_, err = os.Stat(path)
	require.NoError(t, err)
}
