package db

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Column is one named, typed sqlite column.
type Column struct {
	Name string
	Type string
}

// Table describes a sqlite table to build: its schema and a delayed row
// producer.
type Table struct {
	Name       string
	Columns    []Column
	PrimaryKey string
	Nullable   map[string]bool
	Indices    [][]string

	// Rows produces the row tuples, one value per column, in insert order.
	// Construction is delayed so a cached database never pays for it.
	Rows func() ([][]any, error)
}

// ColumnType maps a dataframe series type to a sqlite column type.
func ColumnType(t series.Type) string {
	switch t {
	case series.Int, series.Bool:
		return "INT"
	case series.Float:
		return "FLOAT"
	default:
		return "TEXT"
	}
}

// TableFromDataFrame infers a Table's schema from a dataframe.
//
// Column names have spaces replaced with underscores; columns containing NaN
// are marked nullable and their missing values insert as NULL.
func TableFromDataFrame(name string, df dataframe.DataFrame, primaryKey string, indices [][]string) (*Table, error) {
	if df.Err != nil {
		return nil, fmt.Errorf("dataframe for table %s: %w", name, df.Err)
	}

	names := df.Names()
	types := df.Types()
	columns := make([]Column, len(names))
	nullable := make(map[string]bool)
	for i, colName := range names {
		dbName := strings.ReplaceAll(colName, " ", "_")
		columns[i] = Column{Name: dbName, Type: ColumnType(types[i])}
		if df.Col(colName).HasNaN() {
			nullable[dbName] = true
		}
	}

	rows := func() ([][]any, error) {
		records := df.Records()[1:] // first record is the header
		out := make([][]any, 0, len(records))
		for _, rec := range records {
			row := make([]any, len(rec))
			for i, cell := range rec {
				value, err := cellValue(cell, types[i])
				if err != nil {
					return nil, fmt.Errorf("column %s: %w", names[i], err)
				}
				row[i] = value
			}
			out = append(out, row)
		}
		return out, nil
	}

	return &Table{
		Name:       name,
		Columns:    columns,
		PrimaryKey: primaryKey,
		Nullable:   nullable,
		Indices:    indices,
		Rows:       rows,
	}, nil
}

// cellValue converts a dataframe record cell to a sqlite value. Missing
// numeric cells (rendered "NaN" by gota) become NULL.
func cellValue(cell string, t series.Type) (any, error) {
	switch t {
	case series.Int:
		if cell == "NaN" || cell == "" {
			return nil, nil
		}
		n, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse int %q: %w", cell, err)
		}
		return n, nil
	case series.Float:
		if cell == "NaN" || cell == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, fmt.Errorf("parse float %q: %w", cell, err)
		}
		return f, nil
	case series.Bool:
		if cell == "NaN" || cell == "" {
			return nil, nil
		}
		b, err := strconv.ParseBool(cell)
		if err != nil {
			return nil, fmt.Errorf("parse bool %q: %w", cell, err)
		}
		if b {
			return int64(1), nil
		}
		return int64(0), nil
	default:
		return cell, nil
	}
}
