// Package fasta parses FASTA-formatted sequence files.
package fasta

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// maxLineSize bounds a single FASTA line. Sequence data is usually wrapped
// at 60-80 columns, but some exporters emit one line per record.
const maxLineSize = 64 << 20

// Record is a single FASTA entry.
type Record struct {
	// ID is the first whitespace-delimited token of the header line, without
	// the leading ">".
	ID string

	// Description is the remainder of the header line, if any.
	Description string

	// Sequence holds the concatenated sequence lines.
	Sequence string
}

// Parse reads FASTA records in order of appearance.
func Parse(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var records []Record
	var current *Record
	var seq strings.Builder
	lineno := 0

	flush := func() {
		if current != nil {
			current.Sequence = seq.String()
			records = append(records, *current)
			seq.Reset()
		}
	}

	for scanner.Scan() {
		lineno++
		line := strings.TrimRight(scanner.Text(), " \t\r")
		switch {
		case line == "" || strings.HasPrefix(line, ";"):
			// blank lines and old-style comments
		case strings.HasPrefix(line, ">"):
			flush()
			header := strings.TrimPrefix(line, ">")
			fields := strings.Fields(header)
			if len(fields) == 0 {
				return nil, fmt.Errorf("line %d: header with no identifier", lineno)
			}
			current = &Record{ID: fields[0]}
			if rest := strings.TrimSpace(header[len(fields[0]):]); rest != "" {
				current.Description = rest
			}
		default:
			if current == nil {
				return nil, fmt.Errorf("line %d: sequence data before first header", lineno)
			}
			seq.WriteString(strings.TrimSpace(line))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read fasta: %w", err)
	}
	flush()
	return records, nil
}

// ParseFile parses the FASTA file at path, transparently gunzipping *.gz and
// *.gzip files.
func ParseFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fasta %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") || strings.HasSuffix(path, ".gzip") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open fasta %s: %w", path, err)
		}
		defer zr.Close()
		r = zr
	}

	records, err := Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse fasta %s: %w", path, err)
	}
	return records, nil
}

// Dict converts records into an identifier→sequence map. Duplicate
// identifiers are an error, matching the uniqueness a keyed lookup implies.
func Dict(records []Record) (map[string]string, error) {
	dict := make(map[string]string, len(records))
	for _, rec := range records {
		if _, ok := dict[rec.ID]; ok {
			return nil, fmt.Errorf("duplicate sequence identifier %q", rec.ID)
		}
		dict[rec.ID] = rec.Sequence
	}
	return dict, nil
}
