// Package sheet reads CRM exports (XLSX or CSV) into header-keyed records.
package sheet

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Options configures how a spreadsheet is read.
type Options struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
	// Limit caps the number of data rows; 0 reads all.
	Limit int
}

// Table is a parsed sheet: the header row and the non-blank data rows.
type Table struct {
	Name    string
	Headers []string
	Rows    [][]string
}

// Load reads the spreadsheet at path. The format is chosen by extension.
func Load(path string, opts Options) (*Table, error) {
	f, err := os.Open(path) //nolint:gosec // operator-supplied input file
	if err != nil {
		return nil, eris.Wrapf(err, "sheet: open %s", path)
	}
	defer f.Close() //nolint:errcheck
	return Parse(filepath.Base(path), f, opts)
}

// Parse reads a spreadsheet named name from r. The name's extension selects
// the format: .xlsx, or .csv/.txt for delimited text.
func Parse(name string, r io.Reader, opts Options) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrapf(err, "sheet: read %s", name)
	}

	var rows [][]string
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".xlsx":
		rows, err = readXLSX(data, opts)
	case ".csv", ".txt":
		rows, err = readCSV(data)
	default:
		return nil, eris.Errorf("sheet: unsupported file type %q (use .xlsx or .csv)", ext)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sheet: parse %s", name)
	}

	t := fromRows(rows, opts.Limit)
	t.Name = name
	if len(t.Headers) == 0 {
		return nil, eris.Errorf("sheet: %s has no header row", name)
	}
	return t, nil
}

func fromRows(rows [][]string, limit int) *Table {
	t := &Table{}
	for _, row := range rows {
		if blank(row) {
			continue
		}
		if t.Headers == nil {
			t.Headers = make([]string, len(row))
			for i, h := range row {
				t.Headers[i] = strings.TrimSpace(h)
			}
			continue
		}
		if limit > 0 && len(t.Rows) >= limit {
			break
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Records returns one map per data row keyed by header text. Short rows are
// padded with empty values, unnamed columns are dropped and the first of
// duplicate headers wins.
func (t *Table) Records() []map[string]string {
	out := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]string, len(t.Headers))
		for i, h := range t.Headers {
			if h == "" {
				continue
			}
			if _, dup := rec[h]; dup {
				continue
			}
			v := ""
			if i < len(row) {
				v = row[i]
			}
			rec[h] = v
		}
		out = append(out, rec)
	}
	return out
}
