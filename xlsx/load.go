/*
Package xlsx reads and writes the Sales&Claims workbook.

PURPOSE:
  The only I/O boundary of the engine. Load identifies the Sales and Claims
  sheets by name ("sale"/"claim" substring, case-insensitive), falling back
  to the first and second sheets, trims headers once and coerces cells to
  typed values (numbers, dates) so the dataset package never parses strings
  in hot paths.

ERRORS:
  Malformed or unreadable sources fail with *dataset.LoadError. A failed
  load leaves any previously loaded data untouched -- the caller only
  installs the returned tables on success.
*/
package xlsx

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/clarity-bi/clarity/dataset"
	"github.com/xuri/excelize/v2"
)

// Open reads a workbook from disk.
func Open(path string) (sales, claims dataset.Table, err error) {
	f, ferr := excelize.OpenFile(path)
	if ferr != nil {
		return dataset.Table{}, dataset.Table{}, &dataset.LoadError{Source: path, Err: ferr}
	}
	defer f.Close()
	return parse(f, path)
}

// Read reads a workbook from a stream (upload body, byte buffer).
func Read(r io.Reader) (sales, claims dataset.Table, err error) {
	f, ferr := excelize.OpenReader(r)
	if ferr != nil {
		return dataset.Table{}, dataset.Table{}, &dataset.LoadError{Source: "upload", Err: ferr}
	}
	defer f.Close()
	return parse(f, "upload")
}

func parse(f *excelize.File, source string) (dataset.Table, dataset.Table, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return dataset.Table{}, dataset.Table{}, &dataset.LoadError{Source: source, Err: fmt.Errorf("workbook has no sheets")}
	}

	salesSheet := sheetContaining(sheets, "sale", sheets[0])
	claimsFallback := sheets[0]
	if len(sheets) > 1 {
		claimsFallback = sheets[1]
	}
	claimsSheet := sheetContaining(sheets, "claim", claimsFallback)

	sales, err := readSheet(f, salesSheet)
	if err != nil {
		return dataset.Table{}, dataset.Table{}, &dataset.LoadError{Source: source, Err: err}
	}
	claims, err := readSheet(f, claimsSheet)
	if err != nil {
		return dataset.Table{}, dataset.Table{}, &dataset.LoadError{Source: source, Err: err}
	}
	return sales, claims, nil
}

func sheetContaining(sheets []string, substr, fallback string) string {
	for _, s := range sheets {
		if strings.Contains(strings.ToLower(s), substr) {
			return s
		}
	}
	return fallback
}

func readSheet(f *excelize.File, sheet string) (dataset.Table, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return dataset.Table{}, fmt.Errorf("sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return dataset.Table{}, fmt.Errorf("sheet %q: empty", sheet)
	}

	// Headers are trimmed exactly once, here.
	var columns []string
	for _, h := range rows[0] {
		columns = append(columns, strings.TrimSpace(h))
	}

	t := dataset.Table{Name: sheet, Columns: columns}
	for _, raw := range rows[1:] {
		cells := make(map[string]any, len(columns))
		empty := true
		for i, col := range columns {
			if col == "" {
				continue
			}
			var v string
			if i < len(raw) {
				v = raw[i]
			}
			cells[col] = coerce(col, v)
			if strings.TrimSpace(v) != "" {
				empty = false
			}
		}
		if empty {
			continue
		}
		t.Rows = append(t.Rows, dataset.Row{Cells: cells})
	}
	return t, nil
}

// coerce types a raw cell: dates for date-ish columns, numbers where they
// parse, nil for blanks, otherwise the string as-is.
func coerce(column, raw string) any {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	if strings.Contains(strings.ToLower(column), "date") {
		if d, ok := dataset.ParseDate(s); ok {
			return d
		}
		return s
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n
	}
	return s
}
