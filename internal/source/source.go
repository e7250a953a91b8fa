// Package source parses question exports into raw rows for the importer.
//
// The canonical export is a semicolon-delimited CSV saved by Excel with a
// UTF-8 byte order mark: one question per row, ID in the first cell, the
// question text in the second, answer options in the cells after that.
// XLSX workbooks with the same column contract are accepted too.
package source

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/iller5/content-cli/internal/model"
)

// Options configures the source reader.
type Options struct {
	Delimiter  rune   // default ';'
	SheetName  string // xlsx: overrides SheetIndex when set
	SheetIndex int    // xlsx: default 0
}

// File holds the usable rows of one source export.
type File struct {
	Rows      []model.RawQuestion
	Malformed int // rows with fewer than three cells or a blank id/question
}

// ReadFile parses a source export, dispatching on the file extension.
func ReadFile(path string, opts Options) (*File, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		fh, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "source: open %s", path)
		}
		defer fh.Close()
		return ReadCSV(fh, opts)
	case ".xlsx":
		return ReadXLSX(path, opts)
	default:
		return nil, eris.Errorf("source: unsupported file type %q", filepath.Ext(path))
	}
}

// ReadCSV parses a CSV export. The first row is always the header; a
// leading UTF-8 BOM is stripped.
func ReadCSV(r io.Reader, opts Options) (*File, error) {
	reader := csv.NewReader(transform.NewReader(r, unicode.UTF8BOM.NewDecoder()))
	reader.Comma = ';'
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1 // rows carry a variable number of option cells

	out := &File{}
	cols := noColumns()
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "source: read csv row")
		}
		if first {
			first = false
			cols = mapColumns(record)
			continue
		}
		out.add(record, cols)
	}
	return out, nil
}

// ReadXLSX parses an XLSX export with the same row contract as ReadCSV.
func ReadXLSX(path string, opts Options) (*File, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "source: open xlsx %s", path)
	}

	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}

	out := &File{}
	cols := noColumns()
	for i, row := range sheet.Rows {
		cells := rowToStrings(row)
		if i == 0 {
			cols = mapColumns(cells)
			continue
		}
		out.add(cells, cols)
	}
	return out, nil
}

func getSheet(f *xlsx.File, opts Options) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("source: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}

	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("source: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}

	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

// columns locates the optional named columns of an export. Cells not
// claimed by a named column are answer options.
type columns struct {
	hint  int
	notes int
}

func noColumns() columns {
	return columns{hint: -1, notes: -1}
}

func mapColumns(header []string) columns {
	c := noColumns()
	for i, h := range header {
		if i < 2 {
			continue // id and question are positional
		}
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "hint", "category hint":
			c.hint = i
		case "notes", "more info":
			c.notes = i
		}
	}
	return c
}

func (f *File) add(record []string, cols columns) {
	if len(record) < 3 {
		f.Malformed++
		return
	}
	id := strings.TrimSpace(record[0])
	text := strings.TrimSpace(record[1])
	if id == "" || text == "" {
		f.Malformed++
		return
	}

	q := model.RawQuestion{SourceID: id, Text: text}
	for i := 2; i < len(record); i++ {
		cell := strings.TrimSpace(record[i])
		switch i {
		case cols.hint:
			q.Hint = cell
		case cols.notes:
			q.Notes = cell
		default:
			if cell != "" {
				q.Options = append(q.Options, cell)
			}
		}
	}
	f.Rows = append(f.Rows, q)
}
