// Package ingest loads a raw tabular source, suggests a column mapping,
// validates it, and cleans the result into a domain.CleanFrame.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// RawFrame is the uninterpreted tabular source: a header row and the data
// rows beneath it, all still strings.
type RawFrame struct {
	Header []string
	Rows   [][]string
}

// SheetChoice describes one candidate sheet in a multi-sheet spreadsheet.
// Load never picks one itself; the caller disambiguates via LoadSheet.
type SheetChoice struct {
	Name     string
	RowCount int
}

// Load reads a comma-separated or spreadsheet source. filename is used
// only to pick the reader by extension. For a single-sheet source (CSV, or
// an XLSX with one sheet) it returns the parsed RawFrame and a nil
// SheetChoice list. For an XLSX with multiple sheets it returns the sheet
// choices instead of a frame — the caller must call LoadSheet with a
// chosen name.
func Load(r io.Reader, filename string) (*RawFrame, []SheetChoice, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".csv", "":
		frame, err := loadCSV(r)
		return frame, nil, err
	case ".xlsx", ".xls":
		return loadXLSX(r)
	default:
		return nil, nil, fmt.Errorf("ingest: unsupported source extension %q", ext)
	}
}

// LoadSheet re-opens a multi-sheet spreadsheet and parses one named sheet,
// after the caller has resolved a SheetChoice ambiguity.
func LoadSheet(r io.ReaderAt, size int64, sheet string) (*RawFrame, error) {
	f, err := excelize.OpenReader(io.NewSectionReader(r, 0, size))
	if err != nil {
		return nil, fmt.Errorf("ingest: open spreadsheet: %w", err)
	}
	defer f.Close()
	return readSheet(f, sheet)
}

func loadCSV(r io.Reader) (*RawFrame, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("ingest: read csv header: %w", err)
	}
	var rows [][]string
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ingest: read csv row: %w", err)
		}
		rows = append(rows, record)
	}
	return &RawFrame{Header: normalizeHeader(header), Rows: rows}, nil
}

func loadXLSX(r io.Reader) (*RawFrame, []SheetChoice, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("ingest: open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("ingest: xlsx has no sheets")
	}
	if len(sheets) == 1 {
		frame, err := readSheet(f, sheets[0])
		return frame, nil, err
	}

	choices := make([]SheetChoice, 0, len(sheets))
	for _, name := range sheets {
		n, err := countRows(f, name)
		if err != nil {
			return nil, nil, err
		}
		choices = append(choices, SheetChoice{Name: name, RowCount: n})
	}
	return nil, choices, nil
}

func countRows(f *excelize.File, sheet string) (int, error) {
	rows, err := f.Rows(sheet)
	if err != nil {
		return 0, fmt.Errorf("ingest: read sheet %s: %w", sheet, err)
	}
	defer rows.Close()
	n := 0
	for rows.Next() {
		n++
	}
	return n - 1, rows.Error() // minus header
}

func readSheet(f *excelize.File, sheet string) (*RawFrame, error) {
	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("ingest: read sheet %s: %w", sheet, err)
	}
	defer rows.Close()

	var header []string
	var out [][]string
	for rows.Next() {
		cols, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("ingest: read sheet row: %w", err)
		}
		if header == nil {
			header = normalizeHeader(cols)
			continue
		}
		out = append(out, cols)
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("ingest: iterate sheet %s: %w", sheet, err)
	}
	if header == nil {
		return nil, fmt.Errorf("ingest: sheet %s is empty", sheet)
	}
	return &RawFrame{Header: header, Rows: out}, nil
}

// normalizeHeader trims and lowercases column names before any role
// detection runs.
func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return out
}
