package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	ErrMissingColumn = errors.New("missing required column")
	ErrMissingTarget = errors.New("target column not found")
	ErrEmptyDataset  = errors.New("dataset has no rows")
)

// Table is an ordered, string-typed dataset as stored on disk
type Table struct {
	Columns []string
	Rows    [][]string
}

// NewTable creates an empty table with the given header
func NewTable(columns ...string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of a column or -1
func (t *Table) ColumnIndex(name string) int {
	for i, col := range t.Columns {
		if col == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the column exists
func (t *Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// Value returns the cell at row i in the named column, or "" if absent
func (t *Table) Value(i int, column string) string {
	idx := t.ColumnIndex(column)
	if idx < 0 || idx >= len(t.Rows[i]) {
		return ""
	}
	return t.Rows[i][idx]
}

// RowMap returns row i keyed by column name
func (t *Table) RowMap(i int) map[string]string {
	out := make(map[string]string, len(t.Columns))
	for j, col := range t.Columns {
		if j < len(t.Rows[i]) {
			out[col] = t.Rows[i][j]
		} else {
			out[col] = ""
		}
	}
	return out
}

// Append adds a row, padding or truncating it to the header width
func (t *Table) Append(row []string) {
	normalized := make([]string, len(t.Columns))
	copy(normalized, row)
	t.Rows = append(t.Rows, normalized)
}

// Select returns a new table with the given rows in the given order
func (t *Table) Select(indices []int) *Table {
	out := NewTable(t.Columns...)
	out.Rows = make([][]string, 0, len(indices))
	for _, i := range indices {
		out.Rows = append(out.Rows, t.Rows[i])
	}
	return out
}

// Project returns a new table restricted to the named columns
func (t *Table) Project(columns ...string) (*Table, error) {
	idx := make([]int, len(columns))
	for i, col := range columns {
		idx[i] = t.ColumnIndex(col)
		if idx[i] < 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	out := NewTable(columns...)
	out.Rows = make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		projected := make([]string, len(idx))
		for i, j := range idx {
			if j < len(row) {
				projected[i] = row[j]
			}
		}
		out.Rows[r] = projected
	}
	return out, nil
}

// Drop returns a new table without the named columns
func (t *Table) Drop(columns ...string) *Table {
	skip := make(map[string]bool, len(columns))
	for _, col := range columns {
		skip[col] = true
	}
	var keep []string
	for _, col := range t.Columns {
		if !skip[col] {
			keep = append(keep, col)
		}
	}
	out, _ := t.Project(keep...)
	return out
}

// ReadTable reads a CSV file with a header row
func ReadTable(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ReadTableFrom(file)
}

// ReadTableFrom reads CSV with a header row from any reader
func ReadTableFrom(reader io.Reader) (*Table, error) {
	csvReader := newCSVReader(reader)

	header, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	table := NewTable(header...)
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", table.Len()+2, err)
		}
		table.Append(record)
	}

	return table, nil
}

// WriteTable writes the table as CSV, creating parent directories
func WriteTable(path string, t *Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := WriteTableTo(file, t); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// WriteTableTo writes the table as CSV to any writer
func WriteTableTo(w io.Writer, t *Table) error {
	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write(t.Columns); err != nil {
		return err
	}
	if err := csvWriter.WriteAll(t.Rows); err != nil {
		return err
	}
	return csvWriter.Error()
}

// FormatFloat renders numbers the way the dataset files store them
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatInt renders integer counters
func FormatInt(v int) string {
	return strconv.Itoa(v)
}

// atoiLoose reads counters that may have been written as floats ("3.0")
func atoiLoose(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != f {
		return 0
	}
	return int(f)
}
