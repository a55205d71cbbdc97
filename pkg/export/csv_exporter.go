// Package export renders tabular ledgers for operators.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Table is an ordered set of columns and rows keyed by column name.
type Table struct {
	Columns []string
	Rows    []map[string]string
}

// AddRow appends a row; missing columns render empty.
func (t *Table) AddRow(row map[string]string) {
	t.Rows = append(t.Rows, row)
}

// CSVWriter renders tables as RFC 4180 CSV.
type CSVWriter struct {
	// UseCRLF terminates lines with \r\n, which spreadsheet tools expect.
	UseCRLF bool
}

// NewCSVWriter builds a CSV writer with CRLF line endings.
func NewCSVWriter() *CSVWriter {
	return &CSVWriter{UseCRLF: true}
}

// Render encodes the table, header row first.
func (w *CSVWriter) Render(table Table) ([]byte, error) {
	if len(table.Columns) == 0 {
		return nil, fmt.Errorf("csv requires at least one column")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	writer.UseCRLF = w.UseCRLF
	if err := writer.Write(table.Columns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(table.Columns))
	for _, row := range table.Rows {
		for i, column := range table.Columns {
			record[i] = row[column]
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
