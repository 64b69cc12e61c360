package convert

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	sheetName   = "Sheet1"
	columnWidth = 15
)

// Table is whitespace-delimited text read as a header line plus rows.
// Every row has exactly len(Headers) cells.
type Table struct {
	Headers []string
	Rows    [][]string
}

// ParseTable splits text into trimmed, non-empty lines. The first line's
// whitespace-separated tokens become headers; each later line is tokenized
// the same way and assigned positionally. Missing trailing cells are ""
// and extra tokens are dropped. Ragged input misaligns silently.
func ParseTable(text string) Table {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return Table{}
	}
	t := Table{Headers: strings.Fields(lines[0])}
	t.Rows = make([][]string, 0, len(lines)-1)
	for _, l := range lines[1:] {
		values := strings.Fields(l)
		row := make([]string, len(t.Headers))
		for i := range row {
			if i < len(values) {
				row[i] = values[i]
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// BuildWorkbook writes the table to a single-sheet xlsx: header row first,
// then one row per table row, all columns 15 characters wide.
func BuildWorkbook(t Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	write := func(rowIdx int, cells []string) error {
		if len(cells) == 0 {
			return nil
		}
		cell, err := excelize.CoordinatesToCellName(1, rowIdx)
		if err != nil {
			return err
		}
		vals := make([]interface{}, len(cells))
		for i, c := range cells {
			vals[i] = c
		}
		return f.SetSheetRow(sheetName, cell, &vals)
	}

	if err := write(1, t.Headers); err != nil {
		return nil, fmt.Errorf("write header row: %w", err)
	}
	for i, row := range t.Rows {
		if err := write(i+2, row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if n := len(t.Headers); n > 0 {
		last, err := excelize.ColumnNumberToName(n)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(sheetName, "A", last, columnWidth); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}
