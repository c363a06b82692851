package parser

import (
	"bytes"
	"fmt"

	goexcel "github.com/VantageDataChat/GoExcel"
)

// XLSXReader handles .xlsx workbooks.
type XLSXReader struct{}

func (p *XLSXReader) Read(data []byte, sheet string) (table *Table, err error) {
	defer func() {
		if r := recover(); r != nil {
			table = nil
			err = fmt.Errorf("parse xlsx: %v", r)
		}
	}()

	wb, err := goexcel.NewXLSXReader().Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse xlsx: %w", err)
	}

	name, fallback := pickSheet(wb.GetSheetNames(), sheet)
	if name == "" {
		return nil, fmt.Errorf("parse xlsx: workbook has no sheets")
	}
	ws, err := wb.GetSheetByName(name)
	if err != nil {
		return nil, fmt.Errorf("open sheet %q: %w", name, err)
	}
	if ws.CellCount() == 0 {
		return &Table{Sheet: name, SheetFallback: fallback}, nil
	}
	rows, err := ws.RowIterator()
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", name, err)
	}

	grid := make([][]string, 0, len(rows))
	for _, row := range rows {
		var cells []string
		for _, cell := range row {
			if cell == nil || cell.IsEmpty() {
				continue
			}
			col := cell.Col()
			for len(cells) <= col {
				cells = append(cells, "")
			}
			cells[col] = cell.GetFormattedValue()
		}
		grid = append(grid, cells)
	}

	if len(grid) == 0 {
		return &Table{Sheet: name, SheetFallback: fallback}, nil
	}
	t := buildTable(name, grid[0], grid[1:])
	t.SheetFallback = fallback
	return t, nil
}
