package parser

import (
	"bytes"
	"fmt"

	"github.com/shakinm/xlsReader/xls"
)

// XLSReader handles legacy .xls (BIFF) workbooks.
type XLSReader struct{}

func (p *XLSReader) Read(data []byte, sheet string) (table *Table, err error) {
	defer func() {
		if r := recover(); r != nil {
			table = nil
			err = fmt.Errorf("parse xls: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse xls: %w", err)
	}

	numSheets := wb.GetNumberSheets()
	names := make([]string, 0, numSheets)
	for i := 0; i < numSheets; i++ {
		ws, err := wb.GetSheet(i)
		if err != nil {
			names = append(names, "")
			continue
		}
		names = append(names, ws.GetName())
	}

	name, fallback := pickSheet(names, sheet)
	idx := 0
	for i, n := range names {
		if n == name {
			idx = i
			break
		}
	}
	if numSheets == 0 {
		return nil, fmt.Errorf("parse xls: workbook has no sheets")
	}
	ws, err := wb.GetSheet(idx)
	if err != nil {
		return nil, fmt.Errorf("open sheet %q: %w", name, err)
	}

	var grid [][]string
	numRows := ws.GetNumberRows()
	for rowIdx := 0; rowIdx < numRows; rowIdx++ {
		row, err := ws.GetRow(rowIdx)
		if err != nil || row == nil {
			grid = append(grid, nil)
			continue
		}
		var cells []string
		for _, cell := range row.GetCols() {
			cells = append(cells, cell.GetString())
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
