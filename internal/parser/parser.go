package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Table is one sheet of a question bank: a header row and the data rows keyed by header.
type Table struct {
	Sheet   string
	Headers []string
	Rows    []Row

	// SheetFallback is set when the requested sheet was missing and the first sheet was used.
	SheetFallback bool
}

// Row maps column name to cell value. Missing columns read as "".
type Row map[string]string

// Get returns the cell under name, or "" when the column is absent.
func (r Row) Get(name string) string {
	return r[name]
}

// Has reports whether the row carries the column at all.
func (r Row) Has(name string) bool {
	_, ok := r[name]
	return ok
}

// SheetReader converts raw spreadsheet bytes into a Table.
type SheetReader interface {
	Read(data []byte, sheet string) (*Table, error)
}

// SupportedExtensions lists spreadsheet extensions this tool can read.
var SupportedExtensions = map[string]bool{
	".csv":  true,
	".xlsx": true,
	".xls":  true,
}

// ForFile returns the appropriate reader for a filename.
func ForFile(filename string) (SheetReader, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".csv":
		return &CSVReader{}, nil
	case ".xlsx":
		return &XLSXReader{}, nil
	case ".xls":
		return &XLSReader{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// ReadFile reads the named sheet of a spreadsheet file.
func ReadFile(path, sheet string) (*Table, error) {
	r, err := ForFile(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spreadsheet: %w", err)
	}
	return r.Read(data, sheet)
}

// pickSheet returns the requested sheet if present, else the first one.
func pickSheet(names []string, want string) (string, bool) {
	for _, n := range names {
		if n == want {
			return n, false
		}
	}
	if len(names) == 0 {
		return "", true
	}
	return names[0], want != ""
}

// buildTable turns a header row plus positional cell rows into a Table.
// Short rows pad with "", cells past the header are ignored, blank rows are kept.
func buildTable(sheet string, header []string, rows [][]string) *Table {
	t := &Table{Sheet: sheet}
	for i, h := range header {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		t.Headers = append(t.Headers, h)
	}
	for _, cells := range rows {
		row := make(Row, len(t.Headers))
		for i, h := range t.Headers {
			if h == "" || row.Has(h) {
				continue
			}
			if i < len(cells) {
				row[h] = cells[i]
			} else {
				row[h] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}
