package parser

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// CSVReader handles CSV exports of a question bank. CSV has a single sheet,
// so the sheet name is ignored.
type CSVReader struct{}

func (p *CSVReader) Read(data []byte, sheet string) (*Table, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	if len(records) == 0 {
		return &Table{Sheet: "csv"}, nil
	}

	// First row is headers.
	return buildTable("csv", records[0], records[1:]), nil
}
