package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Encode writes records as an indented UTF-8 JSON array.
func Encode(w io.Writer, records []Question) error {
	if records == nil {
		records = []Question{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	return nil
}

// Decode reads a record set. Both a bare array and {"questions": [...]} are accepted.
func Decode(r io.Reader) ([]Question, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("decode records: empty input")
	}

	var records []Question
	if data[0] == '{' {
		var wrapped struct {
			Questions []Question `json:"questions"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("decode records: %w", err)
		}
		records = wrapped.Questions
	} else if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}

	for i := range records {
		if records[i].Options == nil {
			records[i].Options = Options{}
		}
		if records[i].Images == nil {
			records[i].Images = []string{}
		}
	}
	return records, nil
}

// Load reads a record set from a file.
func Load(path string) ([]Question, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open record set: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Save writes a record set to path, creating the parent directory. The file is
// written to a temp sibling first and renamed into place.
func Save(path string, records []Question) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".questions-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := Encode(tmp, records); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("write record set: %w", err)
	}
	return nil
}
