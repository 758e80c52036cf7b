// internal/output/json.go
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/bytedance/sonic"

	"github.com/valpere/ActivityScrapexter/internal/record"
)

// JSONWriter writes the interchange list: a JSON array of {fullTime, text}
type JSONWriter struct {
	filename string
	file     *os.File
}

// NewJSONWriter creates a new JSON writer
func NewJSONWriter(filename string) (*JSONWriter, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, err
	}

	return &JSONWriter{
		filename: filename,
		file:     file,
	}, nil
}

// Write writes records to the JSON file
func (w *JSONWriter) Write(records []record.DisplayRecord) error {
	if w.file == nil {
		return fmt.Errorf("json writer is closed")
	}
	return EncodeJSON(w.file, records)
}

// Close closes the JSON writer
func (w *JSONWriter) Close() error {
	if w.file != nil {
		err := w.file.Close()
		w.file = nil
		return err
	}
	return nil
}

// EncodeJSON writes records as an indented JSON array. A nil slice is
// written as [].
func EncodeJSON(w io.Writer, records []record.DisplayRecord) error {
	if records == nil {
		records = []record.DisplayRecord{}
	}
	data, err := sonic.ConfigDefault.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// ReadJSON decodes an interchange list. Entries without a fullTime are dropped.
func ReadJSON(r io.Reader) ([]record.DisplayRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}

	var records []record.DisplayRecord
	if err := sonic.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse records: %w", err)
	}

	out := records[:0]
	for _, rec := range records {
		if rec.FullTime != "" {
			out = append(out, rec)
		}
	}
	return out, nil
}

// ReadJSONFile decodes an interchange list from a file.
func ReadJSONFile(filename string) ([]record.DisplayRecord, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadJSON(f)
}
