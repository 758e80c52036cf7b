// internal/output/yaml.go
package output

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/valpere/ActivityScrapexter/internal/record"
)

// YAMLWriter implements the Writer interface for YAML output
type YAMLWriter struct {
	file *os.File
}

// NewYAMLWriter creates a new YAML writer
func NewYAMLWriter(filename string) (*YAMLWriter, error) {
	if filename == "" {
		return nil, fmt.Errorf("YAML file path is required")
	}
	file, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	return &YAMLWriter{file: file}, nil
}

// Write writes records as a YAML sequence
func (w *YAMLWriter) Write(records []record.DisplayRecord) error {
	if w.file == nil {
		return fmt.Errorf("yaml writer is closed")
	}
	return EncodeYAML(w.file, records)
}

// Close closes the YAML writer
func (w *YAMLWriter) Close() error {
	if w.file != nil {
		err := w.file.Close()
		w.file = nil
		return err
	}
	return nil
}

// EncodeYAML writes records as a YAML sequence of {fullTime, text} maps.
func EncodeYAML(w io.Writer, records []record.DisplayRecord) error {
	if records == nil {
		records = []record.DisplayRecord{}
	}
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(records); err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	return encoder.Close()
}

// ReadYAML decodes records written by EncodeYAML.
func ReadYAML(r io.Reader) ([]record.DisplayRecord, error) {
	var records []record.DisplayRecord
	if err := yaml.NewDecoder(r).Decode(&records); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse records: %w", err)
	}
	return records, nil
}
