// internal/output/csv.go
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/valpere/ActivityScrapexter/internal/record"
)

var csvHeader = []string{"fullTime", "text"}

// CSVWriter writes data in CSV format
type CSVWriter struct {
	filename string
	file     *os.File
}

// NewCSVWriter creates a new CSV writer
func NewCSVWriter(filename string) (*CSVWriter, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, err
	}

	return &CSVWriter{
		filename: filename,
		file:     file,
	}, nil
}

// Write writes records to the CSV file
func (w *CSVWriter) Write(records []record.DisplayRecord) error {
	if w.file == nil {
		return fmt.Errorf("csv writer is closed")
	}
	return EncodeCSV(w.file, records)
}

// Close closes the CSV writer
func (w *CSVWriter) Close() error {
	if w.file != nil {
		err := w.file.Close()
		w.file = nil
		return err
	}
	return nil
}

// EncodeCSV writes a header row followed by one row per record.
func EncodeCSV(w io.Writer, records []record.DisplayRecord) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, rec := range records {
		if err := writer.Write([]string{rec.FullTime, rec.Text}); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// ReadCSV reads records written by EncodeCSV. The header row is skipped.
func ReadCSV(r io.Reader) ([]record.DisplayRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}

	var records []record.DisplayRecord
	for i, row := range rows {
		if i == 0 && len(row) > 0 && row[0] == csvHeader[0] {
			continue
		}
		if len(row) < 2 || row[0] == "" {
			continue
		}
		records = append(records, record.DisplayRecord{FullTime: row[0], Text: row[1]})
	}
	return records, nil
}
