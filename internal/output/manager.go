// internal/output/manager.go
package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/valpere/ActivityScrapexter/internal/config"
	"github.com/valpere/ActivityScrapexter/internal/monitoring"
	"github.com/valpere/ActivityScrapexter/internal/record"
	"github.com/valpere/ActivityScrapexter/internal/utils"
)

// Manager manages different output formats
type Manager struct {
	config  *Config
	metrics *monitoring.MetricsManager
	logger  utils.Logger
}

// NewManager creates a new output manager
func NewManager(cfg *config.OutputConfig) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("output configuration is required")
	}

	format, err := ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}

	return &Manager{
		config: &Config{
			Format:    format,
			File:      cfg.File,
			SheetName: cfg.SheetName,
			Table:     cfg.Table,
		},
		logger: utils.NewNopLogger(),
	}, nil
}

// WithMetrics records export counts on m
func (m *Manager) WithMetrics(metrics *monitoring.MetricsManager) *Manager {
	m.metrics = metrics
	return m
}

// WithLogger sets the logger
func (m *Manager) WithLogger(logger utils.Logger) *Manager {
	if logger != nil {
		m.logger = logger.WithField("component", "output")
	}
	return m
}

// Format returns the configured format
func (m *Manager) Format() OutputFormat {
	return m.config.Format
}

// FileName returns the destination for an export of rng
func (m *Manager) FileName(rng record.DateRange) string {
	if m.config.File != "" {
		return m.config.File
	}
	return DefaultFileName(rng, m.config.Format)
}

// GetWriter returns the appropriate writer for the configured format
func (m *Manager) GetWriter(filename string) (Writer, error) {
	switch m.config.Format {
	case FormatJSON:
		return NewJSONWriter(filename)
	case FormatCSV:
		return NewCSVWriter(filename)
	case FormatXLSX:
		return NewExcelWriter(filename, m.config.SheetName)
	case FormatYAML:
		return NewYAMLWriter(filename)
	case FormatSQLite:
		return NewSQLiteWriter(filename, m.config.Table)
	default:
		return nil, fmt.Errorf("unsupported output format: %s", m.config.Format)
	}
}

// Write exports records in the configured format
func (m *Manager) Write(records []record.DisplayRecord, rng record.DateRange) (*Result, error) {
	start := time.Now()
	filename := m.FileName(rng)

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			m.recordError()
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	writer, err := m.GetWriter(filename)
	if err != nil {
		m.recordError()
		return nil, fmt.Errorf("failed to get writer: %w", err)
	}

	if err := writer.Write(records); err != nil {
		writer.Close()
		m.recordError()
		return nil, fmt.Errorf("failed to write output: %w", err)
	}
	if err := writer.Close(); err != nil {
		m.recordError()
		return nil, fmt.Errorf("failed to close output: %w", err)
	}

	result := &Result{
		Format:   m.config.Format,
		File:     filename,
		Records:  len(records),
		Duration: time.Since(start),
	}
	if m.metrics != nil {
		m.metrics.RecordOutputSuccess(string(m.config.Format), len(records))
	}
	m.logger.WithFields(map[string]interface{}{
		"file":    filename,
		"format":  string(m.config.Format),
		"records": len(records),
	}).Info("export written")

	return result, nil
}

func (m *Manager) recordError() {
	if m.metrics != nil {
		m.metrics.RecordOutputError(string(m.config.Format))
	}
}

// WriteTo streams records to w in the given format
func WriteTo(w io.Writer, format OutputFormat, records []record.DisplayRecord) error {
	switch format {
	case FormatJSON:
		return EncodeJSON(w, records)
	case FormatCSV:
		return EncodeCSV(w, records)
	case FormatXLSX:
		return EncodeXLSX(w, records, "")
	case FormatYAML:
		return EncodeYAML(w, records)
	default:
		return fmt.Errorf("format %s cannot be streamed", format)
	}
}

// Load reads an export back, choosing the decoder from the file extension.
func Load(filename, table string) ([]record.DisplayRecord, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".db" || ext == ".sqlite" || ext == ".sqlite3" {
		return ReadSQLite(filename, table)
	}

	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch ext {
	case ".json":
		return ReadJSON(f)
	case ".csv":
		return ReadCSV(f)
	case ".yaml", ".yml":
		return ReadYAML(f)
	case ".xlsx":
		return ReadXLSX(f)
	default:
		return nil, fmt.Errorf("cannot infer format of %s", filename)
	}
}
