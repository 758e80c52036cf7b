// internal/output/types.go
package output

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/valpere/ActivityScrapexter/internal/record"
)

// OutputFormat represents supported output formats
type OutputFormat string

const (
	FormatJSON   OutputFormat = "json"
	FormatCSV    OutputFormat = "csv"
	FormatXLSX   OutputFormat = "xlsx"
	FormatYAML   OutputFormat = "yaml"
	FormatSQLite OutputFormat = "sqlite"
)

// ValidOutputFormats returns all valid output format values
func ValidOutputFormats() []OutputFormat {
	return []OutputFormat{FormatJSON, FormatCSV, FormatXLSX, FormatYAML, FormatSQLite}
}

// ParseFormat resolves a format name, accepting common aliases.
func ParseFormat(name string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json", "":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "sqlite", "sqlite3", "db":
		return FormatSQLite, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", name)
	}
}

// Streamable reports whether the format can be written to an io.Writer.
func (f OutputFormat) Streamable() bool {
	return f != FormatSQLite
}

// GetFileExtension returns the file extension for the format
func GetFileExtension(format OutputFormat) string {
	switch format {
	case FormatSQLite:
		return ".db"
	default:
		return "." + string(format)
	}
}

// GetMimeType returns the MIME type for the format
func GetMimeType(format OutputFormat) string {
	switch format {
	case FormatJSON:
		return "application/json"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatYAML:
		return "application/yaml"
	case FormatSQLite:
		return "application/vnd.sqlite3"
	default:
		return "application/octet-stream"
	}
}

// DefaultFileName names an export after the first day of the range, or
// "all" when the range is open.
func DefaultFileName(rng record.DateRange, format OutputFormat) string {
	start := "all"
	if !rng.Start.IsZero() {
		start = rng.Start.Format(record.DateLayout)
	}
	return "gemini_data_" + start + GetFileExtension(format)
}

// Config holds output configuration
type Config struct {
	Format    OutputFormat
	File      string
	SheetName string
	Table     string
}

// Writer writes display records to a destination
type Writer interface {
	Write(records []record.DisplayRecord) error
	Close() error
}

// Encoder renders display records onto a stream
type Encoder func(w io.Writer, records []record.DisplayRecord) error

// Result contains information about a completed export
type Result struct {
	Format   OutputFormat  `json:"format"`
	File     string        `json:"file"`
	Records  int           `json:"records"`
	Duration time.Duration `json:"duration"`
}

var sqlIdentifierRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Reserved SQLite keywords that would need quoting as a table name
var sqliteReservedWords = map[string]bool{
	"ABORT": true, "ALL": true, "ALTER": true, "AND": true, "AS": true, "BEGIN": true, "BY": true,
	"CHECK": true, "COLUMN": true, "COMMIT": true, "CREATE": true, "DEFAULT": true, "DELETE": true,
	"DISTINCT": true, "DROP": true, "FROM": true, "GROUP": true, "IN": true, "INDEX": true,
	"INSERT": true, "INTO": true, "JOIN": true, "KEY": true, "NOT": true, "NULL": true, "ON": true,
	"OR": true, "ORDER": true, "PRIMARY": true, "REPLACE": true, "SELECT": true, "SET": true,
	"TABLE": true, "TRANSACTION": true, "UNION": true, "UNIQUE": true, "UPDATE": true,
	"VALUES": true, "VIEW": true, "WHERE": true, "WITH": true,
}

// ValidateSQLiteIdentifier validates that a string is a safe SQLite identifier
func ValidateSQLiteIdentifier(identifier string) error {
	if identifier == "" {
		return fmt.Errorf("SQL identifier cannot be empty")
	}
	if len(identifier) > 63 {
		return fmt.Errorf("SQL identifier too long: %d characters (max 63)", len(identifier))
	}
	if !sqlIdentifierRegex.MatchString(identifier) {
		return fmt.Errorf("invalid SQL identifier: %s (must start with letter or underscore, contain only letters, digits, and underscores)", identifier)
	}
	if sqliteReservedWords[strings.ToUpper(identifier)] {
		return fmt.Errorf("SQL identifier cannot be a reserved word: %s", identifier)
	}
	return nil
}
