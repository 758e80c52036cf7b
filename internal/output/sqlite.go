// internal/output/sqlite.go
package output

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/valpere/ActivityScrapexter/internal/record"
)

// DefaultTable is the table records are stored in
const DefaultTable = "activity"

// SQLiteWriter appends records to a SQLite database. Re-exporting the same
// history is idempotent: rows are unique on (full_time, text).
type SQLiteWriter struct {
	db       *sql.DB
	table    string
	inserted int
}

// NewSQLiteWriter opens (or creates) the database and its table
func NewSQLiteWriter(path, table string) (*SQLiteWriter, error) {
	if path == "" {
		return nil, fmt.Errorf("SQLite database path is required")
	}
	if table == "" {
		table = DefaultTable
	}
	if err := ValidateSQLiteIdentifier(table); err != nil {
		return nil, err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := openSQLite(path)
	if err != nil {
		return nil, err
	}

	w := &SQLiteWriter{db: db, table: table}
	if err := w.createTable(); err != nil {
		db.Close()
		return nil, err
	}
	return w, nil
}

func openSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite works best with single writer
	return db, nil
}

// createTable creates the table if it does not exist
func (w *SQLiteWriter) createTable() error {
	query := `CREATE TABLE IF NOT EXISTS [` + w.table + `] (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		full_time TEXT NOT NULL,
		text TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(full_time, text)
	)`
	if _, err := w.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create table '%s': %w", w.table, err)
	}
	return nil
}

// Write inserts records in one transaction, skipping rows already present
func (w *SQLiteWriter) Write(records []record.DisplayRecord) error {
	if len(records) == 0 {
		return nil
	}

	ctx := context.Background()
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO [`+w.table+`] (full_time, text) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, rec := range records {
		res, err := stmt.ExecContext(ctx, rec.FullTime, rec.Text)
		if err != nil {
			return fmt.Errorf("failed to insert record %s: %w", rec.FullTime, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	w.inserted += inserted
	return nil
}

// Inserted returns the number of new rows written so far
func (w *SQLiteWriter) Inserted() int {
	return w.inserted
}

// Close closes the database
func (w *SQLiteWriter) Close() error {
	if w.db != nil {
		err := w.db.Close()
		w.db = nil
		return err
	}
	return nil
}

// ReadSQLite loads every stored record in chronological order.
func ReadSQLite(path, table string) ([]record.DisplayRecord, error) {
	if table == "" {
		table = DefaultTable
	}
	if err := ValidateSQLiteIdentifier(table); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	db, err := openSQLite(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(`SELECT full_time, text FROM [` + table + `] ORDER BY full_time, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []record.DisplayRecord
	for rows.Next() {
		var rec record.DisplayRecord
		if err := rows.Scan(&rec.FullTime, &rec.Text); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
