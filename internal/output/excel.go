// internal/output/excel.go
package output

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/valpere/ActivityScrapexter/internal/record"
)

const (
	// DefaultSheetName is used when no sheet name is configured
	DefaultSheetName = "Activity"
	// ExcelMaxCellLength is the maximum characters in a single Excel cell
	ExcelMaxCellLength = 32767
	// ExcelMaxSheetRows is the maximum rows per sheet in Excel
	ExcelMaxSheetRows = 1048576
)

// ExcelWriter implements the Writer interface for xlsx output
type ExcelWriter struct {
	filename  string
	sheetName string
}

// NewExcelWriter creates a new Excel writer
func NewExcelWriter(filename, sheetName string) (*ExcelWriter, error) {
	if filename == "" {
		return nil, fmt.Errorf("excel file path is required")
	}
	if sheetName == "" {
		sheetName = DefaultSheetName
	}
	return &ExcelWriter{filename: filename, sheetName: sheetName}, nil
}

// Write builds the workbook and saves it
func (w *ExcelWriter) Write(records []record.DisplayRecord) error {
	file, err := buildWorkbook(records, w.sheetName)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := file.SaveAs(w.filename); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// Close is a no-op; the workbook is saved by Write
func (w *ExcelWriter) Close() error {
	return nil
}

// EncodeXLSX streams a workbook to w.
func EncodeXLSX(w io.Writer, records []record.DisplayRecord, sheetName string) error {
	if sheetName == "" {
		sheetName = DefaultSheetName
	}
	file, err := buildWorkbook(records, sheetName)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err := file.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// buildWorkbook lays records out as a two-column sheet with a styled,
// frozen and filterable header row.
func buildWorkbook(records []record.DisplayRecord, sheetName string) (*excelize.File, error) {
	if len(records)+1 > ExcelMaxSheetRows {
		return nil, fmt.Errorf("too many records for one sheet: %d", len(records))
	}

	file := excelize.NewFile()

	defaultSheet := file.GetSheetName(0)
	if defaultSheet != sheetName {
		if err := file.SetSheetName(defaultSheet, sheetName); err != nil {
			file.Close()
			return nil, fmt.Errorf("invalid sheet name %q: %w", sheetName, err)
		}
	}

	if err := writeSheet(file, sheetName, records); err != nil {
		file.Close()
		return nil, err
	}
	return file, nil
}

func writeSheet(file *excelize.File, sheet string, records []record.DisplayRecord) error {
	header := []interface{}{csvHeader[0], csvHeader[1]}
	if err := file.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, rec := range records {
		row := []interface{}{rec.FullTime, truncateCell(rec.Text)}
		if err := file.SetSheetRow(sheet, "A"+strconv.Itoa(i+2), &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	// Column styles rewrite existing cells, so the header is styled last.
	textStyle, err := file.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})
	if err != nil {
		return err
	}
	if err := file.SetColStyle(sheet, "B", textStyle); err != nil {
		return err
	}
	headerStyle, err := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return err
	}
	if err := file.SetCellStyle(sheet, "A1", "B1", headerStyle); err != nil {
		return err
	}

	if err := file.SetColWidth(sheet, "A", "A", 20); err != nil {
		return err
	}
	if err := file.SetColWidth(sheet, "B", "B", 100); err != nil {
		return err
	}

	lastRow := len(records) + 1
	if err := file.AutoFilter(sheet, "A1:B"+strconv.Itoa(lastRow), nil); err != nil {
		return err
	}

	return file.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func truncateCell(s string) string {
	runes := []rune(s)
	if len(runes) <= ExcelMaxCellLength {
		return s
	}
	return string(runes[:ExcelMaxCellLength])
}

// ReadXLSX reads records back from the first sheet of a workbook written by
// ExcelWriter.
func ReadXLSX(r io.Reader) ([]record.DisplayRecord, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer file.Close()

	rows, err := file.GetRows(file.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	var records []record.DisplayRecord
	for i, row := range rows {
		if i == 0 || len(row) == 0 || row[0] == "" {
			continue
		}
		rec := record.DisplayRecord{FullTime: row[0]}
		if len(row) > 1 {
			rec.Text = row[1]
		}
		records = append(records, rec)
	}
	return records, nil
}
