// Package export serializes report tables to downloadable files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"shomokh-report-engine/internal/report"
	"shomokh-report-engine/pkg/errors"
)

type FileType string

const (
	CSV  FileType = "csv"
	XLSX FileType = "xlsx"
)

// Writer serializes one report table.
type Writer interface {
	Write(w io.Writer, t report.Table) error
	ContentType() string
	Extension() string
}

// ForType returns the writer for a file type. An empty type means xlsx.
func ForType(fileType string) (Writer, error) {
	switch FileType(strings.ToLower(strings.TrimSpace(fileType))) {
	case XLSX, "":
		return XLSXWriter{}, nil
	case CSV:
		return CSVWriter{}, nil
	default:
		return nil, fmt.Errorf("%q: %w", fileType, errors.ErrUnknownExportType)
	}
}

// FileName is report-<format>-<yyyymmdd>.<ext>.
func FileName(format report.Format, w Writer, at time.Time) string {
	return fmt.Sprintf("report-%s-%s.%s", format, at.Format("20060102"), w.Extension())
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter writes UTF-8 CSV with a byte-order mark so spreadsheet apps
// pick up Arabic names correctly.
type CSVWriter struct{}

func (CSVWriter) ContentType() string { return "text/csv; charset=utf-8" }
func (CSVWriter) Extension() string   { return string(CSV) }

func (CSVWriter) Write(w io.Writer, t report.Table) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write bom: %w", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(t.Header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	if err := writer.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("failed to write csv rows: %w", err)
	}
	return nil
}

// XLSXWriter writes a single-sheet workbook named after the report format.
type XLSXWriter struct{}

func (XLSXWriter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}
func (XLSXWriter) Extension() string { return string(XLSX) }

func (XLSXWriter) Write(w io.Writer, t report.Table) error {
	file := excelize.NewFile()
	defer file.Close()

	sheet := string(t.Format)
	if sheet == "" {
		sheet = string(report.FormatSummary)
	}
	if err := file.SetSheetName(file.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	bold, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := setRow(file, sheet, 1, t.Header); err != nil {
		return err
	}
	if len(t.Header) > 0 {
		last, err := excelize.CoordinatesToCellName(len(t.Header), 1)
		if err != nil {
			return err
		}
		if err := file.SetCellStyle(sheet, "A1", last, bold); err != nil {
			return fmt.Errorf("failed to style header: %w", err)
		}
	}

	for i, row := range t.Rows {
		if err := setRow(file, sheet, i+2, row); err != nil {
			return err
		}
	}

	if _, err := file.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}

func setRow(file *excelize.File, sheet string, rowNum int, cells []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	values := make([]interface{}, len(cells))
	for i, c := range cells {
		values[i] = c
	}
	if err := file.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", rowNum, err)
	}
	return nil
}
