package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"shomokh-report-engine/internal/report"
	"shomokh-report-engine/pkg/errors"
)

func table() report.Table {
	return report.Table{
		Format: report.FormatSummary,
		Header: report.Columns(report.FormatSummary),
		Rows: [][]string{
			{"s1", "1", "أمل", "c1", "Hifz 1", "1975.00", "86.52"},
			{"s2", "2", "Dana, Jr.", "c1", "Hifz 1", "0.00", ""},
		},
	}
}

func TestCSVWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSVWriter{}.Write(&buf, table()))

	data := buf.Bytes()
	require.True(t, bytes.HasPrefix(data, utf8BOM))

	records, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, table().Header, records[0])
	assert.Equal(t, "أمل", records[1][2])
	assert.Equal(t, "Dana, Jr.", records[2][2])
	assert.Equal(t, "", records[2][6])
}

func TestXLSXWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, XLSXWriter{}.Write(&buf, table()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"summary"}, f.GetSheetList())
	rows, err := f.GetRows("summary")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, table().Header, rows[0])
	assert.Equal(t, "86.52", rows[1][6])
}

func TestForType(t *testing.T) {
	w, err := ForType("CSV")
	require.NoError(t, err)
	assert.Equal(t, "csv", w.Extension())

	w, err = ForType("")
	require.NoError(t, err)
	assert.Equal(t, "xlsx", w.Extension())

	_, err = ForType("pdf")
	assert.ErrorIs(t, err, errors.ErrUnknownExportType)
}

func TestFileName(t *testing.T) {
	at := time.Date(2025, 11, 3, 14, 0, 0, 0, time.UTC)
	assert.Equal(t, "report-detailed-20251103.csv", FileName(report.FormatDetailed, CSVWriter{}, at))
}
