package report

import (
	"fmt"
	"strconv"
	"strings"

	"shomokh-report-engine/internal/model"
	"shomokh-report-engine/pkg/errors"
)

type Format string

const (
	FormatSummary  Format = "summary"
	FormatDetailed Format = "detailed"
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatSummary, "":
		return FormatSummary, nil
	case FormatDetailed:
		return FormatDetailed, nil
	default:
		return "", fmt.Errorf("%q: %w", s, errors.ErrUnknownExportFormat)
	}
}

// Table is a flat, string-only view of report rows. Header and every row
// have the same length.
type Table struct {
	Format Format     `json:"format"`
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

var summaryColumns = []string{
	"student_id",
	"student_number",
	"student_name",
	"course_id",
	"course_name",
	"total",
	"percentage",
}

// Columns returns the column set of a format. The set and its order never
// change between calls; detailed starts with every summary column.
func Columns(format Format) []string {
	cols := append([]string(nil), summaryColumns...)
	if format != FormatDetailed {
		return cols
	}

	cols = append(cols, "classification")
	for _, c := range model.Categories {
		cols = append(cols,
			string(c)+"_raw",
			string(c)+"_rows",
			string(c)+"_achievable",
			string(c)+"_score",
		)
	}
	return append(cols, "attendance_rate", "last_recorded", "warnings")
}

// NewTable lays rows out in the given format. A row without data gets an
// empty percentage cell, never 0.
func NewTable(rows []Row, format Format) Table {
	t := Table{
		Format: format,
		Header: Columns(format),
		Rows:   make([][]string, 0, len(rows)),
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, cells(r, format))
	}
	return t
}

func cells(r Row, format Format) []string {
	out := []string{
		r.StudentID,
		strconv.Itoa(r.StudentNumber),
		r.StudentName,
		r.CourseID,
		r.CourseName,
		number(r.Summary.OverallTotal),
		optional(r.Summary.OverallPercentage),
	}
	if format != FormatDetailed {
		return out
	}

	out = append(out, string(r.Summary.Classification))
	for _, c := range model.Categories {
		s := r.Summary.PerCategory[c]
		out = append(out,
			number(s.Raw),
			strconv.Itoa(s.RecordedRows),
			number(s.Achievable),
			optional(s.SubScorePct),
		)
	}

	rate := ""
	if r.Attendance != nil {
		rate = strconv.FormatFloat(r.Attendance.AttendanceRate, 'f', 4, 64)
	}

	warnings := make([]string, 0, len(r.Warnings))
	for _, w := range r.Warnings {
		warnings = append(warnings, w.Message)
	}

	return append(out, rate, r.Summary.LastRecorded, strings.Join(warnings, "; "))
}

func number(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func optional(v *float64) string {
	if v == nil {
		return ""
	}
	return number(*v)
}
