package excel

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"shomokh-report-engine/internal/calendar"
	"shomokh-report-engine/internal/model"
	"shomokh-report-engine/pkg/errors"

	"github.com/xuri/excelize/v2"
)

// Students are identified by student_id or, failing that, by their
// sequential student_number resolved against the course roster.
const (
	colStudentID     = "student_id"
	colStudentNumber = "student_number"
)

var requiredColumns = map[model.ImportKind][]string{
	model.ImportDaily:    {"date", "memorization", "review"},
	model.ImportBehavior: {"date", "daily_score"},
	model.ImportPoints:   {"date", "early_attendance", "perfect_memorization", "active_participation", "time_commitment"},
	model.ImportWeekly:   {"week", "grade"},
	model.ImportMonthly:  {"month", "quran_forgetfulness", "quran_major_mistakes", "quran_minor_mistakes", "tajweed_theory"},
	model.ImportFinal:    {"quran_test", "tajweed_test"},
}

var dateLayouts = []string{calendar.DateLayout, "2006/01/02", "1/2/2006", "01-02-06", "2-Jan-2006"}

type Parser struct {
	cal *calendar.Calendar
}

func NewParser(cal *calendar.Calendar) *Parser {
	return &Parser{cal: cal}
}

// Parse reads the first worksheet of an xlsx grade sheet. numbers maps
// student numbers to ids and may be nil when the sheet carries student_id.
func (p *Parser) Parse(ctx context.Context, data []byte, kind model.ImportKind, courseID string, numbers map[int]string) (*model.GradeSheet, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%q: %w", kind, errors.ErrUnknownImportKind)
	}

	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", errors.ErrInvalidFileFormat)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.ErrInvalidFileFormat
	}

	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	if len(rows) < 2 { // header + at least one data row
		return nil, errors.ErrInvalidFileFormat
	}

	columnMap := make(map[string]int)
	for i, col := range rows[0] {
		columnMap[strings.ToLower(strings.TrimSpace(col))] = i
	}

	_, hasID := columnMap[colStudentID]
	_, hasNumber := columnMap[colStudentNumber]
	if !hasID && !hasNumber {
		return nil, fmt.Errorf("missing required column: %s or %s: %w", colStudentID, colStudentNumber, errors.ErrSchemaValidation)
	}
	for _, col := range requiredColumns[kind] {
		if _, exists := columnMap[col]; !exists {
			return nil, fmt.Errorf("missing required column: %s: %w", col, errors.ErrSchemaValidation)
		}
	}

	sheet := &model.GradeSheet{Kind: kind, CourseID: courseID}
	for i, row := range rows[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if blank(row) {
			continue
		}

		rowNum := i + 2 // 1-based, after the header
		r := rowReader{row: row, columns: columnMap, rowNum: rowNum, cal: p.cal}
		studentID := r.student(numbers)
		if err := p.appendRow(sheet, &r, studentID); err != nil {
			return nil, err
		}
		if r.err != nil {
			return nil, r.err
		}
	}

	if sheet.Len() == 0 {
		return nil, fmt.Errorf("no data rows: %w", errors.ErrInvalidFileFormat)
	}
	return sheet, nil
}

func (p *Parser) appendRow(sheet *model.GradeSheet, r *rowReader, studentID string) error {
	courseID := sheet.CourseID

	switch sheet.Kind {
	case model.ImportDaily:
		g := model.DailyGrade{
			StudentID:    studentID,
			CourseID:     courseID,
			Date:         r.date("date"),
			Memorization: r.float("memorization"),
			Review:       r.float("review"),
		}
		sheet.Daily = append(sheet.Daily, g)
		// a daily sheet may carry the behavior score alongside
		if r.has("daily_score") {
			sheet.Behavior = append(sheet.Behavior, model.BehaviorGrade{
				StudentID:  studentID,
				CourseID:   courseID,
				Date:       g.Date,
				DailyScore: r.float("daily_score"),
			})
		}
	case model.ImportBehavior:
		sheet.Behavior = append(sheet.Behavior, model.BehaviorGrade{
			StudentID:  studentID,
			CourseID:   courseID,
			Date:       r.date("date"),
			DailyScore: r.float("daily_score"),
		})
	case model.ImportPoints:
		sheet.Points = append(sheet.Points, model.BehaviorPoint{
			StudentID:           studentID,
			CourseID:            courseID,
			Date:                r.date("date"),
			EarlyAttendance:     r.flag("early_attendance"),
			PerfectMemorization: r.flag("perfect_memorization"),
			ActiveParticipation: r.flag("active_participation"),
			TimeCommitment:      r.flag("time_commitment"),
		})
	case model.ImportWeekly:
		sheet.Weekly = append(sheet.Weekly, model.WeeklyGrade{
			StudentID: studentID,
			CourseID:  courseID,
			Week:      r.whole("week"),
			Grade:     r.float("grade"),
		})
	case model.ImportMonthly:
		sheet.Monthly = append(sheet.Monthly, model.MonthlyGrade{
			StudentID:          studentID,
			CourseID:           courseID,
			Month:              r.whole("month"),
			QuranForgetfulness: r.float("quran_forgetfulness"),
			QuranMajorMistakes: r.float("quran_major_mistakes"),
			QuranMinorMistakes: r.float("quran_minor_mistakes"),
			TajweedTheory:      r.float("tajweed_theory"),
		})
	case model.ImportFinal:
		sheet.Final = append(sheet.Final, model.FinalExam{
			StudentID:   studentID,
			CourseID:    courseID,
			QuranTest:   r.float("quran_test"),
			TajweedTest: r.float("tajweed_test"),
		})
	default:
		return fmt.Errorf("%q: %w", sheet.Kind, errors.ErrUnknownImportKind)
	}
	return nil
}

// rowReader reads typed cells from one sheet row and keeps the first error.
type rowReader struct {
	row     []string
	columns map[string]int
	rowNum  int
	cal     *calendar.Calendar
	err     error
}

func (r *rowReader) value(col string) string {
	if idx, exists := r.columns[col]; exists && idx < len(r.row) {
		return strings.TrimSpace(r.row[idx])
	}
	return ""
}

func (r *rowReader) has(col string) bool {
	return r.value(col) != ""
}

func (r *rowReader) fail(col, raw, msg string) {
	if r.err == nil {
		r.err = errors.ValidationError{Field: col, Value: raw, Message: msg, Row: r.rowNum}
	}
}

func (r *rowReader) student(numbers map[int]string) string {
	if id := r.value(colStudentID); id != "" {
		return id
	}
	raw := r.value(colStudentNumber)
	n, err := strconv.Atoi(raw)
	if err != nil {
		r.fail(colStudentNumber, raw, "student_id or a numeric student_number is required")
		return ""
	}
	id, ok := numbers[n]
	if !ok {
		r.fail(colStudentNumber, raw, "student is not enrolled in this course")
		return ""
	}
	return id
}

func (r *rowReader) float(col string) float64 {
	raw := r.value(col)
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		r.fail(col, raw, "must be a number")
		return 0
	}
	return v
}

func (r *rowReader) whole(col string) int {
	raw := r.value(col)
	v, err := strconv.Atoi(raw)
	if err != nil {
		r.fail(col, raw, "must be a whole number")
		return 0
	}
	return v
}

func (r *rowReader) flag(col string) bool {
	switch strings.ToLower(r.value(col)) {
	case "1", "true", "yes", "x", "✓":
		return true
	case "", "0", "false", "no":
		return false
	default:
		r.fail(col, r.value(col), "must be 1/0, true/false or yes/no")
		return false
	}
}

func (r *rowReader) date(col string) time.Time {
	raw := r.value(col)
	loc := time.UTC
	if r.cal != nil && r.cal.Location != nil {
		loc = r.cal.Location
	}

	for _, layout := range dateLayouts {
		if d, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return d
		}
	}
	// unformatted date cells come through as Excel serial numbers
	if serial, err := strconv.ParseFloat(raw, 64); err == nil && serial > 0 {
		if d, err := excelize.ExcelDateToTime(serial, false); err == nil {
			y, m, day := d.Date()
			return time.Date(y, m, day, 0, 0, 0, 0, loc)
		}
	}

	r.fail(col, raw, "must be a date like 2006-01-02")
	return time.Time{}
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
