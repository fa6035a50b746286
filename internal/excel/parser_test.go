package excel

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"shomokh-report-engine/internal/calendar"
	"shomokh-report-engine/internal/model"
	pkgerrors "shomokh-report-engine/pkg/errors"
)

func newCalendar() *calendar.Calendar {
	return &calendar.Calendar{
		Location:         time.UTC,
		ExcludedWeekdays: map[time.Weekday]bool{time.Friday: true, time.Saturday: true},
		SemesterStart:    time.Date(2025, 9, 7, 0, 0, 0, 0, time.UTC),
		SemesterEnd:      time.Date(2025, 12, 18, 0, 0, 0, 0, time.UTC),
	}
}

func workbook(t *testing.T, rows ...[]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParseDailySheet(t *testing.T) {
	data := workbook(t,
		[]interface{}{"Student_Number", "Date", "Memorization", "Review", "Daily_Score"},
		[]interface{}{"1", "2025-09-08", "4.75", "5", "1"},
		[]interface{}{"", "", "", "", ""},
		[]interface{}{"2", "2025-09-08", "3", "3.5", ""},
	)

	s := NewExcelStrategy(newCalendar())
	sheet, err := s.Parse(context.Background(), data, model.ImportDaily, "c1", map[int]string{1: "s1", 2: "s2"})
	require.NoError(t, err)

	require.Len(t, sheet.Daily, 2)
	assert.Equal(t, "s1", sheet.Daily[0].StudentID)
	assert.Equal(t, "c1", sheet.Daily[0].CourseID)
	assert.Equal(t, 4.75, sheet.Daily[0].Memorization)
	assert.Equal(t, "2025-09-08", calendar.Key(sheet.Daily[1].Date))
	require.Len(t, sheet.Behavior, 1, "empty daily_score adds no behavior row")
	assert.Equal(t, 1.0, sheet.Behavior[0].DailyScore)

	assert.NoError(t, s.Validate(context.Background(), sheet))
}

func TestParsePointsSheet(t *testing.T) {
	data := workbook(t,
		[]interface{}{"student_id", "date", "early_attendance", "perfect_memorization", "active_participation", "time_commitment"},
		[]interface{}{"s1", "2025-09-09", "yes", "1", "0", "x"},
	)

	sheet, err := NewParser(newCalendar()).Parse(context.Background(), data, model.ImportPoints, "c1", nil)
	require.NoError(t, err)
	require.Len(t, sheet.Points, 1)
	assert.Equal(t, 15, sheet.Points[0].Total())
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name    string
		data    func(t *testing.T) []byte
		kind    model.ImportKind
		wantErr error
	}{
		{
			name:    "not a workbook",
			data:    func(t *testing.T) []byte { return []byte("plain text") },
			kind:    model.ImportWeekly,
			wantErr: pkgerrors.ErrInvalidFileFormat,
		},
		{
			name: "missing column",
			data: func(t *testing.T) []byte {
				return workbook(t, []interface{}{"student_id", "week"}, []interface{}{"s1", "1"})
			},
			kind:    model.ImportWeekly,
			wantErr: pkgerrors.ErrSchemaValidation,
		},
		{
			name: "non numeric grade",
			data: func(t *testing.T) []byte {
				return workbook(t, []interface{}{"student_id", "week", "grade"}, []interface{}{"s1", "1", "five"})
			},
			kind:    model.ImportWeekly,
			wantErr: pkgerrors.ErrInvalidGradeValue,
		},
		{
			name: "unknown kind",
			data: func(t *testing.T) []byte {
				return workbook(t, []interface{}{"student_id"}, []interface{}{"s1"})
			},
			kind:    model.ImportKind("homework"),
			wantErr: pkgerrors.ErrUnknownImportKind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser(newCalendar()).Parse(context.Background(), tt.data(t), tt.kind, "c1", nil)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseUnknownStudentNumber(t *testing.T) {
	data := workbook(t,
		[]interface{}{"student_number", "quran_test", "tajweed_test"},
		[]interface{}{"7", "40", "20"},
	)

	_, err := NewParser(newCalendar()).Parse(context.Background(), data, model.ImportFinal, "c1", map[int]string{1: "s1"})
	var ve pkgerrors.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, 2, ve.Row)
	assert.Equal(t, "student_number", ve.Field)
}

func TestValidateSheet(t *testing.T) {
	v := NewValidator(newCalendar())
	friday := time.Date(2025, 9, 12, 0, 0, 0, 0, time.UTC)

	t.Run("off-step value", func(t *testing.T) {
		sheet := &model.GradeSheet{Kind: model.ImportMonthly, Monthly: []model.MonthlyGrade{
			{StudentID: "s1", CourseID: "c1", Month: 1, TajweedTheory: 15},
			{StudentID: "s2", CourseID: "c1", Month: 1, TajweedTheory: 14.2},
		}}
		err := v.Validate(context.Background(), sheet)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidGradeValue)

		var ve pkgerrors.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, 3, ve.Row, "second data row sits on sheet row 3")
	})

	t.Run("non-teaching date", func(t *testing.T) {
		sheet := &model.GradeSheet{Kind: model.ImportBehavior, Behavior: []model.BehaviorGrade{
			{StudentID: "s1", CourseID: "c1", Date: friday, DailyScore: 1},
		}}
		assert.ErrorIs(t, v.Validate(context.Background(), sheet), pkgerrors.ErrNotTeachingDate)
	})

	t.Run("empty sheet", func(t *testing.T) {
		assert.ErrorIs(t, v.Validate(context.Background(), &model.GradeSheet{}), pkgerrors.ErrSchemaValidation)
	})
}
