package attendance

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shomokh-report-engine/internal/calendar"
	"shomokh-report-engine/internal/model"
)

func newCalendar() *calendar.Calendar {
	return &calendar.Calendar{
		Location:         time.UTC,
		ExcludedWeekdays: map[time.Weekday]bool{time.Friday: true, time.Saturday: true},
		SemesterStart:    time.Date(2025, 9, 7, 0, 0, 0, 0, time.UTC),
		SemesterEnd:      time.Date(2025, 12, 18, 0, 0, 0, 0, time.UTC),
	}
}

func records(studentID string, dates []time.Time, statuses ...model.AttendanceStatus) []model.AttendanceRecord {
	out := make([]model.AttendanceRecord, 0, len(statuses))
	for i, st := range statuses {
		out = append(out, model.AttendanceRecord{StudentID: studentID, CourseID: "c1", Date: dates[i], Status: st})
	}
	return out
}

func repeat(st model.AttendanceStatus, n int) []model.AttendanceStatus {
	out := make([]model.AttendanceStatus, n)
	for i := range out {
		out[i] = st
	}
	return out
}

func concat(parts ...[]model.AttendanceStatus) []model.AttendanceStatus {
	var out []model.AttendanceStatus
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestSummarizeStudentRate(t *testing.T) {
	cal := newCalendar()
	days := cal.SemesterDates()
	require.Len(t, days, 75)

	s := NewSummarizer(cal, zerolog.Nop())

	t.Run("every day marked", func(t *testing.T) {
		recs := records("s1", days, concat(
			repeat(model.AttendancePresent, 60),
			repeat(model.AttendanceAbsent, 10),
			repeat(model.AttendanceExcused, 5),
		)...)

		got := s.SummarizeStudent(recs, calendar.Range{}, "s1")
		assert.Equal(t, 75, got.TeachingDays)
		assert.Equal(t, 60, got.Count(model.AttendancePresent))
		assert.Equal(t, 10, got.Count(model.AttendanceAbsent))
		assert.Equal(t, 5, got.Count(model.AttendanceExcused))
		assert.InDelta(t, 60.0/70.0, got.AttendanceRate, 1e-9)
		assert.Equal(t, 0, got.NotMarked)
		assert.Empty(t, got.Warnings)
	})

	t.Run("five days unmarked", func(t *testing.T) {
		recs := records("s1", days, concat(
			repeat(model.AttendancePresent, 55),
			repeat(model.AttendanceAbsent, 10),
			repeat(model.AttendanceExcused, 5),
		)...)

		got := s.SummarizeStudent(recs, calendar.Range{}, "s1")
		assert.Equal(t, 5, got.NotMarked)
		assert.InDelta(t, 55.0/65.0, got.AttendanceRate, 1e-9)
	})
}

func TestSummarizeOnlyPresentStatusesAppear(t *testing.T) {
	cal := newCalendar()
	days := cal.SemesterDates()
	s := NewSummarizer(cal, zerolog.Nop())

	recs := records("s1", days, model.AttendanceReviewed, model.AttendanceLeftEarly)
	got := s.Summarize(recs, calendar.Range{}, []string{"s1", "s2"})

	assert.Len(t, got.PerStatus, 2)
	_, hasPresent := got.PerStatus[model.AttendancePresent]
	assert.False(t, hasPresent)
	assert.Equal(t, 0.0, got.AttendanceRate)
	assert.Equal(t, 2*75-2, got.NotMarked)
}

func TestSummarizeRestrictsToRange(t *testing.T) {
	cal := newCalendar()
	days := cal.SemesterDates()
	s := NewSummarizer(cal, zerolog.Nop())

	recs := records("s1", days, repeat(model.AttendancePresent, 10)...)
	// the first full week: Sunday 7th to Thursday 11th
	r := calendar.Range{From: days[0], To: days[4]}

	got := s.Summarize(recs, r, []string{"s1"})
	assert.Equal(t, "2025-09-07", got.From)
	assert.Equal(t, "2025-09-11", got.To)
	assert.Equal(t, 5, got.TeachingDays)
	assert.Equal(t, 5, got.Records)
	assert.Equal(t, 0, got.NotMarked)
}

func TestSummarizeNegativeNotMarkedWarns(t *testing.T) {
	cal := newCalendar()
	days := cal.SemesterDates()
	s := NewSummarizer(cal, zerolog.Nop())

	dup := []time.Time{days[0], days[0]}
	recs := records("s1", dup, model.AttendancePresent, model.AttendanceAbsent)
	r := calendar.Range{From: days[0], To: days[0]}

	got := s.Summarize(recs, r, []string{"s1"})
	assert.Equal(t, -1, got.NotMarked, "negative count must not be clamped")
	require.Len(t, got.Warnings, 2)
	assert.Contains(t, got.Warnings[0].Message, "duplicate record")
	assert.Contains(t, got.Warnings[1].Message, "negative")
}

func TestSummarizeIgnoresUnenrolled(t *testing.T) {
	cal := newCalendar()
	days := cal.SemesterDates()
	s := NewSummarizer(cal, zerolog.Nop())

	recs := append(
		records("s1", days, model.AttendancePresent),
		records("ghost", days, model.AttendancePresent)...,
	)
	r := calendar.Range{From: days[0], To: days[0]}

	got := s.Summarize(recs, r, []string{"s1"})
	assert.Equal(t, 1, got.Records)
	assert.Equal(t, 0, got.NotMarked)
	require.Len(t, got.Warnings, 1)
	assert.Equal(t, "ghost", got.Warnings[0].StudentID)
}

func TestSummarizeWithoutSemester(t *testing.T) {
	cal := &calendar.Calendar{
		Location:         time.UTC,
		ExcludedWeekdays: map[time.Weekday]bool{time.Friday: true, time.Saturday: true},
	}
	s := NewSummarizer(cal, zerolog.Nop())

	dates := []time.Time{
		time.Date(2025, 9, 7, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 9, 8, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 9, 9, 0, 0, 0, 0, time.UTC),
	}
	recs := records("s1", dates, model.AttendancePresent, model.AttendanceAbsent, model.AttendancePresent)

	t.Run("open range", func(t *testing.T) {
		sum := s.Summarize(recs, calendar.Range{}, []string{"s1"})

		assert.Equal(t, 0, sum.TeachingDays)
		assert.Equal(t, 3, sum.Records)
		assert.Equal(t, 0, sum.NotMarked)
		assert.Empty(t, sum.Warnings)
		assert.InDelta(t, 2.0/3.0, sum.AttendanceRate, 1e-9)
	})

	t.Run("explicit range still counts slots", func(t *testing.T) {
		r := calendar.Range{From: dates[0], To: dates[2]}
		sum := s.Summarize(recs, r, []string{"s1"})

		assert.Equal(t, 3, sum.TeachingDays)
		assert.Equal(t, 0, sum.NotMarked)
		assert.Empty(t, sum.Warnings)
	})
}
