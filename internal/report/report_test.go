package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shomokh-report-engine/internal/aggregate"
	"shomokh-report-engine/internal/attendance"
	"shomokh-report-engine/internal/calendar"
	"shomokh-report-engine/internal/model"
	"shomokh-report-engine/pkg/errors"
)

func pct(v float64) *float64 { return &v }

func entry(id string, number int, name, courseID string, p *float64, total float64, last string) Entry {
	return Entry{
		Student: model.Student{ID: id, Number: number, Name: name, Phone: "05000000" + id},
		Course:  model.Course{ID: courseID, Name: "Course " + courseID},
		Summary: aggregate.AcademicSummary{
			StudentID:         id,
			CourseID:          courseID,
			OverallTotal:      total,
			OverallPercentage: p,
			Classification:    aggregate.Classify(p),
			LastRecorded:      last,
			PerCategory:       map[model.Category]aggregate.CategoryScore{},
		},
	}
}

func cohort() []Entry {
	return []Entry{
		entry("s3", 3, "Sara", "c1", pct(91.5), 300, "2025-10-01"),
		entry("s1", 1, "amal", "c1", pct(78), 250, "2025-10-03"),
		entry("s4", 4, "Huda", "c1", nil, 0, ""),
		entry("s2", 2, "Dana", "c1", pct(78), 260, "2025-09-30"),
		entry("s5", 5, "Lina", "c2", pct(55), 100, "2025-10-02"),
	}
}

func ids(rows []Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.StudentID)
	}
	return out
}

func TestBuildSort(t *testing.T) {
	tests := []struct {
		name string
		sort Sort
		want []string
	}{
		{name: "default by number", sort: Sort{}, want: []string{"s1", "s2", "s3", "s4", "s5"}},
		{name: "percentage asc, nil last, ties by number", sort: Sort{Field: SortPercentage}, want: []string{"s5", "s1", "s2", "s3", "s4"}},
		{name: "percentage desc, nil still last", sort: Sort{Field: SortPercentage, Descending: true}, want: []string{"s3", "s1", "s2", "s5", "s4"}},
		{name: "name ignores case", sort: Sort{Field: SortStudentName}, want: []string{"s1", "s2", "s4", "s5", "s3"}},
		{name: "total desc", sort: Sort{Field: SortTotal, Descending: true}, want: []string{"s3", "s2", "s1", "s5", "s4"}},
		{name: "date desc", sort: Sort{Field: SortDate, Descending: true}, want: []string{"s1", "s5", "s3", "s2", "s4"}},
		{name: "number desc", sort: Sort{Field: SortStudentNumber, Descending: true}, want: []string{"s5", "s4", "s3", "s2", "s1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Build(cohort(), Filter{}, tt.sort)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestBuildFilters(t *testing.T) {
	present := &attendance.Summary{PerStatus: map[model.AttendanceStatus]int{model.AttendancePresent: 3}}
	entries := cohort()
	entries[0].Attendance = present

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{name: "course", filter: Filter{CourseID: "c2"}, want: []string{"s5"}},
		{name: "search name case-insensitive", filter: Filter{Search: "SAR"}, want: []string{"s3"}},
		{name: "search number", filter: Filter{Search: "4"}, want: []string{"s4"}},
		{name: "search phone", filter: Filter{Search: "05000000s2"}, want: []string{"s2"}},
		{name: "min percentage drops no-data", filter: Filter{MinPercentage: pct(78)}, want: []string{"s1", "s2", "s3"}},
		{name: "classification", filter: Filter{Classification: aggregate.NoData}, want: []string{"s4"}},
		{name: "status requires a matching record", filter: Filter{Status: model.AttendancePresent}, want: []string{"s3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Build(entries, tt.filter, Sort{})
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestExportSummaryAndDetailedAgree(t *testing.T) {
	entries := cohort()
	f := Filter{CourseID: "c1"}
	s := Sort{Field: SortPercentage, Descending: true}

	rows := Build(entries, f, s)
	summary := NewTable(rows, FormatSummary)
	detailed := NewTable(Build(entries, f, s), FormatDetailed)

	require.Len(t, summary.Rows, len(detailed.Rows))
	assert.Equal(t, summary.Header, detailed.Header[:len(summary.Header)])

	pctCol := indexOf(summary.Header, "percentage")
	require.GreaterOrEqual(t, pctCol, 0)
	for i := range summary.Rows {
		assert.Equal(t, summary.Rows[i], detailed.Rows[i][:len(summary.Header)])
		assert.Equal(t, summary.Rows[i][pctCol], detailed.Rows[i][pctCol])
	}

	// the no-data student renders an empty cell rather than 0
	last := summary.Rows[len(summary.Rows)-1]
	assert.Equal(t, "s4", last[0])
	assert.Equal(t, "", last[pctCol])
}

func TestDetailedDailyAchievable(t *testing.T) {
	e := entry("s1", 1, "Amal", "c1", pct(90), 18, "2025-09-07")
	e.Summary.PerCategory[model.CategoryDaily] = aggregate.CategoryScore{
		Raw:          18,
		RecordedRows: 1,
		Achievable:   20,
		SubScorePct:  pct(90),
	}

	table := NewTable(Build([]Entry{e}, Filter{}, Sort{}), FormatDetailed)
	require.Len(t, table.Rows, 1)
	row := table.Rows[0]

	// one day with both a daily grade and a behavior score
	assert.Equal(t, "1", row[indexOf(table.Header, "daily_rows")])
	assert.Equal(t, "20.00", row[indexOf(table.Header, "daily_achievable")])
	assert.Equal(t, "90.00", row[indexOf(table.Header, "daily_score")])
	assert.Equal(t, "0.00", row[indexOf(table.Header, "weekly_achievable")])
}

func TestColumnsStable(t *testing.T) {
	first := Columns(FormatDetailed)
	first[0] = "mutated"
	assert.Equal(t, "student_id", Columns(FormatDetailed)[0])

	assert.Len(t, Columns(FormatSummary), 7)
	assert.Len(t, Columns(FormatDetailed), 7+1+4*len(model.Categories)+3)

	for _, r := range NewTable(Build(cohort(), Filter{}, Sort{}), FormatDetailed).Rows {
		assert.Len(t, r, len(Columns(FormatDetailed)))
	}
}

func TestFilterRecords(t *testing.T) {
	d := func(day int) time.Time { return time.Date(2025, 9, day, 0, 0, 0, 0, time.UTC) }

	recs := model.StudentCourseRecords{
		Daily:    []model.DailyGrade{{Date: d(7)}, {Date: d(8)}, {Date: d(14)}},
		Behavior: []model.BehaviorGrade{{Date: d(8)}},
		Points:   []model.BehaviorPoint{{Date: d(1)}, {Date: d(9)}},
		Attendance: []model.AttendanceRecord{
			{Date: d(8), Status: model.AttendancePresent},
			{Date: d(9), Status: model.AttendanceAbsent},
			{Date: d(20), Status: model.AttendancePresent},
		},
		Weekly: []model.WeeklyGrade{{Week: 1}, {Week: 9}},
		Final:  &model.FinalExam{QuranTest: 40},
	}

	got := FilterRecords(recs, Filter{
		Range:  calendar.Range{From: d(8), To: d(10)},
		Status: model.AttendancePresent,
	})

	assert.Len(t, got.Daily, 1)
	assert.Len(t, got.Behavior, 1)
	assert.Len(t, got.Points, 1)
	require.Len(t, got.Attendance, 1)
	assert.Equal(t, model.AttendancePresent, got.Attendance[0].Status)
	assert.Len(t, got.Weekly, 2, "weekly rows are not date-addressable")
	assert.NotNil(t, got.Final)
	assert.Len(t, recs.Daily, 3, "input untouched")
}

func TestParseQuery(t *testing.T) {
	cal := &calendar.Calendar{Location: time.UTC}

	f, s, err := ParseQuery(model.ReportQuery{
		CourseID:       "c1",
		DateFrom:       "2025-09-07",
		DateTo:         "2025-09-30",
		Status:         "present",
		Search:         " amal ",
		Classification: "very_good",
		SortBy:         "student_name",
		Order:          "desc",
	}, cal)
	require.NoError(t, err)
	assert.Equal(t, "c1", f.CourseID)
	assert.Equal(t, "2025-09-07", calendar.Key(f.Range.From))
	assert.Equal(t, model.AttendancePresent, f.Status)
	assert.Equal(t, "amal", f.Search)
	assert.Equal(t, aggregate.VeryGood, f.Classification)
	assert.Equal(t, Sort{Field: SortStudentName, Descending: true}, s)

	bad := []struct {
		name string
		q    model.ReportQuery
		want error
	}{
		{name: "sort field", q: model.ReportQuery{SortBy: "grade"}, want: errors.ErrUnknownSortField},
		{name: "status", q: model.ReportQuery{Status: "LATE"}, want: errors.ErrInvalidAttendanceKey},
		{name: "date", q: model.ReportQuery{DateFrom: "07/09/2025"}, want: errors.ErrSchemaValidation},
		{name: "reversed range", q: model.ReportQuery{DateFrom: "2025-10-01", DateTo: "2025-09-01"}, want: errors.ErrSchemaValidation},
		{name: "order", q: model.ReportQuery{Order: "sideways"}, want: errors.ErrSchemaValidation},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseQuery(tt.q, cal)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatSummary, f)

	f, err = ParseFormat("DETAILED")
	require.NoError(t, err)
	assert.Equal(t, FormatDetailed, f)

	_, err = ParseFormat("pdf")
	assert.ErrorIs(t, err, errors.ErrUnknownExportFormat)
}

func indexOf(cols []string, name string) int {
	for i, c := range cols {
		if c == name {
			return i
		}
	}
	return -1
}
