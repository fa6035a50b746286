// Package report filters and orders aggregated summaries across a cohort
// and lays them out as flat tables for export.
//
// Build always runs the same fixed pipeline: entry filters, then filters on
// final percentages, then sort. Exports are tables over Build's rows, so a
// file and the on-screen report never disagree.
package report

import (
	"sort"
	"strconv"
	"strings"

	"shomokh-report-engine/internal/aggregate"
	"shomokh-report-engine/internal/attendance"
	"shomokh-report-engine/internal/calendar"
	"shomokh-report-engine/internal/model"
	"shomokh-report-engine/pkg/errors"
)

type SortField string

const (
	SortTotal         SortField = "total"
	SortPercentage    SortField = "percentage"
	SortStudentName   SortField = "studentName"
	SortStudentNumber SortField = "studentNumber"
	SortDate          SortField = "date"
)

var SortFields = []SortField{SortTotal, SortPercentage, SortStudentName, SortStudentNumber, SortDate}

type Filter struct {
	CourseID       string
	Range          calendar.Range
	Status         model.AttendanceStatus
	Search         string
	MinPercentage  *float64
	Classification aggregate.Classification
}

type Sort struct {
	Field      SortField
	Descending bool
}

// Entry is one aggregated (student, course) pair fed into Build.
type Entry struct {
	Student    model.Student
	Course     model.Course
	Summary    aggregate.AcademicSummary
	Attendance *attendance.Summary
}

type Row struct {
	StudentID     string                    `json:"student_id"`
	StudentNumber int                       `json:"student_number"`
	StudentName   string                    `json:"student_name"`
	Phone         string                    `json:"phone,omitempty"`
	CourseID      string                    `json:"course_id"`
	CourseName    string                    `json:"course_name"`
	Summary       aggregate.AcademicSummary `json:"summary"`
	Attendance    *attendance.Summary       `json:"attendance,omitempty"`
	Warnings      []errors.IntegrityWarning `json:"warnings,omitempty"`
}

// Percentage returns the overall percentage, nil when the row has no data.
func (r Row) Percentage() *float64 {
	return r.Summary.OverallPercentage
}

// Build filters, orders and flattens entries. It never mutates its input.
func Build(entries []Entry, f Filter, s Sort) []Row {
	rows := make([]Row, 0, len(entries))
	for _, e := range entries {
		if !f.matchEntry(e) {
			continue
		}
		r := newRow(e)
		if !f.matchFinal(r) {
			continue
		}
		rows = append(rows, r)
	}

	sortRows(rows, s)
	return rows
}

func newRow(e Entry) Row {
	r := Row{
		StudentID:     e.Student.ID,
		StudentNumber: e.Student.Number,
		StudentName:   e.Student.Name,
		Phone:         e.Student.Phone,
		CourseID:      e.Course.ID,
		CourseName:    e.Course.Name,
		Summary:       e.Summary,
		Attendance:    e.Attendance,
	}
	r.Warnings = append(r.Warnings, e.Summary.Warnings...)
	if e.Attendance != nil {
		r.Warnings = append(r.Warnings, e.Attendance.Warnings...)
	}
	return r
}

func (f Filter) matchEntry(e Entry) bool {
	if f.CourseID != "" && e.Course.ID != f.CourseID {
		return false
	}
	if f.Status != "" && (e.Attendance == nil || e.Attendance.Count(f.Status) == 0) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		hay := []string{
			strings.ToLower(e.Student.Name),
			strconv.Itoa(e.Student.Number),
			strings.ToLower(e.Student.Phone),
		}
		found := false
		for _, h := range hay {
			if strings.Contains(h, q) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// matchFinal applies filters that depend on the finished percentage.
func (f Filter) matchFinal(r Row) bool {
	if f.MinPercentage != nil {
		p := r.Percentage()
		if p == nil || *p < *f.MinPercentage {
			return false
		}
	}
	if f.Classification != "" && r.Summary.Classification != f.Classification {
		return false
	}
	return true
}

// sortRows orders rows by the requested field. Rows without a value for the
// field go last in either direction; ties fall back to student number and
// then course id, both ascending.
func sortRows(rows []Row, s Sort) {
	field := s.Field
	if field == "" {
		field = SortStudentNumber
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]

		if c := compareField(a, b, field); c != 0 {
			if c == missingFirst || c == missingSecond {
				return c == missingSecond
			}
			if s.Descending {
				return c > 0
			}
			return c < 0
		}

		if a.StudentNumber != b.StudentNumber {
			return a.StudentNumber < b.StudentNumber
		}
		return a.CourseID < b.CourseID
	})
}

const (
	missingFirst  = -2 // a lacks a value, b has one
	missingSecond = 2  // b lacks a value, a has one
)

func compareField(a, b Row, field SortField) int {
	switch field {
	case SortTotal:
		return compareFloat(a.Summary.OverallTotal, b.Summary.OverallTotal)
	case SortPercentage:
		pa, pb := a.Percentage(), b.Percentage()
		switch {
		case pa == nil && pb == nil:
			return 0
		case pa == nil:
			return missingFirst
		case pb == nil:
			return missingSecond
		}
		return compareFloat(*pa, *pb)
	case SortStudentName:
		return strings.Compare(strings.ToLower(a.StudentName), strings.ToLower(b.StudentName))
	case SortDate:
		da, db := a.Summary.LastRecorded, b.Summary.LastRecorded
		switch {
		case da == "" && db == "":
			return 0
		case da == "":
			return missingFirst
		case db == "":
			return missingSecond
		}
		return strings.Compare(da, db)
	default:
		return compareInt(a.StudentNumber, b.StudentNumber)
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// FilterRecords applies the date range and the attendance status filter to
// the date-addressable record sets before aggregation. Weekly, monthly and
// final-exam rows have no date and pass through unchanged.
func FilterRecords(recs model.StudentCourseRecords, f Filter) model.StudentCourseRecords {
	r := f.Range
	out := recs

	out.Daily = keep(recs.Daily, func(g model.DailyGrade) bool { return r.Contains(g.Date) })
	out.Behavior = keep(recs.Behavior, func(g model.BehaviorGrade) bool { return r.Contains(g.Date) })
	out.Points = keep(recs.Points, func(p model.BehaviorPoint) bool { return r.Contains(p.Date) })
	out.Attendance = keep(recs.Attendance, func(a model.AttendanceRecord) bool {
		return r.Contains(a.Date) && (f.Status == "" || a.Status == f.Status)
	})
	out.Weekly = append([]model.WeeklyGrade(nil), recs.Weekly...)
	out.Monthly = append([]model.MonthlyGrade(nil), recs.Monthly...)
	return out
}

func keep[T any](rows []T, ok func(T) bool) []T {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		if ok(row) {
			out = append(out, row)
		}
	}
	return out
}
