// Package attendance derives per-status counts and attendance rates from
// raw attendance records. It never mutates attendance state.
package attendance

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"shomokh-report-engine/internal/calendar"
	"shomokh-report-engine/internal/model"
	"shomokh-report-engine/pkg/errors"
)

const warningScope = "attendance"

type Summary struct {
	From           string                         `json:"from,omitempty"`
	To             string                         `json:"to,omitempty"`
	TeachingDays   int                            `json:"teaching_days"`
	Enrolled       int                            `json:"enrolled"`
	Records        int                            `json:"records"`
	PerStatus      map[model.AttendanceStatus]int `json:"per_status"`
	NotMarked      int                            `json:"not_marked"`
	AttendanceRate float64                        `json:"attendance_rate"`
	Warnings       []errors.IntegrityWarning      `json:"warnings,omitempty"`
}

// Count returns the number of records with the given status.
func (s Summary) Count(status model.AttendanceStatus) int {
	return s.PerStatus[status]
}

// Summarizer computes summaries against one teaching calendar. It holds no
// mutable state and is safe for concurrent use.
type Summarizer struct {
	cal *calendar.Calendar
	log zerolog.Logger
}

func NewSummarizer(cal *calendar.Calendar, log zerolog.Logger) *Summarizer {
	return &Summarizer{cal: cal, log: log}
}

// Summarize counts the records that fall in r and belong to an enrolled
// student. Open ends of r are bounded by the semester.
//
// NotMarked is enrolled x teaching days minus counted records. A negative
// value means the inputs hold more records than slots; it is kept as is and
// reported as an integrity warning. When r stays open after bounding (no
// semester configured) there is no teaching-day count, so NotMarked stays
// zero and records are not checked against the calendar.
func (s *Summarizer) Summarize(records []model.AttendanceRecord, r calendar.Range, enrolled []string) Summary {
	r = s.cal.Bound(r)
	days := s.cal.RangeDates(r)
	bounded := !r.From.IsZero() && !r.To.IsZero()

	members := make(map[string]struct{}, len(enrolled))
	for _, id := range enrolled {
		members[id] = struct{}{}
	}

	summary := Summary{
		TeachingDays: len(days),
		Enrolled:     len(members),
		PerStatus:    make(map[model.AttendanceStatus]int),
	}
	if !r.From.IsZero() {
		summary.From = calendar.Key(r.From)
	}
	if !r.To.IsZero() {
		summary.To = calendar.Key(r.To)
	}

	teaching := make(map[string]struct{}, len(days))
	for _, d := range days {
		teaching[calendar.Key(d)] = struct{}{}
	}

	seen := make(map[string]struct{}, len(records))
	var courseID string
	for _, rec := range sorted(records) {
		if !r.Contains(rec.Date) {
			continue
		}
		if courseID == "" {
			courseID = rec.CourseID
		}
		if _, ok := members[rec.StudentID]; !ok {
			summary.warn(rec, "record for a student who is not enrolled was ignored")
			continue
		}
		if !rec.Status.Valid() {
			summary.warn(rec, fmt.Sprintf("unknown status %q was ignored", rec.Status))
			continue
		}

		key := rec.StudentID + "|" + calendar.Key(rec.Date)
		if _, dup := seen[key]; dup {
			summary.warn(rec, "duplicate record for "+calendar.Key(rec.Date))
		}
		seen[key] = struct{}{}

		if _, ok := teaching[calendar.Key(rec.Date)]; bounded && !ok {
			summary.warn(rec, "record on non-teaching date "+calendar.Key(rec.Date))
		}

		summary.Records++
		summary.PerStatus[rec.Status]++
	}

	if bounded {
		summary.NotMarked = summary.Enrolled*summary.TeachingDays - summary.Records
	}
	if summary.NotMarked < 0 {
		summary.Warnings = append(summary.Warnings, errors.IntegrityWarning{
			Scope:    warningScope,
			CourseID: courseID,
			Message: fmt.Sprintf("not-marked count is negative (%d): %d records for %d students over %d teaching days",
				summary.NotMarked, summary.Records, summary.Enrolled, summary.TeachingDays),
		})
	}

	present := summary.PerStatus[model.AttendancePresent]
	absent := summary.PerStatus[model.AttendanceAbsent]
	if present+absent > 0 {
		summary.AttendanceRate = float64(present) / float64(present+absent)
	}

	for _, w := range summary.Warnings {
		s.log.Warn().
			Str("scope", w.Scope).
			Str("student_id", w.StudentID).
			Str("course_id", w.CourseID).
			Msg(w.Message)
	}

	return summary
}

// SummarizeStudent summarizes a single student's records.
func (s *Summarizer) SummarizeStudent(records []model.AttendanceRecord, r calendar.Range, studentID string) Summary {
	own := make([]model.AttendanceRecord, 0, len(records))
	for _, rec := range records {
		if rec.StudentID == studentID {
			own = append(own, rec)
		}
	}
	return s.Summarize(own, r, []string{studentID})
}

func (s *Summary) warn(rec model.AttendanceRecord, msg string) {
	s.Warnings = append(s.Warnings, errors.IntegrityWarning{
		Scope:     warningScope,
		StudentID: rec.StudentID,
		CourseID:  rec.CourseID,
		Message:   msg,
	})
}

// sorted returns a copy ordered by date then student so warnings come out
// in a stable order.
func sorted(records []model.AttendanceRecord) []model.AttendanceRecord {
	out := make([]model.AttendanceRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		ki, kj := calendar.Key(out[i].Date), calendar.Key(out[j].Date)
		if ki != kj {
			return ki < kj
		}
		return out[i].StudentID < out[j].StudentID
	})
	return out
}
