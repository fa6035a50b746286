// Package aggregate turns one student's recorded grade rows in one course
// into per-category sub-scores and a weighted overall percentage.
//
// Each category is normalized against what was achievable given the rows
// actually recorded. A category without rows has no sub-score at all and
// its weight moves to the categories that do have data.
package aggregate

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/rs/zerolog"

	"shomokh-report-engine/internal/calendar"
	"shomokh-report-engine/internal/grading"
	"shomokh-report-engine/internal/model"
	"shomokh-report-engine/pkg/errors"
)

const warningScope = "grades"

// PerRowMax is the ceiling a single recorded row can contribute per category.
// A daily row is worth 10 per recorded component: memorization plus review,
// and the behavior score rescaled by 10.
var PerRowMax = map[model.Category]float64{
	model.CategoryDaily:          10,
	model.CategoryWeekly:         5,
	model.CategoryMonthly:        30,
	model.CategoryBehaviorPoints: 20,
	model.CategoryFinalExam:      60,
}

const behaviorScale = 10

type Classification string

const (
	Excellent        Classification = "EXCELLENT"
	VeryGood         Classification = "VERY_GOOD"
	Good             Classification = "GOOD"
	NeedsImprovement Classification = "NEEDS_IMPROVEMENT"
	NoData           Classification = "NO_DATA"
)

// Classify maps a percentage to its band. Lower edges are inclusive; a nil
// percentage is NO_DATA.
func Classify(pct *float64) Classification {
	switch {
	case pct == nil:
		return NoData
	case *pct >= 90:
		return Excellent
	case *pct >= 75:
		return VeryGood
	case *pct >= 60:
		return Good
	default:
		return NeedsImprovement
	}
}

type CategoryScore struct {
	Raw          float64  `json:"raw"`
	RecordedRows int      `json:"recorded_rows"`
	Achievable   float64  `json:"achievable"`
	SubScorePct  *float64 `json:"sub_score_pct"`
	Weight       float64  `json:"weight"`
}

// Present reports whether the category had any recorded rows.
func (s CategoryScore) Present() bool {
	return s.SubScorePct != nil
}

type AcademicSummary struct {
	StudentID         string                           `json:"student_id"`
	CourseID          string                           `json:"course_id"`
	PerCategory       map[model.Category]CategoryScore `json:"per_category"`
	OverallTotal      float64                          `json:"overall_total"`
	AchievableTotal   float64                          `json:"achievable_total"`
	OverallPercentage *float64                         `json:"overall_percentage"`
	Classification    Classification                   `json:"classification"`
	LastRecorded      string                           `json:"last_recorded,omitempty"`
	Warnings          []errors.IntegrityWarning        `json:"warnings,omitempty"`
}

// Aggregator applies one weight table. It holds no mutable state and may
// serve any number of goroutines.
type Aggregator struct {
	weights Weights
	log     zerolog.Logger
}

func New(weights Weights, log zerolog.Logger) (*Aggregator, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	w := make(Weights, len(weights))
	for c, share := range weights {
		w[c] = share
	}
	return &Aggregator{weights: w, log: log}, nil
}

func (a *Aggregator) Weights() Weights {
	w := make(Weights, len(a.weights))
	for c, share := range a.weights {
		w[c] = share
	}
	return w
}

// Aggregate computes the academic summary of one (student, course) pair.
// Any row holding an illegal grade value fails the whole call with an error
// wrapping ErrInvalidGradeValue. Rows belonging to another pair are skipped
// and duplicate keys keep their last occurrence; both are reported as
// warnings.
func (a *Aggregator) Aggregate(studentID, courseID string, recs model.StudentCourseRecords) (AcademicSummary, error) {
	if err := validateRecords(recs); err != nil {
		return AcademicSummary{}, fmt.Errorf("student %s course %s: %w", studentID, courseID, err)
	}

	acc := &accumulator{studentID: studentID, courseID: courseID}

	scores := map[model.Category]CategoryScore{
		model.CategoryDaily:          acc.daily(recs.Daily, recs.Behavior),
		model.CategoryWeekly:         acc.weekly(recs.Weekly),
		model.CategoryMonthly:        acc.monthly(recs.Monthly),
		model.CategoryBehaviorPoints: acc.points(recs.Points),
		model.CategoryFinalExam:      acc.final(recs.Final),
	}
	acc.attendance(recs.Attendance)

	summary := AcademicSummary{
		StudentID:    studentID,
		CourseID:     courseID,
		PerCategory:  make(map[model.Category]CategoryScore, len(scores)),
		LastRecorded: acc.last,
		Warnings:     acc.warnings,
	}

	// sub-scores are normalized before weighting; the percentage is taken
	// from unrounded values and rounded once
	present := make([]model.Category, 0, len(model.Categories))
	exact := make(map[model.Category]float64, len(model.Categories))
	for _, c := range model.Categories {
		s := scores[c]
		if s.RecordedRows > 0 && s.Achievable > 0 {
			exact[c] = s.Raw / s.Achievable * 100
			present = append(present, c)
		}
	}

	shares := Redistribute(a.weights, present)
	var total, achievable, pct float64
	for _, c := range model.Categories {
		s := scores[c]
		total += s.Raw
		achievable += s.Achievable
		if v, ok := exact[c]; ok {
			sub := grading.Round2(v)
			s.SubScorePct = &sub
			s.Weight = grading.Round2(shares[c])
			pct += v * shares[c] / 100
		}
		s.Raw = grading.Round2(s.Raw)
		summary.PerCategory[c] = s
	}
	summary.OverallTotal = grading.Round2(total)
	summary.AchievableTotal = achievable

	if len(present) > 0 {
		p := clamp(grading.Round2(pct), 0, 100)
		summary.OverallPercentage = &p
	}
	summary.Classification = Classify(summary.OverallPercentage)

	for _, w := range summary.Warnings {
		a.log.Warn().
			Str("scope", w.Scope).
			Str("student_id", w.StudentID).
			Str("course_id", w.CourseID).
			Msg(w.Message)
	}

	return summary, nil
}

func validateRecords(recs model.StudentCourseRecords) error {
	if err := grading.CheckAll(recs.Daily); err != nil {
		return fmt.Errorf("daily grade: %w", err)
	}
	if err := grading.CheckAll(recs.Behavior); err != nil {
		return fmt.Errorf("behavior grade: %w", err)
	}
	if err := grading.CheckAll(recs.Points); err != nil {
		return fmt.Errorf("behavior point: %w", err)
	}
	if err := grading.CheckAll(recs.Weekly); err != nil {
		return fmt.Errorf("weekly grade: %w", err)
	}
	if err := grading.CheckAll(recs.Monthly); err != nil {
		return fmt.Errorf("monthly grade: %w", err)
	}
	if recs.Final != nil {
		if err := grading.Check(recs.Final); err != nil {
			return fmt.Errorf("final exam: %w", err)
		}
	}
	return nil
}

type accumulator struct {
	studentID string
	courseID  string
	last      string
	warnings  []errors.IntegrityWarning
}

func (acc *accumulator) warn(format string, args ...interface{}) {
	acc.warnings = append(acc.warnings, errors.IntegrityWarning{
		Scope:     warningScope,
		StudentID: acc.studentID,
		CourseID:  acc.courseID,
		Message:   fmt.Sprintf(format, args...),
	})
}

func (acc *accumulator) owns(studentID, courseID, kind string) bool {
	if studentID == acc.studentID && courseID == acc.courseID {
		return true
	}
	acc.warn("%s row for student %s course %s ignored", kind, studentID, courseID)
	return false
}

func (acc *accumulator) seen(date string) {
	if date > acc.last {
		acc.last = date
	}
}

// keyed collects rows by key. A repeated key replaces the earlier row and is
// reported.
func keyed[T any](acc *accumulator, kind string, rows []T, key func(T) string, owner func(T) (string, string)) (map[string]T, []string) {
	byKey := make(map[string]T, len(rows))
	for _, row := range rows {
		sid, cid := owner(row)
		if !acc.owns(sid, cid, kind) {
			continue
		}
		k := key(row)
		if _, dup := byKey[k]; dup {
			acc.warn("duplicate %s row for %s, last one kept", kind, k)
		}
		byKey[k] = row
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return byKey, keys
}

func (acc *accumulator) daily(daily []model.DailyGrade, behavior []model.BehaviorGrade) CategoryScore {
	grades, _ := keyed(acc, "daily", daily,
		func(g model.DailyGrade) string { return calendar.Key(g.Date) },
		func(g model.DailyGrade) (string, string) { return g.StudentID, g.CourseID })
	scores, _ := keyed(acc, "behavior", behavior,
		func(g model.BehaviorGrade) string { return calendar.Key(g.Date) },
		func(g model.BehaviorGrade) (string, string) { return g.StudentID, g.CourseID })

	days := make([]string, 0, len(grades)+len(scores))
	for k := range grades {
		days = append(days, k)
	}
	for k := range scores {
		if _, ok := grades[k]; !ok {
			days = append(days, k)
		}
	}
	sort.Strings(days)

	var s CategoryScore
	perRow := PerRowMax[model.CategoryDaily]
	for _, day := range days {
		if g, ok := grades[day]; ok {
			s.Raw += g.Total()
			s.Achievable += perRow
		}
		if b, ok := scores[day]; ok {
			s.Raw += b.DailyScore * behaviorScale
			s.Achievable += perRow
		}
		acc.seen(day)
	}
	s.RecordedRows = len(days)
	return s
}

func (acc *accumulator) weekly(rows []model.WeeklyGrade) CategoryScore {
	byWeek, keys := keyed(acc, "weekly", rows,
		func(g model.WeeklyGrade) string { return fmt.Sprintf("week %02d", g.Week) },
		func(g model.WeeklyGrade) (string, string) { return g.StudentID, g.CourseID })

	var s CategoryScore
	for _, k := range keys {
		s.Raw += byWeek[k].Grade
	}
	s.RecordedRows = len(keys)
	s.Achievable = float64(s.RecordedRows) * PerRowMax[model.CategoryWeekly]
	return s
}

func (acc *accumulator) monthly(rows []model.MonthlyGrade) CategoryScore {
	byMonth, keys := keyed(acc, "monthly", rows,
		func(g model.MonthlyGrade) string { return "month " + strconv.Itoa(g.Month) },
		func(g model.MonthlyGrade) (string, string) { return g.StudentID, g.CourseID })

	var s CategoryScore
	for _, k := range keys {
		s.Raw += byMonth[k].Total()
	}
	s.RecordedRows = len(keys)
	s.Achievable = float64(s.RecordedRows) * PerRowMax[model.CategoryMonthly]
	return s
}

func (acc *accumulator) points(rows []model.BehaviorPoint) CategoryScore {
	byDate, keys := keyed(acc, "behavior point", rows,
		func(p model.BehaviorPoint) string { return calendar.Key(p.Date) },
		func(p model.BehaviorPoint) (string, string) { return p.StudentID, p.CourseID })

	var s CategoryScore
	for _, k := range keys {
		s.Raw += float64(byDate[k].Total())
		acc.seen(k)
	}
	s.RecordedRows = len(keys)
	s.Achievable = float64(s.RecordedRows) * PerRowMax[model.CategoryBehaviorPoints]
	return s
}

func (acc *accumulator) final(exam *model.FinalExam) CategoryScore {
	var s CategoryScore
	if exam == nil || !acc.owns(exam.StudentID, exam.CourseID, "final exam") {
		return s
	}
	s.Raw = exam.Total()
	s.RecordedRows = 1
	s.Achievable = PerRowMax[model.CategoryFinalExam]
	return s
}

func (acc *accumulator) attendance(rows []model.AttendanceRecord) {
	for _, r := range rows {
		if r.StudentID == acc.studentID && r.CourseID == acc.courseID {
			acc.seen(calendar.Key(r.Date))
		}
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
