package model

import "time"

// Category is one of the gradable record families.
type Category string

const (
	CategoryDaily          Category = "daily"
	CategoryWeekly         Category = "weekly"
	CategoryMonthly        Category = "monthly"
	CategoryBehaviorPoints Category = "behavior_points"
	CategoryFinalExam      Category = "final_exam"
)

// Categories is the canonical category order used for output columns.
var Categories = []Category{
	CategoryDaily,
	CategoryWeekly,
	CategoryMonthly,
	CategoryBehaviorPoints,
	CategoryFinalExam,
}

// BehaviorPointValue is the fixed worth of each true behavior flag.
const BehaviorPointValue = 5

type DailyGrade struct {
	StudentID    string    `json:"student_id" db:"student_id" validate:"required"`
	CourseID     string    `json:"course_id" db:"course_id" validate:"required"`
	Date         time.Time `json:"date" db:"date" validate:"required"`
	Memorization float64   `json:"memorization" db:"memorization" validate:"grade=5"`
	Review       float64   `json:"review" db:"review" validate:"grade=5"`
}

func (g DailyGrade) Total() float64 {
	return g.Memorization + g.Review
}

type BehaviorGrade struct {
	StudentID  string    `json:"student_id" db:"student_id" validate:"required"`
	CourseID   string    `json:"course_id" db:"course_id" validate:"required"`
	Date       time.Time `json:"date" db:"date" validate:"required"`
	DailyScore float64   `json:"daily_score" db:"daily_score" validate:"grade=1"`
}

type BehaviorPoint struct {
	StudentID           string    `json:"student_id" db:"student_id" validate:"required"`
	CourseID            string    `json:"course_id" db:"course_id" validate:"required"`
	Date                time.Time `json:"date" db:"date" validate:"required"`
	EarlyAttendance     bool      `json:"early_attendance" db:"early_attendance"`
	PerfectMemorization bool      `json:"perfect_memorization" db:"perfect_memorization"`
	ActiveParticipation bool      `json:"active_participation" db:"active_participation"`
	TimeCommitment      bool      `json:"time_commitment" db:"time_commitment"`
}

// Total is the row's point value, one of 0, 5, 10, 15 or 20.
func (p BehaviorPoint) Total() int {
	total := 0
	for _, flag := range []bool{p.EarlyAttendance, p.PerfectMemorization, p.ActiveParticipation, p.TimeCommitment} {
		if flag {
			total += BehaviorPointValue
		}
	}
	return total
}

type WeeklyGrade struct {
	StudentID string  `json:"student_id" db:"student_id" validate:"required"`
	CourseID  string  `json:"course_id" db:"course_id" validate:"required"`
	Week      int     `json:"week" db:"week" validate:"gte=1,lte=10"`
	Grade     float64 `json:"grade" db:"grade" validate:"grade=5"`
}

type MonthlyGrade struct {
	StudentID          string  `json:"student_id" db:"student_id" validate:"required"`
	CourseID           string  `json:"course_id" db:"course_id" validate:"required"`
	Month              int     `json:"month" db:"month" validate:"gte=1,lte=3"`
	QuranForgetfulness float64 `json:"quran_forgetfulness" db:"quran_forgetfulness" validate:"grade=5"`
	QuranMajorMistakes float64 `json:"quran_major_mistakes" db:"quran_major_mistakes" validate:"grade=5"`
	QuranMinorMistakes float64 `json:"quran_minor_mistakes" db:"quran_minor_mistakes" validate:"grade=5"`
	TajweedTheory      float64 `json:"tajweed_theory" db:"tajweed_theory" validate:"grade=15"`
}

func (g MonthlyGrade) Total() float64 {
	return g.QuranForgetfulness + g.QuranMajorMistakes + g.QuranMinorMistakes + g.TajweedTheory
}

type FinalExam struct {
	StudentID   string  `json:"student_id" db:"student_id" validate:"required"`
	CourseID    string  `json:"course_id" db:"course_id" validate:"required"`
	QuranTest   float64 `json:"quran_test" db:"quran_test" validate:"grade=40"`
	TajweedTest float64 `json:"tajweed_test" db:"tajweed_test" validate:"grade=20"`
}

func (e FinalExam) Total() float64 {
	return e.QuranTest + e.TajweedTest
}

// StudentCourseRecords holds the complete, unfiltered row sets recorded for
// one (student, course) pair.
type StudentCourseRecords struct {
	StudentID  string             `json:"student_id"`
	CourseID   string             `json:"course_id"`
	Attendance []AttendanceRecord `json:"attendance"`
	Daily      []DailyGrade       `json:"daily"`
	Behavior   []BehaviorGrade    `json:"behavior"`
	Points     []BehaviorPoint    `json:"points"`
	Weekly     []WeeklyGrade      `json:"weekly"`
	Monthly    []MonthlyGrade     `json:"monthly"`
	Final      *FinalExam         `json:"final,omitempty"`
}
