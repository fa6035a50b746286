package model

import "time"

type AttendanceStatus string

const (
	AttendancePresent   AttendanceStatus = "PRESENT"
	AttendanceExcused   AttendanceStatus = "EXCUSED"
	AttendanceAbsent    AttendanceStatus = "ABSENT"
	AttendanceReviewed  AttendanceStatus = "REVIEWED"
	AttendanceLeftEarly AttendanceStatus = "LEFT_EARLY"
)

// AttendanceStatuses lists every status in display order.
var AttendanceStatuses = []AttendanceStatus{
	AttendancePresent,
	AttendanceExcused,
	AttendanceAbsent,
	AttendanceReviewed,
	AttendanceLeftEarly,
}

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceExcused, AttendanceAbsent, AttendanceReviewed, AttendanceLeftEarly:
		return true
	default:
		return false
	}
}

type AttendanceRecord struct {
	StudentID string           `json:"student_id" db:"student_id" validate:"required"`
	CourseID  string           `json:"course_id" db:"course_id" validate:"required"`
	Date      time.Time        `json:"date" db:"date" validate:"required"`
	Status    AttendanceStatus `json:"status" db:"status" validate:"required"`
}
