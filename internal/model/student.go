package model

import "time"

type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "PAID"
	PaymentPartial PaymentStatus = "PARTIAL"
	PaymentUnpaid  PaymentStatus = "UNPAID"
)

type Student struct {
	ID            string        `json:"id" db:"id"`
	Number        int           `json:"number" db:"student_number"`
	Name          string        `json:"name" db:"name"`
	Phone         string        `json:"phone" db:"phone"`
	Email         string        `json:"email,omitempty" db:"email"`
	PaymentStatus PaymentStatus `json:"payment_status" db:"payment_status"`
	IsActive      bool          `json:"is_active" db:"is_active"`
}

type Course struct {
	ID          string `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Level       string `json:"level" db:"level"`
	MaxStudents int    `json:"max_students" db:"max_students"`
	ProgramID   string `json:"program_id" db:"program_id"`
	TeacherID   string `json:"teacher_id" db:"teacher_id"`
}

type Enrollment struct {
	StudentID  string    `json:"student_id" db:"student_id"`
	CourseID   string    `json:"course_id" db:"course_id"`
	EnrolledAt time.Time `json:"enrolled_at" db:"enrolled_at"`
	IsActive   bool      `json:"is_active" db:"is_active"`
}

// RosterEntry is one enrolled (student, course) pair with its identity data.
type RosterEntry struct {
	Student    Student    `json:"student"`
	Course     Course     `json:"course"`
	Enrollment Enrollment `json:"enrollment"`
}
