package model

import "time"

type JobStatus string

const (
	JobStatusQueued  JobStatus = "QUEUED"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusDone    JobStatus = "DONE"
	JobStatusFailed  JobStatus = "FAILED"
)

// ImportKind names the grade family held by an uploaded sheet.
type ImportKind string

const (
	ImportDaily    ImportKind = "daily"
	ImportBehavior ImportKind = "behavior"
	ImportPoints   ImportKind = "points"
	ImportWeekly   ImportKind = "weekly"
	ImportMonthly  ImportKind = "monthly"
	ImportFinal    ImportKind = "final"
)

func (k ImportKind) Valid() bool {
	switch k {
	case ImportDaily, ImportBehavior, ImportPoints, ImportWeekly, ImportMonthly, ImportFinal:
		return true
	default:
		return false
	}
}

type ImportJob struct {
	ID           string     `json:"id" db:"id"`
	CourseID     string     `json:"course_id" db:"course_id"`
	Kind         ImportKind `json:"kind" db:"kind"`
	S3Path       string     `json:"s3_path" db:"s3_path"`
	Status       JobStatus  `json:"status" db:"status"`
	RowCount     int        `json:"row_count" db:"row_count"`
	ErrorMessage *string    `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

type ExportJob struct {
	ID           string      `json:"id" db:"id"`
	Query        ReportQuery `json:"query" db:"query"`
	Format       string      `json:"format" db:"format"`
	FileType     string      `json:"file_type" db:"file_type"`
	Status       JobStatus   `json:"status" db:"status"`
	S3Key        string      `json:"s3_key,omitempty" db:"s3_key"`
	RowCount     int         `json:"row_count" db:"row_count"`
	WarningCount int         `json:"warning_count" db:"warning_count"`
	ErrorMessage *string     `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"`
}

// GradeSheet is the parsed content of one uploaded grade sheet. Only the
// slice matching Kind is populated, except that a daily sheet may also fill
// Behavior.
type GradeSheet struct {
	Kind     ImportKind      `json:"kind"`
	CourseID string          `json:"course_id"`
	Daily    []DailyGrade    `json:"daily,omitempty"`
	Behavior []BehaviorGrade `json:"behavior,omitempty"`
	Points   []BehaviorPoint `json:"points,omitempty"`
	Weekly   []WeeklyGrade   `json:"weekly,omitempty"`
	Monthly  []MonthlyGrade  `json:"monthly,omitempty"`
	Final    []FinalExam     `json:"final,omitempty"`
}

func (s *GradeSheet) Len() int {
	return len(s.Daily) + len(s.Behavior) + len(s.Points) + len(s.Weekly) + len(s.Monthly) + len(s.Final)
}
