package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidFileFormat    = errors.New("invalid file format")
	ErrSchemaValidation     = errors.New("schema validation failed")
	ErrInvalidGradeValue    = errors.New("invalid grade value")
	ErrNotTeachingDate      = errors.New("date is not a teaching date")
	ErrInvalidWeights       = errors.New("category weights must sum to 100")
	ErrUnknownExportFormat  = errors.New("unknown export format")
	ErrUnknownExportType    = errors.New("unknown export file type")
	ErrUnknownSortField     = errors.New("unknown sort field")
	ErrUnknownImportKind    = errors.New("unknown import kind")
	ErrInvalidAttendanceKey = errors.New("invalid attendance status")
)

// ValidationError reports a rejected field value. It unwraps to
// ErrInvalidGradeValue so callers can test with errors.Is.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
	Row     int
}

func (e ValidationError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d: validation failed for field '%s' with value '%v': %s",
			e.Row, e.Field, e.Value, e.Message)
	}
	return fmt.Sprintf("validation failed for field '%s' with value '%v': %s",
		e.Field, e.Value, e.Message)
}

func (e ValidationError) Unwrap() error {
	return ErrInvalidGradeValue
}

// IntegrityWarning is attached to summaries when derived values are
// inconsistent with the inputs. It never aborts a report.
type IntegrityWarning struct {
	Scope     string `json:"scope"`
	StudentID string `json:"student_id,omitempty"`
	CourseID  string `json:"course_id,omitempty"`
	Message   string `json:"message"`
}

func (w IntegrityWarning) Error() string {
	if w.StudentID != "" {
		return fmt.Sprintf("integrity warning [%s] student %s course %s: %s",
			w.Scope, w.StudentID, w.CourseID, w.Message)
	}
	return fmt.Sprintf("integrity warning [%s] course %s: %s", w.Scope, w.CourseID, w.Message)
}

func (w IntegrityWarning) String() string {
	return w.Error()
}

type RetryableError struct {
	Err     error
	Message string
}

func (e RetryableError) Error() string {
	return fmt.Sprintf("retryable error: %s - %s", e.Message, e.Err.Error())
}

func (e RetryableError) Unwrap() error {
	return e.Err
}

func NewRetryableError(err error, message string) error {
	return RetryableError{
		Err:     err,
		Message: message,
	}
}

func IsRetryable(err error) bool {
	var re RetryableError
	return errors.As(err, &re)
}
