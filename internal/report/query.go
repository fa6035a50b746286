package report

import (
	"fmt"
	"strings"

	"shomokh-report-engine/internal/aggregate"
	"shomokh-report-engine/internal/calendar"
	"shomokh-report-engine/internal/model"
	"shomokh-report-engine/pkg/errors"
)

// ParseQuery turns wire query parameters into a filter and sort. Dates are
// read in the calendar's location. The default order is by student number.
func ParseQuery(q model.ReportQuery, cal *calendar.Calendar) (Filter, Sort, error) {
	f := Filter{
		CourseID:      strings.TrimSpace(q.CourseID),
		Search:        strings.TrimSpace(q.Search),
		MinPercentage: q.MinPercentage,
	}

	if q.DateFrom != "" {
		d, err := cal.ParseDate(q.DateFrom)
		if err != nil {
			return Filter{}, Sort{}, fmt.Errorf("invalid date_from %q: %w", q.DateFrom, errors.ErrSchemaValidation)
		}
		f.Range.From = d
	}
	if q.DateTo != "" {
		d, err := cal.ParseDate(q.DateTo)
		if err != nil {
			return Filter{}, Sort{}, fmt.Errorf("invalid date_to %q: %w", q.DateTo, errors.ErrSchemaValidation)
		}
		f.Range.To = d
	}
	if !f.Range.From.IsZero() && !f.Range.To.IsZero() && f.Range.From.After(f.Range.To) {
		return Filter{}, Sort{}, fmt.Errorf("date_from is after date_to: %w", errors.ErrSchemaValidation)
	}

	if q.Status != "" {
		st := model.AttendanceStatus(strings.ToUpper(strings.TrimSpace(q.Status)))
		if !st.Valid() {
			return Filter{}, Sort{}, fmt.Errorf("%q: %w", q.Status, errors.ErrInvalidAttendanceKey)
		}
		f.Status = st
	}

	if q.Classification != "" {
		c := aggregate.Classification(strings.ToUpper(strings.TrimSpace(q.Classification)))
		switch c {
		case aggregate.Excellent, aggregate.VeryGood, aggregate.Good, aggregate.NeedsImprovement, aggregate.NoData:
			f.Classification = c
		default:
			return Filter{}, Sort{}, fmt.Errorf("unknown classification %q: %w", q.Classification, errors.ErrSchemaValidation)
		}
	}

	s := Sort{Field: SortStudentNumber}
	if q.SortBy != "" {
		field, ok := parseSortField(q.SortBy)
		if !ok {
			return Filter{}, Sort{}, fmt.Errorf("%q: %w", q.SortBy, errors.ErrUnknownSortField)
		}
		s.Field = field
	}
	switch strings.ToLower(strings.TrimSpace(q.Order)) {
	case "", "asc":
	case "desc":
		s.Descending = true
	default:
		return Filter{}, Sort{}, fmt.Errorf("invalid order %q: %w", q.Order, errors.ErrSchemaValidation)
	}

	return f, s, nil
}

func parseSortField(s string) (SortField, bool) {
	s = strings.TrimSpace(s)
	for _, f := range SortFields {
		if strings.EqualFold(s, string(f)) {
			return f, true
		}
	}
	// snake_case aliases used by query strings
	switch strings.ToLower(s) {
	case "student_name":
		return SortStudentName, true
	case "student_number":
		return SortStudentNumber, true
	}
	return "", false
}
