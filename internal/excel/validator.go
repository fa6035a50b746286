package excel

import (
	"context"
	goerrors "errors"
	"fmt"
	"time"

	"shomokh-report-engine/internal/calendar"
	"shomokh-report-engine/internal/grading"
	"shomokh-report-engine/internal/model"
	"shomokh-report-engine/pkg/errors"
)

type Validator struct {
	cal *calendar.Calendar
}

func NewValidator(cal *calendar.Calendar) *Validator {
	return &Validator{cal: cal}
}

// Validate rejects the whole sheet on the first illegal value. Grade values
// are checked against their quarter-step domain and dated rows must fall on
// a teaching date.
func (v *Validator) Validate(ctx context.Context, sheet *model.GradeSheet) error {
	if sheet == nil || sheet.Len() == 0 {
		return errors.ErrSchemaValidation
	}

	checks := []error{
		grading.CheckAll(sheet.Daily),
		grading.CheckAll(sheet.Behavior),
		grading.CheckAll(sheet.Points),
		grading.CheckAll(sheet.Weekly),
		grading.CheckAll(sheet.Monthly),
		grading.CheckAll(sheet.Final),
	}
	for _, err := range checks {
		if err != nil {
			return rowOffset(err)
		}
	}

	for i, g := range sheet.Daily {
		if err := v.teachingDate(g.Date, i); err != nil {
			return err
		}
	}
	for i, g := range sheet.Behavior {
		if err := v.teachingDate(g.Date, i); err != nil {
			return err
		}
	}
	for i, p := range sheet.Points {
		if err := v.teachingDate(p.Date, i); err != nil {
			return err
		}
	}

	return ctx.Err()
}

func (v *Validator) teachingDate(d time.Time, index int) error {
	if v.cal == nil || v.cal.IsTeachingDate(d) {
		return nil
	}
	return fmt.Errorf("row %d: %s: %w", index+2, calendar.Key(d), errors.ErrNotTeachingDate)
}

// rowOffset shifts a data-row index to its sheet row, which sits under the
// header.
func rowOffset(err error) error {
	var ve errors.ValidationError
	if goerrors.As(err, &ve) {
		ve.Row++
		return ve
	}
	return err
}
