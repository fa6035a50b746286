package grading

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "shomokh-report-engine/pkg/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// report json names so errors match what clients sent
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// grade=<max>: a quarter-point value in [0, max]
	if err := v.RegisterValidation("grade", func(fl validator.FieldLevel) bool {
		max, err := strconv.ParseFloat(fl.Param(), 64)
		if err != nil {
			return false
		}
		switch fl.Field().Kind() {
		case reflect.Float32, reflect.Float64:
			return Validate(fl.Field().Float(), 0, max)
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return Validate(float64(fl.Field().Int()), 0, max)
		default:
			return false
		}
	}); err != nil {
		panic(err)
	}

	return v
}

// Check validates a tagged grade model. The first failing field is returned
// as a ValidationError, which unwraps to ErrInvalidGradeValue. Values are
// never clamped or rounded.
func Check(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("failed to validate %T: %w", v, err)
	}

	fe := verrs[0]
	return pkgerrors.ValidationError{
		Field:   fe.Field(),
		Value:   fe.Value(),
		Message: message(fe),
	}
}

// CheckAll validates every element of a slice of grade models, numbering
// rows from 1.
func CheckAll[T any](rows []T) error {
	for i := range rows {
		if err := Check(&rows[i]); err != nil {
			var ve pkgerrors.ValidationError
			if errors.As(err, &ve) {
				ve.Row = i + 1
				return ve
			}
			return err
		}
	}
	return nil
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "grade":
		return fmt.Sprintf("must be a multiple of %.2f between 0 and %s", Step, fe.Param())
	case "required":
		return "is required"
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	default:
		return "failed on " + fe.Tag()
	}
}
