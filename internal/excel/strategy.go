package excel

import (
	"context"

	"shomokh-report-engine/internal/calendar"
	"shomokh-report-engine/internal/model"
)

type ParsingStrategy interface {
	Parse(ctx context.Context, data []byte, kind model.ImportKind, courseID string, numbers map[int]string) (*model.GradeSheet, error)
	Validate(ctx context.Context, sheet *model.GradeSheet) error
}

type ExcelStrategy struct {
	parser    *Parser
	validator *Validator
}

func NewExcelStrategy(cal *calendar.Calendar) ParsingStrategy {
	return &ExcelStrategy{
		parser:    NewParser(cal),
		validator: NewValidator(cal),
	}
}

func (s *ExcelStrategy) Parse(ctx context.Context, data []byte, kind model.ImportKind, courseID string, numbers map[int]string) (*model.GradeSheet, error) {
	return s.parser.Parse(ctx, data, kind, courseID, numbers)
}

func (s *ExcelStrategy) Validate(ctx context.Context, sheet *model.GradeSheet) error {
	return s.validator.Validate(ctx, sheet)
}
