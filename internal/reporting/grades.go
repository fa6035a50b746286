package reporting

import (
	"context"
	"fmt"
	"time"

	"shomokh-report-engine/internal/calendar"
	"shomokh-report-engine/internal/grading"
	"shomokh-report-engine/internal/model"
	"shomokh-report-engine/pkg/errors"
)

// The Save methods are the write boundary for single grade rows: values
// outside their quarter-step domain and dated rows off the teaching calendar
// are rejected before anything is stored.

func (s *Service) SaveDailyGrade(ctx context.Context, g model.DailyGrade) error {
	if err := s.admit(g, g.Date); err != nil {
		return err
	}
	return s.repo.UpsertDailyGrade(ctx, g)
}

func (s *Service) SaveBehaviorGrade(ctx context.Context, g model.BehaviorGrade) error {
	if err := s.admit(g, g.Date); err != nil {
		return err
	}
	return s.repo.UpsertBehaviorGrade(ctx, g)
}

func (s *Service) SaveBehaviorPoint(ctx context.Context, p model.BehaviorPoint) error {
	if err := s.admit(p, p.Date); err != nil {
		return err
	}
	return s.repo.UpsertBehaviorPoint(ctx, p)
}

func (s *Service) SaveWeeklyGrade(ctx context.Context, g model.WeeklyGrade) error {
	if err := s.admit(g, time.Time{}); err != nil {
		return err
	}
	return s.repo.UpsertWeeklyGrade(ctx, g)
}

func (s *Service) SaveMonthlyGrade(ctx context.Context, g model.MonthlyGrade) error {
	if err := s.admit(g, time.Time{}); err != nil {
		return err
	}
	return s.repo.UpsertMonthlyGrade(ctx, g)
}

func (s *Service) SaveFinalExam(ctx context.Context, e model.FinalExam) error {
	if err := s.admit(e, time.Time{}); err != nil {
		return err
	}
	return s.repo.UpsertFinalExam(ctx, e)
}

// admit validates row and, unless date is zero, requires a teaching date.
func (s *Service) admit(row interface{}, date time.Time) error {
	if err := grading.Check(row); err != nil {
		return err
	}
	if !date.IsZero() && !s.cal.IsTeachingDate(date) {
		return fmt.Errorf("%s: %w", calendar.Key(date), errors.ErrNotTeachingDate)
	}
	return nil
}
