package db

import (
	"context"
	"fmt"

	"shomokh-report-engine/internal/calendar"
	"shomokh-report-engine/internal/model"
)

// Grade writes are upserts keyed by each table's unique key, so saving the
// same key twice updates the row in place.

const (
	upsertDaily = `INSERT INTO daily_grades (student_id, course_id, date, memorization, review)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE memorization = VALUES(memorization), review = VALUES(review), updated_at = NOW()`

	upsertBehavior = `INSERT INTO behavior_grades (student_id, course_id, date, daily_score)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE daily_score = VALUES(daily_score), updated_at = NOW()`

	upsertPoint = `INSERT INTO behavior_points (student_id, course_id, date,
			early_attendance, perfect_memorization, active_participation, time_commitment)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE early_attendance = VALUES(early_attendance),
			perfect_memorization = VALUES(perfect_memorization),
			active_participation = VALUES(active_participation),
			time_commitment = VALUES(time_commitment), updated_at = NOW()`

	upsertWeekly = `INSERT INTO weekly_grades (student_id, course_id, week, grade)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE grade = VALUES(grade), updated_at = NOW()`

	upsertMonthly = `INSERT INTO monthly_grades (student_id, course_id, month,
			quran_forgetfulness, quran_major_mistakes, quran_minor_mistakes, tajweed_theory)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE quran_forgetfulness = VALUES(quran_forgetfulness),
			quran_major_mistakes = VALUES(quran_major_mistakes),
			quran_minor_mistakes = VALUES(quran_minor_mistakes),
			tajweed_theory = VALUES(tajweed_theory), updated_at = NOW()`

	upsertFinal = `INSERT INTO final_exams (student_id, course_id, quran_test, tajweed_test)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE quran_test = VALUES(quran_test), tajweed_test = VALUES(tajweed_test), updated_at = NOW()`
)

func (r *repository) UpsertDailyGrade(ctx context.Context, g model.DailyGrade) error {
	return upsertDailyGrade(ctx, r.db, g)
}

func (r *repository) UpsertBehaviorGrade(ctx context.Context, g model.BehaviorGrade) error {
	return upsertBehaviorGrade(ctx, r.db, g)
}

func (r *repository) UpsertBehaviorPoint(ctx context.Context, p model.BehaviorPoint) error {
	return upsertBehaviorPoint(ctx, r.db, p)
}

func (r *repository) UpsertWeeklyGrade(ctx context.Context, g model.WeeklyGrade) error {
	return upsertWeeklyGrade(ctx, r.db, g)
}

func (r *repository) UpsertMonthlyGrade(ctx context.Context, g model.MonthlyGrade) error {
	return upsertMonthlyGrade(ctx, r.db, g)
}

func (r *repository) UpsertFinalExam(ctx context.Context, e model.FinalExam) error {
	return upsertFinalExam(ctx, r.db, e)
}

// ImportGradeSheet writes every row of a parsed sheet in one transaction.
func (r *repository) ImportGradeSheet(ctx context.Context, sheet *model.GradeSheet) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, g := range sheet.Daily {
		if err := upsertDailyGrade(ctx, tx, g); err != nil {
			return fmt.Errorf("daily row %d: %w", i+1, err)
		}
	}
	for i, g := range sheet.Behavior {
		if err := upsertBehaviorGrade(ctx, tx, g); err != nil {
			return fmt.Errorf("behavior row %d: %w", i+1, err)
		}
	}
	for i, p := range sheet.Points {
		if err := upsertBehaviorPoint(ctx, tx, p); err != nil {
			return fmt.Errorf("points row %d: %w", i+1, err)
		}
	}
	for i, g := range sheet.Weekly {
		if err := upsertWeeklyGrade(ctx, tx, g); err != nil {
			return fmt.Errorf("weekly row %d: %w", i+1, err)
		}
	}
	for i, g := range sheet.Monthly {
		if err := upsertMonthlyGrade(ctx, tx, g); err != nil {
			return fmt.Errorf("monthly row %d: %w", i+1, err)
		}
	}
	for i, e := range sheet.Final {
		if err := upsertFinalExam(ctx, tx, e); err != nil {
			return fmt.Errorf("final row %d: %w", i+1, err)
		}
	}

	return tx.Commit()
}

// Dates are written as civil date strings so the driver's location never
// shifts them.

func upsertDailyGrade(ctx context.Context, ex execer, g model.DailyGrade) error {
	_, err := ex.ExecContext(ctx, upsertDaily, g.StudentID, g.CourseID, calendar.Key(g.Date), g.Memorization, g.Review)
	return err
}

func upsertBehaviorGrade(ctx context.Context, ex execer, g model.BehaviorGrade) error {
	_, err := ex.ExecContext(ctx, upsertBehavior, g.StudentID, g.CourseID, calendar.Key(g.Date), g.DailyScore)
	return err
}

func upsertBehaviorPoint(ctx context.Context, ex execer, p model.BehaviorPoint) error {
	_, err := ex.ExecContext(ctx, upsertPoint, p.StudentID, p.CourseID, calendar.Key(p.Date),
		p.EarlyAttendance, p.PerfectMemorization, p.ActiveParticipation, p.TimeCommitment)
	return err
}

func upsertWeeklyGrade(ctx context.Context, ex execer, g model.WeeklyGrade) error {
	_, err := ex.ExecContext(ctx, upsertWeekly, g.StudentID, g.CourseID, g.Week, g.Grade)
	return err
}

func upsertMonthlyGrade(ctx context.Context, ex execer, g model.MonthlyGrade) error {
	_, err := ex.ExecContext(ctx, upsertMonthly, g.StudentID, g.CourseID, g.Month,
		g.QuranForgetfulness, g.QuranMajorMistakes, g.QuranMinorMistakes, g.TajweedTheory)
	return err
}

func upsertFinalExam(ctx context.Context, ex execer, e model.FinalExam) error {
	_, err := ex.ExecContext(ctx, upsertFinal, e.StudentID, e.CourseID, e.QuranTest, e.TajweedTest)
	return err
}
