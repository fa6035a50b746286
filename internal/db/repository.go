package db

import (
	"context"
	"database/sql"
	"fmt"

	"shomokh-report-engine/internal/model"
)

type Repository interface {
	ListCourseIDs(ctx context.Context) ([]string, error)
	ListCourseRoster(ctx context.Context, courseID string) ([]model.RosterEntry, error)
	ListEnrolledStudentIDs(ctx context.Context, courseID string) ([]string, error)
	ListAttendance(ctx context.Context, courseID string) ([]model.AttendanceRecord, error)
	ListCourseRecords(ctx context.Context, courseID string) (map[string]*model.StudentCourseRecords, error)
	GetStudentCourseRecords(ctx context.Context, studentID, courseID string) (*model.StudentCourseRecords, error)

	UpsertDailyGrade(ctx context.Context, g model.DailyGrade) error
	UpsertBehaviorGrade(ctx context.Context, g model.BehaviorGrade) error
	UpsertBehaviorPoint(ctx context.Context, p model.BehaviorPoint) error
	UpsertWeeklyGrade(ctx context.Context, g model.WeeklyGrade) error
	UpsertMonthlyGrade(ctx context.Context, g model.MonthlyGrade) error
	UpsertFinalExam(ctx context.Context, e model.FinalExam) error
	ImportGradeSheet(ctx context.Context, sheet *model.GradeSheet) error

	CreateImportJob(ctx context.Context, job *model.ImportJob) error
	UpdateImportJob(ctx context.Context, id string, status model.JobStatus, rowCount int, errorMessage *string) error
	GetImportJob(ctx context.Context, id string) (*model.ImportJob, error)
	CreateExportJob(ctx context.Context, job *model.ExportJob) error
	UpdateExportJob(ctx context.Context, job *model.ExportJob) error
	GetExportJob(ctx context.Context, id string) (*model.ExportJob, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListCourseIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM courses ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListCourseRoster returns the active enrollments of a course, or of every
// course when courseID is empty, ordered by course and student number.
func (r *repository) ListCourseRoster(ctx context.Context, courseID string) ([]model.RosterEntry, error) {
	query := `SELECT s.id, s.number, s.name, COALESCE(s.phone, ''), COALESCE(s.email, ''), s.payment_status, s.is_active,
			c.id, c.name, c.level, c.max_students, c.program_id, c.teacher_id,
			e.enrolled_at, e.is_active
		FROM enrollments e
		JOIN students s ON s.id = e.student_id
		JOIN courses c ON c.id = e.course_id
		WHERE e.is_active = 1 AND (? = '' OR e.course_id = ?)
		ORDER BY c.id, s.number`

	rows, err := r.db.QueryContext(ctx, query, courseID, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roster []model.RosterEntry
	for rows.Next() {
		var e model.RosterEntry
		err := rows.Scan(
			&e.Student.ID, &e.Student.Number, &e.Student.Name, &e.Student.Phone, &e.Student.Email,
			&e.Student.PaymentStatus, &e.Student.IsActive,
			&e.Course.ID, &e.Course.Name, &e.Course.Level, &e.Course.MaxStudents,
			&e.Course.ProgramID, &e.Course.TeacherID,
			&e.Enrollment.EnrolledAt, &e.Enrollment.IsActive,
		)
		if err != nil {
			return nil, err
		}
		e.Enrollment.StudentID = e.Student.ID
		e.Enrollment.CourseID = e.Course.ID
		roster = append(roster, e)
	}
	return roster, rows.Err()
}

func (r *repository) ListEnrolledStudentIDs(ctx context.Context, courseID string) ([]string, error) {
	query := `SELECT student_id FROM enrollments WHERE course_id = ? AND is_active = 1 ORDER BY student_id`

	rows, err := r.db.QueryContext(ctx, query, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *repository) ListAttendance(ctx context.Context, courseID string) ([]model.AttendanceRecord, error) {
	set := make(map[string]*model.StudentCourseRecords)
	if err := r.loadAttendance(ctx, set, `course_id = ?`, courseID); err != nil {
		return nil, err
	}

	var out []model.AttendanceRecord
	for _, recs := range set {
		out = append(out, recs.Attendance...)
	}
	return out, nil
}

// ListCourseRecords loads every record set of a course keyed by student id.
// The sets are complete and unfiltered.
func (r *repository) ListCourseRecords(ctx context.Context, courseID string) (map[string]*model.StudentCourseRecords, error) {
	set := make(map[string]*model.StudentCourseRecords)
	if err := r.loadRecords(ctx, set, `course_id = ?`, courseID); err != nil {
		return nil, fmt.Errorf("failed to load records for course %s: %w", courseID, err)
	}
	return set, nil
}

func (r *repository) GetStudentCourseRecords(ctx context.Context, studentID, courseID string) (*model.StudentCourseRecords, error) {
	set := make(map[string]*model.StudentCourseRecords)
	if err := r.loadRecords(ctx, set, `course_id = ? AND student_id = ?`, courseID, studentID); err != nil {
		return nil, fmt.Errorf("failed to load records for student %s course %s: %w", studentID, courseID, err)
	}
	if recs, ok := set[studentID]; ok {
		return recs, nil
	}
	return &model.StudentCourseRecords{StudentID: studentID, CourseID: courseID}, nil
}

func (r *repository) loadRecords(ctx context.Context, set map[string]*model.StudentCourseRecords, where string, args ...interface{}) error {
	loaders := []func(context.Context, map[string]*model.StudentCourseRecords, string, ...interface{}) error{
		r.loadAttendance,
		r.loadDaily,
		r.loadBehavior,
		r.loadPoints,
		r.loadWeekly,
		r.loadMonthly,
		r.loadFinal,
	}
	for _, load := range loaders {
		if err := load(ctx, set, where, args...); err != nil {
			return err
		}
	}
	return nil
}

func entry(set map[string]*model.StudentCourseRecords, studentID, courseID string) *model.StudentCourseRecords {
	recs, ok := set[studentID]
	if !ok {
		recs = &model.StudentCourseRecords{StudentID: studentID, CourseID: courseID}
		set[studentID] = recs
	}
	return recs
}

func (r *repository) loadAttendance(ctx context.Context, set map[string]*model.StudentCourseRecords, where string, args ...interface{}) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT student_id, course_id, date, status FROM attendance_records WHERE `+where+` ORDER BY student_id, date`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var a model.AttendanceRecord
		if err := rows.Scan(&a.StudentID, &a.CourseID, &a.Date, &a.Status); err != nil {
			return err
		}
		recs := entry(set, a.StudentID, a.CourseID)
		recs.Attendance = append(recs.Attendance, a)
	}
	return rows.Err()
}

func (r *repository) loadDaily(ctx context.Context, set map[string]*model.StudentCourseRecords, where string, args ...interface{}) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT student_id, course_id, date, memorization, review FROM daily_grades WHERE `+where+` ORDER BY student_id, date`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var g model.DailyGrade
		if err := rows.Scan(&g.StudentID, &g.CourseID, &g.Date, &g.Memorization, &g.Review); err != nil {
			return err
		}
		recs := entry(set, g.StudentID, g.CourseID)
		recs.Daily = append(recs.Daily, g)
	}
	return rows.Err()
}

func (r *repository) loadBehavior(ctx context.Context, set map[string]*model.StudentCourseRecords, where string, args ...interface{}) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT student_id, course_id, date, daily_score FROM behavior_grades WHERE `+where+` ORDER BY student_id, date`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var g model.BehaviorGrade
		if err := rows.Scan(&g.StudentID, &g.CourseID, &g.Date, &g.DailyScore); err != nil {
			return err
		}
		recs := entry(set, g.StudentID, g.CourseID)
		recs.Behavior = append(recs.Behavior, g)
	}
	return rows.Err()
}

func (r *repository) loadPoints(ctx context.Context, set map[string]*model.StudentCourseRecords, where string, args ...interface{}) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT student_id, course_id, date, early_attendance, perfect_memorization, active_participation, time_commitment
		FROM behavior_points WHERE `+where+` ORDER BY student_id, date`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var p model.BehaviorPoint
		err := rows.Scan(&p.StudentID, &p.CourseID, &p.Date,
			&p.EarlyAttendance, &p.PerfectMemorization, &p.ActiveParticipation, &p.TimeCommitment)
		if err != nil {
			return err
		}
		recs := entry(set, p.StudentID, p.CourseID)
		recs.Points = append(recs.Points, p)
	}
	return rows.Err()
}

func (r *repository) loadWeekly(ctx context.Context, set map[string]*model.StudentCourseRecords, where string, args ...interface{}) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT student_id, course_id, week, grade FROM weekly_grades WHERE `+where+` ORDER BY student_id, week`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var g model.WeeklyGrade
		if err := rows.Scan(&g.StudentID, &g.CourseID, &g.Week, &g.Grade); err != nil {
			return err
		}
		recs := entry(set, g.StudentID, g.CourseID)
		recs.Weekly = append(recs.Weekly, g)
	}
	return rows.Err()
}

func (r *repository) loadMonthly(ctx context.Context, set map[string]*model.StudentCourseRecords, where string, args ...interface{}) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT student_id, course_id, month, quran_forgetfulness, quran_major_mistakes, quran_minor_mistakes, tajweed_theory
		FROM monthly_grades WHERE `+where+` ORDER BY student_id, month`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var g model.MonthlyGrade
		err := rows.Scan(&g.StudentID, &g.CourseID, &g.Month,
			&g.QuranForgetfulness, &g.QuranMajorMistakes, &g.QuranMinorMistakes, &g.TajweedTheory)
		if err != nil {
			return err
		}
		recs := entry(set, g.StudentID, g.CourseID)
		recs.Monthly = append(recs.Monthly, g)
	}
	return rows.Err()
}

func (r *repository) loadFinal(ctx context.Context, set map[string]*model.StudentCourseRecords, where string, args ...interface{}) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT student_id, course_id, quran_test, tajweed_test FROM final_exams WHERE `+where+` ORDER BY student_id`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var e model.FinalExam
		if err := rows.Scan(&e.StudentID, &e.CourseID, &e.QuranTest, &e.TajweedTest); err != nil {
			return err
		}
		recs := entry(set, e.StudentID, e.CourseID)
		recs.Final = &e
	}
	return rows.Err()
}
