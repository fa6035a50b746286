// Package dbtest provides an in-memory db.Repository for tests.
package dbtest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"shomokh-report-engine/internal/calendar"
	"shomokh-report-engine/internal/db"
	"shomokh-report-engine/internal/model"
	"shomokh-report-engine/pkg/errors"
)

var _ db.Repository = (*Repository)(nil)

// Repository keeps rows in maps keyed like the MySQL unique keys, so
// upserts replace rows the same way ON DUPLICATE KEY UPDATE does.
type Repository struct {
	mu sync.Mutex

	Roster     []model.RosterEntry
	Attendance []model.AttendanceRecord

	daily    map[string]model.DailyGrade
	behavior map[string]model.BehaviorGrade
	points   map[string]model.BehaviorPoint
	weekly   map[string]model.WeeklyGrade
	monthly  map[string]model.MonthlyGrade
	final    map[string]model.FinalExam

	ImportJobs map[string]*model.ImportJob
	ExportJobs map[string]*model.ExportJob

	// Err, when set, is returned by every read.
	Err error
}

func New() *Repository {
	return &Repository{
		daily:      make(map[string]model.DailyGrade),
		behavior:   make(map[string]model.BehaviorGrade),
		points:     make(map[string]model.BehaviorPoint),
		weekly:     make(map[string]model.WeeklyGrade),
		monthly:    make(map[string]model.MonthlyGrade),
		final:      make(map[string]model.FinalExam),
		ImportJobs: make(map[string]*model.ImportJob),
		ExportJobs: make(map[string]*model.ExportJob),
	}
}

// Enroll adds a roster entry.
func (r *Repository) Enroll(student model.Student, course model.Course) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Roster = append(r.Roster, model.RosterEntry{
		Student:    student,
		Course:     course,
		Enrollment: model.Enrollment{StudentID: student.ID, CourseID: course.ID, IsActive: true},
	})
}

func pair(studentID, courseID string) string {
	return studentID + "|" + courseID
}

func (r *Repository) ListCourseIDs(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}

	seen := make(map[string]bool)
	var ids []string
	for _, e := range r.Roster {
		if !seen[e.Course.ID] {
			seen[e.Course.ID] = true
			ids = append(ids, e.Course.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *Repository) ListCourseRoster(ctx context.Context, courseID string) ([]model.RosterEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}

	var out []model.RosterEntry
	for _, e := range r.Roster {
		if courseID == "" || e.Course.ID == courseID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Course.ID != out[j].Course.ID {
			return out[i].Course.ID < out[j].Course.ID
		}
		return out[i].Student.Number < out[j].Student.Number
	})
	return out, nil
}

func (r *Repository) ListEnrolledStudentIDs(ctx context.Context, courseID string) ([]string, error) {
	roster, err := r.ListCourseRoster(ctx, courseID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(roster))
	for _, e := range roster {
		ids = append(ids, e.Student.ID)
	}
	return ids, nil
}

func (r *Repository) ListAttendance(ctx context.Context, courseID string) ([]model.AttendanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}

	var out []model.AttendanceRecord
	for _, a := range r.Attendance {
		if a.CourseID == courseID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *Repository) ListCourseRecords(ctx context.Context, courseID string) (map[string]*model.StudentCourseRecords, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}

	set := make(map[string]*model.StudentCourseRecords)
	get := func(studentID string) *model.StudentCourseRecords {
		recs, ok := set[studentID]
		if !ok {
			recs = &model.StudentCourseRecords{StudentID: studentID, CourseID: courseID}
			set[studentID] = recs
		}
		return recs
	}

	for _, a := range r.Attendance {
		if a.CourseID == courseID {
			get(a.StudentID).Attendance = append(get(a.StudentID).Attendance, a)
		}
	}
	for _, k := range sortedKeys(r.daily) {
		if g := r.daily[k]; g.CourseID == courseID {
			get(g.StudentID).Daily = append(get(g.StudentID).Daily, g)
		}
	}
	for _, k := range sortedKeys(r.behavior) {
		if g := r.behavior[k]; g.CourseID == courseID {
			get(g.StudentID).Behavior = append(get(g.StudentID).Behavior, g)
		}
	}
	for _, k := range sortedKeys(r.points) {
		if p := r.points[k]; p.CourseID == courseID {
			get(p.StudentID).Points = append(get(p.StudentID).Points, p)
		}
	}
	for _, k := range sortedKeys(r.weekly) {
		if g := r.weekly[k]; g.CourseID == courseID {
			get(g.StudentID).Weekly = append(get(g.StudentID).Weekly, g)
		}
	}
	for _, k := range sortedKeys(r.monthly) {
		if g := r.monthly[k]; g.CourseID == courseID {
			get(g.StudentID).Monthly = append(get(g.StudentID).Monthly, g)
		}
	}
	for _, k := range sortedKeys(r.final) {
		if e := r.final[k]; e.CourseID == courseID {
			exam := e
			get(e.StudentID).Final = &exam
		}
	}
	return set, nil
}

func (r *Repository) GetStudentCourseRecords(ctx context.Context, studentID, courseID string) (*model.StudentCourseRecords, error) {
	set, err := r.ListCourseRecords(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if recs, ok := set[studentID]; ok {
		return recs, nil
	}
	return &model.StudentCourseRecords{StudentID: studentID, CourseID: courseID}, nil
}

func (r *Repository) UpsertDailyGrade(ctx context.Context, g model.DailyGrade) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.daily[pair(g.StudentID, g.CourseID)+"|"+calendar.Key(g.Date)] = g
	return nil
}

func (r *Repository) UpsertBehaviorGrade(ctx context.Context, g model.BehaviorGrade) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.behavior[pair(g.StudentID, g.CourseID)+"|"+calendar.Key(g.Date)] = g
	return nil
}

func (r *Repository) UpsertBehaviorPoint(ctx context.Context, p model.BehaviorPoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.points[pair(p.StudentID, p.CourseID)+"|"+calendar.Key(p.Date)] = p
	return nil
}

func (r *Repository) UpsertWeeklyGrade(ctx context.Context, g model.WeeklyGrade) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.weekly[fmt.Sprintf("%s|%02d", pair(g.StudentID, g.CourseID), g.Week)] = g
	return nil
}

func (r *Repository) UpsertMonthlyGrade(ctx context.Context, g model.MonthlyGrade) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.monthly[fmt.Sprintf("%s|%d", pair(g.StudentID, g.CourseID), g.Month)] = g
	return nil
}

func (r *Repository) UpsertFinalExam(ctx context.Context, e model.FinalExam) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.final[pair(e.StudentID, e.CourseID)] = e
	return nil
}

func (r *Repository) ImportGradeSheet(ctx context.Context, sheet *model.GradeSheet) error {
	for _, g := range sheet.Daily {
		r.UpsertDailyGrade(ctx, g)
	}
	for _, g := range sheet.Behavior {
		r.UpsertBehaviorGrade(ctx, g)
	}
	for _, p := range sheet.Points {
		r.UpsertBehaviorPoint(ctx, p)
	}
	for _, g := range sheet.Weekly {
		r.UpsertWeeklyGrade(ctx, g)
	}
	for _, g := range sheet.Monthly {
		r.UpsertMonthlyGrade(ctx, g)
	}
	for _, e := range sheet.Final {
		r.UpsertFinalExam(ctx, e)
	}
	return nil
}

func (r *Repository) CreateImportJob(ctx context.Context, job *model.ImportJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *job
	r.ImportJobs[job.ID] = &stored
	return nil
}

func (r *Repository) UpdateImportJob(ctx context.Context, id string, status model.JobStatus, rowCount int, errorMessage *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.ImportJobs[id]
	if !ok {
		return fmt.Errorf("import job %s: %w", id, errors.ErrNotFound)
	}
	job.Status = status
	job.RowCount = rowCount
	job.ErrorMessage = errorMessage
	return nil
}

func (r *Repository) GetImportJob(ctx context.Context, id string) (*model.ImportJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.ImportJobs[id]
	if !ok {
		return nil, fmt.Errorf("import job %s: %w", id, errors.ErrNotFound)
	}
	out := *job
	return &out, nil
}

func (r *Repository) CreateExportJob(ctx context.Context, job *model.ExportJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *job
	r.ExportJobs[job.ID] = &stored
	return nil
}

func (r *Repository) UpdateExportJob(ctx context.Context, job *model.ExportJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ExportJobs[job.ID]; !ok {
		return fmt.Errorf("export job %s: %w", job.ID, errors.ErrNotFound)
	}
	stored := *job
	r.ExportJobs[job.ID] = &stored
	return nil
}

func (r *Repository) GetExportJob(ctx context.Context, id string) (*model.ExportJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.ExportJobs[id]
	if !ok {
		return nil, fmt.Errorf("export job %s: %w", id, errors.ErrNotFound)
	}
	out := *job
	return &out, nil
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
