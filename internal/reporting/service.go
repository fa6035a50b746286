// Package reporting wires the pure calendar, aggregation and report packages
// to persistence. Every report, on screen or exported, goes through Build.
package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"shomokh-report-engine/internal/aggregate"
	"shomokh-report-engine/internal/attendance"
	"shomokh-report-engine/internal/calendar"
	"shomokh-report-engine/internal/config"
	"shomokh-report-engine/internal/db"
	"shomokh-report-engine/internal/logger"
	"shomokh-report-engine/internal/model"
	"shomokh-report-engine/internal/report"
	"shomokh-report-engine/pkg/errors"
)

type Service struct {
	repo        db.Repository
	cal         *calendar.Calendar
	aggregator  *aggregate.Aggregator
	summarizer  *attendance.Summarizer
	concurrency int
	log         zerolog.Logger
}

func NewService(cfg *config.Config, repo db.Repository, cal *calendar.Calendar) (*Service, error) {
	weights, err := aggregate.WeightsFromConfig(cfg.Grading.Weights)
	if err != nil {
		return nil, err
	}

	log := logger.Component("reporting")
	agg, err := aggregate.New(weights, log)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.Reporting.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	return &Service{
		repo:        repo,
		cal:         cal,
		aggregator:  agg,
		summarizer:  attendance.NewSummarizer(cal, log),
		concurrency: concurrency,
		log:         log,
	}, nil
}

func (s *Service) Calendar() *calendar.Calendar {
	return s.cal
}

// Build aggregates every enrolled (student, course) pair matching f and
// returns the filtered, sorted report rows. A pair whose stored rows fail
// aggregation is reported as NO_DATA with a warning instead of failing the
// cohort.
func (s *Service) Build(ctx context.Context, f report.Filter, srt report.Sort) ([]report.Row, error) {
	start := time.Now()

	roster, err := s.repo.ListCourseRoster(ctx, f.CourseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}

	records := make(map[string]map[string]*model.StudentCourseRecords)
	for _, e := range roster {
		if _, loaded := records[e.Course.ID]; loaded {
			continue
		}
		set, err := s.repo.ListCourseRecords(ctx, e.Course.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load records for course %s: %w", e.Course.ID, err)
		}
		records[e.Course.ID] = set
	}

	entries := make([]report.Entry, len(roster))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, e := range roster {
		i, e := i, e
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			recs := model.StudentCourseRecords{StudentID: e.Student.ID, CourseID: e.Course.ID}
			if stored, ok := records[e.Course.ID][e.Student.ID]; ok {
				recs = *stored
			}
			entries[i] = s.entry(e, recs, f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rows := report.Build(entries, f, srt)
	s.log.Debug().
		Int("pairs", len(roster)).
		Int("rows", len(rows)).
		Dur("duration", time.Since(start)).
		Msg("Report built")
	return rows, nil
}

func (s *Service) entry(e model.RosterEntry, recs model.StudentCourseRecords, f report.Filter) report.Entry {
	summary, err := s.aggregator.Aggregate(e.Student.ID, e.Course.ID, report.FilterRecords(recs, f))
	if err != nil {
		s.log.Warn().Err(err).
			Str("student_id", e.Student.ID).
			Str("course_id", e.Course.ID).
			Msg("Aggregation failed, reporting pair without data")
		summary = aggregate.AcademicSummary{
			StudentID:      e.Student.ID,
			CourseID:       e.Course.ID,
			PerCategory:    map[model.Category]aggregate.CategoryScore{},
			Classification: aggregate.NoData,
			Warnings: []errors.IntegrityWarning{{
				Scope:     "grades",
				StudentID: e.Student.ID,
				CourseID:  e.Course.ID,
				Message:   err.Error(),
			}},
		}
	}

	// the status filter selects students; their summary still counts every status
	dated := report.FilterRecords(recs, report.Filter{Range: f.Range})
	att := s.summarizer.SummarizeStudent(dated.Attendance, f.Range, e.Student.ID)

	return report.Entry{
		Student:    e.Student,
		Course:     e.Course,
		Summary:    summary,
		Attendance: &att,
	}
}

// Export builds the report and lays it out in the requested format.
func (s *Service) Export(ctx context.Context, f report.Filter, srt report.Sort, format report.Format) (report.Table, error) {
	rows, err := s.Build(ctx, f, srt)
	if err != nil {
		return report.Table{}, err
	}
	return report.NewTable(rows, format), nil
}

// StudentSummary aggregates one (student, course) pair after applying the
// date range of f.
func (s *Service) StudentSummary(ctx context.Context, studentID, courseID string, f report.Filter) (aggregate.AcademicSummary, error) {
	recs, err := s.repo.GetStudentCourseRecords(ctx, studentID, courseID)
	if err != nil {
		return aggregate.AcademicSummary{}, err
	}
	return s.aggregator.Aggregate(studentID, courseID, report.FilterRecords(*recs, f))
}

// AttendanceSummary summarizes a course's attendance over r.
func (s *Service) AttendanceSummary(ctx context.Context, courseID string, r calendar.Range) (attendance.Summary, error) {
	enrolled, err := s.repo.ListEnrolledStudentIDs(ctx, courseID)
	if err != nil {
		return attendance.Summary{}, fmt.Errorf("failed to load enrollment: %w", err)
	}
	records, err := s.repo.ListAttendance(ctx, courseID)
	if err != nil {
		return attendance.Summary{}, fmt.Errorf("failed to load attendance: %w", err)
	}
	return s.summarizer.Summarize(records, r, enrolled), nil
}
