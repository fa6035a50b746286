package worker

import (
	"context"
	"fmt"
	"time"

	"shomokh-report-engine/internal/calendar"
	"shomokh-report-engine/internal/config"
	"shomokh-report-engine/internal/db"
	"shomokh-report-engine/internal/logger"
	"shomokh-report-engine/internal/model"
	"shomokh-report-engine/internal/reporting"

	"github.com/rs/zerolog"
)

type ExportEnqueuer interface {
	EnqueueExport(ctx context.Context, msg model.ExportMessage) error
}

// SnapshotWorker queues a daily cohort report export for every course
// taught that day.
type SnapshotWorker struct {
	cfg      *config.Config
	repo     db.Repository
	service  *reporting.Service
	producer ExportEnqueuer
	timer    *time.Timer
	now      func() time.Time
	log      zerolog.Logger
}

func NewSnapshotWorker(
	cfg *config.Config,
	repo db.Repository,
	service *reporting.Service,
	producer ExportEnqueuer,
) *SnapshotWorker {
	return &SnapshotWorker{
		cfg:      cfg,
		repo:     repo,
		service:  service,
		producer: producer,
		now:      time.Now,
		log:      logger.Component("snapshot"),
	}
}

func (w *SnapshotWorker) Start(ctx context.Context) error {
	w.log.Info().Msg("Starting snapshot worker")

	nextRun, err := w.nextRunTime(w.now())
	if err != nil {
		return err
	}
	w.log.Info().Time("next_run", nextRun).Msg("Scheduled next snapshot")

	if w.cfg.Workers.Snapshot.RunOnStart {
		w.log.Info().Msg("Running initial snapshot on startup")
		if _, err := w.snapshot(ctx); err != nil {
			w.log.Error().Err(err).Msg("Initial snapshot failed")
		}
	}

	w.timer = time.NewTimer(time.Until(nextRun))

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Snapshot worker context cancelled")
			return ctx.Err()
		case <-w.timer.C:
			w.log.Info().Msg("Starting scheduled snapshot")
			if _, err := w.snapshot(ctx); err != nil {
				w.log.Error().Err(err).Msg("Scheduled snapshot failed")
			}

			nextRun, err = w.nextRunTime(w.now())
			if err != nil {
				return err
			}
			w.log.Info().Time("next_run", nextRun).Msg("Scheduled next snapshot")
			w.timer.Reset(time.Until(nextRun))
		}
	}
}

func (w *SnapshotWorker) Stop() {
	w.log.Info().Msg("Stopping snapshot worker")
	if w.timer != nil {
		w.timer.Stop()
	}
}

// nextRunTime returns the next run_at wall-clock time after now in the
// calendar's timezone.
func (w *SnapshotWorker) nextRunTime(now time.Time) (time.Time, error) {
	at, err := time.Parse("15:04", w.cfg.Workers.Snapshot.RunAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid snapshot run_at %q: %w", w.cfg.Workers.Snapshot.RunAt, err)
	}

	local := now.In(w.service.Calendar().Location)
	next := time.Date(local.Year(), local.Month(), local.Day(), at.Hour(), at.Minute(), 0, 0, local.Location())
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next, nil
}

// snapshot creates and enqueues one export job per course and configured
// format, covering the semester up to today. Nothing is queued on a
// non-teaching day. It returns the number of jobs queued.
func (w *SnapshotWorker) snapshot(ctx context.Context) (int, error) {
	startTime := time.Now()
	cal := w.service.Calendar()
	today := w.now().In(cal.Location)

	if !cal.IsTeachingDate(today) {
		w.log.Info().Str("date", calendar.Key(today)).Msg("Not a teaching date, skipping snapshot")
		return 0, nil
	}

	courseIDs, err := w.repo.ListCourseIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list courses: %w", err)
	}

	var queued int
	var hasErrors bool
	for _, courseID := range courseIDs {
		for _, format := range w.cfg.Workers.Snapshot.Formats {
			if err := w.enqueue(ctx, courseID, format, today); err != nil {
				w.log.Error().Err(err).Str("course_id", courseID).Str("format", format).Msg("Failed to queue snapshot export")
				hasErrors = true
				continue
			}
			queued++
		}
	}

	w.log.Info().
		Dur("duration", time.Since(startTime)).
		Int("courses", len(courseIDs)).
		Int("jobs", queued).
		Bool("has_errors", hasErrors).
		Msg("Snapshot completed")

	if hasErrors {
		return queued, fmt.Errorf("snapshot queued %d jobs with errors", queued)
	}
	return queued, nil
}

func (w *SnapshotWorker) enqueue(ctx context.Context, courseID, format string, today time.Time) error {
	q := model.ReportQuery{CourseID: courseID, DateTo: calendar.Key(today)}
	job, err := w.service.NewExportJob(q, format, w.cfg.Workers.Snapshot.FileType)
	if err != nil {
		return err
	}
	if err := w.repo.CreateExportJob(ctx, job); err != nil {
		return err
	}
	return w.producer.EnqueueExport(ctx, model.ExportMessage{JobID: job.ID})
}
