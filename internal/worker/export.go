package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"shomokh-report-engine/internal/config"
	"shomokh-report-engine/internal/db"
	"shomokh-report-engine/internal/export"
	"shomokh-report-engine/internal/logger"
	"shomokh-report-engine/internal/model"
	"shomokh-report-engine/internal/queue"
	"shomokh-report-engine/internal/report"
	"shomokh-report-engine/internal/reporting"
	"shomokh-report-engine/internal/storage"
	"shomokh-report-engine/pkg/errors"

	"github.com/rs/zerolog"
)

// ExportWorker renders queued export jobs to files in object storage.
type ExportWorker struct {
	cfg        *config.Config
	repo       db.Repository
	service    *reporting.Service
	storage    storage.Storage
	consumer   *queue.Consumer
	workerPool *WorkerPool
	now        func() time.Time
	log        zerolog.Logger
}

func NewExportWorker(
	cfg *config.Config,
	repo db.Repository,
	service *reporting.Service,
	storage storage.Storage,
	redisClient *queue.RedisClient,
) *ExportWorker {
	return &ExportWorker{
		cfg:        cfg,
		repo:       repo,
		service:    service,
		storage:    storage,
		consumer:   queue.NewConsumer(redisClient, cfg),
		workerPool: NewWorkerPool("export", cfg.Workers.Export.Count),
		now:        time.Now,
		log:        logger.Component("export"),
	}
}

func (w *ExportWorker) Start(ctx context.Context) error {
	w.log.Info().Msg("Starting export worker")

	w.workerPool.Start(ctx)
	return w.consumer.ConsumeExportQueue(ctx, w.handleMessage)
}

func (w *ExportWorker) Stop() {
	w.log.Info().Msg("Stopping export worker")
	w.workerPool.Stop()
}

func (w *ExportWorker) handleMessage(ctx context.Context, data []byte) error {
	var msg model.ExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("failed to unmarshal export message: %w", err)
	}

	w.log.Info().Str("job_id", msg.JobID).Msg("Processing export job")

	return w.workerPool.Submit(ctx, func(ctx context.Context) error {
		err := w.processExport(ctx, msg.JobID)
		if err != nil && errors.IsRetryable(err) && w.consumer != nil {
			w.consumer.DeadLetter(context.WithoutCancel(ctx), w.cfg.Redis.ExportQueue, data)
		}
		return err
	})
}

// processExport runs one export job, retrying transient failures with a
// fixed delay. The job ends DONE with a file key or FAILED with the reason.
func (w *ExportWorker) processExport(ctx context.Context, jobID string) error {
	log := w.log.With().Str("job_id", jobID).Logger()

	job, err := w.repo.GetExportJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load export job: %w", err)
	}

	job.Status = model.JobStatusRunning
	if err := w.repo.UpdateExportJob(ctx, job); err != nil {
		return fmt.Errorf("failed to mark export job running: %w", err)
	}

	attempts := w.cfg.Workers.Export.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}

	for attempt := 1; ; attempt++ {
		err = w.render(ctx, job)
		if err == nil || !errors.IsRetryable(err) || attempt >= attempts {
			break
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("Export failed, retrying")
		if werr := sleep(ctx, w.cfg.Workers.Export.RetryDelay); werr != nil {
			err = werr
			break
		}
	}

	if err != nil {
		log.Error().Err(err).Msg("Export failed")
		errorMsg := err.Error()
		job.Status = model.JobStatusFailed
		job.ErrorMessage = &errorMsg
		if uerr := w.repo.UpdateExportJob(context.WithoutCancel(ctx), job); uerr != nil {
			log.Error().Err(uerr).Msg("Failed to mark export job failed")
		}
		return err
	}

	job.Status = model.JobStatusDone
	job.ErrorMessage = nil
	if err := w.repo.UpdateExportJob(ctx, job); err != nil {
		log.Error().Err(err).Msg("Failed to update export job status")
		return err
	}

	log.Info().
		Str("s3_key", job.S3Key).
		Int("row_count", job.RowCount).
		Int("warning_count", job.WarningCount).
		Msg("Export completed")
	return nil
}

// render builds the job's report, writes it and uploads the file, filling
// the job's key and counters.
func (w *ExportWorker) render(ctx context.Context, job *model.ExportJob) error {
	f, s, err := report.ParseQuery(job.Query, w.service.Calendar())
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(job.Format)
	if err != nil {
		return err
	}
	writer, err := export.ForType(job.FileType)
	if err != nil {
		return err
	}

	rows, err := w.service.Build(ctx, f, s)
	if err != nil {
		return errors.NewRetryableError(err, "failed to build report")
	}
	table := report.NewTable(rows, format)

	var buf bytes.Buffer
	if err := writer.Write(&buf, table); err != nil {
		return fmt.Errorf("failed to write %s: %w", writer.Extension(), err)
	}

	at := w.now().In(w.service.Calendar().Location)
	key := reporting.ExportKey(w.cfg.Storage.S3.ExportPrefix, job, export.FileName(format, writer, at))
	if err := w.storage.Upload(ctx, key, bytes.NewReader(buf.Bytes()), writer.ContentType()); err != nil {
		return err
	}

	job.S3Key = key
	job.RowCount = len(rows)
	job.WarningCount = 0
	for _, r := range rows {
		job.WarningCount += len(r.Warnings)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
