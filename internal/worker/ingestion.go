package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"shomokh-report-engine/internal/calendar"
	"shomokh-report-engine/internal/config"
	"shomokh-report-engine/internal/db"
	"shomokh-report-engine/internal/excel"
	"shomokh-report-engine/internal/logger"
	"shomokh-report-engine/internal/model"
	"shomokh-report-engine/internal/queue"
	"shomokh-report-engine/internal/storage"

	"github.com/rs/zerolog"
)

// IngestionWorker imports uploaded grade sheets into the grade tables.
type IngestionWorker struct {
	cfg        *config.Config
	repo       db.Repository
	storage    storage.Storage
	parser     excel.ParsingStrategy
	consumer   *queue.Consumer
	workerPool *WorkerPool
	log        zerolog.Logger
}

func NewIngestionWorker(
	cfg *config.Config,
	cal *calendar.Calendar,
	repo db.Repository,
	storage storage.Storage,
	redisClient *queue.RedisClient,
) *IngestionWorker {
	return &IngestionWorker{
		cfg:        cfg,
		repo:       repo,
		storage:    storage,
		parser:     excel.NewExcelStrategy(cal),
		consumer:   queue.NewConsumer(redisClient, cfg),
		workerPool: NewWorkerPool("ingestion", cfg.Workers.Ingestion.Count),
		log:        logger.Component("ingestion"),
	}
}

func (w *IngestionWorker) Start(ctx context.Context) error {
	w.log.Info().Msg("Starting ingestion worker")

	w.workerPool.Start(ctx)
	return w.consumer.ConsumeImportQueue(ctx, w.handleMessage)
}

func (w *IngestionWorker) Stop() {
	w.log.Info().Msg("Stopping ingestion worker")
	w.workerPool.Stop()
}

func (w *IngestionWorker) handleMessage(ctx context.Context, data []byte) error {
	var msg model.ImportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("failed to unmarshal import message: %w", err)
	}

	w.log.Info().Str("job_id", msg.JobID).Str("s3_path", msg.S3Path).Msg("Processing import job")

	return w.workerPool.Submit(ctx, func(ctx context.Context) error {
		return w.processImport(ctx, msg)
	})
}

// processImport runs one import job. A sheet is stored all or nothing; any
// failure marks the job FAILED with the reason.
func (w *IngestionWorker) processImport(ctx context.Context, msg model.ImportMessage) error {
	log := w.log.With().Str("job_id", msg.JobID).Str("kind", string(msg.Kind)).Logger()

	if err := w.repo.UpdateImportJob(ctx, msg.JobID, model.JobStatusRunning, 0, nil); err != nil {
		return fmt.Errorf("failed to mark import job running: %w", err)
	}

	sheet, err := w.readSheet(ctx, msg)
	if err != nil {
		log.Error().Err(err).Msg("Import rejected")
		w.fail(ctx, msg.JobID, err)
		return err
	}

	log.Debug().Int("row_count", sheet.Len()).Msg("Storing grade sheet")
	if err := w.repo.ImportGradeSheet(ctx, sheet); err != nil {
		log.Error().Err(err).Msg("Failed to store grade sheet")
		w.fail(ctx, msg.JobID, err)
		return err
	}

	if err := w.repo.UpdateImportJob(ctx, msg.JobID, model.JobStatusDone, sheet.Len(), nil); err != nil {
		log.Error().Err(err).Msg("Failed to update import job status")
		return err
	}

	log.Info().Int("row_count", sheet.Len()).Msg("Grade sheet imported successfully")
	return nil
}

func (w *IngestionWorker) readSheet(ctx context.Context, msg model.ImportMessage) (*model.GradeSheet, error) {
	reader, err := w.storage.Download(ctx, msg.S3Path)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read file data: %w", err)
	}

	roster, err := w.repo.ListCourseRoster(ctx, msg.CourseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load course roster: %w", err)
	}
	numbers := make(map[int]string, len(roster))
	for _, e := range roster {
		numbers[e.Student.Number] = e.Student.ID
	}

	sheet, err := w.parser.Parse(ctx, data, msg.Kind, msg.CourseID, numbers)
	if err != nil {
		return nil, err
	}
	if err := w.parser.Validate(ctx, sheet); err != nil {
		return nil, err
	}
	return sheet, nil
}

func (w *IngestionWorker) fail(ctx context.Context, jobID string, cause error) {
	errorMsg := cause.Error()
	if err := w.repo.UpdateImportJob(context.WithoutCancel(ctx), jobID, model.JobStatusFailed, 0, &errorMsg); err != nil {
		w.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to mark import job failed")
	}
}
