package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"shomokh-report-engine/internal/model"
	pkgerrors "shomokh-report-engine/pkg/errors"
)

func (r *repository) CreateImportJob(ctx context.Context, job *model.ImportJob) error {
	query := `INSERT INTO import_jobs (id, course_id, kind, s3_path, status, row_count, error_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, job.ID, job.CourseID, job.Kind, job.S3Path, job.Status,
		job.RowCount, job.ErrorMessage, job.CreatedAt, job.UpdatedAt)
	return err
}

func (r *repository) UpdateImportJob(ctx context.Context, id string, status model.JobStatus, rowCount int, errorMessage *string) error {
	query := `UPDATE import_jobs SET status = ?, row_count = ?, error_message = ?, updated_at = NOW() WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, status, rowCount, errorMessage, id)
	if err != nil {
		return err
	}
	return affected(res, "import job", id)
}

func (r *repository) GetImportJob(ctx context.Context, id string) (*model.ImportJob, error) {
	query := `SELECT id, course_id, kind, s3_path, status, row_count, error_message, created_at, updated_at
		FROM import_jobs WHERE id = ?`

	var job model.ImportJob
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&job.ID, &job.CourseID, &job.Kind, &job.S3Path, &job.Status,
		&job.RowCount, &job.ErrorMessage, &job.CreatedAt, &job.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("import job %s: %w", id, pkgerrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *repository) CreateExportJob(ctx context.Context, job *model.ExportJob) error {
	q, err := json.Marshal(job.Query)
	if err != nil {
		return fmt.Errorf("failed to encode export query: %w", err)
	}

	query := `INSERT INTO export_jobs (id, query_json, format, file_type, status, s3_key, row_count, warning_count,
			error_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query, job.ID, q, job.Format, job.FileType, job.Status, job.S3Key,
		job.RowCount, job.WarningCount, job.ErrorMessage, job.CreatedAt, job.UpdatedAt)
	return err
}

// UpdateExportJob persists the job's progress fields.
func (r *repository) UpdateExportJob(ctx context.Context, job *model.ExportJob) error {
	query := `UPDATE export_jobs SET status = ?, s3_key = ?, row_count = ?, warning_count = ?, error_message = ?,
			updated_at = NOW()
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, job.Status, job.S3Key, job.RowCount, job.WarningCount,
		job.ErrorMessage, job.ID)
	if err != nil {
		return err
	}
	return affected(res, "export job", job.ID)
}

func (r *repository) GetExportJob(ctx context.Context, id string) (*model.ExportJob, error) {
	query := `SELECT id, query_json, format, file_type, status, s3_key, row_count, warning_count,
			error_message, created_at, updated_at
		FROM export_jobs WHERE id = ?`

	var (
		job model.ExportJob
		q   []byte
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&job.ID, &q, &job.Format, &job.FileType, &job.Status, &job.S3Key,
		&job.RowCount, &job.WarningCount, &job.ErrorMessage, &job.CreatedAt, &job.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("export job %s: %w", id, pkgerrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if len(q) > 0 {
		if err := json.Unmarshal(q, &job.Query); err != nil {
			return nil, fmt.Errorf("failed to decode export query: %w", err)
		}
	}
	return &job, nil
}

func affected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, pkgerrors.ErrNotFound)
	}
	return nil
}
