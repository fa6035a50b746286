package reporting

import (
	"fmt"

	"github.com/google/uuid"

	"shomokh-report-engine/internal/export"
	"shomokh-report-engine/internal/model"
	"shomokh-report-engine/internal/report"
)

// NewExportJob validates an export request and returns a queued job for it.
// Query parsing is repeated by the export worker, so a job that passes here
// only fails later on storage or database errors.
func (s *Service) NewExportJob(q model.ReportQuery, format, fileType string) (*model.ExportJob, error) {
	if _, _, err := report.ParseQuery(q, s.cal); err != nil {
		return nil, err
	}
	f, err := report.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	w, err := export.ForType(fileType)
	if err != nil {
		return nil, err
	}

	return &model.ExportJob{
		ID:       uuid.New().String(),
		Query:    q,
		Format:   string(f),
		FileType: w.Extension(),
		Status:   model.JobStatusQueued,
	}, nil
}

// ExportKey is the object key of a finished export file.
func ExportKey(prefix string, job *model.ExportJob, fileName string) string {
	return fmt.Sprintf("%s%s/%s", prefix, job.ID, fileName)
}
