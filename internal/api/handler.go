package api

import (
	"bytes"
	"context"
	goerrors "errors"
	"fmt"
	"net/http"
	"strconv"

	"shomokh-report-engine/internal/calendar"
	"shomokh-report-engine/internal/config"
	"shomokh-report-engine/internal/db"
	"shomokh-report-engine/internal/export"
	"shomokh-report-engine/internal/grading"
	"shomokh-report-engine/internal/logger"
	"shomokh-report-engine/internal/model"
	"shomokh-report-engine/internal/report"
	"shomokh-report-engine/internal/reporting"
	"shomokh-report-engine/internal/storage"
	"shomokh-report-engine/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Enqueuer hands import and export jobs to the workers.
type Enqueuer interface {
	EnqueueImport(ctx context.Context, msg model.ImportMessage) error
	EnqueueExport(ctx context.Context, msg model.ExportMessage) error
}

type Handler struct {
	service  *reporting.Service
	repo     db.Repository
	producer Enqueuer
	storage  storage.Storage
	cfg      *config.Config
	log      zerolog.Logger
}

func NewHandler(
	service *reporting.Service,
	repo db.Repository,
	producer Enqueuer,
	storage storage.Storage,
	cfg *config.Config,
) *Handler {
	return &Handler{
		service:  service,
		repo:     repo,
		producer: producer,
		storage:  storage,
		cfg:      cfg,
		log:      logger.Component("api"),
	}
}

func (h *Handler) cal() *calendar.Calendar {
	return h.service.Calendar()
}

// GetReport returns the aggregated report rows as JSON.
func (h *Handler) GetReport(c *gin.Context) {
	var q model.ReportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	f, s, err := report.ParseQuery(q, h.cal())
	if err != nil {
		h.fail(c, err)
		return
	}

	rows, err := h.service.Build(c.Request.Context(), f, s)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count": len(rows),
		"rows":  rows,
	})
}

// ExportReport streams the report as a csv or xlsx download.
func (h *Handler) ExportReport(c *gin.Context) {
	var req model.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	f, s, err := report.ParseQuery(req.ReportQuery, h.cal())
	if err != nil {
		h.fail(c, err)
		return
	}
	format, err := report.ParseFormat(req.Format)
	if err != nil {
		h.fail(c, err)
		return
	}
	writer, err := export.ForType(req.FileType)
	if err != nil {
		h.fail(c, err)
		return
	}

	table, err := h.service.Export(c.Request.Context(), f, s, format)
	if err != nil {
		h.fail(c, err)
		return
	}

	var buf bytes.Buffer
	if err := writer.Write(&buf, table); err != nil {
		h.fail(c, err)
		return
	}

	name := export.FileName(format, writer, nowIn(h.cal()))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, writer.ContentType(), buf.Bytes())
}

// CreateExport queues an asynchronous export job.
func (h *Handler) CreateExport(c *gin.Context) {
	var req model.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	job, err := h.service.NewExportJob(req.ReportQuery, req.Format, req.FileType)
	if err != nil {
		h.fail(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := h.repo.CreateExportJob(ctx, job); err != nil {
		h.fail(c, err)
		return
	}
	if err := h.producer.EnqueueExport(ctx, model.ExportMessage{JobID: job.ID}); err != nil {
		h.log.Error().Err(err).Str("job_id", job.ID).Msg("Failed to enqueue export job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue export job"})
		return
	}

	h.log.Info().
		Str("job_id", job.ID).
		Str("format", job.Format).
		Str("file_type", job.FileType).
		Msg("Export job enqueued")

	c.JSON(http.StatusAccepted, model.ExportResponse{Job: *job})
}

// GetExport returns an export job and, once done, a presigned download URL.
func (h *Handler) GetExport(c *gin.Context) {
	ctx := c.Request.Context()
	job, err := h.repo.GetExportJob(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := model.ExportResponse{Job: *job}
	if job.Status == model.JobStatusDone && job.S3Key != "" {
		url, err := h.storage.PresignedURL(ctx, job.S3Key, h.cfg.Reporting.DownloadURLTTL)
		if err != nil {
			h.fail(c, err)
			return
		}
		resp.DownloadURL = url
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetAttendanceSummary(c *gin.Context) {
	r, ok := h.dateRange(c)
	if !ok {
		return
	}

	summary, err := h.service.AttendanceSummary(c.Request.Context(), c.Param("course_id"), r)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) GetStudentSummary(c *gin.Context) {
	r, ok := h.dateRange(c)
	if !ok {
		return
	}

	summary, err := h.service.StudentSummary(c.Request.Context(), c.Param("student_id"), c.Param("course_id"), report.Filter{Range: r})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetTeachingDates lists teaching dates between from and to, defaulting to
// the semester bounds.
func (h *Handler) GetTeachingDates(c *gin.Context) {
	q := model.ReportQuery{DateFrom: c.Query("from"), DateTo: c.Query("to")}
	f, _, err := report.ParseQuery(q, h.cal())
	if err != nil {
		h.fail(c, err)
		return
	}

	r := h.cal().Bound(f.Range)
	dates := h.cal().RangeDates(r)

	resp := model.TeachingDatesResponse{
		Count: len(dates),
		Dates: make([]string, 0, len(dates)),
	}
	if !r.From.IsZero() {
		resp.From = calendar.Key(r.From)
	}
	if !r.To.IsZero() {
		resp.To = calendar.Key(r.To)
	}
	for _, d := range dates {
		resp.Dates = append(resp.Dates, calendar.Key(d))
	}
	c.JSON(http.StatusOK, resp)
}

// GetGradeValues lists the legal values of a grade field for pickers.
func (h *Handler) GetGradeValues(c *gin.Context) {
	max, err := strconv.ParseFloat(c.DefaultQuery("max", "5"), 64)
	if err != nil || max <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "max must be a positive number"})
		return
	}
	if !grading.Validate(max, 0, grading.MaxValue()) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("max must be a multiple of %g no greater than %g", grading.Step, grading.MaxValue()),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"max":    max,
		"step":   grading.Step,
		"values": grading.QuarterStepValues(max, grading.Step),
	})
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": h.cfg.App.Name,
		"version": h.cfg.App.Version,
	})
}

func (h *Handler) dateRange(c *gin.Context) (calendar.Range, bool) {
	q := model.ReportQuery{DateFrom: c.Query("date_from"), DateTo: c.Query("date_to")}
	f, _, err := report.ParseQuery(q, h.cal())
	if err != nil {
		h.fail(c, err)
		return calendar.Range{}, false
	}
	return f.Range, true
}

// fail maps a domain error onto an HTTP status.
func (h *Handler) fail(c *gin.Context, err error) {
	var ve errors.ValidationError

	switch {
	case goerrors.As(err, &ve):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": ve.Message,
			"field": ve.Field,
			"value": ve.Value,
			"row":   ve.Row,
		})
	case goerrors.Is(err, errors.ErrInvalidGradeValue),
		goerrors.Is(err, errors.ErrNotTeachingDate):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case goerrors.Is(err, errors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case goerrors.Is(err, errors.ErrSchemaValidation),
		goerrors.Is(err, errors.ErrInvalidFileFormat),
		goerrors.Is(err, errors.ErrUnknownSortField),
		goerrors.Is(err, errors.ErrUnknownExportFormat),
		goerrors.Is(err, errors.ErrUnknownExportType),
		goerrors.Is(err, errors.ErrUnknownImportKind),
		goerrors.Is(err, errors.ErrInvalidAttendanceKey):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
