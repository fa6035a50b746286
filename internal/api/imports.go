package api

import (
	"fmt"
	"net/http"
	"path"
	"strings"

	"shomokh-report-engine/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// CreateImport stores an uploaded grade sheet and queues it for import.
// Form fields: course_id, kind and file.
func (h *Handler) CreateImport(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.Server.MaxUploadBytes)

	courseID := strings.TrimSpace(c.PostForm("course_id"))
	kind := model.ImportKind(strings.ToLower(strings.TrimSpace(c.PostForm("kind"))))
	if courseID == "" || !kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "course_id and a valid kind are required"})
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if !strings.EqualFold(path.Ext(header.Filename), ".xlsx") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only .xlsx grade sheets are accepted"})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload"})
		return
	}
	defer file.Close()

	ctx := c.Request.Context()
	job := &model.ImportJob{
		ID:       uuid.New().String(),
		CourseID: courseID,
		Kind:     kind,
		Status:   model.JobStatusQueued,
	}
	job.S3Path = fmt.Sprintf("%s%s.xlsx", h.cfg.Storage.S3.ImportPrefix, job.ID)

	if err := h.storage.Upload(ctx, job.S3Path, file, xlsxContentType); err != nil {
		h.log.Error().Err(err).Str("s3_path", job.S3Path).Msg("Failed to store upload")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store upload"})
		return
	}
	if err := h.repo.CreateImportJob(ctx, job); err != nil {
		h.fail(c, err)
		return
	}

	msg := model.ImportMessage{JobID: job.ID, CourseID: job.CourseID, Kind: job.Kind, S3Path: job.S3Path}
	if err := h.producer.EnqueueImport(ctx, msg); err != nil {
		h.log.Error().Err(err).Str("job_id", job.ID).Msg("Failed to enqueue import job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue import job"})
		return
	}

	h.log.Info().
		Str("job_id", job.ID).
		Str("course_id", courseID).
		Str("kind", string(kind)).
		Msg("Import job enqueued")

	c.JSON(http.StatusAccepted, model.ImportResponse{Job: *job})
}

func (h *Handler) GetImport(c *gin.Context) {
	job, err := h.repo.GetImportJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, model.ImportResponse{Job: *job})
}
