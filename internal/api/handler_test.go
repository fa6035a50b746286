package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shomokh-report-engine/internal/calendar"
	"shomokh-report-engine/internal/config"
	"shomokh-report-engine/internal/db/dbtest"
	"shomokh-report-engine/internal/model"
	"shomokh-report-engine/internal/reporting"
	"shomokh-report-engine/internal/storage"
)

type fakeEnqueuer struct {
	mu      sync.Mutex
	imports []model.ImportMessage
	exports []model.ExportMessage
}

func (f *fakeEnqueuer) EnqueueImport(ctx context.Context, msg model.ImportMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imports = append(f.imports, msg)
	return nil
}

func (f *fakeEnqueuer) EnqueueExport(ctx context.Context, msg model.ExportMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exports = append(f.exports, msg)
	return nil
}

type fixture struct {
	router   *gin.Engine
	repo     *dbtest.Repository
	store    *storage.MemoryStorage
	enqueuer *fakeEnqueuer
}

func setup(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg, err := config.Parse([]byte("app:\n  version: test\n"))
	require.NoError(t, err)

	cal := &calendar.Calendar{
		Location:         time.UTC,
		ExcludedWeekdays: map[time.Weekday]bool{time.Friday: true, time.Saturday: true},
		SemesterStart:    time.Date(2025, 9, 7, 0, 0, 0, 0, time.UTC),
		SemesterEnd:      time.Date(2025, 12, 18, 0, 0, 0, 0, time.UTC),
	}

	repo := dbtest.New()
	course := model.Course{ID: "c1", Name: "Juz Amma"}
	repo.Enroll(model.Student{ID: "s1", Number: 1, Name: "Amal", Phone: "0501"}, course)
	repo.Enroll(model.Student{ID: "s2", Number: 2, Name: "Basma", Phone: "0502"}, course)
	ctx := context.Background()
	require.NoError(t, repo.UpsertWeeklyGrade(ctx, model.WeeklyGrade{StudentID: "s1", CourseID: "c1", Week: 1, Grade: 3.5}))
	require.NoError(t, repo.UpsertWeeklyGrade(ctx, model.WeeklyGrade{StudentID: "s2", CourseID: "c1", Week: 1, Grade: 5}))
	repo.Attendance = []model.AttendanceRecord{
		{StudentID: "s1", CourseID: "c1", Date: time.Date(2025, 9, 8, 0, 0, 0, 0, time.UTC), Status: model.AttendancePresent},
		{StudentID: "s2", CourseID: "c1", Date: time.Date(2025, 9, 8, 0, 0, 0, 0, time.UTC), Status: model.AttendanceAbsent},
	}

	svc, err := reporting.NewService(cfg, repo, cal)
	require.NoError(t, err)

	f := &fixture{
		router:   gin.New(),
		repo:     repo,
		store:    storage.NewMemoryStorage(),
		enqueuer: &fakeEnqueuer{},
	}
	f.router.Use(RecoveryMiddleware())
	SetupRoutes(f.router, NewHandler(svc, repo, f.enqueuer, f.store, cfg))
	return f
}

func (f *fixture) do(method, target string, body []byte, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestHealthCheck(t *testing.T) {
	f := setup(t)
	w := f.do(http.MethodGet, "/health", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"version":"test"`)
}

func TestGetReport(t *testing.T) {
	f := setup(t)

	w := f.do(http.MethodGet, "/api/v1/reports?course_id=c1&sort=percentage&order=desc", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Count int `json:"count"`
		Rows  []struct {
			StudentID string `json:"student_id"`
			Summary   struct {
				OverallPercentage *float64 `json:"overall_percentage"`
			} `json:"summary"`
		} `json:"rows"`
	}
	decode(t, w, &resp)
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, "s2", resp.Rows[0].StudentID)
	require.NotNil(t, resp.Rows[1].Summary.OverallPercentage)
	assert.InDelta(t, 70, *resp.Rows[1].Summary.OverallPercentage, 0.001)
}

func TestGetReportBadQuery(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name  string
		query string
	}{
		{"unknown sort field", "sort=height"},
		{"bad status", "status=LATE"},
		{"bad date", "date_from=09/08/2025"},
		{"reversed range", "date_from=2025-10-01&date_to=2025-09-01"},
		{"bad order", "order=sideways"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(http.MethodGet, "/api/v1/reports?"+tt.query, nil, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestExportReportDownload(t *testing.T) {
	f := setup(t)

	w := f.do(http.MethodGet, "/api/v1/reports/export?format=summary&type=csv", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "report-summary-")
	assert.Contains(t, w.Body.String(), "70.00")

	w = f.do(http.MethodGet, "/api/v1/reports/export?type=pdf", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateAndGetExport(t *testing.T) {
	f := setup(t)

	body := []byte(`{"course_id":"c1","format":"detailed","type":"xlsx"}`)
	w := f.do(http.MethodPost, "/api/v1/reports/exports", body, "application/json")
	require.Equal(t, http.StatusAccepted, w.Code)

	var created model.ExportResponse
	decode(t, w, &created)
	assert.Equal(t, model.JobStatusQueued, created.Job.Status)
	require.Len(t, f.enqueuer.exports, 1)
	assert.Equal(t, created.Job.ID, f.enqueuer.exports[0].JobID)

	w = f.do(http.MethodGet, "/api/v1/reports/exports/"+created.Job.ID, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var pending model.ExportResponse
	decode(t, w, &pending)
	assert.Empty(t, pending.DownloadURL)

	// simulate the export worker finishing the job
	job := created.Job
	job.Status = model.JobStatusDone
	job.S3Key = "exports/" + job.ID + "/report.xlsx"
	require.NoError(t, f.repo.UpdateExportJob(context.Background(), &job))
	require.NoError(t, f.store.Upload(context.Background(), job.S3Key, strings.NewReader("xlsx"), xlsxContentType))

	w = f.do(http.MethodGet, "/api/v1/reports/exports/"+created.Job.ID, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var done model.ExportResponse
	decode(t, w, &done)
	assert.Equal(t, "memory://"+job.S3Key, done.DownloadURL)

	w = f.do(http.MethodGet, "/api/v1/reports/exports/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetAttendanceSummary(t *testing.T) {
	f := setup(t)

	w := f.do(http.MethodGet, "/api/v1/courses/c1/attendance/summary?date_from=2025-09-07&date_to=2025-09-11", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		TeachingDays   int     `json:"teaching_days"`
		NotMarked      int     `json:"not_marked"`
		AttendanceRate float64 `json:"attendance_rate"`
	}
	decode(t, w, &resp)
	assert.Equal(t, 5, resp.TeachingDays)
	assert.Equal(t, 8, resp.NotMarked)
	assert.InDelta(t, 0.5, resp.AttendanceRate, 0.0001)
}

func TestGetStudentSummary(t *testing.T) {
	f := setup(t)

	w := f.do(http.MethodGet, "/api/v1/students/s1/courses/c1/summary", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"classification":"GOOD"`)
}

func TestGetTeachingDates(t *testing.T) {
	f := setup(t)

	w := f.do(http.MethodGet, "/api/v1/calendar/teaching-dates?from=2025-09-07&to=2025-09-13", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp model.TeachingDatesResponse
	decode(t, w, &resp)
	assert.Equal(t, 5, resp.Count)
	assert.Equal(t, []string{"2025-09-07", "2025-09-08", "2025-09-09", "2025-09-10", "2025-09-11"}, resp.Dates)
}

func TestGetGradeValues(t *testing.T) {
	f := setup(t)

	w := f.do(http.MethodGet, "/api/v1/grading/values?max=1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Values []float64 `json:"values"`
	}
	decode(t, w, &resp)
	assert.Equal(t, []float64{0, 0.25, 0.5, 0.75, 1}, resp.Values)

	w = f.do(http.MethodGet, "/api/v1/grading/values?max=40", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	assert.Len(t, resp.Values, 161)

	for _, max := range []string{"-1", "abc", "5.1", "40.25", "1e9", "1e18"} {
		t.Run(max, func(t *testing.T) {
			w := f.do(http.MethodGet, "/api/v1/grading/values?max="+max, nil, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestPutGrades(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name     string
		path     string
		body     string
		wantCode int
	}{
		{"daily", "/api/v1/grades/daily", `{"student_id":"s1","course_id":"c1","date":"2025-09-08","memorization":4.75,"review":5}`, http.StatusOK},
		{"daily off-step", "/api/v1/grades/daily", `{"student_id":"s1","course_id":"c1","date":"2025-09-08","memorization":4.1,"review":5}`, http.StatusUnprocessableEntity},
		{"behavior on friday", "/api/v1/grades/behavior", `{"student_id":"s1","course_id":"c1","date":"2025-09-12","daily_score":1}`, http.StatusUnprocessableEntity},
		{"points", "/api/v1/grades/points", `{"student_id":"s1","course_id":"c1","date":"2025-09-09","early_attendance":true}`, http.StatusOK},
		{"weekly", "/api/v1/grades/weekly", `{"student_id":"s1","course_id":"c1","week":2,"grade":4.25}`, http.StatusOK},
		{"weekly out of range week", "/api/v1/grades/weekly", `{"student_id":"s1","course_id":"c1","week":11,"grade":4}`, http.StatusUnprocessableEntity},
		{"monthly", "/api/v1/grades/monthly", `{"student_id":"s1","course_id":"c1","month":1,"tajweed_theory":15}`, http.StatusOK},
		{"final over max", "/api/v1/grades/final", `{"student_id":"s1","course_id":"c1","quran_test":41,"tajweed_test":20}`, http.StatusUnprocessableEntity},
		{"missing date", "/api/v1/grades/daily", `{"student_id":"s1","course_id":"c1"}`, http.StatusBadRequest},
		{"bad date", "/api/v1/grades/daily", `{"student_id":"s1","course_id":"c1","date":"tomorrow"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(http.MethodPut, tt.path, []byte(tt.body), "application/json")
			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
		})
	}
}

func TestCreateImport(t *testing.T) {
	f := setup(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("course_id", "c1"))
	require.NoError(t, mw.WriteField("kind", "weekly"))
	part, err := mw.CreateFormFile("file", "week1.xlsx")
	require.NoError(t, err)
	_, err = part.Write([]byte("workbook bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	w := f.do(http.MethodPost, "/api/v1/imports", body.Bytes(), mw.FormDataContentType())
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var resp model.ImportResponse
	decode(t, w, &resp)
	assert.Equal(t, model.ImportWeekly, resp.Job.Kind)
	assert.Equal(t, "imports/"+resp.Job.ID+".xlsx", resp.Job.S3Path)

	ok, err := f.store.Exists(context.Background(), resp.Job.S3Path)
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, f.enqueuer.imports, 1)
	assert.Equal(t, resp.Job.ID, f.enqueuer.imports[0].JobID)

	w = f.do(http.MethodGet, "/api/v1/imports/"+resp.Job.ID, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateImportRejectsBadKind(t *testing.T) {
	f := setup(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("course_id", "c1"))
	require.NoError(t, mw.WriteField("kind", "homework"))
	require.NoError(t, mw.Close())

	w := f.do(http.MethodPost, "/api/v1/imports", body.Bytes(), mw.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
