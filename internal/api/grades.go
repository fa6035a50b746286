package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"shomokh-report-engine/internal/calendar"
	"shomokh-report-engine/internal/model"
	"shomokh-report-engine/pkg/errors"

	"github.com/gin-gonic/gin"
)

// Dated grade rows arrive with a plain 2006-01-02 date.

type dailyGradeRequest struct {
	StudentID    string  `json:"student_id" binding:"required"`
	CourseID     string  `json:"course_id" binding:"required"`
	Date         string  `json:"date" binding:"required"`
	Memorization float64 `json:"memorization"`
	Review       float64 `json:"review"`
}

type behaviorGradeRequest struct {
	StudentID  string  `json:"student_id" binding:"required"`
	CourseID   string  `json:"course_id" binding:"required"`
	Date       string  `json:"date" binding:"required"`
	DailyScore float64 `json:"daily_score"`
}

type behaviorPointRequest struct {
	StudentID           string `json:"student_id" binding:"required"`
	CourseID            string `json:"course_id" binding:"required"`
	Date                string `json:"date" binding:"required"`
	EarlyAttendance     bool   `json:"early_attendance"`
	PerfectMemorization bool   `json:"perfect_memorization"`
	ActiveParticipation bool   `json:"active_participation"`
	TimeCommitment      bool   `json:"time_commitment"`
}

func (h *Handler) parseDate(s string) (time.Time, error) {
	d, err := h.cal().ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, errors.ErrSchemaValidation)
	}
	return d, nil
}

func (h *Handler) PutDailyGrade(c *gin.Context) {
	var req dailyGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	date, err := h.parseDate(req.Date)
	if err != nil {
		h.fail(c, err)
		return
	}

	g := model.DailyGrade{
		StudentID:    req.StudentID,
		CourseID:     req.CourseID,
		Date:         date,
		Memorization: req.Memorization,
		Review:       req.Review,
	}
	h.save(c, g, func(ctx context.Context) error { return h.service.SaveDailyGrade(ctx, g) })
}

func (h *Handler) PutBehaviorGrade(c *gin.Context) {
	var req behaviorGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	date, err := h.parseDate(req.Date)
	if err != nil {
		h.fail(c, err)
		return
	}

	g := model.BehaviorGrade{
		StudentID:  req.StudentID,
		CourseID:   req.CourseID,
		Date:       date,
		DailyScore: req.DailyScore,
	}
	h.save(c, g, func(ctx context.Context) error { return h.service.SaveBehaviorGrade(ctx, g) })
}

func (h *Handler) PutBehaviorPoint(c *gin.Context) {
	var req behaviorPointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	date, err := h.parseDate(req.Date)
	if err != nil {
		h.fail(c, err)
		return
	}

	p := model.BehaviorPoint{
		StudentID:           req.StudentID,
		CourseID:            req.CourseID,
		Date:                date,
		EarlyAttendance:     req.EarlyAttendance,
		PerfectMemorization: req.PerfectMemorization,
		ActiveParticipation: req.ActiveParticipation,
		TimeCommitment:      req.TimeCommitment,
	}
	h.save(c, p, func(ctx context.Context) error { return h.service.SaveBehaviorPoint(ctx, p) })
}

func (h *Handler) PutWeeklyGrade(c *gin.Context) {
	var g model.WeeklyGrade
	if err := c.ShouldBindJSON(&g); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	h.save(c, g, func(ctx context.Context) error { return h.service.SaveWeeklyGrade(ctx, g) })
}

func (h *Handler) PutMonthlyGrade(c *gin.Context) {
	var g model.MonthlyGrade
	if err := c.ShouldBindJSON(&g); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	h.save(c, g, func(ctx context.Context) error { return h.service.SaveMonthlyGrade(ctx, g) })
}

func (h *Handler) PutFinalExam(c *gin.Context) {
	var e model.FinalExam
	if err := c.ShouldBindJSON(&e); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	h.save(c, e, func(ctx context.Context) error { return h.service.SaveFinalExam(ctx, e) })
}

func (h *Handler) save(c *gin.Context, row interface{}, store func(context.Context) error) {
	if err := store(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": row})
}

func nowIn(cal *calendar.Calendar) time.Time {
	if cal.Location == nil {
		return time.Now().UTC()
	}
	return time.Now().In(cal.Location)
}
