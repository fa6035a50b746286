package api

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	// Health check
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Report routes
		v1.GET("/reports", handler.GetReport)
		v1.GET("/reports/export", handler.ExportReport)
		v1.POST("/reports/exports", handler.CreateExport)
		v1.GET("/reports/exports/:id", handler.GetExport)

		// Summaries
		v1.GET("/courses/:course_id/attendance/summary", handler.GetAttendanceSummary)
		v1.GET("/students/:student_id/courses/:course_id/summary", handler.GetStudentSummary)

		// Calendar and grade domain
		v1.GET("/calendar/teaching-dates", handler.GetTeachingDates)
		v1.GET("/grading/values", handler.GetGradeValues)

		// Grade writes
		grades := v1.Group("/grades")
		grades.PUT("/daily", handler.PutDailyGrade)
		grades.PUT("/behavior", handler.PutBehaviorGrade)
		grades.PUT("/points", handler.PutBehaviorPoint)
		grades.PUT("/weekly", handler.PutWeeklyGrade)
		grades.PUT("/monthly", handler.PutMonthlyGrade)
		grades.PUT("/final", handler.PutFinalExam)

		// Grade sheet imports
		v1.POST("/imports", handler.CreateImport)
		v1.GET("/imports/:id", handler.GetImport)
	}
}
