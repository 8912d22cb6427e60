package app

import (
	"course_qa_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	api := router.Group("/api")
	{
		api.GET("/health", c.health.HealthCheck)

		api.POST("/courses", c.course.Create)
		api.GET("/courses", c.course.List)
		api.DELETE("/courses/:courseId", c.course.Delete)
		api.GET("/courses/:courseId/documents", c.course.ListDocuments)

		api.POST("/courses/:courseId/exams", c.exam.Create)
		api.GET("/courses/:courseId/exams", c.exam.List)
		api.GET("/exams/:examId/documents", c.exam.ListDocuments)
		api.POST("/exams/:examId/assignments", c.exam.CreateAssignment)
		api.GET("/exams/:examId/assignments", c.exam.ListAssignments)

		api.POST("/documents", c.document.Upload)
		api.DELETE("/documents/:docId", c.document.Delete)

		api.POST("/exams/:examId/problems", c.problem.Create)
		api.GET("/exams/:examId/problems", c.problem.List)
		api.GET("/problems/:problemId", c.problem.Get)
		api.GET("/problems/:problemId/chunks", c.problem.Chunks)
		api.DELETE("/problems/:problemId", c.problem.Delete)

		api.POST("/problems/:problemId/questions", c.question.Ask)
		api.GET("/problems/:problemId/questions", c.question.List)
		api.GET("/questions/:questionId", c.question.Get)

		api.GET("/exams/:examId/rankings/chunks", c.ranking.TopChunks)
		api.GET("/exams/:examId/rankings/documents", c.ranking.TopDocuments)
	}
}
