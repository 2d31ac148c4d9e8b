package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campus-exams/exam-service/internal/config"
	"github.com/campus-exams/exam-service/internal/models"
	"github.com/campus-exams/exam-service/internal/repositories"
	"github.com/campus-exams/exam-service/internal/services"
	"github.com/campus-exams/exam-service/internal/utils"
	"github.com/campus-exams/exam-service/internal/validator"
)

type HandlerManager struct {
	examHandler    *ExamHandler
	attemptHandler *AttemptHandler
	gradingHandler *GradingHandler
	authMiddleware *CasdoorAuthMiddleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
	userRepo repositories.UserRepository,
) *HandlerManager {
	return &HandlerManager{
		examHandler:    NewExamHandler(serviceManager.Exam(), serviceManager.Export(), validator, logger),
		attemptHandler: NewAttemptHandler(serviceManager.Attempt(), validator, logger),
		gradingHandler: NewGradingHandler(serviceManager.Grading(), validator, logger),
		authMiddleware: NewCasdoorAuthMiddleware(casdoorConfig, userRepo),
	}
}

// SetupRoutes registers all API routes.
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", HealthCheck)

	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		exams := v1.Group("/exams")
		{
			// Authoring - faculty and hods (admins always pass)
			authoring := hm.authMiddleware.RequireRoleMiddleware(models.RoleFaculty, models.RoleHOD)
			exams.POST("", authoring, hm.examHandler.CreateExam)
			exams.PUT("/:id", authoring, hm.examHandler.UpdateExam)
			exams.DELETE("/:id", authoring, hm.examHandler.DeleteExam)
			exams.PUT("/:id/status", authoring, hm.examHandler.UpdateExamStatus)
			exams.GET("/:id/stats", authoring, hm.examHandler.GetExamStats)
			exams.GET("/:id/export", authoring, hm.examHandler.ExportExamResults)
			exams.GET("/:id/attempts", authoring, hm.attemptHandler.ListExamAttempts)

			// Visibility-filtered reads - all authenticated users
			exams.GET("", hm.examHandler.ListExams)
			exams.GET("/:id", hm.examHandler.GetExam)
		}

		attempts := v1.Group("/attempts")
		{
			student := hm.authMiddleware.RequireRoleMiddleware(models.RoleStudent)
			attempts.POST("/start", student, hm.attemptHandler.StartAttempt)
			attempts.PUT("/:id/answers", student, hm.attemptHandler.SubmitAnswer)
			attempts.POST("/:id/complete", student, hm.attemptHandler.CompleteAttempt)
			attempts.POST("/:id/proctoring-events", student, hm.attemptHandler.RecordProctoringEvent)

			attempts.GET("/mine", hm.attemptHandler.ListMyAttempts)
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
		}

		grading := v1.Group("/grading")
		grading.Use(hm.authMiddleware.RequireRoleMiddleware(models.RoleFaculty, models.RoleHOD))
		{
			grading.PUT("/answers/:id", hm.gradingHandler.GradeAnswer)
			grading.POST("/attempts/:id/regrade", hm.gradingHandler.RegradeAttempt)
			grading.POST("/attempts/mark-reviewed", hm.gradingHandler.MarkReviewed)
		}
	}
}

// HealthCheck is the unauthenticated liveness endpoint.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "exam-service",
	})
}
