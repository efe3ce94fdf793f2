package handlers

import (
	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type HandlerManager struct {
	quizHandler    *QuizHandler
	attemptHandler *AttemptHandler
	reportHandler  *ReportHandler
	identity       IdentityResolver
	logger         utils.Logger
}

func NewHandlerManager(
	serviceManager *services.ServiceManager,
	identity IdentityResolver,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		quizHandler:    NewQuizHandler(serviceManager.Quiz, logger),
		attemptHandler: NewAttemptHandler(serviceManager.Attempt, serviceManager.Export, logger),
		reportHandler:  NewReportHandler(serviceManager.Report, logger),
		identity:       identity,
		logger:         logger,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// Health check endpoint
	router.GET("/health", HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(AuthMiddleware(hm.identity, hm.logger))
	{
		// Quiz routes
		quizzes := v1.Group("/quizzes")
		{
			quizzes.POST("", hm.quizHandler.CreateQuiz)
			quizzes.GET("/:id", hm.quizHandler.GetQuiz)
			quizzes.GET("/:id/questions", hm.quizHandler.ListQuestions)
			quizzes.POST("/:id/questions", hm.quizHandler.AddQuestion)
			quizzes.POST("/:id/attempts", hm.attemptHandler.StartAttempt)
		}

		v1.GET("/courses/:id/quizzes", hm.quizHandler.ListCourseQuizzes)

		// Question routes
		questions := v1.Group("/questions")
		{
			questions.PUT("/:id", hm.quizHandler.UpdateQuestion)
			questions.DELETE("/:id", hm.quizHandler.DeleteQuestion)
		}

		// Attempt routes
		attempts := v1.Group("/attempts")
		{
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.POST("/:id/submit", hm.attemptHandler.SubmitAttempt)
			attempts.GET("/:id/report", hm.reportHandler.GetReport)
			attempts.POST("/:id/report", hm.reportHandler.RegenerateReport)
		}

		// Student-specific routes
		students := v1.Group("/students")
		{
			students.GET("/:id/attempts", hm.attemptHandler.ListStudentAttempts)
			students.GET("/:id/attempts/export", hm.attemptHandler.ExportStudentAttempts)
		}
	}
}
