package services

import (
	"context"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

type QuizService interface {
	// Create generates the quiz's questions and persists quiz and questions together
	Create(ctx context.Context, req *CreateQuizRequest, userID string) (*models.Quiz, error)
	GetByID(ctx context.Context, id string) (*models.Quiz, error)
	ListByCourse(ctx context.Context, courseID string, filters repositories.QuizFilters) (*QuizListResponse, error)

	ListQuestions(ctx context.Context, quizID string) ([]*models.Question, error)
	AddQuestion(ctx context.Context, quizID string, req *QuestionRequest, userID string) (*models.Question, error)
	UpdateQuestion(ctx context.Context, questionID string, req *QuestionRequest, userID string) (*models.Question, error)
	DeleteQuestion(ctx context.Context, questionID string, userID string) error
}

type AttemptService interface {
	Start(ctx context.Context, quizID, studentID string) (*models.QuizAttempt, error)
	Submit(ctx context.Context, attemptID, studentID string, req *SubmitAttemptRequest) (*SubmissionResult, error)
	GetByID(ctx context.Context, attemptID string) (*models.QuizAttempt, error)
	ListByStudent(ctx context.Context, studentID string, filters repositories.AttemptFilters) (*AttemptListResponse, error)
}

// AnswerEvaluator grades one answer to one question
type AnswerEvaluator interface {
	Evaluate(ctx context.Context, question *models.Question, answer string) Evaluation
	EvaluateByID(ctx context.Context, questionID, answer string) (Evaluation, error)
}

type ReportService interface {
	// Generate builds the report of a completed attempt, replacing any earlier one
	Generate(ctx context.Context, attemptID string) (*models.PerformanceReport, error)
	GetByAttempt(ctx context.Context, attemptID string) (*models.PerformanceReport, error)
}

type ExportService interface {
	ExportStudentResults(ctx context.Context, studentID string) ([]byte, error)
}
