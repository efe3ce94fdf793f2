package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"gorm.io/gorm"
)

// Repository aggregates the per-entity repositories of the quiz service
type Repository interface {
	Quiz() QuizRepository
	Question() QuestionRepository
	Attempt() AttemptRepository
	Response() ResponseRepository
	Report() ReportRepository

	// WithTransaction runs fn against a repository bound to a single transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	WithTransaction(ctx context.Context, fn func(tx Repository) error) error
}

// ===== SHARED FILTER STRUCTS =====

type QuizFilters struct {
	Limit     int    `json:"limit"`
	Offset    int    `json:"offset"`
	SortOrder string `json:"sort_order"` // "asc", "desc" by created_at
}

type AttemptFilters struct {
	QuizID    *string               `json:"quiz_id"`
	Status    *models.AttemptStatus `json:"status"`
	Limit     int                   `json:"limit"`
	Offset    int                   `json:"offset"`
	SortOrder string                `json:"sort_order"` // "asc", "desc" by started_at
}

// ===== ERRORS =====

// IsNotFoundError reports whether err means the requested row does not exist
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// ===== ENTITY REPOSITORIES =====

// QuizRepository persists quizzes. Create stores the quiz together with its Questions.
type QuizRepository interface {
	Create(ctx context.Context, quiz *models.Quiz) error
	GetByID(ctx context.Context, id string) (*models.Quiz, error)
	GetByIDWithQuestions(ctx context.Context, id string) (*models.Quiz, error)
	ListByCourse(ctx context.Context, courseID string, filters QuizFilters) ([]*models.Quiz, int64, error)
}

type QuestionRepository interface {
	Create(ctx context.Context, question *models.Question) error
	GetByID(ctx context.Context, id string) (*models.Question, error)
	Update(ctx context.Context, question *models.Question) error
	Delete(ctx context.Context, id string) error
	ListByQuiz(ctx context.Context, quizID string) ([]*models.Question, error)
	CountByQuiz(ctx context.Context, quizID string) (int, error)
}

type AttemptRepository interface {
	Create(ctx context.Context, attempt *models.QuizAttempt) error
	GetByID(ctx context.Context, id string) (*models.QuizAttempt, error)
	// GetByIDWithResponses preloads responses joined to their questions, and the quiz
	GetByIDWithResponses(ctx context.Context, id string) (*models.QuizAttempt, error)
	ListByStudent(ctx context.Context, studentID string, filters AttemptFilters) ([]*models.QuizAttempt, int64, error)

	// BeginEvaluation moves an attempt from in_progress to evaluating.
	// It reports false when the attempt was not in_progress.
	BeginEvaluation(ctx context.Context, id string) (bool, error)
	// ReleaseEvaluation moves an evaluating attempt back to in_progress.
	// It reports false when the attempt was not evaluating.
	ReleaseEvaluation(ctx context.Context, id string) (bool, error)
	// Complete writes score and completion time to an evaluating attempt.
	Complete(ctx context.Context, id string, score int, completedAt time.Time) error
	// ListOpenBefore returns attempts started before cutoff that never completed
	ListOpenBefore(ctx context.Context, cutoff time.Time, limit int) ([]*models.QuizAttempt, error)
}

type ResponseRepository interface {
	Create(ctx context.Context, response *models.QuizResponse) error
	ListByAttempt(ctx context.Context, attemptID string) ([]*models.QuizResponse, error)
	CountCorrect(ctx context.Context, attemptID string) (int, error)
	DeleteByAttempt(ctx context.Context, attemptID string) error
	CountByQuestion(ctx context.Context, questionID string) (int64, error)
}

type ReportRepository interface {
	// Upsert creates the attempt's report or replaces the existing one
	Upsert(ctx context.Context, report *models.PerformanceReport) error
	GetByAttempt(ctx context.Context, attemptID string) (*models.PerformanceReport, error)
}
