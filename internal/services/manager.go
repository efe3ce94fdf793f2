package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/cache"
	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/llm"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

// Options tunes the quiz services
type Options struct {
	MaxQuestionsPerQuiz   int
	EvaluationConcurrency int
	QuizCacheTTL          time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxQuestionsPerQuiz <= 0 {
		o.MaxQuestionsPerQuiz = 20
	}
	if o.EvaluationConcurrency <= 0 {
		o.EvaluationConcurrency = 4
	}
	if o.QuizCacheTTL <= 0 {
		o.QuizCacheTTL = 10 * time.Minute
	}
	return o
}

// Dependencies are the collaborators shared by every service
type Dependencies struct {
	Repo      repositories.Repository
	LLM       llm.TextGenerator
	Cache     cache.CacheService
	Publisher events.EventPublisher
	Validator *validator.Validator
	Logger    *slog.Logger
	Options   Options
}

type ServiceManager struct {
	Quiz      QuizService
	Attempt   AttemptService
	Evaluator AnswerEvaluator
	Report    ReportService
	Export    ExportService
}

func NewServiceManager(deps Dependencies) *ServiceManager {
	if deps.Cache == nil {
		deps.Cache = cache.NewNoopCache()
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NewMockEventPublisher(deps.Logger)
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	deps.Options = deps.Options.withDefaults()

	generator := NewQuestionGenerator(deps.LLM, deps.Logger)
	evaluator := NewAnswerEvaluator(deps.Repo, deps.LLM, deps.Logger)
	reports := NewReportService(deps.Repo, deps.LLM, deps.Publisher, deps.Logger)

	return &ServiceManager{
		Quiz:      NewQuizService(deps.Repo, generator, deps.Cache, deps.Publisher, deps.Validator, deps.Logger, deps.Options),
		Attempt:   NewAttemptService(deps.Repo, evaluator, reports, deps.Publisher, deps.Validator, deps.Logger, deps.Options),
		Evaluator: evaluator,
		Report:    reports,
		Export:    NewExportService(deps.Repo, deps.Logger),
	}
}

// publishEvent never fails the caller; publish errors are logged
func publishEvent(ctx context.Context, publisher events.EventPublisher, logger *slog.Logger, eventType events.EventType, data interface{}) {
	event := events.NewQuizEvent(eventType, data)
	if err := publisher.Publish(ctx, event); err != nil {
		logger.Warn("Failed to publish event", "event_type", eventType, "event_id", event.ID, "error", err)
	}
}
