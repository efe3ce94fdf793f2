package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/cache"
	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type quizService struct {
	repo      repositories.Repository
	generator *QuestionGenerator
	cache     cache.CacheService
	publisher events.EventPublisher
	validator *validator.Validator
	logger    *slog.Logger
	svcLogger *ServiceLogger
	opts      Options
	now       func() time.Time
}

func NewQuizService(
	repo repositories.Repository,
	generator *QuestionGenerator,
	cacheService cache.CacheService,
	publisher events.EventPublisher,
	validator *validator.Validator,
	logger *slog.Logger,
	opts Options,
) QuizService {
	return &quizService{
		repo:      repo,
		generator: generator,
		cache:     cacheService,
		publisher: publisher,
		validator: validator,
		logger:    logger,
		svcLogger: NewServiceLogger(logger, "quiz"),
		opts:      opts.withDefaults(),
		now:       time.Now,
	}
}

// ===== CORE QUIZ OPERATIONS =====

func (s *quizService) Create(ctx context.Context, req *CreateQuizRequest, userID string) (quiz *models.Quiz, err error) {
	op := s.svcLogger.WithOperation(ctx, "create_quiz", userID)
	defer func() {
		resourceID := ""
		if quiz != nil {
			resourceID = quiz.ID
		}
		op.LogResult(resourceID, "quiz", err)
	}()

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if req.Count > s.opts.MaxQuestionsPerQuiz {
		return nil, ValidationErrors{*NewValidationError("count",
			fmt.Sprintf("must be at most %d", s.opts.MaxQuestionsPerQuiz), req.Count)}
	}

	drafts, err := s.generator.Generate(ctx, GenerationRequest{
		Topic:           req.Topic,
		Count:           req.Count,
		QuestionType:    req.QuestionType,
		DifficultyLevel: req.DifficultyLevel,
	})
	if err != nil {
		return nil, err
	}

	quiz = &models.Quiz{
		Title:           req.Title,
		CourseID:        nonEmpty(req.CourseID),
		ChapterID:       nonEmpty(req.ChapterID),
		LectureID:       nonEmpty(req.LectureID),
		Topic:           req.Topic,
		QuestionType:    req.QuestionType,
		DifficultyLevel: req.DifficultyLevel,
	}
	quiz.ID = newQuizID(quiz, s.now())

	for i, draft := range drafts {
		quiz.Questions = append(quiz.Questions, models.Question{
			ID:              fmt.Sprintf("%s-q%d", quiz.ID, i+1),
			QuizID:          quiz.ID,
			QuestionText:    draft.QuestionText,
			QuestionType:    draft.QuestionType,
			Options:         draft.Options,
			CorrectAnswer:   draft.CorrectAnswer,
			Explanation:     draft.Explanation,
			DifficultyLevel: draft.DifficultyLevel,
			Topic:           draft.Topic,
			ImageURL:        draft.ImageURL,
			CodeSnippet:     draft.CodeSnippet,
		})
	}

	if err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		return tx.Quiz().Create(ctx, quiz)
	}); err != nil {
		return nil, fmt.Errorf("failed to create quiz: %w", err)
	}
	quiz.QuestionCount = len(quiz.Questions)

	publishEvent(ctx, s.publisher, s.logger, events.EventQuizGenerated, events.QuizGeneratedEvent{
		QuizID:          quiz.ID,
		Title:           quiz.Title,
		CourseID:        quiz.CourseID,
		ChapterID:       quiz.ChapterID,
		LectureID:       quiz.LectureID,
		Topic:           quiz.Topic,
		QuestionType:    string(quiz.QuestionType),
		DifficultyLevel: string(quiz.DifficultyLevel),
		QuestionCount:   quiz.QuestionCount,
	})

	return quiz, nil
}

func (s *quizService) GetByID(ctx context.Context, id string) (*models.Quiz, error) {
	var cached models.Quiz
	err := s.cache.Get(ctx, cache.QuizKey(id), &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("Quiz cache read failed", "quiz_id", id, "error", err)
	}

	quiz, err := s.repo.Quiz().GetByIDWithQuestions(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	if err := s.cache.Set(ctx, cache.QuizKey(id), quiz, s.opts.QuizCacheTTL); err != nil {
		s.logger.Warn("Quiz cache write failed", "quiz_id", id, "error", err)
	}
	return quiz, nil
}

func (s *quizService) ListByCourse(ctx context.Context, courseID string, filters repositories.QuizFilters) (*QuizListResponse, error) {
	filters.Limit, filters.Offset = normalizePage(filters.Limit, filters.Offset)

	quizzes, total, err := s.repo.Quiz().ListByCourse(ctx, courseID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}

	return &QuizListResponse{
		Quizzes: quizzes,
		Total:   total,
		Limit:   filters.Limit,
		Offset:  filters.Offset,
	}, nil
}

// ===== QUESTION OPERATIONS =====

func (s *quizService) ListQuestions(ctx context.Context, quizID string) ([]*models.Question, error) {
	if _, err := s.repo.Quiz().GetByID(ctx, quizID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	questions, err := s.repo.Question().ListByQuiz(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return questions, nil
}

func (s *quizService) AddQuestion(ctx context.Context, quizID string, req *QuestionRequest, userID string) (question *models.Question, err error) {
	op := s.svcLogger.WithOperation(ctx, "add_question", userID)
	defer func() {
		op.LogResult(quizID, "quiz", err)
	}()

	if err := s.validateQuestion(req); err != nil {
		return nil, err
	}

	quiz, err := s.repo.Quiz().GetByID(ctx, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	question = &models.Question{
		ID:     fmt.Sprintf("%s-q-%s", quiz.ID, uuid.NewString()),
		QuizID: quiz.ID,
	}
	applyQuestionRequest(question, req)
	if question.Topic == "" {
		question.Topic = quiz.Topic
	}

	if err := s.repo.Question().Create(ctx, question); err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}

	s.invalidateQuiz(ctx, quiz.ID)
	return question, nil
}

func (s *quizService) UpdateQuestion(ctx context.Context, questionID string, req *QuestionRequest, userID string) (question *models.Question, err error) {
	op := s.svcLogger.WithOperation(ctx, "update_question", userID)
	defer func() {
		op.LogResult(questionID, "question", err)
	}()

	if err := s.validateQuestion(req); err != nil {
		return nil, err
	}

	question, err = s.repo.Question().GetByID(ctx, questionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}

	topic := question.Topic
	applyQuestionRequest(question, req)
	if question.Topic == "" {
		question.Topic = topic
	}

	if err := s.repo.Question().Update(ctx, question); err != nil {
		return nil, fmt.Errorf("failed to update question: %w", err)
	}

	s.invalidateQuiz(ctx, question.QuizID)
	return question, nil
}

// DeleteQuestion refuses to delete a question that any response references
func (s *quizService) DeleteQuestion(ctx context.Context, questionID string, userID string) (err error) {
	op := s.svcLogger.WithOperation(ctx, "delete_question", userID)
	defer func() {
		op.LogResult(questionID, "question", err)
	}()

	question, err := s.repo.Question().GetByID(ctx, questionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("failed to get question: %w", err)
	}

	responses, err := s.repo.Response().CountByQuestion(ctx, questionID)
	if err != nil {
		return fmt.Errorf("failed to count responses: %w", err)
	}
	if responses > 0 {
		return ErrQuestionInUse
	}

	if err := s.repo.Question().Delete(ctx, questionID); err != nil {
		switch {
		case errors.Is(err, gorm.ErrForeignKeyViolated):
			// a response was recorded between the check and the delete
			return ErrQuestionInUse
		case repositories.IsNotFoundError(err):
			return ErrQuestionNotFound
		}
		return fmt.Errorf("failed to delete question: %w", err)
	}

	s.invalidateQuiz(ctx, question.QuizID)
	return nil
}

// ===== HELPERS =====

func (s *quizService) validateQuestion(req *QuestionRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if req.QuestionType == models.QuestionTypeTrueFalse && len(req.Options) == 0 {
		req.Options = []string{"True", "False"}
	}

	switch {
	case req.QuestionType.IsExactMatch():
		if len(req.Options) < 2 {
			return ValidationErrors{*NewValidationError("options", "at least 2 options are required", len(req.Options))}
		}
		if _, ok := matchOption(req.Options, req.CorrectAnswer); !ok {
			return ValidationErrors{*NewValidationError("correct_answer", "must be one of the options", req.CorrectAnswer)}
		}
		req.CorrectAnswer, _ = matchOption(req.Options, req.CorrectAnswer)
	default:
		req.Options = nil
	}
	return nil
}

func (s *quizService) invalidateQuiz(ctx context.Context, quizID string) {
	if err := s.cache.DeletePattern(ctx, cache.QuizPattern(quizID)); err != nil {
		s.logger.Warn("Quiz cache invalidation failed", "quiz_id", quizID, "error", err)
	}
}

func applyQuestionRequest(question *models.Question, req *QuestionRequest) {
	question.QuestionText = req.QuestionText
	question.QuestionType = req.QuestionType
	question.Options = append([]string{}, req.Options...)
	question.CorrectAnswer = req.CorrectAnswer
	question.Explanation = req.Explanation
	question.DifficultyLevel = req.DifficultyLevel
	question.Topic = req.Topic
	question.ImageURL = req.ImageURL
	question.CodeSnippet = req.CodeSnippet
}

// newQuizID names a quiz after its owning scope and creation time
func newQuizID(quiz *models.Quiz, at time.Time) string {
	kind, id := quiz.Scope()
	if kind == "" {
		return fmt.Sprintf("quiz-%d", at.UnixMilli())
	}
	return fmt.Sprintf("quiz-%s-%s-%d", kind, id, at.UnixMilli())
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
