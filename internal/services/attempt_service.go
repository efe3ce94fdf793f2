package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type attemptService struct {
	repo      repositories.Repository
	evaluator AnswerEvaluator
	reports   ReportService
	publisher events.EventPublisher
	validator *validator.Validator
	logger    *slog.Logger
	svcLogger *ServiceLogger
	opts      Options
	now       func() time.Time
}

func NewAttemptService(
	repo repositories.Repository,
	evaluator AnswerEvaluator,
	reports ReportService,
	publisher events.EventPublisher,
	validator *validator.Validator,
	logger *slog.Logger,
	opts Options,
) AttemptService {
	return &attemptService{
		repo:      repo,
		evaluator: evaluator,
		reports:   reports,
		publisher: publisher,
		validator: validator,
		logger:    logger,
		svcLogger: NewServiceLogger(logger, "attempt"),
		opts:      opts.withDefaults(),
		now:       time.Now,
	}
}

// ===== CORE ATTEMPT OPERATIONS =====

// Start opens an attempt whose question total is fixed to the quiz's current question count
func (s *attemptService) Start(ctx context.Context, quizID, studentID string) (attempt *models.QuizAttempt, err error) {
	op := s.svcLogger.WithOperation(ctx, "start_attempt", studentID)
	defer func() {
		resourceID := quizID
		if attempt != nil {
			resourceID = attempt.ID
		}
		op.LogResult(resourceID, "attempt", err)
	}()

	if strings.TrimSpace(studentID) == "" {
		return nil, ValidationErrors{*NewValidationError("student_id", "is required", studentID)}
	}

	quiz, err := s.repo.Quiz().GetByID(ctx, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	// startedAt is taken before counting so every question the attempt can score is counted
	startedAt := s.now()
	total, err := s.repo.Question().CountByQuiz(ctx, quiz.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count quiz questions: %w", err)
	}

	attempt = models.NewQuizAttempt(uuid.NewString(), quiz.ID, studentID, total, startedAt)
	if err := s.repo.Attempt().Create(ctx, attempt); err != nil {
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}

	publishEvent(ctx, s.publisher, s.logger, events.EventAttemptStarted, events.AttemptStartedEvent{
		AttemptID:      attempt.ID,
		QuizID:         attempt.QuizID,
		StudentID:      attempt.StudentID,
		TotalQuestions: attempt.TotalQuestions,
		StartedAt:      attempt.StartedAt,
	})

	return attempt, nil
}

// Submit evaluates every answer concurrently, scores the attempt from the stored responses
// and generates its performance report.
func (s *attemptService) Submit(ctx context.Context, attemptID, studentID string, req *SubmitAttemptRequest) (result *SubmissionResult, err error) {
	op := s.svcLogger.WithOperation(ctx, "submit_attempt", studentID)
	defer func() {
		op.LogResult(attemptID, "attempt", err)
	}()

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	attempt, err := s.repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if attempt.StudentID != studentID {
		return nil, NewPermissionError(studentID, attemptID, "attempt", "submit", "attempt belongs to another learner")
	}

	claimed, err := s.repo.Attempt().BeginEvaluation(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to begin evaluation: %w", err)
	}
	if !claimed {
		return nil, ErrAttemptAlreadySubmitted
	}
	if err := attempt.BeginEvaluation(); err != nil {
		return nil, fmt.Errorf("failed to begin evaluation: %w", err)
	}

	// A claimed attempt ends completed or released; caller cancellation must not strand it.
	work := context.WithoutCancel(ctx)

	result, err = s.evaluateAndScore(work, attempt, req.Answers)
	if err != nil {
		s.releaseClaim(work, attemptID, err)
		return nil, err
	}

	report, err := s.reports.Generate(work, attemptID)
	if err != nil {
		s.logger.Error("Report generation failed after scoring",
			"attempt_id", attemptID,
			"score", result.Score,
			"error", err)
		return result, nil
	}
	result.Report = report

	return result, nil
}

// evaluateAndScore grades the answers of a claimed attempt and completes it.
// Only questions that existed when the attempt started are scored.
func (s *attemptService) evaluateAndScore(ctx context.Context, attempt *models.QuizAttempt, submitted []AnswerSubmission) (*SubmissionResult, error) {
	questions, err := s.repo.Question().ListByQuiz(ctx, attempt.QuizID)
	if err != nil {
		return nil, fmt.Errorf("failed to load quiz questions: %w", err)
	}

	scored := make([]*models.Question, 0, len(questions))
	for _, q := range questions {
		if attempt.Includes(q.CreatedAt) {
			scored = append(scored, q)
		}
	}

	answers, skipped := s.matchAnswers(attempt.ID, scored, submitted)
	s.evaluateAll(ctx, attempt.ID, answers)

	correct, err := s.repo.Response().CountCorrect(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count correct responses: %w", err)
	}
	responses, err := s.repo.Response().ListByAttempt(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stored responses: %w", err)
	}

	score := models.CalculateScore(correct, attempt.TotalQuestions)
	completedAt := s.now()
	if err := attempt.Complete(score, completedAt); err != nil {
		return nil, fmt.Errorf("failed to complete attempt: %w", err)
	}
	if err := s.repo.Attempt().Complete(ctx, attempt.ID, score, completedAt); err != nil {
		return nil, fmt.Errorf("failed to complete attempt: %w", err)
	}

	publishEvent(ctx, s.publisher, s.logger, events.EventAttemptCompleted, events.AttemptCompletedEvent{
		AttemptID:      attempt.ID,
		QuizID:         attempt.QuizID,
		StudentID:      attempt.StudentID,
		Score:          score,
		CorrectAnswers: correct,
		TotalQuestions: attempt.TotalQuestions,
		CompletedAt:    completedAt,
	})

	return &SubmissionResult{
		Attempt:            attempt,
		Score:              score,
		CorrectAnswers:     correct,
		TotalQuestions:     attempt.TotalQuestions,
		Responses:          responses,
		SkippedQuestionIDs: skipped,
	}, nil
}

// releaseClaim drops the responses stored for a failed submission and reopens the attempt
func (s *attemptService) releaseClaim(ctx context.Context, attemptID string, cause error) {
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Response().DeleteByAttempt(ctx, attemptID); err != nil {
			return fmt.Errorf("failed to delete responses: %w", err)
		}
		released, err := tx.Attempt().ReleaseEvaluation(ctx, attemptID)
		if err != nil {
			return fmt.Errorf("failed to release attempt: %w", err)
		}
		if !released {
			return fmt.Errorf("attempt %s is no longer evaluating", attemptID)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Attempt left in evaluation after failed submission",
			"attempt_id", attemptID,
			"cause", cause,
			"error", err)
		return
	}

	s.logger.Warn("Reopened attempt after failed submission",
		"attempt_id", attemptID,
		"cause", cause)
}

func (s *attemptService) GetByID(ctx context.Context, attemptID string) (*models.QuizAttempt, error) {
	attempt, err := s.repo.Attempt().GetByIDWithResponses(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	return attempt, nil
}

func (s *attemptService) ListByStudent(ctx context.Context, studentID string, filters repositories.AttemptFilters) (*AttemptListResponse, error) {
	filters.Limit, filters.Offset = normalizePage(filters.Limit, filters.Offset)

	attempts, total, err := s.repo.Attempt().ListByStudent(ctx, studentID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	return &AttemptListResponse{
		Attempts: attempts,
		Total:    total,
		Limit:    filters.Limit,
		Offset:   filters.Offset,
	}, nil
}

// ===== EVALUATION =====

type matchedAnswer struct {
	question *models.Question
	answer   string
}

// matchAnswers pairs answers with the quiz's questions. Answers to unknown questions and
// repeated answers to the same question are skipped; the first answer wins.
func (s *attemptService) matchAnswers(attemptID string, questions []*models.Question, submitted []AnswerSubmission) ([]matchedAnswer, []string) {
	byID := make(map[string]*models.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	seen := make(map[string]bool, len(submitted))
	matched := make([]matchedAnswer, 0, len(submitted))
	var skipped []string

	for _, a := range submitted {
		question, ok := byID[a.QuestionID]
		if !ok || seen[a.QuestionID] {
			skipped = append(skipped, a.QuestionID)
			continue
		}
		seen[a.QuestionID] = true
		matched = append(matched, matchedAnswer{question: question, answer: a.Answer})
	}

	if len(skipped) > 0 {
		s.logger.Warn("Skipping answers that do not match the quiz",
			"attempt_id", attemptID,
			"question_ids", skipped)
	}
	return matched, skipped
}

// evaluateAll grades and stores each answer independently. A response that fails to
// persist is logged and left out; scoring counts only what was stored.
func (s *attemptService) evaluateAll(ctx context.Context, attemptID string, answers []matchedAnswer) {
	var g errgroup.Group
	g.SetLimit(s.opts.EvaluationConcurrency)

	for _, a := range answers {
		g.Go(func() error {
			eval := s.evaluator.Evaluate(ctx, a.question, a.answer)

			response := &models.QuizResponse{
				ID:         uuid.NewString(),
				AttemptID:  attemptID,
				QuestionID: a.question.ID,
				Answer:     a.answer,
				IsCorrect:  eval.IsCorrect,
				Feedback:   eval.Feedback,
				Method:     eval.Method,
				AIScore:    eval.Score,
			}
			if err := s.repo.Response().Create(ctx, response); err != nil {
				s.logger.Warn("Failed to persist response",
					"attempt_id", attemptID,
					"question_id", a.question.ID,
					"error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}
