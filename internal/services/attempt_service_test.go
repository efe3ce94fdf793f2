package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/repositories/memory"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSubmit_SoftFailedGradingScoresHalf(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	quiz := env.seedQuiz(t, "quiz-1",
		questionSpec{questionType: models.QuestionTypeTrueFalse, correctAnswer: "True", topic: "logic"},
		questionSpec{questionType: models.QuestionTypeShortAnswer, correctAnswer: "A function calling itself", topic: "recursion"},
	)

	env.llm.On("Complete", mock.Anything, promptContaining(gradingPrompt)).Return("looks fine to me", nil).Once()
	env.llm.On("Complete", mock.Anything, promptContaining(recommendationPrompt)).Return(`["Revisit recursion basics"]`, nil).Once()

	attempt, err := env.services.Attempt.Start(ctx, quiz.ID, "student-1")
	require.NoError(t, err)
	assert.Equal(t, 2, attempt.TotalQuestions)
	assert.Equal(t, models.AttemptStatusInProgress, attempt.Status)

	result, err := env.services.Attempt.Submit(ctx, attempt.ID, "student-1", &SubmitAttemptRequest{Answers: []AnswerSubmission{
		{QuestionID: "quiz-1-q1", Answer: "True"},
		{QuestionID: "quiz-1-q2", Answer: "when a loop runs forever"},
	}})
	require.NoError(t, err)

	assert.Equal(t, 50, result.Score)
	assert.Equal(t, 1, result.CorrectAnswers)
	assert.Empty(t, result.SkippedQuestionIDs)
	require.Len(t, result.Responses, 2)

	var shortAnswer *models.QuizResponse
	for _, r := range result.Responses {
		if r.QuestionID == "quiz-1-q2" {
			shortAnswer = r
		}
	}
	require.NotNil(t, shortAnswer)
	assert.False(t, shortAnswer.IsCorrect)
	assert.Equal(t, FallbackFeedback("A function calling itself"), shortAnswer.Feedback)
	assert.Equal(t, models.EvaluationFallback, shortAnswer.Method)

	completion, ok := result.Attempt.Completion()
	require.True(t, ok)
	assert.Equal(t, 50, completion.Score)

	require.NotNil(t, result.Report)
	assert.Equal(t, []string{"logic"}, []string(result.Report.StrengthTopics))
	assert.Equal(t, []string{"recursion"}, []string(result.Report.WeaknessTopics))

	stored, err := env.services.Attempt.GetByID(ctx, attempt.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsCompleted())
	assert.Len(t, stored.Responses, 2)

	env.llm.AssertExpectations(t)
	assert.Len(t, env.publisher.EventsOfType(events.EventAttemptStarted), 1)
	assert.Len(t, env.publisher.EventsOfType(events.EventAttemptCompleted), 1)
}

func TestSubmit_TotalIsSnapshotAtStart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	quiz := env.seedQuiz(t, "quiz-1", mcQuestion("go"), mcQuestion("go"))
	env.llm.On("Complete", mock.Anything, promptContaining(recommendationPrompt)).Return("[]", nil)

	attempt, err := env.services.Attempt.Start(ctx, quiz.ID, "student-1")
	require.NoError(t, err)

	time.Sleep(time.Millisecond)
	late, err := env.services.Quiz.AddQuestion(ctx, quiz.ID, &QuestionRequest{
		QuestionText:    "Added later",
		QuestionType:    models.QuestionTypeMultipleChoice,
		Options:         []string{"a", "b"},
		CorrectAnswer:   "a",
		DifficultyLevel: models.DifficultyBeginner,
	}, "instructor-1")
	require.NoError(t, err)

	result, err := env.services.Attempt.Submit(ctx, attempt.ID, "student-1", &SubmitAttemptRequest{Answers: []AnswerSubmission{
		{QuestionID: "quiz-1-q1", Answer: "a"},
		{QuestionID: "quiz-1-q2", Answer: "b"},
		{QuestionID: late.ID, Answer: "a"},
	}})
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalQuestions)
	assert.Equal(t, 2, result.Attempt.TotalQuestions)
	assert.Equal(t, 1, result.CorrectAnswers)
	assert.Equal(t, 50, result.Score)
	assert.Equal(t, []string{late.ID}, result.SkippedQuestionIDs)
	assert.Len(t, result.Responses, 2)
}

func TestSubmit_FailureAfterClaimReopensAttempt(t *testing.T) {
	var faulty *faultyRepository
	env := newTestEnvWith(t, func(repo *memory.Repository) repositories.Repository {
		faulty = &faultyRepository{Repository: repo, countCorrectFails: 1}
		return faulty
	}, nil)
	ctx := context.Background()
	quiz := env.seedQuiz(t, "quiz-1", mcQuestion("go"), mcQuestion("go"))

	attempt, err := env.services.Attempt.Start(ctx, quiz.ID, "student-1")
	require.NoError(t, err)

	req := &SubmitAttemptRequest{Answers: []AnswerSubmission{
		{QuestionID: "quiz-1-q1", Answer: "a"},
		{QuestionID: "quiz-1-q2", Answer: "a"},
	}}

	_, err = env.services.Attempt.Submit(ctx, attempt.ID, "student-1", req)
	require.ErrorIs(t, err, errStorageBlip)

	stored, err := env.repo.Attempt().GetByID(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AttemptStatusInProgress, stored.Status)
	assert.Nil(t, stored.Score)
	assert.Nil(t, stored.CompletedAt)

	responses, err := env.repo.Response().ListByAttempt(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Empty(t, responses)
	assert.Empty(t, env.publisher.EventsOfType(events.EventAttemptCompleted))

	result, err := env.services.Attempt.Submit(ctx, attempt.ID, "student-1", req)
	require.NoError(t, err)
	assert.Equal(t, 100, result.Score)
	assert.Equal(t, 2, result.CorrectAnswers)
	assert.Len(t, result.Responses, 2)
	assert.Len(t, env.publisher.EventsOfType(events.EventAttemptCompleted), 1)
}

func TestSubmit_CancelledCallerStillCompletes(t *testing.T) {
	env := newTestEnv(t)
	quiz := env.seedQuiz(t, "quiz-1", mcQuestion("go"))

	attempt, err := env.services.Attempt.Start(context.Background(), quiz.ID, "student-1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := env.services.Attempt.Submit(ctx, attempt.ID, "student-1", &SubmitAttemptRequest{Answers: []AnswerSubmission{
		{QuestionID: "quiz-1-q1", Answer: "a"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 100, result.Score)

	stored, err := env.repo.Attempt().GetByID(context.Background(), attempt.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsCompleted())
}

func TestSubmit_UnstoredResponseDoesNotScore(t *testing.T) {
	env := newTestEnvWith(t, func(repo *memory.Repository) repositories.Repository {
		return &faultyRepository{Repository: repo, rejectResponseFor: map[string]bool{"quiz-1-q2": true}}
	}, nil)
	ctx := context.Background()
	quiz := env.seedQuiz(t, "quiz-1", mcQuestion("go"), mcQuestion("go"), mcQuestion("go"))

	attempt, err := env.services.Attempt.Start(ctx, quiz.ID, "student-1")
	require.NoError(t, err)

	result, err := env.services.Attempt.Submit(ctx, attempt.ID, "student-1", &SubmitAttemptRequest{Answers: []AnswerSubmission{
		{QuestionID: "quiz-1-q1", Answer: "a"},
		{QuestionID: "quiz-1-q2", Answer: "a"},
		{QuestionID: "quiz-1-q3", Answer: "a"},
	}})
	require.NoError(t, err)

	assert.Equal(t, 2, result.CorrectAnswers)
	assert.Equal(t, 67, result.Score)
	require.Len(t, result.Responses, 2)
	for _, r := range result.Responses {
		assert.NotEqual(t, "quiz-1-q2", r.QuestionID)
	}

	stored, err := env.repo.Attempt().GetByID(ctx, attempt.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsCompleted())
}

func TestSubmit_EvaluationConcurrencyIsBounded(t *testing.T) {
	generator := &gaugedGenerator{}
	env := newTestEnvWith(t, nil, generator)
	ctx := context.Background()

	specs := make([]questionSpec, 6)
	answers := make([]AnswerSubmission, 6)
	for i := range specs {
		specs[i] = questionSpec{questionType: models.QuestionTypeShortAnswer, correctAnswer: "A function calling itself", topic: "recursion"}
		answers[i] = AnswerSubmission{QuestionID: fmt.Sprintf("quiz-1-q%d", i+1), Answer: "a function that calls itself"}
	}
	quiz := env.seedQuiz(t, "quiz-1", specs...)

	attempt, err := env.services.Attempt.Start(ctx, quiz.ID, "student-1")
	require.NoError(t, err)

	result, err := env.services.Attempt.Submit(ctx, attempt.ID, "student-1", &SubmitAttemptRequest{Answers: answers})
	require.NoError(t, err)

	assert.Equal(t, 100, result.Score)
	assert.GreaterOrEqual(t, generator.Peak(), 1)
	assert.LessOrEqual(t, generator.Peak(), 3)
}

func TestSubmit_SkipsUnknownAndDuplicateAnswers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	quiz := env.seedQuiz(t, "quiz-1", mcQuestion("go"), mcQuestion("go"), mcQuestion("go"))
	env.llm.On("Complete", mock.Anything, promptContaining(recommendationPrompt)).Return("[]", nil)

	attempt, err := env.services.Attempt.Start(ctx, quiz.ID, "student-1")
	require.NoError(t, err)

	result, err := env.services.Attempt.Submit(ctx, attempt.ID, "student-1", &SubmitAttemptRequest{Answers: []AnswerSubmission{
		{QuestionID: "quiz-1-q1", Answer: "a"},
		{QuestionID: "other-quiz-q1", Answer: "a"},
		{QuestionID: "quiz-1-q1", Answer: "b"},
		{QuestionID: "quiz-1-q2", Answer: "b"},
	}})
	require.NoError(t, err)

	assert.Equal(t, []string{"other-quiz-q1", "quiz-1-q1"}, result.SkippedQuestionIDs)
	assert.Len(t, result.Responses, 2)
	// 1 of 3 correct; the unanswered question counts against the learner
	assert.Equal(t, 33, result.Score)
	require.NotNil(t, result.Report)
	assert.Equal(t, []string{FallbackRecommendation("go")}, []string(result.Report.Recommendations))
}

func TestSubmit_Rejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	quiz := env.seedQuiz(t, "quiz-1", mcQuestion("go"))

	_, err := env.services.Attempt.Start(ctx, "missing", "student-1")
	assert.ErrorIs(t, err, ErrQuizNotFound)

	_, err = env.services.Attempt.Start(ctx, quiz.ID, " ")
	assert.True(t, IsValidation(err))

	attempt, err := env.services.Attempt.Start(ctx, quiz.ID, "student-1")
	require.NoError(t, err)

	_, err = env.services.Attempt.Submit(ctx, "missing", "student-1", &SubmitAttemptRequest{})
	assert.ErrorIs(t, err, ErrAttemptNotFound)

	_, err = env.services.Attempt.Submit(ctx, attempt.ID, "student-2", &SubmitAttemptRequest{})
	var permErr *PermissionError
	assert.True(t, errors.As(err, &permErr))

	req := &SubmitAttemptRequest{Answers: []AnswerSubmission{{QuestionID: "quiz-1-q1", Answer: "a"}}}
	_, err = env.services.Attempt.Submit(ctx, attempt.ID, "student-1", req)
	require.NoError(t, err)

	_, err = env.services.Attempt.Submit(ctx, attempt.ID, "student-1", req)
	assert.ErrorIs(t, err, ErrAttemptAlreadySubmitted)
}

type failingReports struct{}

func (failingReports) Generate(ctx context.Context, attemptID string) (*models.PerformanceReport, error) {
	return nil, errors.New("report store offline")
}

func (failingReports) GetByAttempt(ctx context.Context, attemptID string) (*models.PerformanceReport, error) {
	return nil, ErrReportNotFound
}

func TestSubmit_ReportFailureKeepsScore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	quiz := env.seedQuiz(t, "quiz-1", mcQuestion("go"))

	logger := testLogger()
	attempts := NewAttemptService(env.repo, NewAnswerEvaluator(env.repo, env.llm, logger), failingReports{},
		env.publisher, validator.New(), logger, Options{})

	attempt, err := attempts.Start(ctx, quiz.ID, "student-1")
	require.NoError(t, err)

	result, err := attempts.Submit(ctx, attempt.ID, "student-1", &SubmitAttemptRequest{Answers: []AnswerSubmission{
		{QuestionID: "quiz-1-q1", Answer: "a"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 100, result.Score)
	assert.Nil(t, result.Report)

	stored, err := env.repo.Attempt().GetByID(ctx, attempt.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsCompleted())
}

func TestSubmit_EmptyQuizScoresZero(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	quiz := env.seedQuiz(t, "quiz-empty")

	attempt, err := env.services.Attempt.Start(ctx, quiz.ID, "student-1")
	require.NoError(t, err)

	result, err := env.services.Attempt.Submit(ctx, attempt.ID, "student-1", &SubmitAttemptRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Score)
	require.NotNil(t, result.Report)
	assert.Equal(t, []string{noAnswersMessage}, []string(result.Report.Recommendations))
}

func TestListByStudent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	quiz := env.seedQuiz(t, "quiz-1", mcQuestion("go"))

	for i := 0; i < 3; i++ {
		_, err := env.services.Attempt.Start(ctx, quiz.ID, "student-1")
		require.NoError(t, err)
	}
	_, err := env.services.Attempt.Start(ctx, quiz.ID, "student-2")
	require.NoError(t, err)

	list, err := env.services.Attempt.ListByStudent(ctx, "student-1", repositories.AttemptFilters{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), list.Total)
	assert.Len(t, list.Attempts, 2)
}
