package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/cache"
	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func arraysRequest() *CreateQuizRequest {
	course := "c1"
	return &CreateQuizRequest{
		Title:           "Arrays basics",
		CourseID:        &course,
		Topic:           "Arrays",
		QuestionType:    models.QuestionTypeMultipleChoice,
		DifficultyLevel: models.DifficultyBeginner,
		Count:           3,
	}
}

func TestCreateQuiz(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.llm.On("Complete", mock.Anything, promptContaining("Topic: Arrays")).Return(arraysQuizOutput, nil).Once()

	quiz, err := env.services.Quiz.Create(ctx, arraysRequest(), "instructor-1")
	require.NoError(t, err)

	assert.Regexp(t, `^quiz-course-c1-\d+$`, quiz.ID)
	assert.Equal(t, 3, quiz.QuestionCount)
	require.Len(t, quiz.Questions, 3)
	for i, q := range quiz.Questions {
		assert.True(t, strings.HasSuffix(q.ID, []string{"-q1", "-q2", "-q3"}[i]))
		assert.Equal(t, models.QuestionTypeMultipleChoice, q.QuestionType)
		assert.Equal(t, models.DifficultyBeginner, q.DifficultyLevel)
		assert.Len(t, q.Options, 4)
		assert.Contains(t, []string(q.Options), q.CorrectAnswer)

		stored, err := env.repo.Question().GetByID(ctx, q.ID)
		require.NoError(t, err)
		assert.Equal(t, q.QuestionType, stored.QuestionType)
		assert.Equal(t, q.Options, stored.Options)
		assert.Equal(t, q.CorrectAnswer, stored.CorrectAnswer)
	}

	fetched, err := env.services.Quiz.GetByID(ctx, quiz.ID)
	require.NoError(t, err)
	assert.Len(t, fetched.Questions, 3)

	list, err := env.services.Quiz.ListByCourse(ctx, "c1", repositories.QuizFilters{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Total)
	assert.Equal(t, 3, list.Quizzes[0].QuestionCount)

	assert.Len(t, env.publisher.EventsOfType(events.EventQuizGenerated), 1)
	env.llm.AssertExpectations(t)
}

func TestCreateQuiz_UnscopedID(t *testing.T) {
	env := newTestEnv(t)
	env.llm.On("Complete", mock.Anything, mock.Anything).Return(arraysQuizOutput, nil).Once()

	req := arraysRequest()
	req.CourseID = nil
	quiz, err := env.services.Quiz.Create(context.Background(), req, "instructor-1")
	require.NoError(t, err)
	assert.Regexp(t, `^quiz-\d+$`, quiz.ID)
}

func TestCreateQuiz_BlankScopesAreIgnored(t *testing.T) {
	blank := "   "
	chapter := " ch1 "

	env := newTestEnv(t)
	env.llm.On("Complete", mock.Anything, mock.Anything).Return(arraysQuizOutput, nil).Once()

	req := arraysRequest()
	req.CourseID = &blank
	req.ChapterID = &chapter
	quiz, err := env.services.Quiz.Create(context.Background(), req, "instructor-1")
	require.NoError(t, err)

	assert.Nil(t, quiz.CourseID)
	require.NotNil(t, quiz.ChapterID)
	assert.Equal(t, "ch1", *quiz.ChapterID)
	assert.Nil(t, quiz.LectureID)
	assert.Regexp(t, `^quiz-chapter-ch1-\d+$`, quiz.ID)
}

func TestCreateQuiz_RejectedBeforeGeneration(t *testing.T) {
	chapter := "ch1"

	tests := []struct {
		name   string
		mutate func(*CreateQuizRequest)
	}{
		{name: "two scopes", mutate: func(r *CreateQuizRequest) { r.ChapterID = &chapter }},
		{name: "count above limit", mutate: func(r *CreateQuizRequest) { r.Count = 11 }},
		{name: "zero count", mutate: func(r *CreateQuizRequest) { r.Count = 0 }},
		{name: "unknown type", mutate: func(r *CreateQuizRequest) { r.QuestionType = "essay" }},
		{name: "missing topic", mutate: func(r *CreateQuizRequest) { r.Topic = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			req := arraysRequest()
			tt.mutate(req)

			_, err := env.services.Quiz.Create(context.Background(), req, "instructor-1")
			assert.True(t, IsValidation(err), "got %v", err)
			env.llm.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateQuiz_GenerationFailurePersistsNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.llm.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("quota exceeded")).Once()

	_, err := env.services.Quiz.Create(ctx, arraysRequest(), "instructor-1")
	assert.True(t, IsGeneration(err))

	list, err := env.services.Quiz.ListByCourse(ctx, "c1", repositories.QuizFilters{})
	require.NoError(t, err)
	assert.Zero(t, list.Total)
	assert.Empty(t, env.publisher.GetPublishedEvents())
}

func TestQuestionManagement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	quiz := env.seedQuiz(t, "quiz-1", mcQuestion("loops"))

	added, err := env.services.Quiz.AddQuestion(ctx, quiz.ID, &QuestionRequest{
		QuestionText:    "Go has a while keyword.",
		QuestionType:    models.QuestionTypeTrueFalse,
		CorrectAnswer:   "false",
		DifficultyLevel: models.DifficultyBeginner,
	}, "instructor-1")
	require.NoError(t, err)
	assert.Equal(t, "Programming", added.Topic)
	assert.Equal(t, []string{"True", "False"}, []string(added.Options))
	assert.Equal(t, "False", added.CorrectAnswer)

	_, err = env.services.Quiz.AddQuestion(ctx, quiz.ID, &QuestionRequest{
		QuestionText:    "Pick one",
		QuestionType:    models.QuestionTypeMultipleChoice,
		Options:         []string{"a", "b"},
		CorrectAnswer:   "c",
		DifficultyLevel: models.DifficultyBeginner,
	}, "instructor-1")
	assert.True(t, IsValidation(err))

	_, err = env.services.Quiz.AddQuestion(ctx, "missing", &QuestionRequest{
		QuestionText:    "Explain defer",
		QuestionType:    models.QuestionTypeShortAnswer,
		CorrectAnswer:   "Runs at function return",
		DifficultyLevel: models.DifficultyBeginner,
	}, "instructor-1")
	assert.ErrorIs(t, err, ErrQuizNotFound)

	updated, err := env.services.Quiz.UpdateQuestion(ctx, "quiz-1-q1", &QuestionRequest{
		QuestionText:    "Explain range",
		QuestionType:    models.QuestionTypeShortAnswer,
		Options:         []string{"ignored"},
		CorrectAnswer:   "Iterates over a collection",
		DifficultyLevel: models.DifficultyIntermediate,
	}, "instructor-1")
	require.NoError(t, err)
	assert.Equal(t, "loops", updated.Topic)
	assert.Empty(t, updated.Options)
	assert.Equal(t, quiz.ID, updated.QuizID)

	_, err = env.services.Quiz.UpdateQuestion(ctx, "missing", &QuestionRequest{
		QuestionText: "x", QuestionType: models.QuestionTypeShortAnswer, CorrectAnswer: "y", DifficultyLevel: models.DifficultyBeginner,
	}, "instructor-1")
	assert.ErrorIs(t, err, ErrQuestionNotFound)

	questions, err := env.services.Quiz.ListQuestions(ctx, quiz.ID)
	require.NoError(t, err)
	assert.Len(t, questions, 2)

	_, err = env.services.Quiz.ListQuestions(ctx, "missing")
	assert.ErrorIs(t, err, ErrQuizNotFound)
}

func TestDeleteQuestion_InUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	quiz := env.seedQuiz(t, "quiz-1", mcQuestion("go"), mcQuestion("go"))
	attempt := env.completedAttempt(t, quiz, []bool{true})

	err := env.services.Quiz.DeleteQuestion(ctx, "quiz-1-q1", "instructor-1")
	assert.ErrorIs(t, err, ErrQuestionInUse)
	assert.True(t, IsConflict(err))

	question, err := env.repo.Question().GetByID(ctx, "quiz-1-q1")
	require.NoError(t, err)
	assert.Equal(t, "a", question.CorrectAnswer)
	responses, err := env.repo.Response().ListByAttempt(ctx, attempt.ID)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Equal(t, "quiz-1-q1", responses[0].QuestionID)

	require.NoError(t, env.services.Quiz.DeleteQuestion(ctx, "quiz-1-q2", "instructor-1"))
	_, err = env.repo.Question().GetByID(ctx, "quiz-1-q2")
	assert.True(t, repositories.IsNotFoundError(err))

	err = env.services.Quiz.DeleteQuestion(ctx, "quiz-1-q2", "instructor-1")
	assert.ErrorIs(t, err, ErrQuestionNotFound)
}

// mapCache is an in-process CacheService that records invalidations
type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	deleted []string
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string][]byte)}
}

func (c *mapCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = data
	return nil
}

func (c *mapCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	data, ok := c.entries[key]
	c.mu.Unlock()
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (c *mapCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *mapCache) DeletePattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	c.deleted = append(c.deleted, pattern)
	return nil
}

func TestGetByID_ReadThroughCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	logger := testLogger()
	quizCache := newMapCache()
	quizzes := NewQuizService(env.repo, NewQuestionGenerator(env.llm, logger), quizCache, env.publisher, validator.New(), logger, Options{})

	quiz := env.seedQuiz(t, "quiz-1", mcQuestion("go"))

	_, err := quizzes.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrQuizNotFound)

	first, err := quizzes.GetByID(ctx, quiz.ID)
	require.NoError(t, err)
	assert.Len(t, first.Questions, 1)
	assert.Contains(t, quizCache.entries, cache.QuizKey(quiz.ID))

	_, err = quizzes.AddQuestion(ctx, quiz.ID, &QuestionRequest{
		QuestionText: "Explain defer", QuestionType: models.QuestionTypeShortAnswer,
		CorrectAnswer: "Runs at return", DifficultyLevel: models.DifficultyBeginner,
	}, "instructor-1")
	require.NoError(t, err)
	assert.Equal(t, []string{cache.QuizPattern(quiz.ID)}, quizCache.deleted)
	assert.NotContains(t, quizCache.entries, cache.QuizKey(quiz.ID))

	second, err := quizzes.GetByID(ctx, quiz.ID)
	require.NoError(t, err)
	assert.Len(t, second.Questions, 2)
}
