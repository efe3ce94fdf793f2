package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/llm"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/repositories/memory"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockTextGenerator is a testify mock of llm.TextGenerator
type MockTextGenerator struct {
	mock.Mock
}

func (m *MockTextGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func promptContaining(fragment string) interface{} {
	return mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, fragment)
	})
}

const (
	gradingPrompt        = "You are grading"
	recommendationPrompt = "study recommendations"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	repo      *memory.Repository
	llm       *MockTextGenerator
	publisher *events.MockEventPublisher
	services  *ServiceManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, nil, nil)
}

// newTestEnvWith builds the services over wrap(repo) when wrap is set, and over
// generator instead of the testify mock when generator is set
func newTestEnvWith(t *testing.T, wrap func(*memory.Repository) repositories.Repository, generator llm.TextGenerator) *testEnv {
	t.Helper()

	logger := testLogger()
	env := &testEnv{
		repo:      memory.NewRepository(),
		llm:       &MockTextGenerator{},
		publisher: events.NewMockEventPublisher(logger),
	}

	var repo repositories.Repository = env.repo
	if wrap != nil {
		repo = wrap(env.repo)
	}
	var text llm.TextGenerator = env.llm
	if generator != nil {
		text = generator
	}

	env.services = NewServiceManager(Dependencies{
		Repo:      repo,
		LLM:       text,
		Publisher: env.publisher,
		Logger:    logger,
		Options:   Options{MaxQuestionsPerQuiz: 10, EvaluationConcurrency: 3},
	})
	return env
}

// faultyRepository injects storage failures into the memory repository
type faultyRepository struct {
	*memory.Repository

	mu                sync.Mutex
	rejectResponseFor map[string]bool // question ids whose responses cannot be stored
	countCorrectFails int             // number of CountCorrect calls that fail
}

func (r *faultyRepository) Response() repositories.ResponseRepository {
	return &faultyResponses{ResponseRepository: r.Repository.Response(), repo: r}
}

func (r *faultyRepository) WithTransaction(ctx context.Context, fn func(tx repositories.Repository) error) error {
	return r.Repository.WithTransaction(ctx, func(repositories.Repository) error {
		return fn(r)
	})
}

type faultyResponses struct {
	repositories.ResponseRepository
	repo *faultyRepository
}

var errStorageBlip = errors.New("storage blip")

func (f *faultyResponses) Create(ctx context.Context, response *models.QuizResponse) error {
	if f.repo.rejectResponseFor[response.QuestionID] {
		return errStorageBlip
	}
	return f.ResponseRepository.Create(ctx, response)
}

func (f *faultyResponses) CountCorrect(ctx context.Context, attemptID string) (int, error) {
	f.repo.mu.Lock()
	if f.repo.countCorrectFails > 0 {
		f.repo.countCorrectFails--
		f.repo.mu.Unlock()
		return 0, errStorageBlip
	}
	f.repo.mu.Unlock()
	return f.ResponseRepository.CountCorrect(ctx, attemptID)
}

// gaugedGenerator grades every answer correct and records the peak number of concurrent calls
type gaugedGenerator struct {
	mu       sync.Mutex
	inFlight int
	peak     int
}

func (g *gaugedGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.inFlight++
	if g.inFlight > g.peak {
		g.peak = g.inFlight
	}
	g.mu.Unlock()

	time.Sleep(20 * time.Millisecond)

	g.mu.Lock()
	g.inFlight--
	g.mu.Unlock()
	return `{"isCorrect": true, "feedback": "Well explained."}`, nil
}

func (g *gaugedGenerator) Peak() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.peak
}

type questionSpec struct {
	questionType  models.QuestionType
	correctAnswer string
	topic         string
}

func mcQuestion(topic string) questionSpec {
	return questionSpec{questionType: models.QuestionTypeMultipleChoice, correctAnswer: "a", topic: topic}
}

// seedQuiz stores a quiz with one question per entry; question ids are <quizID>-q<n>
func (e *testEnv) seedQuiz(t *testing.T, quizID string, specs ...questionSpec) *models.Quiz {
	t.Helper()

	quiz := &models.Quiz{
		ID:              quizID,
		Title:           "Quiz " + quizID,
		Topic:           "Programming",
		QuestionType:    models.QuestionTypeMultipleChoice,
		DifficultyLevel: models.DifficultyBeginner,
	}
	for i, spec := range specs {
		q := models.Question{
			ID:              fmt.Sprintf("%s-q%d", quizID, i+1),
			QuestionText:    fmt.Sprintf("Question %d", i+1),
			QuestionType:    spec.questionType,
			CorrectAnswer:   spec.correctAnswer,
			DifficultyLevel: models.DifficultyBeginner,
			Topic:           spec.topic,
		}
		switch spec.questionType {
		case models.QuestionTypeMultipleChoice:
			q.Options = []string{"a", "b", "c", "d"}
		case models.QuestionTypeTrueFalse:
			q.Options = []string{"True", "False"}
		}
		quiz.Questions = append(quiz.Questions, q)
	}
	require.NoError(t, e.repo.Quiz().Create(context.Background(), quiz))
	return quiz
}

// completedAttempt stores an attempt whose responses have the given correctness per question
func (e *testEnv) completedAttempt(t *testing.T, quiz *models.Quiz, correct []bool) *models.QuizAttempt {
	t.Helper()
	ctx := context.Background()

	attempt := models.NewQuizAttempt("attempt-"+quiz.ID, quiz.ID, "student-1", len(quiz.Questions), time.Now())
	require.NoError(t, e.repo.Attempt().Create(ctx, attempt))

	right := 0
	for i, ok := range correct {
		if ok {
			right++
		}
		require.NoError(t, e.repo.Response().Create(ctx, &models.QuizResponse{
			ID:         fmt.Sprintf("%s-r%d", attempt.ID, i+1),
			AttemptID:  attempt.ID,
			QuestionID: quiz.Questions[i].ID,
			IsCorrect:  ok,
		}))
	}

	claimed, err := e.repo.Attempt().BeginEvaluation(ctx, attempt.ID)
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, e.repo.Attempt().Complete(ctx, attempt.ID, models.CalculateScore(right, len(correct)), time.Now()))
	return attempt
}
