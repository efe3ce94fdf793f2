package services

import (
	"context"
	"errors"
	"testing"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestEvaluate_ExactMatchMakesNoCall(t *testing.T) {
	env := newTestEnv(t)
	evaluator := env.services.Evaluator
	ctx := context.Background()

	tests := []struct {
		name     string
		question *models.Question
		answer   string
		correct  bool
		feedback string
	}{
		{
			name:     "multiple choice correct",
			question: &models.Question{QuestionType: models.QuestionTypeMultipleChoice, CorrectAnswer: "b"},
			answer:   "b",
			correct:  true,
			feedback: "Correct!",
		},
		{
			name:     "true false incorrect with explanation",
			question: &models.Question{QuestionType: models.QuestionTypeTrueFalse, CorrectAnswer: "True", Explanation: strPtr("Go 1.18 added generics.")},
			answer:   "False",
			feedback: "Incorrect. The correct answer is: True. Go 1.18 added generics.",
		},
		{
			name:     "comparison is exact",
			question: &models.Question{QuestionType: models.QuestionTypeImageBased, CorrectAnswer: "Bar chart"},
			answer:   "bar chart",
			feedback: "Incorrect. The correct answer is: Bar chart.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval := evaluator.Evaluate(ctx, tt.question, tt.answer)
			assert.Equal(t, tt.correct, eval.IsCorrect)
			assert.Equal(t, tt.answer == tt.question.CorrectAnswer, eval.IsCorrect)
			assert.Equal(t, tt.feedback, eval.Feedback)
			assert.Equal(t, models.EvaluationExactMatch, eval.Method)
		})
	}

	env.llm.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestEvaluate_FreeText(t *testing.T) {
	question := &models.Question{
		ID:            "q1",
		QuestionType:  models.QuestionTypeShortAnswer,
		QuestionText:  "What is a goroutine?",
		CorrectAnswer: "A lightweight thread managed by the Go runtime",
	}
	fallback := FallbackFeedback(question.CorrectAnswer)

	tests := []struct {
		name     string
		output   string
		err      error
		correct  bool
		method   models.EvaluationMethod
		feedback string
		score    *float64
	}{
		{
			name:     "graded",
			output:   `Here is my verdict: {"isCorrect": true, "score": 0.9, "feedback": "Well explained."}`,
			correct:  true,
			method:   models.EvaluationAI,
			feedback: "Well explained.",
			score:    func() *float64 { v := 0.9; return &v }(),
		},
		{
			name:     "score is clamped",
			output:   `{"isCorrect": false, "score": 1.7, "feedback": "Not quite."}`,
			method:   models.EvaluationAI,
			feedback: "Not quite.",
			score:    func() *float64 { v := 1.0; return &v }(),
		},
		{
			name:     "unparseable verdict",
			output:   "The answer looks mostly right to me.",
			method:   models.EvaluationFallback,
			feedback: fallback,
		},
		{
			name:     "verdict without isCorrect",
			output:   `{"score": 1, "feedback": "Great"}`,
			method:   models.EvaluationFallback,
			feedback: fallback,
		},
		{
			name:     "service failure",
			err:      errors.New("deadline exceeded"),
			method:   models.EvaluationFallback,
			feedback: fallback,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.llm.On("Complete", mock.Anything, promptContaining(gradingPrompt)).Return(tt.output, tt.err).Once()

			eval := env.services.Evaluator.Evaluate(context.Background(), question, "a cheap thread")
			assert.Equal(t, tt.correct, eval.IsCorrect)
			assert.Equal(t, tt.method, eval.Method)
			assert.Equal(t, tt.feedback, eval.Feedback)
			if tt.score == nil {
				assert.Nil(t, eval.Score)
			} else {
				require.NotNil(t, eval.Score)
				assert.InDelta(t, *tt.score, *eval.Score, 1e-9)
			}
			env.llm.AssertExpectations(t)
		})
	}
}

func TestEvaluateByID(t *testing.T) {
	env := newTestEnv(t)
	env.seedQuiz(t, "quiz-1", mcQuestion("Go"))
	ctx := context.Background()

	eval, err := env.services.Evaluator.EvaluateByID(ctx, "quiz-1-q1", "a")
	require.NoError(t, err)
	assert.True(t, eval.IsCorrect)

	_, err = env.services.Evaluator.EvaluateByID(ctx, "missing", "a")
	assert.ErrorIs(t, err, ErrQuestionNotFound)
	assert.True(t, IsNotFound(err))
}
