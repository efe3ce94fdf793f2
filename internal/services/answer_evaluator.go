package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/quiz-service/internal/llm"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

const correctFeedback = "Correct!"

type answerEvaluator struct {
	repo   repositories.Repository
	llm    llm.TextGenerator
	logger *slog.Logger
}

func NewAnswerEvaluator(repo repositories.Repository, generator llm.TextGenerator, logger *slog.Logger) AnswerEvaluator {
	return &answerEvaluator{
		repo:   repo,
		llm:    generator,
		logger: logger,
	}
}

// Evaluate never fails. Free-text grading problems degrade to an incorrect verdict with fallback feedback.
func (e *answerEvaluator) Evaluate(ctx context.Context, question *models.Question, answer string) Evaluation {
	if question.QuestionType.IsExactMatch() {
		return evaluateExactMatch(question, answer)
	}

	eval, err := e.evaluateWithModel(ctx, question, answer)
	if err != nil {
		e.logger.Warn("Falling back on free-text evaluation",
			"question_id", question.ID,
			"question_type", question.QuestionType,
			"error", err)
		return fallbackEvaluation(question)
	}
	return eval
}

func (e *answerEvaluator) EvaluateByID(ctx context.Context, questionID, answer string) (Evaluation, error) {
	question, err := e.repo.Question().GetByID(ctx, questionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return Evaluation{}, ErrQuestionNotFound
		}
		return Evaluation{}, fmt.Errorf("failed to get question: %w", err)
	}
	return e.Evaluate(ctx, question, answer), nil
}

func evaluateExactMatch(question *models.Question, answer string) Evaluation {
	if answer == question.CorrectAnswer {
		return Evaluation{IsCorrect: true, Feedback: correctFeedback, Method: models.EvaluationExactMatch}
	}

	feedback := fmt.Sprintf("Incorrect. The correct answer is: %s.", question.CorrectAnswer)
	if explanation := question.ExplanationText(); explanation != "" {
		feedback += " " + explanation
	}
	return Evaluation{IsCorrect: false, Feedback: feedback, Method: models.EvaluationExactMatch}
}

// FallbackFeedback is the feedback given when a free-text answer could not be graded
func FallbackFeedback(correctAnswer string) string {
	return fmt.Sprintf("Unable to evaluate your answer automatically. The correct answer is: %s", correctAnswer)
}

func fallbackEvaluation(question *models.Question) Evaluation {
	return Evaluation{
		IsCorrect: false,
		Feedback:  FallbackFeedback(question.CorrectAnswer),
		Method:    models.EvaluationFallback,
	}
}

type modelVerdict struct {
	IsCorrect *bool    `json:"isCorrect"`
	Score     *float64 `json:"score"`
	Feedback  string   `json:"feedback"`
}

var errMissingVerdict = errors.New("model verdict has no isCorrect field")

func (e *answerEvaluator) evaluateWithModel(ctx context.Context, question *models.Question, answer string) (Evaluation, error) {
	raw, err := e.llm.Complete(ctx, BuildEvaluationPrompt(question, answer))
	if err != nil {
		return Evaluation{}, err
	}

	verdict, err := llm.DecodeObject[modelVerdict](raw)
	if err != nil {
		return Evaluation{}, err
	}
	if verdict.IsCorrect == nil {
		return Evaluation{}, errMissingVerdict
	}

	eval := Evaluation{
		IsCorrect: *verdict.IsCorrect,
		Feedback:  verdict.Feedback,
		Method:    models.EvaluationAI,
	}
	if verdict.Score != nil {
		score := clamp(*verdict.Score, 0, 1)
		eval.Score = &score
	}
	if eval.Feedback == "" {
		if eval.IsCorrect {
			eval.Feedback = correctFeedback
		} else {
			eval.Feedback = fmt.Sprintf("Incorrect. The correct answer is: %s", question.CorrectAnswer)
		}
	}
	return eval, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
