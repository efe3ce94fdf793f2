package services

import (
	"github.com/SAP-F-2025/quiz-service/internal/models"
)

// ===== QUIZ REQUESTS =====

type CreateQuizRequest struct {
	Title           string                 `json:"title" validate:"required,max=200"`
	CourseID        *string                `json:"course_id,omitempty" validate:"omitempty,max=64"`
	ChapterID       *string                `json:"chapter_id,omitempty" validate:"omitempty,max=64"`
	LectureID       *string                `json:"lecture_id,omitempty" validate:"omitempty,max=64"`
	Topic           string                 `json:"topic" validate:"required,max=2000"`
	QuestionType    models.QuestionType    `json:"question_type" validate:"required,question_type"`
	DifficultyLevel models.DifficultyLevel `json:"difficulty_level" validate:"required,difficulty_level"`
	Count           int                    `json:"count" validate:"required,min=1"`
}

func (r *CreateQuizRequest) ScopeIDs() []*string {
	return []*string{r.CourseID, r.ChapterID, r.LectureID}
}

// QuestionRequest adds or replaces a question by hand
type QuestionRequest struct {
	QuestionText    string                 `json:"question_text" validate:"required,max=5000"`
	QuestionType    models.QuestionType    `json:"question_type" validate:"required,question_type"`
	Options         []string               `json:"options" validate:"omitempty,max=10,dive,required,max=1000"`
	CorrectAnswer   string                 `json:"correct_answer" validate:"required,max=5000"`
	Explanation     *string                `json:"explanation,omitempty" validate:"omitempty,max=5000"`
	DifficultyLevel models.DifficultyLevel `json:"difficulty_level" validate:"required,difficulty_level"`
	Topic           string                 `json:"topic,omitempty" validate:"omitempty,max=200"`
	ImageURL        *string                `json:"image_url,omitempty" validate:"omitempty,url"`
	CodeSnippet     *string                `json:"code_snippet,omitempty"`
}

type QuizListResponse struct {
	Quizzes []*models.Quiz `json:"quizzes"`
	Total   int64          `json:"total"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
}

// ===== ATTEMPT REQUESTS =====

type AnswerSubmission struct {
	QuestionID string `json:"question_id" validate:"required"`
	Answer     string `json:"answer"`
}

type SubmitAttemptRequest struct {
	Answers []AnswerSubmission `json:"answers" validate:"dive"`
}

// SubmissionResult is the scored outcome of a submission.
// Report is nil when report generation failed; the attempt is scored regardless.
type SubmissionResult struct {
	Attempt            *models.QuizAttempt       `json:"attempt"`
	Score              int                       `json:"score"`
	CorrectAnswers     int                       `json:"correct_answers"`
	TotalQuestions     int                       `json:"total_questions"`
	Responses          []*models.QuizResponse    `json:"responses"`
	SkippedQuestionIDs []string                  `json:"skipped_question_ids,omitempty"`
	Report             *models.PerformanceReport `json:"report,omitempty"`
}

type AttemptListResponse struct {
	Attempts []*models.QuizAttempt `json:"attempts"`
	Total    int64                 `json:"total"`
	Limit    int                   `json:"limit"`
	Offset   int                   `json:"offset"`
}

// ===== EVALUATION =====

// Evaluation is the verdict on one answer
type Evaluation struct {
	IsCorrect bool                    `json:"is_correct"`
	Feedback  string                  `json:"feedback"`
	Method    models.EvaluationMethod `json:"method"`
	Score     *float64                `json:"score,omitempty"`
}
