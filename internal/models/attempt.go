package models

import (
	"errors"
	"fmt"
	"time"
)

type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "in_progress"
	AttemptStatusEvaluating AttemptStatus = "evaluating"
	AttemptStatusCompleted  AttemptStatus = "completed"
)

var ErrInvalidTransition = errors.New("invalid attempt status transition")

// QuizAttempt is one learner's pass through a quiz.
//
// Score and CompletedAt are written only by Complete, so a completed attempt always
// carries both and an open attempt carries neither.
type QuizAttempt struct {
	ID             string        `json:"id" gorm:"primaryKey;size:64"`
	QuizID         string        `json:"quiz_id" gorm:"size:128;not null;index"`
	StudentID      string        `json:"student_id" gorm:"size:64;not null;index"`
	TotalQuestions int           `json:"total_questions" gorm:"not null"`
	Status         AttemptStatus `json:"status" gorm:"size:32;not null;default:in_progress;index"`
	StartedAt      time.Time     `json:"started_at" gorm:"not null"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
	Score          *int          `json:"score,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Quiz      *Quiz          `json:"quiz,omitempty" gorm:"foreignKey:QuizID"`
	Responses []QuizResponse `json:"responses,omitempty" gorm:"foreignKey:AttemptID;constraint:OnDelete:CASCADE"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

// Completion is the terminal state of a scored attempt.
type Completion struct {
	Score       int       `json:"score"`
	CompletedAt time.Time `json:"completed_at"`
}

// NewQuizAttempt fixes the attempt's question total at start.
// Questions added to the quiz later are not part of the attempt.
func NewQuizAttempt(id, quizID, studentID string, totalQuestions int, startedAt time.Time) *QuizAttempt {
	return &QuizAttempt{
		ID:             id,
		QuizID:         quizID,
		StudentID:      studentID,
		TotalQuestions: totalQuestions,
		Status:         AttemptStatusInProgress,
		StartedAt:      startedAt,
	}
}

func (a *QuizAttempt) BeginEvaluation() error {
	if a.Status != AttemptStatusInProgress {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, AttemptStatusEvaluating)
	}
	a.Status = AttemptStatusEvaluating
	return nil
}

// ReleaseEvaluation returns an evaluating attempt to in_progress so it can be submitted again.
func (a *QuizAttempt) ReleaseEvaluation() error {
	if a.Status != AttemptStatusEvaluating {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, AttemptStatusInProgress)
	}
	a.Status = AttemptStatusInProgress
	return nil
}

// Includes reports whether a question created at createdAt belongs to the attempt
func (a *QuizAttempt) Includes(createdAt time.Time) bool {
	return !createdAt.After(a.StartedAt)
}

func (a *QuizAttempt) Complete(score int, completedAt time.Time) error {
	if a.Status != AttemptStatusEvaluating {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, AttemptStatusCompleted)
	}
	if score < 0 || score > 100 {
		return fmt.Errorf("score %d out of range", score)
	}
	a.Status = AttemptStatusCompleted
	a.Score = &score
	a.CompletedAt = &completedAt
	return nil
}

// Completion returns the score and completion time of a completed attempt.
func (a *QuizAttempt) Completion() (Completion, bool) {
	if a.Status != AttemptStatusCompleted || a.Score == nil || a.CompletedAt == nil {
		return Completion{}, false
	}
	return Completion{Score: *a.Score, CompletedAt: *a.CompletedAt}, true
}

func (a *QuizAttempt) IsCompleted() bool {
	_, ok := a.Completion()
	return ok
}

// CalculateScore is round(correct / total * 100). An attempt with no questions scores 0.
// A correct count above total yields a score above 100, which Complete rejects.
func CalculateScore(correct, total int) int {
	if total <= 0 {
		return 0
	}
	// integer rounding, half away from zero
	return (correct*200 + total) / (total * 2)
}

type EvaluationMethod string

const (
	EvaluationExactMatch EvaluationMethod = "exact_match"
	EvaluationAI         EvaluationMethod = "ai"
	EvaluationFallback   EvaluationMethod = "fallback"
)

// QuizResponse is one evaluated answer. There is at most one per (attempt, question).
type QuizResponse struct {
	ID         string           `json:"id" gorm:"primaryKey;size:64"`
	AttemptID  string           `json:"attempt_id" gorm:"size:64;not null;uniqueIndex:idx_response_attempt_question"`
	QuestionID string           `json:"question_id" gorm:"size:160;not null;uniqueIndex:idx_response_attempt_question;index"`
	Answer     string           `json:"answer" gorm:"type:text"`
	IsCorrect  bool             `json:"is_correct" gorm:"not null;default:false"`
	Feedback   string           `json:"feedback" gorm:"type:text"`
	Method     EvaluationMethod `json:"method" gorm:"size:32"`
	AIScore    *float64         `json:"ai_score,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	// Relations
	Question *Question `json:"question,omitempty" gorm:"foreignKey:QuestionID;constraint:OnDelete:RESTRICT"`
}

func (QuizResponse) TableName() string {
	return "quiz_responses"
}
