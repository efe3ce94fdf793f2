package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the domain events emitted by the quiz service
type EventType string

const (
	EventQuizGenerated    EventType = "quiz.generated"
	EventAttemptStarted   EventType = "attempt.started"
	EventAttemptCompleted EventType = "attempt.completed"
	EventReportGenerated  EventType = "report.generated"
)

const (
	eventSource  = "quiz-service"
	eventVersion = "1.0"
)

// QuizEvent is the envelope for every published event
type QuizEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Event payloads

type QuizGeneratedEvent struct {
	QuizID          string  `json:"quiz_id"`
	Title           string  `json:"title"`
	CourseID        *string `json:"course_id,omitempty"`
	ChapterID       *string `json:"chapter_id,omitempty"`
	LectureID       *string `json:"lecture_id,omitempty"`
	Topic           string  `json:"topic"`
	QuestionType    string  `json:"question_type"`
	DifficultyLevel string  `json:"difficulty_level"`
	QuestionCount   int     `json:"question_count"`
}

type AttemptStartedEvent struct {
	AttemptID      string    `json:"attempt_id"`
	QuizID         string    `json:"quiz_id"`
	StudentID      string    `json:"student_id"`
	TotalQuestions int       `json:"total_questions"`
	StartedAt      time.Time `json:"started_at"`
}

type AttemptCompletedEvent struct {
	AttemptID      string    `json:"attempt_id"`
	QuizID         string    `json:"quiz_id"`
	StudentID      string    `json:"student_id"`
	Score          int       `json:"score"`
	CorrectAnswers int       `json:"correct_answers"`
	TotalQuestions int       `json:"total_questions"`
	CompletedAt    time.Time `json:"completed_at"`
}

type ReportGeneratedEvent struct {
	ReportID       string   `json:"report_id"`
	AttemptID      string   `json:"attempt_id"`
	StudentID      string   `json:"student_id"`
	OverallScore   int      `json:"overall_score"`
	StrengthTopics []string `json:"strength_topics"`
	WeaknessTopics []string `json:"weakness_topics"`
}

// NewQuizEvent wraps a payload in an envelope with a fresh id and timestamp
func NewQuizEvent(eventType EventType, data interface{}) *QuizEvent {
	return &QuizEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    eventSource,
		Version:   eventVersion,
		Data:      data,
		Metadata:  make(map[string]interface{}),
	}
}

// WithMetadata adds metadata to the event
func (e *QuizEvent) WithMetadata(key string, value interface{}) *QuizEvent {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}
