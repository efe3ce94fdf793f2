package models

import (
	"time"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeTrueFalse      QuestionType = "true_false"
	QuestionTypeShortAnswer    QuestionType = "short_answer"
	QuestionTypeCodeChallenge  QuestionType = "code_challenge"
	QuestionTypeImageBased     QuestionType = "image_based"
)

// QuestionTypes lists every supported question type.
var QuestionTypes = []QuestionType{
	QuestionTypeMultipleChoice,
	QuestionTypeTrueFalse,
	QuestionTypeShortAnswer,
	QuestionTypeCodeChallenge,
	QuestionTypeImageBased,
}

// IsExactMatch reports whether answers to this type are graded by string equality
// against the stored correct answer. Free-text types are graded by the generative service.
func (t QuestionType) IsExactMatch() bool {
	switch t {
	case QuestionTypeMultipleChoice, QuestionTypeTrueFalse, QuestionTypeImageBased:
		return true
	}
	return false
}

func (t QuestionType) IsValid() bool {
	for _, qt := range QuestionTypes {
		if qt == t {
			return true
		}
	}
	return false
}

type DifficultyLevel string

const (
	DifficultyBeginner     DifficultyLevel = "BEGINNER"
	DifficultyIntermediate DifficultyLevel = "INTERMEDIATE"
	DifficultyAdvanced     DifficultyLevel = "ADVANCED"
)

var DifficultyLevels = []DifficultyLevel{
	DifficultyBeginner,
	DifficultyIntermediate,
	DifficultyAdvanced,
}

func (d DifficultyLevel) IsValid() bool {
	for _, level := range DifficultyLevels {
		if level == d {
			return true
		}
	}
	return false
}

// DefaultTopic labels questions that carry no topic of their own.
const DefaultTopic = "General"

// Quiz is owned by at most one of course, chapter or lecture.
type Quiz struct {
	ID              string          `json:"id" gorm:"primaryKey;size:128"`
	Title           string          `json:"title" gorm:"not null;size:200"`
	CourseID        *string         `json:"course_id,omitempty" gorm:"size:64;index"`
	ChapterID       *string         `json:"chapter_id,omitempty" gorm:"size:64;index"`
	LectureID       *string         `json:"lecture_id,omitempty" gorm:"size:64;index"`
	Topic           string          `json:"topic" gorm:"type:text;not null"`
	QuestionType    QuestionType    `json:"question_type" gorm:"size:32;not null"`
	DifficultyLevel DifficultyLevel `json:"difficulty_level" gorm:"size:32;not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:QuizID;constraint:OnDelete:CASCADE"`

	// Computed fields (not stored)
	QuestionCount int `json:"question_count" gorm:"-"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// Scope returns the kind and id of the owning scope, or empty strings for an unowned quiz.
func (q *Quiz) Scope() (kind string, id string) {
	switch {
	case q.CourseID != nil:
		return "course", *q.CourseID
	case q.ChapterID != nil:
		return "chapter", *q.ChapterID
	case q.LectureID != nil:
		return "lecture", *q.LectureID
	}
	return "", ""
}

type Question struct {
	ID              string                      `json:"id" gorm:"primaryKey;size:160"`
	QuizID          string                      `json:"quiz_id" gorm:"size:128;not null;index"`
	QuestionText    string                      `json:"question_text" gorm:"type:text;not null"`
	QuestionType    QuestionType                `json:"question_type" gorm:"size:32;not null"`
	Options         datatypes.JSONSlice[string] `json:"options" gorm:"type:jsonb"`
	CorrectAnswer   string                      `json:"correct_answer" gorm:"type:text;not null"`
	Explanation     *string                     `json:"explanation,omitempty" gorm:"type:text"`
	DifficultyLevel DifficultyLevel             `json:"difficulty_level" gorm:"size:32;not null"`
	Topic           string                      `json:"topic" gorm:"size:200"`
	ImageURL        *string                     `json:"image_url,omitempty" gorm:"type:text"`
	CodeSnippet     *string                     `json:"code_snippet,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Question) TableName() string {
	return "quiz_questions"
}

// TopicLabel is the topic used for performance grouping.
func (q *Question) TopicLabel() string {
	if q.Topic == "" {
		return DefaultTopic
	}
	return q.Topic
}

// ExplanationText returns the explanation or an empty string.
func (q *Question) ExplanationText() string {
	if q.Explanation == nil {
		return ""
	}
	return *q.Explanation
}
