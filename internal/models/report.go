package models

import (
	"time"

	"gorm.io/datatypes"
)

type TopicPerformance struct {
	Topic    string  `json:"topic"`
	Correct  int     `json:"correct"`
	Total    int     `json:"total"`
	Accuracy float64 `json:"accuracy"`
}

// PerformanceReport exists only for completed attempts, one per attempt.
type PerformanceReport struct {
	ID              string                                `json:"id" gorm:"primaryKey;size:64"`
	AttemptID       string                                `json:"attempt_id" gorm:"size:64;not null;uniqueIndex"`
	OverallScore    int                                   `json:"overall_score" gorm:"not null"`
	StrengthTopics  datatypes.JSONSlice[string]           `json:"strength_topics" gorm:"type:jsonb"`
	WeaknessTopics  datatypes.JSONSlice[string]           `json:"weakness_topics" gorm:"type:jsonb"`
	Recommendations datatypes.JSONSlice[string]           `json:"recommendations" gorm:"type:jsonb"`
	TopicBreakdown  datatypes.JSONSlice[TopicPerformance] `json:"topic_breakdown" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Attempt *QuizAttempt `json:"-" gorm:"foreignKey:AttemptID;constraint:OnDelete:CASCADE"`
}

func (PerformanceReport) TableName() string {
	return "performance_reports"
}
