package postgres

import (
	"context"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"gorm.io/gorm"
)

type ResponsePostgreSQL struct {
	db *gorm.DB
}

func NewResponsePostgreSQL(db *gorm.DB) repositories.ResponseRepository {
	return &ResponsePostgreSQL{db: db}
}

func (r *ResponsePostgreSQL) Create(ctx context.Context, response *models.QuizResponse) error {
	return r.db.WithContext(ctx).Omit("Question").Create(response).Error
}

func (r *ResponsePostgreSQL) ListByAttempt(ctx context.Context, attemptID string) ([]*models.QuizResponse, error) {
	var responses []*models.QuizResponse
	if err := r.db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Preload("Question").
		Order("created_at ASC").
		Find(&responses).Error; err != nil {
		return nil, err
	}
	return responses, nil
}

func (r *ResponsePostgreSQL) CountCorrect(ctx context.Context, attemptID string) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.QuizResponse{}).
		Where("attempt_id = ? AND is_correct = ?", attemptID, true).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *ResponsePostgreSQL) DeleteByAttempt(ctx context.Context, attemptID string) error {
	return r.db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Delete(&models.QuizResponse{}).Error
}

func (r *ResponsePostgreSQL) CountByQuestion(ctx context.Context, questionID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.QuizResponse{}).
		Where("question_id = ?", questionID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
