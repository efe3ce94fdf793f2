package postgres

import (
	"context"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"gorm.io/gorm"
)

type QuizPostgreSQL struct {
	db *gorm.DB
}

func NewQuizPostgreSQL(db *gorm.DB) repositories.QuizRepository {
	return &QuizPostgreSQL{db: db}
}

// Create inserts the quiz and its questions in one transaction
func (q *QuizPostgreSQL) Create(ctx context.Context, quiz *models.Quiz) error {
	return q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(quiz).Error
	})
}

func (q *QuizPostgreSQL) GetByID(ctx context.Context, id string) (*models.Quiz, error) {
	var quiz models.Quiz
	if err := q.db.WithContext(ctx).Where("id = ?", id).First(&quiz).Error; err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (q *QuizPostgreSQL) GetByIDWithQuestions(ctx context.Context, id string) (*models.Quiz, error) {
	var quiz models.Quiz
	if err := q.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Where("id = ?", id).
		First(&quiz).Error; err != nil {
		return nil, err
	}
	quiz.QuestionCount = len(quiz.Questions)
	return &quiz, nil
}

func (q *QuizPostgreSQL) ListByCourse(ctx context.Context, courseID string, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	var quizzes []*models.Quiz
	var total int64

	query := q.db.WithContext(ctx).Model(&models.Quiz{}).Where("course_id = ?", courseID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query.Order("created_at "+sortDirection(filters.SortOrder)), filters.Limit, filters.Offset)
	if err := query.Find(&quizzes).Error; err != nil {
		return nil, 0, err
	}

	if err := q.attachQuestionCounts(ctx, quizzes); err != nil {
		return nil, 0, err
	}
	return quizzes, total, nil
}

func (q *QuizPostgreSQL) attachQuestionCounts(ctx context.Context, quizzes []*models.Quiz) error {
	if len(quizzes) == 0 {
		return nil
	}

	ids := make([]string, len(quizzes))
	for i, quiz := range quizzes {
		ids[i] = quiz.ID
	}

	var rows []struct {
		QuizID string
		Count  int
	}
	if err := q.db.WithContext(ctx).
		Model(&models.Question{}).
		Select("quiz_id, COUNT(*) AS count").
		Where("quiz_id IN ?", ids).
		Group("quiz_id").
		Scan(&rows).Error; err != nil {
		return err
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.QuizID] = row.Count
	}
	for _, quiz := range quizzes {
		quiz.QuestionCount = counts[quiz.ID]
	}
	return nil
}
