package postgres

import (
	"context"

	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// NewRepository returns a gorm-backed repositories.Repository
func NewRepository(db *gorm.DB) repositories.Repository {
	return &repository{db: db}
}

func (r *repository) Quiz() repositories.QuizRepository         { return NewQuizPostgreSQL(r.db) }
func (r *repository) Question() repositories.QuestionRepository { return NewQuestionPostgreSQL(r.db) }
func (r *repository) Attempt() repositories.AttemptRepository   { return NewAttemptPostgreSQL(r.db) }
func (r *repository) Response() repositories.ResponseRepository { return NewResponsePostgreSQL(r.db) }
func (r *repository) Report() repositories.ReportRepository     { return NewReportPostgreSQL(r.db) }

func (r *repository) WithTransaction(ctx context.Context, fn func(tx repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&repository{db: tx})
	})
}

func applyPagination(query *gorm.DB, limit, offset int) *gorm.DB {
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}

func sortDirection(order string) string {
	if order == "asc" {
		return "ASC"
	}
	return "DESC"
}
