package postgres

import (
	"context"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReportPostgreSQL struct {
	db *gorm.DB
}

func NewReportPostgreSQL(db *gorm.DB) repositories.ReportRepository {
	return &ReportPostgreSQL{db: db}
}

// Upsert keys on attempt_id; a regenerated report replaces the previous one in place
func (r *ReportPostgreSQL) Upsert(ctx context.Context, report *models.PerformanceReport) error {
	if err := r.db.WithContext(ctx).
		Omit("Attempt").
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "attempt_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"overall_score",
				"strength_topics",
				"weakness_topics",
				"recommendations",
				"topic_breakdown",
				"updated_at",
			}),
		}).
		Create(report).Error; err != nil {
		return err
	}

	// on conflict the generated id was discarded; reload the stored row
	stored, err := r.GetByAttempt(ctx, report.AttemptID)
	if err != nil {
		return err
	}
	*report = *stored
	return nil
}

func (r *ReportPostgreSQL) GetByAttempt(ctx context.Context, attemptID string) (*models.PerformanceReport, error) {
	var report models.PerformanceReport
	if err := r.db.WithContext(ctx).Where("attempt_id = ?", attemptID).First(&report).Error; err != nil {
		return nil, err
	}
	return &report, nil
}
