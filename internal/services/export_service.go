package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/xuri/excelize/v2"
)

const (
	attemptsSheet = "Attempts"
	topicsSheet   = "Topics"
	timeLayout    = "2006-01-02 15:04:05"
)

type exportService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewExportService(repo repositories.Repository, logger *slog.Logger) ExportService {
	return &exportService{
		repo:   repo,
		logger: logger,
	}
}

// ExportStudentResults writes a learner's attempts and their reports to an XLSX workbook
func (s *exportService) ExportStudentResults(ctx context.Context, studentID string) ([]byte, error) {
	attempts, _, err := s.repo.Attempt().ListByStudent(ctx, studentID, repositories.AttemptFilters{SortOrder: "asc"})
	if err != nil {
		return nil, fmt.Errorf("failed to get student attempts: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", attemptsSheet); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	if _, err := f.NewSheet(topicsSheet); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}

	attemptHeaders := []interface{}{
		"Attempt ID", "Quiz ID", "Quiz Title", "Status", "Started At", "Completed At",
		"Total Questions", "Score", "Strength Topics", "Weakness Topics", "Recommendations",
	}
	topicHeaders := []interface{}{"Attempt ID", "Topic", "Correct", "Total", "Accuracy (%)", "Classification"}

	if err := writeRow(f, attemptsSheet, 1, attemptHeaders); err != nil {
		return nil, err
	}
	if err := writeRow(f, topicsSheet, 1, topicHeaders); err != nil {
		return nil, err
	}

	topicRow := 2
	for i, attempt := range attempts {
		report, err := s.reportFor(ctx, attempt)
		if err != nil {
			return nil, err
		}

		if err := writeRow(f, attemptsSheet, i+2, attemptRow(attempt, report)); err != nil {
			return nil, err
		}

		if report == nil {
			continue
		}
		for _, perf := range report.TopicBreakdown {
			classification := "Weakness"
			if perf.Accuracy >= StrengthThreshold {
				classification = "Strength"
			}
			row := []interface{}{attempt.ID, perf.Topic, perf.Correct, perf.Total, int(perf.Accuracy*100 + 0.5), classification}
			if err := writeRow(f, topicsSheet, topicRow, row); err != nil {
				return nil, err
			}
			topicRow++
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	s.logger.Info("Exported student results", "student_id", studentID, "attempts", len(attempts))
	return buf.Bytes(), nil
}

func (s *exportService) reportFor(ctx context.Context, attempt *models.QuizAttempt) (*models.PerformanceReport, error) {
	if !attempt.IsCompleted() {
		return nil, nil
	}
	report, err := s.repo.Report().GetByAttempt(ctx, attempt.ID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return report, nil
}

func attemptRow(attempt *models.QuizAttempt, report *models.PerformanceReport) []interface{} {
	title := ""
	if attempt.Quiz != nil {
		title = attempt.Quiz.Title
	}

	row := []interface{}{
		attempt.ID,
		attempt.QuizID,
		title,
		string(attempt.Status),
		attempt.StartedAt.Format(timeLayout),
	}

	if completion, ok := attempt.Completion(); ok {
		row = append(row, completion.CompletedAt.Format(timeLayout), attempt.TotalQuestions, completion.Score)
	} else {
		row = append(row, "", attempt.TotalQuestions, "")
	}

	if report != nil {
		row = append(row,
			strings.Join(report.StrengthTopics, ", "),
			strings.Join(report.WeaknessTopics, ", "),
			strings.Join(report.Recommendations, "\n"),
		)
	} else {
		row = append(row, "", "", "")
	}
	return row
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("failed to address Excel row %d: %w", row, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write Excel row %d: %w", row, err)
	}
	return nil
}
