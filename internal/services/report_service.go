package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/llm"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/google/uuid"
)

// StrengthThreshold is the per-topic accuracy at or above which a topic counts as a strength
const StrengthThreshold = 0.70

const (
	maxRecommendations     = 5
	congratulationsMessage = "Great job! You showed a solid understanding of every topic in this quiz. Keep practicing to stay sharp."
	noAnswersMessage       = "No answers were recorded for this attempt. Retake the quiz to get personalized recommendations."
)

type reportService struct {
	repo      repositories.Repository
	llm       llm.TextGenerator
	publisher events.EventPublisher
	logger    *slog.Logger
	svcLogger *ServiceLogger
}

func NewReportService(repo repositories.Repository, generator llm.TextGenerator, publisher events.EventPublisher, logger *slog.Logger) ReportService {
	return &reportService{
		repo:      repo,
		llm:       generator,
		publisher: publisher,
		logger:    logger,
		svcLogger: NewServiceLogger(logger, "report"),
	}
}

func (s *reportService) Generate(ctx context.Context, attemptID string) (report *models.PerformanceReport, err error) {
	op := s.svcLogger.WithOperation(ctx, "generate_report", "")
	defer func() {
		op.LogResult(attemptID, "attempt", err)
	}()

	attempt, err := s.repo.Attempt().GetByIDWithResponses(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	completion, ok := attempt.Completion()
	if !ok {
		return nil, ErrAttemptNotCompleted
	}

	breakdown := TopicBreakdown(attempt.Responses)
	strengths, weaknesses := ClassifyTopics(breakdown)

	quizTopic := ""
	if attempt.Quiz != nil {
		quizTopic = attempt.Quiz.Topic
	}

	report = &models.PerformanceReport{
		ID:              uuid.NewString(),
		AttemptID:       attempt.ID,
		OverallScore:    completion.Score,
		StrengthTopics:  strengths,
		WeaknessTopics:  weaknesses,
		Recommendations: s.recommend(ctx, quizTopic, completion.Score, breakdown, strengths, weaknesses),
		TopicBreakdown:  breakdown,
	}

	if err := s.repo.Report().Upsert(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to save report: %w", err)
	}

	publishEvent(ctx, s.publisher, s.logger, events.EventReportGenerated, events.ReportGeneratedEvent{
		ReportID:       report.ID,
		AttemptID:      report.AttemptID,
		StudentID:      attempt.StudentID,
		OverallScore:   report.OverallScore,
		StrengthTopics: strengths,
		WeaknessTopics: weaknesses,
	})

	return report, nil
}

func (s *reportService) GetByAttempt(ctx context.Context, attemptID string) (*models.PerformanceReport, error) {
	report, err := s.repo.Report().GetByAttempt(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return report, nil
}

// TopicBreakdown groups responses by question topic, sorted by topic name
func TopicBreakdown(responses []models.QuizResponse) []models.TopicPerformance {
	byTopic := make(map[string]*models.TopicPerformance)
	for _, r := range responses {
		topic := models.DefaultTopic
		if r.Question != nil {
			topic = r.Question.TopicLabel()
		}

		perf, ok := byTopic[topic]
		if !ok {
			perf = &models.TopicPerformance{Topic: topic}
			byTopic[topic] = perf
		}
		perf.Total++
		if r.IsCorrect {
			perf.Correct++
		}
	}

	breakdown := make([]models.TopicPerformance, 0, len(byTopic))
	for _, perf := range byTopic {
		perf.Accuracy = float64(perf.Correct) / float64(perf.Total)
		breakdown = append(breakdown, *perf)
	}
	sort.Slice(breakdown, func(i, j int) bool {
		return breakdown[i].Topic < breakdown[j].Topic
	})
	return breakdown
}

// ClassifyTopics splits topics into strengths and weaknesses at StrengthThreshold, inclusive
func ClassifyTopics(breakdown []models.TopicPerformance) (strengths, weaknesses []string) {
	strengths, weaknesses = []string{}, []string{}
	for _, perf := range breakdown {
		if perf.Accuracy >= StrengthThreshold {
			strengths = append(strengths, perf.Topic)
		} else {
			weaknesses = append(weaknesses, perf.Topic)
		}
	}
	return strengths, weaknesses
}

// FallbackRecommendation is used per weak topic when no recommendations could be generated
func FallbackRecommendation(topic string) string {
	return fmt.Sprintf("Review materials related to %s and practice additional questions on it.", topic)
}

func (s *reportService) recommend(ctx context.Context, quizTopic string, score int, breakdown []models.TopicPerformance, strengths, weaknesses []string) []string {
	if len(breakdown) == 0 {
		return []string{noAnswersMessage}
	}
	if len(weaknesses) == 0 {
		return []string{congratulationsMessage}
	}

	recommendations, err := s.generateRecommendations(ctx, quizTopic, score, strengths, weaknesses)
	if err != nil {
		s.logger.Warn("Falling back to templated recommendations", "weak_topics", weaknesses, "error", err)
		fallback := make([]string, 0, len(weaknesses))
		for _, topic := range weaknesses {
			fallback = append(fallback, FallbackRecommendation(topic))
		}
		return fallback
	}
	return recommendations
}

func (s *reportService) generateRecommendations(ctx context.Context, quizTopic string, score int, strengths, weaknesses []string) ([]string, error) {
	raw, err := s.llm.Complete(ctx, BuildRecommendationPrompt(quizTopic, score, strengths, weaknesses))
	if err != nil {
		return nil, err
	}

	items, err := llm.DecodeArray[string](raw)
	if err != nil {
		return nil, err
	}

	recommendations := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			recommendations = append(recommendations, item)
		}
	}
	if len(recommendations) == 0 {
		return nil, fmt.Errorf("model returned no recommendations")
	}
	if len(recommendations) > maxRecommendations {
		recommendations = recommendations[:maxRecommendations]
	}
	return recommendations, nil
}
