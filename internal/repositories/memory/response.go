package memory

import (
	"context"
	"sort"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"gorm.io/gorm"
)

type responseRepository struct {
	s *store
}

func (r *responseRepository) Create(ctx context.Context, response *models.QuizResponse) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.attempts[response.AttemptID]; !ok {
		return gorm.ErrForeignKeyViolated
	}
	if _, ok := r.s.questions[response.QuestionID]; !ok {
		return gorm.ErrForeignKeyViolated
	}
	if _, exists := r.s.responses[response.ID]; exists {
		return gorm.ErrDuplicatedKey
	}
	for _, existing := range r.s.responses {
		if existing.AttemptID == response.AttemptID && existing.QuestionID == response.QuestionID {
			return gorm.ErrDuplicatedKey
		}
	}

	response.CreatedAt = time.Now()
	stored := *response
	stored.Question = nil
	r.s.responses[response.ID] = stored
	return nil
}

func (r *responseRepository) ListByAttempt(ctx context.Context, attemptID string) ([]*models.QuizResponse, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	responses := r.s.responsesOf(attemptID)
	out := make([]*models.QuizResponse, len(responses))
	for i := range responses {
		out[i] = &responses[i]
	}
	return out, nil
}

func (r *responseRepository) CountCorrect(ctx context.Context, attemptID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	count := 0
	for _, resp := range r.s.responses {
		if resp.AttemptID == attemptID && resp.IsCorrect {
			count++
		}
	}
	return count, nil
}

func (r *responseRepository) DeleteByAttempt(ctx context.Context, attemptID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, resp := range r.s.responses {
		if resp.AttemptID == attemptID {
			delete(r.s.responses, id)
		}
	}
	return nil
}

func (r *responseRepository) CountByQuestion(ctx context.Context, questionID string) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var count int64
	for _, resp := range r.s.responses {
		if resp.QuestionID == questionID {
			count++
		}
	}
	return count, nil
}

// responsesOf returns the attempt's responses joined to their questions. Caller holds s.mu.
func (s *store) responsesOf(attemptID string) []models.QuizResponse {
	var out []models.QuizResponse
	for _, resp := range s.responses {
		if resp.AttemptID != attemptID {
			continue
		}
		if q, ok := s.questions[resp.QuestionID]; ok {
			q = cloneQuestion(q)
			resp.Question = &q
		}
		out = append(out, resp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

type reportRepository struct {
	s *store
}

func (r *reportRepository) Upsert(ctx context.Context, report *models.PerformanceReport) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.attempts[report.AttemptID]; !ok {
		return gorm.ErrForeignKeyViolated
	}

	now := time.Now()
	if existing, ok := r.s.reports[report.AttemptID]; ok {
		report.ID = existing.ID
		report.CreatedAt = existing.CreatedAt
	} else {
		report.CreatedAt = now
	}
	report.UpdatedAt = now
	r.s.reports[report.AttemptID] = cloneReport(*report)
	return nil
}

func (r *reportRepository) GetByAttempt(ctx context.Context, attemptID string) (*models.PerformanceReport, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	report, ok := r.s.reports[attemptID]
	if !ok {
		return nil, errNotFound
	}
	report = cloneReport(report)
	return &report, nil
}
