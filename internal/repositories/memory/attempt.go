package memory

import (
	"context"
	"sort"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"gorm.io/gorm"
)

type attemptRepository struct {
	s *store
}

func (r *attemptRepository) Create(ctx context.Context, attempt *models.QuizAttempt) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.quizzes[attempt.QuizID]; !ok {
		return gorm.ErrForeignKeyViolated
	}
	if _, exists := r.s.attempts[attempt.ID]; exists {
		return gorm.ErrDuplicatedKey
	}

	now := time.Now()
	attempt.CreatedAt = now
	attempt.UpdatedAt = now

	stored := *attempt
	stored.Quiz = nil
	stored.Responses = nil
	r.s.attempts[attempt.ID] = stored
	return nil
}

func (r *attemptRepository) GetByID(ctx context.Context, id string) (*models.QuizAttempt, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	attempt, ok := r.s.attempts[id]
	if !ok {
		return nil, errNotFound
	}
	return &attempt, nil
}

func (r *attemptRepository) GetByIDWithResponses(ctx context.Context, id string) (*models.QuizAttempt, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	attempt, ok := r.s.attempts[id]
	if !ok {
		return nil, errNotFound
	}
	if quiz, ok := r.s.quizzes[attempt.QuizID]; ok {
		attempt.Quiz = &quiz
	}
	attempt.Responses = r.s.responsesOf(id)
	return &attempt, nil
}

func (r *attemptRepository) ListByStudent(ctx context.Context, studentID string, filters repositories.AttemptFilters) ([]*models.QuizAttempt, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var attempts []*models.QuizAttempt
	for _, attempt := range r.s.attempts {
		if attempt.StudentID != studentID {
			continue
		}
		if filters.QuizID != nil && attempt.QuizID != *filters.QuizID {
			continue
		}
		if filters.Status != nil && attempt.Status != *filters.Status {
			continue
		}
		a := attempt
		if quiz, ok := r.s.quizzes[a.QuizID]; ok {
			a.Quiz = &quiz
		}
		attempts = append(attempts, &a)
	}

	asc := filters.SortOrder == "asc"
	sort.SliceStable(attempts, func(i, j int) bool {
		if asc {
			return attempts[i].StartedAt.Before(attempts[j].StartedAt)
		}
		return attempts[i].StartedAt.After(attempts[j].StartedAt)
	})

	return page(attempts, filters.Limit, filters.Offset), int64(len(attempts)), nil
}

func (r *attemptRepository) BeginEvaluation(ctx context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	attempt, ok := r.s.attempts[id]
	if !ok {
		return false, errNotFound
	}
	if err := attempt.BeginEvaluation(); err != nil {
		return false, nil
	}
	attempt.UpdatedAt = time.Now()
	r.s.attempts[id] = attempt
	return true, nil
}

func (r *attemptRepository) ReleaseEvaluation(ctx context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	attempt, ok := r.s.attempts[id]
	if !ok {
		return false, errNotFound
	}
	if err := attempt.ReleaseEvaluation(); err != nil {
		return false, nil
	}
	attempt.UpdatedAt = time.Now()
	r.s.attempts[id] = attempt
	return true, nil
}

func (r *attemptRepository) Complete(ctx context.Context, id string, score int, completedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	attempt, ok := r.s.attempts[id]
	if !ok {
		return errNotFound
	}
	if err := attempt.Complete(score, completedAt); err != nil {
		return err
	}
	attempt.UpdatedAt = time.Now()
	r.s.attempts[id] = attempt
	return nil
}

func (r *attemptRepository) ListOpenBefore(ctx context.Context, cutoff time.Time, limit int) ([]*models.QuizAttempt, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var attempts []*models.QuizAttempt
	for _, attempt := range r.s.attempts {
		if attempt.Status == models.AttemptStatusCompleted || !attempt.StartedAt.Before(cutoff) {
			continue
		}
		a := attempt
		attempts = append(attempts, &a)
	}
	sort.Slice(attempts, func(i, j int) bool {
		return attempts[i].StartedAt.Before(attempts[j].StartedAt)
	})
	return page(attempts, limit, 0), nil
}
