// Package memory is a process-local implementation of the repository contracts.
// It backs STORAGE_DRIVER=memory and the service tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"gorm.io/gorm"
)

type store struct {
	mu        sync.RWMutex
	txMu      sync.Mutex
	quizzes   map[string]models.Quiz
	questions map[string]models.Question
	attempts  map[string]models.QuizAttempt
	responses map[string]models.QuizResponse
	reports   map[string]models.PerformanceReport // keyed by attempt id
}

type Repository struct {
	s *store
}

func NewRepository() *Repository {
	return &Repository{s: &store{
		quizzes:   make(map[string]models.Quiz),
		questions: make(map[string]models.Question),
		attempts:  make(map[string]models.QuizAttempt),
		responses: make(map[string]models.QuizResponse),
		reports:   make(map[string]models.PerformanceReport),
	}}
}

func (r *Repository) Quiz() repositories.QuizRepository         { return &quizRepository{s: r.s} }
func (r *Repository) Question() repositories.QuestionRepository { return &questionRepository{s: r.s} }
func (r *Repository) Attempt() repositories.AttemptRepository   { return &attemptRepository{s: r.s} }
func (r *Repository) Response() repositories.ResponseRepository { return &responseRepository{s: r.s} }
func (r *Repository) Report() repositories.ReportRepository     { return &reportRepository{s: r.s} }

// WithTransaction serializes transactions and restores a snapshot when fn fails.
// Writes made outside a transaction while fn runs are lost on rollback.
func (r *Repository) WithTransaction(ctx context.Context, fn func(tx repositories.Repository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.txMu.Lock()
	defer r.s.txMu.Unlock()

	snap := r.s.snapshot()
	if err := fn(r); err != nil {
		r.s.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	quizzes   map[string]models.Quiz
	questions map[string]models.Question
	attempts  map[string]models.QuizAttempt
	responses map[string]models.QuizResponse
	reports   map[string]models.PerformanceReport
}

func (s *store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot{
		quizzes:   copyMap(s.quizzes),
		questions: copyMap(s.questions),
		attempts:  copyMap(s.attempts),
		responses: copyMap(s.responses),
		reports:   copyMap(s.reports),
	}
}

func (s *store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes = snap.quizzes
	s.questions = snap.questions
	s.attempts = snap.attempts
	s.responses = snap.responses
	s.reports = snap.reports
}

func copyMap[V any](in map[string]V) map[string]V {
	out := make(map[string]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func page[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return []T{}
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// questionsOf returns the quiz's questions in insertion order. Caller holds s.mu.
func (s *store) questionsOf(quizID string) []models.Question {
	var out []models.Question
	for _, q := range s.questions {
		if q.QuizID == quizID {
			out = append(out, cloneQuestion(q))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func cloneQuestion(q models.Question) models.Question {
	if q.Options != nil {
		q.Options = append([]string{}, q.Options...)
	}
	return q
}

func cloneReport(r models.PerformanceReport) models.PerformanceReport {
	r.StrengthTopics = append([]string{}, r.StrengthTopics...)
	r.WeaknessTopics = append([]string{}, r.WeaknessTopics...)
	r.Recommendations = append([]string{}, r.Recommendations...)
	r.TopicBreakdown = append([]models.TopicPerformance{}, r.TopicBreakdown...)
	r.Attempt = nil
	return r
}

var errNotFound = gorm.ErrRecordNotFound
