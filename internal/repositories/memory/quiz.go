package memory

import (
	"context"
	"sort"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"gorm.io/gorm"
)

type quizRepository struct {
	s *store
}

func (r *quizRepository) Create(ctx context.Context, quiz *models.Quiz) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.quizzes[quiz.ID]; exists {
		return gorm.ErrDuplicatedKey
	}
	for _, q := range quiz.Questions {
		if _, exists := r.s.questions[q.ID]; exists {
			return gorm.ErrDuplicatedKey
		}
	}

	now := time.Now()
	if quiz.CreatedAt.IsZero() {
		quiz.CreatedAt = now
	}
	quiz.UpdatedAt = now

	stored := *quiz
	stored.Questions = nil
	r.s.quizzes[quiz.ID] = stored

	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		q.QuizID = quiz.ID
		if q.CreatedAt.IsZero() {
			// keep generation order stable for questions created in the same instant
			q.CreatedAt = now.Add(time.Duration(i) * time.Nanosecond)
		}
		q.UpdatedAt = now
		r.s.questions[q.ID] = cloneQuestion(*q)
	}
	return nil
}

func (r *quizRepository) GetByID(ctx context.Context, id string) (*models.Quiz, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	quiz, ok := r.s.quizzes[id]
	if !ok {
		return nil, errNotFound
	}
	return &quiz, nil
}

func (r *quizRepository) GetByIDWithQuestions(ctx context.Context, id string) (*models.Quiz, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	quiz, ok := r.s.quizzes[id]
	if !ok {
		return nil, errNotFound
	}
	quiz.Questions = r.s.questionsOf(id)
	quiz.QuestionCount = len(quiz.Questions)
	return &quiz, nil
}

func (r *quizRepository) ListByCourse(ctx context.Context, courseID string, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var quizzes []*models.Quiz
	for _, quiz := range r.s.quizzes {
		if quiz.CourseID == nil || *quiz.CourseID != courseID {
			continue
		}
		q := quiz
		q.QuestionCount = len(r.s.questionsOf(q.ID))
		quizzes = append(quizzes, &q)
	}

	asc := filters.SortOrder == "asc"
	sort.SliceStable(quizzes, func(i, j int) bool {
		if asc {
			return quizzes[i].CreatedAt.Before(quizzes[j].CreatedAt)
		}
		return quizzes[i].CreatedAt.After(quizzes[j].CreatedAt)
	})

	return page(quizzes, filters.Limit, filters.Offset), int64(len(quizzes)), nil
}

type questionRepository struct {
	s *store
}

func (r *questionRepository) Create(ctx context.Context, question *models.Question) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.quizzes[question.QuizID]; !ok {
		return gorm.ErrForeignKeyViolated
	}
	if _, exists := r.s.questions[question.ID]; exists {
		return gorm.ErrDuplicatedKey
	}

	now := time.Now()
	question.CreatedAt = now
	question.UpdatedAt = now
	r.s.questions[question.ID] = cloneQuestion(*question)
	return nil
}

func (r *questionRepository) GetByID(ctx context.Context, id string) (*models.Question, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	q, ok := r.s.questions[id]
	if !ok {
		return nil, errNotFound
	}
	q = cloneQuestion(q)
	return &q, nil
}

func (r *questionRepository) Update(ctx context.Context, question *models.Question) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.questions[question.ID]
	if !ok {
		return errNotFound
	}
	question.CreatedAt = existing.CreatedAt
	question.UpdatedAt = time.Now()
	r.s.questions[question.ID] = cloneQuestion(*question)
	return nil
}

func (r *questionRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.questions[id]; !ok {
		return errNotFound
	}
	for _, resp := range r.s.responses {
		if resp.QuestionID == id {
			return gorm.ErrForeignKeyViolated
		}
	}
	delete(r.s.questions, id)
	return nil
}

func (r *questionRepository) ListByQuiz(ctx context.Context, quizID string) ([]*models.Question, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	questions := r.s.questionsOf(quizID)
	out := make([]*models.Question, len(questions))
	for i := range questions {
		out[i] = &questions[i]
	}
	return out, nil
}

func (r *questionRepository) CountByQuiz(ctx context.Context, quizID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.questionsOf(quizID)), nil
}
