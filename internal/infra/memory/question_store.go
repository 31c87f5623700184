package memory

import (
	"context"
	"sync"

	"faculty-eval-service/internal/app"
	"faculty-eval-service/internal/domain"
)

// QuestionStore keeps the question bank in a map (useful for tests/demos).
type QuestionStore struct {
	mu        sync.RWMutex
	questions map[string]domain.QuizQuestion
}

func NewQuestionStore(seed ...domain.QuizQuestion) *QuestionStore {
	s := &QuestionStore{questions: make(map[string]domain.QuizQuestion, len(seed))}
	for _, q := range seed {
		s.questions[q.ID] = q
	}
	return s
}

func (s *QuestionStore) LoadQuestions(_ context.Context) ([]domain.QuizQuestion, error) {
	s.mu.RLock()
	out := make([]domain.QuizQuestion, 0, len(s.questions))
	for _, q := range s.questions {
		out = append(out, q)
	}
	s.mu.RUnlock()
	app.SortQuestions(out)
	return out, nil
}

func (s *QuestionStore) Get(_ context.Context, id string) (domain.QuizQuestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[id]
	if !ok {
		return domain.QuizQuestion{}, domain.ErrQuestionNotFound
	}
	return q, nil
}

func (s *QuestionStore) Create(_ context.Context, q domain.QuizQuestion) (domain.QuizQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[q.ID]; ok {
		return domain.QuizQuestion{}, domain.ErrQuestionExists
	}
	s.questions[q.ID] = q
	return q, nil
}

func (s *QuestionStore) Update(_ context.Context, q domain.QuizQuestion) (domain.QuizQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[q.ID]; !ok {
		return domain.QuizQuestion{}, domain.ErrQuestionNotFound
	}
	s.questions[q.ID] = q
	return q, nil
}

func (s *QuestionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[id]; !ok {
		return domain.ErrQuestionNotFound
	}
	delete(s.questions, id)
	return nil
}
