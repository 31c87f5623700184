package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"faculty-eval-service/internal/domain"
)

// EvaluationStore is an in-memory implementation of app.EvaluationRepository.
type EvaluationStore struct {
	mu    sync.RWMutex
	evals map[string]domain.Evaluation
	now   func() time.Time
}

func NewEvaluationStore() *EvaluationStore {
	return &EvaluationStore{
		evals: make(map[string]domain.Evaluation),
		now:   time.Now,
	}
}

func (s *EvaluationStore) Get(_ context.Context, employeeID string) (domain.Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	eval, ok := s.evals[employeeID]
	if !ok {
		return domain.Evaluation{}, domain.ErrEvaluationNotFound
	}
	return eval.Clone(), nil
}

func (s *EvaluationStore) UpsertQuiz(_ context.Context, eval domain.Evaluation) (domain.Evaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	next := eval.Clone()
	next.DemoScore = nil
	next.DemoSectionScores = nil
	next.EvaluatedBy = ""
	next.CreatedAt = now
	if existing, ok := s.evals[eval.EmployeeID]; ok {
		next.DemoScore = existing.DemoScore
		next.DemoSectionScores = existing.DemoSectionScores
		next.EvaluatedBy = existing.EvaluatedBy
		next.CreatedAt = existing.CreatedAt
	}
	if next.QuizSectionScores == nil {
		next.QuizSectionScores = domain.SectionScores{}
	}
	next.UpdatedAt = now
	next.Recompute()
	s.evals[eval.EmployeeID] = next
	return next.Clone(), nil
}

func (s *EvaluationStore) UpdateDemo(_ context.Context, eval domain.Evaluation) (domain.Evaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.evals[eval.EmployeeID]
	if !ok {
		return domain.Evaluation{}, domain.ErrEvaluationNotFound
	}
	update := eval.Clone()
	existing.DemoScore = update.DemoScore
	existing.DemoSectionScores = update.DemoSectionScores
	existing.EvaluatedBy = update.EvaluatedBy
	existing.UpdatedAt = s.now().UTC()
	existing.Recompute()
	s.evals[eval.EmployeeID] = existing
	return existing.Clone(), nil
}

func (s *EvaluationStore) Delete(_ context.Context, employeeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.evals, employeeID)
	return nil
}

func (s *EvaluationStore) Top(_ context.Context, limit int) ([]domain.Evaluation, error) {
	list := s.sorted("")
	if limit >= 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (s *EvaluationStore) List(_ context.Context, batch string) ([]domain.Evaluation, error) {
	return s.sorted(batch), nil
}

func (s *EvaluationStore) sorted(batch string) []domain.Evaluation {
	s.mu.RLock()
	list := make([]domain.Evaluation, 0, len(s.evals))
	for _, e := range s.evals {
		if batch != "" && e.Batch != batch {
			continue
		}
		list = append(list, e.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		if list[i].TotalScore != list[j].TotalScore {
			return list[i].TotalScore > list[j].TotalScore
		}
		return list[i].EmployeeID < list[j].EmployeeID
	})
	return list
}
