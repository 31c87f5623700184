package app

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"faculty-eval-service/internal/domain"
)

// QuestionService maintains the question bank. Reads go through the cached bank; writes go
// to the repository and drop the cache.
type QuestionService struct {
	repo QuestionRepository
	bank QuestionBank
	log  *zap.Logger
	now  func() time.Time
}

func NewQuestionService(repo QuestionRepository, bank QuestionBank, log *zap.Logger) *QuestionService {
	if log == nil {
		log = zap.NewNop()
	}
	return &QuestionService{repo: repo, bank: bank, log: log, now: time.Now}
}

// List returns the full bank in display order.
func (s *QuestionService) List(ctx context.Context) ([]domain.QuizQuestion, error) {
	questions, err := s.bank.Questions(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.QuizQuestion, len(questions))
	copy(out, questions)
	SortQuestions(out)
	return out, nil
}

// ListPublic hides the correct answers for participants.
func (s *QuestionService) ListPublic(ctx context.Context) ([]domain.PublicQuestion, error) {
	questions, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.PublicQuestion, 0, len(questions))
	for _, q := range questions {
		out = append(out, q.Public())
	}
	return out, nil
}

func (s *QuestionService) Create(ctx context.Context, actor domain.User, q domain.QuizQuestion) (domain.QuizQuestion, error) {
	if err := authorize(actor, domain.AdminRoles...); err != nil {
		return domain.QuizQuestion{}, err
	}
	if err := normalizeQuestion(&q); err != nil {
		return domain.QuizQuestion{}, err
	}
	now := s.now().UTC()
	q.CreatedAt, q.UpdatedAt = now, now
	created, err := s.repo.Create(ctx, q)
	if err != nil {
		return domain.QuizQuestion{}, err
	}
	s.invalidate(ctx)
	return created, nil
}

// Update replaces the question stored under id.
func (s *QuestionService) Update(ctx context.Context, actor domain.User, id string, q domain.QuizQuestion) (domain.QuizQuestion, error) {
	if err := authorize(actor, domain.AdminRoles...); err != nil {
		return domain.QuizQuestion{}, err
	}
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.QuizQuestion{}, err
	}
	q.ID = existing.ID
	q.CreatedAt = existing.CreatedAt
	if err := normalizeQuestion(&q); err != nil {
		return domain.QuizQuestion{}, err
	}
	q.UpdatedAt = s.now().UTC()
	updated, err := s.repo.Update(ctx, q)
	if err != nil {
		return domain.QuizQuestion{}, err
	}
	s.invalidate(ctx)
	return updated, nil
}

func (s *QuestionService) Delete(ctx context.Context, actor domain.User, id string) error {
	if err := authorize(actor, domain.AdminRoles...); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *QuestionService) invalidate(ctx context.Context) {
	if err := s.bank.Invalidate(ctx); err != nil {
		s.log.Warn("question cache invalidation failed", zap.Error(err))
	}
}

func normalizeQuestion(q *domain.QuizQuestion) error {
	q.ID = strings.TrimSpace(q.ID)
	q.Section = strings.TrimSpace(q.Section)
	q.Question = strings.TrimSpace(q.Question)
	switch {
	case q.ID == "":
		return domain.NewValidationError("id", "required")
	case q.Section == "":
		return domain.NewValidationError("section", "required")
	case q.Question == "":
		return domain.NewValidationError("question", "required")
	case len(q.Options) == 0:
		return domain.NewValidationError("options", "at least one option required")
	case q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options):
		return domain.NewValidationError("correctAnswer", "must index one of the options")
	case q.Marks < 0:
		return domain.NewValidationError("marks", "must not be negative")
	}
	if q.Marks == 0 {
		q.Marks = domain.DefaultMarks
	}
	return nil
}

// SortQuestions orders by the numeric part of the id, so q2 precedes q10.
func SortQuestions(questions []domain.QuizQuestion) {
	sort.SliceStable(questions, func(i, j int) bool {
		ni, nj := questionNumber(questions[i].ID), questionNumber(questions[j].ID)
		if ni != nj {
			return ni < nj
		}
		return questions[i].ID < questions[j].ID
	})
}

func questionNumber(id string) int {
	digits := strings.TrimLeftFunc(id, func(r rune) bool { return r < '0' || r > '9' })
	end := strings.IndexFunc(digits, func(r rune) bool { return r < '0' || r > '9' })
	if end >= 0 {
		digits = digits[:end]
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
