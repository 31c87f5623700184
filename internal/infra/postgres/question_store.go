package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"faculty-eval-service/internal/app"
	"faculty-eval-service/internal/domain"
)

type questionRow struct {
	bun.BaseModel `bun:"table:quiz_questions,alias:q"`

	ID            string    `bun:"id,pk"`
	Section       string    `bun:"section,notnull"`
	Question      string    `bun:"question,notnull"`
	Options       []string  `bun:"options,type:jsonb,notnull"`
	CorrectAnswer int       `bun:"correct_answer,notnull"`
	Marks         int       `bun:"marks,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
	UpdatedAt     time.Time `bun:"updated_at,notnull"`
}

func toQuestionRow(q domain.QuizQuestion) *questionRow {
	opts := q.Options
	if opts == nil {
		opts = []string{}
	}
	return &questionRow{
		ID:            q.ID,
		Section:       q.Section,
		Question:      q.Question,
		Options:       opts,
		CorrectAnswer: q.CorrectAnswer,
		Marks:         q.Marks,
		CreatedAt:     q.CreatedAt,
		UpdatedAt:     q.UpdatedAt,
	}
}

func (r *questionRow) domain() domain.QuizQuestion {
	return domain.QuizQuestion{
		ID:            r.ID,
		Section:       r.Section,
		Question:      r.Question,
		Options:       r.Options,
		CorrectAnswer: r.CorrectAnswer,
		Marks:         r.Marks,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// QuestionStore is the authoritative question bank for admin edits.
type QuestionStore struct {
	db *bun.DB
}

func NewQuestionStore(db *bun.DB) *QuestionStore {
	return &QuestionStore{db: db}
}

func (s *QuestionStore) LoadQuestions(ctx context.Context) ([]domain.QuizQuestion, error) {
	var rows []questionRow
	if err := s.db.NewSelect().Model(&rows).Scan(ctx); err != nil {
		return nil, fmt.Errorf("select questions: %w", err)
	}
	out := make([]domain.QuizQuestion, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].domain())
	}
	app.SortQuestions(out)
	return out, nil
}

func (s *QuestionStore) Get(ctx context.Context, id string) (domain.QuizQuestion, error) {
	row := new(questionRow)
	if err := s.db.NewSelect().Model(row).Where("q.id = ?", id).Scan(ctx); err != nil {
		if isNoRows(err) {
			return domain.QuizQuestion{}, domain.ErrQuestionNotFound
		}
		return domain.QuizQuestion{}, fmt.Errorf("select question: %w", err)
	}
	return row.domain(), nil
}

func (s *QuestionStore) Create(ctx context.Context, q domain.QuizQuestion) (domain.QuizQuestion, error) {
	row := toQuestionRow(q)
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		if uniqueConstraint(err) != "" {
			return domain.QuizQuestion{}, domain.ErrQuestionExists
		}
		return domain.QuizQuestion{}, fmt.Errorf("insert question: %w", err)
	}
	return row.domain(), nil
}

func (s *QuestionStore) Update(ctx context.Context, q domain.QuizQuestion) (domain.QuizQuestion, error) {
	row := toQuestionRow(q)
	res, err := s.db.NewUpdate().Model(row).ExcludeColumn("id", "created_at").WherePK().Exec(ctx)
	if err != nil {
		return domain.QuizQuestion{}, fmt.Errorf("update question: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.QuizQuestion{}, domain.ErrQuestionNotFound
	}
	return row.domain(), nil
}

func (s *QuestionStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.NewDelete().Model((*questionRow)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}
