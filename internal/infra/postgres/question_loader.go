package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"faculty-eval-service/internal/app"
	"faculty-eval-service/internal/domain"
)

// QuestionLoader reads the question bank straight off a pgx pool for the scoring cache.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadQuestions(ctx context.Context) ([]domain.QuizQuestion, error) {
	rows, err := l.pool.Query(ctx, `SELECT id, section, question, options, correct_answer, marks FROM quiz_questions`)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var out []domain.QuizQuestion
	for rows.Next() {
		var (
			q   domain.QuizQuestion
			raw []byte
		)
		if err := rows.Scan(&q.ID, &q.Section, &q.Question, &raw, &q.CorrectAnswer, &q.Marks); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(raw, &q.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options for %s: %w", q.ID, err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	app.SortQuestions(out)
	return out, nil
}
