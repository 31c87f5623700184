package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"faculty-eval-service/internal/domain"
)

type evaluationRow struct {
	bun.BaseModel `bun:"table:evaluations,alias:e"`

	EmployeeID        string             `bun:"employee_id,pk"`
	UserID            string             `bun:"user_id,notnull"`
	Name              string             `bun:"name,notnull"`
	Batch             string             `bun:"batch,notnull"`
	Department        string             `bun:"department,notnull"`
	Designation       string             `bun:"designation,notnull"`
	QuizScore         float64            `bun:"quiz_score,notnull"`
	QuizSectionScores map[string]float64 `bun:"quiz_section_scores,type:jsonb,notnull"`
	DemoScore         *float64           `bun:"demo_score"`
	DemoSectionScores map[string]float64 `bun:"demo_section_scores,type:jsonb,nullzero"`
	TotalScore        float64            `bun:"total_score,notnull"`
	EvaluatedBy       string             `bun:"evaluated_by,notnull"`
	SubmittedAt       time.Time          `bun:"submitted_at,notnull"`
	CreatedAt         time.Time          `bun:"created_at,notnull"`
	UpdatedAt         time.Time          `bun:"updated_at,notnull"`
}

func toEvaluationRow(e domain.Evaluation) *evaluationRow {
	quiz := map[string]float64(e.QuizSectionScores)
	if quiz == nil {
		quiz = map[string]float64{}
	}
	return &evaluationRow{
		EmployeeID:        e.EmployeeID,
		UserID:            e.UserID,
		Name:              e.Name,
		Batch:             e.Batch,
		Department:        e.Department,
		Designation:       e.Designation,
		QuizScore:         e.QuizScore,
		QuizSectionScores: quiz,
		DemoScore:         e.DemoScore,
		DemoSectionScores: e.DemoSectionScores,
		TotalScore:        e.TotalScore,
		EvaluatedBy:       e.EvaluatedBy,
		SubmittedAt:       e.SubmittedAt,
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
	}
}

func (r *evaluationRow) domain() domain.Evaluation {
	return domain.Evaluation{
		EmployeeID:        r.EmployeeID,
		UserID:            r.UserID,
		Name:              r.Name,
		Batch:             r.Batch,
		Department:        r.Department,
		Designation:       r.Designation,
		QuizScore:         r.QuizScore,
		QuizSectionScores: r.QuizSectionScores,
		DemoScore:         r.DemoScore,
		DemoSectionScores: r.DemoSectionScores,
		TotalScore:        r.TotalScore,
		EvaluatedBy:       r.EvaluatedBy,
		SubmittedAt:       r.SubmittedAt,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

// EvaluationStore persists evaluations in Postgres.
type EvaluationStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewEvaluationStore(db *bun.DB) *EvaluationStore {
	return &EvaluationStore{db: db, now: time.Now}
}

func (s *EvaluationStore) Get(ctx context.Context, employeeID string) (domain.Evaluation, error) {
	row := new(evaluationRow)
	err := s.db.NewSelect().Model(row).Where("e.employee_id = ?", employeeID).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return domain.Evaluation{}, domain.ErrEvaluationNotFound
		}
		return domain.Evaluation{}, fmt.Errorf("select evaluation: %w", err)
	}
	return row.domain(), nil
}

// UpsertQuiz inserts or overwrites the quiz fields in one statement; demo fields of an
// existing row are untouched and the total is derived from them.
func (s *EvaluationStore) UpsertQuiz(ctx context.Context, eval domain.Evaluation) (domain.Evaluation, error) {
	now := s.now().UTC()
	row := toEvaluationRow(eval)
	row.DemoScore = nil
	row.DemoSectionScores = nil
	row.EvaluatedBy = ""
	row.TotalScore = row.QuizScore
	row.CreatedAt, row.UpdatedAt = now, now

	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (employee_id) DO UPDATE").
		Set("user_id = EXCLUDED.user_id").
		Set("name = EXCLUDED.name").
		Set("batch = EXCLUDED.batch").
		Set("department = EXCLUDED.department").
		Set("designation = EXCLUDED.designation").
		Set("quiz_score = EXCLUDED.quiz_score").
		Set("quiz_section_scores = EXCLUDED.quiz_section_scores").
		Set("total_score = EXCLUDED.quiz_score + COALESCE(e.demo_score, 0)").
		Set("submitted_at = EXCLUDED.submitted_at").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return domain.Evaluation{}, fmt.Errorf("upsert evaluation: %w", err)
	}
	return row.domain(), nil
}

func (s *EvaluationStore) UpdateDemo(ctx context.Context, eval domain.Evaluation) (domain.Evaluation, error) {
	eval.Recompute()
	row := toEvaluationRow(eval)
	row.UpdatedAt = s.now().UTC()

	res, err := s.db.NewUpdate().
		Model(row).
		Column("demo_score", "demo_section_scores", "evaluated_by", "total_score", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return domain.Evaluation{}, fmt.Errorf("update demo score: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.Evaluation{}, domain.ErrEvaluationNotFound
	}
	return s.Get(ctx, eval.EmployeeID)
}

func (s *EvaluationStore) Delete(ctx context.Context, employeeID string) error {
	_, err := s.db.NewDelete().
		Model((*evaluationRow)(nil)).
		Where("employee_id = ?", employeeID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete evaluation: %w", err)
	}
	return nil
}

func (s *EvaluationStore) Top(ctx context.Context, limit int) ([]domain.Evaluation, error) {
	var rows []evaluationRow
	err := s.db.NewSelect().
		Model(&rows).
		OrderExpr("e.total_score DESC, e.employee_id ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select leaderboard: %w", err)
	}
	return toEvaluations(rows), nil
}

func (s *EvaluationStore) List(ctx context.Context, batch string) ([]domain.Evaluation, error) {
	var rows []evaluationRow
	q := s.db.NewSelect().Model(&rows).OrderExpr("e.total_score DESC, e.employee_id ASC")
	if batch != "" {
		q = q.Where("e.batch = ?", batch)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("select evaluations: %w", err)
	}
	return toEvaluations(rows), nil
}

func toEvaluations(rows []evaluationRow) []domain.Evaluation {
	out := make([]domain.Evaluation, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].domain())
	}
	return out
}
