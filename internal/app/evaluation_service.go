package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"faculty-eval-service/internal/domain"
)

// EvaluatorLabel is recorded as the evaluator of every demo score.
const EvaluatorLabel = "Admin"

const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 50
)

// EvaluationOptions tunes the scoring workflow. Zero values are usable.
type EvaluationOptions struct {
	// MaxDemoScore bounds demo scores when > 0.
	MaxDemoScore float64
	Logger       *zap.Logger
	Now          func() time.Time
}

// EvaluationService owns the scoring workflow and the aggregate views built on it.
type EvaluationService struct {
	evaluations EvaluationRepository
	users       UserRepository
	questions   QuestionBank
	publisher   Publisher

	maxDemoScore float64
	log          *zap.Logger
	now          func() time.Time
}

func NewEvaluationService(evaluations EvaluationRepository, users UserRepository, questions QuestionBank, publisher Publisher, opts EvaluationOptions) *EvaluationService {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &EvaluationService{
		evaluations:  evaluations,
		users:        users,
		questions:    questions,
		publisher:    publisher,
		maxDemoScore: opts.MaxDemoScore,
		log:          opts.Logger,
		now:          opts.Now,
	}
}

// DemoPatch carries an admin's demo evaluation. Nil fields keep the stored value.
type DemoPatch struct {
	DemoScore         *float64             `json:"demoScore"`
	DemoSectionScores domain.SectionScores `json:"demoSectionScores"`
}

// SubmitQuiz scores answers against the question bank and stores the result for the
// participant's employee id. A repeated submission replaces the earlier quiz score.
func (s *EvaluationService) SubmitQuiz(ctx context.Context, participant domain.User, answers domain.AnswerSet) (domain.Evaluation, error) {
	if !participant.Role.CanSubmitQuiz() {
		return domain.Evaluation{}, domain.ErrNotParticipant
	}
	if participant.EmployeeID == "" {
		return domain.Evaluation{}, domain.NewValidationError("employeeId", "participant has no employee id")
	}

	questions, err := s.questions.Questions(ctx)
	if err != nil {
		return domain.Evaluation{}, fmt.Errorf("load questions: %w", err)
	}
	if err := validateAnswers(questions, answers); err != nil {
		return domain.Evaluation{}, err
	}
	quizScore, sections := ScoreAnswers(questions, answers)

	eval, err := s.evaluations.UpsertQuiz(ctx, domain.Evaluation{
		EmployeeID:        participant.EmployeeID,
		UserID:            participant.ID,
		Name:              participant.Name,
		Batch:             participant.Batch,
		Department:        participant.Department,
		Designation:       participant.Designation,
		QuizScore:         quizScore,
		QuizSectionScores: sections,
		TotalScore:        quizScore,
		SubmittedAt:       s.now().UTC(),
	})
	if err != nil {
		return domain.Evaluation{}, fmt.Errorf("upsert evaluation: %w", err)
	}

	if _, err := s.users.SetQuizAttempted(ctx, participant.ID, true); err != nil {
		return domain.Evaluation{}, fmt.Errorf("mark quiz attempted: %w", err)
	}

	s.log.Info("quiz submitted",
		zap.String("employee_id", eval.EmployeeID),
		zap.Float64("quiz_score", eval.QuizScore),
		zap.Float64("total_score", eval.TotalScore))
	s.publish(ctx, domain.EventEvaluationSubmitted, eval)
	return eval, nil
}

// SubmitDemoScore records an admin's demo evaluation. The participant must have
// submitted the quiz first.
func (s *EvaluationService) SubmitDemoScore(ctx context.Context, actor domain.User, employeeID string, patch DemoPatch) (domain.Evaluation, error) {
	if err := authorize(actor, domain.AdminRoles...); err != nil {
		return domain.Evaluation{}, err
	}
	if err := s.validateDemo(patch); err != nil {
		return domain.Evaluation{}, err
	}

	eval, err := s.evaluations.Get(ctx, employeeID)
	if err != nil {
		return domain.Evaluation{}, err
	}

	if patch.DemoScore != nil {
		v := *patch.DemoScore
		eval.DemoScore = &v
	}
	if patch.DemoSectionScores != nil {
		eval.DemoSectionScores = patch.DemoSectionScores.Clone()
	}
	eval.Recompute()
	eval.EvaluatedBy = EvaluatorLabel

	updated, err := s.evaluations.UpdateDemo(ctx, eval)
	if err != nil {
		return domain.Evaluation{}, fmt.Errorf("update demo score: %w", err)
	}

	s.log.Info("demo score recorded",
		zap.String("employee_id", updated.EmployeeID),
		zap.String("actor", actor.ID),
		zap.Float64("total_score", updated.TotalScore))
	s.publish(ctx, domain.EventEvaluationUpdated, updated)
	return updated, nil
}

func (s *EvaluationService) validateDemo(patch DemoPatch) error {
	if patch.DemoScore != nil {
		v := *patch.DemoScore
		if v < 0 {
			return domain.NewValidationError("demoScore", "must not be negative")
		}
		if s.maxDemoScore > 0 && v > s.maxDemoScore {
			return domain.NewValidationError("demoScore", fmt.Sprintf("must not exceed %g", s.maxDemoScore))
		}
	}
	for section, v := range patch.DemoSectionScores {
		if v < 0 {
			return domain.NewValidationError("demoSectionScores."+section, "must not be negative")
		}
	}
	return nil
}

func (s *EvaluationService) publish(ctx context.Context, typ string, eval domain.Evaluation) {
	err := s.publisher.Publish(ctx, domain.Event{Room: domain.AdminRoom, Type: typ, Payload: eval})
	if err != nil {
		s.log.Warn("publish event dropped", zap.String("type", typ), zap.Error(err))
	}
}

// Leaderboard returns the highest totals. limit <= 0 means the default; it is capped at MaxLeaderboardLimit.
func (s *EvaluationService) Leaderboard(ctx context.Context, limit int) ([]domain.Evaluation, error) {
	return s.evaluations.Top(ctx, ClampLeaderboardLimit(limit))
}

func ClampLeaderboardLimit(limit int) int {
	if limit <= 0 {
		return DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		return MaxLeaderboardLimit
	}
	return limit
}

// List returns every evaluation in batch ("" or "All" for every batch).
func (s *EvaluationService) List(ctx context.Context, actor domain.User, batch string) ([]domain.Evaluation, error) {
	if err := authorize(actor, domain.AdminRoles...); err != nil {
		return nil, err
	}
	return s.evaluations.List(ctx, normalizeBatch(batch))
}

// Mine returns the caller's own evaluation, or nil when none exists yet.
func (s *EvaluationService) Mine(ctx context.Context, actor domain.User) (*domain.Evaluation, error) {
	if actor.EmployeeID == "" {
		return nil, nil
	}
	eval, err := s.evaluations.Get(ctx, actor.EmployeeID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &eval, nil
}

// Faculty joins participants with their evaluations by employee id.
func (s *EvaluationService) Faculty(ctx context.Context, actor domain.User, batch string) ([]domain.FacultyRow, error) {
	if err := authorize(actor, domain.AdminRoles...); err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx, UserFilter{Role: domain.RoleParticipant, Batch: normalizeBatch(batch)})
	if err != nil {
		return nil, err
	}
	evals, err := s.evaluations.List(ctx, "")
	if err != nil {
		return nil, err
	}
	byEmployee := make(map[string]domain.Evaluation, len(evals))
	for _, e := range evals {
		byEmployee[e.EmployeeID] = e
	}

	rows := make([]domain.FacultyRow, 0, len(users))
	for _, u := range users {
		row := domain.FacultyRow{
			UserID:        u.ID,
			Name:          u.Name,
			Email:         u.Email,
			EmployeeID:    u.EmployeeID,
			Batch:         u.Batch,
			Department:    u.Department,
			Designation:   u.Designation,
			QuizAttempted: u.QuizAttempted,
		}
		if e, ok := byEmployee[u.EmployeeID]; ok && u.EmployeeID != "" {
			quiz, total := e.QuizScore, e.TotalScore
			submitted := e.SubmittedAt
			row.QuizScore = &quiz
			row.TotalScore = &total
			row.QuizSectionScores = e.QuizSectionScores.Clone()
			row.DemoSectionScores = e.DemoSectionScores.Clone()
			row.EvaluatedBy = e.EvaluatedBy
			row.SubmittedAt = &submitted
			if e.DemoScore != nil {
				demo := *e.DemoScore
				row.DemoScore = &demo
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Analysis is Faculty with section maps defaulted to empty so per-section charts can
// iterate without nil checks. Scores stay nil for participants who have not submitted.
func (s *EvaluationService) Analysis(ctx context.Context, actor domain.User, batch string) ([]domain.FacultyRow, error) {
	rows, err := s.Faculty(ctx, actor, batch)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].QuizSectionScores == nil {
			rows[i].QuizSectionScores = domain.SectionScores{}
		}
		if rows[i].DemoSectionScores == nil {
			rows[i].DemoSectionScores = domain.SectionScores{}
		}
	}
	return rows, nil
}

func normalizeBatch(batch string) string {
	if batch == "All" {
		return ""
	}
	return batch
}
