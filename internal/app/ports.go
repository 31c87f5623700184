package app

import (
	"context"

	"faculty-eval-service/internal/domain"
)

// UserFilter narrows user listings. Zero values match everything.
type UserFilter struct {
	Role  domain.Role
	Batch string
}

// UserRepository stores credentials and identity. Create fails with ErrEmailExists or
// ErrEmployeeIDExists on duplicates.
type UserRepository interface {
	Create(ctx context.Context, usr domain.User) (domain.User, error)
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	Update(ctx context.Context, usr domain.User) (domain.User, error)
	SetQuizAttempted(ctx context.Context, id string, attempted bool) (domain.User, error)
	// List returns matching users, newest first.
	List(ctx context.Context, filter UserFilter) ([]domain.User, error)
}

// EvaluationRepository stores one score document per employee id.
type EvaluationRepository interface {
	Get(ctx context.Context, employeeID string) (domain.Evaluation, error)
	// UpsertQuiz creates the record or overwrites identity and quiz fields, keeping the demo
	// fields and recomputing the total from them.
	UpsertQuiz(ctx context.Context, eval domain.Evaluation) (domain.Evaluation, error)
	// UpdateDemo writes demo fields, total and evaluator of an existing record.
	UpdateDemo(ctx context.Context, eval domain.Evaluation) (domain.Evaluation, error)
	// Delete removes the record; deleting a missing record is not an error.
	Delete(ctx context.Context, employeeID string) error
	// Top returns up to limit records by total score, highest first.
	Top(ctx context.Context, limit int) ([]domain.Evaluation, error)
	// List returns records for batch (all when empty), highest total first.
	List(ctx context.Context, batch string) ([]domain.Evaluation, error)
}

// QuestionRepository is the authoritative question store.
type QuestionRepository interface {
	QuestionLoader
	Get(ctx context.Context, id string) (domain.QuizQuestion, error)
	Create(ctx context.Context, q domain.QuizQuestion) (domain.QuizQuestion, error)
	Update(ctx context.Context, q domain.QuizQuestion) (domain.QuizQuestion, error)
	Delete(ctx context.Context, id string) error
}

// QuestionLoader fetches the full question bank from a backing store.
type QuestionLoader interface {
	LoadQuestions(ctx context.Context) ([]domain.QuizQuestion, error)
}

// QuestionBank is the cached read path used during scoring.
type QuestionBank interface {
	Questions(ctx context.Context) ([]domain.QuizQuestion, error)
	Invalidate(ctx context.Context) error
}

// ConfigRepository persists the SystemConfig singleton. Get returns ErrNotFound when absent.
type ConfigRepository interface {
	Get(ctx context.Context, key string) (domain.SystemConfig, error)
	Upsert(ctx context.Context, cfg domain.SystemConfig) (domain.SystemConfig, error)
}

// Publisher delivers events to subscribers on a best-effort basis.
type Publisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// TokenIssuer signs session tokens for authenticated users.
type TokenIssuer interface {
	Issue(usr domain.User) (string, error)
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, domain.Event) error { return nil }

func authorize(actor domain.User, roles ...domain.Role) error {
	if !actor.Role.Allows(roles...) {
		return domain.ErrPermissionDenied
	}
	return nil
}
