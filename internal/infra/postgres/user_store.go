package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"faculty-eval-service/internal/app"
	"faculty-eval-service/internal/domain"
)

type userRow struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID            string    `bun:"id,pk"`
	Name          string    `bun:"name,notnull"`
	Email         string    `bun:"email,notnull"`
	PasswordHash  []byte    `bun:"password_hash,notnull"`
	EmployeeID    string    `bun:"employee_id,notnull"`
	Designation   string    `bun:"designation,notnull"`
	Department    string    `bun:"department,notnull"`
	Batch         string    `bun:"batch,notnull"`
	Role          string    `bun:"role,notnull"`
	QuizAttempted bool      `bun:"quiz_attempted,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
	UpdatedAt     time.Time `bun:"updated_at,notnull"`
}

func toUserRow(u domain.User) *userRow {
	return &userRow{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		PasswordHash:  u.PasswordHash,
		EmployeeID:    u.EmployeeID,
		Designation:   u.Designation,
		Department:    u.Department,
		Batch:         u.Batch,
		Role:          string(u.Role),
		QuizAttempted: u.QuizAttempted,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func (r *userRow) domain() domain.User {
	return domain.User{
		ID:            r.ID,
		Name:          r.Name,
		Email:         r.Email,
		PasswordHash:  r.PasswordHash,
		EmployeeID:    r.EmployeeID,
		Designation:   r.Designation,
		Department:    r.Department,
		Batch:         r.Batch,
		Role:          domain.Role(r.Role),
		QuizAttempted: r.QuizAttempted,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// UserStore is the Postgres implementation of app.UserRepository.
type UserStore struct {
	db *bun.DB
}

func NewUserStore(db *bun.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Create(ctx context.Context, usr domain.User) (domain.User, error) {
	row := toUserRow(usr)
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return domain.User{}, userWriteError("insert user", err)
	}
	return row.domain(), nil
}

func (s *UserStore) GetByID(ctx context.Context, id string) (domain.User, error) {
	return s.getBy(ctx, "u.id = ?", id)
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return s.getBy(ctx, "u.email = ?", email)
}

func (s *UserStore) getBy(ctx context.Context, where string, arg any) (domain.User, error) {
	row := new(userRow)
	if err := s.db.NewSelect().Model(row).Where(where, arg).Scan(ctx); err != nil {
		if isNoRows(err) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("select user: %w", err)
	}
	return row.domain(), nil
}

func (s *UserStore) Update(ctx context.Context, usr domain.User) (domain.User, error) {
	row := toUserRow(usr)
	res, err := s.db.NewUpdate().
		Model(row).
		ExcludeColumn("id", "created_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return domain.User{}, userWriteError("update user", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.User{}, domain.ErrUserNotFound
	}
	return row.domain(), nil
}

func (s *UserStore) SetQuizAttempted(ctx context.Context, id string, attempted bool) (domain.User, error) {
	row := new(userRow)
	res, err := s.db.NewUpdate().
		Model(row).
		Set("quiz_attempted = ?", attempted).
		Set("updated_at = now()").
		Where("u.id = ?", id).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return domain.User{}, fmt.Errorf("set quiz attempted: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.User{}, domain.ErrUserNotFound
	}
	return row.domain(), nil
}

func (s *UserStore) List(ctx context.Context, filter app.UserFilter) ([]domain.User, error) {
	var rows []userRow
	q := s.db.NewSelect().Model(&rows).OrderExpr("u.created_at DESC, u.id ASC")
	if filter.Role != "" {
		q = q.Where("u.role = ?", string(filter.Role))
	}
	if filter.Batch != "" {
		q = q.Where("u.batch = ?", filter.Batch)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	out := make([]domain.User, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].domain())
	}
	return out, nil
}

func userWriteError(op string, err error) error {
	switch uniqueConstraint(err) {
	case "users_email_key":
		return domain.ErrEmailExists
	case "users_employee_id_key":
		return domain.ErrEmployeeIDExists
	}
	return fmt.Errorf("%s: %w", op, err)
}
