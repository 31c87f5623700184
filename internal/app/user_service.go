package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"faculty-eval-service/internal/auth"
	"faculty-eval-service/internal/domain"
)

// NewUser is the input for registration and admin account creation.
type NewUser struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	EmployeeID  string `json:"employeeId"`
	Designation string `json:"designation"`
	Department  string `json:"department"`
	Batch       string `json:"batch"`
	Role        string `json:"role"`
}

// UpdateUser is a partial update; nil fields are left untouched.
type UpdateUser struct {
	Name          *string `json:"name"`
	Email         *string `json:"email" binding:"omitempty,email"`
	Password      *string `json:"password" binding:"omitempty,min=6"`
	EmployeeID    *string `json:"employeeId"`
	Designation   *string `json:"designation"`
	Department    *string `json:"department"`
	Batch         *string `json:"batch"`
	Role          *string `json:"role"`
	QuizAttempted *bool   `json:"quizAttempted"`
}

// UserService covers registration, login and account administration.
type UserService struct {
	users       UserRepository
	evaluations EvaluationRepository
	tokens      TokenIssuer
	log         *zap.Logger
	now         func() time.Time
}

func NewUserService(users UserRepository, evaluations EvaluationRepository, tokens TokenIssuer, log *zap.Logger) *UserService {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserService{users: users, evaluations: evaluations, tokens: tokens, log: log, now: time.Now}
}

// Register creates a participant account and returns a session token for it.
func (s *UserService) Register(ctx context.Context, in NewUser) (domain.User, string, error) {
	in.Role = string(domain.RoleParticipant)
	usr, err := s.create(ctx, in)
	if err != nil {
		return domain.User{}, "", err
	}
	token, err := s.tokens.Issue(usr)
	if err != nil {
		return domain.User{}, "", err
	}
	return usr, token, nil
}

func (s *UserService) Login(ctx context.Context, email, password string) (domain.User, string, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return domain.User{}, "", domain.NewValidationError("", "email and password required")
	}
	usr, err := s.users.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if isNotFound(err) {
			return domain.User{}, "", domain.ErrInvalidCredentials
		}
		return domain.User{}, "", err
	}
	if err := auth.CheckPassword(usr.PasswordHash, password); err != nil {
		return domain.User{}, "", err
	}
	token, err := s.tokens.Issue(usr)
	if err != nil {
		return domain.User{}, "", err
	}
	return usr, token, nil
}

// Get resolves the principal behind a token subject.
func (s *UserService) Get(ctx context.Context, id string) (domain.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *UserService) List(ctx context.Context, actor domain.User) ([]domain.User, error) {
	if err := authorize(actor, domain.AdminRoles...); err != nil {
		return nil, err
	}
	return s.users.List(ctx, UserFilter{})
}

func (s *UserService) ListParticipants(ctx context.Context, actor domain.User) ([]domain.User, error) {
	if err := authorize(actor, domain.AdminRoles...); err != nil {
		return nil, err
	}
	return s.users.List(ctx, UserFilter{Role: domain.RoleParticipant})
}

// Create lets a super admin provision an account with any role.
func (s *UserService) Create(ctx context.Context, actor domain.User, in NewUser) (domain.User, error) {
	if err := authorize(actor, domain.SuperAdminRoles...); err != nil {
		return domain.User{}, err
	}
	return s.create(ctx, in)
}

func (s *UserService) create(ctx context.Context, in NewUser) (domain.User, error) {
	name := strings.TrimSpace(in.Name)
	email := domain.NormalizeEmail(in.Email)
	if name == "" || email == "" || in.Password == "" {
		return domain.User{}, domain.NewValidationError("", "name, email and password are required")
	}
	if len(in.Password) < auth.MinPasswordLength {
		return domain.User{}, domain.NewValidationError("password", fmt.Sprintf("must be at least %d characters", auth.MinPasswordLength))
	}
	role, err := domain.ParseRole(in.Role)
	if err != nil {
		return domain.User{}, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	usr, err := s.users.Create(ctx, domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		EmployeeID:   strings.TrimSpace(in.EmployeeID),
		Designation:  strings.TrimSpace(in.Designation),
		Department:   strings.TrimSpace(in.Department),
		Batch:        strings.TrimSpace(in.Batch),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return domain.User{}, err
	}
	s.log.Info("user created", zap.String("user_id", usr.ID), zap.String("role", string(usr.Role)))
	return usr, nil
}

// Update applies a partial update. Super admins may edit anyone; other users only
// themselves, and never their own role, attempt flag or employee id. The employee id keys
// the evaluation record, so only a super admin may move it.
func (s *UserService) Update(ctx context.Context, actor domain.User, id string, in UpdateUser) (domain.User, error) {
	isSuper := actor.Role.IsSuperAdmin()
	if !isSuper && actor.ID != id {
		return domain.User{}, domain.ErrPermissionDenied
	}
	if !isSuper && (in.Role != nil || in.QuizAttempted != nil) {
		return domain.User{}, domain.ErrPermissionDenied
	}

	usr, err := s.users.GetByID(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	if !isSuper && in.EmployeeID != nil && strings.TrimSpace(*in.EmployeeID) != usr.EmployeeID {
		return domain.User{}, domain.ErrPermissionDenied
	}

	if in.Name != nil {
		if name := strings.TrimSpace(*in.Name); name != "" {
			usr.Name = name
		}
	}
	if in.Email != nil {
		if email := domain.NormalizeEmail(*in.Email); email != "" {
			usr.Email = email
		}
	}
	if in.EmployeeID != nil {
		usr.EmployeeID = strings.TrimSpace(*in.EmployeeID)
	}
	if in.Designation != nil {
		usr.Designation = strings.TrimSpace(*in.Designation)
	}
	if in.Department != nil {
		usr.Department = strings.TrimSpace(*in.Department)
	}
	if in.Batch != nil {
		usr.Batch = strings.TrimSpace(*in.Batch)
	}
	if in.Role != nil {
		role, err := domain.ParseRole(*in.Role)
		if err != nil {
			return domain.User{}, err
		}
		usr.Role = role
	}
	if in.QuizAttempted != nil {
		usr.QuizAttempted = *in.QuizAttempted
	}
	if in.Password != nil && *in.Password != "" {
		if len(*in.Password) < auth.MinPasswordLength {
			return domain.User{}, domain.NewValidationError("password", fmt.Sprintf("must be at least %d characters", auth.MinPasswordLength))
		}
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return domain.User{}, fmt.Errorf("hash password: %w", err)
		}
		usr.PasswordHash = hash
	}
	usr.UpdatedAt = s.now().UTC()
	return s.users.Update(ctx, usr)
}

// ResetAttempt clears the attempt flag and deletes the user's evaluation so the next
// submission starts from scratch. Quiz and demo scores are both lost.
func (s *UserService) ResetAttempt(ctx context.Context, actor domain.User, id string) (domain.User, error) {
	if err := authorize(actor, domain.SuperAdminRoles...); err != nil {
		return domain.User{}, err
	}
	usr, err := s.users.SetQuizAttempted(ctx, id, false)
	if err != nil {
		return domain.User{}, err
	}
	if usr.EmployeeID != "" {
		if err := s.evaluations.Delete(ctx, usr.EmployeeID); err != nil {
			return domain.User{}, fmt.Errorf("delete evaluation: %w", err)
		}
	}
	s.log.Info("quiz attempt reset", zap.String("user_id", usr.ID), zap.String("actor", actor.ID))
	return usr, nil
}
