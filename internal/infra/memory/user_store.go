package memory

import (
	"context"
	"sort"
	"sync"

	"faculty-eval-service/internal/app"
	"faculty-eval-service/internal/domain"
)

// UserStore is an in-memory implementation of app.UserRepository.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]domain.User)}
}

func (s *UserStore) Create(_ context.Context, usr domain.User) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkUniqueLocked(usr); err != nil {
		return domain.User{}, err
	}
	s.users[usr.ID] = usr
	return usr, nil
}

func (s *UserStore) GetByID(_ context.Context, id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	usr, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return usr, nil
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, usr := range s.users {
		if usr.Email == email {
			return usr, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (s *UserStore) Update(_ context.Context, usr domain.User) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[usr.ID]; !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err := s.checkUniqueLocked(usr); err != nil {
		return domain.User{}, err
	}
	s.users[usr.ID] = usr
	return usr, nil
}

func (s *UserStore) SetQuizAttempted(_ context.Context, id string, attempted bool) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	usr, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	usr.QuizAttempted = attempted
	s.users[id] = usr
	return usr, nil
}

func (s *UserStore) List(_ context.Context, filter app.UserFilter) ([]domain.User, error) {
	s.mu.RLock()
	out := make([]domain.User, 0, len(s.users))
	for _, usr := range s.users {
		if filter.Role != "" && usr.Role != filter.Role {
			continue
		}
		if filter.Batch != "" && usr.Batch != filter.Batch {
			continue
		}
		out = append(out, usr)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// checkUniqueLocked enforces unique email and unique non-empty employee id, ignoring usr itself.
func (s *UserStore) checkUniqueLocked(usr domain.User) error {
	for id, other := range s.users {
		if id == usr.ID {
			continue
		}
		if other.Email == usr.Email {
			return domain.ErrEmailExists
		}
		if usr.EmployeeID != "" && other.EmployeeID == usr.EmployeeID {
			return domain.ErrEmployeeIDExists
		}
	}
	return nil
}
