package app

import (
	"context"
	"time"

	"faculty-eval-service/internal/domain"
)

const maxQuizDuration = 600

// ConfigPatch replaces only the fields that are supplied.
type ConfigPatch struct {
	Batches      *[]string `json:"batches"`
	DemoSections *[]string `json:"demoSections"`
	Designations *[]string `json:"designations"`
	QuizDuration *int      `json:"quizDuration"`
}

type ConfigService struct {
	repo ConfigRepository
	now  func() time.Time
}

func NewConfigService(repo ConfigRepository) *ConfigService {
	return &ConfigService{repo: repo, now: time.Now}
}

// Get returns the system configuration, creating the default one on first read.
func (s *ConfigService) Get(ctx context.Context) (domain.SystemConfig, error) {
	cfg, err := s.repo.Get(ctx, domain.ConfigKey)
	if err == nil {
		return cfg, nil
	}
	if !isNotFound(err) {
		return domain.SystemConfig{}, err
	}
	cfg = domain.DefaultSystemConfig()
	now := s.now().UTC()
	cfg.CreatedAt, cfg.UpdatedAt = now, now
	return s.repo.Upsert(ctx, cfg)
}

// Update merges patch into the stored configuration, creating it when absent.
func (s *ConfigService) Update(ctx context.Context, actor domain.User, patch ConfigPatch) (domain.SystemConfig, error) {
	if err := authorize(actor, domain.AdminRoles...); err != nil {
		return domain.SystemConfig{}, err
	}
	if patch.QuizDuration != nil && (*patch.QuizDuration < 1 || *patch.QuizDuration > maxQuizDuration) {
		return domain.SystemConfig{}, domain.NewValidationError("quizDuration", "must be between 1 and 600 minutes")
	}

	cfg, err := s.repo.Get(ctx, domain.ConfigKey)
	if err != nil {
		if !isNotFound(err) {
			return domain.SystemConfig{}, err
		}
		cfg = domain.DefaultSystemConfig()
		cfg.CreatedAt = s.now().UTC()
	}
	if patch.Batches != nil {
		cfg.Batches = append([]string{}, *patch.Batches...)
	}
	if patch.DemoSections != nil {
		cfg.DemoSections = append([]string{}, *patch.DemoSections...)
	}
	if patch.Designations != nil {
		cfg.Designations = append([]string{}, *patch.Designations...)
	}
	if patch.QuizDuration != nil {
		cfg.QuizDuration = *patch.QuizDuration
	}
	cfg.UpdatedAt = s.now().UTC()
	return s.repo.Upsert(ctx, cfg)
}
