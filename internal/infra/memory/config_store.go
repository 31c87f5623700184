package memory

import (
	"context"
	"fmt"
	"sync"

	"faculty-eval-service/internal/domain"
)

type ConfigStore struct {
	mu      sync.RWMutex
	configs map[string]domain.SystemConfig
}

func NewConfigStore() *ConfigStore {
	return &ConfigStore{configs: make(map[string]domain.SystemConfig)}
}

func (s *ConfigStore) Get(_ context.Context, key string) (domain.SystemConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[key]
	if !ok {
		return domain.SystemConfig{}, fmt.Errorf("config %q %w", key, domain.ErrNotFound)
	}
	return cfg, nil
}

func (s *ConfigStore) Upsert(_ context.Context, cfg domain.SystemConfig) (domain.SystemConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.configs[cfg.Key]; ok && !existing.CreatedAt.IsZero() {
		cfg.CreatedAt = existing.CreatedAt
	}
	s.configs[cfg.Key] = cfg
	return cfg, nil
}
