package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"faculty-eval-service/internal/domain"
)

type configRow struct {
	bun.BaseModel `bun:"table:system_configs,alias:c"`

	Key          string    `bun:"key,pk"`
	Batches      []string  `bun:"batches,type:jsonb,notnull"`
	DemoSections []string  `bun:"demo_sections,type:jsonb,notnull"`
	Designations []string  `bun:"designations,type:jsonb,notnull"`
	QuizDuration int       `bun:"quiz_duration,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
	UpdatedAt    time.Time `bun:"updated_at,notnull"`
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// ConfigStore keeps the SystemConfig singleton in system_configs.
type ConfigStore struct {
	db *bun.DB
}

func NewConfigStore(db *bun.DB) *ConfigStore {
	return &ConfigStore{db: db}
}

func (s *ConfigStore) Get(ctx context.Context, key string) (domain.SystemConfig, error) {
	row := new(configRow)
	if err := s.db.NewSelect().Model(row).Where("c.key = ?", key).Scan(ctx); err != nil {
		if isNoRows(err) {
			return domain.SystemConfig{}, fmt.Errorf("config %q %w", key, domain.ErrNotFound)
		}
		return domain.SystemConfig{}, fmt.Errorf("select config: %w", err)
	}
	return row.domain(), nil
}

// Upsert writes cfg, keeping the original created_at of an existing row.
func (s *ConfigStore) Upsert(ctx context.Context, cfg domain.SystemConfig) (domain.SystemConfig, error) {
	row := &configRow{
		Key:          cfg.Key,
		Batches:      nonNil(cfg.Batches),
		DemoSections: nonNil(cfg.DemoSections),
		Designations: nonNil(cfg.Designations),
		QuizDuration: cfg.QuizDuration,
		CreatedAt:    cfg.CreatedAt,
		UpdatedAt:    cfg.UpdatedAt,
	}
	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (key) DO UPDATE").
		Set("batches = EXCLUDED.batches").
		Set("demo_sections = EXCLUDED.demo_sections").
		Set("designations = EXCLUDED.designations").
		Set("quiz_duration = EXCLUDED.quiz_duration").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return domain.SystemConfig{}, fmt.Errorf("upsert config: %w", err)
	}
	return row.domain(), nil
}

func (r *configRow) domain() domain.SystemConfig {
	return domain.SystemConfig{
		Key:          r.Key,
		Batches:      r.Batches,
		DemoSections: r.DemoSections,
		Designations: r.Designations,
		QuizDuration: r.QuizDuration,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}
