// Package seed loads the demo configuration, question bank and accounts.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"faculty-eval-service/internal/app"
	"faculty-eval-service/internal/auth"
	"faculty-eval-service/internal/domain"
)

//go:embed seed.yaml
var defaultData []byte

type Data struct {
	Config struct {
		Batches      []string `yaml:"batches"`
		DemoSections []string `yaml:"demo_sections"`
		Designations []string `yaml:"designations"`
	} `yaml:"config"`
	Questions []struct {
		ID            string   `yaml:"id"`
		Section       string   `yaml:"section"`
		Question      string   `yaml:"question"`
		Options       []string `yaml:"options"`
		CorrectAnswer int      `yaml:"correct_answer"`
		Marks         int      `yaml:"marks"`
	} `yaml:"questions"`
	Users []struct {
		Name        string `yaml:"name"`
		Email       string `yaml:"email"`
		Password    string `yaml:"password"`
		Role        string `yaml:"role"`
		EmployeeID  string `yaml:"employee_id"`
		Designation string `yaml:"designation"`
		Department  string `yaml:"department"`
		Batch       string `yaml:"batch"`
	} `yaml:"users"`
}

// Default returns the bundled demo data.
func Default() (Data, error) {
	var d Data
	if err := yaml.Unmarshal(defaultData, &d); err != nil {
		return Data{}, fmt.Errorf("parse seed data: %w", err)
	}
	return d, nil
}

type Stores struct {
	Users     app.UserRepository
	Questions app.QuestionRepository
	Config    app.ConfigRepository
}

// Result counts what a seed run wrote.
type Result struct {
	Questions    int
	UsersCreated int
	UsersSkipped int
}

// Run upserts the config and questions and creates missing users. Existing accounts
// (matched by email) are left alone so passwords are never reset.
func Run(ctx context.Context, stores Stores, data Data, log *zap.Logger) (Result, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var res Result
	now := time.Now().UTC()

	cfg, err := stores.Config.Get(ctx, domain.ConfigKey)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return res, err
		}
		cfg = domain.DefaultSystemConfig()
		cfg.CreatedAt = now
	}
	cfg.Batches = data.Config.Batches
	cfg.DemoSections = data.Config.DemoSections
	cfg.Designations = data.Config.Designations
	cfg.UpdatedAt = now
	if _, err := stores.Config.Upsert(ctx, cfg); err != nil {
		return res, fmt.Errorf("seed config: %w", err)
	}

	for _, sq := range data.Questions {
		q := domain.QuizQuestion{
			ID:            sq.ID,
			Section:       sq.Section,
			Question:      sq.Question,
			Options:       sq.Options,
			CorrectAnswer: sq.CorrectAnswer,
			Marks:         sq.Marks,
			UpdatedAt:     now,
		}
		existing, err := stores.Questions.Get(ctx, q.ID)
		switch {
		case err == nil:
			q.CreatedAt = existing.CreatedAt
			_, err = stores.Questions.Update(ctx, q)
		case errors.Is(err, domain.ErrNotFound):
			q.CreatedAt = now
			_, err = stores.Questions.Create(ctx, q)
		}
		if err != nil {
			return res, fmt.Errorf("seed question %s: %w", q.ID, err)
		}
		res.Questions++
	}

	for _, su := range data.Users {
		email := domain.NormalizeEmail(su.Email)
		if _, err := stores.Users.GetByEmail(ctx, email); err == nil {
			log.Info("user exists, skip", zap.String("email", email))
			res.UsersSkipped++
			continue
		} else if !errors.Is(err, domain.ErrNotFound) {
			return res, err
		}
		role, err := domain.ParseRole(su.Role)
		if err != nil {
			return res, err
		}
		hash, err := auth.HashPassword(su.Password)
		if err != nil {
			return res, fmt.Errorf("hash password: %w", err)
		}
		_, err = stores.Users.Create(ctx, domain.User{
			ID:           uuid.NewString(),
			Name:         su.Name,
			Email:        email,
			PasswordHash: hash,
			EmployeeID:   su.EmployeeID,
			Designation:  su.Designation,
			Department:   su.Department,
			Batch:        su.Batch,
			Role:         role,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if err != nil {
			return res, fmt.Errorf("seed user %s: %w", email, err)
		}
		log.Info("created user", zap.String("email", email), zap.String("role", string(role)))
		res.UsersCreated++
	}
	return res, nil
}
