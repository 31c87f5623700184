package seed

import (
	"context"
	"testing"

	"faculty-eval-service/internal/app"
	"faculty-eval-service/internal/auth"
	"faculty-eval-service/internal/domain"
	"faculty-eval-service/internal/infra/memory"
)

func TestRunSeedsDemoDataOnce(t *testing.T) {
	data, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	stores := Stores{
		Users:     memory.NewUserStore(),
		Questions: memory.NewQuestionStore(),
		Config:    memory.NewConfigStore(),
	}
	ctx := context.Background()

	res, err := Run(ctx, stores, data, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Questions != 25 || res.UsersCreated != 5 || res.UsersSkipped != 0 {
		t.Fatalf("unexpected result %+v", res)
	}

	qs, _ := stores.Questions.LoadQuestions(ctx)
	sections := map[string]int{}
	var marks int
	for _, q := range qs {
		sections[q.Section]++
		marks += q.EffectiveMarks()
	}
	if len(sections) != 5 || marks != 50 {
		t.Fatalf("expected 5 sections worth 50 marks, got %d sections and %d marks", len(sections), marks)
	}
	if qs[0].ID != "q1" || qs[24].ID != "q25" {
		t.Fatalf("expected numeric id order, got %s..%s", qs[0].ID, qs[24].ID)
	}

	cfg, err := stores.Config.Get(ctx, domain.ConfigKey)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if len(cfg.Batches) != 8 || len(cfg.DemoSections) != 5 || len(cfg.Designations) != 4 || cfg.QuizDuration != domain.DefaultQuizDuration {
		t.Fatalf("unexpected config %+v", cfg)
	}

	super, err := stores.Users.GetByEmail(ctx, "super@faculty.com")
	if err != nil {
		t.Fatalf("super admin: %v", err)
	}
	if super.Role != domain.RoleSuperAdmin || super.EmployeeID != "SUPER001" {
		t.Fatalf("unexpected super admin %+v", super)
	}
	if err := auth.CheckPassword(super.PasswordHash, "admin123"); err != nil {
		t.Fatalf("expected seeded password to verify: %v", err)
	}
	participants, _ := stores.Users.List(ctx, app.UserFilter{Role: domain.RoleParticipant, Batch: "Batch A"})
	if len(participants) != 2 {
		t.Fatalf("expected 2 Batch A participants, got %d", len(participants))
	}

	res, err = Run(ctx, stores, data, nil)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res.UsersCreated != 0 || res.UsersSkipped != 5 || res.Questions != 25 {
		t.Fatalf("expected idempotent second run, got %+v", res)
	}
}
