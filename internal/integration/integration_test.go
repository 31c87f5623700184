package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"faculty-eval-service/internal/app"
	"faculty-eval-service/internal/domain"
	"faculty-eval-service/internal/infra/postgres"
	infraredis "faculty-eval-service/internal/infra/redis"
	"faculty-eval-service/internal/seed"
)

func TestEvaluationWorkflowEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := postgres.Open(pgURL)
	defer db.Close()
	if _, err := postgres.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	users := postgres.NewUserStore(db)
	evals := postgres.NewEvaluationStore(db)
	questions := postgres.NewQuestionStore(db)
	configs := postgres.NewConfigStore(db)

	data, err := seed.Default()
	if err != nil {
		t.Fatalf("seed data: %v", err)
	}
	if _, err := seed.Run(ctx, seed.Stores{Users: users, Questions: questions, Config: configs}, data, nil); err != nil {
		t.Fatalf("seed: %v", err)
	}

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()
	bank := infraredis.NewQuestionBank(redisClient, postgres.NewQuestionLoader(pool), 5*time.Minute)

	hub := app.NewHub()
	feed, cancel := hub.Subscribe(domain.AdminRoom)
	defer cancel()
	relayCtx, stopRelay := context.WithCancel(ctx)
	defer stopRelay()
	ready := make(chan struct{})
	go func() { _ = infraredis.NewRelay(redisClient, hub, nil).Run(relayCtx, ready, domain.AdminRoom) }()
	select {
	case <-ready:
	case <-time.After(10 * time.Second):
		t.Fatalf("relay did not subscribe")
	}

	service := app.NewEvaluationService(evals, users, bank, infraredis.NewEventBus(redisClient), app.EvaluationOptions{MaxDemoScore: 50})

	participant, err := users.GetByEmail(ctx, "faculty1@faculty.com")
	if err != nil {
		t.Fatalf("participant: %v", err)
	}
	admin, err := users.GetByEmail(ctx, "admin@faculty.com")
	if err != nil {
		t.Fatalf("admin: %v", err)
	}

	qs, err := bank.Questions(ctx)
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	if len(qs) != 25 {
		t.Fatalf("expected 25 questions, got %d", len(qs))
	}
	answers := domain.AnswerSet{}
	for i, q := range qs {
		if i < 20 {
			answers[q.ID] = q.CorrectAnswer
		}
	}

	eval, err := service.SubmitQuiz(ctx, participant, answers)
	if err != nil {
		t.Fatalf("submit quiz: %v", err)
	}
	if eval.QuizScore != 40 || eval.TotalScore != 40 || eval.DemoScore != nil {
		t.Fatalf("unexpected quiz evaluation %+v", eval)
	}
	expectEvent(t, feed, domain.EventEvaluationSubmitted, 40)

	demo := 35.0
	eval, err = service.SubmitDemoScore(ctx, admin, participant.EmployeeID, app.DemoPatch{
		DemoScore:         &demo,
		DemoSectionScores: domain.SectionScores{"Use of Tools": 7, "Engagement with Tools": 7, "Concept Visualization": 7, "Interactive Visualization": 7, "Relevancy of Using Tools": 7},
	})
	if err != nil {
		t.Fatalf("submit demo: %v", err)
	}
	if eval.TotalScore != 75 || eval.EvaluatedBy != app.EvaluatorLabel {
		t.Fatalf("unexpected demo evaluation %+v", eval)
	}
	expectEvent(t, feed, domain.EventEvaluationUpdated, 75)

	// Resubmitting keeps the demo score and rebuilds the total from it.
	eval, err = service.SubmitQuiz(ctx, participant, domain.AnswerSet{})
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if eval.QuizScore != 0 || eval.TotalScore != 35 || eval.DemoScore == nil || *eval.DemoScore != 35 {
		t.Fatalf("expected demo preserved on resubmission, got %+v", eval)
	}

	stored, err := users.GetByID(ctx, participant.ID)
	if err != nil || !stored.QuizAttempted {
		t.Fatalf("expected quiz attempted flag, got %+v err=%v", stored, err)
	}

	board, err := service.Leaderboard(ctx, 0)
	if err != nil || len(board) != 1 || board[0].EmployeeID != "FAC001" {
		t.Fatalf("unexpected leaderboard %+v err=%v", board, err)
	}

	if _, err := users.Create(ctx, domain.User{ID: "dup", Name: "Dup", Email: "faculty1@faculty.com", PasswordHash: []byte("x"), Role: domain.RoleParticipant}); !errors.Is(err, domain.ErrEmailExists) {
		t.Fatalf("expected duplicate email conflict, got %v", err)
	}
	if _, err := users.Create(ctx, domain.User{ID: "dup2", Name: "Dup", Email: "other@faculty.com", EmployeeID: "FAC001", PasswordHash: []byte("x"), Role: domain.RoleParticipant}); !errors.Is(err, domain.ErrEmployeeIDExists) {
		t.Fatalf("expected duplicate employee id conflict, got %v", err)
	}

	if err := evals.Delete(ctx, participant.EmployeeID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := evals.Get(ctx, participant.EmployeeID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected evaluation gone, got %v", err)
	}
	if _, err := service.SubmitDemoScore(ctx, admin, participant.EmployeeID, app.DemoPatch{DemoScore: &demo}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected demo on missing record to fail, got %v", err)
	}
}

func expectEvent(t *testing.T, feed <-chan domain.Event, typ string, total float64) {
	t.Helper()
	select {
	case ev := <-feed:
		if ev.Type != typ || ev.Payload.TotalScore != total {
			t.Fatalf("expected %s with total %v, got %+v", typ, total, ev)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("no %s event", typ)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "faculty", "POSTGRES_PASSWORD": "facultypass", "POSTGRES_DB": "evaluations"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://faculty:facultypass@%s:%s/evaluations?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
