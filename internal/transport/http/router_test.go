package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"faculty-eval-service/internal/app"
	"faculty-eval-service/internal/auth"
	"faculty-eval-service/internal/domain"
	"faculty-eval-service/internal/infra/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	t      *testing.T
	router *gin.Engine
	users  *memory.UserStore
	hub    *app.Hub
	tokens *auth.TokenManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	users := memory.NewUserStore()
	evals := memory.NewEvaluationStore()
	questions := memory.NewQuestionStore(sampleQuestions()...)
	bank := memory.NewQuestionBank(questions, time.Minute)
	hub := app.NewHub()
	tokens := auth.NewTokenManager("test-secret", time.Hour)

	svc := Services{
		Users:       app.NewUserService(users, evals, tokens, nil),
		Questions:   app.NewQuestionService(questions, bank, nil),
		Evaluations: app.NewEvaluationService(evals, users, bank, hub, app.EvaluationOptions{MaxDemoScore: 50}),
		Config:      app.NewConfigService(memory.NewConfigStore()),
		Hub:         hub,
	}
	router := NewRouter(svc, RouterOptions{
		Tokens:      tokens,
		CORSOrigins: []string{"http://localhost:5173"},
		LoginLimit:  rate.Inf,
	})
	return &testEnv{t: t, router: router, users: users, hub: hub, tokens: tokens}
}

// user stores an account directly and returns it with a signed token.
func (e *testEnv) user(id string, role domain.Role, employeeID string) (domain.User, string) {
	e.t.Helper()
	hash, err := auth.HashPassword("password123")
	if err != nil {
		e.t.Fatalf("hash: %v", err)
	}
	usr, err := e.users.Create(context.Background(), domain.User{
		ID:           id,
		Name:         "User " + id,
		Email:        id + "@faculty.test",
		PasswordHash: hash,
		EmployeeID:   employeeID,
		Batch:        "Batch A",
		Role:         role,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		e.t.Fatalf("create user: %v", err)
	}
	token, err := e.tokens.Issue(usr)
	if err != nil {
		e.t.Fatalf("issue: %v", err)
	}
	return usr, token
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			e.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestRegisterLoginAndMe(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"name": "Dr. Rao", "email": "Rao@Faculty.test", "password": "secret1", "employeeId": "FAC100", "role": "super_admin",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status %d: %s", rec.Code, rec.Body.String())
	}
	reg := decode[sessionResponse](t, rec)
	if reg.Token == "" || reg.User.Role != domain.RoleParticipant || reg.User.Email != "rao@faculty.test" {
		t.Fatalf("unexpected registration %+v", reg)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("password material leaked: %s", rec.Body.String())
	}

	rec = env.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"name": "Dup", "email": "rao@faculty.test", "password": "secret1",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", rec.Code)
	}

	rec = env.do(http.MethodPost, "/api/auth/login", "", map[string]any{"email": "rao@faculty.test", "password": "wrong!!"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %d", rec.Code)
	}

	rec = env.do(http.MethodPost, "/api/auth/login", "", map[string]any{"email": "RAO@faculty.test", "password": "secret1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status %d: %s", rec.Code, rec.Body.String())
	}
	login := decode[sessionResponse](t, rec)

	rec = env.do(http.MethodGet, "/api/auth/me", login.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me status %d", rec.Code)
	}
	if me := decode[domain.User](t, rec); me.ID != reg.User.ID {
		t.Fatalf("expected me to be %s, got %s", reg.User.ID, me.ID)
	}

	if rec := env.do(http.MethodGet, "/api/auth/me", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodPost, "/api/auth/register", "", map[string]any{"email": "x@y.test", "password": "123"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := decode[errorResponse](t, rec).Message; !strings.Contains(msg, "name is required") {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestQuizSubmissionDemoScoreAndLeaderboard(t *testing.T) {
	env := newTestEnv(t)
	_, participantToken := env.user("p1", domain.RoleParticipant, "FAC001")
	_, adminToken := env.user("a1", domain.RoleAdmin, "")

	rec := env.do(http.MethodGet, "/api/quiz", participantToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("quiz list status %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "correctAnswer") {
		t.Fatalf("participant must not see answers: %s", rec.Body.String())
	}
	rec = env.do(http.MethodGet, "/api/quiz", adminToken, nil)
	if !strings.Contains(rec.Body.String(), "correctAnswer") {
		t.Fatalf("admin should see answers: %s", rec.Body.String())
	}

	answers := map[string]int{"q1": 1, "q2": 0, "q3": 3}
	rec = env.do(http.MethodPost, "/api/evaluations", participantToken, map[string]any{"answers": answers})
	if rec.Code != http.StatusOK {
		t.Fatalf("submit status %d: %s", rec.Code, rec.Body.String())
	}
	eval := decode[domain.Evaluation](t, rec)
	if eval.QuizScore != 4 || eval.TotalScore != 4 || eval.QuizSectionScores["Tools"] != 2 || eval.QuizSectionScores["Ethics"] != 2 {
		t.Fatalf("unexpected evaluation %+v", eval)
	}

	rec = env.do(http.MethodPost, "/api/evaluations", participantToken, map[string]any{"answers": answers})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected second submission to be rejected, got %d", rec.Code)
	}
	rec = env.do(http.MethodPost, "/api/evaluations", adminToken, map[string]any{"answers": answers})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected admin submission to be rejected, got %d", rec.Code)
	}

	rec = env.do(http.MethodPut, "/api/evaluations/FAC001", participantToken, map[string]any{"demoScore": 10})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected participant demo write to be forbidden, got %d", rec.Code)
	}
	rec = env.do(http.MethodPut, "/api/evaluations/NOPE", adminToken, map[string]any{"demoScore": 10})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown employee, got %d", rec.Code)
	}
	rec = env.do(http.MethodPut, "/api/evaluations/FAC001", adminToken, map[string]any{"demoScore": 80})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 above max demo score, got %d", rec.Code)
	}
	rec = env.do(http.MethodPut, "/api/evaluations/FAC001", adminToken, map[string]any{
		"demoScore":         35,
		"demoSectionScores": map[string]float64{"Delivery": 20, "Content": 15},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("demo status %d: %s", rec.Code, rec.Body.String())
	}
	eval = decode[domain.Evaluation](t, rec)
	if eval.TotalScore != 39 || eval.EvaluatedBy != app.EvaluatorLabel {
		t.Fatalf("unexpected evaluation after demo %+v", eval)
	}

	rec = env.do(http.MethodGet, "/api/evaluations/leaderboard?limit=abc", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("leaderboard status %d", rec.Code)
	}
	board := decode[[]domain.Evaluation](t, rec)
	if len(board) != 1 || board[0].EmployeeID != "FAC001" || board[0].TotalScore != 39 {
		t.Fatalf("unexpected leaderboard %+v", board)
	}

	rec = env.do(http.MethodGet, "/api/evaluations/me", participantToken, nil)
	if mine := decode[*domain.Evaluation](t, rec); mine == nil || mine.TotalScore != 39 {
		t.Fatalf("unexpected own evaluation %+v", mine)
	}
	rec = env.do(http.MethodGet, "/api/evaluations/me", adminToken, nil)
	if strings.TrimSpace(rec.Body.String()) != "null" {
		t.Fatalf("expected null for admin, got %s", rec.Body.String())
	}
}

func TestFacultyAnalysisAndPermissions(t *testing.T) {
	env := newTestEnv(t)
	_, p1 := env.user("p1", domain.RoleParticipant, "FAC001")
	env.user("p2", domain.RoleParticipant, "FAC002")
	_, adminToken := env.user("a1", domain.RoleAdmin, "")

	if rec := env.do(http.MethodPost, "/api/evaluations", p1, map[string]any{"answers": map[string]int{"q1": 1}}); rec.Code != http.StatusOK {
		t.Fatalf("submit status %d", rec.Code)
	}

	if rec := env.do(http.MethodGet, "/api/evaluations/faculty", p1, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for participant, got %d", rec.Code)
	}

	rec := env.do(http.MethodGet, "/api/evaluations/analysis?batch=All", adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("analysis status %d", rec.Code)
	}
	rows := decode[[]map[string]any](t, rec)
	if len(rows) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(rows))
	}
	for _, row := range rows {
		switch row["employeeId"] {
		case "FAC001":
			if row["totalScore"] != float64(2) {
				t.Fatalf("expected total 2 for FAC001, got %v", row["totalScore"])
			}
		case "FAC002":
			if row["totalScore"] != nil || row["quizScore"] != nil {
				t.Fatalf("expected null scores for FAC002, got %v", row)
			}
			if sections, ok := row["quizSectionScores"].(map[string]any); !ok || len(sections) != 0 {
				t.Fatalf("expected empty section map, got %v", row["quizSectionScores"])
			}
		}
	}
}

func TestResetAttemptAllowsResubmission(t *testing.T) {
	env := newTestEnv(t)
	p, pToken := env.user("p1", domain.RoleParticipant, "FAC001")
	_, superToken := env.user("s1", domain.RoleSuperAdmin, "SUPER001")
	_, adminToken := env.user("a1", domain.RoleAdmin, "")

	env.do(http.MethodPost, "/api/evaluations", pToken, map[string]any{"answers": map[string]int{"q1": 1}})

	path := fmt.Sprintf("/api/users/%s/reset-attempt", p.ID)
	if rec := env.do(http.MethodPatch, path, adminToken, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for admin reset, got %d", rec.Code)
	}
	rec := env.do(http.MethodPatch, path, superToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reset status %d: %s", rec.Code, rec.Body.String())
	}
	if usr := decode[domain.User](t, rec); usr.QuizAttempted {
		t.Fatalf("expected attempt cleared")
	}
	if rec := env.do(http.MethodGet, "/api/evaluations/me", pToken, nil); strings.TrimSpace(rec.Body.String()) != "null" {
		t.Fatalf("expected evaluation deleted, got %s", rec.Body.String())
	}
	if rec := env.do(http.MethodPost, "/api/evaluations", pToken, map[string]any{"answers": map[string]int{"q1": 1, "q2": 0}}); rec.Code != http.StatusOK {
		t.Fatalf("expected resubmission to succeed, got %d", rec.Code)
	}
}

func TestUserUpdateRules(t *testing.T) {
	env := newTestEnv(t)
	p1, p1Token := env.user("p1", domain.RoleParticipant, "FAC001")
	p2, _ := env.user("p2", domain.RoleParticipant, "FAC002")
	_, superToken := env.user("s1", domain.RoleSuperAdmin, "")

	rec := env.do(http.MethodPut, "/api/users/"+p1.ID, p1Token, map[string]any{"department": "Physics"})
	if rec.Code != http.StatusOK || decode[domain.User](t, rec).Department != "Physics" {
		t.Fatalf("self update failed: %d %s", rec.Code, rec.Body.String())
	}
	if rec := env.do(http.MethodPut, "/api/users/"+p1.ID, p1Token, map[string]any{"role": "admin"}); rec.Code != http.StatusForbidden {
		t.Fatalf("expected self role change to be forbidden, got %d", rec.Code)
	}
	if rec := env.do(http.MethodPut, "/api/users/"+p2.ID, p1Token, map[string]any{"name": "x"}); rec.Code != http.StatusForbidden {
		t.Fatalf("expected editing others to be forbidden, got %d", rec.Code)
	}
	rec = env.do(http.MethodPut, "/api/users/"+p2.ID, superToken, map[string]any{"role": "admin"})
	if rec.Code != http.StatusOK || decode[domain.User](t, rec).Role != domain.RoleAdmin {
		t.Fatalf("super admin role change failed: %d %s", rec.Code, rec.Body.String())
	}
	rec = env.do(http.MethodPost, "/api/users", superToken, map[string]any{
		"name": "New Admin", "email": "new@faculty.test", "password": "admin123", "role": "admin",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create user status %d: %s", rec.Code, rec.Body.String())
	}
	if rec := env.do(http.MethodGet, "/api/users/participants", p1Token, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected participant listing to be forbidden, got %d", rec.Code)
	}
}

func TestConfigRoutes(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.user("a1", domain.RoleAdmin, "")

	rec := env.do(http.MethodGet, "/api/config", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("config status %d", rec.Code)
	}
	if cfg := decode[domain.SystemConfig](t, rec); cfg.QuizDuration != domain.DefaultQuizDuration {
		t.Fatalf("expected default duration, got %d", cfg.QuizDuration)
	}

	if rec := env.do(http.MethodPut, "/api/config", adminToken, map[string]any{"quizDuration": 0}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero duration, got %d", rec.Code)
	}
	rec = env.do(http.MethodPut, "/api/config", adminToken, map[string]any{"batches": []string{"Batch A"}, "quizDuration": 45})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status %d: %s", rec.Code, rec.Body.String())
	}
	cfg := decode[domain.SystemConfig](t, rec)
	if cfg.QuizDuration != 45 || len(cfg.Batches) != 1 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if rec := env.do(http.MethodPut, "/api/config", "", map[string]any{"quizDuration": 10}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestCORSAndHealth(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/config", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatalf("unexpected preflight %d %v", rec.Code, rec.Header())
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.test")
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("unexpected health response %d %v", rec.Code, rec.Header())
	}

	rec = env.do(http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "http_requests_total") {
		t.Fatalf("expected metrics output, got %d", rec.Code)
	}
}

func TestLoginRateLimited(t *testing.T) {
	env := newTestEnv(t)
	env.router = NewRouter(Services{
		Users:  app.NewUserService(memory.NewUserStore(), memory.NewEvaluationStore(), env.tokens, nil),
		Config: app.NewConfigService(memory.NewConfigStore()),
		Hub:    env.hub,
	}, RouterOptions{Tokens: env.tokens, LoginLimit: rate.Every(time.Hour), LoginBurst: 2})

	var last int
	for i := 0; i < 3; i++ {
		last = env.do(http.MethodPost, "/api/auth/login", "", map[string]any{"email": "x@y.test", "password": "whatever"}).Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", last)
	}
}

func sampleQuestions() []domain.QuizQuestion {
	return []domain.QuizQuestion{
		{ID: "q1", Section: "Tools", Question: "Pick B", Options: []string{"A", "B", "C", "D"}, CorrectAnswer: 1, Marks: 2},
		{ID: "q2", Section: "Ethics", Question: "Pick A", Options: []string{"A", "B", "C", "D"}, CorrectAnswer: 0, Marks: 2},
		{ID: "q3", Section: "Ethics", Question: "Pick C", Options: []string{"A", "B", "C", "D"}, CorrectAnswer: 2, Marks: 2},
	}
}
