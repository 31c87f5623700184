package domain

import (
	"strings"
	"time"
)

// DefaultMarks is awarded for a correct answer when a question carries no explicit marks.
const DefaultMarks = 2

// DefaultQuizDuration is the quiz length in minutes used until an admin changes it.
const DefaultQuizDuration = 30

// ConfigKey identifies the singleton system configuration.
const ConfigKey = "main"

// User is an account holder: a participant being evaluated or an admin.
type User struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	PasswordHash  []byte    `json:"-"`
	EmployeeID    string    `json:"employeeId"`
	Designation   string    `json:"designation"`
	Department    string    `json:"department"`
	Batch         string    `json:"batch"`
	Role          Role      `json:"role"`
	QuizAttempted bool      `json:"quizAttempted"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// NormalizeEmail lower-cases and trims an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// QuizQuestion is a single multiple-choice question in the bank.
type QuizQuestion struct {
	ID            string    `json:"id"`
	Section       string    `json:"section"`
	Question      string    `json:"question"`
	Options       []string  `json:"options"`
	CorrectAnswer int       `json:"correctAnswer"`
	Marks         int       `json:"marks"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// EffectiveMarks returns the marks for a correct answer, falling back to DefaultMarks.
func (q QuizQuestion) EffectiveMarks() int {
	if q.Marks <= 0 {
		return DefaultMarks
	}
	return q.Marks
}

// PublicQuestion is what a participant sees: no correct answer.
type PublicQuestion struct {
	ID       string   `json:"id"`
	Section  string   `json:"section"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Marks    int      `json:"marks"`
}

func (q QuizQuestion) Public() PublicQuestion {
	return PublicQuestion{
		ID:       q.ID,
		Section:  q.Section,
		Question: q.Question,
		Options:  q.Options,
		Marks:    q.EffectiveMarks(),
	}
}

// AnswerSet maps question id to the selected option index.
type AnswerSet map[string]int

// SectionScores maps a section name to its sub-score. A new submission replaces the whole map.
type SectionScores map[string]float64

func (s SectionScores) Sum() float64 {
	var total float64
	for _, v := range s {
		total += v
	}
	return total
}

func (s SectionScores) Clone() SectionScores {
	if s == nil {
		return nil
	}
	out := make(SectionScores, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Evaluation is the per-participant score document keyed by employee id.
type Evaluation struct {
	EmployeeID        string        `json:"employeeId"`
	UserID            string        `json:"userId"`
	Name              string        `json:"name"`
	Batch             string        `json:"batch"`
	Department        string        `json:"department"`
	Designation       string        `json:"designation"`
	QuizScore         float64       `json:"quizScore"`
	QuizSectionScores SectionScores `json:"quizSectionScores"`
	DemoScore         *float64      `json:"demoScore"`
	DemoSectionScores SectionScores `json:"demoSectionScores"`
	TotalScore        float64       `json:"totalScore"`
	EvaluatedBy       string        `json:"evaluatedBy,omitempty"`
	SubmittedAt       time.Time     `json:"submittedAt"`
	CreatedAt         time.Time     `json:"createdAt"`
	UpdatedAt         time.Time     `json:"updatedAt"`
}

// Recompute restores TotalScore = QuizScore + DemoScore (0 when not yet evaluated).
func (e *Evaluation) Recompute() {
	total := e.QuizScore
	if e.DemoScore != nil {
		total += *e.DemoScore
	}
	e.TotalScore = total
}

// Clone returns a deep copy so stores never share maps with callers.
func (e Evaluation) Clone() Evaluation {
	out := e
	out.QuizSectionScores = e.QuizSectionScores.Clone()
	out.DemoSectionScores = e.DemoSectionScores.Clone()
	if e.DemoScore != nil {
		v := *e.DemoScore
		out.DemoScore = &v
	}
	return out
}

// SystemConfig holds the admin-maintained enumerations and quiz settings.
type SystemConfig struct {
	Key          string    `json:"key"`
	Batches      []string  `json:"batches"`
	DemoSections []string  `json:"demoSections"`
	Designations []string  `json:"designations"`
	QuizDuration int       `json:"quizDuration"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// DefaultSystemConfig is created on first read.
func DefaultSystemConfig() SystemConfig {
	return SystemConfig{
		Key:          ConfigKey,
		Batches:      []string{},
		DemoSections: []string{},
		Designations: []string{},
		QuizDuration: DefaultQuizDuration,
	}
}

// FacultyRow joins a participant with their evaluation. Score fields stay nil until the
// participant has submitted; callers must not read nil as zero.
type FacultyRow struct {
	UserID            string        `json:"id"`
	Name              string        `json:"name"`
	Email             string        `json:"email"`
	EmployeeID        string        `json:"employeeId"`
	Batch             string        `json:"batch"`
	Department        string        `json:"department"`
	Designation       string        `json:"designation"`
	QuizAttempted     bool          `json:"quizAttempted"`
	QuizScore         *float64      `json:"quizScore"`
	QuizSectionScores SectionScores `json:"quizSectionScores"`
	DemoScore         *float64      `json:"demoScore"`
	DemoSectionScores SectionScores `json:"demoSectionScores"`
	TotalScore        *float64      `json:"totalScore"`
	EvaluatedBy       string        `json:"evaluatedBy,omitempty"`
	SubmittedAt       *time.Time    `json:"submittedAt,omitempty"`
}

// Event types broadcast to the admin room.
const (
	EventEvaluationSubmitted = "evaluation:submitted"
	EventEvaluationUpdated   = "evaluation:updated"
)

// AdminRoom is the subscriber group receiving evaluation changes.
const AdminRoom = "admin-room"

// Event is a notification delivered best-effort to a room.
type Event struct {
	Room    string     `json:"room"`
	Type    string     `json:"type"`
	Payload Evaluation `json:"payload"`
}
