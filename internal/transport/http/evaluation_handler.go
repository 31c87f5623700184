package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"faculty-eval-service/internal/app"
	"faculty-eval-service/internal/domain"
)

type submitQuizRequest struct {
	Answers domain.AnswerSet `json:"answers" binding:"required"`
}

func (h *handler) leaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	list, err := h.svc.Evaluations.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *handler) listEvaluations(c *gin.Context) {
	list, err := h.svc.Evaluations.List(c.Request.Context(), currentUser(c), c.Query("batch"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *handler) faculty(c *gin.Context) {
	rows, err := h.svc.Evaluations.Faculty(c.Request.Context(), currentUser(c), c.Query("batch"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *handler) analysis(c *gin.Context) {
	rows, err := h.svc.Evaluations.Analysis(c.Request.Context(), currentUser(c), c.Query("batch"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *handler) myEvaluation(c *gin.Context) {
	eval, err := h.svc.Evaluations.Mine(c.Request.Context(), currentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, eval)
}

// submitQuiz accepts a participant's answers once; a reset by a super admin re-opens it.
func (h *handler) submitQuiz(c *gin.Context) {
	usr := currentUser(c)
	if !usr.Role.CanSubmitQuiz() {
		h.fail(c, domain.ErrNotParticipant)
		return
	}
	if usr.QuizAttempted {
		h.fail(c, domain.ErrAlreadyAttempted)
		return
	}
	var in submitQuizRequest
	if err := bind(c, &in); err != nil {
		h.fail(c, err)
		return
	}
	eval, err := h.svc.Evaluations.SubmitQuiz(c.Request.Context(), usr, in.Answers)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.metrics.submitted("quiz")
	c.JSON(http.StatusOK, eval)
}

func (h *handler) submitDemoScore(c *gin.Context) {
	var in app.DemoPatch
	if err := bind(c, &in); err != nil {
		h.fail(c, err)
		return
	}
	eval, err := h.svc.Evaluations.SubmitDemoScore(c.Request.Context(), currentUser(c), c.Param("employeeId"), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.metrics.submitted("demo")
	c.JSON(http.StatusOK, eval)
}
