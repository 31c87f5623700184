package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"faculty-eval-service/internal/domain"
)

// listQuestions shows admins the full bank; everyone else gets it without answers.
func (h *handler) listQuestions(c *gin.Context) {
	if currentUser(c).Role.IsAdmin() {
		questions, err := h.svc.Questions.List(c.Request.Context())
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, questions)
		return
	}
	questions, err := h.svc.Questions.ListPublic(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, questions)
}

func (h *handler) createQuestion(c *gin.Context) {
	var in domain.QuizQuestion
	if err := bind(c, &in); err != nil {
		h.fail(c, err)
		return
	}
	q, err := h.svc.Questions.Create(c.Request.Context(), currentUser(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, q)
}

func (h *handler) updateQuestion(c *gin.Context) {
	var in domain.QuizQuestion
	if err := bind(c, &in); err != nil {
		h.fail(c, err)
		return
	}
	q, err := h.svc.Questions.Update(c.Request.Context(), currentUser(c), c.Param("id"), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (h *handler) deleteQuestion(c *gin.Context) {
	if err := h.svc.Questions.Delete(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "Deleted"})
}
