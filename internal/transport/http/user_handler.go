package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"faculty-eval-service/internal/app"
	"faculty-eval-service/internal/domain"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type sessionResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

func (h *handler) register(c *gin.Context) {
	var in app.NewUser
	if err := bind(c, &in); err != nil {
		h.fail(c, err)
		return
	}
	usr, token, err := h.svc.Users.Register(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sessionResponse{Token: token, User: usr})
}

func (h *handler) login(c *gin.Context) {
	var in loginRequest
	if err := bind(c, &in); err != nil {
		h.fail(c, err)
		return
	}
	usr, token, err := h.svc.Users.Login(c.Request.Context(), in.Email, in.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{Token: token, User: usr})
}

func (h *handler) me(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}

func (h *handler) listUsers(c *gin.Context) {
	users, err := h.svc.Users.List(c.Request.Context(), currentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *handler) listParticipants(c *gin.Context) {
	users, err := h.svc.Users.ListParticipants(c.Request.Context(), currentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *handler) createUser(c *gin.Context) {
	var in app.NewUser
	if err := bind(c, &in); err != nil {
		h.fail(c, err)
		return
	}
	usr, err := h.svc.Users.Create(c.Request.Context(), currentUser(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, usr)
}

func (h *handler) updateUser(c *gin.Context) {
	var in app.UpdateUser
	if err := bind(c, &in); err != nil {
		h.fail(c, err)
		return
	}
	usr, err := h.svc.Users.Update(c.Request.Context(), currentUser(c), c.Param("id"), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, usr)
}

func (h *handler) resetAttempt(c *gin.Context) {
	usr, err := h.svc.Users.ResetAttempt(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, usr)
}
