package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"faculty-eval-service/internal/app"
)

func (h *handler) getConfig(c *gin.Context) {
	cfg, err := h.svc.Config.Get(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *handler) updateConfig(c *gin.Context) {
	var patch app.ConfigPatch
	if err := bind(c, &patch); err != nil {
		h.fail(c, err)
		return
	}
	cfg, err := h.svc.Config.Update(c.Request.Context(), currentUser(c), patch)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}
