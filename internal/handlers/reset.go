package handlers

import (
	"context"
	"net/http"

	"seatdesk/internal/logger"

	"github.com/gin-gonic/gin"
)

// ResetSession - POST /api/session/reset
// Полный сброс сессии: состояние очищается, сессия и данные загружаются заново
func (h *Handlers) ResetSession(c *gin.Context) {
	err := h.shell.Reload(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("Session reset finished with errors", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "Session reset finished with errors",
			"view":  h.shell.View(),
		})
		return
	}

	c.JSON(http.StatusOK, h.shell.View())
}
