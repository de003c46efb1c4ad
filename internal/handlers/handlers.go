package handlers

import (
	"context"
	"net/http"

	"seatdesk/internal/booking"
	"seatdesk/internal/models"

	"github.com/gin-gonic/gin"
)

// Shell is the host shell as seen by the HTTP surface
type Shell interface {
	View() models.View
	Toggle(seatID int64) (models.ToggleResponse, error)
	ClearSelection()
	Submit(ctx context.Context) booking.Outcome
	Reload(ctx context.Context) error
}

type Handlers struct {
	shell Shell
}

func NewHandlers(shell Shell) *Handlers {
	return &Handlers{shell: shell}
}

// GetView - GET /api/view
// Текущее состояние: событие, ряды, выбор, статус бронирования
func (h *Handlers) GetView(c *gin.Context) {
	c.JSON(http.StatusOK, h.shell.View())
}
