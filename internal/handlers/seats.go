package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"seatdesk/internal/logger"
	"seatdesk/internal/seatmap"

	"github.com/gin-gonic/gin"
)

// Seats handlers

// ToggleSeat - POST /api/seats/:seatId/toggle
// Выбрать место или снять выбор
func (h *Handlers) ToggleSeat(c *gin.Context) {
	seatID, err := strconv.ParseInt(c.Param("seatId"), 10, 64)
	if err != nil || seatID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "seatId must be a positive integer"})
		return
	}

	response, err := h.shell.Toggle(seatID)
	if err != nil {
		switch {
		case errors.Is(err, seatmap.ErrSeatBooked):
			c.JSON(http.StatusConflict, gin.H{"error": "Seat is already booked"})
		case errors.Is(err, seatmap.ErrUnknownSeat):
			c.JSON(http.StatusNotFound, gin.H{"error": "Seat not found"})
		default:
			logger.WithContext(c.Request.Context()).Error("Failed to toggle seat", "seat_id", seatID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to toggle seat"})
		}
		return
	}

	c.JSON(http.StatusOK, response)
}

// ClearSelection - DELETE /api/selection
// Снять выбор со всех мест
func (h *Handlers) ClearSelection(c *gin.Context) {
	h.shell.ClearSelection()
	c.JSON(http.StatusOK, h.shell.View())
}
