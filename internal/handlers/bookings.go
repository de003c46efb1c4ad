package handlers

import (
	"context"
	"net/http"

	"seatdesk/internal/booking"
	"seatdesk/internal/models"

	"github.com/gin-gonic/gin"
)

// SubmitResponse - результат отправки бронирования
type SubmitResponse struct {
	Outcome booking.Outcome `json:"outcome"`
	View    models.View     `json:"view"`
}

// SubmitBooking - POST /api/bookings/submit
// Забронировать выбранные места
func (h *Handlers) SubmitBooking(c *gin.Context) {
	// the outcome must be applied even if the caller goes away
	ctx := context.WithoutCancel(c.Request.Context())

	// skipped (nothing selected, no session or a booking pending) is a
	// no-op, not a conflict; the outcome field says so
	outcome := h.shell.Submit(ctx)
	c.JSON(http.StatusOK, SubmitResponse{Outcome: outcome, View: h.shell.View()})
}
