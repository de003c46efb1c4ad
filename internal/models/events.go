package models

import "time"

// NATS subjects for booking outcomes
const (
	EventBookingConfirmed = "booking.confirmed"
	EventBookingFailed    = "booking.failed"
	EventSessionReset     = "session.reset"
)

// BookingConfirmedEvent is published after the server accepted a reservation
type BookingConfirmedEvent struct {
	EventID   int64     `json:"event_id"`
	SeatIDs   []int64   `json:"seat_ids"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

// BookingFailedEvent is published when a reservation ended in the error state
type BookingFailedEvent struct {
	EventID    int64     `json:"event_id"`
	SeatIDs    []int64   `json:"seat_ids"`
	UserID     string    `json:"user_id"`
	StatusCode int       `json:"status_code"`
	Reason     string    `json:"reason"`
	Timestamp  time.Time `json:"timestamp"`
}

// SessionResetEvent is published when a rejected credential was discarded
type SessionResetEvent struct {
	EventID    int64     `json:"event_id"`
	UserID     string    `json:"user_id"`
	StatusCode int       `json:"status_code"`
	Timestamp  time.Time `json:"timestamp"`
}
