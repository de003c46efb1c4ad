package models

// BookingStatus reflects the outcome of the last submission
type BookingStatus string

const (
	StatusIdle    BookingStatus = "idle"
	StatusLoading BookingStatus = "loading"
	StatusSuccess BookingStatus = "success"
	StatusError   BookingStatus = "error"
)

// GuestLoginResponse - ответ сервиса на POST /api/auth/login-as-guest
type GuestLoginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

// BookingRequest - тело POST /api/bookings
type BookingRequest struct {
	EventID int64   `json:"eventId"`
	SeatIDs []int64 `json:"seatIds"`
}

// SubmitResponse is the raw outcome of a booking submission.
// The body is kept so that error classification stays transport-independent.
type SubmitResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// OK reports a 2xx status
func (r *SubmitResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// StatusSnapshot is the booking status together with its message
type StatusSnapshot struct {
	Status  BookingStatus `json:"status"`
	Message string        `json:"message,omitempty"`
}

// View - снимок состояния для слоя представления
type View struct {
	Event       *Event        `json:"event,omitempty"`
	Rows        []Row         `json:"rows"`
	SelectedIDs []int64       `json:"selected_ids"`
	Status      BookingStatus `json:"status"`
	Message     string        `json:"message,omitempty"`
	GuestID     string        `json:"guest_id"`
	AuthError   string        `json:"auth_error,omitempty"`
	CanSubmit   bool          `json:"can_submit"`
}

// ToggleResponse - ответ на переключение места
type ToggleResponse struct {
	SeatID      int64   `json:"seat_id"`
	Selected    bool    `json:"selected"`
	SelectedIDs []int64 `json:"selected_ids"`
}
