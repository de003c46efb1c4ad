package models

// TicketStatus is the server-side state of a ticket
type TicketStatus string

const (
	TicketAvailable TicketStatus = "AVAILABLE"
	TicketBooked    TicketStatus = "BOOKED"
)

// Credential is the guest identity issued by the booking service.
// Either both fields are set or the credential is treated as absent.
type Credential struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

// Valid reports whether both halves of the credential are present
func (c Credential) Valid() bool {
	return c.Token != "" && c.UserID != ""
}

// Venue is where an event takes place
type Venue struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Event is the catalog descriptor of a bookable event.
// Date is kept as sent by the server (local date-time without zone).
type Event struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Date  string `json:"date"`
	Venue *Venue `json:"venue,omitempty"`
}

// Seat is immutable reference data for a physical seat
type Seat struct {
	ID         int64  `json:"id"`
	RowLabel   string `json:"rowNumber"`
	SeatNumber int    `json:"seatNumber"`
	Section    string `json:"section"`
}

// Ticket ties a seat to an event. Status only changes by re-fetching.
type Ticket struct {
	ID     int64        `json:"id"`
	Status TicketStatus `json:"status"`
	Seat   Seat         `json:"seat"`
}

// IsBooked reports whether the ticket can no longer be selected
func (t Ticket) IsBooked() bool {
	return t.Status == TicketBooked
}

// Row is one row of the seat map, tickets ordered by seat number
type Row struct {
	Label   string   `json:"label"`
	Tickets []Ticket `json:"tickets"`
}
