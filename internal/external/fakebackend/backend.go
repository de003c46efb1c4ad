// Package fakebackend runs an in-process booking service for tests. It
// speaks the same routes and payloads as the real service: guest login,
// catalog and ticket reads, and bearer-authenticated booking with
// problem+json conflicts.
package fakebackend

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"seatdesk/internal/models"
)

// Submission is one booking request as received
type Submission struct {
	Token   string
	Request models.BookingRequest
}

type Backend struct {
	server *httptest.Server

	mu          sync.Mutex
	events      map[int64]models.Event
	tickets     map[int64][]models.Ticket
	tokens      map[string]string
	nextGuest   int
	logins      int
	submissions []Submission
	loginFails  bool
	ticketFails bool

	// forced response for the next booking request, if set
	forced *forcedResponse
}

type forcedResponse struct {
	status      int
	contentType string
	body        string
}

func New() *Backend {
	gin.SetMode(gin.TestMode)

	b := &Backend{
		events:  make(map[int64]models.Event),
		tickets: make(map[int64][]models.Ticket),
		tokens:  make(map[string]string),
	}

	r := gin.New()
	api := r.Group("/api")
	{
		api.POST("/auth/login-as-guest", b.loginAsGuest)
		api.GET("/catalog/events/:id", b.getEvent)
		api.GET("/bookings/event/:id", b.getTickets)
		api.POST("/bookings", b.book)
	}

	b.server = httptest.NewServer(r)
	return b
}

func (b *Backend) URL() string { return b.server.URL }

func (b *Backend) Close() { b.server.Close() }

// AddEvent registers an event with its tickets
func (b *Backend) AddEvent(event models.Event, tickets []models.Ticket) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[event.ID] = event
	b.tickets[event.ID] = append([]models.Ticket(nil), tickets...)
}

// AddGuest makes token a valid credential for userID
func (b *Backend) AddGuest(token, userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens[token] = userID
}

// RevokeAll makes every issued token invalid
func (b *Backend) RevokeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.tokens)
}

// BookSeat marks a seat as booked by someone else
func (b *Backend) BookSeat(eventID, seatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, t := range b.tickets[eventID] {
		if t.Seat.ID == seatID {
			b.tickets[eventID][i].Status = models.TicketBooked
		}
	}
}

// ForceNextBooking makes the next booking request answer with the given response
func (b *Backend) ForceNextBooking(status int, contentType, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.forced = &forcedResponse{status: status, contentType: contentType, body: body}
}

func (b *Backend) FailLogins(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loginFails = fail
}

func (b *Backend) FailTicketReads(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ticketFails = fail
}

func (b *Backend) Logins() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.logins
}

func (b *Backend) Submissions() []Submission {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Submission(nil), b.submissions...)
}

func (b *Backend) loginAsGuest(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.logins++
	if b.loginFails {
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "auth unavailable"})
		return
	}

	b.nextGuest++
	token := uuid.New().String()
	userID := fmt.Sprintf("guest-%d", b.nextGuest)
	b.tokens[token] = userID

	c.JSON(http.StatusOK, models.GuestLoginResponse{Token: token, UserID: userID})
}

func (b *Backend) getEvent(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid id"})
		return
	}

	b.mu.Lock()
	event, ok := b.events[id]
	b.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "event not found"})
		return
	}
	c.JSON(http.StatusOK, event)
}

func (b *Backend) getTickets(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid id"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ticketFails {
		c.String(http.StatusInternalServerError, "boom")
		return
	}
	tickets := b.tickets[id]
	if tickets == nil {
		tickets = []models.Ticket{}
	}
	c.JSON(http.StatusOK, tickets)
}

func (b *Backend) book(c *gin.Context) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")

	var req models.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		problem(c, http.StatusBadRequest, err.Error())
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.submissions = append(b.submissions, Submission{Token: token, Request: req})

	if f := b.forced; f != nil {
		b.forced = nil
		c.Data(f.status, f.contentType, []byte(f.body))
		return
	}

	if _, ok := b.tokens[token]; !ok {
		c.Status(http.StatusForbidden)
		return
	}

	tickets := b.tickets[req.EventID]
	for _, seatID := range req.SeatIDs {
		for _, t := range tickets {
			if t.Seat.ID == seatID && t.IsBooked() {
				problem(c, http.StatusConflict, fmt.Sprintf("Seat %d is already booked", seatID))
				return
			}
		}
	}

	for _, seatID := range req.SeatIDs {
		for i := range tickets {
			if tickets[i].Seat.ID == seatID {
				tickets[i].Status = models.TicketBooked
			}
		}
	}

	c.JSON(http.StatusCreated, gin.H{"id": len(b.submissions), "eventId": req.EventID})
}

func problem(c *gin.Context, status int, detail string) {
	c.Header("Content-Type", "application/problem+json")
	c.JSON(status, gin.H{
		"type":   "about:blank",
		"title":  http.StatusText(status),
		"status": status,
		"detail": detail,
	})
}
