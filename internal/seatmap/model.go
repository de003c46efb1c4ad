// Package seatmap holds the ticket list of one event and the visitor's seat
// selection.
//
// The ticket list is replaced only by Load; the client never marks a ticket
// booked on its own. The selection is a separate set of seat ids that can
// never contain a seat whose ticket is BOOKED.
package seatmap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"seatdesk/internal/logger"
	"seatdesk/internal/metrics"
	"seatdesk/internal/models"
)

var (
	ErrSeatBooked  = errors.New("seat is already booked")
	ErrUnknownSeat = errors.New("seat is not on the map")
)

// TicketSource reads the authoritative ticket list of an event
type TicketSource interface {
	GetTickets(ctx context.Context, eventID int64) ([]models.Ticket, error)
}

// SelectionObserver is told about every accepted selection change
type SelectionObserver interface {
	SelectionChanged()
}

type Model struct {
	source  TicketSource
	log     *slog.Logger
	metrics *metrics.Metrics

	mu       sync.RWMutex
	eventID  int64
	tickets  []models.Ticket
	selected map[int64]struct{}
	observer SelectionObserver
}

func NewModel(source TicketSource, log *slog.Logger, m *metrics.Metrics) *Model {
	return &Model{
		source:   source,
		log:      logger.Or(log),
		metrics:  m,
		selected: make(map[int64]struct{}),
	}
}

// SetObserver registers the observer of selection changes
func (m *Model) SetObserver(o SelectionObserver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observer = o
}

// Load replaces the ticket list with the server's current one. On failure the
// previous list is kept and the error is returned for the caller to log or
// count; the model stays usable.
//
// Seats that turned BOOKED are dropped from the selection without notifying
// the observer.
func (m *Model) Load(ctx context.Context, eventID int64) error {
	tickets, err := m.source.GetTickets(ctx, eventID)
	m.metrics.ObserveTicketLoad(err)
	if err != nil {
		m.log.Error("Failed to load tickets", "event_id", eventID, "error", err)
		return fmt.Errorf("failed to load tickets for event %d: %w", eventID, err)
	}

	m.mu.Lock()
	m.eventID = eventID
	m.tickets = tickets

	booked := bookedSeats(tickets)
	pruned := 0
	for id := range m.selected {
		if _, ok := booked[id]; ok {
			delete(m.selected, id)
			pruned++
		}
	}
	n := len(m.selected)
	m.mu.Unlock()

	m.metrics.SetSelectedSeats(n)
	if pruned > 0 {
		m.log.Info("Dropped booked seats from selection", "event_id", eventID, "count", pruned)
	}
	m.log.Debug("Loaded tickets", "event_id", eventID, "count", len(tickets))
	return nil
}

// ToggleSelection adds or removes a seat. BOOKED and unknown seats are
// rejected and leave everything as it was.
func (m *Model) ToggleSelection(seatID int64) (bool, error) {
	m.mu.Lock()
	known, booked := false, false
	for _, t := range m.tickets {
		if t.Seat.ID != seatID {
			continue
		}
		known = true
		if t.IsBooked() {
			booked = true
			break
		}
	}

	switch {
	case !known:
		m.mu.Unlock()
		return false, ErrUnknownSeat
	case booked:
		m.mu.Unlock()
		return false, ErrSeatBooked
	}

	_, wasSelected := m.selected[seatID]
	if wasSelected {
		delete(m.selected, seatID)
	} else {
		m.selected[seatID] = struct{}{}
	}
	n := len(m.selected)
	observer := m.observer
	m.mu.Unlock()

	m.metrics.SetSelectedSeats(n)
	if observer != nil {
		observer.SelectionChanged()
	}
	return !wasSelected, nil
}

// Selected returns the selected seat ids in ascending order. The slice is a
// copy and can be used as a submission snapshot.
func (m *Model) Selected() []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]int64, 0, len(m.selected))
	for id := range m.selected {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (m *Model) IsSelected(seatID int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.selected[seatID]
	return ok
}

// ClearSelection empties the selection. It does not notify the observer.
func (m *Model) ClearSelection() {
	m.mu.Lock()
	clear(m.selected)
	m.mu.Unlock()
	m.metrics.SetSelectedSeats(0)
}

// Reset drops the tickets and the selection
func (m *Model) Reset() {
	m.mu.Lock()
	m.eventID = 0
	m.tickets = nil
	clear(m.selected)
	m.mu.Unlock()
	m.metrics.SetSelectedSeats(0)
}

// EventID is the event of the last successful Load
func (m *Model) EventID() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.eventID
}

func (m *Model) Tickets() []models.Ticket {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.tickets)
}

// Rows groups the current ticket list
func (m *Model) Rows() []models.Row {
	return GroupByRow(m.Tickets())
}

func bookedSeats(tickets []models.Ticket) map[int64]struct{} {
	booked := make(map[int64]struct{})
	for _, t := range tickets {
		if t.IsBooked() {
			booked[t.Seat.ID] = struct{}{}
		}
	}
	return booked
}
