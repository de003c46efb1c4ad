// Package shell hosts the booking components for one event and owns the
// full session reset.
package shell

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"seatdesk/internal/booking"
	"seatdesk/internal/logger"
	"seatdesk/internal/messaging"
	"seatdesk/internal/metrics"
	"seatdesk/internal/models"
	"seatdesk/internal/seatmap"
	"seatdesk/internal/session"
)

// API is the remote booking service
type API interface {
	session.Authenticator
	seatmap.TicketSource
	booking.Transport
	GetEvent(ctx context.Context, eventID int64) (*models.Event, error)
}

type Deps struct {
	API         API
	Credentials session.CredentialStore
	EventID     int64
	CheckExpiry bool
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	Publisher   messaging.Publisher
}

type App struct {
	api       API
	eventID   int64
	log       *slog.Logger
	metrics   *metrics.Metrics
	publisher messaging.Publisher

	session   *session.Manager
	seats     *seatmap.Model
	submitter *booking.Submitter

	mu    sync.RWMutex
	event *models.Event

	reloadMu sync.Mutex
}

func New(deps Deps) *App {
	log := logger.Or(deps.Logger).With("event_id", deps.EventID)
	pub := deps.Publisher
	if pub == nil {
		pub = messaging.NopPublisher{}
	}

	a := &App{
		api:       deps.API,
		eventID:   deps.EventID,
		log:       log,
		metrics:   deps.Metrics,
		publisher: pub,
	}

	a.session = session.NewManager(deps.API, deps.Credentials, session.Options{
		Logger:      log,
		Metrics:     deps.Metrics,
		CheckExpiry: deps.CheckExpiry,
	})
	a.seats = seatmap.NewModel(deps.API, log, deps.Metrics)
	a.submitter = booking.NewSubmitter(deps.API, a.session, a.seats, a, booking.Options{
		Logger:    log,
		Metrics:   deps.Metrics,
		Publisher: pub,
	})
	a.seats.SetObserver(a.submitter)

	return a
}

// Start initializes the session and loads the event data concurrently.
// Neither depends on the other. Failures are logged and returned joined;
// the App stays usable with whatever succeeded.
func (a *App) Start(ctx context.Context) error {
	var wg sync.WaitGroup
	var authErr, dataErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		authErr = a.session.Initialize(ctx)
	}()
	go func() {
		defer wg.Done()
		dataErr = a.loadData(ctx)
	}()
	wg.Wait()

	return errors.Join(authErr, dataErr)
}

func (a *App) loadData(ctx context.Context) error {
	var errs []error

	event, err := a.api.GetEvent(ctx, a.eventID)
	if err != nil {
		a.log.Error("Failed to load event", "error", err)
		errs = append(errs, fmt.Errorf("failed to load event: %w", err))
	} else {
		a.mu.Lock()
		a.event = event
		a.mu.Unlock()
	}

	if err := a.seats.Load(ctx, a.eventID); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Reload is the full session reset: every piece of in-memory state is
// dropped, then the session and data are brought up again as on Start.
// A pending submission is abandoned.
func (a *App) Reload(ctx context.Context) error {
	a.reloadMu.Lock()
	defer a.reloadMu.Unlock()

	a.log.Info("Resetting session")
	a.metrics.ObserveSessionReset()

	a.submitter.Reset()
	a.seats.Reset()
	a.session.Reset()
	a.mu.Lock()
	a.event = nil
	a.mu.Unlock()

	return a.Start(ctx)
}

// View returns a snapshot for the presentation layer
func (a *App) View() models.View {
	a.mu.RLock()
	event := a.event
	a.mu.RUnlock()

	selected := a.seats.Selected()
	status := a.submitter.Status()
	cred := a.session.Credential()

	return models.View{
		Event:       event,
		Rows:        a.seats.Rows(),
		SelectedIDs: selected,
		Status:      status.Status,
		Message:     status.Message,
		GuestID:     a.session.DisplayID(),
		AuthError:   a.session.AuthError(),
		CanSubmit:   len(selected) > 0 && cred != nil && !a.submitter.InFlight(),
	}
}

// Toggle selects or deselects a seat
func (a *App) Toggle(seatID int64) (models.ToggleResponse, error) {
	selected, err := a.seats.ToggleSelection(seatID)
	if err != nil {
		return models.ToggleResponse{}, err
	}
	return models.ToggleResponse{
		SeatID:      seatID,
		Selected:    selected,
		SelectedIDs: a.seats.Selected(),
	}, nil
}

// ClearSelection empties the selection as a visitor action, so the status
// goes back to idle
func (a *App) ClearSelection() {
	a.seats.ClearSelection()
	a.submitter.SelectionChanged()
}

// Submit books the current selection
func (a *App) Submit(ctx context.Context) booking.Outcome {
	return a.submitter.Submit(ctx, a.eventID)
}

func (a *App) EventID() int64 { return a.eventID }

func (a *App) Close() error {
	return a.publisher.Close()
}
