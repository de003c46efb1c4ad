// Package booking submits the visitor's seat selection and tracks the
// outcome as a BookingStatus.
//
//	idle ──submit──▶ loading ──2xx──────────▶ success
//	                    │ ─────401/403──────▶ session reset (no error shown)
//	                    └─────other/no resp─▶ error
//
// Any accepted selection change moves the status back to idle.
package booking

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"seatdesk/internal/logger"
	"seatdesk/internal/messaging"
	"seatdesk/internal/metrics"
	"seatdesk/internal/models"
)

// Transport sends a booking request. A returned error means no HTTP
// response was received; every status code comes back as a response.
type Transport interface {
	SubmitBooking(ctx context.Context, token string, req models.BookingRequest) (*models.SubmitResponse, error)
}

// Session provides the credential and forgets it when the server rejects it
type Session interface {
	Credential() *models.Credential
	Invalidate(ctx context.Context) error
}

// SeatMap is the part of the seat map the submitter reads and refreshes
type SeatMap interface {
	Selected() []int64
	Load(ctx context.Context, eventID int64) error
	ClearSelection()
}

// Reloader performs a full session reset: all in-memory state is dropped, a
// new guest identity is acquired and the data is loaded again
type Reloader interface {
	Reload(ctx context.Context) error
}

// Outcome is what a call to Submit did
type Outcome string

const (
	OutcomeSkipped  Outcome = "skipped"
	OutcomeSuccess  Outcome = "success"
	OutcomeFailed   Outcome = "failed"
	OutcomeReloaded Outcome = "reloaded"

	// the session was reset while the request was in flight
	OutcomeAbandoned Outcome = "abandoned"
)

type Options struct {
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Publisher messaging.Publisher
}

type Submitter struct {
	transport Transport
	session   Session
	seats     SeatMap
	reloader  Reloader
	publisher messaging.Publisher
	log       *slog.Logger
	metrics   *metrics.Metrics

	mu       sync.Mutex
	status   models.BookingStatus
	message  string
	inFlight bool

	// generation is bumped by Reset; outcomes of older submissions are dropped
	generation uint64
}

func NewSubmitter(transport Transport, session Session, seats SeatMap, reloader Reloader, opts Options) *Submitter {
	pub := opts.Publisher
	if pub == nil {
		pub = messaging.NopPublisher{}
	}
	return &Submitter{
		transport: transport,
		session:   session,
		seats:     seats,
		reloader:  reloader,
		publisher: pub,
		log:       logger.Or(opts.Logger),
		metrics:   opts.Metrics,
		status:    models.StatusIdle,
	}
}

// Submit books the current selection for eventID. It does nothing when the
// selection is empty, there is no credential, or a submission is already in
// flight.
func (s *Submitter) Submit(ctx context.Context, eventID int64) Outcome {
	seatIDs := s.seats.Selected()
	cred := s.session.Credential()

	s.mu.Lock()
	if len(seatIDs) == 0 || cred == nil || s.inFlight {
		s.mu.Unlock()
		return OutcomeSkipped
	}
	s.inFlight = true
	s.status = models.StatusLoading
	s.message = ""
	gen := s.generation
	s.mu.Unlock()

	log := s.log.With("event_id", eventID, "user_id", cred.UserID, "seat_count", len(seatIDs))
	log.Info("Submitting booking")

	start := time.Now()
	resp, err := s.transport.SubmitBooking(ctx, cred.Token, models.BookingRequest{
		EventID: eventID,
		SeatIDs: seatIDs,
	})
	elapsed := time.Since(start).Seconds()

	switch {
	case err != nil:
		log.Error("Booking request failed", "error", err)
		s.metrics.ObserveSubmission(metrics.OutcomeTransport, elapsed)
		if !s.fail(gen, eventID, cred.UserID, seatIDs, 0, FailureMessage(0, "", nil)) {
			return OutcomeAbandoned
		}
		return OutcomeFailed

	case resp.OK():
		s.metrics.ObserveSubmission(metrics.OutcomeSuccess, elapsed)
		if !s.succeed(ctx, gen, eventID, cred.UserID, seatIDs) {
			return OutcomeAbandoned
		}
		return OutcomeSuccess

	case CredentialError(resp.StatusCode) != nil:
		log.Warn("Credential rejected, resetting session", "status_code", resp.StatusCode, "error", CredentialError(resp.StatusCode))
		s.metrics.ObserveSubmission(metrics.OutcomeUnauthorized, elapsed)
		if !s.selfHeal(ctx, gen, eventID, cred.UserID, resp.StatusCode) {
			return OutcomeAbandoned
		}
		return OutcomeReloaded

	default:
		msg := FailureMessage(resp.StatusCode, resp.ContentType, resp.Body)
		log.Warn("Booking rejected", "status_code", resp.StatusCode, "message", msg)
		s.metrics.ObserveSubmission(metrics.OutcomeError, elapsed)
		if !s.fail(gen, eventID, cred.UserID, seatIDs, resp.StatusCode, msg) {
			return OutcomeAbandoned
		}
		return OutcomeFailed
	}
}

// settle records the outcome of submission gen. It reports false when a
// Reset happened in between and the outcome must be dropped.
func (s *Submitter) settle(gen uint64, status models.BookingStatus, msg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		s.log.Info("Dropping outcome of abandoned submission", "status", status)
		return false
	}
	s.inFlight = false
	if status != "" {
		s.status = status
		s.message = msg
	}
	return true
}

func (s *Submitter) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.generation
}

// release ends an abandoned submission back in idle unless a Reset already did
func (s *Submitter) release(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.generation {
		s.inFlight = false
		s.status = models.StatusIdle
		s.message = ""
	}
}

func (s *Submitter) succeed(ctx context.Context, gen uint64, eventID int64, userID string, seatIDs []int64) bool {
	if !s.settle(gen, models.StatusSuccess, "") {
		return false
	}

	s.log.Info("Booking confirmed", "event_id", eventID, "user_id", userID, "seat_ids", seatIDs)

	// the stale list stays on screen if this fails
	if err := s.seats.Load(ctx, eventID); err != nil {
		s.log.Warn("Failed to refresh tickets after booking", "event_id", eventID, "error", err)
	}
	s.seats.ClearSelection()

	s.publish(models.EventBookingConfirmed, models.BookingConfirmedEvent{
		EventID:   eventID,
		SeatIDs:   seatIDs,
		UserID:    userID,
		Timestamp: time.Now(),
	})
	return true
}

func (s *Submitter) fail(gen uint64, eventID int64, userID string, seatIDs []int64, statusCode int, msg string) bool {
	if !s.settle(gen, models.StatusError, msg) {
		return false
	}

	s.publish(models.EventBookingFailed, models.BookingFailedEvent{
		EventID:    eventID,
		SeatIDs:    seatIDs,
		UserID:     userID,
		StatusCode: statusCode,
		Reason:     msg,
		Timestamp:  time.Now(),
	})
	return true
}

// selfHeal drops the rejected credential and restarts the session. The
// attempt itself is abandoned and no error status is shown.
//
// The submission stays in flight until Reload has reset the submitter, so
// the rejected credential cannot be used for another request meanwhile.
func (s *Submitter) selfHeal(ctx context.Context, gen uint64, eventID int64, userID string, statusCode int) bool {
	if !s.current(gen) {
		s.log.Info("Dropping outcome of abandoned submission", "status_code", statusCode)
		return false
	}
	defer s.release(gen)

	if err := s.session.Invalidate(ctx); err != nil {
		s.log.Error("Failed to invalidate session", "error", err)
	}

	s.publish(models.EventSessionReset, models.SessionResetEvent{
		EventID:    eventID,
		UserID:     userID,
		StatusCode: statusCode,
		Timestamp:  time.Now(),
	})

	if err := s.reloader.Reload(ctx); err != nil {
		s.log.Error("Session reload failed", "error", err)
	}
	return true
}

func (s *Submitter) publish(subject string, event any) {
	if err := s.publisher.Publish(subject, event); err != nil {
		s.log.Warn("Failed to publish event", "subject", subject, "error", err)
	}
}

// SelectionChanged resets the status to idle. It is registered as the seat
// map's observer.
func (s *Submitter) SelectionChanged() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = models.StatusIdle
	s.message = ""
}

// Status returns the current status and its message
func (s *Submitter) Status() models.StatusSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.StatusSnapshot{Status: s.status, Message: s.message}
}

// InFlight reports whether a submission is waiting for its response
func (s *Submitter) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// Reset returns to idle and abandons an in-flight submission: its response
// will be ignored when it arrives.
func (s *Submitter) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = models.StatusIdle
	s.message = ""
	s.inFlight = false
	s.generation++
}
