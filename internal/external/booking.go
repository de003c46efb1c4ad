package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "seatdesk/internal/errors"
	"seatdesk/internal/logger"
	"seatdesk/internal/models"
)

// maxBodyBytes caps how much of an error body is kept for classification
const maxBodyBytes = 1 << 20

// BookingClient talks to the remote catalog/booking service
type BookingClient struct {
	baseURL    string
	httpClient *http.Client
}

type BookingConfig struct {
	BaseURL string
	Timeout time.Duration
}

func NewBookingClient(cfg BookingConfig) *BookingClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &BookingClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (bc *BookingClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, bc.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	reqID, ok := logger.RequestIDFromContext(ctx)
	if !ok {
		reqID = logger.NewRequestID()
	}
	req.Header.Set("X-Request-ID", reqID)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// LoginAsGuest acquires a fresh anonymous identity
func (bc *BookingClient) LoginAsGuest(ctx context.Context) (*models.Credential, error) {
	req, err := bc.newRequest(ctx, http.MethodPost, "/api/auth/login-as-guest", nil)
	if err != nil {
		return nil, err
	}

	resp, err := bc.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to login as guest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var result models.GuestLoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	cred := &models.Credential{Token: result.Token, UserID: result.UserID}
	if !cred.Valid() {
		return nil, fmt.Errorf("%w: incomplete credential in response", apperrors.ErrAuthFailed)
	}

	return cred, nil
}

// GetEvent reads the catalog descriptor of an event
func (bc *BookingClient) GetEvent(ctx context.Context, eventID int64) (*models.Event, error) {
	req, err := bc.newRequest(ctx, http.MethodGet, fmt.Sprintf("/api/catalog/events/%d", eventID), nil)
	if err != nil {
		return nil, err
	}

	resp, err := bc.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var event models.Event
	if err := json.NewDecoder(resp.Body).Decode(&event); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &event, nil
}

// GetTickets reads the current ticket list of an event
func (bc *BookingClient) GetTickets(ctx context.Context, eventID int64) ([]models.Ticket, error) {
	req, err := bc.newRequest(ctx, http.MethodGet, fmt.Sprintf("/api/bookings/event/%d", eventID), nil)
	if err != nil {
		return nil, err
	}

	resp, err := bc.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get tickets: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var tickets []models.Ticket
	if err := json.NewDecoder(resp.Body).Decode(&tickets); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return tickets, nil
}

// SubmitBooking sends a reservation request with a bearer credential.
// Any HTTP status is returned as a response; an error means the
// request never produced one.
func (bc *BookingClient) SubmitBooking(ctx context.Context, token string, reqBody models.BookingRequest) (*models.SubmitResponse, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := bc.newRequest(ctx, http.MethodPost, "/api/bookings", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := bc.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to submit booking: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		// the status line arrived, so the body is treated as empty
		body = nil
	}

	return &models.SubmitResponse{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
