package external

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "seatdesk/internal/errors"
	"seatdesk/internal/logger"
	"seatdesk/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *BookingClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewBookingClient(BookingConfig{BaseURL: srv.URL + "/", Timeout: 2 * time.Second})
}

func TestLoginAsGuest(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/login-as-guest", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token":"jwt-abc","userId":"guest-42"}`))
	})

	cred, err := client.LoginAsGuest(context.Background())

	require.NoError(t, err)
	assert.Equal(t, &models.Credential{Token: "jwt-abc", UserID: "guest-42"}, cred)
}

func TestLoginAsGuest_IncompleteResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"token":"jwt-abc"}`))
	})

	cred, err := client.LoginAsGuest(context.Background())

	assert.Nil(t, cred)
	assert.ErrorIs(t, err, apperrors.ErrAuthFailed)
}

func TestLoginAsGuest_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.LoginAsGuest(context.Background())
	assert.Error(t, err)
}

func TestGetEventAndTickets(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/catalog/events/5":
			w.Write([]byte(`{"id":5,"title":"Opera","date":"2025-07-01T20:00:00","venue":{"name":"Grand","address":"Main St"}}`))
		case "/api/bookings/event/5":
			w.Write([]byte(`[{"id":1,"status":"BOOKED","seat":{"id":11,"rowNumber":"C","seatNumber":4,"section":"Stalls"}}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	event, err := client.GetEvent(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "Opera", event.Title)
	require.NotNil(t, event.Venue)
	assert.Equal(t, "Grand", event.Venue.Name)

	tickets, err := client.GetTickets(ctx, 5)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.True(t, tickets[0].IsBooked())
	assert.Equal(t, "C", tickets[0].Seat.RowLabel)
	assert.Equal(t, 4, tickets[0].Seat.SeatNumber)

	_, err = client.GetEvent(ctx, 6)
	assert.Error(t, err)
}

func TestSubmitBooking(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/bookings", r.URL.Path)
		assert.Equal(t, "Bearer jwt-abc", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "req-1", r.Header.Get("X-Request-ID"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(9), body["eventId"])
		assert.Equal(t, []any{float64(1), float64(2)}, body["seatIds"])

		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"detail":"seat taken"}`))
	})

	ctx := logger.ContextWithRequestID(context.Background(), "req-1")
	resp, err := client.SubmitBooking(ctx, "jwt-abc", models.BookingRequest{EventID: 9, SeatIDs: []int64{1, 2}})

	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.False(t, resp.OK())
	assert.Equal(t, "application/problem+json", resp.ContentType)
	assert.JSONEq(t, `{"detail":"seat taken"}`, string(resp.Body))
}

func TestSubmitBooking_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewBookingClient(BookingConfig{BaseURL: url, Timeout: time.Second})
	resp, err := client.SubmitBooking(context.Background(), "tok", models.BookingRequest{EventID: 1, SeatIDs: []int64{1}})

	assert.Nil(t, resp)
	assert.Error(t, err)
}
