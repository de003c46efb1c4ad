// Package metrics holds the Prometheus collectors of the shell.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Booking outcomes used as the "outcome" label
const (
	OutcomeSuccess      = "success"
	OutcomeError        = "error"
	OutcomeUnauthorized = "unauthorized"
	OutcomeTransport    = "transport_error"
)

type Metrics struct {
	registry *prometheus.Registry

	BookingSubmissions *prometheus.CounterVec
	BookingDuration    prometheus.Histogram
	GuestLogins        *prometheus.CounterVec
	SessionRestores    prometheus.Counter
	SessionResets      prometheus.Counter
	TicketLoads        *prometheus.CounterVec
	SelectedSeats      prometheus.Gauge
}

// New creates the collectors on a private registry
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		BookingSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seatdesk_booking_submissions_total",
			Help: "Booking submissions by outcome",
		}, []string{"outcome"}),
		BookingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "seatdesk_booking_submit_duration_seconds",
			Help:    "Round trip of booking submissions",
			Buckets: prometheus.DefBuckets,
		}),
		GuestLogins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seatdesk_guest_logins_total",
			Help: "Guest login attempts by result",
		}, []string{"result"}),
		SessionRestores: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "seatdesk_session_restores_total",
			Help: "Sessions restored from the identity store",
		}),
		SessionResets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "seatdesk_session_resets_total",
			Help: "Full session resets",
		}),
		TicketLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seatdesk_ticket_loads_total",
			Help: "Ticket list loads by result",
		}, []string{"result"}),
		SelectedSeats: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "seatdesk_selected_seats",
			Help: "Seats in the current selection",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.BookingSubmissions,
		m.BookingDuration,
		m.GuestLogins,
		m.SessionRestores,
		m.SessionResets,
		m.TicketLoads,
		m.SelectedSeats,
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// The helpers below accept a nil receiver so components can run without metrics.

func (m *Metrics) ObserveGuestLogin(err error) {
	if m == nil {
		return
	}
	m.GuestLogins.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) ObserveSessionRestore() {
	if m == nil {
		return
	}
	m.SessionRestores.Inc()
}

func (m *Metrics) ObserveSessionReset() {
	if m == nil {
		return
	}
	m.SessionResets.Inc()
}

func (m *Metrics) ObserveTicketLoad(err error) {
	if m == nil {
		return
	}
	m.TicketLoads.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) ObserveSubmission(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.BookingSubmissions.WithLabelValues(outcome).Inc()
	m.BookingDuration.Observe(seconds)
}

func (m *Metrics) SetSelectedSeats(n int) {
	if m == nil {
		return
	}
	m.SelectedSeats.Set(float64(n))
}
