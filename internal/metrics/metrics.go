package metrics

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dealerops/compliance-tracker/internal/health"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Dispatcher metrics

	ReminderPickupLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "compliance",
		Name:      "reminder_pickup_latency_seconds",
		Help:      "Time from a reminder coming due to the dispatcher claiming it.",
		Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	})

	DeliveryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "compliance",
		Name:      "reminder_delivery_duration_seconds",
		Help:      "Duration of reminder delivery across channels.",
		Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"outcome"})

	RemindersInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "compliance",
		Name:      "reminders_in_flight",
		Help:      "Number of reminders currently being delivered.",
	})

	RemindersDispatchedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "compliance",
		Name:      "reminders_dispatched_total",
		Help:      "Total reminders dispatched, by outcome.",
	}, []string{"outcome"})

	ChannelSendsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "compliance",
		Name:      "channel_sends_total",
		Help:      "Per-channel delivery attempts, by outcome.",
	}, []string{"channel", "outcome"})

	// Escalator metrics

	EscalationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "compliance",
		Name:      "escalations_total",
		Help:      "Total reminders escalated past their deadline.",
	})

	StuckReleasedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "compliance",
		Name:      "stuck_reminders_released_total",
		Help:      "Reminders returned to pending after a dispatcher crash.",
	})

	// Sweeper metrics

	SweepFiredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "compliance",
		Name:      "sweep_reminders_fired_total",
		Help:      "Reminders created from due checklists by the sweeper.",
	})

	SweepCycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "compliance",
		Name:      "sweep_cycle_duration_seconds",
		Help:      "Time taken for one sweeper cycle.",
		Buckets:   prometheus.DefBuckets,
	})

	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "compliance",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "compliance",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})
)

func Register() {
	prometheus.MustRegister(
		ReminderPickupLatency,
		DeliveryDuration,
		RemindersInFlight,
		RemindersDispatchedTotal,
		ChannelSendsTotal,
		EscalationsTotal,
		StuckReleasedTotal,
		SweepFiredTotal,
		SweepCycleDuration,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

// healthChecker is the subset of health.Checker the metrics server exposes.
type healthChecker interface {
	Liveness(ctx context.Context) health.Result
	Readiness(ctx context.Context) health.Result
}

func NewServer(addr string, checker healthChecker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, checker.Liveness(r.Context()))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		result := checker.Readiness(r.Context())
		status := http.StatusOK
		if result.Status != "up" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, result)
	})
	return &http.Server{Addr: addr, Handler: mux}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
