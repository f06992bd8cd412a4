// Package metrics exposes Prometheus collectors for acquisition runs and the
// web server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Bucknalla/galileo-acquisition-sim/acquisition"
)

var (
	runsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "galileo_runs_started_total",
		Help: "Total number of acquisition runs started.",
	})

	runsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "galileo_runs_completed_total",
		Help: "Total number of acquisition runs that reached the connected phase.",
	})

	ticksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "galileo_ticks_total",
		Help: "Total number of applied simulator ticks.",
	})

	phaseTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "galileo_phase_transitions_total",
			Help: "Phase transitions by target phase.",
		},
		[]string{"phase"},
	)

	progressGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "galileo_progress_percent",
		Help: "Progress of the current run.",
	})

	satellitesGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "galileo_active_satellites",
			Help: "Active satellites of the current run by acquisition state.",
		},
		[]string{"state"},
	)

	accuracyGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "galileo_fix_accuracy_meters",
		Help: "Uncertainty radius of the current fix.",
	})

	wsClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "galileo_websocket_clients",
		Help: "Connected websocket clients.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "galileo_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "galileo_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
)

func init() {
	prometheus.MustRegister(runsStarted)
	prometheus.MustRegister(runsCompleted)
	prometheus.MustRegister(ticksTotal)
	prometheus.MustRegister(phaseTransitions)
	prometheus.MustRegister(progressGauge)
	prometheus.MustRegister(satellitesGauge)
	prometheus.MustRegister(accuracyGauge)
	prometheus.MustRegister(wsClients)
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument registers observers on sim that keep the run collectors current.
func Instrument(sim *acquisition.Simulator) {
	sim.OnPhaseChange(ObservePhase)
	sim.AddCallback(ObserveState)
}

// ObservePhase records a phase transition.
func ObservePhase(t acquisition.PhaseTransition) {
	phaseTransitions.WithLabelValues(string(t.To)).Inc()
	switch t.To {
	case acquisition.PhaseScanning:
		runsStarted.Inc()
	case acquisition.PhaseConnected:
		runsCompleted.Inc()
	}
}

// ObserveState records the state published after a start or tick.
func ObserveState(state acquisition.RunState) {
	if state.ProgressPercent > 0 {
		ticksTotal.Inc()
	}
	progressGauge.Set(float64(state.ProgressPercent))
	accuracyGauge.Set(state.Fix.AccuracyMeters)

	counts := map[acquisition.State]int{
		acquisition.StateSearching: 0,
		acquisition.StateAcquiring: 0,
		acquisition.StateLocked:    0,
		acquisition.StateLost:      0,
	}
	for _, sat := range state.ActiveSatellites {
		counts[sat.State]++
	}
	for s, n := range counts {
		satellitesGauge.WithLabelValues(string(s)).Set(float64(n))
	}
}

// ClientConnected and ClientDisconnected track websocket clients.
func ClientConnected()    { wsClients.Inc() }
func ClientDisconnected() { wsClients.Dec() }

// normalizeRoute maps request paths onto a fixed label set.
func normalizeRoute(path string) string {
	switch path {
	case "/", "/healthz", "/metrics",
		"/api/start", "/api/stop", "/api/status", "/api/roster", "/api/spectrum", "/api/ws":
		return path
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request. Websocket
// upgrades pass through unwrapped since they need the http.Hijacker.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := normalizeRoute(r.URL.Path)
		if path == "/api/ws" {
			httpRequestsTotal.WithLabelValues(path, r.Method, "101").Inc()
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)

		httpRequestsTotal.WithLabelValues(path, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(path, r.Method).Observe(duration)
	})
}
