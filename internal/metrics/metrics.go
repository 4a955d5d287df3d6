// Package metrics exposes daemon counters and gauges on a private Prometheus
// registry, served over a small chi router alongside a health probe.
package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rewindd/internal/replay"
)

// Metrics holds every instrument on one private registry so tests never
// collide on the global default.
type Metrics struct {
	registry *prometheus.Registry

	SavesTotal         prometheus.Counter
	SaveFailuresTotal  prometheus.Counter
	SplitsTotal        prometheus.Counter
	SplitFailuresTotal prometheus.Counter
	RestartsTotal      prometheus.Counter
	DriftRepairsTotal  prometheus.Counter

	bufferRunning  prometheus.Gauge
	activeMonitors prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SavesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rewindd_saves_total",
			Help: "Replay saves completed successfully.",
		}),
		SaveFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rewindd_save_failures_total",
			Help: "Replay saves that failed or timed out.",
		}),
		SplitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rewindd_splits_total",
			Help: "Post-capture splits completed successfully.",
		}),
		SplitFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rewindd_split_failures_total",
			Help: "Post-capture splits with at least one failed crop.",
		}),
		RestartsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rewindd_restarts_total",
			Help: "Buffer restarts triggered by configuration changes.",
		}),
		DriftRepairsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rewindd_drift_repairs_total",
			Help: "Times the reconciler resumed a buffer that stopped unexpectedly.",
		}),
		bufferRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rewindd_buffer_running",
			Help: "1 when the replay buffer is actively recording.",
		}),
		activeMonitors: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rewindd_active_monitors",
			Help: "Monitors captured in the current scene.",
		}),
	}

	m.registry.MustRegister(
		m.SavesTotal, m.SaveFailuresTotal,
		m.SplitsTotal, m.SplitFailuresTotal,
		m.RestartsTotal, m.DriftRepairsTotal,
		m.bufferRunning, m.activeMonitors,
	)
	return m
}

// StatusFunc supplies the live controller snapshot at scrape time.
type StatusFunc func() replay.Status

// Handler refreshes the state gauges from the controller on every scrape,
// then serves the registry.
func (m *Metrics) Handler(status StatusFunc) http.Handler {
	inner := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != nil {
			st := status()
			if st.BufferRunning {
				m.bufferRunning.Set(1)
			} else {
				m.bufferRunning.Set(0)
			}
			m.activeMonitors.Set(float64(st.ActiveMonitors))
		}
		inner.ServeHTTP(w, r)
	})
}

// NewServer builds the HTTP server for the metrics listener.
func NewServer(addr string, m *Metrics, status StatusFunc, logger *slog.Logger) *http.Server {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	r.Method(http.MethodGet, "/metrics", m.Handler(status))

	logger.Info("metrics listener configured", "addr", addr)
	return &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
