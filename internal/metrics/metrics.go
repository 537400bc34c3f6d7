// Package metrics exposes the tracker's Prometheus instrumentation.
package metrics

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the tracker metrics on a private registry.
//
// A nil *Collector is valid everywhere one is accepted: callers guard their
// observations with a nil check, so metrics stay strictly optional.
type Collector struct {
	reg *prometheus.Registry

	FixesAccepted   prometheus.Counter
	FixesRejected   prometheus.Counter
	Broadcasts      prometheus.Counter
	StaleFlips      prometheus.Counter
	PersistFailures prometheus.Counter
	ChatQueries     prometheus.Counter

	ActiveClients prometheus.Gauge
}

// NewCollector creates and registers the tracker metrics.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		FixesAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bustracker_fixes_accepted_total",
			Help: "Total GPS fixes accepted and applied to live state.",
		}),
		FixesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bustracker_fixes_rejected_total",
			Help: "Total GPS fixes rejected for invalid coordinates.",
		}),
		Broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bustracker_broadcasts_total",
			Help: "Total messages broadcast to subscribers.",
		}),
		StaleFlips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bustracker_stale_transitions_total",
			Help: "Total times the liveness monitor marked the vehicle disconnected.",
		}),
		PersistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bustracker_persist_failures_total",
			Help: "Total best-effort persistence writes that failed.",
		}),
		ChatQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bustracker_chat_queries_total",
			Help: "Total chat queries answered.",
		}),
		ActiveClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bustracker_active_clients",
			Help: "Number of currently connected push-channel subscribers.",
		}),
	}

	reg.MustRegister(
		c.FixesAccepted, c.FixesRejected,
		c.Broadcasts, c.StaleFlips,
		c.PersistFailures, c.ChatQueries,
		c.ActiveClients,
	)

	return c
}

// Handler returns the scrape handler for the private registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()
	logger.Info("metrics listening", "addr", addr)
	return srv
}
