package bustracker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ghanabus/bustracker/dashboard"
	"github.com/ghanabus/bustracker/internal/chat"
	"github.com/ghanabus/bustracker/internal/feed"
	"github.com/ghanabus/bustracker/internal/history"
	"github.com/ghanabus/bustracker/internal/hub"
	"github.com/ghanabus/bustracker/internal/ingest"
	"github.com/ghanabus/bustracker/internal/metrics"
	"github.com/ghanabus/bustracker/internal/monitor"
	"github.com/ghanabus/bustracker/internal/server"
	"github.com/ghanabus/bustracker/internal/state"
	"github.com/ghanabus/bustracker/track"
)

const (
	defaultPort            = 3000
	defaultStalenessWindow = 30 * time.Second
	defaultSweepInterval   = 5 * time.Second
)

// Tracker is the main orchestrator for the bus tracking service.
//
// Tracker owns the live vehicle state, accepts GPS fixes over HTTP (and
// optionally NATS), fans updates out to WebSocket subscribers, watches for
// staleness, answers chat queries and serves the dashboard. It is created
// with [New] using functional options and started with [Tracker.Start].
//
// The typical lifecycle is:
//
//	tr, err := bustracker.New(bustracker.WithPort(3000))
//	if err != nil {
//	    slog.Error("failed to create tracker", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	tr.Start(ctx) // blocks until context cancelled
//
// The caller controls the lifecycle via the context. Cancel the context to
// trigger graceful shutdown.
type Tracker struct {
	title           string
	port            int
	stalenessWindow time.Duration
	sweepInterval   time.Duration
	logger          *slog.Logger
	recorder        Recorder
	auth            Authenticator
	metricsAddr     string
	natsURL         string
	natsSubject     string
	updateCallbacks []func(track.VehicleState)
}

// New creates a new [Tracker] instance with the given options.
//
// All options have sensible defaults:
//   - Port: 3000
//   - Staleness window: 30 seconds
//   - Sweep interval: 5 seconds
//   - Recorder: bounded in-memory ring
//   - Authenticator: permissive, all callers are "anonymous"
//
// Returns an error if any option is invalid.
func New(opts ...Option) (*Tracker, error) {
	cfg := &trackerConfig{
		port:            defaultPort,
		stalenessWindow: defaultStalenessWindow,
		sweepInterval:   defaultSweepInterval,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := cfg.recorder
	if recorder == nil {
		recorder = history.NewMemoryRecorder(0)
	}
	auth := cfg.auth
	if auth == nil {
		auth = allowAll{}
	}

	return &Tracker{
		title:           cfg.title,
		port:            cfg.port,
		stalenessWindow: cfg.stalenessWindow,
		sweepInterval:   cfg.sweepInterval,
		logger:          logger,
		recorder:        recorder,
		auth:            auth,
		metricsAddr:     cfg.metricsAddr,
		natsURL:         cfg.natsURL,
		natsSubject:     cfg.natsSubject,
		updateCallbacks: cfg.updateCallbacks,
	}, nil
}

// Start runs the tracker until the provided context is cancelled.
//
// During execution:
//
//   - GPS fixes are accepted at POST /ingest (and the NATS subject, if configured)
//   - Connected browsers receive updates over the /stream WebSocket
//   - The liveness monitor marks the vehicle disconnected after the staleness window
//   - The dashboard is available at http://localhost:<port>
//
// The caller controls the lifecycle via context cancellation. For signal
// handling, use [signal.NotifyContext]:
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//	tr.Start(ctx)
//
// Returns nil on graceful shutdown. Returns an error if the HTTP server or
// the NATS feed fails to start.
func (t *Tracker) Start(ctx context.Context) error {
	t.logger.Info("bustracker starting",
		"staleness_window", t.stalenessWindow.String(),
		"sweep_interval", t.sweepInterval.String(),
		"recorder", t.recorder.Name(),
	)
	t.logger.Info("dashboard available", "url", fmt.Sprintf("http://localhost:%d", t.port))

	// check if context already cancelled
	if ctx.Err() != nil {
		return nil
	}

	store := state.NewStore()
	collector := metrics.NewCollector()

	h := hub.New(t.logger, func(n int) {
		collector.ActiveClients.Set(float64(n))
	})
	bc := &countingBroadcaster{hub: h, collector: collector}

	pipeline := ingest.NewPipeline(store, bc, t.recorder, t.logger, pipelineMetrics{collector})
	for _, cb := range t.updateCallbacks {
		pipeline.OnUpdate(cb)
	}

	responder := &countingResponder{
		inner:     chat.NewResponder(store.Get),
		collector: collector,
	}

	sweeper := monitor.NewSweeper(store, bc, t.stalenessWindow, t.sweepInterval, t.logger, func() {
		collector.StaleFlips.Inc()
	})
	sweeper.Start(ctx)
	defer sweeper.Stop()

	var natsFeed *feed.Feed
	if t.natsURL != "" {
		f, err := feed.Connect(t.natsURL, t.natsSubject, pipeline, t.logger)
		if err != nil {
			return fmt.Errorf("failed to start NATS feed: %w", err)
		}
		natsFeed = f
		defer natsFeed.Close()
	}

	httpServer := server.New(server.Config{
		Port:     t.port,
		Pipeline: pipeline,
		Snapshot: store.Get,
		Hub:      h,
		Chat:     responder,
		Recorder: t.recorder,
		Auth:     t.auth,
		Assets:   dashboard.Assets,
		Title:    t.title,
		Metrics:  collector.Handler(),
		Logger:   t.logger,
	})
	if err := httpServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	if t.metricsAddr != "" {
		metricsServer := collector.Serve(t.metricsAddr, t.logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	<-ctx.Done()
	t.logger.Info("bustracker stopped")
	return nil
}

// Port returns the configured HTTP port for the dashboard server.
func (t *Tracker) Port() int { return t.port }

// StalenessWindow returns how long the tracker waits without a fix before
// marking the vehicle disconnected.
func (t *Tracker) StalenessWindow() time.Duration { return t.stalenessWindow }

// SweepInterval returns how often the liveness monitor runs.
func (t *Tracker) SweepInterval() time.Duration { return t.sweepInterval }

// countingBroadcaster counts messages as they fan out through the hub.
type countingBroadcaster struct {
	hub       *hub.Hub
	collector *metrics.Collector
}

func (b *countingBroadcaster) Broadcast(msg track.Message) {
	b.collector.Broadcasts.Inc()
	b.hub.Broadcast(msg)
}

// pipelineMetrics adapts the collector to the ingest observer.
type pipelineMetrics struct {
	collector *metrics.Collector
}

func (m pipelineMetrics) FixAccepted()   { m.collector.FixesAccepted.Inc() }
func (m pipelineMetrics) FixRejected()   { m.collector.FixesRejected.Inc() }
func (m pipelineMetrics) PersistFailed() { m.collector.PersistFailures.Inc() }

// countingResponder counts answered chat queries.
type countingResponder struct {
	inner     *chat.Responder
	collector *metrics.Collector
}

func (r *countingResponder) Reply(query string) string {
	r.collector.ChatQueries.Inc()
	return r.inner.Reply(query)
}
