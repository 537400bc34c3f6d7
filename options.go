package bustracker

import (
	"errors"
	"log/slog"
	"time"

	"github.com/ghanabus/bustracker/track"
)

// trackerConfig holds mutable state during Tracker construction.
type trackerConfig struct {
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

// Option is a function that configures a [Tracker] instance during
// construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
type Option func(*trackerConfig) error

// WithPort sets the HTTP port for the dashboard and API server.
//
// Defaults to 3000 if not specified. Returns an error if the port is
// outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *trackerConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithStalenessWindow sets how long the tracker waits without a fix before
// marking the vehicle disconnected.
//
// Defaults to 30 seconds. Returns an error if the duration is zero or
// negative.
func WithStalenessWindow(d time.Duration) Option {
	return func(cfg *trackerConfig) error {
		if d <= 0 {
			return errors.New("staleness window must be positive")
		}
		cfg.stalenessWindow = d
		return nil
	}
}

// WithSweepInterval sets how often the liveness monitor checks for a stale
// vehicle.
//
// Defaults to 5 seconds. Returns an error if the duration is zero or
// negative.
func WithSweepInterval(d time.Duration) Option {
	return func(cfg *trackerConfig) error {
		if d <= 0 {
			return errors.New("sweep interval must be positive")
		}
		cfg.sweepInterval = d
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the Tracker instance.
//
// This allows consumers to control where logs are written and in what
// format. If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *trackerConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithRecorder sets the persistence backend for fixes and chat history.
//
// Defaults to a bounded in-memory ring. Returns an error if the recorder
// is nil.
func WithRecorder(r Recorder) Option {
	return func(cfg *trackerConfig) error {
		if r == nil {
			return errors.New("recorder cannot be nil")
		}
		cfg.recorder = r
		return nil
	}
}

// WithAuthenticator sets the authenticator gating the ingest, chat and
// history endpoints.
//
// Defaults to admitting every request under the "anonymous" identity.
// Returns an error if the authenticator is nil.
func WithAuthenticator(a Authenticator) Option {
	return func(cfg *trackerConfig) error {
		if a == nil {
			return errors.New("authenticator cannot be nil")
		}
		cfg.auth = a
		return nil
	}
}

// WithMetricsAddr additionally serves the Prometheus scrape endpoint on a
// dedicated listener, e.g. ":9091". The metrics are always available at
// /metrics on the main server; this option is for deployments that keep
// the scrape surface off the public port.
func WithMetricsAddr(addr string) Option {
	return func(cfg *trackerConfig) error {
		cfg.metricsAddr = addr
		return nil
	}
}

// WithNATSFeed subscribes to a NATS subject as an additional fix source,
// for devices that publish to a broker instead of POSTing over HTTP.
//
// Returns an error if either value is empty.
func WithNATSFeed(url, subject string) Option {
	return func(cfg *trackerConfig) error {
		if url == "" || subject == "" {
			return errors.New("nats url and subject are required")
		}
		cfg.natsURL = url
		cfg.natsSubject = subject
		return nil
	}
}

// WithUpdateCallback registers a function called after every accepted fix
// with the state that was applied.
//
// Multiple callbacks may be registered; they execute in registration order,
// synchronously on the ingest path. Long-running work should be dispatched
// to a separate goroutine. Panics are recovered and logged.
//
// Nil callbacks are silently ignored.
func WithUpdateCallback(cb func(track.VehicleState)) Option {
	return func(cfg *trackerConfig) error {
		if cb == nil {
			return nil
		}
		cfg.updateCallbacks = append(cfg.updateCallbacks, cb)
		return nil
	}
}

// WithTitle sets the dashboard title displayed in the browser tab and
// header. Defaults to "Ghana Bus Tracker".
func WithTitle(title string) Option {
	return func(cfg *trackerConfig) error {
		cfg.title = title
		return nil
	}
}
