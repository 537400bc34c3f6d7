package config

import (
	"github.com/ghanabus/bustracker"
)

// BuildOptions converts parsed configuration into SDK options for
// [bustracker.New].
//
// The returned slice covers everything the config file can express except
// the recorder: database wiring needs a context and a shutdown hook, so
// the serve command opens the Postgres recorder itself when DatabaseURL is
// set and appends [bustracker.WithRecorder].
func BuildOptions(cfg *Config) []bustracker.Option {
	opts := []bustracker.Option{
		bustracker.WithPort(cfg.Port),
		bustracker.WithStalenessWindow(cfg.StalenessWindow.Duration()),
		bustracker.WithSweepInterval(cfg.SweepInterval.Duration()),
	}

	if cfg.Title != "" {
		opts = append(opts, bustracker.WithTitle(cfg.Title))
	}
	if cfg.AuthToken != "" {
		opts = append(opts, bustracker.WithAuthenticator(bustracker.NewTokenAuthenticator(cfg.AuthToken)))
	}
	if cfg.MetricsAddr != "" {
		opts = append(opts, bustracker.WithMetricsAddr(cfg.MetricsAddr))
	}
	if cfg.NATS.URL != "" {
		opts = append(opts, bustracker.WithNATSFeed(cfg.NATS.URL, cfg.NATS.Subject))
	}

	return opts
}
