// Package config provides YAML configuration parsing for the bus tracker.
//
// This package enables running the tracker as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	title: Ghana Bus Tracker
//	port: 3000
//	staleness_window: 30s
//	sweep_interval: 5s
//
//	auth_token: ${BUS_AUTH_TOKEN:-}
//	database_url: ${DATABASE_URL:-}
//
//	metrics_addr: ":9091"
//
//	nats:
//	  url: nats://localhost:4222
//	  subject: bus.fixes
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// minSweepInterval prevents configs that busy-loop the liveness monitor.
const minSweepInterval = 100 * time.Millisecond

// Config is the root configuration structure for the tracker.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the dashboard title. Defaults to "Ghana Bus Tracker" if not set.
	Title string `yaml:"title"`

	// Port is the HTTP server port. Defaults to 3000.
	Port int `yaml:"port" validate:"min=1,max=65535"`

	// StalenessWindow is how long the tracker waits without a fix before
	// marking the vehicle disconnected. Accepts duration strings like
	// "30s", "1m". Defaults to 30s.
	StalenessWindow Duration `yaml:"staleness_window"`

	// SweepInterval is how often the liveness monitor checks for
	// staleness. Defaults to 5s.
	SweepInterval Duration `yaml:"sweep_interval"`

	// AuthToken, when non-empty, requires "Authorization: Bearer <token>"
	// on the ingest, chat and history endpoints.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	AuthToken string `yaml:"auth_token"`

	// DatabaseURL, when non-empty, enables the Postgres recorder.
	// Values support environment variable substitution.
	DatabaseURL string `yaml:"database_url"`

	// MetricsAddr, when non-empty, additionally serves the Prometheus
	// scrape endpoint on a dedicated listener, e.g. ":9091".
	MetricsAddr string `yaml:"metrics_addr"`

	// NATS configures an optional broker feed of GPS fixes.
	NATS NATSConfig `yaml:"nats"`
}

// NATSConfig configures the optional NATS fix source. Both fields must be
// set for the feed to start.
type NATSConfig struct {
	// URL is the broker address, e.g. nats://localhost:4222.
	// Supports environment variable substitution.
	URL string `yaml:"url"`

	// Subject is the subject carrying fix messages, e.g. bus.fixes.
	Subject string `yaml:"subject"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// already have an error, skip processing
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		// submatches[2] is ":-..." (non-empty if default syntax was used)
		// submatches[3] is the actual default value (may be empty for ${VAR:-})
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

var validate = validator.New()

// Load reads and parses a YAML configuration file.
//
// A .env file in the working directory is loaded first, if present, so
// that ${VAR} references in the config can be satisfied without exporting
// variables. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	// best effort; a missing .env file is not an error
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in AuthToken, DatabaseURL and the
// NATS URL. Defaults are applied for Port (3000), StalenessWindow (30s)
// and SweepInterval (5s).
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Port == 0 {
		cfg.Port = 3000
	}
	if cfg.StalenessWindow == 0 {
		cfg.StalenessWindow = Duration(30 * time.Second)
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = Duration(5 * time.Second)
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	for name, field := range map[string]*string{
		"auth_token":   &c.AuthToken,
		"database_url": &c.DatabaseURL,
		"nats.url":     &c.NATS.URL,
	} {
		expanded, err := expandEnvVars(*field)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*field = expanded
	}

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.StalenessWindow.Duration() <= 0 {
		return fmt.Errorf("staleness_window must be positive, got %s", c.StalenessWindow.Duration())
	}
	if c.SweepInterval.Duration() < minSweepInterval {
		return fmt.Errorf("sweep_interval must be at least %s, got %s", minSweepInterval, c.SweepInterval.Duration())
	}
	if c.SweepInterval.Duration() > c.StalenessWindow.Duration() {
		return fmt.Errorf("sweep_interval (%s) must not exceed staleness_window (%s)",
			c.SweepInterval.Duration(), c.StalenessWindow.Duration())
	}

	if (c.NATS.URL == "") != (c.NATS.Subject == "") {
		return fmt.Errorf("nats: url and subject must be set together")
	}

	return nil
}
