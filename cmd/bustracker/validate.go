package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ghanabus/bustracker/config"
)

// validateCmd validates a config file without starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a bustracker configuration file without starting the server.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  bustracker validate -c config.yaml
  bustracker validate --config /etc/bustracker/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	recorder := "memory"
	if cfg.DatabaseURL != "" {
		recorder = "postgres"
	}
	authMode := "permissive"
	if cfg.AuthToken != "" {
		authMode = "bearer token"
	}

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  Port:             %d\n", cfg.Port)
	fmt.Printf("  Staleness window: %s\n", cfg.StalenessWindow.Duration())
	fmt.Printf("  Sweep interval:   %s\n", cfg.SweepInterval.Duration())
	fmt.Printf("  Recorder:         %s\n", recorder)
	fmt.Printf("  Auth:             %s\n", authMode)
	if cfg.NATS.URL != "" {
		fmt.Printf("  NATS feed:        %s (%s)\n", cfg.NATS.URL, cfg.NATS.Subject)
	}

	return nil
}
