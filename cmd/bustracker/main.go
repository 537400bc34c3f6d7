// Package main is the entry point for the bustracker CLI.
//
// The tracker can be run either as a library (SDK) or as a standalone
// binary with YAML configuration. This CLI provides the standalone binary
// approach.
//
// Usage:
//
//	bustracker serve -c config.yaml     # Start the tracker
//	bustracker validate -c config.yaml  # Validate configuration
//	bustracker simulate                 # Send synthetic GPS fixes
//	bustracker version                  # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "bustracker",
	Short: "A real-time bus tracking dashboard",
	Long: `Bustracker is a real-time vehicle tracking service.

It accepts GPS fixes from tracking devices, pushes live updates to
connected browsers over WebSockets, watches for device staleness, and
answers rider questions through a built-in chat assistant.

Quick start:
  1. Create a config file (bustracker.yaml)
  2. Run: bustracker serve -c bustracker.yaml
  3. Open http://localhost:3000 in your browser

Example config:
  port: 3000
  staleness_window: 30s
  sweep_interval: 5s
  auth_token: ${BUS_AUTH_TOKEN:-}`,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this bustracker binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("bustracker %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Register subcommands with root
	rootCmd.AddCommand(versionCmd)
}
