// Package app implements the esptrack command tree.
package app

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/esptrack/esptrack/internal/config"
)

var (
	configPath string
	verbose    bool

	// RootCmd is the root command for esptrack.
	RootCmd = &cobra.Command{
		Use:   "esptrack",
		Short: "Track Autopilot app installations from the Intune agent log",
		Long: `esptrack tails the Intune Management Extension log during a Windows
Autopilot enrollment and reconstructs per-application installation progress
from it, using regex rules that can be replaced at runtime.

The engine survives log rotation, agent restarts and the agent's habit of
re-reporting finished installs at each provisioning phase boundary. Every
observable state change is written to a local SQLite journal for later
inspection.

Quick Start:
  1. esptrack rules --file rules.yaml     # validate your rule set
  2. esptrack track --rules rules.yaml    # live tracking (Ctrl+C to stop)
  3. esptrack status                      # per-app results of the last run

Captured-log replay:
  esptrack simulate --dir ./captured-logs --rules rules.yaml --speed 50`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (YAML)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	RootCmd.SuggestionsMinimumDistance = 2

	RootCmd.AddCommand(trackCmd)
	RootCmd.AddCommand(simulateCmd)
	RootCmd.AddCommand(statusCmd)
	RootCmd.AddCommand(rulesCmd)
}

// Execute runs the root command.
func Execute() error {
	return RootCmd.Execute()
}

// newLogger builds the process logger honoring --verbose.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadConfig loads the configuration file named by --config (defaults when
// the flag is unset).
func loadConfig() (config.Config, error) {
	return config.Load(configPath)
}

// defaultJournalPath returns the journal location used when neither the
// config file nor a flag names one.
func defaultJournalPath() (string, error) {
	dir, err := config.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "esptrack.db"), nil
}
