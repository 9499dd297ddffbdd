// Package config provides configuration file parsing for esptrack.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/esptrack/esptrack/internal/imelog"
	"github.com/esptrack/esptrack/internal/tracker"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "100ms" or "2s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	td, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(td)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Simulation configures replay mode.
type Simulation struct {
	// Enabled turns on timestamp-based pacing.
	Enabled bool `yaml:"enabled"`
	// SpeedFactor divides simulated gaps; 50 replays 10 simulated seconds
	// in 0.2 real seconds.
	SpeedFactor float64 `yaml:"speed_factor"`
}

// Config is the esptrack configuration. All paths may reference
// environment variables ($ProgramData and friends).
type Config struct {
	// LogDir is the agent log directory to watch.
	LogDir string `yaml:"log_dir"`
	// Patterns are filename globs for the log family, archives included.
	Patterns []string `yaml:"patterns"`
	// PollInterval is the tailing interval.
	PollInterval Duration `yaml:"poll_interval"`
	// RulesFile is the YAML rule document, hot-reloaded on change.
	RulesFile string `yaml:"rules_file"`
	// JournalPath is the SQLite event journal location.
	JournalPath string `yaml:"journal_path"`
	// MatchLogPath, when set, enables the diagnostic match log.
	MatchLogPath string `yaml:"match_log,omitempty"`

	Simulation Simulation `yaml:"simulation"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogDir:       `$ProgramData/Microsoft/IntuneManagementExtension/Logs`,
		Patterns:     imelog.DefaultPatterns,
		PollInterval: Duration(tracker.DefaultPollInterval),
		Simulation:   Simulation{SpeedFactor: 1},
	}
}

// Load reads the YAML config at path, layered over Default. An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = Duration(tracker.DefaultPollInterval)
	}
	if cfg.Simulation.SpeedFactor <= 0 {
		cfg.Simulation.SpeedFactor = 1
	}
	if len(cfg.Patterns) == 0 {
		cfg.Patterns = imelog.DefaultPatterns
	}
	return cfg, nil
}

// DataDir returns the esptrack data directory (journal, match log),
// creating it if needed.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get user home directory: %w", err)
	}
	dir := filepath.Join(home, ".esptrack")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return dir, nil
}
