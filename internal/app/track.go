package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/esptrack/esptrack/internal/config"
	"github.com/esptrack/esptrack/internal/journal"
	"github.com/esptrack/esptrack/internal/matchlog"
	"github.com/esptrack/esptrack/internal/rules"
	"github.com/esptrack/esptrack/internal/tracker"
)

var (
	trackLogDir    string
	trackRulesFile string
	trackJournal   string
	trackMatchLog  string

	trackCmd = &cobra.Command{
		Use:   "track",
		Short: "Tail the agent log and track app installations live",
		Long: `Tail the Intune Management Extension log family and reconstruct
per-application installation progress in real time.

The rule file is watched for changes and hot-reloaded; replacing it never
requires a restart. State changes, phase transitions and completion are
printed to stdout and written to the journal.`,
		Example: `  # Track with the default agent log directory
  esptrack track --rules rules.yaml

  # Track a non-standard log location with match diagnostics
  esptrack track --rules rules.yaml --dir D:\Logs --match-log matches.log`,
		RunE: runTrack,
	}
)

func init() {
	trackCmd.Flags().StringVar(&trackLogDir, "dir", "", "agent log directory (default: config or $ProgramData/...)")
	trackCmd.Flags().StringVar(&trackRulesFile, "rules", "", "rule file (YAML)")
	trackCmd.Flags().StringVar(&trackJournal, "journal", "", "journal database path (default: ~/.esptrack/esptrack.db)")
	trackCmd.Flags().StringVar(&trackMatchLog, "match-log", "", "append every rule match to this file")
}

func runTrack(cmd *cobra.Command, args []string) error {
	return runEngine(engineOptions{
		logDir:    trackLogDir,
		rulesFile: trackRulesFile,
		journal:   trackJournal,
		matchLog:  trackMatchLog,
	})
}

// engineOptions carries the per-command overrides applied on top of the
// config file. track and simulate share all wiring except pacing.
type engineOptions struct {
	logDir     string
	rulesFile  string
	journal    string
	matchLog   string
	simulation bool
	speed      float64
}

func runEngine(opts engineOptions) error {
	logger := newLogger()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyOverrides(&cfg, opts)

	if cfg.RulesFile == "" {
		return fmt.Errorf("no rule file: pass --rules or set rules_file in the config")
	}
	ruleset, err := rules.LoadFile(cfg.RulesFile)
	if err != nil {
		return err
	}
	registry := rules.NewRegistry(logger)
	active := registry.Compile(ruleset)
	logger.Info("rules loaded", "file", cfg.RulesFile, "active", active)

	if cfg.JournalPath == "" {
		cfg.JournalPath, err = defaultJournalPath()
		if err != nil {
			return err
		}
	}
	jnl, err := journal.Open(cfg.JournalPath)
	if err != nil {
		return err
	}
	defer jnl.Close()

	jsink, err := journal.NewSink(jnl, cfg.Simulation.Enabled, logger)
	if err != nil {
		return err
	}

	engineCfg := tracker.Config{
		LogDir:       cfg.LogDir,
		Patterns:     cfg.Patterns,
		PollInterval: cfg.PollInterval.Std(),
		Registry:     registry,
		Sink:         tracker.MultiSink{consoleSink{}, jsink},
		Simulation:   cfg.Simulation.Enabled,
		SpeedFactor:  cfg.Simulation.SpeedFactor,
		Logger:       logger,
	}

	if cfg.MatchLogPath != "" {
		ml, err := matchlog.Open(cfg.MatchLogPath)
		if err != nil {
			return err
		}
		defer ml.Close()
		engineCfg.MatchLog = ml
	}

	engine, err := tracker.NewEngine(engineCfg)
	if err != nil {
		return err
	}

	// Hot reload: rule file changes swap the matcher sets atomically while
	// the engine keeps polling.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := rules.Watch(ctx, cfg.RulesFile, registry, logger); err != nil {
			logger.Warn("rule watcher stopped", "error", err)
		}
	}()

	if err := engine.Start(); err != nil {
		return err
	}

	mode := "Tracking"
	if cfg.Simulation.Enabled {
		mode = "Replaying"
	}
	fmt.Printf("%s %s (run %s). Press Ctrl+C to stop.\n\n", mode, cfg.LogDir, jsink.RunID())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh
	fmt.Printf("\nReceived signal %v, shutting down...\n", sig)

	if err := engine.Stop(); err != nil {
		return err
	}
	fmt.Println("Tracking stopped. Run 'esptrack status' for the summary.")
	return nil
}

func applyOverrides(cfg *config.Config, opts engineOptions) {
	if opts.logDir != "" {
		cfg.LogDir = opts.logDir
	}
	if opts.rulesFile != "" {
		cfg.RulesFile = opts.rulesFile
	}
	if opts.journal != "" {
		cfg.JournalPath = opts.journal
	}
	if opts.matchLog != "" {
		cfg.MatchLogPath = opts.matchLog
	}
	if opts.simulation {
		cfg.Simulation.Enabled = true
		if opts.speed > 0 {
			cfg.Simulation.SpeedFactor = opts.speed
		}
	}
}
