package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	simulateDir      string
	simulateRules    string
	simulateSpeed    float64
	simulateJournal  string
	simulateMatchLog string

	simulateCmd = &cobra.Command{
		Use:   "simulate",
		Short: "Replay captured agent logs with compressed timing",
		Long: `Replay a directory of captured agent logs through the same engine used
for live tracking. Line processing is paced by the gap between consecutive
log timestamps divided by the speed factor, so production timing is
reproduced at a compressed rate. Per-line waits are capped, so a multi-hour
gap in a capture never stalls the replay.

The replay keeps polling for appended log data until interrupted, which
also makes it useful against a capture that is still being written.`,
		Example: `  # Replay a captured enrollment 50x faster than real time
  esptrack simulate --dir ./captures/device-7 --rules rules.yaml --speed 50`,
		RunE: runSimulate,
	}
)

func init() {
	simulateCmd.Flags().StringVar(&simulateDir, "dir", "", "directory of captured agent logs (required)")
	simulateCmd.Flags().StringVar(&simulateRules, "rules", "", "rule file (YAML)")
	simulateCmd.Flags().Float64Var(&simulateSpeed, "speed", 50, "timing compression factor")
	simulateCmd.Flags().StringVar(&simulateJournal, "journal", "", "journal database path")
	simulateCmd.Flags().StringVar(&simulateMatchLog, "match-log", "", "append every rule match to this file")

	simulateCmd.MarkFlagRequired("dir")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if simulateSpeed <= 0 {
		return fmt.Errorf("--speed must be positive")
	}
	return runEngine(engineOptions{
		logDir:     simulateDir,
		rulesFile:  simulateRules,
		journal:    simulateJournal,
		matchLog:   simulateMatchLog,
		simulation: true,
		speed:      simulateSpeed,
	})
}
