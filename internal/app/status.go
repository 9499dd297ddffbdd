package app

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/esptrack/esptrack/internal/journal"
)

var (
	statusJournal string
	statusEvents  bool

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show the latest tracking run's results",
		Long: `Summarize the most recent tracking run from the journal: the phase
timeline and each app's final observed state with download byte counts.`,
		Example: `  # Per-app results of the last run
  esptrack status

  # Full event stream of the last run
  esptrack status --events`,
		RunE: runStatus,
	}
)

func init() {
	statusCmd.Flags().StringVar(&statusJournal, "journal", "", "journal database path")
	statusCmd.Flags().BoolVar(&statusEvents, "events", false, "list every recorded event")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path := cfg.JournalPath
	if statusJournal != "" {
		path = statusJournal
	}
	if path == "" {
		path, err = defaultJournalPath()
		if err != nil {
			return err
		}
	}

	jnl, err := journal.Open(path)
	if err != nil {
		return err
	}
	defer jnl.Close()

	run, err := jnl.LatestRun()
	if err != nil {
		return err
	}

	mode := "live"
	if run.Simulation {
		mode = "simulation"
	}
	fmt.Printf("Run %s (%s, started %s)\n\n", run.ID, mode, run.StartedAt.Format(time.RFC3339))

	if statusEvents {
		return printEvents(jnl, run.ID)
	}

	phases, err := jnl.PhaseTimeline(run.ID)
	if err != nil {
		return err
	}
	if len(phases) > 0 {
		fmt.Println("Phases:")
		for _, p := range phases {
			fmt.Printf("  %s  %s\n", p.Timestamp.Format("15:04:05"), p.Phase)
		}
		fmt.Println()
	}

	results, err := jnl.AppResults(run.ID)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No app activity recorded.")
		return nil
	}

	fmt.Printf("%-40s %-12s %s\n", "APP", "STATE", "DOWNLOADED")
	for _, r := range results {
		name := r.AppName
		if name == "" {
			name = r.AppID
		}
		downloaded := "-"
		if r.BytesTotal > 0 {
			downloaded = fmt.Sprintf("%s / %s",
				humanize.Bytes(uint64(r.BytesDownloaded)), humanize.Bytes(uint64(r.BytesTotal)))
		}
		fmt.Printf("%-40s %-12s %s\n", name, r.FinalState, downloaded)
	}
	return nil
}

func printEvents(jnl *journal.Journal, runID string) error {
	events, err := jnl.ListEvents(runID)
	if err != nil {
		return err
	}
	for _, e := range events {
		switch e.Kind {
		case journal.KindStateChange:
			fmt.Printf("%s  %-14s %s: %s -> %s\n",
				e.Timestamp.Format("15:04:05.000"), e.Kind, e.AppID, e.OldState, e.NewState)
		case journal.KindPhase:
			fmt.Printf("%s  %-14s %s\n", e.Timestamp.Format("15:04:05.000"), e.Kind, e.Phase)
		default:
			fmt.Printf("%s  %-14s %s\n", e.Timestamp.Format("15:04:05.000"), e.Kind, e.Detail)
		}
	}
	return nil
}
