package app

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/esptrack/esptrack/internal/tracker"
)

// consoleSink prints engine events as they happen during track/simulate.
type consoleSink struct{}

func (consoleSink) AppStateChanged(app tracker.App, oldState, newState tracker.State) {
	name := app.Name
	if name == "" {
		name = app.ID
	}
	if newState == tracker.StateDownloading && app.BytesTotal > 0 {
		fmt.Printf("  %-40s %s -> %s (%s / %s)\n", name, oldState, newState,
			humanize.Bytes(uint64(app.BytesDownloaded)), humanize.Bytes(uint64(app.BytesTotal)))
		return
	}
	fmt.Printf("  %-40s %s -> %s\n", name, oldState, newState)
}

func (consoleSink) AllAppsCompleted(apps []tracker.App) {
	fmt.Printf("\nAll %d tracked apps reached a terminal state.\n\n", len(apps))
}

func (consoleSink) PhaseChanged(phase string) {
	fmt.Printf("\n== Provisioning phase: %s ==\n\n", phase)
}

func (consoleSink) AgentStarted(ts time.Time) {
	fmt.Printf("Agent started at %s\n", ts.Format(time.RFC3339))
}

func (consoleSink) AgentVersion(version string) {
	fmt.Printf("Agent version %s\n", version)
}

func (consoleSink) PoliciesReceived(total, tracked int) {
	fmt.Printf("Policies received: %d declared, %d tracked\n", total, tracked)
}
