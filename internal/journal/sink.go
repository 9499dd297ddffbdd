package journal

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/esptrack/esptrack/internal/tracker"
)

// Sink adapts the Journal to the engine's EventSink interface. Insert
// failures are logged and dropped; persistence problems must not stall
// tracking.
type Sink struct {
	journal *Journal
	runID   string
	log     *slog.Logger
}

// NewSink begins a run and returns a sink writing into it.
func NewSink(j *Journal, simulation bool, logger *slog.Logger) (*Sink, error) {
	runID, err := j.BeginRun(simulation)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{
		journal: j,
		runID:   runID,
		log:     logger.With("component", "journal"),
	}, nil
}

// RunID returns the run this sink writes into.
func (s *Sink) RunID() string {
	return s.runID
}

func (s *Sink) record(e *Event) {
	e.RunID = s.runID
	if err := s.journal.InsertEvent(e); err != nil {
		s.log.Warn("dropping journal event", "kind", e.Kind, "error", err)
	}
}

func (s *Sink) AppStateChanged(app tracker.App, oldState, newState tracker.State) {
	s.record(&Event{
		Kind:            KindStateChange,
		AppID:           app.ID,
		AppName:         app.Name,
		OldState:        oldState.String(),
		NewState:        newState.String(),
		BytesDownloaded: app.BytesDownloaded,
		BytesTotal:      app.BytesTotal,
	})
}

func (s *Sink) AllAppsCompleted(apps []tracker.App) {
	s.record(&Event{
		Kind:   KindAllCompleted,
		Detail: fmt.Sprintf("%d apps", len(apps)),
	})
}

func (s *Sink) PhaseChanged(phase string) {
	s.record(&Event{Kind: KindPhase, Phase: phase})
}

func (s *Sink) AgentStarted(ts time.Time) {
	s.record(&Event{Kind: KindAgentStarted, Timestamp: ts})
}

func (s *Sink) AgentVersion(version string) {
	s.record(&Event{Kind: KindAgentVersion, Detail: version})
}

func (s *Sink) PoliciesReceived(total, tracked int) {
	s.record(&Event{
		Kind:   KindPolicies,
		Detail: fmt.Sprintf("%d declared, %d tracked", total, tracked),
	})
}
