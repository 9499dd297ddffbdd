package journal

import "time"

// Event kinds stored in the events table.
const (
	KindStateChange  = "state_change"
	KindAllCompleted = "all_completed"
	KindPhase        = "phase"
	KindAgentStarted = "agent_started"
	KindAgentVersion = "agent_version"
	KindPolicies     = "policies"
)

// Run identifies one invocation of the tracking engine.
type Run struct {
	ID         string
	StartedAt  time.Time
	Simulation bool
}

// Event is one persisted engine event.
type Event struct {
	ID              int64
	RunID           string
	Kind            string
	AppID           string
	AppName         string
	OldState        string
	NewState        string
	Phase           string
	Detail          string
	BytesDownloaded int64
	BytesTotal      int64
	Timestamp       time.Time
}

// AppResult is the final observed state of one app within a run.
type AppResult struct {
	AppID           string
	AppName         string
	FinalState      string
	BytesDownloaded int64
	BytesTotal      int64
	LastSeen        time.Time
}
