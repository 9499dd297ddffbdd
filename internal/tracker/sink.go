package tracker

import "time"

// EventSink receives the engine's observable events. Implementations must
// be fast or buffer internally; the polling goroutine calls them inline.
type EventSink interface {
	// AppStateChanged fires on every observable state transition. app is a
	// snapshot taken after the transition.
	AppStateChanged(app App, oldState, newState State)
	// AllAppsCompleted fires once per phase when every tracked, non-ignored
	// app reached a terminal state.
	AllAppsCompleted(apps []App)
	// PhaseChanged fires when a recognized provisioning phase is detected
	// for the first time or changes.
	PhaseChanged(phase string)
	// AgentStarted fires when the log shows the management agent (re)starting.
	AgentStarted(ts time.Time)
	// AgentVersion reports the agent version string found in the log.
	AgentVersion(version string)
	// PoliciesReceived reports a bulk app-policy declaration and how many
	// of its entries were accepted for tracking.
	PoliciesReceived(total, tracked int)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) AppStateChanged(App, State, State) {}
func (NopSink) AllAppsCompleted([]App)            {}
func (NopSink) PhaseChanged(string)               {}
func (NopSink) AgentStarted(time.Time)            {}
func (NopSink) AgentVersion(string)               {}
func (NopSink) PoliciesReceived(int, int)         {}

// MultiSink fans events out to each sink in order.
type MultiSink []EventSink

func (m MultiSink) AppStateChanged(app App, oldState, newState State) {
	for _, s := range m {
		s.AppStateChanged(app, oldState, newState)
	}
}

func (m MultiSink) AllAppsCompleted(apps []App) {
	for _, s := range m {
		s.AllAppsCompleted(apps)
	}
}

func (m MultiSink) PhaseChanged(phase string) {
	for _, s := range m {
		s.PhaseChanged(phase)
	}
}

func (m MultiSink) AgentStarted(ts time.Time) {
	for _, s := range m {
		s.AgentStarted(ts)
	}
}

func (m MultiSink) AgentVersion(version string) {
	for _, s := range m {
		s.AgentVersion(version)
	}
}

func (m MultiSink) PoliciesReceived(total, tracked int) {
	for _, s := range m {
		s.PoliciesReceived(total, tracked)
	}
}
