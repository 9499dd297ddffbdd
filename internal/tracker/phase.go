package tracker

// Vendor phase names from the Enrollment Status Page sequence. Only these
// two are recognized transitions; DeviceSetup selects the current-phase
// matcher set, AccountSetup the other-phases set. These strings are
// vendor-controlled: a rename upstream requires updating this table.
var recognizedPhases = map[string]bool{
	"DeviceSetup":  true,
	"AccountSetup": false,
}

// PhaseGate tracks the detected provisioning phase and decides when a
// phase boundary occurred. It carries no references; the engine applies
// the silencing side effects it reports.
type PhaseGate struct {
	lastPhase     string
	currentActive bool
}

// NewPhaseGate starts with no recorded phase and the current-phase matcher
// set active (device setup is the first phase the agent log can be
// observed in).
func NewPhaseGate() *PhaseGate {
	return &PhaseGate{currentActive: true}
}

// Observe records a detected phase name. recognized is false for phase
// names outside the mapping table (no transition). boundary is true when
// the phase changed after a different phase had already been recorded;
// the caller must then silence and clear the app store. Re-observing the
// same phase is a no-op.
func (g *PhaseGate) Observe(phase string) (recognized, changed, boundary bool) {
	isCurrent, ok := recognizedPhases[phase]
	if !ok {
		return false, false, false
	}
	if phase == g.lastPhase {
		return true, false, false
	}

	boundary = g.lastPhase != ""
	g.lastPhase = phase
	g.currentActive = isCurrent
	return true, true, boundary
}

// CurrentActive reports whether the current-phase matcher set is active.
func (g *PhaseGate) CurrentActive() bool {
	return g.currentActive
}

// Phase returns the last recorded phase name, "" before any detection.
func (g *PhaseGate) Phase() string {
	return g.lastPhase
}
