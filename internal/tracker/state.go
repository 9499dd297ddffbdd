package tracker

import "sync"

// State is an application's installation state as reconstructed from the
// agent log. The zero value is StateNotStarted.
type State int

const (
	StateNotStarted State = iota
	// StateInProgress is the generic "the agent is doing something with
	// this app" marker used by signals that precede a more specific state.
	StateInProgress
	StateDownloading
	StateInstalling
	StateInstalled
	StateError
	StateSkipped
	StatePostponed
)

var stateNames = map[State]string{
	StateNotStarted:  "NotStarted",
	StateInProgress:  "InProgress",
	StateDownloading: "Downloading",
	StateInstalling:  "Installing",
	StateInstalled:   "Installed",
	StateError:       "Error",
	StateSkipped:     "Skipped",
	StatePostponed:   "Postponed",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "Unknown"
}

// Terminal reports whether s counts as finished for completion purposes.
func (s State) Terminal() bool {
	return s == StateInstalled || s == StateError || s == StateSkipped
}

// ParseState maps a rule-parameter state name to its State value.
func ParseState(name string) (State, bool) {
	for s, n := range stateNames {
		if n == name {
			return s, true
		}
	}
	return StateNotStarted, false
}

// App is one tracked application unit. ID is the opaque identifier (a
// GUID) captured from log text.
type App struct {
	ID              string
	Name            string
	State           State
	BytesDownloaded int64
	BytesTotal      int64
	Active          bool
	Ignored         bool
}

// AppStore owns the per-application state machines: an ordered, id-keyed
// collection, the "current app" cursor used by log lines that imply but do
// not name an app, and the ignore set holding ids invalidated by a phase
// boundary.
//
// The polling goroutine is the only writer; the mutex exists so host-side
// readers (Snapshot, AllCompleted) can take eventually-consistent views
// while the loop runs.
type AppStore struct {
	mu      sync.Mutex
	order   []string
	apps    map[string]*App
	ignored map[string]struct{}
	current string
}

// NewAppStore returns an empty store.
func NewAppStore() *AppStore {
	return &AppStore{
		apps:    make(map[string]*App),
		ignored: make(map[string]struct{}),
	}
}

// SetCurrent points the cursor at id, creating the entry if needed.
func (s *AppStore) SetCurrent(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" {
		s.getOrCreateLocked(id)
	}
	s.current = id
}

// CurrentID returns the cursor, "" when unset.
func (s *AppStore) CurrentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Current returns a snapshot of the app under the cursor, ok=false when
// the cursor is unset.
func (s *AppStore) Current() (App, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[s.current]
	if !ok {
		return App{}, false
	}
	return *app, true
}

// GetOrCreate returns a snapshot of the entry for id, creating a
// NotStarted entry on first sight.
func (s *AppStore) GetOrCreate(id string) App {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.getOrCreateLocked(id)
}

func (s *AppStore) getOrCreateLocked(id string) *App {
	if app, ok := s.apps[id]; ok {
		return app
	}
	app := &App{ID: id}
	if _, ignored := s.ignored[id]; ignored {
		app.Ignored = true
	}
	s.apps[id] = app
	s.order = append(s.order, id)
	return app
}

// SetName records the human-readable name for id without touching state.
func (s *AppStore) SetName(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name != "" {
		s.getOrCreateLocked(id).Name = name
	}
}

// UpdateState applies a state transition and reports whether an observable
// change occurred. Repeated updates to the same state are no-ops. A
// transition into Postponed is rejected when the app already finished
// (Installed or Error): postponement never overrides a result. Updates to
// ignored ids are applied nowhere and report no change.
func (s *AppStore) UpdateState(id string, newState State) (App, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ignored := s.ignored[id]; ignored {
		return App{}, false
	}

	app := s.getOrCreateLocked(id)
	if app.State == newState {
		return *app, false
	}
	if newState == StatePostponed && (app.State == StateInstalled || app.State == StateError) {
		return *app, false
	}

	app.State = newState
	app.Active = newState == StateInProgress || newState == StateDownloading || newState == StateInstalling
	return *app, true
}

// UpdateDownloadProgress records byte counters for id and forces the state
// to Downloading if it is not there already. The returned bool reports
// whether the state changed (byte-counter-only updates return false).
func (s *AppStore) UpdateDownloadProgress(id string, bytesDownloaded, bytesTotal int64) (App, bool) {
	s.mu.Lock()
	if _, ignored := s.ignored[id]; ignored {
		s.mu.Unlock()
		return App{}, false
	}
	app := s.getOrCreateLocked(id)
	app.BytesDownloaded = bytesDownloaded
	app.BytesTotal = bytesTotal
	s.mu.Unlock()

	return s.UpdateState(id, StateDownloading)
}

// Ignore adds id to the ignore set. Future matches for it are suppressed
// and it no longer counts toward completion.
func (s *AppStore) Ignore(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ignored[id] = struct{}{}
	if app, ok := s.apps[id]; ok {
		app.Ignored = true
	}
}

// IsIgnored reports ignore-set membership.
func (s *AppStore) IsIgnored(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ignored[id]
	return ok
}

// IgnoreAllAndClear pushes every known id into the ignore set, empties the
// collection and resets the cursor. Called at a phase boundary: the agent
// re-reports the previous phase's apps at the start of the next phase and
// those re-reports must not look like new work.
func (s *AppStore) IgnoreAllAndClear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.apps {
		s.ignored[id] = struct{}{}
	}
	s.apps = make(map[string]*App)
	s.order = nil
	s.current = ""
}

// AllCompleted reports whether every non-ignored app reached a terminal
// state. False while the store is empty or holds only ignored entries.
// Computed fresh on every call; state mutates concurrently with polling.
func (s *AppStore) AllCompleted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	tracked := 0
	for id, app := range s.apps {
		if _, ignored := s.ignored[id]; ignored {
			continue
		}
		tracked++
		if !app.State.Terminal() {
			return false
		}
	}
	return tracked > 0
}

// Len returns the number of entries in the collection, ignored included.
func (s *AppStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.apps)
}

// Snapshot returns app copies in discovery order.
func (s *AppStore) Snapshot() []App {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]App, 0, len(s.order))
	for _, id := range s.order {
		if app, ok := s.apps[id]; ok {
			out = append(out, *app)
		}
	}
	return out
}

// BulkUpsert ingests a batch of expected apps from a policy declaration.
// Missing entries are created NotStarted; existing entries keep their
// state (the declaration arrives after tracking may have started). filter,
// when non-nil, drops declarations the caller does not want tracked.
func (s *AppStore) BulkUpsert(decls []PolicyDeclaration, filter func(PolicyDeclaration) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, d := range decls {
		if d.ID == "" {
			continue
		}
		if filter != nil && !filter(d) {
			continue
		}
		if _, exists := s.apps[d.ID]; !exists {
			added++
		}
		app := s.getOrCreateLocked(d.ID)
		if d.Name != "" {
			app.Name = d.Name
		}
	}
	return added
}
