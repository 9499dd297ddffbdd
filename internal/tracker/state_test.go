package tracker

import "testing"

const (
	idA = "11111111-1111-1111-1111-111111111111"
	idB = "22222222-2222-2222-2222-222222222222"
	idC = "33333333-3333-3333-3333-333333333333"
)

func TestUpdateStateIdempotent(t *testing.T) {
	s := NewAppStore()

	if _, changed := s.UpdateState(idA, StateInstalling); !changed {
		t.Fatal("first transition should report a change")
	}
	if _, changed := s.UpdateState(idA, StateInstalling); changed {
		t.Error("repeated transition to the same state must be a no-op")
	}
	if _, changed := s.UpdateState(idA, StateInstalled); !changed {
		t.Error("transition to a new state should report a change")
	}
}

func TestPostponedNeverOverridesTerminal(t *testing.T) {
	tests := []struct {
		name     string
		terminal State
		want     State
		blocked  bool
	}{
		{"installed blocks postponed", StateInstalled, StateInstalled, true},
		{"error blocks postponed", StateError, StateError, true},
		{"installing allows postponed", StateInstalling, StatePostponed, false},
		{"skipped allows postponed", StateSkipped, StatePostponed, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewAppStore()
			s.UpdateState(idA, tt.terminal)
			_, changed := s.UpdateState(idA, StatePostponed)
			if changed == tt.blocked {
				t.Errorf("UpdateState(Postponed) changed = %v", changed)
			}
			if got := s.GetOrCreate(idA).State; got != tt.want {
				t.Errorf("state = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUpdateDownloadProgress(t *testing.T) {
	s := NewAppStore()

	app, changed := s.UpdateDownloadProgress(idA, 1024, 4096)
	if !changed {
		t.Error("first progress update should move state to Downloading")
	}
	if app.State != StateDownloading {
		t.Errorf("state = %v, want Downloading", app.State)
	}
	if app.BytesDownloaded != 1024 || app.BytesTotal != 4096 {
		t.Errorf("bytes = %d/%d", app.BytesDownloaded, app.BytesTotal)
	}

	// Byte counters always refresh; the state change fires only once.
	if _, changed := s.UpdateDownloadProgress(idA, 2048, 4096); changed {
		t.Error("second progress update must not report a state change")
	}
	if got := s.GetOrCreate(idA); got.BytesDownloaded != 2048 {
		t.Errorf("BytesDownloaded = %d, want 2048", got.BytesDownloaded)
	}
}

func TestIgnoredIDsSuppressUpdates(t *testing.T) {
	s := NewAppStore()
	s.UpdateState(idA, StateInstalling)
	s.Ignore(idA)

	if _, changed := s.UpdateState(idA, StateInstalled); changed {
		t.Error("ignored id must never report a state change")
	}
	if _, changed := s.UpdateDownloadProgress(idA, 1, 2); changed {
		t.Error("ignored id must never report a progress state change")
	}
	if !s.IsIgnored(idA) {
		t.Error("IsIgnored(idA) = false")
	}
}

func TestAllCompleted(t *testing.T) {
	s := NewAppStore()
	if s.AllCompleted() {
		t.Error("empty store must not report completion")
	}

	s.UpdateState(idA, StateInstalling)
	s.UpdateState(idB, StateDownloading)
	s.UpdateState(idC, StateInstalling)
	if s.AllCompleted() {
		t.Error("completion with active apps")
	}

	s.UpdateState(idA, StateInstalled)
	s.UpdateState(idB, StateError)
	if s.AllCompleted() {
		t.Error("completion with one app still active")
	}

	s.UpdateState(idC, StateSkipped)
	if !s.AllCompleted() {
		t.Error("all terminal states should report completion")
	}
}

func TestAllCompletedSkipsIgnored(t *testing.T) {
	s := NewAppStore()
	s.UpdateState(idA, StateInstalled)
	s.UpdateState(idB, StateInstalling)
	s.Ignore(idB)

	if !s.AllCompleted() {
		t.Error("ignored apps must not count toward completion")
	}

	// A store holding only ignored entries is not complete.
	s2 := NewAppStore()
	s2.UpdateState(idA, StateInstalled)
	s2.Ignore(idA)
	if s2.AllCompleted() {
		t.Error("only-ignored store must not report completion")
	}
}

func TestIgnoreAllAndClear(t *testing.T) {
	s := NewAppStore()
	s.UpdateState(idA, StateInstalled)
	s.UpdateState(idB, StateDownloading)
	s.SetCurrent(idB)

	s.IgnoreAllAndClear()

	if s.Len() != 0 {
		t.Errorf("Len() = %d after clear, want 0", s.Len())
	}
	if s.CurrentID() != "" {
		t.Errorf("cursor = %q after clear, want empty", s.CurrentID())
	}
	if !s.IsIgnored(idA) || !s.IsIgnored(idB) {
		t.Error("cleared apps must land in the ignore set")
	}

	// Re-declaring an old id creates a fresh entry, but it stays silenced.
	app := s.GetOrCreate(idA)
	if app.State != StateNotStarted {
		t.Errorf("re-created entry state = %v, want NotStarted", app.State)
	}
	if _, changed := s.UpdateState(idA, StateInstalling); changed {
		t.Error("re-created ignored id must stay silenced")
	}
}

func TestCurrentCursor(t *testing.T) {
	s := NewAppStore()
	if _, ok := s.Current(); ok {
		t.Error("Current() on empty store")
	}

	s.SetCurrent(idA)
	if s.CurrentID() != idA {
		t.Errorf("CurrentID() = %q", s.CurrentID())
	}
	if s.Len() != 1 {
		t.Error("SetCurrent should create the entry")
	}

	cur, ok := s.Current()
	if !ok || cur.ID != idA {
		t.Errorf("Current() = %+v, %v", cur, ok)
	}
}

func TestBulkUpsert(t *testing.T) {
	s := NewAppStore()
	s.UpdateState(idA, StateInstalling)

	decls := []PolicyDeclaration{
		{ID: idA, Name: "Company Portal", Intent: IntentRequiredInstall, TargetType: TargetDevice},
		{ID: idB, Name: "Defender", Intent: IntentRequiredInstall, TargetType: TargetDevice},
		{ID: idC, Name: "User Tool", Intent: IntentRequiredInstall, TargetType: TargetUser},
		{ID: "", Name: "nameless"},
	}

	added := s.BulkUpsert(decls, DevicePhaseFilter)
	if added != 1 {
		t.Errorf("BulkUpsert added = %d, want 1 (idA existed, user app filtered)", added)
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}

	// Existing state survives the declaration.
	if got := s.GetOrCreate(idA); got.State != StateInstalling || got.Name != "Company Portal" {
		t.Errorf("idA after upsert = %+v", got)
	}
	if got := s.GetOrCreate(idB); got.State != StateNotStarted {
		t.Errorf("idB state = %v, want NotStarted", got.State)
	}
}

func TestSnapshotOrder(t *testing.T) {
	s := NewAppStore()
	s.UpdateState(idB, StateInstalling)
	s.UpdateState(idA, StateDownloading)
	s.UpdateState(idC, StateInstalled)

	snap := s.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("Snapshot() = %d apps, want 3", len(snap))
	}
	if snap[0].ID != idB || snap[1].ID != idA || snap[2].ID != idC {
		t.Errorf("snapshot order = %s, %s, %s (want discovery order)", snap[0].ID, snap[1].ID, snap[2].ID)
	}
}
