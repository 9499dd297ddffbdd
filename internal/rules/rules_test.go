package rules

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleRuleFile = `
rules:
  - id: app-installing
    category: CurrentPhase
    pattern: 'Installing app {GUID}'
    action: appState
    parameters:
      state: Installing
    enabled: true
  - id: legacy-rule
    category: OtherPhases
    pattern: 'old format'
    action: appState
    enabled: false
  - id: phase-account
    category: Always
    pattern: 'Account setup session begins'
    action: espPhaseDetected
    parameters:
      phase: AccountSetup
    enabled: true
`

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(sampleRuleFile), 0644); err != nil {
		t.Fatalf("write rule file: %v", err)
	}

	ruleset, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if len(ruleset) != 3 {
		t.Fatalf("got %d rules, want 3", len(ruleset))
	}

	first := ruleset[0]
	if first.ID != "app-installing" || first.Category != CategoryCurrentPhase {
		t.Errorf("first rule = %+v", first)
	}
	if first.Parameters["state"] != "Installing" {
		t.Errorf("first rule parameters = %v", first.Parameters)
	}
	if ruleset[1].Enabled {
		t.Error("legacy-rule should be disabled")
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("rules: {not: a list}"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(bad); err == nil {
		t.Error("expected error for malformed document")
	}
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		name string
		want Action
	}{
		{"setCurrentApp", ActionSetCurrentApp},
		{"appState", ActionAppState},
		{"downloadProgress", ActionDownloadProgress},
		{"espPhaseDetected", ActionPhaseDetected},
		{"agentStarted", ActionAgentStarted},
		{"agentVersion", ActionAgentVersion},
		{"policiesReceived", ActionPoliciesReceived},
		{"cancelCurrentApp", ActionCancelCurrentApp},
		{"someFutureAction", ActionUnknown},
		{"", ActionUnknown},
	}
	for _, tt := range tests {
		if got := ParseAction(tt.name); got != tt.want {
			t.Errorf("ParseAction(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
