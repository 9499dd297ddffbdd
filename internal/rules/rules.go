// Package rules turns externally supplied matching rules into compiled,
// categorized regex matchers for the tracking engine. Rule definitions are
// data, not code: the agent's log format drifts between releases, so the
// rule set is delivered by the backend (or a local YAML file) and can be
// replaced at runtime without restarting the engine.
package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rule categories. A rule's category decides which matcher set it joins:
// Always rules match in every phase, CurrentPhase/OtherPhases rules only
// while the corresponding phase set is active.
const (
	CategoryAlways       = "Always"
	CategoryCurrentPhase = "CurrentPhase"
	CategoryOtherPhases  = "OtherPhases"
)

// Placeholder is the token rule authors write where an application id is
// expected. The registry substitutes it with a shared UUID capture group so
// every rule uses the same identifier-extraction convention.
const Placeholder = "{GUID}"

// Rule is one externally supplied matching rule, as delivered by the rule
// source. Pattern may contain the {GUID} placeholder.
type Rule struct {
	ID         string            `yaml:"id" json:"id"`
	Category   string            `yaml:"category" json:"category"`
	Pattern    string            `yaml:"pattern" json:"pattern"`
	Action     string            `yaml:"action" json:"action"`
	Parameters map[string]string `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	Enabled    bool              `yaml:"enabled" json:"enabled"`
}

// File is the on-disk rule document shape.
type File struct {
	Rules []Rule `yaml:"rules"`
}

// LoadFile reads a YAML rule document. It validates the document shape
// only; per-rule regex problems are handled (and tolerated) at compile
// time by the Registry.
func LoadFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}

	var doc File
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse rule file %s: %w", path, err)
	}
	return doc.Rules, nil
}

// Action identifies the semantic handler a rule dispatches to. The external
// schema stays string-based for hot reloadability; unknown strings map to
// ActionUnknown so newer rule sets never break older engines.
type Action int

const (
	ActionUnknown Action = iota
	ActionSetCurrentApp
	ActionAppState
	ActionDownloadProgress
	ActionPhaseDetected
	ActionAgentStarted
	ActionAgentVersion
	ActionPoliciesReceived
	ActionCancelCurrentApp
)

var actionNames = map[string]Action{
	"setCurrentApp":    ActionSetCurrentApp,
	"appState":         ActionAppState,
	"downloadProgress": ActionDownloadProgress,
	"espPhaseDetected": ActionPhaseDetected,
	"agentStarted":     ActionAgentStarted,
	"agentVersion":     ActionAgentVersion,
	"policiesReceived": ActionPoliciesReceived,
	"cancelCurrentApp": ActionCancelCurrentApp,
}

// ParseAction maps a rule's action string to its handler variant.
// Unrecognized names return ActionUnknown.
func ParseAction(name string) Action {
	if a, ok := actionNames[name]; ok {
		return a
	}
	return ActionUnknown
}
