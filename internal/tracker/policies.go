package tracker

import (
	"encoding/json"
	"fmt"
)

// Vendor target-type values as they appear in the agent's policy JSON.
const (
	TargetUser   = 1
	TargetDevice = 2
)

// Vendor intent values. RequiredInstall apps block the provisioning page;
// the others are informational.
const (
	IntentAvailable         = 1
	IntentNotApplicable     = 2
	IntentRequiredInstall   = 3
	IntentRequiredUninstall = 4
)

// PolicyDeclaration is one entry of the app-policy batch the agent logs
// when it receives its assignments ("policies received").
type PolicyDeclaration struct {
	ID         string `json:"Id"`
	Name       string `json:"Name"`
	Intent     int    `json:"Intent"`
	TargetType int    `json:"TargetType"`
}

// ParsePolicyPayload decodes the JSON array the agent embeds in its
// policy log line.
func ParsePolicyPayload(payload string) ([]PolicyDeclaration, error) {
	var decls []PolicyDeclaration
	if err := json.Unmarshal([]byte(payload), &decls); err != nil {
		return nil, fmt.Errorf("decode policy payload: %w", err)
	}
	return decls, nil
}

// DevicePhaseFilter drops user-targeted declarations. Used while the
// device-setup phase is active: user apps are not processed until account
// setup, and declaring them early would block completion detection.
func DevicePhaseFilter(d PolicyDeclaration) bool {
	return d.TargetType != TargetUser
}
