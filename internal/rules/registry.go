package rules

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
)

// guidCapture is the named capture substituted for the first {GUID}
// placeholder in a rule pattern. The agent identifies Win32 apps by GUID,
// so one shared sub-expression serves every rule.
const guidCapture = `(?P<appid>[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12})`

// guidBare is used for any additional placeholders in the same pattern;
// RE2 rejects duplicate group names.
const guidBare = `[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`

// CompiledRule is an enabled rule after placeholder substitution and regex
// compilation.
type CompiledRule struct {
	ID         string
	Regex      *regexp.Regexp
	Action     Action
	ActionName string
	Parameters map[string]string

	appIDIndex int
}

// AppID extracts the captured application id from a successful match, or
// "" when the rule's pattern had no {GUID} placeholder.
func (c *CompiledRule) AppID(match []string) string {
	if c.appIDIndex <= 0 || c.appIDIndex >= len(match) {
		return ""
	}
	return match[c.appIDIndex]
}

// Registry holds the three category matcher sets. Compile replaces all of
// them atomically, so the polling loop never observes a half-updated rule
// set during a hot reload.
type Registry struct {
	mu           sync.RWMutex
	always       []*CompiledRule
	currentPhase []*CompiledRule
	otherPhases  []*CompiledRule

	log *slog.Logger
}

// NewRegistry returns an empty registry. Logger may be nil.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{log: logger.With("component", "rules")}
}

// Compile builds matcher sets from ruleset and swaps them in. Disabled
// rules are skipped. A rule that fails to compile is logged with its id and
// dropped; one bad rule never prevents the rest from loading. Returns the
// number of rules activated.
func (r *Registry) Compile(ruleset []Rule) int {
	var always, current, other []*CompiledRule

	for _, rule := range ruleset {
		if !rule.Enabled {
			continue
		}
		compiled, err := compileRule(rule)
		if err != nil {
			r.log.Warn("dropping rule", "rule", rule.ID, "error", err)
			continue
		}
		switch rule.Category {
		case CategoryCurrentPhase:
			current = append(current, compiled)
		case CategoryOtherPhases:
			other = append(other, compiled)
		case CategoryAlways:
			always = append(always, compiled)
		default:
			// Unrecognized categories behave as Always so a rule-source
			// schema addition degrades to "match everywhere".
			always = append(always, compiled)
		}
	}

	r.mu.Lock()
	r.always, r.currentPhase, r.otherPhases = always, current, other
	r.mu.Unlock()

	return len(always) + len(current) + len(other)
}

// ActiveSet returns Always plus the phase set selected by currentPhase.
// The returned slice is a fresh copy; callers may hold it across a reload.
func (r *Registry) ActiveSet(currentPhase bool) []*CompiledRule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	phase := r.otherPhases
	if currentPhase {
		phase = r.currentPhase
	}
	set := make([]*CompiledRule, 0, len(r.always)+len(phase))
	set = append(set, r.always...)
	set = append(set, phase...)
	return set
}

func compileRule(rule Rule) (*CompiledRule, error) {
	if rule.Pattern == "" {
		return nil, fmt.Errorf("empty pattern")
	}

	src := rule.Pattern
	if strings.Contains(src, Placeholder) {
		src = strings.Replace(src, Placeholder, guidCapture, 1)
		src = strings.ReplaceAll(src, Placeholder, guidBare)
	}

	re, err := regexp.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("compile pattern: %w", err)
	}

	return &CompiledRule{
		ID:         rule.ID,
		Regex:      re,
		Action:     ParseAction(rule.Action),
		ActionName: rule.Action,
		Parameters: rule.Parameters,
		appIDIndex: re.SubexpIndex("appid"),
	}, nil
}

// Validate dry-compiles a rule set and reports per-rule problems keyed by
// rule id. Disabled rules are not checked.
func Validate(ruleset []Rule) map[string]error {
	problems := make(map[string]error)
	for _, rule := range ruleset {
		if !rule.Enabled {
			continue
		}
		if _, err := compileRule(rule); err != nil {
			problems[rule.ID] = err
		}
	}
	return problems
}
